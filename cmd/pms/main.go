package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/pratyush-pilli/cimventory-sub000/internal/config"
	"github.com/pratyush-pilli/cimventory-sub000/internal/middleware"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/handler"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/service"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/blob"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/cache"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/notify"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/render"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting cimventory procurement service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database, cfg.Server.Mode)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(entity.Models()...); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}
	if cfg.Locking.DefaultTimeout > 0 {
		store.DefaultLockTimeout = cfg.Locking.DefaultTimeout
	}

	// redis is optional: without it every cache read is a miss
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = initRedis(cfg.Redis)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			zapLogger.Warn("Redis unavailable, caching disabled", zap.Error(err))
			rdb.Close()
			rdb = nil
		}
		cancel()
	}
	ttl := cache.DefaultTTLs().Merge(cache.TTLs{
		Dropdown:  cfg.Cache.DropdownTTL,
		Related:   cfg.Cache.RelatedTTL,
		Revision:  cfg.Cache.RevisionTTL,
		Inventory: cfg.Cache.InventoryTTL,
	})

	blobs, err := initBlobStore(cfg.MinIO, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init object storage", zap.Error(err))
	}

	dispatcher := notify.NewDispatcher(zapLogger, cfg.Notify.QueueSize, cfg.Notify.Workers, cfg.Notify.Timeout)
	dispatcher.Register(notify.NewLogSink(zapLogger))
	if cfg.Notify.WebhookURL != "" {
		dispatcher.Register(notify.NewWebhookSink(cfg.Notify.WebhookURL, cfg.Notify.WebhookToken, cfg.Notify.Retries, cfg.Notify.Timeout))
	}
	dispatcher.Start()

	services := service.NewServices(service.Deps{
		DB:        db,
		Repos:     repository.NewRepositories(db),
		Cache:     cache.New(rdb, zapLogger, ttl),
		Blobs:     blobs,
		Renderer:  render.NewXLSX(),
		Publisher: dispatcher,
		Logger:    zapLogger,
	})
	handlers := handler.NewHandlers(services, zapLogger)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	jobCtx, stopJobs := context.WithCancel(context.Background())
	go runOverdueSweep(jobCtx, services.GatePass, cfg.Jobs.GatePassOverdueInterval, zapLogger)

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	stopJobs()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := dispatcher.Close(ctx); err != nil {
		zapLogger.Warn("Notification queue not drained", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	zapLogger.Info("Server exited")
}

// runOverdueSweep flags returnable gate passes past their expected return date.
func runOverdueSweep(ctx context.Context, gatePass *service.GatePassService, interval time.Duration, zapLogger *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := gatePass.MarkOverdueGatePasses(ctx, now)
			if err != nil {
				zapLogger.Warn("Gate pass overdue sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zapLogger.Info("Gate passes marked overdue", zap.Int("count", n))
			}
		}
	}
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	if cfg.Output == "file" && cfg.FilePath != "" {
		zapCfg.OutputPaths = []string{cfg.FilePath}
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig, mode string) (*gorm.DB, error) {
	level := logger.Warn
	if mode == "debug" {
		level = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(level),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// initBlobStore falls back to an in-process store when no endpoint is set.
func initBlobStore(cfg config.MinIOConfig, zapLogger *zap.Logger) (blob.Store, error) {
	if cfg.Endpoint == "" {
		zapLogger.Warn("MinIO endpoint not configured, documents are kept in memory")
		return blob.NewMemoryStore(), nil
	}
	s, err := blob.NewMinioStore(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	if cfg.Server.RequestTimeout > 0 {
		v1.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}
	handler.RegisterRoutes(v1, h)
}
