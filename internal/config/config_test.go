package config

import (
	"testing"
	"time"
)

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("NOTIFY_WEBHOOK_URL", "http://hooks.local/notify")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 6543 {
		t.Errorf("database = %s:%d, want db.internal:6543", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Notify.WebhookURL != "http://hooks.local/notify" {
		t.Errorf("webhook url = %q", cfg.Notify.WebhookURL)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout default = %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Notify.Workers != 4 {
		t.Errorf("notify workers default = %d", cfg.Notify.Workers)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	want := "host=h port=5432 user=u password=p dbname=d sslmode=disable TimeZone=Asia/Kolkata"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
