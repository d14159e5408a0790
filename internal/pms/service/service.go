package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/blob"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/cache"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/notify"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/render"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services PMS service set
type Services struct {
	Classification *ClassificationService
	Request        *RequestService
	Requisition    *RequisitionService
	Master         *MasterService
	PO             *POService
	Inward         *InwardService
	Inventory      *InventoryService
	Delivery       *DeliveryService
	GatePass       *GatePassService
	Vendor         *VendorService
	Project        *ProjectService
	Directory      *Directory
}

// Deps shared collaborators of every engine.
type Deps struct {
	DB        *gorm.DB
	Repos     *repository.Repositories
	Cache     *cache.Cache
	Blobs     blob.Store
	Renderer  render.Renderer
	Publisher notify.Publisher
	Logger    *zap.Logger
}

func NewServices(d Deps) *Services {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Repos == nil {
		d.Repos = repository.NewRepositories(d.DB)
	}
	if d.Blobs == nil {
		d.Blobs = blob.NewMemoryStore()
	}
	if d.Renderer == nil {
		d.Renderer = render.NewXLSX()
	}
	if d.Cache == nil {
		d.Cache = cache.New(nil, d.Logger, cache.DefaultTTLs())
	}

	dir := NewDirectory(d.Repos.User, d.Logger)
	classification := NewClassificationService(d.DB, d.Repos, d.Cache, d.Logger)
	inventory := NewInventoryService(d.DB, d.Repos, d.Cache, d.Logger)

	return &Services{
		Classification: classification,
		Request:        NewRequestService(d.DB, d.Repos, classification, d.Blobs, d.Publisher, dir, d.Logger),
		Requisition:    NewRequisitionService(d.DB, d.Repos, d.Cache, d.Publisher, dir, d.Logger),
		Master:         NewMasterService(d.DB, d.Repos, d.Publisher, dir, d.Logger),
		PO:             NewPOService(d.DB, d.Repos, d.Blobs, d.Renderer, d.Publisher, dir, d.Logger),
		Inward:         NewInwardService(d.DB, d.Repos, d.Cache, d.Blobs, d.Publisher, dir, d.Logger),
		Inventory:      inventory,
		Delivery:       NewDeliveryService(d.DB, d.Repos, inventory, d.Blobs, d.Renderer, d.Logger),
		GatePass:       NewGatePassService(d.DB, d.Repos, inventory, d.Blobs, d.Renderer, d.Publisher, d.Logger),
		Vendor:         NewVendorService(d.DB, d.Repos, d.Blobs, d.Logger),
		Project:        NewProjectService(d.Repos),
		Directory:      dir,
	}
}

// Upload is an attached file handed in by the transport.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

func (u *Upload) present() bool { return u != nil && u.Content != nil }

// transact runs fn on repositories bound to one transaction.
func transact(ctx context.Context, db *gorm.DB, fn func(r *repository.Repositories) error) error {
	return store.Transact(ctx, db, func(tx *gorm.DB) error {
		return fn(repository.NewRepositories(tx))
	})
}

// orNotFound turns the repository sentinel into a typed NotFound.
func orNotFound(err error, entity, key string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(entity, key)
	}
	return err
}

// today truncates t to midnight in its own location.
func today(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// removeQuietly drops a blob written by a command that later failed.
func removeQuietly(ctx context.Context, blobs blob.Store, logger *zap.Logger, path string) {
	if path == "" {
		return
	}
	if err := blobs.Remove(context.WithoutCancel(ctx), path); err != nil {
		logger.Warn("orphan blob left behind", zap.String("path", path), zap.Error(err))
	}
}

// publish hands events over outside any transaction.
func publish(pub notify.Publisher, events ...notify.Event) {
	if pub != nil && len(events) > 0 {
		pub.Publish(events...)
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
