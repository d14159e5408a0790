package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories PMS repository set
type Repositories struct {
	db *gorm.DB

	Classification *ClassificationRepository
	Request        *RequestRepository
	Project        *ProjectRepository
	Requisition    *RequisitionRepository
	Master         *MasterRepository
	Vendor         *VendorRepository
	PO             *PORepository
	Inventory      *InventoryRepository
	Delivery       *DeliveryRepository
	ActivityLog    *ActivityLogRepository
	User           *UserRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:             db,
		Classification: NewClassificationRepository(db),
		Request:        NewRequestRepository(db),
		Project:        NewProjectRepository(db),
		Requisition:    NewRequisitionRepository(db),
		Master:         NewMasterRepository(db),
		Vendor:         NewVendorRepository(db),
		PO:             NewPORepository(db),
		Inventory:      NewInventoryRepository(db),
		Delivery:       NewDeliveryRepository(db),
		ActivityLog:    NewActivityLogRepository(db),
		User:           NewUserRepository(db),
	}
}

// WithTx rebinds every repository to tx.
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return NewRepositories(tx)
}

// DB returns the underlying handle.
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// LockSeries serializes number generation for one series until the
// transaction ends.
func LockSeries(ctx context.Context, db *gorm.DB, series string) error {
	return db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", series).Error
}

// lastInSeries returns the highest value of column starting with prefix.
func lastInSeries(ctx context.Context, db *gorm.DB, model interface{}, column, prefix string) (string, error) {
	var last string
	err := db.WithContext(ctx).Model(model).
		Select("COALESCE(MAX(" + column + "), '')").
		Where(column+" LIKE ?", prefix+"%").
		Scan(&last).Error
	return last, err
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func paginate(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
