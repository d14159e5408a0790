package repository

import (
	"context"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"gorm.io/gorm"
)

// ActivityLogRepository state transition audit trail
type ActivityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

func (r *ActivityLogRepository) Create(ctx context.Context, log *entity.ActivityLog) error {
	if log.ID == "" {
		log.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByEntity newest first.
func (r *ActivityLogRepository) FindByEntity(ctx context.Context, entityType, entityID string, page, pageSize int) ([]entity.ActivityLog, int64, error) {
	var items []entity.ActivityLog
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ActivityLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// LogActivity records one transition. It runs on the caller's transaction,
// so a failed write rolls the transition back with it.
func (r *ActivityLogRepository) LogActivity(ctx context.Context, entityType, entityID, entityCode, action, fromStatus, toStatus, content, operator string) error {
	return r.Create(ctx, &entity.ActivityLog{
		EntityType: entityType,
		EntityID:   entityID,
		EntityCode: entityCode,
		Action:     action,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Content:    content,
		Operator:   operator,
	})
}

// UserRepository read-only user directory
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// FindByRole active users holding role, optionally within a division.
func (r *UserRepository) FindByRole(ctx context.Context, role, division string) ([]entity.User, error) {
	var items []entity.User
	query := r.db.WithContext(ctx).Where("role = ? AND active = ?", role, true)
	if division != "" {
		query = query.Where("division = ?", division)
	}
	err := query.Order("email ASC").Find(&items).Error
	return items, err
}
