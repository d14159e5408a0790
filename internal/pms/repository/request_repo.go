package repository

import (
	"context"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestRepository item requests and the two master catalogs
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// === ItemRequest ===

func (r *RequestRepository) CreateItemRequest(ctx context.Context, req *entity.ItemRequest) error {
	if req.ID == "" {
		req.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *RequestRepository) FindItemRequest(ctx context.Context, id string) (*entity.ItemRequest, error) {
	var req entity.ItemRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

// LockItemRequest loads the request FOR UPDATE.
func (r *RequestRepository) LockItemRequest(ctx context.Context, id string) (*entity.ItemRequest, error) {
	var req entity.ItemRequest
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r *RequestRepository) SaveItemRequest(ctx context.Context, req *entity.ItemRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}

func (r *RequestRepository) ListItemRequests(ctx context.Context, status string) ([]entity.ItemRequest, error) {
	var items []entity.ItemRequest
	query := r.db.WithContext(ctx).Model(&entity.ItemRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at ASC").Find(&items).Error
	return items, err
}

// === FactoryItemRequest ===

func (r *RequestRepository) CreateFactoryRequest(ctx context.Context, req *entity.FactoryItemRequest) error {
	if req.ID == "" {
		req.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *RequestRepository) FindFactoryRequest(ctx context.Context, id string) (*entity.FactoryItemRequest, error) {
	var req entity.FactoryItemRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r *RequestRepository) LockFactoryRequest(ctx context.Context, id string) (*entity.FactoryItemRequest, error) {
	var req entity.FactoryItemRequest
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r *RequestRepository) SaveFactoryRequest(ctx context.Context, req *entity.FactoryItemRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}

func (r *RequestRepository) ListFactoryRequests(ctx context.Context, status string) ([]entity.FactoryItemRequest, error) {
	var items []entity.FactoryItemRequest
	query := r.db.WithContext(ctx).Model(&entity.FactoryItemRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at ASC").Find(&items).Error
	return items, err
}

// === ItemMaster ===

func (r *RequestRepository) FindItemMaster(ctx context.Context, partNo string) (*entity.ItemMaster, error) {
	var m entity.ItemMaster
	if err := r.db.WithContext(ctx).Where("cimcon_part_no = ?", partNo).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// InsertItemMaster returns false when the part number is already in the catalog.
func (r *RequestRepository) InsertItemMaster(ctx context.Context, m *entity.ItemMaster) (bool, error) {
	if m.ID == "" {
		m.ID = entity.NewID()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "cimcon_part_no"}}, DoNothing: true}).
		Create(m)
	return res.RowsAffected > 0, res.Error
}

// UpdateMfgPartNo sets mfg_part_no when it differs.
func (r *RequestRepository) UpdateMfgPartNo(ctx context.Context, partNo, mfgPartNo string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.ItemMaster{}).
		Where("cimcon_part_no = ? AND mfg_part_no IS DISTINCT FROM ?", partNo, mfgPartNo).
		Update("mfg_part_no", mfgPartNo)
	return res.RowsAffected, res.Error
}

func (r *RequestRepository) ListItemMasters(ctx context.Context, page, pageSize int, search string) ([]entity.ItemMaster, int64, error) {
	var items []entity.ItemMaster
	var total int64
	query := r.db.WithContext(ctx).Model(&entity.ItemMaster{})
	if search != "" {
		query = query.Where("cimcon_part_no ILIKE ? OR description ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := paginate(page, pageSize)
	err := query.Order("cimcon_part_no ASC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// === FactoryItemMaster ===

func (r *RequestRepository) FindFactoryMaster(ctx context.Context, partNo string) (*entity.FactoryItemMaster, error) {
	var m entity.FactoryItemMaster
	if err := r.db.WithContext(ctx).Where("full_part_number = ?", partNo).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *RequestRepository) InsertFactoryMaster(ctx context.Context, m *entity.FactoryItemMaster) (bool, error) {
	if m.ID == "" {
		m.ID = entity.NewID()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "full_part_number"}}, DoNothing: true}).
		Create(m)
	return res.RowsAffected > 0, res.Error
}
