package repository

import (
	"context"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"gorm.io/gorm"
)

// PORepository purchase orders, line items and inward entries
type PORepository struct {
	db *gorm.DB
}

func NewPORepository(db *gorm.DB) *PORepository {
	return &PORepository{db: db}
}

// FindAll filtered, paginated PO list
func (r *PORepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})

	if v := filters["inward_status"]; v != "" {
		query = query.Where("inward_status = ?", v)
	}
	if v := filters["project_code"]; v != "" {
		query = query.Where("project_code = ?", v)
	}
	if v := filters["vendor_id"]; v != "" {
		query = query.Where("vendor_id = ?", v)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("po_number ILIKE ? OR vendor_name ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindByNumber PO with its lines
func (r *PORepository) FindByNumber(ctx context.Context, poNumber string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("po_number = ?", poNumber).
		First(&po).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &po, nil
}

// LockByNumber locks the header, then its lines in sort order.
func (r *PORepository) LockByNumber(ctx context.Context, poNumber string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	db := r.db.WithContext(ctx)
	if err := db.Clauses(forUpdate()).Where("po_number = ?", poNumber).First(&po).Error; err != nil {
		return nil, notFound(err)
	}
	if err := db.Clauses(forUpdate()).
		Where("purchase_order_id = ?", po.ID).
		Order("sort_order ASC").
		Find(&po.LineItems).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *PORepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	if po.ID == "" {
		po.ID = entity.NewID()
	}
	for i := range po.LineItems {
		if po.LineItems[i].ID == "" {
			po.LineItems[i].ID = entity.NewID()
		}
		po.LineItems[i].PurchaseOrderID = po.ID
	}
	return r.db.WithContext(ctx).Create(po).Error
}

// UpdateHeader writes the given header columns.
func (r *PORepository) UpdateHeader(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).Where("id = ?", id).Updates(fields).Error
}

func (r *PORepository) SetInwarded(ctx context.Context, lineID string, qty int) error {
	return r.db.WithContext(ctx).Model(&entity.POLineItem{}).
		Where("id = ?", lineID).
		Updates(map[string]interface{}{"inwarded_quantity": qty, "updated_at": time.Now()}).Error
}

// LastNumber highest PO number starting with prefix.
func (r *PORepository) LastNumber(ctx context.Context, prefix string) (string, error) {
	return lastInSeries(ctx, r.db, &entity.PurchaseOrder{}, "po_number", prefix)
}

func (r *PORepository) Exists(ctx context.Context, poNumber string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).Where("po_number = ?", poNumber).Count(&n).Error
	return n > 0, err
}

// === Inward ===

func (r *PORepository) CreateInwardEntries(ctx context.Context, rows []entity.InwardEntry) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = entity.NewID()
		}
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *PORepository) ListInwardEntries(ctx context.Context, poNumber string) ([]entity.InwardEntry, error) {
	var items []entity.InwardEntry
	err := r.db.WithContext(ctx).Where("po_number = ?", poNumber).Order("created_at ASC").Find(&items).Error
	return items, err
}

// VendorRepository supplier registry
type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

func (r *VendorRepository) Create(ctx context.Context, v *entity.Vendor) error {
	if v.ID == "" {
		v.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *VendorRepository) FindByID(ctx context.Context, id string) (*entity.Vendor, error) {
	var v entity.Vendor
	if err := r.db.WithContext(ctx).Preload("Documents").Where("id = ?", id).First(&v).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *VendorRepository) LockByID(ctx context.Context, id string) (*entity.Vendor, error) {
	var v entity.Vendor
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *VendorRepository) FindAll(ctx context.Context, page, pageSize int, search string) ([]entity.Vendor, int64, error) {
	var items []entity.Vendor
	var total int64
	query := r.db.WithContext(ctx).Model(&entity.Vendor{})
	if search != "" {
		query = query.Where("name ILIKE ? OR vendor_code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := paginate(page, pageSize)
	err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// LastCode highest vendor code starting with prefix.
func (r *VendorRepository) LastCode(ctx context.Context, prefix string) (string, error) {
	return lastInSeries(ctx, r.db, &entity.Vendor{}, "vendor_code", prefix)
}

func (r *VendorRepository) CountDocuments(ctx context.Context, vendorID, field string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.VendorDocument{}).
		Where("vendor_id = ? AND field = ?", vendorID, field).
		Count(&n).Error
	return n, err
}

func (r *VendorRepository) CreateDocument(ctx context.Context, d *entity.VendorDocument) error {
	if d.ID == "" {
		d.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(d).Error
}
