package repository

import (
	"context"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"gorm.io/gorm"
)

// DeliveryRepository challans, gate passes and rejected material returns
type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// === Delivery challan ===

func (r *DeliveryRepository) CreateChallan(ctx context.Context, d *entity.DeliveryChallan) error {
	if d.ID == "" {
		d.ID = entity.NewID()
	}
	for i := range d.Items {
		if d.Items[i].ID == "" {
			d.Items[i].ID = entity.NewID()
		}
		d.Items[i].DeliveryChallanID = d.ID
	}
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DeliveryRepository) FindChallan(ctx context.Context, id string) (*entity.DeliveryChallan, error) {
	var d entity.DeliveryChallan
	if err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&d).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// LockChallan serializes returns recorded against one challan.
func (r *DeliveryRepository) LockChallan(ctx context.Context, id string) (*entity.DeliveryChallan, error) {
	var d entity.DeliveryChallan
	db := r.db.WithContext(ctx)
	if err := db.Clauses(forUpdate()).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, notFound(err)
	}
	if err := db.Where("delivery_challan_id = ?", id).Find(&d.Items).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeliveryRepository) LastChallanNumber(ctx context.Context, prefix string) (string, error) {
	return lastInSeries(ctx, r.db, &entity.DeliveryChallan{}, "document_number", prefix)
}

func (r *DeliveryRepository) ListChallans(ctx context.Context, page, pageSize int, projectCode string) ([]entity.DeliveryChallan, int64, error) {
	var items []entity.DeliveryChallan
	var total int64
	query := r.db.WithContext(ctx).Model(&entity.DeliveryChallan{})
	if projectCode != "" {
		query = query.Where("project_code = ?", projectCode)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := paginate(page, pageSize)
	err := query.Preload("Items").Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// === Returnable gate pass ===

func (r *DeliveryRepository) CreateGatePass(ctx context.Context, g *entity.ReturnableGatePass) error {
	if g.ID == "" {
		g.ID = entity.NewID()
	}
	for i := range g.Items {
		if g.Items[i].ID == "" {
			g.Items[i].ID = entity.NewID()
		}
		g.Items[i].GatePassID = g.ID
	}
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *DeliveryRepository) FindGatePass(ctx context.Context, id string) (*entity.ReturnableGatePass, error) {
	var g entity.ReturnableGatePass
	if err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&g).Error; err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// LockGatePass locks the pass and its items.
func (r *DeliveryRepository) LockGatePass(ctx context.Context, id string) (*entity.ReturnableGatePass, error) {
	var g entity.ReturnableGatePass
	db := r.db.WithContext(ctx)
	if err := db.Clauses(forUpdate()).Where("id = ?", id).First(&g).Error; err != nil {
		return nil, notFound(err)
	}
	if err := db.Clauses(forUpdate()).Where("gate_pass_id = ?", id).Order("id ASC").Find(&g.Items).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *DeliveryRepository) LastGatePassNumber(ctx context.Context, prefix string) (string, error) {
	return lastInSeries(ctx, r.db, &entity.ReturnableGatePass{}, "gate_pass_number", prefix)
}

func (r *DeliveryRepository) SetGatePassStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&entity.ReturnableGatePass{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}

func (r *DeliveryRepository) SetReturned(ctx context.Context, itemID string, qty int) error {
	return r.db.WithContext(ctx).Model(&entity.ReturnableGatePassItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{"returned_quantity": qty, "updated_at": time.Now()}).Error
}

func (r *DeliveryRepository) CreateGatePassReturn(ctx context.Context, ret *entity.ReturnableGatePassReturn) error {
	if ret.ID == "" {
		ret.ID = entity.NewID()
	}
	for i := range ret.Items {
		if ret.Items[i].ID == "" {
			ret.Items[i].ID = entity.NewID()
		}
		ret.Items[i].ReturnID = ret.ID
	}
	return r.db.WithContext(ctx).Create(ret).Error
}

// MarkOverdue flips open passes whose expected return date is before today.
func (r *DeliveryRepository) MarkOverdue(ctx context.Context, today time.Time) ([]entity.ReturnableGatePass, error) {
	var items []entity.ReturnableGatePass
	db := r.db.WithContext(ctx)
	err := db.Clauses(forUpdate()).
		Where("status IN ? AND expected_return_date < ?",
			[]string{entity.GatePassStatusIssued, entity.GatePassStatusPartiallyReturned}, today).
		Find(&items).Error
	if err != nil || len(items) == 0 {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].ID)
		items[i].Status = entity.GatePassStatusOverdue
	}
	err = db.Model(&entity.ReturnableGatePass{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"status": entity.GatePassStatusOverdue, "updated_at": time.Now()}).Error
	return items, err
}

func (r *DeliveryRepository) ListGatePasses(ctx context.Context, page, pageSize int, status string) ([]entity.ReturnableGatePass, int64, error) {
	var items []entity.ReturnableGatePass
	var total int64
	query := r.db.WithContext(ctx).Model(&entity.ReturnableGatePass{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := paginate(page, pageSize)
	err := query.Preload("Items").Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// === Rejected material ===

func (r *DeliveryRepository) CreateRejectedReturn(ctx context.Context, ret *entity.RejectedMaterialReturn) error {
	if ret.ID == "" {
		ret.ID = entity.NewID()
	}
	for i := range ret.Items {
		if ret.Items[i].ID == "" {
			ret.Items[i].ID = entity.NewID()
		}
		ret.Items[i].ReturnID = ret.ID
	}
	return r.db.WithContext(ctx).Create(ret).Error
}

func (r *DeliveryRepository) ListRejectedReturns(ctx context.Context, challanID string) ([]entity.RejectedMaterialReturn, error) {
	var items []entity.RejectedMaterialReturn
	query := r.db.WithContext(ctx).Preload("Items")
	if challanID != "" {
		query = query.Where("delivery_challan_id = ?", challanID)
	}
	err := query.Order("created_at DESC").Find(&items).Error
	return items, err
}
