package repository

import (
	"context"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository stock, allocations and outwards
type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) FindByID(ctx context.Context, id string) (*entity.Inventory, error) {
	var inv entity.Inventory
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

// LockByID every stock mutation of an item goes through this lock.
func (r *InventoryRepository) LockByID(ctx context.Context, id string) (*entity.Inventory, error) {
	var inv entity.Inventory
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

func (r *InventoryRepository) LockByItemNo(ctx context.Context, itemNo string) (*entity.Inventory, error) {
	var inv entity.Inventory
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("item_no = ?", itemNo).First(&inv).Error; err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

func (r *InventoryRepository) Create(ctx context.Context, inv *entity.Inventory) error {
	if inv.ID == "" {
		inv.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(inv).Error
}

// EnsureByItemNo creates an empty inventory row for the item unless one
// exists, then locks it.
func (r *InventoryRepository) EnsureByItemNo(ctx context.Context, inv *entity.Inventory) (*entity.Inventory, error) {
	if inv.ID == "" {
		inv.ID = entity.NewID()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "item_no"}}, DoNothing: true}).
		Create(inv).Error
	if err != nil {
		return nil, err
	}
	return r.LockByItemNo(ctx, inv.ItemNo)
}

// SaveStock writes partitions and derived columns in one update.
func (r *InventoryRepository) SaveStock(ctx context.Context, inv *entity.Inventory) error {
	return r.db.WithContext(ctx).Model(&entity.Inventory{}).
		Where("id = ?", inv.ID).
		Updates(map[string]interface{}{
			"times_sq_stock":  inv.TimesSqStock,
			"i_sq_stock":      inv.ISqStock,
			"sakar_stock":     inv.SakarStock,
			"pirana_stock":    inv.PiranaStock,
			"other_stock":     inv.OtherStock,
			"allocated_stock": inv.AllocatedStock,
			"available_stock": inv.AvailableStock,
			"total_stock":     inv.TotalStock,
			"updated_at":      time.Now(),
		}).Error
}

func (r *InventoryRepository) List(ctx context.Context, search string) ([]entity.Inventory, error) {
	var items []entity.Inventory
	query := r.db.WithContext(ctx).Model(&entity.Inventory{})
	if search != "" {
		query = query.Where("item_no ILIKE ? OR description ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	err := query.Order("item_no ASC").Find(&items).Error
	return items, err
}

// === Allocation ===

// ActiveAllocated sum of location allocations under active allocations.
func (r *InventoryRepository) ActiveAllocated(ctx context.Context, inventoryID string) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).Model(&entity.LocationWiseAllocation{}).
		Select("COALESCE(SUM(pms_location_wise_allocations.quantity), 0)").
		Joins("JOIN pms_stock_allocations a ON a.id = pms_location_wise_allocations.stock_allocation_id").
		Where("a.inventory_id = ? AND a.status IN ?", inventoryID, entity.ActiveAllocationStatuses).
		Scan(&sum).Error
	return sum, err
}

// AllocatedAt per-location breakdown of active allocations.
func (r *InventoryRepository) AllocatedAt(ctx context.Context, inventoryID string) (map[string]int, error) {
	var rows []struct {
		Location string
		Quantity int
	}
	err := r.db.WithContext(ctx).Model(&entity.LocationWiseAllocation{}).
		Select("pms_location_wise_allocations.location AS location, COALESCE(SUM(pms_location_wise_allocations.quantity), 0) AS quantity").
		Joins("JOIN pms_stock_allocations a ON a.id = pms_location_wise_allocations.stock_allocation_id").
		Where("a.inventory_id = ? AND a.status IN ?", inventoryID, entity.ActiveAllocationStatuses).
		Group("pms_location_wise_allocations.location").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Location] = row.Quantity
	}
	return out, nil
}

func (r *InventoryRepository) CreateAllocation(ctx context.Context, a *entity.StockAllocation) error {
	if a.ID == "" {
		a.ID = entity.NewID()
	}
	for i := range a.LocationAllocations {
		if a.LocationAllocations[i].ID == "" {
			a.LocationAllocations[i].ID = entity.NewID()
		}
		a.LocationAllocations[i].StockAllocationID = a.ID
	}
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *InventoryRepository) FindAllocation(ctx context.Context, id string) (*entity.StockAllocation, error) {
	var a entity.StockAllocation
	err := r.db.WithContext(ctx).Preload("LocationAllocations").Where("id = ?", id).First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// ProjectAllocationsAt active location allocations of a project at one
// location, oldest allocation first, locked.
func (r *InventoryRepository) ProjectAllocationsAt(ctx context.Context, inventoryID, projectCode, location string) ([]entity.LocationWiseAllocation, error) {
	var items []entity.LocationWiseAllocation
	err := r.db.WithContext(ctx).Clauses(forUpdate()).
		Select("pms_location_wise_allocations.*").
		Joins("JOIN pms_stock_allocations a ON a.id = pms_location_wise_allocations.stock_allocation_id").
		Where("a.inventory_id = ? AND a.project_code = ? AND a.status IN ? AND pms_location_wise_allocations.location = ? AND pms_location_wise_allocations.quantity > 0",
			inventoryID, projectCode, entity.ActiveAllocationStatuses, location).
		Order("a.created_at ASC, a.id ASC").
		Find(&items).Error
	return items, err
}

func (r *InventoryRepository) LockAllocation(ctx context.Context, id string) (*entity.StockAllocation, error) {
	var a entity.StockAllocation
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).
		Where("stock_allocation_id = ?", id).
		Order("location ASC").
		Find(&a.LocationAllocations).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAllocationQuantity writes allocated_quantity and status.
func (r *InventoryRepository) SaveAllocationQuantity(ctx context.Context, a *entity.StockAllocation) error {
	fields := map[string]interface{}{
		"allocated_quantity": a.AllocatedQuantity,
		"status":             a.Status,
		"updated_at":         time.Now(),
	}
	if a.CancelledAt != nil {
		fields["cancelled_at"] = a.CancelledAt
	}
	return r.db.WithContext(ctx).Model(&entity.StockAllocation{}).Where("id = ?", a.ID).Updates(fields).Error
}

func (r *InventoryRepository) SetLocationQuantity(ctx context.Context, id string, qty int) error {
	return r.db.WithContext(ctx).Model(&entity.LocationWiseAllocation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"quantity": qty, "updated_at": time.Now()}).Error
}

// CountOutwards outwards recorded against an allocation.
func (r *InventoryRepository) CountOutwards(ctx context.Context, allocationID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.StockOutward{}).Where("stock_allocation_id = ?", allocationID).Count(&n).Error
	return n, err
}

func (r *InventoryRepository) ListAllocations(ctx context.Context, inventoryID string, activeOnly bool) ([]entity.StockAllocation, error) {
	var items []entity.StockAllocation
	query := r.db.WithContext(ctx).Preload("LocationAllocations").Where("inventory_id = ?", inventoryID)
	if activeOnly {
		query = query.Where("status IN ?", entity.ActiveAllocationStatuses)
	}
	err := query.Order("created_at ASC").Find(&items).Error
	return items, err
}

// === Outward ===

func (r *InventoryRepository) CreateOutward(ctx context.Context, o *entity.StockOutward) error {
	if o.ID == "" {
		o.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *InventoryRepository) ListOutwards(ctx context.Context, inventoryID string) ([]entity.StockOutward, error) {
	var items []entity.StockOutward
	err := r.db.WithContext(ctx).Where("inventory_id = ?", inventoryID).Order("created_at ASC").Find(&items).Error
	return items, err
}
