package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/cache"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InventoryService stock partitions, project allocations and outwards.
//
// Every mutation locks the inventory rows it touches (sorted by id when
// there are several) before any allocation row, recomputes the derived
// columns once at the end and writes them in a single update.
type InventoryService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	cache  *cache.Cache
	logger *zap.Logger
}

func NewInventoryService(db *gorm.DB, repos *repository.Repositories, c *cache.Cache, logger *zap.Logger) *InventoryService {
	return &InventoryService{db: db, repos: repos, cache: c, logger: logger}
}

type LocationQuantity struct {
	Location string `json:"location"`
	Quantity int    `json:"quantity"`
}

type ProjectAllocationInput struct {
	ProjectCode string             `json:"project_code"`
	Locations   []LocationQuantity `json:"locations"`
}

type AllocateStockInput struct {
	InventoryID    string                   `json:"inventory_id" binding:"required"`
	AllocationDate time.Time                `json:"allocation_date"`
	Remarks        string                   `json:"remarks"`
	Projects       []ProjectAllocationInput `json:"project_allocations" binding:"required"`
}

// LocationStock one partition with its reserved and free parts.
type LocationStock struct {
	Location  string `json:"location"`
	Stock     int    `json:"stock"`
	Allocated int    `json:"allocated"`
	Free      int    `json:"free"`
}

type StockStatus struct {
	InventoryID    string          `json:"inventory_id"`
	ItemNo         string          `json:"item_no"`
	TotalStock     int             `json:"total_stock"`
	AllocatedStock int             `json:"allocated_stock"`
	AvailableStock int             `json:"available_stock"`
	Locations      []LocationStock `json:"locations"`
}

func stockStatus(inv *entity.Inventory, allocatedAt map[string]int) *StockStatus {
	st := &StockStatus{
		InventoryID:    inv.ID,
		ItemNo:         inv.ItemNo,
		TotalStock:     inv.TotalStock,
		AllocatedStock: inv.AllocatedStock,
		AvailableStock: inv.AvailableStock,
	}
	for _, loc := range entity.Locations {
		stock := inv.StockAt(loc)
		st.Locations = append(st.Locations, LocationStock{
			Location:  loc,
			Stock:     stock,
			Allocated: allocatedAt[loc],
			Free:      stock - allocatedAt[loc],
		})
	}
	return st
}

// AllocateStock reserves stock per project and location. A shortfall at any
// location fails the whole command.
func (s *InventoryService) AllocateStock(ctx context.Context, operator string, in *AllocateStockInput) (*StockStatus, error) {
	if len(in.Projects) == 0 {
		return nil, apperr.Validation("no project allocations", "project_allocations")
	}
	date := in.AllocationDate
	if date.IsZero() {
		date = today(time.Now())
	}

	var out *StockStatus
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		inv, err := r.Inventory.LockByID(ctx, in.InventoryID)
		if err != nil {
			return orNotFound(err, "inventory", in.InventoryID)
		}
		allocatedAt, err := r.Inventory.AllocatedAt(ctx, inv.ID)
		if err != nil {
			return err
		}

		for _, pa := range in.Projects {
			code := strings.TrimSpace(pa.ProjectCode)
			project, err := r.Project.FindByCode(ctx, code)
			if err != nil {
				return orNotFound(err, "project", code)
			}
			alloc := &entity.StockAllocation{
				InventoryID:    inv.ID,
				ProjectID:      project.ID,
				ProjectCode:    project.ProjectCode,
				Status:         entity.AllocationStatusAllocated,
				AllocationDate: date,
				Remarks:        in.Remarks,
				AllocatedBy:    operator,
			}
			for _, lq := range pa.Locations {
				if !entity.ValidLocation(lq.Location) {
					return apperr.Validation("unknown location "+lq.Location, "location")
				}
				if lq.Quantity < 0 {
					return apperr.Validation("quantity must not be negative", "quantity")
				}
				if lq.Quantity == 0 {
					continue
				}
				if free := inv.StockAt(lq.Location) - allocatedAt[lq.Location]; lq.Quantity > free {
					return apperr.InsufficientStock(lq.Location, lq.Quantity-free,
						fmt.Sprintf("only %d unallocated at %s", max(free, 0), lq.Location))
				}
				allocatedAt[lq.Location] += lq.Quantity
				alloc.AllocatedQuantity += lq.Quantity
				alloc.LocationAllocations = append(alloc.LocationAllocations, entity.LocationWiseAllocation{
					Location: lq.Location,
					Quantity: lq.Quantity,
				})
			}
			if alloc.AllocatedQuantity <= 0 {
				return apperr.Validation("allocation total must be positive for "+code, "quantity")
			}
			if err := r.Inventory.CreateAllocation(ctx, alloc); err != nil {
				return err
			}
		}

		if err := settle(ctx, r, inv); err != nil {
			return err
		}
		out = stockStatus(inv, allocatedAt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.InventoryListKey)
	s.logger.Info("stock allocated", zap.String("inventory", out.ItemNo), zap.Int("allocated", out.AllocatedStock))
	return out, nil
}

type ReallocateStockInput struct {
	AllocationID  string `json:"allocation_id" binding:"required"`
	Location      string `json:"location" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required"`
	ToProjectCode string `json:"to_project_code" binding:"required"`
	Remarks       string `json:"remarks"`
}

// ReallocateStock moves part of an untouched allocation at one location to
// another project. The new allocation points back at its source.
func (s *InventoryService) ReallocateStock(ctx context.Context, operator string, in *ReallocateStockInput) (*entity.StockAllocation, error) {
	if in.Quantity <= 0 {
		return nil, apperr.Validation("quantity must be positive", "quantity")
	}
	if !entity.ValidLocation(in.Location) {
		return nil, apperr.Validation("unknown location "+in.Location, "location")
	}

	var out *entity.StockAllocation
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		inv, src, err := s.lockAllocation(ctx, r, in.AllocationID)
		if err != nil {
			return err
		}
		if err := s.untouched(ctx, r, src, "reallocate"); err != nil {
			return err
		}
		target, err := r.Project.FindByCode(ctx, strings.TrimSpace(in.ToProjectCode))
		if err != nil {
			return orNotFound(err, "project", in.ToProjectCode)
		}
		if target.ProjectCode == src.ProjectCode {
			return apperr.Validation("target project equals source project", "to_project_code")
		}

		var row *entity.LocationWiseAllocation
		for i := range src.LocationAllocations {
			if src.LocationAllocations[i].Location == in.Location {
				row = &src.LocationAllocations[i]
				break
			}
		}
		if row == nil || row.Quantity < in.Quantity {
			have := 0
			if row != nil {
				have = row.Quantity
			}
			return apperr.InsufficientStock(in.Location, in.Quantity-have, "allocation holds less at this location")
		}

		if err := r.Inventory.SetLocationQuantity(ctx, row.ID, row.Quantity-in.Quantity); err != nil {
			return err
		}
		src.AllocatedQuantity -= in.Quantity
		if src.AllocatedQuantity == 0 {
			now := time.Now()
			src.Status = entity.AllocationStatusCancelled
			src.CancelledAt = &now
		}
		if err := r.Inventory.SaveAllocationQuantity(ctx, src); err != nil {
			return err
		}

		parent := src.ID
		out = &entity.StockAllocation{
			InventoryID:        inv.ID,
			ProjectID:          target.ID,
			ProjectCode:        target.ProjectCode,
			AllocatedQuantity:  in.Quantity,
			Status:             entity.AllocationStatusAllocated,
			ParentAllocationID: &parent,
			AllocationDate:     today(time.Now()),
			Remarks:            in.Remarks,
			AllocatedBy:        operator,
			LocationAllocations: []entity.LocationWiseAllocation{
				{Location: in.Location, Quantity: in.Quantity},
			},
		}
		if err := r.Inventory.CreateAllocation(ctx, out); err != nil {
			return err
		}
		return settle(ctx, r, inv)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.InventoryListKey)
	return out, nil
}

// CancelAllocation releases an allocation that has no outwards.
func (s *InventoryService) CancelAllocation(ctx context.Context, allocationID string) (*StockStatus, error) {
	var out *StockStatus
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		inv, a, err := s.lockAllocation(ctx, r, allocationID)
		if err != nil {
			return err
		}
		if err := s.untouched(ctx, r, a, entity.AllocationStatusCancelled); err != nil {
			return err
		}
		now := time.Now()
		a.Status = entity.AllocationStatusCancelled
		a.CancelledAt = &now
		if err := r.Inventory.SaveAllocationQuantity(ctx, a); err != nil {
			return err
		}
		if err := settle(ctx, r, inv); err != nil {
			return err
		}
		allocatedAt, err := r.Inventory.AllocatedAt(ctx, inv.ID)
		if err != nil {
			return err
		}
		out = stockStatus(inv, allocatedAt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.InventoryListKey)
	return out, nil
}

// lockAllocation locks the owning inventory before the allocation so it
// queues behind outwards in the same order they take locks.
func (s *InventoryService) lockAllocation(ctx context.Context, r *repository.Repositories, id string) (*entity.Inventory, *entity.StockAllocation, error) {
	a, err := r.Inventory.FindAllocation(ctx, id)
	if err != nil {
		return nil, nil, orNotFound(err, "allocation", id)
	}
	inv, err := r.Inventory.LockByID(ctx, a.InventoryID)
	if err != nil {
		return nil, nil, orNotFound(err, "inventory", a.InventoryID)
	}
	a, err = r.Inventory.LockAllocation(ctx, id)
	if err != nil {
		return nil, nil, orNotFound(err, "allocation", id)
	}
	return inv, a, nil
}

func (s *InventoryService) untouched(ctx context.Context, r *repository.Repositories, a *entity.StockAllocation, action string) error {
	if a.Status != entity.AllocationStatusAllocated {
		return apperr.InvalidTransition("allocation", a.Status, action)
	}
	n, err := r.Inventory.CountOutwards(ctx, a.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.InvalidTransition("allocation", "outwarded", action)
	}
	return nil
}

// settle recomputes the derived columns from the partitions and the active
// allocations, checks them and writes the row.
func settle(ctx context.Context, r *repository.Repositories, inv *entity.Inventory) error {
	allocated, err := r.Inventory.ActiveAllocated(ctx, inv.ID)
	if err != nil {
		return err
	}
	inv.Recompute(allocated)
	if err := inv.Validate(); err != nil {
		return apperr.InvariantViolation(err.Error())
	}
	return r.Inventory.SaveStock(ctx, inv)
}

// lockInventories locks every id once, in sorted order.
func (s *InventoryService) lockInventories(ctx context.Context, r *repository.Repositories, ids []string) (map[string]*entity.Inventory, []string, error) {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	order := sortedKeys(set)
	out := make(map[string]*entity.Inventory, len(order))
	for _, id := range order {
		inv, err := r.Inventory.LockByID(ctx, id)
		if err != nil {
			return nil, nil, orNotFound(err, "inventory", id)
		}
		out[id] = inv
	}
	return out, order, nil
}

// === Outward ===

type OutwardItem struct {
	InventoryID        string         `json:"inventory_id"`
	ProjectCode        string         `json:"project_code"`
	LocationQuantities map[string]int `json:"location_quantities"`
	OutwardType        string         `json:"outward_type"`
}

type OutwardInput struct {
	Items          []OutwardItem `json:"outward_items" binding:"required"`
	DocumentType   string        `json:"document_type"`
	DocumentNumber string        `json:"document_number"`
	Remarks        string        `json:"remarks"`
}

func (in *OutwardInput) validate() error {
	if len(in.Items) == 0 {
		return apperr.Validation("no outward items", "outward_items")
	}
	for i := range in.Items {
		it := &in.Items[i]
		if it.InventoryID == "" {
			return apperr.Validation("inventory_id is required", "inventory_id")
		}
		switch it.OutwardType {
		case "":
			it.OutwardType = entity.OutwardTypeAvailable
		case entity.OutwardTypeAvailable, entity.OutwardTypeAllocated:
		default:
			return apperr.Validation("outward_type must be allocated or available", "outward_type")
		}
		if it.OutwardType == entity.OutwardTypeAllocated && strings.TrimSpace(it.ProjectCode) == "" {
			return apperr.Validation("project_code is required for allocated outward", "project_code")
		}
		total := 0
		for loc, q := range it.LocationQuantities {
			if !entity.ValidLocation(loc) {
				return apperr.Validation("unknown location "+loc, "location_quantities")
			}
			if q < 0 {
				return apperr.Validation("quantity must not be negative", "location_quantities")
			}
			total += q
		}
		if total == 0 {
			return apperr.Validation("outward quantity must be positive", "location_quantities")
		}
	}
	return nil
}

// Outward removes stock in one transaction.
func (s *InventoryService) Outward(ctx context.Context, operator string, in *OutwardInput) ([]entity.StockOutward, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out []entity.StockOutward
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		var err error
		out, err = s.outward(ctx, r, operator, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.InventoryListKey)
	return out, nil
}

// outward runs inside the caller's transaction; in must be validated.
// Allocated outwards consume the project's allocations at the location
// oldest first. When the project holds nothing there the line falls back to
// unallocated stock.
func (s *InventoryService) outward(ctx context.Context, r *repository.Repositories, operator string, in *OutwardInput) ([]entity.StockOutward, error) {
	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.InventoryID)
	}
	invs, order, err := s.lockInventories(ctx, r, ids)
	if err != nil {
		return nil, err
	}
	allocatedAt := make(map[string]map[string]int, len(invs))
	for _, id := range order {
		m, err := r.Inventory.AllocatedAt(ctx, id)
		if err != nil {
			return nil, err
		}
		allocatedAt[id] = m
	}
	allocs := map[string]*entity.StockAllocation{}

	var outwards []entity.StockOutward
	record := func(o entity.StockOutward) error {
		if err := r.Inventory.CreateOutward(ctx, &o); err != nil {
			return err
		}
		outwards = append(outwards, o)
		return nil
	}

	for _, it := range in.Items {
		inv := invs[it.InventoryID]
		reserved := allocatedAt[inv.ID]
		project := strings.TrimSpace(it.ProjectCode)
		for _, loc := range entity.Locations {
			qty := it.LocationQuantities[loc]
			if qty == 0 {
				continue
			}
			stock := inv.StockAt(loc)
			if stock < qty {
				return nil, apperr.InsufficientStock(loc, qty-stock,
					fmt.Sprintf("%s has %d at %s", inv.ItemNo, stock, loc))
			}
			base := entity.StockOutward{
				InventoryID:    inv.ID,
				ProjectCode:    project,
				Location:       loc,
				RequestedType:  it.OutwardType,
				DocumentType:   in.DocumentType,
				DocumentNumber: in.DocumentNumber,
				Remarks:        in.Remarks,
				OutwardBy:      operator,
			}

			typ := it.OutwardType
			var rows []entity.LocationWiseAllocation
			if typ == entity.OutwardTypeAllocated {
				rows, err = r.Inventory.ProjectAllocationsAt(ctx, inv.ID, project, loc)
				if err != nil {
					return nil, err
				}
				held := 0
				for _, row := range rows {
					held += row.Quantity
				}
				switch {
				case held == 0:
					s.logger.Warn("no allocation for allocated outward, using unallocated stock",
						zap.String("item_no", inv.ItemNo), zap.String("project", project), zap.String("location", loc))
					typ = entity.OutwardTypeAvailable
				case held < qty:
					return nil, apperr.InsufficientStock(loc, qty-held,
						fmt.Sprintf("%s allocated %d to %s at %s", inv.ItemNo, held, project, loc))
				}
			}

			if typ == entity.OutwardTypeAvailable {
				if free := stock - reserved[loc]; qty > free {
					return nil, apperr.InsufficientStock(loc, qty-free,
						fmt.Sprintf("%s has %d unallocated at %s", inv.ItemNo, max(free, 0), loc))
				}
				o := base
				o.Quantity = qty
				o.OutwardType = entity.OutwardTypeAvailable
				if err := record(o); err != nil {
					return nil, err
				}
			} else {
				remaining := qty
				for _, row := range rows {
					if remaining == 0 {
						break
					}
					take := min(row.Quantity, remaining)
					if err := r.Inventory.SetLocationQuantity(ctx, row.ID, row.Quantity-take); err != nil {
						return nil, err
					}
					a, ok := allocs[row.StockAllocationID]
					if !ok {
						if a, err = r.Inventory.LockAllocation(ctx, row.StockAllocationID); err != nil {
							return nil, orNotFound(err, "allocation", row.StockAllocationID)
						}
						allocs[a.ID] = a
					}
					a.AllocatedQuantity -= take
					a.Status = a.StatusAfterOutward()
					if err := r.Inventory.SaveAllocationQuantity(ctx, a); err != nil {
						return nil, err
					}
					allocID := a.ID
					o := base
					o.Quantity = take
					o.OutwardType = entity.OutwardTypeAllocated
					o.StockAllocationID = &allocID
					if err := record(o); err != nil {
						return nil, err
					}
					reserved[loc] -= take
					remaining -= take
				}
			}

			if err := inv.AddStock(loc, -qty); err != nil {
				return nil, apperr.InsufficientStock(loc, qty-stock, err.Error())
			}
		}
	}

	for _, id := range order {
		if err := settle(ctx, r, invs[id]); err != nil {
			return nil, err
		}
	}
	return outwards, nil
}

// === Queries ===

// ListInventory the unfiltered list is cached.
func (s *InventoryService) ListInventory(ctx context.Context, search string) ([]entity.Inventory, error) {
	search = strings.TrimSpace(search)
	if search != "" {
		return s.repos.Inventory.List(ctx, search)
	}
	return cache.Remember(ctx, s.cache, cache.InventoryListKey, s.cache.TTL.Inventory, func() ([]entity.Inventory, error) {
		return s.repos.Inventory.List(ctx, "")
	})
}

func (s *InventoryService) GetInventory(ctx context.Context, id string) (*entity.Inventory, error) {
	inv, err := s.repos.Inventory.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "inventory", id)
	}
	return inv, nil
}

// StockStatus partitions of one inventory with reserved and free quantities.
func (s *InventoryService) StockStatus(ctx context.Context, id string) (*StockStatus, error) {
	inv, err := s.GetInventory(ctx, id)
	if err != nil {
		return nil, err
	}
	allocatedAt, err := s.repos.Inventory.AllocatedAt(ctx, id)
	if err != nil {
		return nil, err
	}
	return stockStatus(inv, allocatedAt), nil
}

func (s *InventoryService) ListAllocations(ctx context.Context, inventoryID string, activeOnly bool) ([]entity.StockAllocation, error) {
	return s.repos.Inventory.ListAllocations(ctx, inventoryID, activeOnly)
}

func (s *InventoryService) ListOutwards(ctx context.Context, inventoryID string) ([]entity.StockOutward, error) {
	return s.repos.Inventory.ListOutwards(ctx, inventoryID)
}

// freeAt unallocated stock of inv at loc.
func freeAt(ctx context.Context, r *repository.Repositories, inv *entity.Inventory, loc string) (int, error) {
	allocatedAt, err := r.Inventory.AllocatedAt(ctx, inv.ID)
	if err != nil {
		return 0, err
	}
	return inv.StockAt(loc) - allocatedAt[loc], nil
}
