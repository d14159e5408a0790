package entity

import (
	"fmt"
	"time"
)

// Storage locations
const (
	LocationTimesSq = "times_sq"
	LocationISq     = "i_sq"
	LocationSakar   = "sakar"
	LocationPirana  = "pirana"
	LocationOther   = "other"
)

// Locations in display order.
var Locations = []string{LocationTimesSq, LocationISq, LocationSakar, LocationPirana, LocationOther}

func ValidLocation(loc string) bool {
	for _, l := range Locations {
		if l == loc {
			return true
		}
	}
	return false
}

// Inventory per-item stock split by location. Derived columns are written
// only by Recompute.
type Inventory struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	ItemNo        string `json:"item_no" gorm:"size:32;uniqueIndex;not null"`
	Description   string `json:"description" gorm:"type:text"`
	Make          string `json:"make" gorm:"size:200"`
	MaterialGroup string `json:"material_group" gorm:"size:200"`
	MfgPartNo     string `json:"mfg_part_no" gorm:"size:200"`

	TimesSqStock int `json:"times_sq_stock" gorm:"not null;default:0"`
	ISqStock     int `json:"i_sq_stock" gorm:"column:i_sq_stock;not null;default:0"`
	SakarStock   int `json:"sakar_stock" gorm:"not null;default:0"`
	PiranaStock  int `json:"pirana_stock" gorm:"not null;default:0"`
	OtherStock   int `json:"other_stock" gorm:"not null;default:0"`

	AllocatedStock int `json:"allocated_stock" gorm:"not null;default:0"`
	AvailableStock int `json:"available_stock" gorm:"not null;default:0"`
	TotalStock     int `json:"total_stock" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Inventory) TableName() string { return "pms_inventories" }

func (i *Inventory) partition(loc string) *int {
	switch loc {
	case LocationTimesSq:
		return &i.TimesSqStock
	case LocationISq:
		return &i.ISqStock
	case LocationSakar:
		return &i.SakarStock
	case LocationPirana:
		return &i.PiranaStock
	case LocationOther:
		return &i.OtherStock
	}
	return nil
}

// StockAt returns the partition size of loc.
func (i *Inventory) StockAt(loc string) int {
	if p := i.partition(loc); p != nil {
		return *p
	}
	return 0
}

// AddStock moves a partition by delta; it refuses to go negative.
func (i *Inventory) AddStock(loc string, delta int) error {
	p := i.partition(loc)
	if p == nil {
		return fmt.Errorf("unknown location %q", loc)
	}
	if *p+delta < 0 {
		return fmt.Errorf("location %s would go negative (%d%+d)", loc, *p, delta)
	}
	*p += delta
	return nil
}

// Recompute sets total, allocated and available from the partitions and the
// active allocation sum.
func (i *Inventory) Recompute(allocated int) {
	i.TotalStock = i.TimesSqStock + i.ISqStock + i.SakarStock + i.PiranaStock + i.OtherStock
	i.AllocatedStock = allocated
	i.AvailableStock = i.TotalStock - allocated
}

// Validate checks the stored numbers are consistent and non-negative.
func (i *Inventory) Validate() error {
	for _, loc := range Locations {
		if i.StockAt(loc) < 0 {
			return fmt.Errorf("inventory %s: %s stock is negative", i.ItemNo, loc)
		}
	}
	sum := i.TimesSqStock + i.ISqStock + i.SakarStock + i.PiranaStock + i.OtherStock
	if i.TotalStock != sum {
		return fmt.Errorf("inventory %s: total %d != partitions %d", i.ItemNo, i.TotalStock, sum)
	}
	if i.AllocatedStock < 0 || i.AvailableStock < 0 {
		return fmt.Errorf("inventory %s: allocated %d available %d", i.ItemNo, i.AllocatedStock, i.AvailableStock)
	}
	if i.AvailableStock != i.TotalStock-i.AllocatedStock {
		return fmt.Errorf("inventory %s: available %d != total %d - allocated %d", i.ItemNo, i.AvailableStock, i.TotalStock, i.AllocatedStock)
	}
	return nil
}

// Allocation statuses
const (
	AllocationStatusAllocated        = "allocated"
	AllocationStatusPartiallyOutward = "partially_outward"
	AllocationStatusFullyOutward     = "fully_outward"
	AllocationStatusCancelled        = "cancelled"
)

// ActiveAllocationStatuses still reserve stock.
var ActiveAllocationStatuses = []string{AllocationStatusAllocated, AllocationStatusPartiallyOutward}

// StockAllocation reservation of inventory for a project
type StockAllocation struct {
	ID                 string     `json:"id" gorm:"primaryKey;size:32"`
	InventoryID        string     `json:"inventory_id" gorm:"size:32;not null;index"`
	ProjectID          string     `json:"project_id" gorm:"size:32;not null"`
	ProjectCode        string     `json:"project_code" gorm:"size:50;not null;index"`
	AllocatedQuantity  int        `json:"allocated_quantity" gorm:"not null"`
	Status             string     `json:"status" gorm:"size:20;not null;index"`
	ParentAllocationID *string    `json:"parent_allocation_id" gorm:"size:32;index"`
	AllocationDate     time.Time  `json:"allocation_date" gorm:"type:date"`
	Remarks            string     `json:"remarks" gorm:"type:text"`
	AllocatedBy        string     `json:"allocated_by" gorm:"size:200"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	LocationAllocations []LocationWiseAllocation `json:"location_allocations,omitempty" gorm:"foreignKey:StockAllocationID"`
}

func (StockAllocation) TableName() string { return "pms_stock_allocations" }

// StatusAfterOutward is the status once allocated_quantity has been reduced.
func (a *StockAllocation) StatusAfterOutward() string {
	if a.AllocatedQuantity <= 0 {
		return AllocationStatusFullyOutward
	}
	return AllocationStatusPartiallyOutward
}

// LocationWiseAllocation quantities sum to the parent's allocated_quantity
type LocationWiseAllocation struct {
	ID                string    `json:"id" gorm:"primaryKey;size:32"`
	StockAllocationID string    `json:"stock_allocation_id" gorm:"size:32;not null;index"`
	Location          string    `json:"location" gorm:"size:20;not null"`
	Quantity          int       `json:"quantity" gorm:"not null"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (LocationWiseAllocation) TableName() string { return "pms_location_wise_allocations" }

// Outward types
const (
	OutwardTypeAllocated = "allocated"
	OutwardTypeAvailable = "available"
)

type StockOutward struct {
	ID                string    `json:"id" gorm:"primaryKey;size:32"`
	InventoryID       string    `json:"inventory_id" gorm:"size:32;not null;index"`
	ProjectCode       string    `json:"project_code" gorm:"size:50;index"`
	Quantity          int       `json:"quantity" gorm:"not null"`
	Location          string    `json:"location" gorm:"size:20;not null"`
	OutwardType       string    `json:"outward_type" gorm:"size:20;not null"`
	RequestedType     string    `json:"requested_type" gorm:"size:20"`
	DocumentType      string    `json:"document_type" gorm:"size:50"`
	DocumentNumber    string    `json:"document_number" gorm:"size:100;index"`
	StockAllocationID *string   `json:"stock_allocation_id" gorm:"size:32;index"`
	Remarks           string    `json:"remarks" gorm:"type:text"`
	OutwardBy         string    `json:"outward_by" gorm:"size:200"`
	CreatedAt         time.Time `json:"created_at"`
}

func (StockOutward) TableName() string { return "pms_stock_outwards" }
