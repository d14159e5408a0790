package entity

import (
	"fmt"
	"time"
)

// DeliveryChallan rendered outward document
type DeliveryChallan struct {
	ID               string    `json:"id" gorm:"primaryKey;size:32"`
	DocumentNumber   string    `json:"document_number" gorm:"size:100;uniqueIndex;not null"`
	ChallanDate      time.Time `json:"challan_date" gorm:"type:date"`
	ProjectCode      string    `json:"project_code" gorm:"size:50;index"`
	ConsigneeName    string    `json:"consignee_name" gorm:"size:200;not null"`
	ConsigneeAddress string    `json:"consignee_address" gorm:"type:text"`
	ConsigneeGSTIN   string    `json:"consignee_gstin" gorm:"size:20"`
	VehicleNo        string    `json:"vehicle_no" gorm:"size:30"`
	TransporterName  string    `json:"transporter_name" gorm:"size:200"`
	Remarks          string    `json:"remarks" gorm:"type:text"`
	DocumentPath     string    `json:"document_path" gorm:"size:500"`
	CreatedBy        string    `json:"created_by" gorm:"size:200"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Items []DeliveryChallanItem `json:"items,omitempty" gorm:"foreignKey:DeliveryChallanID"`
}

func (DeliveryChallan) TableName() string { return "pms_delivery_challans" }

// TotalQuantity over all items.
func (d *DeliveryChallan) TotalQuantity() int {
	n := 0
	for _, it := range d.Items {
		n += it.Quantity
	}
	return n
}

type DeliveryChallanItem struct {
	ID                string    `json:"id" gorm:"primaryKey;size:32"`
	DeliveryChallanID string    `json:"delivery_challan_id" gorm:"size:32;not null;index"`
	InventoryID       string    `json:"inventory_id" gorm:"size:32"`
	StockOutwardID    string    `json:"stock_outward_id" gorm:"size:32"`
	ItemNo            string    `json:"item_no" gorm:"size:32;not null"`
	Description       string    `json:"description" gorm:"type:text"`
	Make              string    `json:"make" gorm:"size:200"`
	UOM               string    `json:"uom" gorm:"size:20"`
	Location          string    `json:"location" gorm:"size:20"`
	Quantity          int       `json:"quantity" gorm:"not null"`
	CreatedAt         time.Time `json:"created_at"`
}

func (DeliveryChallanItem) TableName() string { return "pms_delivery_challan_items" }

// Gate pass types
const (
	GatePassTypeOutward          = "outward"
	GatePassTypeInternalTransfer = "internal_transfer"
)

// Gate pass statuses
const (
	GatePassStatusIssued            = "issued"
	GatePassStatusPartiallyReturned = "partially_returned"
	GatePassStatusFullyReturned     = "fully_returned"
	GatePassStatusOverdue           = "overdue"
)

// ReturnableGatePass outward with an expected return
type ReturnableGatePass struct {
	ID                 string    `json:"id" gorm:"primaryKey;size:32"`
	GatePassNumber     string    `json:"gate_pass_number" gorm:"size:20;uniqueIndex;not null"`
	PassType           string    `json:"pass_type" gorm:"size:20;not null"`
	IssuedTo           string    `json:"issued_to" gorm:"size:200;not null"`
	ProjectCode        string    `json:"project_code" gorm:"size:50"`
	FromLocation       string    `json:"from_location" gorm:"size:20;not null"`
	ToLocation         string    `json:"to_location" gorm:"size:20"`
	IssueDate          time.Time `json:"issue_date" gorm:"type:date;not null"`
	ExpectedReturnDate time.Time `json:"expected_return_date" gorm:"type:date;not null;index"`
	Status             string    `json:"status" gorm:"size:20;not null;index"`
	Purpose            string    `json:"purpose" gorm:"type:text"`
	DocumentPath       string    `json:"document_path" gorm:"size:500"`
	IssuedBy           string    `json:"issued_by" gorm:"size:200"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	Items []ReturnableGatePassItem `json:"items,omitempty" gorm:"foreignKey:GatePassID"`
}

func (ReturnableGatePass) TableName() string { return "pms_returnable_gate_passes" }

// StatusAfterReturn derives the status from the returned quantities.
func (g *ReturnableGatePass) StatusAfterReturn(today time.Time) string {
	total, returned := 0, 0
	for _, it := range g.Items {
		total += it.Quantity
		returned += it.ReturnedQuantity
	}
	switch {
	case returned >= total:
		return GatePassStatusFullyReturned
	case g.IsOverdue(today):
		return GatePassStatusOverdue
	case returned > 0:
		return GatePassStatusPartiallyReturned
	default:
		return GatePassStatusIssued
	}
}

// IsOverdue true when the expected date is before today's date.
func (g *ReturnableGatePass) IsOverdue(today time.Time) bool {
	y, m, d := today.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	return g.ExpectedReturnDate.Before(start)
}

type ReturnableGatePassItem struct {
	ID               string    `json:"id" gorm:"primaryKey;size:32"`
	GatePassID       string    `json:"gate_pass_id" gorm:"size:32;not null;index"`
	InventoryID      string    `json:"inventory_id" gorm:"size:32;not null"`
	ItemNo           string    `json:"item_no" gorm:"size:32;not null"`
	Description      string    `json:"description" gorm:"type:text"`
	Quantity         int       `json:"quantity" gorm:"not null"`
	ReturnedQuantity int       `json:"returned_quantity" gorm:"not null;default:0"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (ReturnableGatePassItem) TableName() string { return "pms_returnable_gate_pass_items" }

// Outstanding quantity not yet returned.
func (i ReturnableGatePassItem) Outstanding() int { return i.Quantity - i.ReturnedQuantity }

type ReturnableGatePassReturn struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	GatePassID string    `json:"gate_pass_id" gorm:"size:32;not null;index"`
	ReturnDate time.Time `json:"return_date" gorm:"type:date;not null"`
	ReceivedBy string    `json:"received_by" gorm:"size:200"`
	Remarks    string    `json:"remarks" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`

	Items []ReturnableGatePassReturnItem `json:"items,omitempty" gorm:"foreignKey:ReturnID"`
}

func (ReturnableGatePassReturn) TableName() string { return "pms_returnable_gate_pass_returns" }

type ReturnableGatePassReturnItem struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	ReturnID       string    `json:"return_id" gorm:"size:32;not null;index"`
	GatePassItemID string    `json:"gate_pass_item_id" gorm:"size:32;not null"`
	Quantity       int       `json:"quantity" gorm:"not null"`
	Location       string    `json:"location" gorm:"size:20;not null"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ReturnableGatePassReturnItem) TableName() string { return "pms_returnable_gate_pass_return_items" }

// Rejected material actions
const (
	RejectedActionAddBack = "add_back"
	RejectedActionDiscard = "discard"
)

// RejectedMaterialReturn client return against a delivery challan
type RejectedMaterialReturn struct {
	ID                string    `json:"id" gorm:"primaryKey;size:32"`
	DeliveryChallanID string    `json:"delivery_challan_id" gorm:"size:32;not null;index"`
	ChallanNumber     string    `json:"challan_number" gorm:"size:100"`
	ClientName        string    `json:"client_name" gorm:"size:200;not null"`
	ReturnDate        time.Time `json:"return_date" gorm:"type:date;not null"`
	Reason            string    `json:"reason" gorm:"type:text"`
	ActionTaken       string    `json:"action_taken" gorm:"size:200"`
	CreatedBy         string    `json:"created_by" gorm:"size:200"`
	CreatedAt         time.Time `json:"created_at"`

	Items []RejectedMaterialReturnItem `json:"items,omitempty" gorm:"foreignKey:ReturnID"`
}

func (RejectedMaterialReturn) TableName() string { return "pms_rejected_material_returns" }

// SummarizeActions builds action_taken from the items.
func (r *RejectedMaterialReturn) SummarizeActions() string {
	added, discarded := 0, 0
	for _, it := range r.Items {
		switch it.Action {
		case RejectedActionAddBack:
			added += it.Quantity
		case RejectedActionDiscard:
			discarded += it.Quantity
		}
	}
	return fmt.Sprintf("Added back: %d, Discarded: %d", added, discarded)
}

type RejectedMaterialReturnItem struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	ReturnID    string    `json:"return_id" gorm:"size:32;not null;index"`
	InventoryID string    `json:"inventory_id" gorm:"size:32;not null"`
	ItemNo      string    `json:"item_no" gorm:"size:32"`
	Quantity    int       `json:"quantity" gorm:"not null"`
	Action      string    `json:"action" gorm:"size:20;not null"`
	Location    string    `json:"location" gorm:"size:20"`
	CreatedAt   time.Time `json:"created_at"`
}

func (RejectedMaterialReturnItem) TableName() string { return "pms_rejected_material_return_items" }
