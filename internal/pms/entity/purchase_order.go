package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vendor supplier registry
type Vendor struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	VendorCode    string    `json:"vendor_code" gorm:"size:32;uniqueIndex;not null"`
	Name          string    `json:"name" gorm:"size:200;not null"`
	Email         string    `json:"email" gorm:"size:200"`
	ContactPerson string    `json:"contact_person" gorm:"size:100"`
	Phone         string    `json:"phone" gorm:"size:30"`
	GSTIN         string    `json:"gstin" gorm:"size:20"`
	PAN           string    `json:"pan" gorm:"size:20"`
	Address       string    `json:"address" gorm:"type:text"`
	Status        string    `json:"status" gorm:"size:20;default:active"`
	CreatedBy     string    `json:"created_by" gorm:"size:200"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Documents []VendorDocument `json:"documents,omitempty" gorm:"foreignKey:VendorID"`
}

func (Vendor) TableName() string { return "pms_vendors" }

type VendorDocument struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	VendorID   string    `json:"vendor_id" gorm:"size:32;not null;index"`
	Field      string    `json:"field" gorm:"size:50;not null"`
	FileName   string    `json:"file_name" gorm:"size:200"`
	Path       string    `json:"path" gorm:"size:500;not null"`
	UploadedBy string    `json:"uploaded_by" gorm:"size:200"`
	CreatedAt  time.Time `json:"created_at"`
}

func (VendorDocument) TableName() string { return "pms_vendor_documents" }

// PO inward statuses
const (
	InwardStatusOpen              = "open"
	InwardStatusPartiallyInwarded = "partially_inwarded"
	InwardStatusCompleted         = "completed"
)

// PurchaseOrder mutable only through approval and inward activity
type PurchaseOrder struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	PONumber      string `json:"po_number" gorm:"size:50;uniqueIndex;not null"`
	ProjectCode   string `json:"project_code" gorm:"size:50;index"`
	VendorID      string `json:"vendor_id" gorm:"size:32;index"`
	VendorName    string `json:"vendor_name" gorm:"size:200;not null"`
	VendorEmail   string `json:"vendor_email" gorm:"size:200"`
	VendorAddress string `json:"vendor_address" gorm:"type:text"`
	VendorGSTIN   string `json:"vendor_gstin" gorm:"size:20"`
	BillTo        string `json:"bill_to" gorm:"type:text"`
	ShipTo        string `json:"ship_to" gorm:"type:text"`

	PODate        time.Time       `json:"po_date"`
	Currency      string          `json:"currency" gorm:"size:10;default:INR"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:decimal(15,2);not null;default:0"`
	PaymentTerms  string          `json:"payment_terms" gorm:"size:200"`
	DeliveryTerms string          `json:"delivery_terms" gorm:"size:200"`
	Warranty      string          `json:"warranty" gorm:"size:200"`
	Notes         string          `json:"notes" gorm:"type:text"`

	InwardStatus          string `json:"inward_status" gorm:"size:20;not null;default:open;index"`
	TotalInwardedQuantity int    `json:"total_inwarded_quantity" gorm:"not null;default:0"`

	ApprovalStatus   bool       `json:"approval_status" gorm:"not null;default:false"`
	ApprovalDate     *time.Time `json:"approval_date"`
	ApprovedBy       string     `json:"approved_by" gorm:"size:200"`
	RejectionStatus  bool       `json:"rejection_status" gorm:"not null;default:false"`
	RejectionRemarks string     `json:"rejection_remarks" gorm:"type:text"`
	DocumentPath     string     `json:"document_path" gorm:"size:500"`

	CreatedBy string    `json:"created_by" gorm:"size:200"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LineItems []POLineItem `json:"line_items,omitempty" gorm:"foreignKey:PurchaseOrderID"`
}

func (PurchaseOrder) TableName() string { return "pms_purchase_orders" }

// POLineItem 0 <= inwarded_quantity <= quantity
type POLineItem struct {
	ID               string          `json:"id" gorm:"primaryKey;size:32"`
	PurchaseOrderID  string          `json:"purchase_order_id" gorm:"size:32;not null;index"`
	MasterID         string          `json:"master_id" gorm:"size:32;index"`
	ItemNo           string          `json:"item_no" gorm:"size:32;not null"`
	Description      string          `json:"description" gorm:"type:text"`
	Make             string          `json:"make" gorm:"size:200"`
	MaterialGroup    string          `json:"material_group" gorm:"size:200"`
	HSNCode          string          `json:"hsn_code" gorm:"size:20"`
	UOM              string          `json:"uom" gorm:"size:20"`
	Quantity         int             `json:"quantity" gorm:"not null"`
	UnitPrice        decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,4);not null;default:0"`
	TotalPrice       decimal.Decimal `json:"total_price" gorm:"type:decimal(15,2);not null;default:0"`
	InwardedQuantity int             `json:"inwarded_quantity" gorm:"not null;default:0"`
	SortOrder        int             `json:"sort_order" gorm:"default:0"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (POLineItem) TableName() string { return "pms_po_line_items" }

// Remaining quantity still expected on the line.
func (l POLineItem) Remaining() int { return l.Quantity - l.InwardedQuantity }

// AggregateInwardStatus derives the PO status and inwarded total from its lines.
func AggregateInwardStatus(lines []POLineItem) (string, int) {
	total := 0
	complete, started := true, false
	for _, l := range lines {
		total += l.InwardedQuantity
		if l.InwardedQuantity > 0 {
			started = true
		}
		if l.InwardedQuantity < l.Quantity {
			complete = false
		}
	}
	switch {
	case len(lines) > 0 && complete:
		return InwardStatusCompleted, total
	case started:
		return InwardStatusPartiallyInwarded, total
	default:
		return InwardStatusOpen, total
	}
}

// InwardEntry one received line bound to an invoice
type InwardEntry struct {
	ID                  string    `json:"id" gorm:"primaryKey;size:32"`
	PONumber            string    `json:"po_number" gorm:"size:50;not null;index"`
	POLineItemID        string    `json:"po_line_item_id" gorm:"size:32;not null"`
	InventoryID         string    `json:"inventory_id" gorm:"size:32;not null"`
	ItemCode            string    `json:"item_code" gorm:"size:32;not null;index"`
	OrderedQuantity     int       `json:"ordered_quantity" gorm:"not null"`
	QuantityReceived    int       `json:"quantity_received" gorm:"not null"`
	ReceivedDate        time.Time `json:"received_date" gorm:"type:date;not null"`
	Location            string    `json:"location" gorm:"size:20;not null"`
	InvoiceNumber       string    `json:"invoice_number" gorm:"size:100;not null;index"`
	InvoiceDate         time.Time `json:"invoice_date" gorm:"type:date;not null"`
	PurchaseInvoiceBlob string    `json:"purchase_invoice_blob" gorm:"size:500"`
	ReceivedBy          string    `json:"received_by" gorm:"size:200"`
	CreatedAt           time.Time `json:"created_at"`
}

func (InwardEntry) TableName() string { return "pms_inward_entries" }
