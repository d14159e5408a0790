package entity

import "time"

// Request statuses
const (
	RequestStatusDraft    = "draft"
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// ValidRequestTransitions keyed by current status; "" is a new request.
var ValidRequestTransitions = map[string][]string{
	"":                     {RequestStatusDraft, RequestStatusPending},
	RequestStatusDraft:    {RequestStatusPending},
	RequestStatusPending:  {RequestStatusApproved, RequestStatusRejected},
	RequestStatusRejected: {RequestStatusPending},
}

// CanTransitionRequest approved is terminal.
func CanTransitionRequest(from, to string) bool {
	for _, s := range ValidRequestTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RequestKind distinguishes the two request families.
type RequestKind string

const (
	RequestKindCatalog RequestKind = "catalog"
	RequestKindFactory RequestKind = "factory"
)

// Request is what the approval pipeline needs from either family.
type Request interface {
	Kind() RequestKind
	RequestID() string
	CurrentStatus() string
	PartNumber() string
	View() RequestView
}

// RequestView row of the combined approval queue.
type RequestView struct {
	Kind            RequestKind `json:"kind"`
	ID              string      `json:"id"`
	Requestor       string      `json:"requestor"`
	Status          string      `json:"status"`
	PartNumber      string      `json:"part_number"`
	ProductName     string      `json:"product_name"`
	MakeName        string      `json:"make_name"`
	MfgPartNo       string      `json:"mfg_part_no"`
	Description     string      `json:"description"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ItemRequest catalog item request
type ItemRequest struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	Requestor     string `json:"requestor" gorm:"size:200;not null;index"`
	RequestorName string `json:"requestor_name" gorm:"size:200"`
	Status        string `json:"status" gorm:"size:20;not null;index"`

	ProductName        string `json:"product_name" gorm:"size:200"`
	ProductCode        string `json:"product_code" gorm:"size:3"`
	SubCategoryName    string `json:"sub_category_name" gorm:"size:200"`
	SubCategoryCode    string `json:"sub_category_code" gorm:"size:2"`
	MakeName           string `json:"make_name" gorm:"size:200"`
	MakeCode           string `json:"make_code" gorm:"size:2"`
	ModelName          string `json:"model_name" gorm:"size:200"`
	ModelCode          string `json:"model_code" gorm:"size:3"`
	RemarksDescription string `json:"remarks_description" gorm:"size:500"`
	RemarksCode        string `json:"remarks_code" gorm:"size:4"`
	RatingValue        string `json:"rating_value" gorm:"size:100"`
	RatingCode         string `json:"rating_code" gorm:"size:5"`

	MfgPartNo   string `json:"mfg_part_no" gorm:"size:200"`
	Description string `json:"description" gorm:"type:text"`
	UOM         string `json:"uom" gorm:"size:20"`
	MOQ         int    `json:"moq"`
	LeadTime    int    `json:"lead_time"`
	HSNCode     string `json:"hsn_code" gorm:"size:20"`
	Bin         string `json:"bin" gorm:"size:50"`

	CimconPartNo    string     `json:"cimcon_part_no" gorm:"size:32;index"`
	RejectionReason string     `json:"rejection_reason" gorm:"type:text"`
	ApprovedBy      string     `json:"approved_by" gorm:"size:200"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectedBy      string     `json:"rejected_by" gorm:"size:200"`
	DocumentPath    string     `json:"document_path" gorm:"size:500"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (ItemRequest) TableName() string { return "pms_item_requests" }

func (r *ItemRequest) Kind() RequestKind     { return RequestKindCatalog }
func (r *ItemRequest) RequestID() string     { return r.ID }
func (r *ItemRequest) CurrentStatus() string { return r.Status }
func (r *ItemRequest) PartNumber() string    { return r.CimconPartNo }

func (r *ItemRequest) View() RequestView {
	return RequestView{
		Kind:            RequestKindCatalog,
		ID:              r.ID,
		Requestor:       r.Requestor,
		Status:          r.Status,
		PartNumber:      r.CimconPartNo,
		ProductName:     r.ProductName,
		MakeName:        r.MakeName,
		MfgPartNo:       r.MfgPartNo,
		Description:     r.Description,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// FactoryItemRequest factory part request; the MPN code is allocated on submit
type FactoryItemRequest struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	Requestor     string `json:"requestor" gorm:"size:200;not null;index"`
	RequestorName string `json:"requestor_name" gorm:"size:200"`
	Status        string `json:"status" gorm:"size:20;not null;index"`

	ProductID          string `json:"product_id" gorm:"size:32;not null"`
	ProductName        string `json:"product_name" gorm:"size:200"`
	ProductCode        string `json:"product_code" gorm:"size:3"`
	MakeID             string `json:"make_id" gorm:"size:32;not null"`
	MakeName           string `json:"make_name" gorm:"size:200"`
	MakeCode           string `json:"make_code" gorm:"size:2"`
	MPNID              string `json:"mpn_id" gorm:"size:32"`
	MfgPartNo          string `json:"mfg_part_no" gorm:"size:200;not null"`
	MPNCode            string `json:"mpn_code" gorm:"size:6"`
	RatingValue        string `json:"rating_value" gorm:"size:100"`
	RatingCode         string `json:"rating_code" gorm:"size:5"`
	PackageDescription string `json:"package_description" gorm:"size:200"`
	PackageCode        string `json:"package_code" gorm:"size:4"`
	Description        string `json:"description" gorm:"type:text"`
	UOM                string `json:"uom" gorm:"size:20"`

	FullPartNumber  string     `json:"full_part_number" gorm:"size:32;index"`
	RejectionReason string     `json:"rejection_reason" gorm:"type:text"`
	ApprovedBy      string     `json:"approved_by" gorm:"size:200"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectedBy      string     `json:"rejected_by" gorm:"size:200"`
	DocumentPath    string     `json:"document_path" gorm:"size:500"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (FactoryItemRequest) TableName() string { return "pms_factory_item_requests" }

func (r *FactoryItemRequest) Kind() RequestKind     { return RequestKindFactory }
func (r *FactoryItemRequest) RequestID() string     { return r.ID }
func (r *FactoryItemRequest) CurrentStatus() string { return r.Status }
func (r *FactoryItemRequest) PartNumber() string    { return r.FullPartNumber }

func (r *FactoryItemRequest) View() RequestView {
	return RequestView{
		Kind:            RequestKindFactory,
		ID:              r.ID,
		Requestor:       r.Requestor,
		Status:          r.Status,
		PartNumber:      r.FullPartNumber,
		ProductName:     r.ProductName,
		MakeName:        r.MakeName,
		MfgPartNo:       r.MfgPartNo,
		Description:     r.Description,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// ItemMaster approved catalog item
type ItemMaster struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	CimconPartNo  string `json:"cimcon_part_no" gorm:"size:32;uniqueIndex;not null"`
	ProductID     string `json:"product_id" gorm:"size:32;not null;index"`
	SubCategoryID string `json:"sub_category_id" gorm:"size:32"`
	MakeID        string `json:"make_id" gorm:"size:32"`
	ModelID       string `json:"model_id" gorm:"size:32"`
	RemarksID     string `json:"remarks_id" gorm:"size:32"`
	RatingID      string `json:"rating_id" gorm:"size:32"`

	Description   string `json:"description" gorm:"type:text"`
	MfgPartNo     string `json:"mfg_part_no" gorm:"size:200"`
	MaterialGroup string `json:"material_group" gorm:"size:200"`
	MakeName      string `json:"make_name" gorm:"size:200"`
	UOM           string `json:"uom" gorm:"size:20"`
	MOQ           int    `json:"moq"`
	LeadTime      int    `json:"lead_time"`
	HSNCode       string `json:"hsn_code" gorm:"size:20"`
	Bin           string `json:"bin" gorm:"size:50"`
	DocumentPath  string `json:"document_path" gorm:"size:500"`

	RequestID string    `json:"request_id" gorm:"size:32"`
	CreatedBy string    `json:"created_by" gorm:"size:200"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ItemMaster) TableName() string { return "pms_item_masters" }

// FactoryItemMaster approved factory part, strings denormalized
type FactoryItemMaster struct {
	ID                 string    `json:"id" gorm:"primaryKey;size:32"`
	FullPartNumber     string    `json:"full_part_number" gorm:"size:32;uniqueIndex;not null"`
	ProductName        string    `json:"product_name" gorm:"size:200"`
	ProductCode        string    `json:"product_code" gorm:"size:3"`
	MakeName           string    `json:"make_name" gorm:"size:200"`
	MakeCode           string    `json:"make_code" gorm:"size:2"`
	MfgPartNo          string    `json:"mfg_part_no" gorm:"size:200"`
	MPNCode            string    `json:"mpn_code" gorm:"size:6"`
	RatingValue        string    `json:"rating_value" gorm:"size:100"`
	RatingCode         string    `json:"rating_code" gorm:"size:5"`
	PackageDescription string    `json:"package_description" gorm:"size:200"`
	PackageCode        string    `json:"package_code" gorm:"size:4"`
	Description        string    `json:"description" gorm:"type:text"`
	UOM                string    `json:"uom" gorm:"size:20"`
	RequestID          string    `json:"request_id" gorm:"size:32"`
	CreatedBy          string    `json:"created_by" gorm:"size:200"`
	ApprovedBy         string    `json:"approved_by" gorm:"size:200"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (FactoryItemMaster) TableName() string { return "pms_factory_item_masters" }
