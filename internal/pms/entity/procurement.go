package entity

import "time"

// Project purchasing project, resolved by code
type Project struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	ProjectCode string    `json:"project_code" gorm:"size:50;uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"size:200"`
	DivisionID  string    `json:"division_id" gorm:"size:50"`
	BillTo      string    `json:"bill_to" gorm:"type:text"`
	ShipTo      string    `json:"ship_to" gorm:"type:text"`
	ApprovedBy  string    `json:"approved_by" gorm:"size:200"`
	RequestedBy string    `json:"requested_by" gorm:"size:200"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Project) TableName() string { return "pms_projects" }

// Requisition statuses
const (
	RequisitionStatusPending  = "pending"
	RequisitionStatusApproved = "approved"
	RequisitionStatusRejected = "rejected"
)

// Requisition one requested line; approved_status mirrors status == approved
type Requisition struct {
	ID                  string     `json:"id" gorm:"primaryKey;size:32"`
	ProjectID           string     `json:"project_id" gorm:"size:32;not null;index"`
	ProjectCode         string     `json:"project_code" gorm:"size:50;not null;index"`
	BatchID             string     `json:"batch_id" gorm:"size:80;not null;index"`
	SubmittedBy         string     `json:"submitted_by" gorm:"size:200;not null"`
	RequisitorName      string     `json:"requisitor_name" gorm:"size:200"`
	CimconPartNumber    string     `json:"cimcon_part_number" gorm:"size:32;not null"`
	MaterialDescription string     `json:"material_description" gorm:"type:text"`
	Make                string     `json:"make" gorm:"size:200"`
	MfgPartNo           string     `json:"mfg_part_no" gorm:"size:200"`
	ReqQty              int        `json:"req_qty" gorm:"not null"`
	RequiredByDate      *time.Time `json:"required_by_date" gorm:"type:date"`
	Remarks             string     `json:"remarks" gorm:"type:text"`
	Status              string     `json:"status" gorm:"size:20;not null;default:pending;index"`
	ApprovedStatus      bool       `json:"approved_status" gorm:"not null;default:false"`
	ApprovedBy          string     `json:"approved_by" gorm:"size:200"`
	RejectionRemarks    *string    `json:"rejection_remarks" gorm:"type:text"`
	MasterEntryExists   bool       `json:"master_entry_exists" gorm:"not null;default:false"`
	VerificationStatus  bool       `json:"verification_status" gorm:"not null;default:false"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (Requisition) TableName() string { return "pms_requisitions" }

// RequisitionHistory append-only field change log
type RequisitionHistory struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	RequisitionID string    `json:"requisition_id" gorm:"size:32;not null;index"`
	BatchID       string    `json:"batch_id" gorm:"size:80;not null;index"`
	FieldName     string    `json:"field_name" gorm:"size:50;not null"`
	OldValue      string    `json:"old_value" gorm:"type:text"`
	NewValue      string    `json:"new_value" gorm:"type:text"`
	ChangedBy     string    `json:"changed_by" gorm:"size:200;not null"`
	ChangedAt     time.Time `json:"changed_at" gorm:"not null"`
}

func (RequisitionHistory) TableName() string { return "pms_requisition_histories" }

// Master ordering statuses
const (
	OrderingStatusInProgress = "In Progress"
	OrderingStatusOrdered    = "Ordered"
	OrderingStatusCompleted  = "Completed"
)

// Master pre-PO snapshot of an approved requisition
type Master struct {
	ID                  string    `json:"id" gorm:"primaryKey;size:32"`
	RequisitionID       string    `json:"requisition_id" gorm:"size:32;uniqueIndex;not null"`
	ProjectCode         string    `json:"project_code" gorm:"size:50;not null;index"`
	CimconPartNumber    string    `json:"cimcon_part_number" gorm:"size:32;not null;index"`
	MaterialDescription string    `json:"material_description" gorm:"type:text"`
	Make                string    `json:"make" gorm:"size:200"`
	MfgPartNo           string    `json:"mfg_part_no" gorm:"size:200"`
	RequiredQuantity    int       `json:"required_quantity" gorm:"not null"`
	OrderingQty         int       `json:"ordering_qty" gorm:"not null"`
	SOH                 int       `json:"soh" gorm:"not null;default:0"`
	BalanceQuantity     int       `json:"balance_quantity" gorm:"not null;default:0"`
	BatchID             string    `json:"batch_id" gorm:"size:80;not null;index"`
	VerifiedBy          string    `json:"verified_by" gorm:"size:200"`
	VerificationDate    time.Time `json:"verification_date"`
	OrderingStatus      string    `json:"ordering_status" gorm:"size:20;not null;index"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (Master) TableName() string { return "pms_masters" }
