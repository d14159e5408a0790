package entity

import "time"

// ActivityLog state transition audit trail
type ActivityLog struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	EntityType string `json:"entity_type" gorm:"size:50;not null;index:idx_activity_entity"` // item_request/factory_item_request/requisition/po
	EntityID   string `json:"entity_id" gorm:"size:80;not null;index:idx_activity_entity"`
	EntityCode string `json:"entity_code" gorm:"size:80"`

	Action     string `json:"action" gorm:"size:50;not null"`
	FromStatus string `json:"from_status" gorm:"size:20"`
	ToStatus   string `json:"to_status" gorm:"size:20"`

	Content  string `json:"content" gorm:"type:text"`
	Metadata JSONB  `json:"metadata" gorm:"type:jsonb"`

	Operator  string    `json:"operator" gorm:"size:200"`
	CreatedAt time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string { return "pms_activity_logs" }

// Activity entity types
const (
	ActivityEntityItemRequest        = "item_request"
	ActivityEntityFactoryItemRequest = "factory_item_request"
	ActivityEntityRequisition        = "requisition"
	ActivityEntityPurchaseOrder      = "purchase_order"
	ActivityEntityGatePass           = "gate_pass"
)

// User read-only directory entry
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Email     string    `json:"email" gorm:"size:200;uniqueIndex;not null"`
	FirstName string    `json:"first_name" gorm:"size:100"`
	LastName  string    `json:"last_name" gorm:"size:100"`
	Role      string    `json:"role" gorm:"size:50;index"`
	Division  string    `json:"division" gorm:"size:50"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }

// DisplayName first and last name, or the email when both are blank.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Email
}

// Directory roles
const (
	RoleRequisitor = "requisitor"
	RoleApprover   = "approver"
	RolePurchaser  = "purchaser"
	RoleStore      = "store"
	RoleAdmin      = "admin"
)
