package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a 32 character primary key.
func NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// JSONB jsonb column
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// Models lists every table for AutoMigrate, parents before children.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&ActivityLog{},

		&Product{},
		&Make{},
		&SubCategory{},
		&Rating{},
		&Package{},
		&ProductModel{},
		&Remarks{},
		&MPN{},

		&ItemRequest{},
		&FactoryItemRequest{},
		&ItemMaster{},
		&FactoryItemMaster{},

		&Project{},
		&Requisition{},
		&RequisitionHistory{},
		&Master{},
		&Vendor{},
		&VendorDocument{},
		&PurchaseOrder{},
		&POLineItem{},
		&InwardEntry{},

		&Inventory{},
		&StockAllocation{},
		&LocationWiseAllocation{},
		&StockOutward{},

		&DeliveryChallan{},
		&DeliveryChallanItem{},
		&ReturnableGatePass{},
		&ReturnableGatePassItem{},
		&ReturnableGatePassReturn{},
		&ReturnableGatePassReturnItem{},
		&RejectedMaterialReturn{},
		&RejectedMaterialReturnItem{},
	}
}
