package entity

import "time"

// Product root of the classification tree
type Product struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Code      string    `json:"code" gorm:"size:3;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string { return "pms_products" }

// Make manufacturer within a product
type Make struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID string    `json:"product_id" gorm:"size:32;not null;uniqueIndex:uk_make_code,priority:1"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Code      string    `json:"code" gorm:"size:2;not null;uniqueIndex:uk_make_code,priority:2"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Make) TableName() string { return "pms_makes" }

type SubCategory struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID string    `json:"product_id" gorm:"size:32;not null;uniqueIndex:uk_sub_category_code,priority:1"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Code      string    `json:"code" gorm:"size:2;not null;uniqueIndex:uk_sub_category_code,priority:2"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SubCategory) TableName() string { return "pms_sub_categories" }

// Rating code keeps punctuation, spaces are stripped
type Rating struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID     string    `json:"product_id" gorm:"size:32;not null;uniqueIndex:uk_rating_code,priority:1"`
	SubCategoryID *string   `json:"sub_category_id" gorm:"size:32"`
	Value         string    `json:"value" gorm:"size:100;not null"`
	Code          string    `json:"code" gorm:"size:5;not null;uniqueIndex:uk_rating_code,priority:2"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Rating) TableName() string { return "pms_ratings" }

type Package struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID   string    `json:"product_id" gorm:"size:32;not null;uniqueIndex:uk_package_code,priority:1"`
	Code        string    `json:"code" gorm:"size:4;not null;uniqueIndex:uk_package_code,priority:2"`
	Description string    `json:"description" gorm:"size:200"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Package) TableName() string { return "pms_packages" }

type ProductModel struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID string    `json:"product_id" gorm:"size:32;not null;uniqueIndex:uk_model_code,priority:1"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Code      string    `json:"code" gorm:"size:3;not null;uniqueIndex:uk_model_code,priority:2"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductModel) TableName() string { return "pms_product_models" }

type Remarks struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID   string    `json:"product_id" gorm:"size:32;not null;uniqueIndex:uk_remarks_code,priority:1"`
	Description string    `json:"description" gorm:"size:500;not null"`
	Code        string    `json:"code" gorm:"size:4;not null;uniqueIndex:uk_remarks_code,priority:2"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Remarks) TableName() string { return "pms_remarks" }

// MPN per-make sequenced manufacturing part number
type MPN struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	MakeID    string    `json:"make_id" gorm:"size:32;not null;uniqueIndex:uk_mpn_code,priority:1"`
	Value     string    `json:"value" gorm:"size:200;not null"`
	Code      string    `json:"code" gorm:"size:6;not null;uniqueIndex:uk_mpn_code,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

func (MPN) TableName() string { return "pms_mpns" }

// Classification common projection used by dropdowns and create responses.
type Classification struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// RelatedOptions every child list of one product.
type RelatedOptions struct {
	ProductID     string           `json:"product_id"`
	Makes         []Classification `json:"makes"`
	SubCategories []Classification `json:"sub_categories"`
	Ratings       []Classification `json:"ratings"`
	Packages      []Classification `json:"packages"`
	Models        []Classification `json:"models"`
	Remarks       []Classification `json:"remarks"`
}
