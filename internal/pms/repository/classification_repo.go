package repository

import (
	"context"
	"strings"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClassificationRepository product tree and MPN rows
type ClassificationRepository struct {
	db *gorm.DB
}

func NewClassificationRepository(db *gorm.DB) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

// === Product ===

func (r *ClassificationRepository) CreateProduct(ctx context.Context, p *entity.Product) error {
	if p.ID == "" {
		p.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ClassificationRepository) FindProductByID(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// LockProduct serializes code generation under one product.
func (r *ClassificationRepository) LockProduct(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ClassificationRepository) FindProductByCode(ctx context.Context, code string) (*entity.Product, error) {
	var p entity.Product
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindProductByName case-insensitive.
func (r *ClassificationRepository) FindProductByName(ctx context.Context, name string) (*entity.Product, error) {
	var p entity.Product
	if err := r.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(name)).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ClassificationRepository) ListProducts(ctx context.Context) ([]entity.Product, error) {
	var items []entity.Product
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

// EnsureProduct inserts p unless its code exists, then returns the stored row.
func (r *ClassificationRepository) EnsureProduct(ctx context.Context, p *entity.Product) (*entity.Product, error) {
	if p.ID == "" {
		p.ID = entity.NewID()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(p).Error
	if err != nil {
		return nil, err
	}
	return r.FindProductByCode(ctx, p.Code)
}

// DeleteProduct removes the product and every row scoped under it.
func (r *ClassificationRepository) DeleteProduct(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	makeIDs := db.Model(&entity.Make{}).Select("id").Where("product_id = ?", id)
	if err := db.Where("make_id IN (?)", makeIDs).Delete(&entity.MPN{}).Error; err != nil {
		return err
	}
	for _, m := range []interface{}{
		&entity.Make{}, &entity.SubCategory{}, &entity.Rating{},
		&entity.Package{}, &entity.ProductModel{}, &entity.Remarks{},
	} {
		if err := db.Where("product_id = ?", id).Delete(m).Error; err != nil {
			return err
		}
	}
	res := db.Where("id = ?", id).Delete(&entity.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// === product-scoped children ===

// Codes lists the codes already used under a product for one child table.
func (r *ClassificationRepository) Codes(ctx context.Context, model interface{}, productID string) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).Model(model).Where("product_id = ?", productID).Pluck("code", &codes).Error
	return codes, err
}

// CodeTaken reports whether code exists under the product.
func (r *ClassificationRepository) CodeTaken(ctx context.Context, model interface{}, productID, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(model).Where("product_id = ? AND code = ?", productID, code).Count(&n).Error
	return n > 0, err
}

// FindByName finds a child row by case-insensitive name within the product.
// column is the name-bearing column of the table.
func FindByName[T any](ctx context.Context, r *ClassificationRepository, productID, column, name string) (*T, error) {
	var out T
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND LOWER("+column+") = ?", productID, strings.ToLower(name)).
		First(&out).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

// FindByCode finds a child row by (product_id, code).
func FindByCode[T any](ctx context.Context, r *ClassificationRepository, productID, code string) (*T, error) {
	var out T
	if err := r.db.WithContext(ctx).Where("product_id = ? AND code = ?", productID, code).First(&out).Error; err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

// Ensure inserts row unless (product_id, code) exists and returns the stored row.
func Ensure[T any](ctx context.Context, r *ClassificationRepository, row *T, productID, code string) (*T, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "code"}},
			DoNothing: true,
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return FindByCode[T](ctx, r, productID, code)
}

// Create inserts one child row.
func (r *ClassificationRepository) Create(ctx context.Context, row interface{}) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// RelatedOptions loads every child list of a product.
func (r *ClassificationRepository) RelatedOptions(ctx context.Context, productID string) (*entity.RelatedOptions, error) {
	db := r.db.WithContext(ctx)
	out := &entity.RelatedOptions{ProductID: productID}
	load := func(model interface{}, nameCol string, dst *[]entity.Classification) error {
		*dst = []entity.Classification{}
		return db.Model(model).
			Select("id, "+nameCol+" AS name, code").
			Where("product_id = ?", productID).
			Order("code ASC").
			Scan(dst).Error
	}
	steps := []struct {
		model   interface{}
		nameCol string
		dst     *[]entity.Classification
	}{
		{&entity.Make{}, "name", &out.Makes},
		{&entity.SubCategory{}, "name", &out.SubCategories},
		{&entity.Rating{}, "value", &out.Ratings},
		{&entity.Package{}, "description", &out.Packages},
		{&entity.ProductModel{}, "name", &out.Models},
		{&entity.Remarks{}, "description", &out.Remarks},
	}
	for _, s := range steps {
		if err := load(s.model, s.nameCol, s.dst); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// === Make / MPN ===

func (r *ClassificationRepository) FindMakeByID(ctx context.Context, id string) (*entity.Make, error) {
	var m entity.Make
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// LockMake takes the make row FOR UPDATE; MPN allocation for the make is
// serialized behind it, including the first allocation when no MPN rows exist.
func (r *ClassificationRepository) LockMake(ctx context.Context, id string) (*entity.Make, error) {
	var m entity.Make
	err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("id = ?", id).First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// MPNCodesForUpdate locks the make's MPN rows and returns their codes.
func (r *ClassificationRepository) MPNCodesForUpdate(ctx context.Context, makeID string) ([]string, error) {
	var rows []entity.MPN
	err := r.db.WithContext(ctx).Clauses(forUpdate()).
		Select("id, code").
		Where("make_id = ?", makeID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(rows))
	for _, m := range rows {
		codes = append(codes, m.Code)
	}
	return codes, nil
}

func (r *ClassificationRepository) MPNCodeExists(ctx context.Context, makeID, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.MPN{}).Where("make_id = ? AND code = ?", makeID, code).Count(&n).Error
	return n > 0, err
}

func (r *ClassificationRepository) CreateMPN(ctx context.Context, m *entity.MPN) error {
	if m.ID == "" {
		m.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *ClassificationRepository) ListMPNs(ctx context.Context, makeID string) ([]entity.MPN, error) {
	var items []entity.MPN
	err := r.db.WithContext(ctx).Where("make_id = ?", makeID).Order("code ASC").Find(&items).Error
	return items, err
}
