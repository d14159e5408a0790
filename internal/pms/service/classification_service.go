package service

import (
	"context"
	"errors"
	"strings"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/codegen"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/cache"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClassificationService product tree, code generation and MPN allocation
type ClassificationService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	cache  *cache.Cache
	logger *zap.Logger
}

func NewClassificationService(db *gorm.DB, repos *repository.Repositories, c *cache.Cache, logger *zap.Logger) *ClassificationService {
	return &ClassificationService{db: db, repos: repos, cache: c, logger: logger}
}

// CreateClassificationRequest ProductID scopes every kind except product and
// mpn; MakeID scopes mpn.
type CreateClassificationRequest struct {
	Kind          string  `json:"kind" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	ProductID     string  `json:"product_id"`
	MakeID        string  `json:"make_id"`
	SubCategoryID *string `json:"sub_category_id"`
}

// CreateClassification returns the existing row when the name is already
// registered in scope for make, sub category, model, remarks, rating and package.
func (s *ClassificationService) CreateClassification(ctx context.Context, req *CreateClassificationRequest) (*entity.Classification, error) {
	kind, err := codegen.ParseKind(req.Kind)
	if err != nil {
		return nil, apperr.Validation(err.Error(), "kind")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required", "name")
	}

	var out *entity.Classification
	var productID string
	err = transact(ctx, s.db, func(r *repository.Repositories) error {
		switch kind {
		case codegen.KindProduct:
			code, _, err := s.resolve(ctx, r, kind, "", name)
			if err != nil {
				return err
			}
			out, err = s.insert(ctx, r, kind, "", nil, name, code)
			if out != nil {
				productID = out.ID
			}
			return err

		case codegen.KindMPN:
			if req.MakeID == "" {
				return apperr.Validation("make_id is required", "make_id")
			}
			m, mk, err := s.allocateMPN(ctx, r, req.MakeID, name)
			if err != nil {
				return err
			}
			productID = mk.ProductID
			out = &entity.Classification{ID: m.ID, Name: m.Value, Code: m.Code}
			return nil

		default:
			if req.ProductID == "" {
				return apperr.Validation("product_id is required", "product_id")
			}
			p, err := r.Classification.LockProduct(ctx, req.ProductID)
			if err != nil {
				return orNotFound(err, "product", req.ProductID)
			}
			productID = p.ID
			code, existing, err := s.resolve(ctx, r, kind, p.ID, name)
			if err != nil {
				return err
			}
			if existing != nil {
				out = existing
				return nil
			}
			out, err = s.insert(ctx, r, kind, p.ID, req.SubCategoryID, name, code)
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	if kind == codegen.KindProduct {
		s.cache.Invalidate(ctx, cache.DropdownOptionsKey)
	} else {
		s.cache.Invalidate(ctx, cache.RelatedOptionsKey(productID))
	}
	return out, nil
}

// GenerateCode previews the code CreateClassification would assign.
func (s *ClassificationService) GenerateCode(ctx context.Context, kindName, name, productID, makeID string) (string, error) {
	kind, err := codegen.ParseKind(kindName)
	if err != nil {
		return "", apperr.Validation(err.Error(), "kind")
	}
	name = strings.TrimSpace(name)
	if name == "" && kind != codegen.KindMPN {
		return "", apperr.Validation("name is required", "name")
	}

	switch kind {
	case codegen.KindProduct:
		code, _, err := s.resolve(ctx, s.repos, kind, "", name)
		return code, err
	case codegen.KindMPN:
		if _, err := s.repos.Classification.FindMakeByID(ctx, makeID); err != nil {
			return "", orNotFound(err, "make", makeID)
		}
		mpns, err := s.repos.Classification.ListMPNs(ctx, makeID)
		if err != nil {
			return "", err
		}
		codes := make([]string, 0, len(mpns))
		for _, m := range mpns {
			codes = append(codes, m.Code)
		}
		code, err := codegen.FormatSequence(codegen.MaxSequence(codes)+1, codegen.MPNWidth)
		if err != nil {
			return "", apperr.Conflict(err.Error(), makeID)
		}
		return code, nil
	}

	if _, err := s.repos.Classification.FindProductByID(ctx, productID); err != nil {
		return "", orNotFound(err, "product", productID)
	}
	code, _, err := s.resolve(ctx, s.repos, kind, productID, name)
	return code, err
}

// resolve returns the code for name in scope, plus the existing row when one
// is registered under that name.
func (s *ClassificationService) resolve(ctx context.Context, r *repository.Repositories, kind codegen.Kind, productID, name string) (string, *entity.Classification, error) {
	cr := r.Classification
	switch kind {
	case codegen.KindProduct:
		code, err := codegen.ProductCode(name)
		if err != nil {
			return "", nil, codeError(err, name)
		}
		if _, err := cr.FindProductByCode(ctx, code); err == nil {
			return "", nil, apperr.Conflict("product code already exists", code)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return "", nil, err
		}
		return code, nil, nil

	case codegen.KindMake:
		if c, err := lookupByName(ctx, cr, productID, "name", name, makeView); c != nil || err != nil {
			return codeOf(c), c, err
		}
		taken, err := s.takenCodes(ctx, cr, &entity.Make{}, productID)
		if err != nil {
			return "", nil, err
		}
		code, err := codegen.ResolveMakeCode(name, func(c string) bool { return taken[c] })
		if err != nil {
			return "", nil, codeError(err, name)
		}
		return code, nil, nil

	case codegen.KindSubCategory:
		if c, err := lookupByName(ctx, cr, productID, "name", name, subCategoryView); c != nil || err != nil {
			return codeOf(c), c, err
		}
		codes, err := cr.Codes(ctx, &entity.SubCategory{}, productID)
		if err != nil {
			return "", nil, err
		}
		code, err := codegen.NextSubCategoryCode(codes)
		if err != nil {
			return "", nil, codeError(err, name)
		}
		return code, nil, nil

	case codegen.KindModel:
		if c, err := lookupByName(ctx, cr, productID, "name", name, modelView); c != nil || err != nil {
			return codeOf(c), c, err
		}
		return s.smallestUnused(ctx, cr, &entity.ProductModel{}, productID, codegen.ModelWidth, name)

	case codegen.KindRemarks:
		if c, err := lookupByName(ctx, cr, productID, "description", name, remarksView); c != nil || err != nil {
			return codeOf(c), c, err
		}
		return s.smallestUnused(ctx, cr, &entity.Remarks{}, productID, codegen.RemarksWidth, name)

	case codegen.KindRating:
		if c, err := lookupByName(ctx, cr, productID, "value", name, ratingView); c != nil || err != nil {
			return codeOf(c), c, err
		}
		code, err := codegen.RatingCode(name)
		if err != nil {
			return "", nil, codeError(err, name)
		}
		return code, nil, s.ensureFree(ctx, cr, &entity.Rating{}, productID, code)

	case codegen.KindPackage:
		if c, err := lookupByName(ctx, cr, productID, "description", name, packageView); c != nil || err != nil {
			return codeOf(c), c, err
		}
		code, err := codegen.PackageCode(name)
		if err != nil {
			return "", nil, codeError(err, name)
		}
		return code, nil, s.ensureFree(ctx, cr, &entity.Package{}, productID, code)
	}
	return "", nil, apperr.Validation("unsupported kind", "kind")
}

func (s *ClassificationService) insert(ctx context.Context, r *repository.Repositories, kind codegen.Kind, productID string, subCategoryID *string, name, code string) (*entity.Classification, error) {
	if !codegen.ValidCode(kind, code) {
		return nil, apperr.InvariantViolation("generated code " + code + " does not fit " + string(kind))
	}
	id := entity.NewID()
	var row interface{}
	switch kind {
	case codegen.KindProduct:
		row = &entity.Product{ID: id, Name: name, Code: code}
	case codegen.KindMake:
		row = &entity.Make{ID: id, ProductID: productID, Name: name, Code: code}
	case codegen.KindSubCategory:
		row = &entity.SubCategory{ID: id, ProductID: productID, Name: name, Code: code}
	case codegen.KindModel:
		row = &entity.ProductModel{ID: id, ProductID: productID, Name: name, Code: code}
	case codegen.KindRemarks:
		row = &entity.Remarks{ID: id, ProductID: productID, Description: name, Code: code}
	case codegen.KindRating:
		row = &entity.Rating{ID: id, ProductID: productID, SubCategoryID: subCategoryID, Value: name, Code: code}
	case codegen.KindPackage:
		row = &entity.Package{ID: id, ProductID: productID, Description: name, Code: code}
	default:
		return nil, apperr.Validation("unsupported kind", "kind")
	}
	if err := r.Classification.Create(ctx, row); err != nil {
		return nil, err
	}
	return &entity.Classification{ID: id, Name: name, Code: code}, nil
}

func (s *ClassificationService) takenCodes(ctx context.Context, cr *repository.ClassificationRepository, model interface{}, productID string) (map[string]bool, error) {
	codes, err := cr.Codes(ctx, model, productID)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(codes))
	for _, c := range codes {
		taken[c] = true
	}
	return taken, nil
}

func (s *ClassificationService) smallestUnused(ctx context.Context, cr *repository.ClassificationRepository, model interface{}, productID string, width int, name string) (string, *entity.Classification, error) {
	codes, err := cr.Codes(ctx, model, productID)
	if err != nil {
		return "", nil, err
	}
	code, err := codegen.SmallestUnused(codes, width)
	if err != nil {
		return "", nil, codeError(err, name)
	}
	return code, nil, nil
}

func (s *ClassificationService) ensureFree(ctx context.Context, cr *repository.ClassificationRepository, model interface{}, productID, code string) error {
	taken, err := cr.CodeTaken(ctx, model, productID, code)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("code already exists in product", code)
	}
	return nil
}

// AllocateMPN registers the next MPN code for a make in its own transaction.
func (s *ClassificationService) AllocateMPN(ctx context.Context, makeID, value string) (*entity.MPN, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperr.Validation("mfg part number is required", "value")
	}
	var out *entity.MPN
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		m, _, err := s.allocateMPN(ctx, r, makeID, value)
		out = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// allocateMPN runs inside the caller's transaction. The make row lock
// serializes allocators of one make; codes are max+1 over every existing
// code of the make, skipping any that are already present.
func (s *ClassificationService) allocateMPN(ctx context.Context, r *repository.Repositories, makeID, value string) (*entity.MPN, *entity.Make, error) {
	mk, err := r.Classification.LockMake(ctx, makeID)
	if err != nil {
		return nil, nil, orNotFound(err, "make", makeID)
	}
	codes, err := r.Classification.MPNCodesForUpdate(ctx, makeID)
	if err != nil {
		return nil, nil, err
	}

	for next := codegen.MaxSequence(codes) + 1; ; next++ {
		code, err := codegen.FormatSequence(next, codegen.MPNWidth)
		if err != nil {
			return nil, nil, apperr.Conflict("mpn sequence exhausted for make", mk.Code)
		}
		exists, err := r.Classification.MPNCodeExists(ctx, makeID, code)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			continue
		}
		m := &entity.MPN{MakeID: makeID, Value: value, Code: code}
		if err := r.Classification.CreateMPN(ctx, m); err != nil {
			return nil, nil, err
		}
		s.logger.Debug("mpn allocated", zap.String("make", mk.Code), zap.String("code", code))
		return m, mk, nil
	}
}

// ListProducts dropdown source, cached.
func (s *ClassificationService) ListProducts(ctx context.Context) ([]entity.Classification, error) {
	return cache.Remember(ctx, s.cache, cache.DropdownOptionsKey, s.cache.TTL.Dropdown, func() ([]entity.Classification, error) {
		products, err := s.repos.Classification.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]entity.Classification, 0, len(products))
		for _, p := range products {
			out = append(out, entity.Classification{ID: p.ID, Name: p.Name, Code: p.Code})
		}
		return out, nil
	})
}

// RelatedOptions every child list of a product, cached per product.
func (s *ClassificationService) RelatedOptions(ctx context.Context, productID string) (*entity.RelatedOptions, error) {
	return cache.Remember(ctx, s.cache, cache.RelatedOptionsKey(productID), s.cache.TTL.Related, func() (*entity.RelatedOptions, error) {
		if _, err := s.repos.Classification.FindProductByID(ctx, productID); err != nil {
			return nil, orNotFound(err, "product", productID)
		}
		return s.repos.Classification.RelatedOptions(ctx, productID)
	})
}

func (s *ClassificationService) ListMPNs(ctx context.Context, makeID string) ([]entity.MPN, error) {
	return s.repos.Classification.ListMPNs(ctx, makeID)
}

// DeleteProduct removes the product with everything scoped under it.
func (s *ClassificationService) DeleteProduct(ctx context.Context, id string) error {
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		if _, err := r.Classification.LockProduct(ctx, id); err != nil {
			return orNotFound(err, "product", id)
		}
		return r.Classification.DeleteProduct(ctx, id)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.DropdownOptionsKey, cache.RelatedOptionsKey(id))
	return nil
}

func (s *ClassificationService) invalidateProduct(ctx context.Context, productID string) {
	s.cache.Invalidate(ctx, cache.DropdownOptionsKey, cache.RelatedOptionsKey(productID))
}

func codeError(err error, name string) error {
	switch {
	case errors.Is(err, codegen.ErrEmptyName):
		return apperr.Validation("name has no usable characters", "name")
	case errors.Is(err, codegen.ErrDuplicateCode), errors.Is(err, codegen.ErrCodeExhausted):
		return apperr.Conflict(err.Error(), name)
	}
	return err
}

func lookupByName[T any](ctx context.Context, cr *repository.ClassificationRepository, productID, column, name string, view func(*T) entity.Classification) (*entity.Classification, error) {
	row, err := repository.FindByName[T](ctx, cr, productID, column, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c := view(row)
	return &c, nil
}

func codeOf(c *entity.Classification) string {
	if c == nil {
		return ""
	}
	return c.Code
}

func makeView(m *entity.Make) entity.Classification {
	return entity.Classification{ID: m.ID, Name: m.Name, Code: m.Code}
}

func subCategoryView(m *entity.SubCategory) entity.Classification {
	return entity.Classification{ID: m.ID, Name: m.Name, Code: m.Code}
}

func modelView(m *entity.ProductModel) entity.Classification {
	return entity.Classification{ID: m.ID, Name: m.Name, Code: m.Code}
}

func remarksView(m *entity.Remarks) entity.Classification {
	return entity.Classification{ID: m.ID, Name: m.Description, Code: m.Code}
}

func ratingView(m *entity.Rating) entity.Classification {
	return entity.Classification{ID: m.ID, Name: m.Value, Code: m.Code}
}

func packageView(m *entity.Package) entity.Classification {
	return entity.Classification{ID: m.ID, Name: m.Description, Code: m.Code}
}
