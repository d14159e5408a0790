package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/codegen"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/blob"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	vendorCodePrefix = "VEN"
	vendorCodeWidth  = 4
)

// VendorService supplier registry and vendor documents
type VendorService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	blobs  blob.Store
	logger *zap.Logger
}

func NewVendorService(db *gorm.DB, repos *repository.Repositories, blobs blob.Store, logger *zap.Logger) *VendorService {
	return &VendorService{db: db, repos: repos, blobs: blobs, logger: logger}
}

type RegisterVendorInput struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	GSTIN         string `json:"gstin"`
	PAN           string `json:"pan"`
	Address       string `json:"address"`
}

// RegisterVendor assigns the next VEN#### code.
func (s *VendorService) RegisterVendor(ctx context.Context, creator string, in *RegisterVendorInput) (*entity.Vendor, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.Validation("name is required", "name")
	}
	v := &entity.Vendor{
		Name:          in.Name,
		Email:         strings.TrimSpace(in.Email),
		ContactPerson: in.ContactPerson,
		Phone:         in.Phone,
		GSTIN:         strings.ToUpper(strings.TrimSpace(in.GSTIN)),
		PAN:           strings.ToUpper(strings.TrimSpace(in.PAN)),
		Address:       in.Address,
		Status:        "active",
		CreatedBy:     creator,
	}
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		if err := repository.LockSeries(ctx, r.DB(), vendorCodePrefix); err != nil {
			return err
		}
		last, err := r.Vendor.LastCode(ctx, vendorCodePrefix)
		if err != nil {
			return err
		}
		n, _ := codegen.ParseSequence(strings.TrimPrefix(last, vendorCodePrefix))
		seq, err := codegen.FormatSequence(n+1, vendorCodeWidth)
		if err != nil {
			return apperr.Conflict(err.Error(), vendorCodePrefix)
		}
		v.VendorCode = vendorCodePrefix + seq
		return r.Vendor.Create(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("vendor registered", zap.String("code", v.VendorCode), zap.String("name", v.Name))
	return v, nil
}

// UploadVendorDocument stores the file under the vendor's folder. Repeated
// uploads for one field get a numeric suffix.
func (s *VendorService) UploadVendorDocument(ctx context.Context, vendorID, field, uploader string, file *Upload) (*entity.VendorDocument, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, apperr.Validation("field is required", "field")
	}
	if !file.present() {
		return nil, apperr.Validation("file is required", "file")
	}

	var doc *entity.VendorDocument
	var written string
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		v, err := r.Vendor.LockByID(ctx, vendorID)
		if err != nil {
			return orNotFound(err, "vendor", vendorID)
		}
		n, err := r.Vendor.CountDocuments(ctx, v.ID, field)
		if err != nil {
			return err
		}
		path := blob.VendorDocumentPath(v.ID, v.Name, field, int(n), blob.Ext(file.FileName, "bin"))
		if err := s.blobs.Put(ctx, path, file.Content, file.Size, file.ContentType); err != nil {
			return apperr.Internal(fmt.Errorf("store vendor document: %w", err))
		}
		written = path
		doc = &entity.VendorDocument{
			VendorID:   v.ID,
			Field:      field,
			FileName:   file.FileName,
			Path:       path,
			UploadedBy: uploader,
		}
		return r.Vendor.CreateDocument(ctx, doc)
	})
	if err != nil {
		removeQuietly(ctx, s.blobs, s.logger, written)
		return nil, err
	}
	return doc, nil
}

func (s *VendorService) Get(ctx context.Context, id string) (*entity.Vendor, error) {
	v, err := s.repos.Vendor.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "vendor", id)
	}
	return v, nil
}

func (s *VendorService) List(ctx context.Context, page, pageSize int, search string) ([]entity.Vendor, int64, error) {
	return s.repos.Vendor.FindAll(ctx, page, pageSize, strings.TrimSpace(search))
}
