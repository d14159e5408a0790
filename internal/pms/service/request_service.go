package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/codegen"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/blob"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequestService catalog and factory item request lifecycle
type RequestService struct {
	db             *gorm.DB
	repos          *repository.Repositories
	classification *ClassificationService
	blobs          blob.Store
	pub            notify.Publisher
	dir            *Directory
	logger         *zap.Logger
}

func NewRequestService(db *gorm.DB, repos *repository.Repositories, classification *ClassificationService, blobs blob.Store, pub notify.Publisher, dir *Directory, logger *zap.Logger) *RequestService {
	return &RequestService{
		db:             db,
		repos:          repos,
		classification: classification,
		blobs:          blobs,
		pub:            pub,
		dir:            dir,
		logger:         logger,
	}
}

// ItemRequestInput catalog request fields. Codes left blank are generated
// from the names; CimconPartNo left blank is assembled from the codes.
type ItemRequestInput struct {
	ProductName        string `json:"product_name"`
	ProductCode        string `json:"product_code"`
	SubCategoryName    string `json:"sub_category_name"`
	SubCategoryCode    string `json:"sub_category_code"`
	MakeName           string `json:"make_name"`
	MakeCode           string `json:"make_code"`
	ModelName          string `json:"model_name"`
	ModelCode          string `json:"model_code"`
	RemarksDescription string `json:"remarks_description"`
	RemarksCode        string `json:"remarks_code"`
	RatingValue        string `json:"rating_value"`
	RatingCode         string `json:"rating_code"`

	MfgPartNo   string `json:"mfg_part_no"`
	Description string `json:"description"`
	UOM         string `json:"uom"`
	MOQ         int    `json:"moq"`
	LeadTime    int    `json:"lead_time"`
	HSNCode     string `json:"hsn_code"`
	Bin         string `json:"bin"`

	CimconPartNo    string `json:"cimcon_part_no"`
	SendForApproval bool   `json:"send_for_approval"`
}

func (in *ItemRequestInput) trim() {
	for _, p := range []*string{
		&in.ProductName, &in.SubCategoryName, &in.MakeName, &in.ModelName,
		&in.RemarksDescription, &in.RatingValue, &in.MfgPartNo, &in.Description,
		&in.UOM, &in.HSNCode, &in.Bin,
	} {
		*p = strings.TrimSpace(*p)
	}
	for _, p := range []*string{
		&in.ProductCode, &in.SubCategoryCode, &in.MakeCode, &in.ModelCode,
		&in.RemarksCode, &in.RatingCode, &in.CimconPartNo,
	} {
		*p = strings.ToUpper(strings.TrimSpace(*p))
	}
}

func (in *ItemRequestInput) validate() error {
	var missing []string
	for field, v := range map[string]string{
		"product_name": in.ProductName,
		"make_name":    in.MakeName,
		"mfg_part_no":  in.MfgPartNo,
		"description":  in.Description,
		"uom":          in.UOM,
	} {
		if v == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return apperr.Validation("missing mandatory fields", missing...)
	}
	if in.MOQ < 0 || in.LeadTime < 0 {
		return apperr.Validation("moq and lead_time must not be negative", "moq", "lead_time")
	}
	return nil
}

// SubmitItemRequest creates a catalog request as draft or pending. The
// optional document is stored before the row and removed if the insert fails.
func (s *RequestService) SubmitItemRequest(ctx context.Context, requestor string, in *ItemRequestInput, doc *Upload) (*entity.ItemRequest, error) {
	in.trim()
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.fillItemCodes(ctx, in); err != nil {
		return nil, err
	}
	partNo, err := itemPartNumber(in)
	if err != nil {
		return nil, err
	}

	status := entity.RequestStatusDraft
	if in.SendForApproval {
		status = entity.RequestStatusPending
	}
	req := &entity.ItemRequest{
		ID:            entity.NewID(),
		Requestor:     requestor,
		RequestorName: s.dir.DisplayName(ctx, requestor),
		Status:        status,
		CimconPartNo:  partNo,
	}
	applyItemInput(req, in)

	if doc.present() {
		req.DocumentPath = blob.ItemRequestDocumentPath(req.ID, doc.FileName)
		if err := s.blobs.Put(ctx, req.DocumentPath, doc.Content, doc.Size, doc.ContentType); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	var pending notify.Pending
	err = transact(ctx, s.db, func(r *repository.Repositories) error {
		if err := r.Request.CreateItemRequest(ctx, req); err != nil {
			return err
		}
		if err := r.ActivityLog.LogActivity(ctx, entity.ActivityEntityItemRequest, req.ID, partNo,
			"submit", "", status, "", requestor); err != nil {
			return err
		}
		if status == entity.RequestStatusPending {
			pending.Add(s.submittedEvent(ctx, req.View()))
		}
		return nil
	})
	if err != nil {
		removeQuietly(ctx, s.blobs, s.logger, req.DocumentPath)
		return nil, err
	}
	pending.Flush(s.pub)
	s.logger.Info("item request submitted",
		zap.String("id", req.ID), zap.String("part_no", partNo), zap.String("status", status))
	return req, nil
}

type UpdateItemRequestInput struct {
	ItemRequestInput
	NewStatus string `json:"new_status"`
}

// UpdateItemRequest edits a non-terminal request and optionally moves it to
// NewStatus. Moving to pending clears the rejection reason and notifies approvers.
func (s *RequestService) UpdateItemRequest(ctx context.Context, id, operator string, in *UpdateItemRequestInput) (*entity.ItemRequest, error) {
	in.trim()
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.fillItemCodes(ctx, &in.ItemRequestInput); err != nil {
		return nil, err
	}
	partNo, err := itemPartNumber(&in.ItemRequestInput)
	if err != nil {
		return nil, err
	}

	var out *entity.ItemRequest
	var pending notify.Pending
	err = transact(ctx, s.db, func(r *repository.Repositories) error {
		req, err := r.Request.LockItemRequest(ctx, id)
		if err != nil {
			return orNotFound(err, "item_request", id)
		}
		if req.Status == entity.RequestStatusApproved {
			return apperr.InvalidTransition("item_request", req.Status, "edit")
		}
		from := req.Status
		to := strings.TrimSpace(in.NewStatus)
		if to != "" && to != from {
			if !entity.CanTransitionRequest(from, to) || to == entity.RequestStatusApproved || to == entity.RequestStatusRejected {
				return apperr.InvalidTransition("item_request", from, to)
			}
			req.Status = to
		}
		applyItemInput(req, &in.ItemRequestInput)
		req.CimconPartNo = partNo
		if req.Status == entity.RequestStatusPending && from != entity.RequestStatusPending {
			req.RejectionReason = ""
			req.RejectedBy = ""
			pending.Add(s.submittedEvent(ctx, req.View()))
		}
		if err := r.Request.SaveItemRequest(ctx, req); err != nil {
			return err
		}
		out = req
		return r.ActivityLog.LogActivity(ctx, entity.ActivityEntityItemRequest, req.ID, partNo,
			"update", from, req.Status, "", operator)
	})
	if err != nil {
		return nil, err
	}
	pending.Flush(s.pub)
	return out, nil
}

// ApproveItemRequest promotes a pending request into the item master.
// Classification rows named by the request's codes are created when missing.
// Approving an already approved request succeeds without side effects.
func (s *RequestService) ApproveItemRequest(ctx context.Context, id, approver string) (*entity.ItemRequest, error) {
	var out *entity.ItemRequest
	var productID string
	var pending notify.Pending
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		req, err := r.Request.LockItemRequest(ctx, id)
		if err != nil {
			return orNotFound(err, "item_request", id)
		}
		out = req
		if req.Status == entity.RequestStatusApproved {
			return nil
		}
		if req.Status != entity.RequestStatusPending {
			return apperr.InvalidTransition("item_request", req.Status, entity.RequestStatusApproved)
		}

		assembled := req.CimconPartNo == codegen.AssembleItem(requestParts(req))
		product, err := s.lockItemProduct(ctx, r, req)
		if err != nil {
			return err
		}
		if err := s.settleItemCodes(ctx, r, req, product.ID); err != nil {
			return err
		}
		if assembled {
			req.CimconPartNo = codegen.AssembleItem(requestParts(req))
		}
		master, err := s.ensureItemClassification(ctx, r, req, product.ID)
		if err != nil {
			return err
		}
		productID = master.ProductID
		inserted, err := r.Request.InsertItemMaster(ctx, master)
		if err != nil {
			return err
		}
		if !inserted {
			s.logger.Info("item master already present", zap.String("part_no", req.CimconPartNo))
		}

		now := time.Now()
		req.Status = entity.RequestStatusApproved
		req.ApprovedBy = approver
		req.ApprovedAt = &now
		if err := r.Request.SaveItemRequest(ctx, req); err != nil {
			return err
		}
		if err := r.ActivityLog.LogActivity(ctx, entity.ActivityEntityItemRequest, req.ID, req.CimconPartNo,
			"approve", entity.RequestStatusPending, entity.RequestStatusApproved, "", approver); err != nil {
			return err
		}
		pending.Add(decisionEvent(notify.ItemRequestApproved, req.View(), approver))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if productID != "" {
		s.classification.invalidateProduct(ctx, productID)
	}
	pending.Flush(s.pub)
	return out, nil
}

// lockItemProduct finds the request's product by name, or creates it under
// the request's code, and locks the row. A code held by a differently named
// product is a conflict.
func (s *RequestService) lockItemProduct(ctx context.Context, r *repository.Repositories, req *entity.ItemRequest) (*entity.Product, error) {
	cr := r.Classification
	product, err := cr.FindProductByName(ctx, req.ProductName)
	if errors.Is(err, repository.ErrNotFound) {
		product, err = cr.EnsureProduct(ctx, &entity.Product{Name: orCode(req.ProductName, req.ProductCode), Code: req.ProductCode})
		if err == nil && !strings.EqualFold(product.Name, orCode(req.ProductName, req.ProductCode)) {
			return nil, apperr.Conflict("product code "+product.Code+" belongs to "+product.Name, req.ProductName)
		}
	}
	if err != nil {
		return nil, err
	}
	req.ProductCode = product.Code
	return cr.LockProduct(ctx, product.ID)
}

// settleItemCodes runs under the product lock. A name that is already
// classified takes its stored code. A new name keeps the code it was
// submitted with unless another name claimed that code in the meantime, in
// which case it gets the next free one.
func (s *RequestService) settleItemCodes(ctx context.Context, r *repository.Repositories, req *entity.ItemRequest, productID string) error {
	fields := []struct {
		kind  codegen.Kind
		name  string
		code  *string
		model interface{}
	}{
		{codegen.KindSubCategory, req.SubCategoryName, &req.SubCategoryCode, &entity.SubCategory{}},
		{codegen.KindMake, req.MakeName, &req.MakeCode, &entity.Make{}},
		{codegen.KindModel, req.ModelName, &req.ModelCode, &entity.ProductModel{}},
		{codegen.KindRemarks, req.RemarksDescription, &req.RemarksCode, &entity.Remarks{}},
	}
	for _, f := range fields {
		if f.name == "" || *f.code == "" {
			continue
		}
		code, existing, err := s.classification.resolve(ctx, r, f.kind, productID, f.name)
		if err != nil {
			return err
		}
		if existing != nil {
			*f.code = existing.Code
			continue
		}
		taken, err := r.Classification.CodeTaken(ctx, f.model, productID, *f.code)
		if err != nil {
			return err
		}
		if taken {
			s.logger.Info("item request code reassigned",
				zap.String("request_id", req.ID), zap.String("kind", string(f.kind)),
				zap.String("from", *f.code), zap.String("to", code))
			*f.code = code
		}
	}
	return nil
}

func requestParts(req *entity.ItemRequest) codegen.ItemParts {
	return codegen.ItemParts{
		Product:     req.ProductCode,
		SubCategory: req.SubCategoryCode,
		Make:        req.MakeCode,
		Model:       req.ModelCode,
		Remarks:     req.RemarksCode,
		Rating:      req.RatingCode,
	}
}

// ensureItemClassification upserts every classification row the request
// references and returns the master row pointing at them.
func (s *RequestService) ensureItemClassification(ctx context.Context, r *repository.Repositories, req *entity.ItemRequest, pid string) (*entity.ItemMaster, error) {
	cr := r.Classification
	master := &entity.ItemMaster{
		CimconPartNo: req.CimconPartNo,
		ProductID:    pid,
		Description:  req.Description,
		MfgPartNo:    req.MfgPartNo,
		MakeName:     req.MakeName,
		UOM:          req.UOM,
		MOQ:          req.MOQ,
		LeadTime:     req.LeadTime,
		HSNCode:      req.HSNCode,
		Bin:          req.Bin,
		DocumentPath: req.DocumentPath,
		RequestID:    req.ID,
		CreatedBy:    req.Requestor,
	}

	if req.SubCategoryCode != "" {
		row, err := repository.Ensure(ctx, cr, &entity.SubCategory{
			ID: entity.NewID(), ProductID: pid, Name: orCode(req.SubCategoryName, req.SubCategoryCode), Code: req.SubCategoryCode,
		}, pid, req.SubCategoryCode)
		if err != nil {
			return nil, err
		}
		master.SubCategoryID = row.ID
		master.MaterialGroup = row.Name
	}
	if req.MakeCode != "" {
		row, err := repository.Ensure(ctx, cr, &entity.Make{
			ID: entity.NewID(), ProductID: pid, Name: orCode(req.MakeName, req.MakeCode), Code: req.MakeCode,
		}, pid, req.MakeCode)
		if err != nil {
			return nil, err
		}
		master.MakeID = row.ID
	}
	if req.ModelCode != "" {
		row, err := repository.Ensure(ctx, cr, &entity.ProductModel{
			ID: entity.NewID(), ProductID: pid, Name: orCode(req.ModelName, req.ModelCode), Code: req.ModelCode,
		}, pid, req.ModelCode)
		if err != nil {
			return nil, err
		}
		master.ModelID = row.ID
	}
	if req.RemarksCode != "" {
		row, err := repository.Ensure(ctx, cr, &entity.Remarks{
			ID: entity.NewID(), ProductID: pid, Description: orCode(req.RemarksDescription, req.RemarksCode), Code: req.RemarksCode,
		}, pid, req.RemarksCode)
		if err != nil {
			return nil, err
		}
		master.RemarksID = row.ID
	}
	if req.RatingCode != "" {
		row, err := repository.Ensure(ctx, cr, &entity.Rating{
			ID: entity.NewID(), ProductID: pid, Value: orCode(req.RatingValue, req.RatingCode), Code: req.RatingCode,
		}, pid, req.RatingCode)
		if err != nil {
			return nil, err
		}
		master.RatingID = row.ID
	}
	return master, nil
}

// RejectItemRequest records the reason; only pending requests can be rejected.
func (s *RequestService) RejectItemRequest(ctx context.Context, id, approver, reason string) (*entity.ItemRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required", "reason")
	}
	var out *entity.ItemRequest
	var pending notify.Pending
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		req, err := r.Request.LockItemRequest(ctx, id)
		if err != nil {
			return orNotFound(err, "item_request", id)
		}
		if req.Status != entity.RequestStatusPending {
			return apperr.InvalidTransition("item_request", req.Status, entity.RequestStatusRejected)
		}
		req.Status = entity.RequestStatusRejected
		req.RejectionReason = reason
		req.RejectedBy = approver
		if err := r.Request.SaveItemRequest(ctx, req); err != nil {
			return err
		}
		out = req
		pending.Add(decisionEvent(notify.ItemRequestRejected, req.View(), approver))
		return r.ActivityLog.LogActivity(ctx, entity.ActivityEntityItemRequest, req.ID, req.CimconPartNo,
			"reject", entity.RequestStatusPending, entity.RequestStatusRejected, reason, approver)
	})
	if err != nil {
		return nil, err
	}
	pending.Flush(s.pub)
	return out, nil
}

func (s *RequestService) GetItemRequest(ctx context.Context, id string) (*entity.ItemRequest, error) {
	req, err := s.repos.Request.FindItemRequest(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "item_request", id)
	}
	return req, nil
}

func (s *RequestService) GetItemMaster(ctx context.Context, partNo string) (*entity.ItemMaster, error) {
	m, err := s.repos.Request.FindItemMaster(ctx, partNo)
	if err != nil {
		return nil, orNotFound(err, "item_master", partNo)
	}
	return m, nil
}

func (s *RequestService) ListItemMasters(ctx context.Context, page, pageSize int, search string) ([]entity.ItemMaster, int64, error) {
	return s.repos.Request.ListItemMasters(ctx, page, pageSize, search)
}

// fillItemCodes derives blank codes from names. Children of a product that
// already exists are resolved against the store; otherwise the first code of
// each sequence is used.
func (s *RequestService) fillItemCodes(ctx context.Context, in *ItemRequestInput) error {
	var productID string
	if p, err := s.repos.Classification.FindProductByName(ctx, in.ProductName); err == nil {
		productID = p.ID
		if in.ProductCode == "" {
			in.ProductCode = p.Code
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if in.ProductCode == "" {
		code, err := codegen.ProductCode(in.ProductName)
		if err != nil {
			return codeError(err, in.ProductName)
		}
		in.ProductCode = code
	}

	fields := []struct {
		kind  codegen.Kind
		name  string
		code  *string
		fresh func(name string) (string, error)
	}{
		{codegen.KindSubCategory, in.SubCategoryName, &in.SubCategoryCode, func(string) (string, error) { return codegen.NextSubCategoryCode(nil) }},
		{codegen.KindMake, in.MakeName, &in.MakeCode, codegen.MakeCode},
		{codegen.KindModel, in.ModelName, &in.ModelCode, func(string) (string, error) { return codegen.SmallestUnused(nil, codegen.ModelWidth) }},
		{codegen.KindRemarks, in.RemarksDescription, &in.RemarksCode, func(string) (string, error) { return codegen.SmallestUnused(nil, codegen.RemarksWidth) }},
		{codegen.KindRating, in.RatingValue, &in.RatingCode, codegen.RatingCode},
	}
	for _, f := range fields {
		if *f.code != "" {
			if !codegen.ValidCode(f.kind, *f.code) {
				return apperr.Validation("malformed "+string(f.kind)+" code", string(f.kind)+"_code")
			}
			continue
		}
		if f.name == "" {
			continue
		}
		var code string
		var err error
		if productID != "" {
			code, _, err = s.classification.resolve(ctx, s.repos, f.kind, productID, f.name)
			if f.kind == codegen.KindRating && apperr.Is(err, apperr.KindConflict) {
				code, err = codeForValue(f.kind, f.name)
			}
		} else {
			code, err = f.fresh(f.name)
			err = codeError(err, f.name)
		}
		if err != nil {
			return err
		}
		*f.code = code
	}
	if !codegen.ValidCode(codegen.KindProduct, in.ProductCode) {
		return apperr.Validation("malformed product code", "product_code")
	}
	return nil
}

func itemPartNumber(in *ItemRequestInput) (string, error) {
	if in.CimconPartNo != "" {
		if !codegen.ValidPartNumber(in.CimconPartNo) {
			return "", apperr.Validation("cimcon_part_no may only hold A-Z, 0-9 and '-' (max 32)", "cimcon_part_no")
		}
		return in.CimconPartNo, nil
	}
	return codegen.AssembleItem(codegen.ItemParts{
		Product:     in.ProductCode,
		SubCategory: in.SubCategoryCode,
		Make:        in.MakeCode,
		Model:       in.ModelCode,
		Remarks:     in.RemarksCode,
		Rating:      in.RatingCode,
	}), nil
}

func applyItemInput(req *entity.ItemRequest, in *ItemRequestInput) {
	req.ProductName = in.ProductName
	req.ProductCode = in.ProductCode
	req.SubCategoryName = in.SubCategoryName
	req.SubCategoryCode = in.SubCategoryCode
	req.MakeName = in.MakeName
	req.MakeCode = in.MakeCode
	req.ModelName = in.ModelName
	req.ModelCode = in.ModelCode
	req.RemarksDescription = in.RemarksDescription
	req.RemarksCode = in.RemarksCode
	req.RatingValue = in.RatingValue
	req.RatingCode = in.RatingCode
	req.MfgPartNo = in.MfgPartNo
	req.Description = in.Description
	req.UOM = in.UOM
	req.MOQ = in.MOQ
	req.LeadTime = in.LeadTime
	req.HSNCode = in.HSNCode
	req.Bin = in.Bin
}

func orCode(name, code string) string {
	if name != "" {
		return name
	}
	return code
}

// === Factory requests ===

// FactoryRequestInput factory part request fields; rating and package codes
// are derived from their values when blank.
type FactoryRequestInput struct {
	ProductID          string `json:"product_id" binding:"required"`
	MakeID             string `json:"make_id" binding:"required"`
	MfgPartNo          string `json:"mfg_part_no" binding:"required"`
	RatingValue        string `json:"rating_value"`
	RatingCode         string `json:"rating_code"`
	PackageDescription string `json:"package_description"`
	PackageCode        string `json:"package_code"`
	Description        string `json:"description"`
	UOM                string `json:"uom"`
	SendForApproval    bool   `json:"send_for_approval"`
}

// SubmitFactoryItemRequest allocates the MPN code inside the submit
// transaction and assembles the factory part number from it.
func (s *RequestService) SubmitFactoryItemRequest(ctx context.Context, requestor string, in *FactoryRequestInput) (*entity.FactoryItemRequest, error) {
	in.MfgPartNo = strings.TrimSpace(in.MfgPartNo)
	in.RatingValue = strings.TrimSpace(in.RatingValue)
	in.PackageDescription = strings.TrimSpace(in.PackageDescription)
	in.RatingCode = strings.ToUpper(strings.TrimSpace(in.RatingCode))
	in.PackageCode = strings.ToUpper(strings.TrimSpace(in.PackageCode))
	if in.ProductID == "" || in.MakeID == "" || in.MfgPartNo == "" {
		return nil, apperr.Validation("product_id, make_id and mfg_part_no are required", "product_id", "make_id", "mfg_part_no")
	}
	if in.RatingValue == "" && in.RatingCode == "" {
		return nil, apperr.Validation("rating is required", "rating_value")
	}
	if in.PackageDescription == "" && in.PackageCode == "" {
		return nil, apperr.Validation("package is required", "package_description")
	}

	status := entity.RequestStatusDraft
	if in.SendForApproval {
		status = entity.RequestStatusPending
	}
	requestorName := s.dir.DisplayName(ctx, requestor)

	var out *entity.FactoryItemRequest
	var pending notify.Pending
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		product, err := r.Classification.FindProductByID(ctx, in.ProductID)
		if err != nil {
			return orNotFound(err, "product", in.ProductID)
		}
		mpn, mk, err := s.classification.allocateMPN(ctx, r, in.MakeID, in.MfgPartNo)
		if err != nil {
			return err
		}
		if mk.ProductID != product.ID {
			return apperr.Validation("make does not belong to product", "make_id")
		}

		ratingCode, err := s.factoryCode(ctx, r, codegen.KindRating, product.ID, in.RatingValue, in.RatingCode)
		if err != nil {
			return err
		}
		packageCode, err := s.factoryCode(ctx, r, codegen.KindPackage, product.ID, in.PackageDescription, in.PackageCode)
		if err != nil {
			return err
		}

		req := &entity.FactoryItemRequest{
			Requestor:          requestor,
			RequestorName:      requestorName,
			Status:             status,
			ProductID:          product.ID,
			ProductName:        product.Name,
			ProductCode:        product.Code,
			MakeID:             mk.ID,
			MakeName:           mk.Name,
			MakeCode:           mk.Code,
			MPNID:              mpn.ID,
			MfgPartNo:          in.MfgPartNo,
			MPNCode:            mpn.Code,
			RatingValue:        orCode(in.RatingValue, ratingCode),
			RatingCode:         ratingCode,
			PackageDescription: orCode(in.PackageDescription, packageCode),
			PackageCode:        packageCode,
			Description:        strings.TrimSpace(in.Description),
			UOM:                strings.TrimSpace(in.UOM),
		}
		req.FullPartNumber = codegen.AssembleFactory(codegen.FactoryParts{
			Product: product.Code,
			Make:    mk.Code,
			MPN:     mpn.Code,
			Rating:  ratingCode,
			Package: packageCode,
		})
		if err := r.Request.CreateFactoryRequest(ctx, req); err != nil {
			return err
		}
		out = req
		if status == entity.RequestStatusPending {
			pending.Add(s.submittedEvent(ctx, req.View()))
		}
		return r.ActivityLog.LogActivity(ctx, entity.ActivityEntityFactoryItemRequest, req.ID, req.FullPartNumber,
			"submit", "", status, "", requestor)
	})
	if err != nil {
		return nil, err
	}
	s.classification.invalidateProduct(ctx, in.ProductID)
	pending.Flush(s.pub)
	s.logger.Info("factory request submitted",
		zap.String("id", out.ID), zap.String("part_no", out.FullPartNumber))
	return out, nil
}

// factoryCode takes the supplied code, the code of an existing row with the
// same value, or a freshly generated one.
func (s *RequestService) factoryCode(ctx context.Context, r *repository.Repositories, kind codegen.Kind, productID, value, code string) (string, error) {
	if code != "" {
		if !codegen.ValidCode(kind, code) {
			return "", apperr.Validation("malformed "+string(kind)+" code", string(kind)+"_code")
		}
		return code, nil
	}
	code, existing, err := s.classification.resolve(ctx, r, kind, productID, value)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			// another value owns the code; the part number only embeds the code
			return codeForValue(kind, value)
		}
		return "", err
	}
	if existing != nil {
		return existing.Code, nil
	}
	return code, nil
}

func codeForValue(kind codegen.Kind, value string) (string, error) {
	var code string
	var err error
	if kind == codegen.KindRating {
		code, err = codegen.RatingCode(value)
	} else {
		code, err = codegen.PackageCode(value)
	}
	return code, codeError(err, value)
}

// ApproveFactoryRequest inserts the factory master row and upserts the rating
// and package rows its codes name.
func (s *RequestService) ApproveFactoryRequest(ctx context.Context, id, approver string) (*entity.FactoryItemRequest, error) {
	var out *entity.FactoryItemRequest
	var pending notify.Pending
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		req, err := r.Request.LockFactoryRequest(ctx, id)
		if err != nil {
			return orNotFound(err, "factory_item_request", id)
		}
		out = req
		if req.Status == entity.RequestStatusApproved {
			return nil
		}
		if req.Status != entity.RequestStatusPending {
			return apperr.InvalidTransition("factory_item_request", req.Status, entity.RequestStatusApproved)
		}

		cr := r.Classification
		if _, err := repository.Ensure(ctx, cr, &entity.Rating{
			ID: entity.NewID(), ProductID: req.ProductID, Value: req.RatingValue, Code: req.RatingCode,
		}, req.ProductID, req.RatingCode); err != nil {
			return err
		}
		if _, err := repository.Ensure(ctx, cr, &entity.Package{
			ID: entity.NewID(), ProductID: req.ProductID, Description: req.PackageDescription, Code: req.PackageCode,
		}, req.ProductID, req.PackageCode); err != nil {
			return err
		}
		if _, err := r.Request.InsertFactoryMaster(ctx, &entity.FactoryItemMaster{
			FullPartNumber:     req.FullPartNumber,
			ProductName:        req.ProductName,
			ProductCode:        req.ProductCode,
			MakeName:           req.MakeName,
			MakeCode:           req.MakeCode,
			MfgPartNo:          req.MfgPartNo,
			MPNCode:            req.MPNCode,
			RatingValue:        req.RatingValue,
			RatingCode:         req.RatingCode,
			PackageDescription: req.PackageDescription,
			PackageCode:        req.PackageCode,
			Description:        req.Description,
			UOM:                req.UOM,
			RequestID:          req.ID,
			CreatedBy:          req.Requestor,
			ApprovedBy:         approver,
		}); err != nil {
			return err
		}

		now := time.Now()
		req.Status = entity.RequestStatusApproved
		req.ApprovedBy = approver
		req.ApprovedAt = &now
		if err := r.Request.SaveFactoryRequest(ctx, req); err != nil {
			return err
		}
		pending.Add(decisionEvent(notify.ItemRequestApproved, req.View(), approver))
		return r.ActivityLog.LogActivity(ctx, entity.ActivityEntityFactoryItemRequest, req.ID, req.FullPartNumber,
			"approve", entity.RequestStatusPending, entity.RequestStatusApproved, "", approver)
	})
	if err != nil {
		return nil, err
	}
	s.classification.invalidateProduct(ctx, out.ProductID)
	pending.Flush(s.pub)
	return out, nil
}

func (s *RequestService) RejectFactoryRequest(ctx context.Context, id, approver, reason string) (*entity.FactoryItemRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required", "reason")
	}
	var out *entity.FactoryItemRequest
	var pending notify.Pending
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		req, err := r.Request.LockFactoryRequest(ctx, id)
		if err != nil {
			return orNotFound(err, "factory_item_request", id)
		}
		if req.Status != entity.RequestStatusPending {
			return apperr.InvalidTransition("factory_item_request", req.Status, entity.RequestStatusRejected)
		}
		req.Status = entity.RequestStatusRejected
		req.RejectionReason = reason
		req.RejectedBy = approver
		if err := r.Request.SaveFactoryRequest(ctx, req); err != nil {
			return err
		}
		out = req
		pending.Add(decisionEvent(notify.ItemRequestRejected, req.View(), approver))
		return r.ActivityLog.LogActivity(ctx, entity.ActivityEntityFactoryItemRequest, req.ID, req.FullPartNumber,
			"reject", entity.RequestStatusPending, entity.RequestStatusRejected, reason, approver)
	})
	if err != nil {
		return nil, err
	}
	pending.Flush(s.pub)
	return out, nil
}

// SendFactoryRequest moves a draft or rejected factory request to pending.
func (s *RequestService) SendFactoryRequest(ctx context.Context, id, operator string) (*entity.FactoryItemRequest, error) {
	var out *entity.FactoryItemRequest
	var pending notify.Pending
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		req, err := r.Request.LockFactoryRequest(ctx, id)
		if err != nil {
			return orNotFound(err, "factory_item_request", id)
		}
		from := req.Status
		if from == entity.RequestStatusPending {
			out = req
			return nil
		}
		if !entity.CanTransitionRequest(from, entity.RequestStatusPending) {
			return apperr.InvalidTransition("factory_item_request", from, entity.RequestStatusPending)
		}
		req.Status = entity.RequestStatusPending
		req.RejectionReason = ""
		req.RejectedBy = ""
		if err := r.Request.SaveFactoryRequest(ctx, req); err != nil {
			return err
		}
		out = req
		pending.Add(s.submittedEvent(ctx, req.View()))
		return r.ActivityLog.LogActivity(ctx, entity.ActivityEntityFactoryItemRequest, req.ID, req.FullPartNumber,
			"submit", from, entity.RequestStatusPending, "", operator)
	})
	if err != nil {
		return nil, err
	}
	pending.Flush(s.pub)
	return out, nil
}

// === Combined approval pipeline ===

// ApproveRequest dispatches on the request family.
func (s *RequestService) ApproveRequest(ctx context.Context, kind entity.RequestKind, id, approver string) (*entity.RequestView, error) {
	switch kind {
	case entity.RequestKindCatalog:
		req, err := s.ApproveItemRequest(ctx, id, approver)
		return viewOf(req, err)
	case entity.RequestKindFactory:
		req, err := s.ApproveFactoryRequest(ctx, id, approver)
		return viewOf(req, err)
	}
	return nil, apperr.Validation("unknown request kind", "kind")
}

func (s *RequestService) RejectRequest(ctx context.Context, kind entity.RequestKind, id, approver, reason string) (*entity.RequestView, error) {
	switch kind {
	case entity.RequestKindCatalog:
		req, err := s.RejectItemRequest(ctx, id, approver, reason)
		return viewOf(req, err)
	case entity.RequestKindFactory:
		req, err := s.RejectFactoryRequest(ctx, id, approver, reason)
		return viewOf(req, err)
	}
	return nil, apperr.Validation("unknown request kind", "kind")
}

func viewOf[R entity.Request](req R, err error) (*entity.RequestView, error) {
	if err != nil {
		return nil, err
	}
	v := req.View()
	return &v, nil
}

// ListApprovalQueue projects both request families into one list, oldest first.
func (s *RequestService) ListApprovalQueue(ctx context.Context, status string) ([]entity.RequestView, error) {
	items, err := s.repos.Request.ListItemRequests(ctx, status)
	if err != nil {
		return nil, err
	}
	factory, err := s.repos.Request.ListFactoryRequests(ctx, status)
	if err != nil {
		return nil, err
	}
	reqs := make([]entity.Request, 0, len(items)+len(factory))
	for i := range items {
		reqs = append(reqs, &items[i])
	}
	for i := range factory {
		reqs = append(reqs, &factory[i])
	}
	out := make([]entity.RequestView, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.View())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *RequestService) GetFactoryRequest(ctx context.Context, id string) (*entity.FactoryItemRequest, error) {
	req, err := s.repos.Request.FindFactoryRequest(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "factory_item_request", id)
	}
	return req, nil
}

func (s *RequestService) submittedEvent(ctx context.Context, v entity.RequestView) notify.Event {
	return notify.New(notify.ItemRequestSubmitted,
		"New "+string(v.Kind)+" item request "+v.PartNumber,
		s.dir.Emails(ctx, entity.RoleApprover, ""),
		map[string]interface{}{"request": v})
}

func decisionEvent(t notify.EventType, v entity.RequestView, approver string) notify.Event {
	return notify.New(t, "Item request "+v.PartNumber+" "+v.Status, []string{v.Requestor},
		map[string]interface{}{"request": v, "by": approver})
}
