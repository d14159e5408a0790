package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/codegen"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/blob"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/notify"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/render"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// POService purchase orders built from verified master rows
type POService struct {
	db       *gorm.DB
	repos    *repository.Repositories
	blobs    blob.Store
	renderer render.Renderer
	pub      notify.Publisher
	dir      *Directory
	logger   *zap.Logger
}

func NewPOService(db *gorm.DB, repos *repository.Repositories, blobs blob.Store, renderer render.Renderer, pub notify.Publisher, dir *Directory, logger *zap.Logger) *POService {
	return &POService{db: db, repos: repos, blobs: blobs, renderer: renderer, pub: pub, dir: dir, logger: logger}
}

type POLineInput struct {
	MasterID      string `json:"master_id" binding:"required"`
	UnitPrice     string `json:"unit_price"`
	HSNCode       string `json:"hsn_code"`
	UOM           string `json:"uom"`
	MaterialGroup string `json:"material_group"`
}

// CreatePOInput PONumber is generated when blank.
type CreatePOInput struct {
	PONumber      string        `json:"po_number"`
	VendorID      string        `json:"vendor_id" binding:"required"`
	ProjectCode   string        `json:"project_code"`
	PODate        time.Time     `json:"po_date"`
	Currency      string        `json:"currency"`
	BillTo        string        `json:"bill_to"`
	ShipTo        string        `json:"ship_to"`
	PaymentTerms  string        `json:"payment_terms"`
	DeliveryTerms string        `json:"delivery_terms"`
	Warranty      string        `json:"warranty"`
	Notes         string        `json:"notes"`
	Lines         []POLineInput `json:"lines" binding:"required"`
}

// CreatePO consumes In Progress master rows; each becomes one line carrying
// the master's ordering quantity, and the masters move to Ordered.
func (s *POService) CreatePO(ctx context.Context, creator string, in *CreatePOInput) (*entity.PurchaseOrder, error) {
	if len(in.Lines) == 0 {
		return nil, apperr.Validation("purchase order needs at least one line", "lines")
	}
	prices := make(map[string]decimal.Decimal, len(in.Lines))
	ids := make([]string, 0, len(in.Lines))
	for _, l := range in.Lines {
		if _, dup := prices[l.MasterID]; dup {
			return nil, apperr.Validation("master listed twice: "+l.MasterID, "master_id")
		}
		price := decimal.Zero
		if p := strings.TrimSpace(l.UnitPrice); p != "" {
			d, err := decimal.NewFromString(p)
			if err != nil || d.IsNegative() {
				return nil, apperr.Validation("unit_price is not a valid amount: "+l.UnitPrice, "unit_price")
			}
			price = d
		}
		prices[l.MasterID] = price
		ids = append(ids, l.MasterID)
	}
	poDate := in.PODate
	if poDate.IsZero() {
		poDate = time.Now()
	}

	var po *entity.PurchaseOrder
	var pending notify.Pending
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		vendor, err := r.Vendor.FindByID(ctx, in.VendorID)
		if err != nil {
			return orNotFound(err, "vendor", in.VendorID)
		}
		masters, err := r.Master.LockByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(masters) != len(ids) {
			return apperr.NotFound("master", strings.Join(ids, ","))
		}
		byID := make(map[string]*entity.Master, len(masters))
		for i := range masters {
			m := &masters[i]
			if m.OrderingStatus != entity.OrderingStatusInProgress {
				return apperr.InvalidTransition("master", m.OrderingStatus, entity.OrderingStatusOrdered)
			}
			if m.OrderingQty <= 0 {
				return apperr.Validation("master "+m.CimconPartNumber+" has nothing to order", "ordering_qty")
			}
			byID[m.ID] = m
		}

		number, err := s.poNumber(ctx, r, in.PONumber, poDate)
		if err != nil {
			return err
		}
		po = &entity.PurchaseOrder{
			PONumber:      number,
			ProjectCode:   strings.TrimSpace(in.ProjectCode),
			VendorID:      vendor.ID,
			VendorName:    vendor.Name,
			VendorEmail:   vendor.Email,
			VendorAddress: vendor.Address,
			VendorGSTIN:   vendor.GSTIN,
			BillTo:        in.BillTo,
			ShipTo:        in.ShipTo,
			PODate:        poDate,
			Currency:      firstNonEmpty(in.Currency, "INR"),
			PaymentTerms:  in.PaymentTerms,
			DeliveryTerms: in.DeliveryTerms,
			Warranty:      in.Warranty,
			Notes:         in.Notes,
			InwardStatus:  entity.InwardStatusOpen,
			CreatedBy:     creator,
		}
		if po.ProjectCode == "" {
			po.ProjectCode = byID[ids[0]].ProjectCode
		}
		if project, err := r.Project.FindByCode(ctx, po.ProjectCode); err == nil {
			po.BillTo = firstNonEmpty(po.BillTo, project.BillTo)
			po.ShipTo = firstNonEmpty(po.ShipTo, project.ShipTo)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		total := decimal.Zero
		for i, l := range in.Lines {
			m := byID[l.MasterID]
			price := prices[l.MasterID]
			lineTotal := price.Mul(decimal.NewFromInt(int64(m.OrderingQty))).Round(2)
			total = total.Add(lineTotal)
			po.LineItems = append(po.LineItems, entity.POLineItem{
				MasterID:      m.ID,
				ItemNo:        m.CimconPartNumber,
				Description:   m.MaterialDescription,
				Make:          m.Make,
				MaterialGroup: l.MaterialGroup,
				HSNCode:       l.HSNCode,
				UOM:           l.UOM,
				Quantity:      m.OrderingQty,
				UnitPrice:     price,
				TotalPrice:    lineTotal,
				SortOrder:     i + 1,
			})
		}
		po.TotalAmount = total

		if err := r.PO.Create(ctx, po); err != nil {
			return err
		}
		if err := r.Master.SetOrderingStatus(ctx, ids, entity.OrderingStatusOrdered); err != nil {
			return err
		}
		if err := r.ActivityLog.LogActivity(ctx, entity.ActivityEntityPurchaseOrder, po.ID, po.PONumber,
			"create", "", "pending_approval", "", creator); err != nil {
			return err
		}
		pending.Add(notify.New(notify.POCreated, "Purchase order "+po.PONumber+" awaiting approval",
			s.dir.Emails(ctx, entity.RoleApprover, ""),
			map[string]interface{}{"po_number": po.PONumber, "vendor": po.VendorName, "total_amount": po.TotalAmount.StringFixed(2)}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	pending.Flush(s.pub)
	s.logger.Info("purchase order created", zap.String("po_number", po.PONumber), zap.Int("lines", len(po.LineItems)))
	return po, nil
}

// poNumber validates a supplied number or issues the next one of the month
// under the series advisory lock.
func (s *POService) poNumber(ctx context.Context, r *repository.Repositories, supplied string, at time.Time) (string, error) {
	if supplied = strings.TrimSpace(supplied); supplied != "" {
		exists, err := r.PO.Exists(ctx, supplied)
		if err != nil {
			return "", err
		}
		if exists {
			return "", apperr.Conflict("po number already exists", supplied)
		}
		return supplied, nil
	}
	series := codegen.SeriesPrefix(codegen.PrefixPurchaseOrder, at)
	if err := repository.LockSeries(ctx, r.DB(), series); err != nil {
		return "", err
	}
	last, err := r.PO.LastNumber(ctx, series)
	if err != nil {
		return "", err
	}
	number, err := codegen.NextDocumentNumber(codegen.PrefixPurchaseOrder, at, last)
	if err != nil {
		return "", apperr.Conflict(err.Error(), series)
	}
	return number, nil
}

// ApprovePO records the approval. The PO workbook is rendered and stored
// after commit and attached to the vendor notification; a rendering failure
// leaves the approval in place.
func (s *POService) ApprovePO(ctx context.Context, poNumber, approver string) (*entity.PurchaseOrder, error) {
	var po *entity.PurchaseOrder
	var already bool
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		var err error
		po, err = r.PO.LockByNumber(ctx, poNumber)
		if err != nil {
			return orNotFound(err, "purchase_order", poNumber)
		}
		if po.ApprovalStatus {
			already = true
			return nil
		}
		if po.RejectionStatus {
			return apperr.InvalidTransition("purchase_order", "rejected", "approved")
		}
		now := time.Now()
		po.ApprovalStatus = true
		po.ApprovalDate = &now
		po.ApprovedBy = approver
		if err := r.PO.UpdateHeader(ctx, po.ID, map[string]interface{}{
			"approval_status": true,
			"approval_date":   now,
			"approved_by":     approver,
		}); err != nil {
			return err
		}
		return r.ActivityLog.LogActivity(ctx, entity.ActivityEntityPurchaseOrder, po.ID, po.PONumber,
			"approve", "pending_approval", "approved", "", approver)
	})
	if err != nil {
		return nil, err
	}
	if already {
		return po, nil
	}

	event := notify.New(notify.POApproved, "Purchase order "+po.PONumber, []string{po.VendorEmail},
		map[string]interface{}{"po_number": po.PONumber, "vendor": po.VendorName, "total_amount": po.TotalAmount.StringFixed(2)})
	if path, err := s.storeDocument(ctx, po); err != nil {
		s.logger.Error("purchase order document failed", zap.String("po_number", po.PONumber), zap.Error(err))
	} else {
		po.DocumentPath = path
		event.Attachments = []string{path}
	}
	publish(s.pub, event)
	return po, nil
}

func (s *POService) storeDocument(ctx context.Context, po *entity.PurchaseOrder) (string, error) {
	data, err := s.renderer.Render(purchaseOrderDocument(po))
	if err != nil {
		return "", err
	}
	path := blob.PurchaseOrderPath(po.PONumber)
	if err := s.blobs.Put(ctx, path, bytes.NewReader(data), int64(len(data)), blob.XLSXContentType); err != nil {
		return "", err
	}
	if err := s.repos.PO.UpdateHeader(ctx, po.ID, map[string]interface{}{"document_path": path}); err != nil {
		return "", err
	}
	return path, nil
}

func purchaseOrderDocument(po *entity.PurchaseOrder) render.Document {
	doc := render.Document{
		Title:  "Purchase Order",
		Sheet:  "PO",
		Number: po.PONumber,
		Date:   po.PODate,
		Header: []render.Field{
			{Label: "Vendor", Value: po.VendorName},
			{Label: "Vendor Address", Value: po.VendorAddress},
			{Label: "GSTIN", Value: po.VendorGSTIN},
			{Label: "Project", Value: po.ProjectCode},
			{Label: "Bill To", Value: po.BillTo},
			{Label: "Ship To", Value: po.ShipTo},
		},
		Columns: []string{"#", "Item No", "Description", "Make", "HSN", "UOM", "Qty", "Unit Price", "Total"},
		Widths:  []float64{5, 20, 40, 18, 10, 8, 8, 12, 14},
		Footer: []render.Field{
			{Label: "Total (" + po.Currency + ")", Value: po.TotalAmount.StringFixed(2)},
			{Label: "Payment Terms", Value: po.PaymentTerms},
			{Label: "Delivery Terms", Value: po.DeliveryTerms},
			{Label: "Warranty", Value: po.Warranty},
		},
	}
	for i, l := range po.LineItems {
		doc.Rows = append(doc.Rows, []interface{}{
			i + 1, l.ItemNo, l.Description, l.Make, l.HSNCode, l.UOM, l.Quantity,
			l.UnitPrice.StringFixed(2), l.TotalPrice.StringFixed(2),
		})
	}
	return doc
}

// RejectPO only a PO awaiting approval can be rejected.
func (s *POService) RejectPO(ctx context.Context, poNumber, approver, remarks string) (*entity.PurchaseOrder, error) {
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return nil, apperr.Validation("rejection remarks are required", "rejection_remarks")
	}
	var po *entity.PurchaseOrder
	var pending notify.Pending
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		var err error
		po, err = r.PO.LockByNumber(ctx, poNumber)
		if err != nil {
			return orNotFound(err, "purchase_order", poNumber)
		}
		if po.ApprovalStatus || po.RejectionStatus {
			from := "approved"
			if po.RejectionStatus {
				from = "rejected"
			}
			return apperr.InvalidTransition("purchase_order", from, "rejected")
		}
		po.RejectionStatus = true
		po.RejectionRemarks = remarks
		if err := r.PO.UpdateHeader(ctx, po.ID, map[string]interface{}{
			"rejection_status":  true,
			"rejection_remarks": remarks,
		}); err != nil {
			return err
		}
		pending.Add(notify.New(notify.PORejected, "Purchase order "+po.PONumber+" rejected", []string{po.CreatedBy},
			map[string]interface{}{"po_number": po.PONumber, "remarks": remarks, "by": approver}))
		return r.ActivityLog.LogActivity(ctx, entity.ActivityEntityPurchaseOrder, po.ID, po.PONumber,
			"reject", "pending_approval", "rejected", remarks, approver)
	})
	if err != nil {
		return nil, err
	}
	pending.Flush(s.pub)
	return po, nil
}

func (s *POService) GetPO(ctx context.Context, poNumber string) (*entity.PurchaseOrder, error) {
	po, err := s.repos.PO.FindByNumber(ctx, poNumber)
	if err != nil {
		return nil, orNotFound(err, "purchase_order", poNumber)
	}
	return po, nil
}

// ListPOs filters: inward_status, project_code, vendor_id, search.
func (s *POService) ListPOs(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	return s.repos.PO.FindAll(ctx, page, pageSize, filters)
}

func (s *POService) ListInwardEntries(ctx context.Context, poNumber string) ([]entity.InwardEntry, error) {
	return s.repos.PO.ListInwardEntries(ctx, poNumber)
}

// ActivityLog transitions recorded for one PO.
func (s *POService) ActivityLog(ctx context.Context, poNumber string, page, pageSize int) ([]entity.ActivityLog, int64, error) {
	po, err := s.GetPO(ctx, poNumber)
	if err != nil {
		return nil, 0, err
	}
	return s.repos.ActivityLog.FindByEntity(ctx, entity.ActivityEntityPurchaseOrder, po.ID, page, pageSize)
}
