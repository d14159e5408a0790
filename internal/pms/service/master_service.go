package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MasterService turns approved requisitions into pre-PO master rows
type MasterService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	pub    notify.Publisher
	dir    *Directory
	logger *zap.Logger
}

func NewMasterService(db *gorm.DB, repos *repository.Repositories, pub notify.Publisher, dir *Directory, logger *zap.Logger) *MasterService {
	return &MasterService{db: db, repos: repos, pub: pub, dir: dir, logger: logger}
}

// VerifyRowInput numeric fields arrive as entered in the sheet and are parsed
// here. Blank RequiredQuantity takes the requisition quantity, blank SOH is
// zero and blank OrderingQty is the balance.
type VerifyRowInput struct {
	RequisitionID       string `json:"requisition_id" binding:"required"`
	RequiredQuantity    string `json:"required_quantity"`
	SOH                 string `json:"soh"`
	OrderingQty         string `json:"ordering_qty"`
	MaterialDescription string `json:"material_description"`
	Make                string `json:"make"`
	MfgPartNo           string `json:"mfg_part_no"`
}

type VerifyToMasterInput struct {
	BatchID string           `json:"batch_id" binding:"required"`
	Rows    []VerifyRowInput `json:"rows" binding:"required"`
}

// VerifyToMaster creates one master row per approved requisition.
func (s *MasterService) VerifyToMaster(ctx context.Context, verifier string, in *VerifyToMasterInput) ([]string, error) {
	if len(in.Rows) == 0 {
		return nil, apperr.Validation("no rows to verify", "rows")
	}
	byID := make(map[string]VerifyRowInput, len(in.Rows))
	ids := make([]string, 0, len(in.Rows))
	for _, row := range in.Rows {
		if row.RequisitionID == "" {
			return nil, apperr.Validation("requisition_id is required", "requisition_id")
		}
		if _, dup := byID[row.RequisitionID]; dup {
			return nil, apperr.Validation("requisition listed twice: "+row.RequisitionID, "requisition_id")
		}
		byID[row.RequisitionID] = row
		ids = append(ids, row.RequisitionID)
	}

	var masters []entity.Master
	var pending notify.Pending
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		reqs, err := r.Requisition.LockBatchRows(ctx, in.BatchID, ids)
		if err != nil {
			return err
		}
		if len(reqs) != len(ids) {
			found := make(map[string]bool, len(reqs))
			for _, req := range reqs {
				found[req.ID] = true
			}
			for _, id := range ids {
				if !found[id] {
					return apperr.NotFound("requisition", in.BatchID+"/"+id)
				}
			}
		}

		now := time.Now()
		for _, req := range reqs {
			row := byID[req.ID]
			if req.MasterEntryExists {
				return apperr.Conflict("master entry already exists", req.ID)
			}
			if req.Status != entity.RequisitionStatusApproved {
				return apperr.InvalidTransition("requisition", req.Status, "verified")
			}
			m, err := masterFrom(&req, row)
			if err != nil {
				return err
			}
			m.VerifiedBy = verifier
			m.VerificationDate = now
			if err := r.Master.Create(ctx, m); err != nil {
				return err
			}
			if err := r.Requisition.MarkVerified(ctx, req.ID); err != nil {
				return err
			}
			masters = append(masters, *m)
		}

		summary := make([]map[string]interface{}, 0, len(masters))
		for _, m := range masters {
			summary = append(summary, map[string]interface{}{
				"cimcon_part_number": m.CimconPartNumber,
				"description":        m.MaterialDescription,
				"required_quantity":  m.RequiredQuantity,
				"soh":                m.SOH,
				"ordering_qty":       m.OrderingQty,
			})
		}
		pending.Add(notify.New(notify.MasterVerified, "Batch "+in.BatchID+" verified for ordering",
			s.dir.Emails(ctx, entity.RolePurchaser, ""),
			map[string]interface{}{"batch_id": in.BatchID, "rows": summary, "verified_by": verifier}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	pending.Flush(s.pub)

	out := make([]string, 0, len(masters))
	for _, m := range masters {
		out = append(out, m.ID)
	}
	s.logger.Info("requisitions verified", zap.String("batch_id", in.BatchID), zap.Int("rows", len(out)))
	return out, nil
}

func masterFrom(req *entity.Requisition, row VerifyRowInput) (*entity.Master, error) {
	required, err := parseQuantity(row.RequiredQuantity, req.ReqQty, "required_quantity")
	if err != nil {
		return nil, err
	}
	soh, err := parseQuantity(row.SOH, 0, "soh")
	if err != nil {
		return nil, err
	}
	balance := max(required-soh, 0)
	ordering, err := parseQuantity(row.OrderingQty, balance, "ordering_qty")
	if err != nil {
		return nil, err
	}
	if required <= 0 {
		return nil, apperr.Validation("required_quantity must be positive", "required_quantity")
	}

	m := &entity.Master{
		RequisitionID:       req.ID,
		ProjectCode:         req.ProjectCode,
		CimconPartNumber:    req.CimconPartNumber,
		MaterialDescription: firstNonEmpty(row.MaterialDescription, req.MaterialDescription),
		Make:                firstNonEmpty(row.Make, req.Make),
		MfgPartNo:           firstNonEmpty(row.MfgPartNo, req.MfgPartNo),
		RequiredQuantity:    required,
		OrderingQty:         ordering,
		SOH:                 soh,
		BalanceQuantity:     balance,
		BatchID:             req.BatchID,
		OrderingStatus:      entity.OrderingStatusInProgress,
	}
	if m.CimconPartNumber == "" {
		return nil, apperr.Validation("cimcon_part_number is required", "cimcon_part_number")
	}
	return m, nil
}

// parseQuantity blank yields def; anything else must be a non-negative integer.
func parseQuantity(s string, def int, field string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, apperr.Validation(field+" is not a whole number: "+s, field)
		}
		n = int(f)
	}
	if n < 0 {
		return 0, apperr.Validation(field+" must not be negative", field)
	}
	return n, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ListMasters filters: batch_id, project_code, ordering_status.
func (s *MasterService) ListMasters(ctx context.Context, filters map[string]string) ([]entity.Master, error) {
	return s.repos.Master.List(ctx, filters)
}
