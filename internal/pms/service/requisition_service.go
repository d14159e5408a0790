package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/codegen"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/cache"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/notify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// mfgUpdateConcurrency bounds the post-commit item master updates of one batch.
const mfgUpdateConcurrency = 4

// RequisitionService requisition batches, approval and revision history
type RequisitionService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	cache  *cache.Cache
	pub    notify.Publisher
	dir    *Directory
	logger *zap.Logger
}

func NewRequisitionService(db *gorm.DB, repos *repository.Repositories, c *cache.Cache, pub notify.Publisher, dir *Directory, logger *zap.Logger) *RequisitionService {
	return &RequisitionService{db: db, repos: repos, cache: c, pub: pub, dir: dir, logger: logger}
}

type RequisitionRowInput struct {
	CimconPartNumber    string     `json:"cimcon_part_number"`
	MaterialDescription string     `json:"material_description"`
	Make                string     `json:"make"`
	MfgPartNo           string     `json:"mfg_part_no"`
	ReqQty              int        `json:"req_qty"`
	RequiredByDate      *time.Time `json:"required_by_date"`
	Remarks             string     `json:"remarks"`
}

type CreateRequisitionBatchInput struct {
	ProjectCode string                `json:"project_code" binding:"required"`
	Rows        []RequisitionRowInput `json:"rows" binding:"required"`
}

type BatchResult struct {
	BatchID string   `json:"batch_id"`
	IDs     []string `json:"ids"`
}

// CreateRequisitionBatch numbers the batch under the project row lock, so two
// submissions for one project never share a batch id.
func (s *RequisitionService) CreateRequisitionBatch(ctx context.Context, requisitor string, in *CreateRequisitionBatchInput) (*BatchResult, error) {
	if len(in.Rows) == 0 {
		return nil, apperr.Validation("no requisition rows", "rows")
	}
	for i, row := range in.Rows {
		if strings.TrimSpace(row.CimconPartNumber) == "" {
			return nil, apperr.Validation("row "+strconv.Itoa(i+1)+": cimcon_part_number is required", "cimcon_part_number")
		}
		if row.ReqQty <= 0 {
			return nil, apperr.Validation("row "+strconv.Itoa(i+1)+": req_qty must be positive", "req_qty")
		}
	}
	name := s.dir.DisplayName(ctx, requisitor)
	code := strings.ToUpper(strings.TrimSpace(in.ProjectCode))

	var rows []entity.Requisition
	var batchID string
	var pending notify.Pending
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		project, err := r.Project.LockByCode(ctx, code)
		if err != nil {
			return orNotFound(err, "project", code)
		}
		existing, err := r.Requisition.BatchIDs(ctx, project.ID)
		if err != nil {
			return err
		}
		batchID = codegen.NextBatchID(existing, project.ProjectCode)

		rows = make([]entity.Requisition, 0, len(in.Rows))
		for _, row := range in.Rows {
			rows = append(rows, entity.Requisition{
				ProjectID:           project.ID,
				ProjectCode:         project.ProjectCode,
				BatchID:             batchID,
				SubmittedBy:         requisitor,
				RequisitorName:      name,
				CimconPartNumber:    strings.ToUpper(strings.TrimSpace(row.CimconPartNumber)),
				MaterialDescription: row.MaterialDescription,
				Make:                row.Make,
				MfgPartNo:           strings.TrimSpace(row.MfgPartNo),
				ReqQty:              row.ReqQty,
				RequiredByDate:      row.RequiredByDate,
				Remarks:             row.Remarks,
				Status:              entity.RequisitionStatusPending,
			})
		}
		if err := r.Requisition.CreateBatch(ctx, rows); err != nil {
			return err
		}
		if err := r.ActivityLog.LogActivity(ctx, entity.ActivityEntityRequisition, batchID, project.ProjectCode,
			"submit", "", entity.RequisitionStatusPending, strconv.Itoa(len(rows))+" rows", requisitor); err != nil {
			return err
		}
		pending.Add(notify.New(notify.RequisitionBatchSubmitted,
			"Requisition batch "+batchID+" awaiting approval",
			s.dir.Emails(ctx, entity.RoleApprover, project.DivisionID),
			map[string]interface{}{"batch_id": batchID, "project_code": project.ProjectCode, "requisitor": name, "rows": len(rows)}))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.syncMfgPartNumbers(ctx, rows)
	pending.Flush(s.pub)

	out := &BatchResult{BatchID: batchID, IDs: make([]string, 0, len(rows))}
	for _, row := range rows {
		out.IDs = append(out.IDs, row.ID)
	}
	s.logger.Info("requisition batch created", zap.String("batch_id", batchID), zap.Int("rows", len(rows)))
	return out, nil
}

// syncMfgPartNumbers copies new manufacturer part numbers onto the item
// master. Failures are logged; the batch is already committed.
func (s *RequisitionService) syncMfgPartNumbers(ctx context.Context, rows []entity.Requisition) {
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(mfgUpdateConcurrency)
	for _, row := range rows {
		if row.MfgPartNo == "" {
			continue
		}
		partNo, mfg := row.CimconPartNumber, row.MfgPartNo
		g.Go(func() error {
			if _, err := s.repos.Request.UpdateMfgPartNo(gctx, partNo, mfg); err != nil {
				s.logger.Warn("mfg part number update failed",
					zap.String("part_no", partNo), zap.String("mfg_part_no", mfg), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

type UpdateRequisitionInput struct {
	ReqQty         *int       `json:"req_qty"`
	RequiredByDate *time.Time `json:"required_by_date"`
	Remarks        *string    `json:"remarks"`
}

// UpdateRequisition edits a pending row. History rows are written before the
// row itself; approvers hear about edits of a batch at most once per dedup window.
func (s *RequisitionService) UpdateRequisition(ctx context.Context, id, changedBy string, in *UpdateRequisitionInput) (*entity.Requisition, error) {
	if in.ReqQty != nil && *in.ReqQty <= 0 {
		return nil, apperr.Validation("req_qty must be positive", "req_qty")
	}

	var out *entity.Requisition
	var changes []entity.RequisitionHistory
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		req, err := r.Requisition.LockByID(ctx, id)
		if err != nil {
			return orNotFound(err, "requisition", id)
		}
		if req.Status != entity.RequisitionStatusPending {
			return apperr.InvalidTransition("requisition", req.Status, "edit")
		}

		now := time.Now()
		change := func(field, oldV, newV string) {
			if oldV == newV {
				return
			}
			changes = append(changes, entity.RequisitionHistory{
				RequisitionID: req.ID,
				BatchID:       req.BatchID,
				FieldName:     field,
				OldValue:      oldV,
				NewValue:      newV,
				ChangedBy:     changedBy,
				ChangedAt:     now,
			})
		}
		if in.ReqQty != nil {
			change("req_qty", strconv.Itoa(req.ReqQty), strconv.Itoa(*in.ReqQty))
			req.ReqQty = *in.ReqQty
		}
		if in.RequiredByDate != nil {
			change("required_by_date", formatDate(req.RequiredByDate), formatDate(in.RequiredByDate))
			req.RequiredByDate = in.RequiredByDate
		}
		if in.Remarks != nil {
			change("remarks", req.Remarks, *in.Remarks)
			req.Remarks = *in.Remarks
		}
		out = req
		if len(changes) == 0 {
			return nil
		}
		if err := r.Requisition.AppendHistory(ctx, changes); err != nil {
			return err
		}
		return r.Requisition.Save(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return out, nil
	}

	s.cache.Invalidate(ctx, cache.RevisionHistoryKey(out.BatchID))
	if s.cache.Once(ctx, cache.BatchEmailSentKey(out.BatchID), s.cache.TTL.EmailDedup) {
		var pending notify.Pending
		pending.Add(notify.New(notify.RequisitionUpdated,
			"Requisition batch "+out.BatchID+" updated",
			s.dir.Emails(ctx, entity.RoleApprover, ""),
			map[string]interface{}{"batch_id": out.BatchID, "changed_by": changedBy, "changes": changes}))
		pending.Flush(s.pub)
	}
	return out, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// ApproveBatch approves the not yet approved rows of a batch; ids narrows
// the selection when given.
func (s *RequisitionService) ApproveBatch(ctx context.Context, batchID, approver string, ids []string) (int64, error) {
	var n int64
	var pending notify.Pending
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		rows, err := r.Requisition.LockBatchRows(ctx, batchID, ids)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return apperr.NotFound("batch", batchID)
		}
		var selected []string
		var submitter string
		for _, row := range rows {
			submitter = row.SubmittedBy
			if !row.ApprovedStatus {
				selected = append(selected, row.ID)
			}
		}
		if len(selected) == 0 {
			return nil
		}
		if n, err = r.Requisition.SetDecision(ctx, selected, entity.RequisitionStatusApproved, approver, nil); err != nil {
			return err
		}
		if err := r.ActivityLog.LogActivity(ctx, entity.ActivityEntityRequisition, batchID, rows[0].ProjectCode,
			"approve", entity.RequisitionStatusPending, entity.RequisitionStatusApproved,
			strconv.FormatInt(n, 10)+" rows", approver); err != nil {
			return err
		}
		pending.Add(notify.New(notify.RequisitionApproved, "Requisition batch "+batchID+" approved",
			[]string{submitter}, map[string]interface{}{"batch_id": batchID, "ids": selected, "by": approver}))
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.cache.Invalidate(ctx, cache.RevisionHistoryKey(batchID))
	pending.Flush(s.pub)
	return n, nil
}

// RejectBatch rejects the selected rows, or the whole batch, that are not yet
// verified into the master. Approved rows are still rejectable until then.
func (s *RequisitionService) RejectBatch(ctx context.Context, batchID, approver, reason string, ids []string) (int64, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return 0, apperr.Validation("rejection remarks are required", "rejection_remarks")
	}
	var n int64
	var pending notify.Pending
	err := transact(ctx, s.db, func(r *repository.Repositories) error {
		rows, err := r.Requisition.LockBatchRows(ctx, batchID, ids)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return apperr.NotFound("batch", batchID)
		}
		var selected []string
		var submitter string
		for _, row := range rows {
			submitter = row.SubmittedBy
			if !row.MasterEntryExists && row.Status != entity.RequisitionStatusRejected {
				selected = append(selected, row.ID)
			}
		}
		if len(selected) == 0 {
			return nil
		}
		if n, err = r.Requisition.SetDecision(ctx, selected, entity.RequisitionStatusRejected, approver, &reason); err != nil {
			return err
		}
		if err := r.ActivityLog.LogActivity(ctx, entity.ActivityEntityRequisition, batchID, rows[0].ProjectCode,
			"reject", "", entity.RequisitionStatusRejected, reason, approver); err != nil {
			return err
		}
		pending.Add(notify.New(notify.RequisitionRejected, "Requisition batch "+batchID+" rejected",
			[]string{submitter}, map[string]interface{}{"batch_id": batchID, "ids": selected, "reason": reason, "by": approver}))
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.cache.Invalidate(ctx, cache.RevisionHistoryKey(batchID))
	pending.Flush(s.pub)
	return n, nil
}

func (s *RequisitionService) GetBatch(ctx context.Context, batchID string) ([]entity.Requisition, error) {
	rows, err := s.repos.Requisition.FindByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("batch", batchID)
	}
	return rows, nil
}

// GetBatchHistory revision history of a batch, cached.
func (s *RequisitionService) GetBatchHistory(ctx context.Context, batchID string) ([]entity.RequisitionHistory, error) {
	return cache.Remember(ctx, s.cache, cache.RevisionHistoryKey(batchID), s.cache.TTL.Revision, func() ([]entity.RequisitionHistory, error) {
		return s.repos.Requisition.HistoryByBatch(ctx, batchID)
	})
}

func (s *RequisitionService) ListBatches(ctx context.Context, projectCode string) ([]repository.BatchSummary, error) {
	return s.repos.Requisition.ListBatches(ctx, strings.ToUpper(strings.TrimSpace(projectCode)))
}
