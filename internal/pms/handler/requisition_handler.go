package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/service"
)

// RequisitionHandler requisition batches and master verification
type RequisitionHandler struct {
	base
	svc    *service.RequisitionService
	master *service.MasterService
}

func (h *RequisitionHandler) CreateBatch(c *gin.Context) {
	var in service.CreateRequisitionBatchInput
	if !h.bind(c, &in) {
		return
	}
	res, err := h.svc.CreateRequisitionBatch(c.Request.Context(), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, res)
}

// Update PATCH /requisitions/:id
func (h *RequisitionHandler) Update(c *gin.Context) {
	var in service.UpdateRequisitionInput
	if !h.bind(c, &in) {
		return
	}
	row, err := h.svc.UpdateRequisition(c.Request.Context(), c.Param("id"), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, row)
}

type batchDecision struct {
	IDs              []string `json:"ids"`
	RejectionRemarks string   `json:"rejection_remarks"`
}

// Approve POST /batches/:batch_id/approve; no ids means the whole batch.
func (h *RequisitionHandler) Approve(c *gin.Context) {
	var req batchDecision
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	n, err := h.svc.ApproveBatch(c.Request.Context(), c.Param("batch_id"), operator(c), req.IDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"batch_id": c.Param("batch_id"), "approved": n})
}

func (h *RequisitionHandler) Reject(c *gin.Context) {
	var req batchDecision
	if !h.bind(c, &req) {
		return
	}
	n, err := h.svc.RejectBatch(c.Request.Context(), c.Param("batch_id"), operator(c), req.RejectionRemarks, req.IDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"batch_id": c.Param("batch_id"), "rejected": n})
}

func (h *RequisitionHandler) GetBatch(c *gin.Context) {
	rows, err := h.svc.GetBatch(c.Request.Context(), c.Param("batch_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"batch_id": c.Param("batch_id"), "items": rows})
}

func (h *RequisitionHandler) History(c *gin.Context) {
	rows, err := h.svc.GetBatchHistory(c.Request.Context(), c.Param("batch_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"items": rows})
}

// ListBatches GET /batches?project_code=
func (h *RequisitionHandler) ListBatches(c *gin.Context) {
	rows, err := h.svc.ListBatches(c.Request.Context(), c.Query("project_code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"items": rows})
}

// Verify POST /masters/verify
func (h *RequisitionHandler) Verify(c *gin.Context) {
	var in service.VerifyToMasterInput
	if !h.bind(c, &in) {
		return
	}
	ids, err := h.master.VerifyToMaster(c.Request.Context(), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, gin.H{"master_ids": ids})
}

func (h *RequisitionHandler) ListMasters(c *gin.Context) {
	filters := map[string]string{
		"batch_id":        c.Query("batch_id"),
		"project_code":    c.Query("project_code"),
		"ordering_status": c.Query("ordering_status"),
	}
	rows, err := h.master.ListMasters(c.Request.Context(), filters)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"items": rows})
}
