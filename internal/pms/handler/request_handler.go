package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/service"
)

// RequestHandler catalog and factory item requests
type RequestHandler struct {
	base
	svc *service.RequestService
}

// SubmitItemRequest POST /item-requests
// JSON body, or multipart with the fields as JSON in "data" plus an optional
// "document" file.
func (h *RequestHandler) SubmitItemRequest(c *gin.Context) {
	var in service.ItemRequestInput
	var doc *service.Upload
	if isMultipart(c) {
		if err := json.Unmarshal([]byte(c.PostForm("data")), &in); err != nil {
			BadRequest(c, "Invalid data field: "+err.Error())
			return
		}
		var closeDoc func()
		var err error
		doc, closeDoc, err = upload(c, "document")
		if err != nil {
			BadRequest(c, "Invalid document: "+err.Error())
			return
		}
		defer closeDoc()
	} else if !h.bind(c, &in) {
		return
	}

	req, err := h.svc.SubmitItemRequest(c.Request.Context(), operator(c), &in, doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, gin.H{"id": req.ID, "cimcon_part_no": req.CimconPartNo, "status": req.Status})
}

func (h *RequestHandler) UpdateItemRequest(c *gin.Context) {
	var in service.UpdateItemRequestInput
	if !h.bind(c, &in) {
		return
	}
	req, err := h.svc.UpdateItemRequest(c.Request.Context(), c.Param("id"), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, req)
}

func (h *RequestHandler) GetItemRequest(c *gin.Context) {
	req, err := h.svc.GetItemRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, req)
}

func (h *RequestHandler) SubmitFactoryRequest(c *gin.Context) {
	var in service.FactoryRequestInput
	if !h.bind(c, &in) {
		return
	}
	req, err := h.svc.SubmitFactoryItemRequest(c.Request.Context(), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, req)
}

// SendFactoryRequest POST /factory-requests/:id/send moves a draft to pending.
func (h *RequestHandler) SendFactoryRequest(c *gin.Context) {
	req, err := h.svc.SendFactoryRequest(c.Request.Context(), c.Param("id"), operator(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, req)
}

func (h *RequestHandler) GetFactoryRequest(c *gin.Context) {
	req, err := h.svc.GetFactoryRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, req)
}

// ApprovalQueue GET /approvals?status=pending
func (h *RequestHandler) ApprovalQueue(c *gin.Context) {
	items, err := h.svc.ListApprovalQueue(c.Request.Context(), c.DefaultQuery("status", entity.RequestStatusPending))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// Approve POST /approvals/:kind/:id/approve
func (h *RequestHandler) Approve(c *gin.Context) {
	v, err := h.svc.ApproveRequest(c.Request.Context(), entity.RequestKind(c.Param("kind")), c.Param("id"), operator(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, v)
}

// Reject POST /approvals/:kind/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !h.bind(c, &req) {
		return
	}
	v, err := h.svc.RejectRequest(c.Request.Context(), entity.RequestKind(c.Param("kind")), c.Param("id"), operator(c), req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, v)
}

func (h *RequestHandler) ListItemMasters(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListItemMasters(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}

func (h *RequestHandler) GetItemMaster(c *gin.Context) {
	m, err := h.svc.GetItemMaster(c.Request.Context(), c.Param("part_no"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, m)
}
