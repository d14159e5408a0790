package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/service"
)

// DeliveryHandler delivery challans, rejected returns and gate passes
type DeliveryHandler struct {
	base
	svc      *service.DeliveryService
	gatePass *service.GatePassService
}

func (h *DeliveryHandler) GenerateChallan(c *gin.Context) {
	var in service.ChallanInput
	if !h.bind(c, &in) {
		return
	}
	res, err := h.svc.GenerateChallan(c.Request.Context(), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, res)
}

type outwardAndDocument struct {
	Outward  service.OutwardInput `json:"outward"`
	Document service.ChallanInput `json:"document"`
}

// OutwardAndDocument POST /delivery-challans/outward
// The stock movement and the challan commit together or not at all.
func (h *DeliveryHandler) OutwardAndDocument(c *gin.Context) {
	var req outwardAndDocument
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.ProcessOutwardAndDocument(c.Request.Context(), operator(c), &req.Outward, &req.Document)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, res)
}

func (h *DeliveryHandler) GetChallan(c *gin.Context) {
	d, err := h.svc.GetChallan(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, d)
}

func (h *DeliveryHandler) ListChallans(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListChallans(c.Request.Context(), page, pageSize, c.Query("project_code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}

// RejectedReturn POST /rejected-returns
func (h *DeliveryHandler) RejectedReturn(c *gin.Context) {
	var in service.RejectedReturnInput
	if !h.bind(c, &in) {
		return
	}
	ret, err := h.svc.RecordRejectedMaterialReturn(c.Request.Context(), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, ret)
}

func (h *DeliveryHandler) RejectedReturns(c *gin.Context) {
	rows, err := h.svc.ListRejectedReturns(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"items": rows})
}

// === Gate passes ===

func (h *DeliveryHandler) IssueGatePass(c *gin.Context) {
	var in service.IssueGatePassInput
	if !h.bind(c, &in) {
		return
	}
	pass, err := h.gatePass.IssueGatePass(c.Request.Context(), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, pass)
}

// GatePassReturn POST /gate-passes/:id/returns
func (h *DeliveryHandler) GatePassReturn(c *gin.Context) {
	var in service.GatePassReturnInput
	in.GatePassID = c.Param("id")
	if !h.bind(c, &in) {
		return
	}
	if in.GatePassID != c.Param("id") {
		BadRequest(c, "gate_pass_id does not match the path")
		return
	}
	pass, err := h.gatePass.RecordGatePassReturn(c.Request.Context(), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, pass)
}

func (h *DeliveryHandler) GetGatePass(c *gin.Context) {
	pass, err := h.gatePass.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, pass)
}

// ListGatePasses GET /gate-passes?status=
func (h *DeliveryHandler) ListGatePasses(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.gatePass.List(c.Request.Context(), page, pageSize, c.Query("status"))
	if err != nil {
		h.fail(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}
