package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/service"
)

// POHandler vendors, purchase orders and inward
type POHandler struct {
	base
	svc    *service.POService
	inward *service.InwardService
	vendor *service.VendorService
}

func (h *POHandler) Create(c *gin.Context) {
	var in service.CreatePOInput
	if !h.bind(c, &in) {
		return
	}
	po, err := h.svc.CreatePO(c.Request.Context(), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, po)
}

func (h *POHandler) Get(c *gin.Context) {
	po, err := h.svc.GetPO(c.Request.Context(), c.Param("po_number"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, po)
}

// List GET /purchase-orders?inward_status=&project_code=&vendor_id=&search=
func (h *POHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"inward_status": c.Query("inward_status"),
		"project_code":  c.Query("project_code"),
		"vendor_id":     c.Query("vendor_id"),
		"search":        c.Query("search"),
	}
	items, total, err := h.svc.ListPOs(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		h.fail(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}

func (h *POHandler) Approve(c *gin.Context) {
	po, err := h.svc.ApprovePO(c.Request.Context(), c.Param("po_number"), operator(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, po)
}

func (h *POHandler) Reject(c *gin.Context) {
	var req struct {
		RejectionRemarks string `json:"rejection_remarks"`
	}
	if !h.bind(c, &req) {
		return
	}
	po, err := h.svc.RejectPO(c.Request.Context(), c.Param("po_number"), operator(c), req.RejectionRemarks)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, po)
}

func (h *POHandler) ActivityLog(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ActivityLog(c.Request.Context(), c.Param("po_number"), page, pageSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}

// RecordInward POST /purchase-orders/:po_number/inward
// Multipart: "data" holds the JSON body, "invoice" the invoice file.
func (h *POHandler) RecordInward(c *gin.Context) {
	in := service.RecordInwardInput{PONumber: c.Param("po_number")}
	var invoice *service.Upload
	if isMultipart(c) {
		if err := json.Unmarshal([]byte(c.PostForm("data")), &in); err != nil {
			BadRequest(c, "Invalid data field: "+err.Error())
			return
		}
		var closeInvoice func()
		var err error
		invoice, closeInvoice, err = upload(c, "invoice")
		if err != nil {
			BadRequest(c, "Invalid invoice: "+err.Error())
			return
		}
		defer closeInvoice()
	} else if !h.bind(c, &in) {
		return
	}
	if in.PONumber != c.Param("po_number") {
		BadRequest(c, "po_number does not match the path")
		return
	}

	res, err := h.inward.RecordInward(c.Request.Context(), operator(c), &in, invoice)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, res)
}

func (h *POHandler) InwardEntries(c *gin.Context) {
	items, err := h.svc.ListInwardEntries(c.Request.Context(), c.Param("po_number"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// === Vendors ===

func (h *POHandler) RegisterVendor(c *gin.Context) {
	var in service.RegisterVendorInput
	if !h.bind(c, &in) {
		return
	}
	v, err := h.vendor.RegisterVendor(c.Request.Context(), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, v)
}

func (h *POHandler) GetVendor(c *gin.Context) {
	v, err := h.vendor.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, v)
}

func (h *POHandler) ListVendors(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.vendor.List(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}

// UploadVendorDocument POST /vendors/:id/documents/:field (multipart "file")
func (h *POHandler) UploadVendorDocument(c *gin.Context) {
	file, closeFile, err := upload(c, "file")
	if err != nil {
		BadRequest(c, "Invalid file: "+err.Error())
		return
	}
	defer closeFile()
	doc, err := h.vendor.UploadVendorDocument(c.Request.Context(), c.Param("id"), c.Param("field"), operator(c), file)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, doc)
}
