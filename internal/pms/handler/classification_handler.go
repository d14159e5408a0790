package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/service"
)

// ClassificationHandler product tree and code generation
type ClassificationHandler struct {
	base
	svc *service.ClassificationService
}

// Create POST /classifications
func (h *ClassificationHandler) Create(c *gin.Context) {
	var req service.CreateClassificationRequest
	if !h.bind(c, &req) {
		return
	}
	out, err := h.svc.CreateClassification(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, out)
}

// GenerateCode GET /classifications/code?kind=&name=&product_id=&make_id=
func (h *ClassificationHandler) GenerateCode(c *gin.Context) {
	code, err := h.svc.GenerateCode(c.Request.Context(),
		c.Query("kind"), c.Query("name"), c.Query("product_id"), c.Query("make_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"code": code})
}

func (h *ClassificationHandler) ListProducts(c *gin.Context) {
	products, err := h.svc.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"items": products})
}

// RelatedOptions GET /products/:id/options
func (h *ClassificationHandler) RelatedOptions(c *gin.Context) {
	opts, err := h.svc.RelatedOptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, opts)
}

func (h *ClassificationHandler) DeleteProduct(c *gin.Context) {
	if err := h.svc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	Success(c, nil)
}

// ListMPNs GET /makes/:id/mpns
func (h *ClassificationHandler) ListMPNs(c *gin.Context) {
	mpns, err := h.svc.ListMPNs(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"items": mpns})
}

// AllocateMPN POST /makes/:id/mpns
func (h *ClassificationHandler) AllocateMPN(c *gin.Context) {
	var req struct {
		MfgPartNo string `json:"mfg_part_no" binding:"required"`
	}
	if !h.bind(c, &req) {
		return
	}
	m, err := h.svc.AllocateMPN(c.Request.Context(), c.Param("id"), req.MfgPartNo)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, m)
}

// ProjectHandler projects
type ProjectHandler struct {
	base
	svc *service.ProjectService
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req service.CreateProjectRequest
	if !h.bind(c, &req) {
		return
	}
	if req.RequestedBy == "" {
		req.RequestedBy = operator(c)
	}
	p, err := h.svc.CreateProject(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, p)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	p, err := h.svc.GetProject(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, p)
}

func (h *ProjectHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListProjects(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}
