package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/service"
)

// InventoryHandler stock, allocations and outwards
type InventoryHandler struct {
	base
	svc *service.InventoryService
}

// List GET /inventory?search=
func (h *InventoryHandler) List(c *gin.Context) {
	items, err := h.svc.ListInventory(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

func (h *InventoryHandler) Get(c *gin.Context) {
	inv, err := h.svc.GetInventory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, inv)
}

// Status GET /inventory/:id/status
func (h *InventoryHandler) Status(c *gin.Context) {
	st, err := h.svc.StockStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, st)
}

func (h *InventoryHandler) Allocate(c *gin.Context) {
	var in service.AllocateStockInput
	if !h.bind(c, &in) {
		return
	}
	st, err := h.svc.AllocateStock(c.Request.Context(), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, st)
}

func (h *InventoryHandler) Reallocate(c *gin.Context) {
	var in service.ReallocateStockInput
	if !h.bind(c, &in) {
		return
	}
	a, err := h.svc.ReallocateStock(c.Request.Context(), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, a)
}

// CancelAllocation POST /allocations/:id/cancel
func (h *InventoryHandler) CancelAllocation(c *gin.Context) {
	st, err := h.svc.CancelAllocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, st)
}

func (h *InventoryHandler) Outward(c *gin.Context) {
	var in service.OutwardInput
	if !h.bind(c, &in) {
		return
	}
	rows, err := h.svc.Outward(c.Request.Context(), operator(c), &in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Created(c, gin.H{"items": rows})
}

// Allocations GET /inventory/:id/allocations?active=true
func (h *InventoryHandler) Allocations(c *gin.Context) {
	rows, err := h.svc.ListAllocations(c.Request.Context(), c.Param("id"), c.Query("active") == "true")
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"items": rows})
}

func (h *InventoryHandler) Outwards(c *gin.Context) {
	rows, err := h.svc.ListOutwards(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, gin.H{"items": rows})
}
