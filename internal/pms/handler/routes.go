package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pratyush-pilli/cimventory-sub000/internal/middleware"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
)

// RegisterRoutes mounts the procurement API on an authenticated group.
func RegisterRoutes(api *gin.RouterGroup, h *Handlers) {
	approver := middleware.RequireRole(entity.RoleApprover)
	purchaser := middleware.RequireRole(entity.RolePurchaser)
	store := middleware.RequireRole(entity.RoleStore)

	projects := api.Group("/projects")
	{
		projects.GET("", h.Project.List)
		projects.POST("", h.Project.Create)
		projects.GET("/:code", h.Project.Get)
	}

	// product classification
	classifications := api.Group("/classifications")
	{
		classifications.POST("", h.Classification.Create)
		classifications.GET("/code", h.Classification.GenerateCode)
	}
	products := api.Group("/products")
	{
		products.GET("", h.Classification.ListProducts)
		products.GET("/:id/options", h.Classification.RelatedOptions)
		products.DELETE("/:id", h.Classification.DeleteProduct)
	}
	makes := api.Group("/makes")
	{
		makes.GET("/:id/mpns", h.Classification.ListMPNs)
		makes.POST("/:id/mpns", h.Classification.AllocateMPN)
	}

	// item and factory item requests
	itemRequests := api.Group("/item-requests")
	{
		itemRequests.POST("", h.Request.SubmitItemRequest)
		itemRequests.GET("/:id", h.Request.GetItemRequest)
		itemRequests.PUT("/:id", h.Request.UpdateItemRequest)
	}
	factoryRequests := api.Group("/factory-requests")
	{
		factoryRequests.POST("", h.Request.SubmitFactoryRequest)
		factoryRequests.GET("/:id", h.Request.GetFactoryRequest)
		factoryRequests.POST("/:id/send", h.Request.SendFactoryRequest)
	}
	approvals := api.Group("/approvals", approver)
	{
		approvals.GET("", h.Request.ApprovalQueue)
		approvals.POST("/:kind/:id/approve", h.Request.Approve)
		approvals.POST("/:kind/:id/reject", h.Request.Reject)
	}
	itemMasters := api.Group("/item-masters")
	{
		itemMasters.GET("", h.Request.ListItemMasters)
		itemMasters.GET("/:part_no", h.Request.GetItemMaster)
	}

	// requisitions
	api.PATCH("/requisitions/:id", h.Requisition.Update)
	batches := api.Group("/batches")
	{
		batches.GET("", h.Requisition.ListBatches)
		batches.POST("", h.Requisition.CreateBatch)
		batches.GET("/:batch_id", h.Requisition.GetBatch)
		batches.GET("/:batch_id/history", h.Requisition.History)
		batches.POST("/:batch_id/approve", approver, h.Requisition.Approve)
		batches.POST("/:batch_id/reject", approver, h.Requisition.Reject)
	}
	masters := api.Group("/masters")
	{
		masters.GET("", h.Requisition.ListMasters)
		masters.POST("/verify", purchaser, h.Requisition.Verify)
	}

	// vendors and purchase orders
	vendors := api.Group("/vendors")
	{
		vendors.GET("", h.PO.ListVendors)
		vendors.POST("", purchaser, h.PO.RegisterVendor)
		vendors.GET("/:id", h.PO.GetVendor)
		vendors.POST("/:id/documents/:field", purchaser, h.PO.UploadVendorDocument)
	}
	pos := api.Group("/purchase-orders")
	{
		pos.GET("", h.PO.List)
		pos.POST("", purchaser, h.PO.Create)
		pos.GET("/:po_number", h.PO.Get)
		pos.POST("/:po_number/approve", approver, h.PO.Approve)
		pos.POST("/:po_number/reject", approver, h.PO.Reject)
		pos.GET("/:po_number/activity", h.PO.ActivityLog)
		pos.GET("/:po_number/inward", h.PO.InwardEntries)
		pos.POST("/:po_number/inward", store, h.PO.RecordInward)
	}

	// stock
	inventory := api.Group("/inventory")
	{
		inventory.GET("", h.Inventory.List)
		inventory.GET("/:id", h.Inventory.Get)
		inventory.GET("/:id/status", h.Inventory.Status)
		inventory.GET("/:id/allocations", h.Inventory.Allocations)
		inventory.GET("/:id/outwards", h.Inventory.Outwards)
	}
	allocations := api.Group("/allocations", store)
	{
		allocations.POST("", h.Inventory.Allocate)
		allocations.POST("/reallocate", h.Inventory.Reallocate)
		allocations.POST("/:id/cancel", h.Inventory.CancelAllocation)
	}
	api.POST("/outwards", store, h.Inventory.Outward)

	// documents
	challans := api.Group("/delivery-challans")
	{
		challans.GET("", h.Delivery.ListChallans)
		challans.POST("", store, h.Delivery.GenerateChallan)
		challans.POST("/outward", store, h.Delivery.OutwardAndDocument)
		challans.GET("/:id", h.Delivery.GetChallan)
		challans.GET("/:id/rejected-returns", h.Delivery.RejectedReturns)
	}
	api.POST("/rejected-returns", store, h.Delivery.RejectedReturn)
	gatePasses := api.Group("/gate-passes")
	{
		gatePasses.GET("", h.Delivery.ListGatePasses)
		gatePasses.POST("", store, h.Delivery.IssueGatePass)
		gatePasses.GET("/:id", h.Delivery.GetGatePass)
		gatePasses.POST("/:id/returns", store, h.Delivery.GatePassReturn)
	}
}
