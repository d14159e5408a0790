package service

import (
	"strings"
	"testing"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func challanFor(invID string, qty int) (*OutwardInput, *ChallanInput) {
	return &OutwardInput{
			Items: []OutwardItem{{InventoryID: invID, LocationQuantities: map[string]int{entity.LocationTimesSq: qty}}},
		}, &ChallanInput{
			ProjectCode:      "P-5",
			ConsigneeName:    "Ahmedabad Municipal Corporation",
			ConsigneeAddress: "Danapith, Ahmedabad",
			VehicleNo:        "GJ01AB1234",
			Items:            []ChallanItemInput{{InventoryID: invID, UOM: "Nos"}},
		}
}

func TestProcessOutwardAndDocument(t *testing.T) {
	f := setup(t)
	inv := f.seedInventory(t, "SLC-100", map[string]int{entity.LocationTimesSq: 40})

	outward, doc := challanFor(inv.ID, 12)
	res, err := f.svc.Delivery.ProcessOutwardAndDocument(f.ctx, "store@cimcon.com", outward, doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.DocumentNumber, "CIMDC"), res.DocumentNumber)
	require.Len(t, res.Outwards, 1)
	assert.Equal(t, res.DocumentNumber, res.Outwards[0].DocumentNumber)
	assert.Equal(t, documentTypeDeliveryChallan, res.Outwards[0].DocumentType)

	data, ok := f.blobs.Get(res.DocumentPath)
	require.True(t, ok, "challan workbook not stored")
	assert.NotEmpty(t, data)

	challan, err := f.svc.Delivery.GetChallan(f.ctx, res.ChallanID)
	require.NoError(t, err)
	require.Len(t, challan.Items, 1)
	assert.Equal(t, "SLC-100", challan.Items[0].ItemNo)
	assert.Equal(t, "Nos", challan.Items[0].UOM)
	assert.Equal(t, 12, challan.TotalQuantity())
	assert.Equal(t, 28, f.inventory(t, inv.ID).TimesSqStock)

	outward, doc = challanFor(inv.ID, 1)
	next, err := f.svc.Delivery.ProcessOutwardAndDocument(f.ctx, "store@cimcon.com", outward, doc)
	require.NoError(t, err)
	assert.NotEqual(t, res.DocumentNumber, next.DocumentNumber)
}

func TestProcessOutwardAndDocument_RollsBack(t *testing.T) {
	f := setup(t)
	inv := f.seedInventory(t, "SLC-200", map[string]int{entity.LocationTimesSq: 10})
	require.NoError(t, f.db.Create(&entity.DeliveryChallan{
		ID: entity.NewID(), DocumentNumber: "DC-TAKEN", ConsigneeName: "Earlier", ChallanDate: time.Now(),
	}).Error)

	t.Run("insert failure removes the stored document", func(t *testing.T) {
		outward, doc := challanFor(inv.ID, 4)
		doc.DocumentNumber = "DC-TAKEN"
		_, err := f.svc.Delivery.ProcessOutwardAndDocument(f.ctx, "store@cimcon.com", outward, doc)
		requireKind(t, err, apperr.KindConflict)
		assert.Empty(t, f.blobs.Paths())
		assert.Equal(t, 10, f.inventory(t, inv.ID).TimesSqStock)
	})

	t.Run("shortfall writes nothing", func(t *testing.T) {
		outward, doc := challanFor(inv.ID, 11)
		_, err := f.svc.Delivery.ProcessOutwardAndDocument(f.ctx, "store@cimcon.com", outward, doc)
		requireKind(t, err, apperr.KindInsufficientStock)
		assert.Empty(t, f.blobs.Paths())
		outs, err := f.svc.Inventory.ListOutwards(f.ctx, inv.ID)
		require.NoError(t, err)
		assert.Empty(t, outs)
	})

	t.Run("consignee is required", func(t *testing.T) {
		outward, doc := challanFor(inv.ID, 1)
		doc.ConsigneeName = " "
		_, err := f.svc.Delivery.ProcessOutwardAndDocument(f.ctx, "store@cimcon.com", outward, doc)
		requireKind(t, err, apperr.KindValidation)
	})
}

func TestRecordRejectedMaterialReturn(t *testing.T) {
	f := setup(t)
	inv := f.seedInventory(t, "LUM-60W", map[string]int{entity.LocationTimesSq: 20})
	outward, doc := challanFor(inv.ID, 10)
	res, err := f.svc.Delivery.ProcessOutwardAndDocument(f.ctx, "store@cimcon.com", outward, doc)
	require.NoError(t, err)

	ret, err := f.svc.Delivery.RecordRejectedMaterialReturn(f.ctx, "store@cimcon.com", &RejectedReturnInput{
		DeliveryChallanID: res.ChallanID,
		ClientName:        "Ahmedabad Municipal Corporation",
		Reason:            "driver failure",
		Items: []RejectedItemInput{
			{InventoryID: inv.ID, Quantity: 3, Action: entity.RejectedActionAddBack, Location: entity.LocationSakar},
			{InventoryID: inv.ID, Quantity: 2, Action: entity.RejectedActionDiscard},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Added back: 3, Discarded: 2", ret.ActionTaken)
	assert.Equal(t, res.DocumentNumber, ret.ChallanNumber)

	got := f.inventory(t, inv.ID)
	assert.Equal(t, 10, got.TimesSqStock)
	assert.Equal(t, 3, got.SakarStock)
	assert.Equal(t, 13, got.TotalStock)

	_, err = f.svc.Delivery.RecordRejectedMaterialReturn(f.ctx, "store@cimcon.com", &RejectedReturnInput{
		DeliveryChallanID: res.ChallanID,
		ClientName:        "Ahmedabad Municipal Corporation",
		Items:             []RejectedItemInput{{InventoryID: inv.ID, Quantity: 6, Action: entity.RejectedActionDiscard}},
	})
	requireKind(t, err, apperr.KindInvariantViolation)

	_, err = f.svc.Delivery.RecordRejectedMaterialReturn(f.ctx, "store@cimcon.com", &RejectedReturnInput{
		DeliveryChallanID: res.ChallanID,
		ClientName:        "Ahmedabad Municipal Corporation",
		Items:             []RejectedItemInput{{InventoryID: inv.ID, Quantity: 1, Action: entity.RejectedActionAddBack}},
	})
	requireKind(t, err, apperr.KindValidation)

	returns, err := f.svc.Delivery.ListRejectedReturns(f.ctx, res.ChallanID)
	require.NoError(t, err)
	require.Len(t, returns, 1)
	require.Len(t, returns[0].Items, 2)
	for _, it := range returns[0].Items {
		assert.Equal(t, "LUM-60W", it.ItemNo, it.Action)
	}
}

func TestRecordRejectedMaterialReturn_DiscardLooksUpItemNo(t *testing.T) {
	f := setup(t)
	inv := f.seedInventory(t, "CTRL-9", map[string]int{entity.LocationTimesSq: 5})

	// challan lines recorded before item numbers were copied onto them
	legacy := &entity.DeliveryChallan{
		DocumentNumber: "DC-LEGACY-1", ConsigneeName: "Surat Smart City", ChallanDate: time.Now(),
		Items: []entity.DeliveryChallanItem{{InventoryID: inv.ID, Quantity: 4}},
	}
	require.NoError(t, f.repos.Delivery.CreateChallan(f.ctx, legacy))

	ret, err := f.svc.Delivery.RecordRejectedMaterialReturn(f.ctx, "store@cimcon.com", &RejectedReturnInput{
		DeliveryChallanID: legacy.ID,
		ClientName:        "Surat Smart City",
		Items:             []RejectedItemInput{{InventoryID: inv.ID, Quantity: 2, Action: entity.RejectedActionDiscard}},
	})
	require.NoError(t, err)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, "CTRL-9", ret.Items[0].ItemNo)
	assert.Equal(t, "Added back: 0, Discarded: 2", ret.ActionTaken)
	assert.Equal(t, 5, f.inventory(t, inv.ID).TimesSqStock)
}

func TestGenerateChallan(t *testing.T) {
	f := setup(t)
	lum := f.seedInventory(t, "LUM-90W", map[string]int{entity.LocationTimesSq: 30})
	pole := f.seedInventory(t, "POLE-6M", map[string]int{entity.LocationSakar: 8})
	march := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	in := func() *ChallanInput {
		return &ChallanInput{
			ChallanDate:   march,
			ProjectCode:   "P-5",
			ConsigneeName: "Vadodara Municipal Corporation",
			VehicleNo:     "GJ06CD4321",
			Items: []ChallanItemInput{
				{InventoryID: lum.ID, Location: entity.LocationTimesSq, Quantity: 6, UOM: "Nos"},
				{InventoryID: pole.ID, Location: entity.LocationSakar, Quantity: 2, UOM: "Nos"},
			},
		}
	}

	first, err := f.svc.Delivery.GenerateChallan(f.ctx, "store@cimcon.com", in())
	require.NoError(t, err)
	assert.Equal(t, "CIMDC-2603-0001", first.DocumentNumber)
	assert.Empty(t, first.Outwards)

	data, ok := f.blobs.Get(first.DocumentPath)
	require.True(t, ok, "challan workbook not stored")
	assert.NotEmpty(t, data)

	challan, err := f.svc.Delivery.GetChallan(f.ctx, first.ChallanID)
	require.NoError(t, err)
	assert.Equal(t, "Vadodara Municipal Corporation", challan.ConsigneeName)
	assert.Equal(t, "store@cimcon.com", challan.CreatedBy)
	require.Len(t, challan.Items, 2)
	items := map[string]entity.DeliveryChallanItem{}
	for _, it := range challan.Items {
		items[it.ItemNo] = it
	}
	assert.Equal(t, 6, items["LUM-90W"].Quantity)
	assert.Equal(t, entity.LocationTimesSq, items["LUM-90W"].Location)
	assert.Equal(t, "LUM-90W part", items["LUM-90W"].Description)
	assert.Equal(t, 2, items["POLE-6M"].Quantity)
	assert.Equal(t, 8, challan.TotalQuantity())

	// a standalone challan documents stock that already left
	assert.Equal(t, 30, f.inventory(t, lum.ID).TimesSqStock)
	assert.Equal(t, 8, f.inventory(t, pole.ID).SakarStock)

	second, err := f.svc.Delivery.GenerateChallan(f.ctx, "store@cimcon.com", in())
	require.NoError(t, err)
	assert.Equal(t, "CIMDC-2603-0002", second.DocumentNumber)

	t.Run("bad lines write nothing", func(t *testing.T) {
		stored := len(f.blobs.Paths())

		empty := in()
		empty.Items = nil
		_, err := f.svc.Delivery.GenerateChallan(f.ctx, "store@cimcon.com", empty)
		requireKind(t, err, apperr.KindValidation)

		zero := in()
		zero.Items[1].Quantity = 0
		_, err = f.svc.Delivery.GenerateChallan(f.ctx, "store@cimcon.com", zero)
		requireKind(t, err, apperr.KindValidation)

		unknown := in()
		unknown.Items[0].InventoryID = entity.NewID()
		_, err = f.svc.Delivery.GenerateChallan(f.ctx, "store@cimcon.com", unknown)
		requireKind(t, err, apperr.KindNotFound)

		assert.Len(t, f.blobs.Paths(), stored)
		third, err := f.svc.Delivery.GenerateChallan(f.ctx, "store@cimcon.com", in())
		require.NoError(t, err)
		assert.Equal(t, "CIMDC-2603-0003", third.DocumentNumber)
	})
}
