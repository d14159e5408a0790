package service

import (
	"strings"
	"testing"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/blob"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatePass_OutwardAndReturn(t *testing.T) {
	f := setup(t)
	inv := f.seedInventory(t, "METER-1PH", map[string]int{entity.LocationTimesSq: 10})
	issued := today(time.Now())

	pass, err := f.svc.GatePass.IssueGatePass(f.ctx, "store@cimcon.com", &IssueGatePassInput{
		PassType:           entity.GatePassTypeOutward,
		IssuedTo:           "Calibration Lab",
		FromLocation:       entity.LocationTimesSq,
		IssueDate:          issued,
		ExpectedReturnDate: issued.AddDate(0, 0, 7),
		Purpose:            "calibration",
		Items:              []GatePassItemInput{{InventoryID: inv.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.GatePassStatusIssued, pass.Status)
	require.Len(t, pass.Items, 1)
	_, ok := f.blobs.Get(blob.GatePassPath(pass.GatePassNumber, "xlsx"))
	assert.True(t, ok, "gate pass document not stored")
	assert.Equal(t, 6, f.inventory(t, inv.ID).TimesSqStock)

	outs, err := f.svc.Inventory.ListOutwards(f.ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, documentTypeGatePass, outs[0].DocumentType)
	assert.Equal(t, pass.GatePassNumber, outs[0].DocumentNumber)

	itemID := pass.Items[0].ID
	back, err := f.svc.GatePass.RecordGatePassReturn(f.ctx, "store@cimcon.com", &GatePassReturnInput{
		GatePassID: pass.ID, ReturnDate: issued,
		Items: []GatePassReturnItemInput{{ItemID: itemID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.GatePassStatusPartiallyReturned, back.Status)

	_, err = f.svc.GatePass.RecordGatePassReturn(f.ctx, "store@cimcon.com", &GatePassReturnInput{
		GatePassID: pass.ID, ReturnDate: issued,
		Items: []GatePassReturnItemInput{{ItemID: itemID, Quantity: 4}},
	})
	requireKind(t, err, apperr.KindInvariantViolation)

	back, err = f.svc.GatePass.RecordGatePassReturn(f.ctx, "store@cimcon.com", &GatePassReturnInput{
		GatePassID: pass.ID, ReturnDate: issued,
		Items: []GatePassReturnItemInput{{ItemID: itemID, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.GatePassStatusFullyReturned, back.Status)
	assert.Equal(t, 10, f.inventory(t, inv.ID).TimesSqStock)

	_, err = f.svc.GatePass.RecordGatePassReturn(f.ctx, "store@cimcon.com", &GatePassReturnInput{
		GatePassID: pass.ID, Items: []GatePassReturnItemInput{{ItemID: itemID, Quantity: 1}},
	})
	requireKind(t, err, apperr.KindInvalidTransition)
}

func TestGatePass_InternalTransfer(t *testing.T) {
	f := setup(t)
	inv := f.seedInventory(t, "DCU-4G", map[string]int{entity.LocationSakar: 8})
	issued := today(time.Now())

	pass, err := f.svc.GatePass.IssueGatePass(f.ctx, "store@cimcon.com", &IssueGatePassInput{
		PassType:           entity.GatePassTypeInternalTransfer,
		IssuedTo:           "Pirana site",
		FromLocation:       entity.LocationSakar,
		ToLocation:         entity.LocationPirana,
		IssueDate:          issued,
		ExpectedReturnDate: issued.AddDate(0, 1, 0),
		Items:              []GatePassItemInput{{InventoryID: inv.ID, Quantity: 5}},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pass.GatePassNumber, "CIMITP"), pass.GatePassNumber)

	got := f.inventory(t, inv.ID)
	assert.Equal(t, 3, got.SakarStock)
	assert.Equal(t, 5, got.PiranaStock)
	assert.Equal(t, 8, got.TotalStock)

	_, err = f.svc.GatePass.RecordGatePassReturn(f.ctx, "store@cimcon.com", &GatePassReturnInput{
		GatePassID: pass.ID,
		Items:      []GatePassReturnItemInput{{ItemID: pass.Items[0].ID, Quantity: 5}},
	})
	require.NoError(t, err)
	got = f.inventory(t, inv.ID)
	assert.Equal(t, 8, got.SakarStock)
	assert.Zero(t, got.PiranaStock)
}

func TestGatePass_Validation(t *testing.T) {
	f := setup(t)
	inv := f.seedInventory(t, "GW-1", map[string]int{entity.LocationISq: 2})
	issued := today(time.Now())
	base := func() *IssueGatePassInput {
		return &IssueGatePassInput{
			PassType: entity.GatePassTypeOutward, IssuedTo: "Vendor", FromLocation: entity.LocationISq,
			IssueDate: issued, ExpectedReturnDate: issued.AddDate(0, 0, 1),
			Items: []GatePassItemInput{{InventoryID: inv.ID, Quantity: 1}},
		}
	}

	in := base()
	in.ExpectedReturnDate = issued.AddDate(0, 0, -1)
	_, err := f.svc.GatePass.IssueGatePass(f.ctx, "store@cimcon.com", in)
	requireKind(t, err, apperr.KindValidation)

	in = base()
	in.PassType = entity.GatePassTypeInternalTransfer
	in.ToLocation = entity.LocationISq
	_, err = f.svc.GatePass.IssueGatePass(f.ctx, "store@cimcon.com", in)
	requireKind(t, err, apperr.KindValidation)

	in = base()
	in.Items[0].Quantity = 3
	_, err = f.svc.GatePass.IssueGatePass(f.ctx, "store@cimcon.com", in)
	requireKind(t, err, apperr.KindInsufficientStock)
	assert.Empty(t, f.blobs.Paths())
}

func TestMarkOverdueGatePasses(t *testing.T) {
	f := setup(t)
	inv := f.seedInventory(t, "TOOLKIT", map[string]int{entity.LocationOther: 3})
	issued := today(time.Now()).AddDate(0, 0, -10)

	pass, err := f.svc.GatePass.IssueGatePass(f.ctx, "store@cimcon.com", &IssueGatePassInput{
		PassType:           entity.GatePassTypeOutward,
		IssuedTo:           "Field team",
		FromLocation:       entity.LocationOther,
		IssueDate:          issued,
		ExpectedReturnDate: issued.AddDate(0, 0, 2),
		Items:              []GatePassItemInput{{InventoryID: inv.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	n, err := f.svc.GatePass.MarkOverdueGatePasses(f.ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.rec.Count(notify.GatePassOverdue))

	got, err := f.svc.GatePass.Get(f.ctx, pass.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.GatePassStatusOverdue, got.Status)

	n, err = f.svc.GatePass.MarkOverdueGatePasses(f.ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	list, total, err := f.svc.GatePass.List(f.ctx, 1, 20, entity.GatePassStatusOverdue)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}
