package service

import (
	"strings"
	"testing"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/cache"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) project(t *testing.T, code string) *entity.Project {
	t.Helper()
	p, err := f.svc.Project.CreateProject(f.ctx, &CreateProjectRequest{
		ProjectCode: code, Name: "Project " + code, BillTo: "CIMCON Ahmedabad", ShipTo: "Times Square store",
	})
	require.NoError(t, err)
	return p
}

func TestRequisitionBatch_NumberAndApprove(t *testing.T) {
	f := setup(t)
	f.project(t, "P-42")

	res, err := f.svc.Requisition.CreateRequisitionBatch(f.ctx, "req@cimcon.com", &CreateRequisitionBatchInput{
		ProjectCode: "P-42",
		Rows: []RequisitionRowInput{
			{CimconPartNumber: "ITEM1", MaterialDescription: "Relay", ReqQty: 10},
			{CimconPartNumber: "ITEM2", MaterialDescription: "Fuse", ReqQty: 5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "1_P-42", res.BatchID)
	assert.Len(t, res.IDs, 2)
	assert.Equal(t, 1, f.rec.Count(notify.RequisitionBatchSubmitted))

	n, err := f.svc.Requisition.ApproveBatch(f.ctx, res.BatchID, "approver@cimcon.com", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	rows, err := f.svc.Requisition.GetBatch(f.ctx, res.BatchID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.True(t, row.ApprovedStatus, row.CimconPartNumber)
	}

	again, err := f.svc.Requisition.ApproveBatch(f.ctx, res.BatchID, "approver@cimcon.com", nil)
	require.NoError(t, err)
	assert.Zero(t, again)

	next, err := f.svc.Requisition.CreateRequisitionBatch(f.ctx, "req@cimcon.com", &CreateRequisitionBatchInput{
		ProjectCode: "P-42",
		Rows:        []RequisitionRowInput{{CimconPartNumber: "ITEM3", ReqQty: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "2_P-42", next.BatchID)
}

func TestRequisitionBatch_Validation(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Requisition.CreateRequisitionBatch(f.ctx, "req@cimcon.com", &CreateRequisitionBatchInput{
		ProjectCode: "P-404",
		Rows:        []RequisitionRowInput{{CimconPartNumber: "ITEM1", ReqQty: 1}},
	})
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.svc.Requisition.CreateRequisitionBatch(f.ctx, "req@cimcon.com", &CreateRequisitionBatchInput{
		ProjectCode: "P-404",
		Rows:        []RequisitionRowInput{{CimconPartNumber: "ITEM1", ReqQty: 0}},
	})
	requireKind(t, err, apperr.KindValidation)
}

// batchRows indexes the rows of a batch by part number.
func (f *fixture) batchRows(t *testing.T, batchID string) map[string]entity.Requisition {
	t.Helper()
	rows, err := f.svc.Requisition.GetBatch(f.ctx, batchID)
	require.NoError(t, err)
	out := make(map[string]entity.Requisition, len(rows))
	for _, row := range rows {
		out[row.CimconPartNumber] = row
	}
	return out
}

func TestUpdateRequisition_HistoryAndNotification(t *testing.T) {
	f, mr := setupWithRedis(t)
	f.project(t, "P-9")
	res, err := f.svc.Requisition.CreateRequisitionBatch(f.ctx, "req@cimcon.com", &CreateRequisitionBatchInput{
		ProjectCode: "P-9",
		Rows: []RequisitionRowInput{
			{CimconPartNumber: "ITEM1", MaterialDescription: "Relay", ReqQty: 10},
			{CimconPartNumber: "ITEM2", MaterialDescription: "Fuse", ReqQty: 5},
		},
	})
	require.NoError(t, err)
	rows := f.batchRows(t, res.BatchID)
	historyKey := cache.RevisionHistoryKey(res.BatchID)

	history, err := f.svc.Requisition.GetBatchHistory(f.ctx, res.BatchID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.True(t, mr.Exists(historyKey))

	qty, remarks := 12, "urgent"
	out, err := f.svc.Requisition.UpdateRequisition(f.ctx, rows["ITEM1"].ID, "req@cimcon.com", &UpdateRequisitionInput{
		ReqQty: &qty, Remarks: &remarks,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, out.ReqQty)
	assert.Equal(t, "urgent", out.Remarks)
	assert.False(t, mr.Exists(historyKey))
	assert.Equal(t, 1, f.rec.Count(notify.RequisitionUpdated))

	history, err = f.svc.Requisition.GetBatchHistory(f.ctx, res.BatchID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	byField := map[string]entity.RequisitionHistory{}
	for _, h := range history {
		byField[h.FieldName] = h
	}
	assert.Equal(t, "10", byField["req_qty"].OldValue)
	assert.Equal(t, "12", byField["req_qty"].NewValue)
	assert.Equal(t, "", byField["remarks"].OldValue)
	assert.Equal(t, "urgent", byField["remarks"].NewValue)
	assert.Equal(t, "req@cimcon.com", byField["req_qty"].ChangedBy)

	t.Run("edits inside the dedup window do not notify again", func(t *testing.T) {
		qty := 7
		_, err := f.svc.Requisition.UpdateRequisition(f.ctx, rows["ITEM2"].ID, "req@cimcon.com", &UpdateRequisitionInput{ReqQty: &qty})
		require.NoError(t, err)
		assert.Equal(t, 1, f.rec.Count(notify.RequisitionUpdated))

		history, err := f.svc.Requisition.GetBatchHistory(f.ctx, res.BatchID)
		require.NoError(t, err)
		assert.Len(t, history, 3)

		mr.FastForward(2 * time.Second)
		qty = 8
		_, err = f.svc.Requisition.UpdateRequisition(f.ctx, rows["ITEM2"].ID, "req@cimcon.com", &UpdateRequisitionInput{ReqQty: &qty})
		require.NoError(t, err)
		assert.Equal(t, 2, f.rec.Count(notify.RequisitionUpdated))
	})

	t.Run("unchanged values write nothing", func(t *testing.T) {
		mr.FastForward(2 * time.Second)
		same := "urgent"
		_, err := f.svc.Requisition.UpdateRequisition(f.ctx, rows["ITEM1"].ID, "req@cimcon.com", &UpdateRequisitionInput{Remarks: &same})
		require.NoError(t, err)
		assert.Equal(t, 2, f.rec.Count(notify.RequisitionUpdated))

		history, err := f.svc.Requisition.GetBatchHistory(f.ctx, res.BatchID)
		require.NoError(t, err)
		assert.Len(t, history, 4)
	})

	t.Run("only pending rows are editable", func(t *testing.T) {
		_, err := f.svc.Requisition.ApproveBatch(f.ctx, res.BatchID, "approver@cimcon.com", nil)
		require.NoError(t, err)
		qty := 3
		_, err = f.svc.Requisition.UpdateRequisition(f.ctx, rows["ITEM1"].ID, "req@cimcon.com", &UpdateRequisitionInput{ReqQty: &qty})
		requireKind(t, err, apperr.KindInvalidTransition)

		zero := 0
		_, err = f.svc.Requisition.UpdateRequisition(f.ctx, rows["ITEM2"].ID, "req@cimcon.com", &UpdateRequisitionInput{ReqQty: &zero})
		requireKind(t, err, apperr.KindValidation)
	})
}

func TestRejectBatch_SelectedRowsAndMasteredSkipped(t *testing.T) {
	f := setup(t)
	f.project(t, "P-11")
	res, err := f.svc.Requisition.CreateRequisitionBatch(f.ctx, "req@cimcon.com", &CreateRequisitionBatchInput{
		ProjectCode: "P-11",
		Rows: []RequisitionRowInput{
			{CimconPartNumber: "ITEM1", MaterialDescription: "Relay", ReqQty: 10},
			{CimconPartNumber: "ITEM2", MaterialDescription: "Fuse", ReqQty: 5},
			{CimconPartNumber: "ITEM3", MaterialDescription: "Terminal", ReqQty: 2},
		},
	})
	require.NoError(t, err)
	rows := f.batchRows(t, res.BatchID)

	_, err = f.svc.Requisition.ApproveBatch(f.ctx, res.BatchID, "approver@cimcon.com", nil)
	require.NoError(t, err)
	_, err = f.svc.Master.VerifyToMaster(f.ctx, "store@cimcon.com", &VerifyToMasterInput{
		BatchID: res.BatchID, Rows: []VerifyRowInput{{RequisitionID: rows["ITEM1"].ID}},
	})
	require.NoError(t, err)

	_, err = f.svc.Requisition.RejectBatch(f.ctx, res.BatchID, "approver@cimcon.com", "  ", nil)
	requireKind(t, err, apperr.KindValidation)

	n, err := f.svc.Requisition.RejectBatch(f.ctx, res.BatchID, "approver@cimcon.com", "over budget", []string{rows["ITEM2"].ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 1, f.rec.Count(notify.RequisitionRejected))

	after := f.batchRows(t, res.BatchID)
	item2 := after["ITEM2"]
	assert.Equal(t, entity.RequisitionStatusRejected, item2.Status)
	assert.False(t, item2.ApprovedStatus)
	require.NotNil(t, item2.RejectionRemarks)
	assert.Equal(t, "over budget", *item2.RejectionRemarks)
	assert.Equal(t, entity.RequisitionStatusApproved, after["ITEM3"].Status)

	// the mastered row is skipped; the approved but unverified row is rejected
	n, err = f.svc.Requisition.RejectBatch(f.ctx, res.BatchID, "approver@cimcon.com", "scope cut", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	after = f.batchRows(t, res.BatchID)
	assert.Equal(t, entity.RequisitionStatusApproved, after["ITEM1"].Status)
	assert.True(t, after["ITEM1"].ApprovedStatus)
	assert.True(t, after["ITEM1"].MasterEntryExists)
	assert.Equal(t, entity.RequisitionStatusRejected, after["ITEM3"].Status)
	assert.False(t, after["ITEM3"].ApprovedStatus)
	assert.Equal(t, "over budget", *after["ITEM2"].RejectionRemarks)
	assert.Equal(t, 2, f.rec.Count(notify.RequisitionRejected))

	n, err = f.svc.Requisition.RejectBatch(f.ctx, res.BatchID, "approver@cimcon.com", "again", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, f.rec.Count(notify.RequisitionRejected))

	_, err = f.svc.Requisition.RejectBatch(f.ctx, "9_P-11", "approver@cimcon.com", "missing", nil)
	requireKind(t, err, apperr.KindNotFound)
}

// orderable walks a two line requisition through approval and verification
// and returns the master ids ready for a purchase order.
func (f *fixture) orderable(t *testing.T, code string) []string {
	t.Helper()
	f.project(t, code)
	batch, err := f.svc.Requisition.CreateRequisitionBatch(f.ctx, "req@cimcon.com", &CreateRequisitionBatchInput{
		ProjectCode: code,
		Rows: []RequisitionRowInput{
			{CimconPartNumber: "ITEM1", MaterialDescription: "Relay", Make: "Omron", ReqQty: 10},
			{CimconPartNumber: "ITEM2", MaterialDescription: "Fuse", Make: "Littelfuse", ReqQty: 5},
		},
	})
	require.NoError(t, err)
	_, err = f.svc.Requisition.ApproveBatch(f.ctx, batch.BatchID, "approver@cimcon.com", nil)
	require.NoError(t, err)

	rows := make([]VerifyRowInput, 0, len(batch.IDs))
	for _, id := range batch.IDs {
		rows = append(rows, VerifyRowInput{RequisitionID: id})
	}
	masters, err := f.svc.Master.VerifyToMaster(f.ctx, "store@cimcon.com", &VerifyToMasterInput{BatchID: batch.BatchID, Rows: rows})
	require.NoError(t, err)
	require.Len(t, masters, 2)

	_, err = f.svc.Master.VerifyToMaster(f.ctx, "store@cimcon.com", &VerifyToMasterInput{BatchID: batch.BatchID, Rows: rows[:1]})
	requireKind(t, err, apperr.KindConflict)
	return masters
}

func TestPurchaseOrder_InwardAggregation(t *testing.T) {
	f := setup(t)
	masters := f.orderable(t, "P-7")

	vendor, err := f.svc.Vendor.RegisterVendor(f.ctx, "buyer@cimcon.com", &RegisterVendorInput{Name: "Acme Components", GSTIN: "24aaacc1234f1z5"})
	require.NoError(t, err)

	po, err := f.svc.PO.CreatePO(f.ctx, "buyer@cimcon.com", &CreatePOInput{
		VendorID: vendor.ID,
		Lines: []POLineInput{
			{MasterID: masters[0], UnitPrice: "12.50"},
			{MasterID: masters[1], UnitPrice: "3"},
		},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(po.PONumber, "CIMPO"), po.PONumber)
	assert.Equal(t, entity.InwardStatusOpen, po.InwardStatus)
	assert.Equal(t, "140.00", po.TotalAmount.StringFixed(2))
	assert.Equal(t, 1, f.rec.Count(notify.POCreated))

	_, err = f.svc.PO.CreatePO(f.ctx, "buyer@cimcon.com", &CreatePOInput{
		VendorID: vendor.ID, Lines: []POLineInput{{MasterID: masters[0]}},
	})
	requireKind(t, err, apperr.KindInvalidTransition)

	approved, err := f.svc.PO.ApprovePO(f.ctx, po.PONumber, "approver@cimcon.com")
	require.NoError(t, err)
	assert.Equal(t, po.PONumber, approved.PONumber)
	assert.NotEmpty(t, approved.DocumentPath)
	assert.Equal(t, 1, f.rec.Count(notify.POApproved))

	invoiced := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	first, err := f.svc.Inward.RecordInward(f.ctx, "store@cimcon.com", &RecordInwardInput{
		PONumber:      po.PONumber,
		Location:      entity.LocationTimesSq,
		InvoiceNumber: "INV-1",
		InvoiceDate:   invoiced,
		Items: []InwardItemInput{
			{ItemCode: "ITEM1", QuantityReceived: 6},
			{ItemCode: "item2", QuantityReceived: 5},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.InwardStatusPartiallyInwarded, first.InwardStatus)
	assert.Equal(t, 11, first.TotalInwardedQuantity)

	got, err := f.svc.PO.GetPO(f.ctx, po.PONumber)
	require.NoError(t, err)
	inwarded := map[string]int{}
	for _, l := range got.LineItems {
		inwarded[l.ItemNo] = l.InwardedQuantity
	}
	assert.Equal(t, map[string]int{"ITEM1": 6, "ITEM2": 5}, inwarded)

	_, err = f.svc.Inward.RecordInward(f.ctx, "store@cimcon.com", &RecordInwardInput{
		PONumber: po.PONumber, Location: entity.LocationTimesSq, InvoiceNumber: "INV-2", InvoiceDate: invoiced,
		Items: []InwardItemInput{{ItemCode: "ITEM1", QuantityReceived: 5}},
	}, nil)
	requireKind(t, err, apperr.KindInvariantViolation)

	second, err := f.svc.Inward.RecordInward(f.ctx, "store@cimcon.com", &RecordInwardInput{
		PONumber: po.PONumber, Location: entity.LocationTimesSq, InvoiceNumber: "INV-2", InvoiceDate: invoiced,
		Items: []InwardItemInput{{ItemCode: "ITEM1", QuantityReceived: 4}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.InwardStatusCompleted, second.InwardStatus)
	assert.Equal(t, 15, second.TotalInwardedQuantity)
	assert.Equal(t, 2, f.rec.Count(notify.InwardRecorded))

	stock, err := f.svc.Inventory.ListInventory(f.ctx, "ITEM1")
	require.NoError(t, err)
	require.Len(t, stock, 1)
	assert.Equal(t, 10, stock[0].TimesSqStock)
	assert.Equal(t, 10, stock[0].AvailableStock)

	_, err = f.svc.Inward.RecordInward(f.ctx, "store@cimcon.com", &RecordInwardInput{
		PONumber: po.PONumber, Location: entity.LocationTimesSq, InvoiceNumber: "INV-3", InvoiceDate: invoiced,
		Items: []InwardItemInput{{ItemCode: "ITEM2", QuantityReceived: 1}},
	}, nil)
	requireKind(t, err, apperr.KindInvalidTransition)

	entries, err := f.svc.PO.ListInwardEntries(f.ctx, po.PONumber)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRecordInward_InvoiceRemovedOnFailure(t *testing.T) {
	f := setup(t)
	masters := f.orderable(t, "P-8")
	vendor, err := f.svc.Vendor.RegisterVendor(f.ctx, "buyer@cimcon.com", &RegisterVendorInput{Name: "Acme Components"})
	require.NoError(t, err)
	po, err := f.svc.PO.CreatePO(f.ctx, "buyer@cimcon.com", &CreatePOInput{
		VendorID: vendor.ID, Lines: []POLineInput{{MasterID: masters[0]}},
	})
	require.NoError(t, err)

	_, err = f.svc.Inward.RecordInward(f.ctx, "store@cimcon.com", &RecordInwardInput{
		PONumber: po.PONumber, Location: entity.LocationSakar, InvoiceNumber: "INV-9", InvoiceDate: time.Now(),
		Items: []InwardItemInput{{ItemCode: "ITEM9", QuantityReceived: 1}},
	}, &Upload{FileName: "inv.pdf", ContentType: "application/pdf", Size: 3, Content: strings.NewReader("pdf")})
	requireKind(t, err, apperr.KindNotFound)

	for _, p := range f.blobs.Paths() {
		assert.NotContains(t, p, "invoice", "invoice blob left behind: %s", p)
	}
}

func TestRejectPO_RequiresRemarks(t *testing.T) {
	f := setup(t)
	masters := f.orderable(t, "P-9")
	vendor, err := f.svc.Vendor.RegisterVendor(f.ctx, "buyer@cimcon.com", &RegisterVendorInput{Name: "Acme Components"})
	require.NoError(t, err)
	po, err := f.svc.PO.CreatePO(f.ctx, "buyer@cimcon.com", &CreatePOInput{
		VendorID: vendor.ID, Lines: []POLineInput{{MasterID: masters[0]}},
	})
	require.NoError(t, err)

	_, err = f.svc.PO.RejectPO(f.ctx, po.PONumber, "approver@cimcon.com", "")
	requireKind(t, err, apperr.KindValidation)

	_, err = f.svc.PO.RejectPO(f.ctx, po.PONumber, "approver@cimcon.com", "price too high")
	require.NoError(t, err)
	assert.Equal(t, 1, f.rec.Count(notify.PORejected))

	_, err = f.svc.PO.ApprovePO(f.ctx, po.PONumber, "approver@cimcon.com")
	requireKind(t, err, apperr.KindInvalidTransition)
}
