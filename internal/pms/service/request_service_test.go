package service

import (
	"sync"
	"testing"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) classify(t *testing.T, kind, name, productID string) *entity.Classification {
	t.Helper()
	c, err := f.svc.Classification.CreateClassification(f.ctx, &CreateClassificationRequest{
		Kind: kind, Name: name, ProductID: productID,
	})
	require.NoError(t, err)
	return c
}

func TestCreateClassification_Codes(t *testing.T) {
	f := setup(t)

	product := f.classify(t, "product", "Resistor", "")
	assert.Equal(t, "RES", product.Code)

	ti := f.classify(t, "make", "Texas Instruments", product.ID)
	assert.Equal(t, "TI", ti.Code)

	again := f.classify(t, "make", "Texas Instruments", product.ID)
	assert.Equal(t, ti.ID, again.ID)
	assert.Equal(t, "TI", again.Code)

	assert.Equal(t, "TO", f.classify(t, "make", "Torex", product.ID).Code)
	assert.Equal(t, "T1", f.classify(t, "make", "Toshiba", product.ID).Code)

	t.Run("duplicate product code conflicts", func(t *testing.T) {
		_, err := f.svc.Classification.CreateClassification(f.ctx, &CreateClassificationRequest{Kind: "product", Name: "Resonator"})
		requireKind(t, err, apperr.KindConflict)
	})

	t.Run("scoped kinds need a product", func(t *testing.T) {
		_, err := f.svc.Classification.CreateClassification(f.ctx, &CreateClassificationRequest{Kind: "make", Name: "Murata"})
		requireKind(t, err, apperr.KindValidation)
	})

	t.Run("preview matches next allocation", func(t *testing.T) {
		code, err := f.svc.Classification.GenerateCode(f.ctx, "model", "Axial", product.ID, "")
		require.NoError(t, err)
		assert.Equal(t, "001", code)
		assert.Equal(t, code, f.classify(t, "model", "Axial", product.ID).Code)
	})

	t.Run("related options lists children", func(t *testing.T) {
		opts, err := f.svc.Classification.RelatedOptions(f.ctx, product.ID)
		require.NoError(t, err)
		assert.Len(t, opts.Makes, 3)
		assert.Len(t, opts.Models, 1)
	})
}

func TestSubmitFactoryItemRequest_AssemblesPartNumber(t *testing.T) {
	f := setup(t)
	product := f.classify(t, "product", "Resistor", "")
	ti := f.classify(t, "make", "Texas Instruments", product.ID)

	req, err := f.svc.Request.SubmitFactoryItemRequest(f.ctx, "eng@cimcon.com", &FactoryRequestInput{
		ProductID:          product.ID,
		MakeID:             ti.ID,
		MfgPartNo:          "LM317",
		RatingValue:        "5V",
		PackageDescription: "SOT223",
		Description:        "Adjustable regulator",
		UOM:                "Nos",
		SendForApproval:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "001", req.MPNCode)
	assert.Equal(t, "RESTI0015V000SOT2", req.FullPartNumber)
	assert.Len(t, req.FullPartNumber, 17)
	assert.Equal(t, entity.RequestStatusPending, req.Status)
	assert.Equal(t, 1, f.rec.Count(notify.ItemRequestSubmitted))

	first, err := f.svc.Request.ApproveFactoryRequest(f.ctx, req.ID, "approver@cimcon.com")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusApproved, first.Status)

	second, err := f.svc.Request.ApproveFactoryRequest(f.ctx, req.ID, "approver@cimcon.com")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusApproved, second.Status)

	var masters int64
	require.NoError(t, f.db.Model(&entity.FactoryItemMaster{}).
		Where("full_part_number = ?", "RESTI0015V000SOT2").Count(&masters).Error)
	assert.EqualValues(t, 1, masters)
	assert.Equal(t, 1, f.rec.Count(notify.ItemRequestApproved))

	_, err = f.svc.Request.RejectFactoryRequest(f.ctx, req.ID, "approver@cimcon.com", "late")
	requireKind(t, err, apperr.KindInvalidTransition)
}

func TestSubmitFactoryItemRequest_ConcurrentMPNCodes(t *testing.T) {
	f := setup(t)
	product := f.classify(t, "product", "Capacitor", "")
	mk := f.classify(t, "make", "Murata", product.ID)

	var wg sync.WaitGroup
	codes := make([]string, 2)
	errs := make([]error, 2)
	for i, part := range []string{"GRM188", "GRM155"} {
		wg.Add(1)
		go func(i int, part string) {
			defer wg.Done()
			req, err := f.svc.Request.SubmitFactoryItemRequest(f.ctx, "eng@cimcon.com", &FactoryRequestInput{
				ProductID: product.ID, MakeID: mk.ID, MfgPartNo: part,
				RatingValue: "10V", PackageDescription: "0603",
			})
			errs[i] = err
			if err == nil {
				codes[i] = req.MPNCode
			}
		}(i, part)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.ElementsMatch(t, []string{"001", "002"}, codes)
}

func TestItemRequest_ApproveCreatesSingleMaster(t *testing.T) {
	f := setup(t)

	req, err := f.svc.Request.SubmitItemRequest(f.ctx, "eng@cimcon.com", &ItemRequestInput{
		ProductName:        "Neighbourhood Controller",
		ProductCode:        "NEI",
		SubCategoryName:    "Assembly",
		SubCategoryCode:    "AA",
		MakeName:           "Trident",
		MakeCode:           "TR",
		ModelName:          "Base",
		ModelCode:          "001",
		RemarksDescription: "Standard",
		RemarksCode:        "0001",
		MfgPartNo:          "TR-NC-1",
		Description:        "Controller",
		UOM:                "Nos",
		CimconPartNo:       "NEIAATR001001001",
		SendForApproval:    true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "NEIAATR001001001", req.CimconPartNo)
	assert.Equal(t, entity.RequestStatusPending, req.Status)

	for i := 0; i < 2; i++ {
		out, err := f.svc.Request.ApproveItemRequest(f.ctx, req.ID, "approver@cimcon.com")
		require.NoError(t, err)
		assert.Equal(t, entity.RequestStatusApproved, out.Status)
	}

	var count int64
	require.NoError(t, f.db.Model(&entity.ItemMaster{}).
		Where("cimcon_part_no = ?", "NEIAATR001001001").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	master, err := f.svc.Request.GetItemMaster(f.ctx, "NEIAATR001001001")
	require.NoError(t, err)
	assert.Equal(t, "Controller", master.Description)
	f.requireClassified(t, master, "NEI", "Neighbourhood Controller", map[string][2]string{
		"sub_category": {"AA", "Assembly"},
		"make":         {"TR", "Trident"},
		"model":        {"001", "Base"},
		"remarks":      {"0001", "Standard"},
	})

	opts, err := f.svc.Request.ListApprovalQueue(f.ctx, entity.RequestStatusApproved)
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}

// requireClassified checks that every classification row the master points at
// carries the code embedded in the request and the name it was requested with.
func (f *fixture) requireClassified(t *testing.T, master *entity.ItemMaster, productCode, productName string, rows map[string][2]string) {
	t.Helper()
	cr := f.repos.Classification
	product, err := cr.FindProductByID(f.ctx, master.ProductID)
	require.NoError(t, err)
	assert.Equal(t, productCode, product.Code)
	assert.Equal(t, productName, product.Name)

	for kind, want := range rows {
		var id, name string
		switch kind {
		case "sub_category":
			row, err := repository.FindByCode[entity.SubCategory](f.ctx, cr, product.ID, want[0])
			require.NoError(t, err, kind)
			id, name = row.ID, row.Name
			assert.Equal(t, row.ID, master.SubCategoryID)
		case "make":
			row, err := repository.FindByCode[entity.Make](f.ctx, cr, product.ID, want[0])
			require.NoError(t, err, kind)
			id, name = row.ID, row.Name
			assert.Equal(t, row.ID, master.MakeID)
		case "model":
			row, err := repository.FindByCode[entity.ProductModel](f.ctx, cr, product.ID, want[0])
			require.NoError(t, err, kind)
			id, name = row.ID, row.Name
			assert.Equal(t, row.ID, master.ModelID)
		case "remarks":
			row, err := repository.FindByCode[entity.Remarks](f.ctx, cr, product.ID, want[0])
			require.NoError(t, err, kind)
			id, name = row.ID, row.Description
			assert.Equal(t, row.ID, master.RemarksID)
		default:
			t.Fatalf("unknown kind %s", kind)
		}
		assert.NotEmpty(t, id, kind)
		assert.Equal(t, want[1], name, kind)
	}
}

func TestItemRequest_ApprovalSettlesCodesPerName(t *testing.T) {
	f := setup(t)

	submit := func(sub, model, remarks string) *entity.ItemRequest {
		req, err := f.svc.Request.SubmitItemRequest(f.ctx, "eng@cimcon.com", &ItemRequestInput{
			ProductName:        "Relay",
			SubCategoryName:    sub,
			MakeName:           "Omron",
			ModelName:          model,
			RemarksDescription: remarks,
			MfgPartNo:          "G5V-" + model,
			Description:        "Signal relay " + model,
			UOM:                "Nos",
			SendForApproval:    true,
		}, nil)
		require.NoError(t, err)
		return req
	}
	a := submit("Power", "X100", "Coil 24V")
	b := submit("Signal", "Y200", "Coil 12V")

	// neither name exists yet, so both requests derive the first codes
	assert.Equal(t, "RELAAOM0010001000", a.CimconPartNo)
	assert.Equal(t, a.CimconPartNo, b.CimconPartNo)

	approvedA, err := f.svc.Request.ApproveItemRequest(f.ctx, a.ID, "approver@cimcon.com")
	require.NoError(t, err)
	approvedB, err := f.svc.Request.ApproveItemRequest(f.ctx, b.ID, "approver@cimcon.com")
	require.NoError(t, err)

	assert.Equal(t, "RELAAOM0010001000", approvedA.CimconPartNo)
	assert.Equal(t, "RELABOM0020002000", approvedB.CimconPartNo)
	assert.Equal(t, "002", approvedB.ModelCode)

	stored, err := f.svc.Request.GetItemRequest(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "RELABOM0020002000", stored.CimconPartNo)

	masterA, err := f.svc.Request.GetItemMaster(f.ctx, approvedA.CimconPartNo)
	require.NoError(t, err)
	f.requireClassified(t, masterA, "REL", "Relay", map[string][2]string{
		"sub_category": {"AA", "Power"},
		"make":         {"OM", "Omron"},
		"model":        {"001", "X100"},
		"remarks":      {"0001", "Coil 24V"},
	})

	masterB, err := f.svc.Request.GetItemMaster(f.ctx, approvedB.CimconPartNo)
	require.NoError(t, err)
	f.requireClassified(t, masterB, "REL", "Relay", map[string][2]string{
		"sub_category": {"AB", "Signal"},
		"make":         {"OM", "Omron"},
		"model":        {"002", "Y200"},
		"remarks":      {"0002", "Coil 12V"},
	})
	assert.Equal(t, masterA.MakeID, masterB.MakeID)

	t.Run("known names reuse their codes", func(t *testing.T) {
		c := submit("Signal", "X100", "Coil 24V")
		assert.Equal(t, "RELABOM0010001000", c.CimconPartNo)
		approved, err := f.svc.Request.ApproveItemRequest(f.ctx, c.ID, "approver@cimcon.com")
		require.NoError(t, err)
		assert.Equal(t, c.CimconPartNo, approved.CimconPartNo)
	})
}

func TestItemRequest_ApprovalRejectsForeignProductCode(t *testing.T) {
	f := setup(t)
	f.classify(t, "product", "Resistor", "")

	req, err := f.svc.Request.SubmitItemRequest(f.ctx, "eng@cimcon.com", &ItemRequestInput{
		ProductName: "Resonator", MakeName: "Murata", MfgPartNo: "CSTNE", Description: "Ceramic resonator", UOM: "Nos",
		SendForApproval: true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "RES", req.ProductCode)

	_, err = f.svc.Request.ApproveItemRequest(f.ctx, req.ID, "approver@cimcon.com")
	requireKind(t, err, apperr.KindConflict)

	stored, err := f.svc.Request.GetItemRequest(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPending, stored.Status)
}

func TestItemRequest_UpdateResubmits(t *testing.T) {
	f := setup(t)
	base := ItemRequestInput{
		ProductName: "Relay", MakeName: "Omron", MfgPartNo: "G5V", Description: "Relay", UOM: "Nos",
	}

	draft, err := f.svc.Request.SubmitItemRequest(f.ctx, "eng@cimcon.com", &base, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusDraft, draft.Status)
	assert.Zero(t, f.rec.Count(notify.ItemRequestSubmitted))

	edit := UpdateItemRequestInput{ItemRequestInput: base}
	edit.Description = "Relay 5V coil"
	edit.NewStatus = entity.RequestStatusPending
	sent, err := f.svc.Request.UpdateItemRequest(f.ctx, draft.ID, "eng@cimcon.com", &edit)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPending, sent.Status)
	assert.Equal(t, "Relay 5V coil", sent.Description)
	assert.Equal(t, 1, f.rec.Count(notify.ItemRequestSubmitted))

	_, err = f.svc.Request.RejectItemRequest(f.ctx, draft.ID, "approver@cimcon.com", "missing datasheet")
	require.NoError(t, err)
	rejected, err := f.svc.Request.GetItemRequest(f.ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "missing datasheet", rejected.RejectionReason)

	edit = UpdateItemRequestInput{ItemRequestInput: base}
	edit.NewStatus = entity.RequestStatusPending
	resent, err := f.svc.Request.UpdateItemRequest(f.ctx, draft.ID, "eng@cimcon.com", &edit)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPending, resent.Status)
	assert.Empty(t, resent.RejectionReason)
	assert.Empty(t, resent.RejectedBy)
	assert.Equal(t, 2, f.rec.Count(notify.ItemRequestSubmitted))

	stored, err := f.svc.Request.GetItemRequest(f.ctx, draft.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RejectionReason)

	t.Run("editing a pending request does not notify again", func(t *testing.T) {
		edit := UpdateItemRequestInput{ItemRequestInput: base}
		edit.Bin = "R2-S4"
		out, err := f.svc.Request.UpdateItemRequest(f.ctx, draft.ID, "eng@cimcon.com", &edit)
		require.NoError(t, err)
		assert.Equal(t, entity.RequestStatusPending, out.Status)
		assert.Equal(t, 2, f.rec.Count(notify.ItemRequestSubmitted))
	})

	t.Run("approval and rejection are not edit targets", func(t *testing.T) {
		edit := UpdateItemRequestInput{ItemRequestInput: base}
		edit.NewStatus = entity.RequestStatusApproved
		_, err := f.svc.Request.UpdateItemRequest(f.ctx, draft.ID, "eng@cimcon.com", &edit)
		requireKind(t, err, apperr.KindInvalidTransition)
	})
}

func TestItemRequest_Validation(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Request.SubmitItemRequest(f.ctx, "eng@cimcon.com", &ItemRequestInput{ProductName: "Relay"}, nil)
	requireKind(t, err, apperr.KindValidation)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Fields, "make_name")
	assert.Contains(t, ae.Fields, "uom")

	_, err = f.svc.Request.SubmitItemRequest(f.ctx, "eng@cimcon.com", &ItemRequestInput{
		ProductName: "Relay", MakeName: "Omron", MfgPartNo: "G5V", Description: "Relay", UOM: "Nos",
		CimconPartNo: "bad part!",
	}, nil)
	requireKind(t, err, apperr.KindValidation)

	_, err = f.svc.Request.ApproveItemRequest(f.ctx, entity.NewID(), "approver@cimcon.com")
	requireKind(t, err, apperr.KindNotFound)
}

func TestItemRequest_RejectNeedsReason(t *testing.T) {
	f := setup(t)
	req, err := f.svc.Request.SubmitItemRequest(f.ctx, "eng@cimcon.com", &ItemRequestInput{
		ProductName: "Relay", MakeName: "Omron", MfgPartNo: "G5V", Description: "Relay", UOM: "Nos",
		SendForApproval: true,
	}, nil)
	require.NoError(t, err)

	_, err = f.svc.Request.RejectItemRequest(f.ctx, req.ID, "approver@cimcon.com", " ")
	requireKind(t, err, apperr.KindValidation)

	out, err := f.svc.Request.RejectItemRequest(f.ctx, req.ID, "approver@cimcon.com", "duplicate of existing part")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusRejected, out.Status)
	assert.Equal(t, 1, f.rec.Count(notify.ItemRequestRejected))
}

func TestClassification_MPNsAndDeleteProduct(t *testing.T) {
	f := setup(t)
	product := f.classify(t, "product", "Amplifier", "")
	ti := f.classify(t, "make", "Texas Instruments", product.ID)

	first, err := f.svc.Classification.AllocateMPN(f.ctx, ti.ID, "LM358")
	require.NoError(t, err)
	second, err := f.svc.Classification.AllocateMPN(f.ctx, ti.ID, "NE555")
	require.NoError(t, err)
	assert.Equal(t, "001", first.Code)
	assert.Equal(t, "002", second.Code)

	_, err = f.svc.Classification.AllocateMPN(f.ctx, ti.ID, "  ")
	requireKind(t, err, apperr.KindValidation)
	_, err = f.svc.Classification.AllocateMPN(f.ctx, entity.NewID(), "LM358")
	requireKind(t, err, apperr.KindNotFound)

	mpns, err := f.svc.Classification.ListMPNs(f.ctx, ti.ID)
	require.NoError(t, err)
	assert.Len(t, mpns, 2)

	products, err := f.svc.Classification.ListProducts(f.ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "AMP", products[0].Code)

	require.NoError(t, f.svc.Classification.DeleteProduct(f.ctx, product.ID))

	mpns, err = f.svc.Classification.ListMPNs(f.ctx, ti.ID)
	require.NoError(t, err)
	assert.Empty(t, mpns)
	_, err = f.svc.Classification.RelatedOptions(f.ctx, product.ID)
	requireKind(t, err, apperr.KindNotFound)
	requireKind(t, f.svc.Classification.DeleteProduct(f.ctx, product.ID), apperr.KindNotFound)
}
