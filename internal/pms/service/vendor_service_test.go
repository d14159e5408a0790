package service

import (
	"strings"
	"testing"

	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterVendor_Codes(t *testing.T) {
	f := setup(t)

	first, err := f.svc.Vendor.RegisterVendor(f.ctx, "buyer@cimcon.com", &RegisterVendorInput{Name: "Acme Components", PAN: "aaacc1234f"})
	require.NoError(t, err)
	assert.Equal(t, "VEN0001", first.VendorCode)
	assert.Equal(t, "AAACC1234F", first.PAN)

	second, err := f.svc.Vendor.RegisterVendor(f.ctx, "buyer@cimcon.com", &RegisterVendorInput{Name: "Bharat Cables"})
	require.NoError(t, err)
	assert.Equal(t, "VEN0002", second.VendorCode)

	_, err = f.svc.Vendor.RegisterVendor(f.ctx, "buyer@cimcon.com", &RegisterVendorInput{Name: "  "})
	requireKind(t, err, apperr.KindValidation)

	list, total, err := f.svc.Vendor.List(f.ctx, 1, 10, "bharat")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestUploadVendorDocument_NumbersRepeats(t *testing.T) {
	f := setup(t)
	v, err := f.svc.Vendor.RegisterVendor(f.ctx, "buyer@cimcon.com", &RegisterVendorInput{Name: "Acme Components"})
	require.NoError(t, err)

	upload := func() string {
		doc, err := f.svc.Vendor.UploadVendorDocument(f.ctx, v.ID, "gst_certificate", "buyer@cimcon.com", &Upload{
			FileName: "gst.pdf", ContentType: "application/pdf", Size: 4, Content: strings.NewReader("%PDF"),
		})
		require.NoError(t, err)
		return doc.Path
	}
	first := upload()
	second := upload()
	assert.True(t, strings.HasSuffix(first, "/gst_certificate.pdf"), first)
	assert.True(t, strings.HasSuffix(second, "/gst_certificate_1.pdf"), second)
	assert.Len(t, f.blobs.Paths(), 2)

	got, err := f.svc.Vendor.Get(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, got.Documents, 2)

	_, err = f.svc.Vendor.UploadVendorDocument(f.ctx, v.ID, "pan", "buyer@cimcon.com", nil)
	requireKind(t, err, apperr.KindValidation)

	_, err = f.svc.Vendor.UploadVendorDocument(f.ctx, "missing", "pan", "buyer@cimcon.com", &Upload{
		FileName: "pan.png", Content: strings.NewReader("png"),
	})
	requireKind(t, err, apperr.KindNotFound)
}
