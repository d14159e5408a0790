package blob

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestPaths(t *testing.T) {
	at := time.Date(2026, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"invoice", InvoicePath("CIMPO-2603-0001", "pdf", at), "purchase_invoices/invoice_CIMPO-2603-0001_20260309_140507.pdf"},
		{"vendor first", VendorDocumentPath("v1", "Acme Components Pvt. Ltd", "gst_certificate", 0, "pdf"), "vendor_documents/v1_Acme_Components_Pvt._Ltd/gst_certificate.pdf"},
		{"vendor numbered", VendorDocumentPath("v1", "Acme", "pan", 2, "jpg"), "vendor_documents/v1_Acme/pan_2.jpg"},
		{"gate pass", GatePassPath("CIMRGP-2603-0004", "xlsx"), "gate_passes/CIMRGP-2603-0004.xlsx"},
		{"challan", DeliveryChallanPath("DC/17", at), "documents/delivery_challan_DC_17_20260309_140507.xlsx"},
		{"po", PurchaseOrderPath("CIMPO-2603-0001"), "purchase_orders/CIMPO-2603-0001.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestSafeNameAndExt(t *testing.T) {
	if got := SafeName("  ../etc/passwd "); strings.Contains(got, "/") {
		t.Errorf("SafeName kept a separator: %q", got)
	}
	if got := SafeName("***"); got != "file" {
		t.Errorf("SafeName(***) = %q", got)
	}
	if got := Ext("Invoice.PDF", "bin"); got != "pdf" {
		t.Errorf("Ext = %q", got)
	}
	if got := Ext("noext", "bin"); got != "bin" {
		t.Errorf("Ext fallback = %q", got)
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	if err := m.Put(ctx, "a/b.txt", strings.NewReader("hello"), 5, "text/plain"); err != nil {
		t.Fatal(err)
	}
	if b, ok := m.Get("a/b.txt"); !ok || string(b) != "hello" {
		t.Fatalf("Get = %q, %v", b, ok)
	}
	_ = m.Remove(ctx, "a/b.txt")
	if _, ok := m.Get("a/b.txt"); ok {
		t.Fatal("object should be removed")
	}
}

func TestMinioStoreWithoutEndpointIsNoop(t *testing.T) {
	s, err := NewMinioStore("", "", "", "bucket", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(context.Background(), "x", strings.NewReader("y"), 1, ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}
}
