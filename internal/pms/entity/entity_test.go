package entity

import (
	"testing"
	"time"
)

func TestCanTransitionRequest(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{"", RequestStatusDraft, true},
		{"", RequestStatusPending, true},
		{"", RequestStatusApproved, false},
		{RequestStatusDraft, RequestStatusPending, true},
		{RequestStatusDraft, RequestStatusApproved, false},
		{RequestStatusPending, RequestStatusApproved, true},
		{RequestStatusPending, RequestStatusRejected, true},
		{RequestStatusRejected, RequestStatusPending, true},
		{RequestStatusRejected, RequestStatusApproved, false},
		{RequestStatusApproved, RequestStatusPending, false},
		{RequestStatusApproved, RequestStatusRejected, false},
	}
	for _, tt := range tests {
		if got := CanTransitionRequest(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionRequest(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestRequestViews(t *testing.T) {
	var reqs []Request = []Request{
		&ItemRequest{ID: "a", CimconPartNo: "NEIAATR001001001", Status: RequestStatusPending},
		&FactoryItemRequest{ID: "b", FullPartNumber: "RESTI0015V000SOT2", Status: RequestStatusDraft},
	}
	if v := reqs[0].View(); v.Kind != RequestKindCatalog || v.PartNumber != "NEIAATR001001001" {
		t.Errorf("catalog view = %+v", v)
	}
	if v := reqs[1].View(); v.Kind != RequestKindFactory || v.PartNumber != "RESTI0015V000SOT2" || v.Status != RequestStatusDraft {
		t.Errorf("factory view = %+v", v)
	}
}

func TestAggregateInwardStatus(t *testing.T) {
	lines := []POLineItem{{Quantity: 10}, {Quantity: 5}}
	if s, n := AggregateInwardStatus(lines); s != InwardStatusOpen || n != 0 {
		t.Errorf("fresh = %s/%d", s, n)
	}

	lines[0].InwardedQuantity, lines[1].InwardedQuantity = 6, 5
	if s, n := AggregateInwardStatus(lines); s != InwardStatusPartiallyInwarded || n != 11 {
		t.Errorf("partial = %s/%d", s, n)
	}

	lines[0].InwardedQuantity = 10
	if s, n := AggregateInwardStatus(lines); s != InwardStatusCompleted || n != 15 {
		t.Errorf("complete = %s/%d", s, n)
	}

	if s, _ := AggregateInwardStatus(nil); s != InwardStatusOpen {
		t.Errorf("no lines = %s", s)
	}
}

func TestInventoryStock(t *testing.T) {
	inv := &Inventory{ItemNo: "X"}
	if err := inv.AddStock(LocationTimesSq, 50); err != nil {
		t.Fatal(err)
	}
	if err := inv.AddStock(LocationSakar, 5); err != nil {
		t.Fatal(err)
	}
	if err := inv.AddStock(LocationSakar, -6); err == nil {
		t.Error("expected negative partition to be refused")
	}
	if err := inv.AddStock("warehouse", 1); err == nil {
		t.Error("expected unknown location error")
	}

	inv.Recompute(20)
	if inv.TotalStock != 55 || inv.AllocatedStock != 20 || inv.AvailableStock != 35 {
		t.Errorf("derived = %d/%d/%d", inv.TotalStock, inv.AllocatedStock, inv.AvailableStock)
	}
	if err := inv.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	inv.TotalStock = 99
	if err := inv.Validate(); err == nil {
		t.Error("Validate should catch a stale total")
	}
}

func TestAllocationStatusAfterOutward(t *testing.T) {
	a := &StockAllocation{AllocatedQuantity: 5}
	if s := a.StatusAfterOutward(); s != AllocationStatusPartiallyOutward {
		t.Errorf("got %s", s)
	}
	a.AllocatedQuantity = 0
	if s := a.StatusAfterOutward(); s != AllocationStatusFullyOutward {
		t.Errorf("got %s", s)
	}
}

func TestGatePassStatusAfterReturn(t *testing.T) {
	today := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	g := &ReturnableGatePass{
		ExpectedReturnDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Items:              []ReturnableGatePassItem{{Quantity: 4}, {Quantity: 2}},
	}
	if s := g.StatusAfterReturn(today); s != GatePassStatusIssued {
		t.Errorf("due today is not overdue: %s", s)
	}
	g.Items[0].ReturnedQuantity = 1
	if s := g.StatusAfterReturn(today); s != GatePassStatusPartiallyReturned {
		t.Errorf("partial: %s", s)
	}
	if s := g.StatusAfterReturn(today.AddDate(0, 0, 1)); s != GatePassStatusOverdue {
		t.Errorf("past due: %s", s)
	}
	g.Items[0].ReturnedQuantity, g.Items[1].ReturnedQuantity = 4, 2
	if s := g.StatusAfterReturn(today.AddDate(0, 0, 5)); s != GatePassStatusFullyReturned {
		t.Errorf("full: %s", s)
	}
}

func TestRejectedReturnSummary(t *testing.T) {
	r := &RejectedMaterialReturn{Items: []RejectedMaterialReturnItem{
		{Quantity: 3, Action: RejectedActionAddBack},
		{Quantity: 2, Action: RejectedActionDiscard},
		{Quantity: 1, Action: RejectedActionAddBack},
	}}
	if got := r.SummarizeActions(); got != "Added back: 4, Discarded: 2" {
		t.Errorf("SummarizeActions() = %q", got)
	}
}

func TestUserDisplayName(t *testing.T) {
	if n := (&User{FirstName: "Ravi", LastName: "Shah"}).DisplayName(); n != "Ravi Shah" {
		t.Errorf("got %q", n)
	}
	if n := (&User{Email: "x@cimcon.test"}).DisplayName(); n != "x@cimcon.test" {
		t.Errorf("got %q", n)
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if len(a) != 32 || a == b {
		t.Errorf("NewID() = %q, %q", a, b)
	}
}
