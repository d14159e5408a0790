package codegen

import (
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestProductCode(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"single word", "Resistor", "RES"},
		{"multi word uses first", "Neon indicator lamp", "NEO"},
		{"short padded", "IC", "ICX"},
		{"trimmed and cased", "  capacitor ", "CAP"},
		{"punctuation dropped", "P.C.B board", "PCB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProductCode(tt.in)
			if err != nil {
				t.Fatalf("ProductCode(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ProductCode(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if !ValidCode(KindProduct, got) {
				t.Errorf("%q is not a valid product code", got)
			}
		})
	}
	if _, err := ProductCode("   "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name: got %v", err)
	}
}

func TestMakeCode(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Texas Instruments", "TI"},
		{"Toshiba", "TO"},
		{"ST Micro Electronics", "SM"},
		{"Q", "QX"},
		{"3M", "3M"},
	}
	for _, tt := range tests {
		got, err := MakeCode(tt.in)
		if err != nil {
			t.Fatalf("MakeCode(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("MakeCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveMakeCodeCollisions(t *testing.T) {
	taken := map[string]bool{"TO": true}
	got, err := ResolveMakeCode("Toshiba", func(c string) bool { return taken[c] })
	if err != nil || got != "T1" {
		t.Fatalf("ResolveMakeCode = %q, %v; want T1", got, err)
	}

	for i := 1; i <= 9; i++ {
		taken["T"+strconv.Itoa(i)] = true
	}
	got, err = ResolveMakeCode("Toshiba", func(c string) bool { return taken[c] })
	if err != nil || got != "10" {
		t.Fatalf("after T1..T9: got %q, %v; want 10", got, err)
	}

	_, err = ResolveMakeCode("Toshiba", func(string) bool { return true })
	if !errors.Is(err, ErrCodeExhausted) {
		t.Fatalf("all taken: got %v, want ErrCodeExhausted", err)
	}
}

func TestResolveMakeCodeDeterministic(t *testing.T) {
	taken := func(c string) bool { return c == "TI" || c == "T1" }
	a, _ := ResolveMakeCode("Texas Instruments", taken)
	b, _ := ResolveMakeCode("Texas Instruments", taken)
	if a != b || a != "T2" {
		t.Errorf("got %q and %q, want T2 twice", a, b)
	}
}

func TestNextSubCategoryCode(t *testing.T) {
	got, _ := NextSubCategoryCode(nil)
	if got != "AA" {
		t.Errorf("empty = %q, want AA", got)
	}
	got, _ = NextSubCategoryCode([]string{"AA", "AB"})
	if got != "AC" {
		t.Errorf("got %q, want AC", got)
	}

	var used []string
	for b := 'A'; b <= 'Z'; b++ {
		used = append(used, "A"+string(b))
	}
	got, _ = NextSubCategoryCode(used)
	if got != "BA" {
		t.Errorf("after AZ got %q, want BA", got)
	}

	var all []string
	for a := 'A'; a <= 'Z'; a++ {
		for b := 'A'; b <= 'Z'; b++ {
			all = append(all, string([]rune{a, b}))
		}
	}
	if _, err := NextSubCategoryCode(all); !errors.Is(err, ErrCodeExhausted) {
		t.Errorf("full space: got %v", err)
	}
}

func TestRatingAndPackageCodes(t *testing.T) {
	r, _ := RatingCode(" 5 v ")
	if r != "5V" {
		t.Errorf("RatingCode = %q, want 5V", r)
	}
	r, _ = RatingCode("0.25 W/1%")
	if r != "0.25W" {
		t.Errorf("RatingCode = %q, want 0.25W", r)
	}
	if !ValidCode(KindRating, r) {
		t.Errorf("%q should be a valid rating code", r)
	}

	p, _ := PackageCode("SOT223")
	if p != "SOT2" {
		t.Errorf("PackageCode = %q, want SOT2", p)
	}
	p, _ = PackageCode("do")
	if p != "DONN" {
		t.Errorf("PackageCode = %q, want DONN", p)
	}
}

func TestSequences(t *testing.T) {
	if n, ok := ParseSequence("MPN007"); !ok || n != 7 {
		t.Errorf("legacy parse = %d, %v", n, ok)
	}
	if _, ok := ParseSequence("A12"); ok {
		t.Error("A12 should not parse")
	}
	if got := MaxSequence([]string{"001", "MPN004", "junk", "003"}); got != 4 {
		t.Errorf("MaxSequence = %d, want 4", got)
	}

	got, _ := SmallestUnused([]string{"001", "002", "004"}, ModelWidth)
	if got != "003" {
		t.Errorf("SmallestUnused model = %q, want 003", got)
	}
	got, _ = SmallestUnused(nil, RemarksWidth)
	if got != "0001" {
		t.Errorf("SmallestUnused remarks = %q, want 0001", got)
	}

	if _, err := FormatSequence(1000, MPNWidth); !errors.Is(err, ErrCodeExhausted) {
		t.Errorf("overflow: got %v", err)
	}
}

func TestAssembleFactory(t *testing.T) {
	got := AssembleFactory(FactoryParts{Product: "RES", Make: "TI", MPN: "001", Rating: "5V", Package: "SOT223"})
	if got != "RESTI0015V000SOT2" {
		t.Errorf("AssembleFactory = %q, want RESTI0015V000SOT2", got)
	}
	if len(got) != FactoryPartNumberLength {
		t.Errorf("len = %d, want %d", len(got), FactoryPartNumberLength)
	}
}

func TestAssembleItem(t *testing.T) {
	p := ItemParts{Product: "NEI", SubCategory: "AA", Make: "TR", Model: "001", Remarks: "0001", Rating: "24"}
	got := AssembleItem(p)
	if got != "NEIAATR0010001240" {
		t.Errorf("AssembleItem = %q", got)
	}
	if len(got) != ItemPartNumberLength {
		t.Errorf("len = %d, want %d", len(got), ItemPartNumberLength)
	}
}

func TestAssembleIsIdempotent(t *testing.T) {
	inputs := []FactoryParts{
		{Product: "re", Make: "t", MPN: "1", Rating: "5v", Package: "sot223"},
		{Product: "CAPACITOR", Make: "MURATA", MPN: "0123", Rating: "100NF50V", Package: "0805"},
		{},
	}
	for _, in := range inputs {
		if AssembleFactory(in.Normalized()) != AssembleFactory(in) {
			t.Errorf("factory assemble not idempotent for %+v", in)
		}
		if got := AssembleFactory(in); len(got) != FactoryPartNumberLength {
			t.Errorf("len(%q) = %d", got, len(got))
		}
	}
	item := ItemParts{Product: "x", Remarks: "12345"}
	if AssembleItem(item.Normalized()) != AssembleItem(item) {
		t.Error("item assemble not idempotent")
	}
}

func TestAssembleDropsNonAlphanumerics(t *testing.T) {
	if got := Normalize("Résistance", ProductWidth, PadAlpha); got != "RSI" {
		t.Errorf("Normalize = %q, want RSI", got)
	}
	if got := Normalize("µ", MakeWidth, PadAlpha); got != "XX" {
		t.Errorf("Normalize = %q, want XX", got)
	}

	got := AssembleFactory(FactoryParts{Product: "Ωhm", Make: "é1", MPN: "001", Rating: "0.25W", Package: "SOT-23"})
	if got != "HMX1X001025W0SOT2" {
		t.Errorf("AssembleFactory = %q, want HMX1X001025W0SOT2", got)
	}
	if !ValidPartNumber(got) || len(got) != FactoryPartNumberLength {
		t.Errorf("%q should be a valid %d character part number", got, FactoryPartNumberLength)
	}

	item := AssembleItem(ItemParts{Product: "Relé", SubCategory: "ÄB", Make: "TR", Model: "001", Remarks: "0001", Rating: "2.4"})
	if !ValidPartNumber(item) || len(item) != ItemPartNumberLength {
		t.Errorf("%q should be a valid %d character part number", item, ItemPartNumberLength)
	}
}

func TestValidPartNumber(t *testing.T) {
	for _, ok := range []string{"NEIAATR001001001", "RESTI0015V000SOT2", "CIM-123"} {
		if !ValidPartNumber(ok) {
			t.Errorf("%q should be valid", ok)
		}
	}
	for _, bad := range []string{"", "res ti", "abc", "THISISAPARTNUMBERTHATISMUCHTOOLONG"} {
		if ValidPartNumber(bad) {
			t.Errorf("%q should be invalid", bad)
		}
	}
}

func TestBatchIDs(t *testing.T) {
	if got := NextBatchID(nil, "P-42"); got != "1_P-42" {
		t.Errorf("first batch = %q, want 1_P-42", got)
	}
	if got := NextBatchID([]string{"1_P-42", "3_P-42", "bad"}, "P-42"); got != "4_P-42" {
		t.Errorf("next batch = %q, want 4_P-42", got)
	}
	if !ValidBatchID("12_P-42") || ValidBatchID("0_P-42") || ValidBatchID("1_p42") {
		t.Error("ValidBatchID mismatch")
	}
}

func TestNextDocumentNumber(t *testing.T) {
	at := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	got, err := NextDocumentNumber(PrefixReturnableGatePass, at, "")
	if err != nil || got != "CIMRGP-2603-0001" {
		t.Fatalf("first = %q, %v", got, err)
	}
	got, _ = NextDocumentNumber(PrefixInternalTransfer, at, "CIMITP-2603-0041")
	if got != "CIMITP-2603-0042" {
		t.Errorf("next = %q, want CIMITP-2603-0042", got)
	}
	if !ValidGatePassNumber(got) {
		t.Errorf("%q should match the gate pass format", got)
	}
	if _, err := NextDocumentNumber(PrefixReturnableGatePass, at, "CIMRGP-2602-0009"); err == nil {
		t.Error("number from another month should be rejected")
	}
	if _, err := NextDocumentNumber(PrefixReturnableGatePass, at, "CIMRGP-2603-9999"); !errors.Is(err, ErrCodeExhausted) {
		t.Errorf("overflow: got %v", err)
	}
}
