package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), KindInternal},
		{"typed", NotFound("project", "P-1"), KindNotFound},
		{"wrapped", fmt.Errorf("allocate: %w", InsufficientStock("times_sq", 3, "short")), KindInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromDB(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "idx_item_masters_part"}, KindConflict},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, KindBusy},
		{"deadlock", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40P01"}), KindBusy},
		{"deadline", context.DeadlineExceeded, KindBusy},
		{"other pg", &pgconn.PgError{Code: "42P01"}, KindInternal},
		{"typed passthrough", Validation("bad", "qty"), KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(FromDB(tt.err)); got != tt.want {
				t.Errorf("KindOf(FromDB()) = %q, want %q", got, tt.want)
			}
		})
	}
	if FromDB(nil) != nil {
		t.Error("FromDB(nil) should be nil")
	}
}

func TestInsufficientStockPayload(t *testing.T) {
	err := fmt.Errorf("outward: %w", InsufficientStock("sakar", 7, "not enough stock"))
	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("expected *Error")
	}
	if e.Location != "sakar" || e.Shortfall != 7 {
		t.Errorf("payload = %s/%d, want sakar/7", e.Location, e.Shortfall)
	}
}
