package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind is the category of a domain failure.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindInvalidTransition  Kind = "invalid_transition"
	KindInsufficientStock  Kind = "insufficient_stock"
	KindInvariantViolation Kind = "invariant_violation"
	KindBusy               Kind = "busy"
	KindInternal           Kind = "internal"
)

// Error carries a kind plus whatever payload the caller needs to act on it.
type Error struct {
	Kind      Kind     `json:"kind"`
	Message   string   `json:"message"`
	Fields    []string `json:"fields,omitempty"`
	Value     string   `json:"value,omitempty"`
	Location  string   `json:"location,omitempty"`
	Shortfall int      `json:"shortfall,omitempty"`
	Err       error    `json:"-"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Fields, ","))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func NotFound(entity, key string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", entity), Value: key}
}

func Conflict(msg, value string) *Error {
	return &Error{Kind: KindConflict, Message: msg, Value: value}
}

func InvalidTransition(entity, from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("%s cannot move from %q to %q", entity, from, to),
		Value:   from,
	}
}

func InsufficientStock(location string, shortfall int, msg string) *Error {
	return &Error{Kind: KindInsufficientStock, Message: msg, Location: location, Shortfall: shortfall}
}

func InvariantViolation(msg string) *Error {
	return &Error{Kind: KindInvariantViolation, Message: msg}
}

func Busy(msg string, err error) *Error {
	return &Error{Kind: KindBusy, Message: msg, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf returns the kind of err; unknown errors are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// postgres SQLSTATE codes
const (
	pgUniqueViolation   = "23505"
	pgLockNotAvailable  = "55P03"
	pgDeadlockDetected  = "40P01"
	pgQueryCanceled     = "57014"
	pgSerializationFail = "40001"
)

// FromDB classifies driver and context errors. Already typed errors pass through.
func FromDB(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Busy("request deadline exceeded", err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &Error{Kind: KindConflict, Message: "duplicate value", Value: pgErr.ConstraintName, Err: err}
		case pgLockNotAvailable, pgDeadlockDetected, pgQueryCanceled, pgSerializationFail:
			return Busy("row is locked by another request, retry", err)
		}
	}
	return Internal(err)
}
