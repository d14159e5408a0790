package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
	"gorm.io/gorm"
)

// DefaultLockTimeout applies when the context carries no deadline.
var DefaultLockTimeout = 5 * time.Second

const minLockTimeout = 50 * time.Millisecond

// Transact runs fn in one transaction. Row locks taken inside fn give up
// before the request deadline so contention surfaces as Busy instead of hanging.
func Transact(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if err := ctx.Err(); err != nil {
		return apperr.FromDB(err)
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", LockTimeout(ctx).Milliseconds())).Error; err != nil {
			return err
		}
		return fn(tx)
	})
	return apperr.FromDB(err)
}

// LockTimeout is the time left before the ctx deadline, or DefaultLockTimeout.
func LockTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return DefaultLockTimeout
	}
	left := time.Until(deadline)
	if left < minLockTimeout {
		return minLockTimeout
	}
	if left > DefaultLockTimeout {
		return DefaultLockTimeout
	}
	return left
}
