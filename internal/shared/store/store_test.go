package store

import (
	"context"
	"testing"
	"time"
)

func TestLockTimeout(t *testing.T) {
	if got := LockTimeout(context.Background()); got != DefaultLockTimeout {
		t.Errorf("no deadline: got %v, want %v", got, DefaultLockTimeout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if got := LockTimeout(ctx); got > time.Second || got < 500*time.Millisecond {
		t.Errorf("1s deadline: got %v", got)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Hour)
	defer cancel2()
	if got := LockTimeout(ctx2); got != DefaultLockTimeout {
		t.Errorf("far deadline should be capped: got %v", got)
	}

	ctx3, cancel3 := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel3()
	time.Sleep(2 * time.Millisecond)
	if got := LockTimeout(ctx3); got != minLockTimeout {
		t.Errorf("expired deadline: got %v, want %v", got, minLockTimeout)
	}
}
