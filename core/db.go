package core

import (
	"context"
	"time"
)

// StoreContext bounds a single store operation by the configured query timeout.
func StoreContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// NowUTC returns the current UTC time at the precision all stores can keep (milliseconds).
func NowUTC(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Millisecond)
}
