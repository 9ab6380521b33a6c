package usecase

import (
	"context"
	"time"
)

// sleepBackoff waits attempt^2 * base before the next try, or returns early
// when the request context is cancelled. Quadratic growth keeps the total
// wait bounded for the small attempt counts used here.
func sleepBackoff(ctx context.Context, attempt int, base time.Duration) error {
	wait := time.Duration(attempt*attempt) * base
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
