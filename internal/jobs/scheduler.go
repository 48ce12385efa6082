package jobs

import (
	"context"
	"time"

	"sweet-bazaar/internal/treasury"
)

type Intervals struct {
	Refund     time.Duration
	Expiration time.Duration
	CapReset   time.Duration
}

// Start runs the batch jobs on their own tickers until ctx is cancelled. The
// production cadence is daily; each Run is independent and idempotent per
// candidate, so a restarted or overlapping schedule is harmless. Deployments
// with an external cron can skip Start and invoke the Run methods directly.
func Start(ctx context.Context, refund *RefundProcessor, expiration *ExpirationJob, tc *treasury.Controller, iv Intervals) {
	if iv.Refund <= 0 {
		iv.Refund = 24 * time.Hour
	}
	if iv.Expiration <= 0 {
		iv.Expiration = 24 * time.Hour
	}
	if iv.CapReset <= 0 {
		iv.CapReset = time.Hour
	}
	refundTicker := time.NewTicker(iv.Refund)
	expirationTicker := time.NewTicker(iv.Expiration)
	resetTicker := time.NewTicker(iv.CapReset)
	go func() {
		defer refundTicker.Stop()
		defer expirationTicker.Stop()
		defer resetTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-refundTicker.C:
				refund.Run(ctx, now)
			case now := <-expirationTicker.C:
				expiration.Run(ctx, now)
			case now := <-resetTicker.C:
				// Date-guarded: only the first tick after midnight resets.
				_, _ = tc.ResetDailySpend(ctx, now)
			}
		}
	}()
}
