package jobs

import (
	"context"
	"expvar"
	"time"

	"sweet-bazaar/internal/ledger"
	"sweet-bazaar/internal/notify"
	"sweet-bazaar/internal/store"
	"sweet-bazaar/internal/treasury"

	"github.com/rs/zerolog/log"
)

var (
	expirationProcessedTotal = expvar.NewInt("expiration_processed_total")
	expirationFailedTotal    = expvar.NewInt("expiration_failed_total")
	expirationExpiredSC      = expvar.NewInt("expiration_expired_sc_total")
)

// ExpirationJob debits dormant balances whose retention window has passed and
// signals the notification collaborator. The debit is capped at the live
// balance: a wallet spent down since the record was scheduled never goes
// negative.
type ExpirationJob struct {
	store    *store.Store
	engine   *ledger.Engine
	treasury *treasury.Controller
	notifier notify.Notifier

	BatchLimit    int
	ItemTimeout   time.Duration
	InterItemWait time.Duration
}

func NewExpirationJob(s *store.Store, eng *ledger.Engine, tc *treasury.Controller, n notify.Notifier) *ExpirationJob {
	return &ExpirationJob{
		store:         s,
		engine:        eng,
		treasury:      tc,
		notifier:      n,
		BatchLimit:    500,
		ItemTimeout:   10 * time.Second,
		InterItemWait: 50 * time.Millisecond,
	}
}

// Run processes all due expiration records, oldest first.
func (j *ExpirationJob) Run(ctx context.Context, now time.Time) RunStats {
	var stats RunStats

	due, err := j.store.ListDueExpirations(ctx, now, j.BatchLimit)
	if err != nil {
		log.Error().Err(err).Msg("expiration run: list due records")
		return stats
	}

	for i, rec := range due {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && j.InterItemWait > 0 {
			time.Sleep(j.InterItemWait)
		}
		if err := j.processOne(ctx, rec, now); err != nil {
			stats.Failed++
			expirationFailedTotal.Add(1)
			log.Error().Err(err).Str("expiration_id", rec.ID).Msg("expiration failed")
			continue
		}
		stats.Processed++
		expirationProcessedTotal.Add(1)
	}

	log.Info().
		Int("processed", stats.Processed).
		Int("failed", stats.Failed).
		Msg("expiration run complete")
	return stats
}

func (j *ExpirationJob) processOne(ctx context.Context, rec store.CoinExpiration, now time.Time) error {
	itemCtx := ctx
	if j.ItemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, j.ItemTimeout)
		defer cancel()
	}

	wallet, err := j.store.GetWallet(itemCtx, rec.WalletID)
	if err != nil {
		return err
	}

	actual := rec.AmountSC
	if wallet.BalanceSC < actual {
		actual = wallet.BalanceSC
	}

	if actual > 0 {
		// Idempotency key derived from the record id: an overlapping run
		// replays instead of debiting twice.
		if _, err := j.engine.Commit(itemCtx, ledger.CommitInput{
			Type:           "expiration",
			IdempotencyKey: "expiration:" + rec.ID,
			Entries:        ledger.TwoLeg(rec.WalletID, j.treasury.WalletID(), actual),
			Metadata:       map[string]any{"expiration_id": rec.ID},
		}); err != nil {
			return err
		}
		expirationExpiredSC.Add(actual)
	}

	marked, err := j.store.MarkExpirationProcessed(itemCtx, rec.ID, actual, now)
	if err != nil {
		return err
	}
	if !marked {
		// Another run already finished this record.
		return nil
	}

	// Notification is best-effort and only attempted after a successful
	// debit; a dispatch failure never reverses the debit.
	if !rec.NotificationSent {
		msg := notify.Message{
			UserID:        wallet.OwnerID,
			AmountSC:      actual,
			Reason:        "coin_expiration",
			EffectiveDate: now,
		}
		if err := j.notifier.Notify(itemCtx, msg); err != nil {
			log.Warn().Err(err).Str("expiration_id", rec.ID).Msg("expiration notification failed")
		} else if _, err := j.store.SetExpirationNotified(itemCtx, rec.ID); err != nil {
			log.Warn().Err(err).Str("expiration_id", rec.ID).Msg("set notification flag")
		}
	}

	log.Info().
		Str("expiration_id", rec.ID).
		Str("wallet_id", rec.WalletID).
		Int64("scheduled_sc", rec.AmountSC).
		Int64("expired_sc", actual).
		Msg("balance expired")
	return nil
}
