package jobs

import (
	"context"
	"errors"
	"expvar"
	"time"

	"sweet-bazaar/internal/botactions"
	"sweet-bazaar/internal/ledger"
	"sweet-bazaar/internal/store"
	"sweet-bazaar/internal/treasury"

	"github.com/rs/zerolog/log"
)

var (
	refundProcessedTotal = expvar.NewInt("refund_processed_total")
	refundFailedTotal    = expvar.NewInt("refund_failed_total")
	refundSkippedTotal   = expvar.NewInt("refund_skipped_total")
)

// RunStats summarizes one batch run.
type RunStats struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// refundMarker is the slice of the recorder the processor needs.
type refundMarker interface {
	MarkRefunded(ctx context.Context, actionID string, now time.Time) error
}

// RefundProcessor reverses bot spends that were later disqualified, restoring
// treasury funds. Each candidate is claimed with a compare-and-set before any
// money moves, so overlapping runs cannot double-refund.
type RefundProcessor struct {
	store    *store.Store
	engine   *ledger.Engine
	recorder refundMarker
	treasury *treasury.Controller

	BatchLimit    int
	ItemTimeout   time.Duration
	InterItemWait time.Duration
}

func NewRefundProcessor(s *store.Store, eng *ledger.Engine, rec *botactions.Recorder, tc *treasury.Controller) *RefundProcessor {
	return &RefundProcessor{
		store:         s,
		engine:        eng,
		recorder:      rec,
		treasury:      tc,
		BatchLimit:    500,
		ItemTimeout:   10 * time.Second,
		InterItemWait: 50 * time.Millisecond,
	}
}

// Run processes all refund candidates due at or before now, then resets the
// treasury daily counter. One bad candidate never aborts the batch.
func (p *RefundProcessor) Run(ctx context.Context, now time.Time) RunStats {
	var stats RunStats

	candidates, err := p.store.ListRefundCandidates(ctx, now, p.BatchLimit)
	if err != nil {
		log.Error().Err(err).Msg("refund run: list candidates")
		return stats
	}

	for i, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && p.InterItemWait > 0 {
			time.Sleep(p.InterItemWait)
		}
		switch p.processOne(ctx, cand, now) {
		case outcomeProcessed:
			stats.Processed++
			refundProcessedTotal.Add(1)
		case outcomeFailed:
			stats.Failed++
			refundFailedTotal.Add(1)
		case outcomeSkipped:
			stats.Skipped++
			refundSkippedTotal.Add(1)
		}
	}

	if _, err := p.treasury.ResetDailySpend(ctx, now); err != nil {
		log.Error().Err(err).Msg("refund run: reset daily spend")
	}

	log.Info().
		Int("processed", stats.Processed).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Msg("refund run complete")
	return stats
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeFailed
	outcomeSkipped
)

func (p *RefundProcessor) processOne(ctx context.Context, cand store.BotActionRecord, now time.Time) outcome {
	itemCtx := ctx
	if p.ItemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, p.ItemTimeout)
		defer cancel()
	}

	claimed, err := p.store.ClaimRefundCandidate(itemCtx, cand.ID)
	if err != nil {
		// Transient store trouble leaves the candidate pending for the next
		// run; claiming is idempotent.
		log.Error().Err(err).Str("action_id", cand.ID).Msg("refund claim failed")
		return outcomeSkipped
	}
	if !claimed {
		return outcomeSkipped
	}

	res, err := p.engine.Commit(itemCtx, ledger.CommitInput{
		Type:           "refund",
		IdempotencyKey: "refund:" + cand.ID,
		Entries:        ledger.TwoLeg(cand.BotWalletID, p.treasury.WalletID(), cand.CostSC),
		Metadata: map[string]any{
			"action_id": cand.ID,
			"reason":    cand.DisqualifyReason,
		},
	})
	if err != nil {
		// Claimed but not compensated: record the reason and leave it for
		// manual inspection. Retrying here risks duplicate compensations.
		log.Error().Err(err).Str("action_id", cand.ID).Msg("refund commit failed")
		if markErr := p.store.MarkRefundFailed(ctx, cand.ID, err.Error()); markErr != nil {
			log.Error().Err(markErr).Str("action_id", cand.ID).Msg("record refund failure")
		}
		return outcomeFailed
	}

	if err := p.recorder.MarkRefunded(itemCtx, cand.ID, now); err != nil {
		if errors.Is(err, botactions.ErrAlreadyRefunded) {
			return outcomeSkipped
		}
		// The compensating commit went through, only the bookkeeping is
		// behind. Surface the record as failed; the refund idempotency key
		// makes a manual re-drive safe.
		log.Error().Err(err).Str("action_id", cand.ID).Msg("mark refunded failed")
		if markErr := p.store.MarkRefundFailed(ctx, cand.ID, "compensated but not marked: "+err.Error()); markErr != nil {
			log.Error().Err(markErr).Str("action_id", cand.ID).Msg("record refund failure")
		}
		return outcomeFailed
	}

	log.Info().
		Str("action_id", cand.ID).
		Str("transaction_id", res.TransactionID).
		Int64("amount_sc", cand.CostSC).
		Bool("replayed", res.Replayed).
		Msg("bot spend refunded")
	return outcomeProcessed
}
