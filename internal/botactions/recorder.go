package botactions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sweet-bazaar/internal/store"
	"sweet-bazaar/internal/treasury"

	"github.com/jackc/pgx/v5"
)

type RecordSpendInput struct {
	BotWalletID string
	ActionType  string
	TargetType  string
	TargetID    string
	CostSC      int64
	// IdempotencyKey makes retried spends return the original record.
	IdempotencyKey string
	Metadata       map[string]any
}

type RecordSpendResult struct {
	ActionID      string
	TransactionID string
	BotBalanceSC  int64
	Replayed      bool
}

// Recorder logs every coin-spending bot action alongside the ledger
// transaction that funded it.
type Recorder struct {
	store    *store.Store
	treasury *treasury.Controller
}

func New(s *store.Store, tc *treasury.Controller) *Recorder {
	return &Recorder{store: s, treasury: tc}
}

// RecordSpend debits the treasury for a bot action and persists the action
// record atomically with the spend.
func (r *Recorder) RecordSpend(ctx context.Context, in RecordSpendInput) (*RecordSpendResult, error) {
	tx, err := r.store.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	reason := fmt.Sprintf("%s %s/%s", in.ActionType, in.TargetType, in.TargetID)
	res, err := r.treasury.DebitForBotSpendIn(ctx, tx, in.BotWalletID, in.CostSC, reason, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	out := &RecordSpendResult{
		TransactionID: res.TransactionID,
		BotBalanceSC:  res.Balances[in.BotWalletID],
		Replayed:      res.Replayed,
	}

	if res.Replayed {
		rec, err := r.store.GetBotActionByTransactionTx(ctx, tx, res.TransactionID)
		if err != nil {
			return nil, err
		}
		out.ActionID = rec.ID
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return out, nil
	}

	var metadata []byte
	if len(in.Metadata) > 0 {
		if metadata, err = json.Marshal(in.Metadata); err != nil {
			return nil, err
		}
	}
	rec := store.BotActionRecord{
		ID:            store.NewID(),
		BotWalletID:   in.BotWalletID,
		ActionType:    in.ActionType,
		TargetType:    in.TargetType,
		TargetID:      in.TargetID,
		CostSC:        in.CostSC,
		TransactionID: res.TransactionID,
		Metadata:      metadata,
	}
	if err := r.store.InsertBotActionRecord(ctx, tx, rec); err != nil {
		return nil, err
	}
	out.ActionID = rec.ID

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkDisqualified flags a recorded spend for refund; the refund processor
// picks it up on its next run.
func (r *Recorder) MarkDisqualified(ctx context.Context, actionID, reason string, now time.Time) error {
	ok, err := r.store.MarkActionDisqualified(ctx, actionID, reason, now)
	if err != nil {
		return err
	}
	if !ok {
		rec, err := r.store.GetBotActionRecord(ctx, actionID)
		if err != nil {
			return err
		}
		if rec.WasRefunded {
			return ErrAlreadyRefunded
		}
		return fmt.Errorf("%w: action %s is %s", ErrRefundInProgress, actionID, rec.RefundStatus)
	}
	return nil
}

// MarkRefunded sets the was_refunded flag, exactly once. The second call
// fails with ErrAlreadyRefunded; the check and set are one UPDATE, so
// overlapping refund runs cannot both win.
func (r *Recorder) MarkRefunded(ctx context.Context, actionID string, now time.Time) error {
	ok, err := r.store.MarkActionRefunded(ctx, actionID, now)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := r.store.GetBotActionRecord(ctx, actionID); err != nil {
			return err
		}
		return ErrAlreadyRefunded
	}
	return nil
}
