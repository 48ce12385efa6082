package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

const botActionColumns = `id, bot_wallet_id, action_type, target_type, target_id, cost_sc, transaction_id,
	was_refunded, refund_status, disqualify_reason, refund_failure, disqualified_at, refunded_at, metadata, created_at`

func scanBotAction(row pgx.Row) (*BotActionRecord, error) {
	var r BotActionRecord
	err := row.Scan(&r.ID, &r.BotWalletID, &r.ActionType, &r.TargetType, &r.TargetID, &r.CostSC, &r.TransactionID,
		&r.WasRefunded, &r.RefundStatus, &r.DisqualifyReason, &r.RefundFailure, &r.DisqualifiedAt, &r.RefundedAt, &r.Metadata, &r.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &r, nil
}

func (s *Store) InsertBotActionRecord(ctx context.Context, tx pgx.Tx, r BotActionRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO bot_action_records (id, bot_wallet_id, action_type, target_type, target_id, cost_sc, transaction_id, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, r.ID, r.BotWalletID, r.ActionType, r.TargetType, r.TargetID, r.CostSC, r.TransactionID, r.Metadata)
	return err
}

func (s *Store) GetBotActionRecord(ctx context.Context, id string) (*BotActionRecord, error) {
	return scanBotAction(s.Pool.QueryRow(ctx, `SELECT `+botActionColumns+` FROM bot_action_records WHERE id = $1`, id))
}

// GetBotActionByTransactionTx resolves the record created for a ledger
// transaction, used when an idempotent spend replays.
func (s *Store) GetBotActionByTransactionTx(ctx context.Context, tx pgx.Tx, transactionID string) (*BotActionRecord, error) {
	return scanBotAction(tx.QueryRow(ctx, `SELECT `+botActionColumns+` FROM bot_action_records WHERE transaction_id = $1`, transactionID))
}

// MarkActionDisqualified flags a spend for refund. Only an action that has not
// entered the refund pipeline can be flagged.
func (s *Store) MarkActionDisqualified(ctx context.Context, id, reason string, now time.Time) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE bot_action_records
		SET refund_status = $1, disqualify_reason = $2, disqualified_at = $3
		WHERE id = $4 AND refund_status = $5 AND NOT was_refunded
	`, RefundPending, reason, now, id, RefundNone)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimRefundCandidate moves a candidate from pending to processing. The
// compare-and-set guards overlapping processor runs: only one run wins.
func (s *Store) ClaimRefundCandidate(ctx context.Context, id string) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE bot_action_records SET refund_status = $1
		WHERE id = $2 AND refund_status = $3
	`, RefundProcessing, id, RefundPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkActionRefunded sets was_refunded exactly once.
func (s *Store) MarkActionRefunded(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE bot_action_records SET was_refunded = TRUE, refund_status = $1, refunded_at = $2
		WHERE id = $3 AND NOT was_refunded
	`, RefundProcessed, now, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkRefundFailed records why a claimed candidate could not be compensated.
// Failed candidates are left for manual inspection, never retried silently.
func (s *Store) MarkRefundFailed(ctx context.Context, id, reason string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE bot_action_records SET refund_status = $1, refund_failure = $2
		WHERE id = $3
	`, RefundFailed, reason, id)
	return err
}

func (s *Store) ListRefundCandidates(ctx context.Context, now time.Time, limit int) ([]BotActionRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+botActionColumns+` FROM bot_action_records
		WHERE refund_status = $1 AND NOT was_refunded AND disqualified_at <= $2
		ORDER BY disqualified_at ASC
		LIMIT $3
	`, RefundPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []BotActionRecord{}
	for rows.Next() {
		var r BotActionRecord
		if err := rows.Scan(&r.ID, &r.BotWalletID, &r.ActionType, &r.TargetType, &r.TargetID, &r.CostSC, &r.TransactionID,
			&r.WasRefunded, &r.RefundStatus, &r.DisqualifyReason, &r.RefundFailure, &r.DisqualifiedAt, &r.RefundedAt, &r.Metadata, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListBotActions(ctx context.Context, botWalletID string, limit, offset int) ([]BotActionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows pgx.Rows
	var err error
	if botWalletID == "" {
		rows, err = s.Pool.Query(ctx, `SELECT `+botActionColumns+` FROM bot_action_records ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		rows, err = s.Pool.Query(ctx, `SELECT `+botActionColumns+` FROM bot_action_records WHERE bot_wallet_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, botWalletID, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []BotActionRecord{}
	for rows.Next() {
		var r BotActionRecord
		if err := rows.Scan(&r.ID, &r.BotWalletID, &r.ActionType, &r.TargetType, &r.TargetID, &r.CostSC, &r.TransactionID,
			&r.WasRefunded, &r.RefundStatus, &r.DisqualifyReason, &r.RefundFailure, &r.DisqualifiedAt, &r.RefundedAt, &r.Metadata, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
