package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

const expirationColumns = `id, wallet_id, amount_sc, actual_amount_sc, scheduled_at, status, notification_sent, processed_at, created_at`

func scanExpiration(row pgx.Row) (*CoinExpiration, error) {
	var e CoinExpiration
	err := row.Scan(&e.ID, &e.WalletID, &e.AmountSC, &e.ActualAmountSC, &e.ScheduledAt, &e.Status, &e.NotificationSent, &e.ProcessedAt, &e.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &e, nil
}

func (s *Store) InsertCoinExpiration(ctx context.Context, walletID string, amount int64, scheduledAt time.Time) (string, error) {
	id := NewID()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO coin_expirations (id, wallet_id, amount_sc, scheduled_at)
		VALUES ($1,$2,$3,$4)
	`, id, walletID, amount, scheduledAt)
	return id, err
}

// InsertCoinExpirationTx schedules the expiry inside the granting transaction
// so a reward and its retention window land atomically.
func (s *Store) InsertCoinExpirationTx(ctx context.Context, tx pgx.Tx, walletID string, amount int64, scheduledAt time.Time) (string, error) {
	id := NewID()
	_, err := tx.Exec(ctx, `
		INSERT INTO coin_expirations (id, wallet_id, amount_sc, scheduled_at)
		VALUES ($1,$2,$3,$4)
	`, id, walletID, amount, scheduledAt)
	return id, err
}

func (s *Store) GetCoinExpiration(ctx context.Context, id string) (*CoinExpiration, error) {
	return scanExpiration(s.Pool.QueryRow(ctx, `SELECT `+expirationColumns+` FROM coin_expirations WHERE id = $1`, id))
}

// ListDueExpirations returns pending records due at or before now, oldest
// first for fairness under partial processing.
func (s *Store) ListDueExpirations(ctx context.Context, now time.Time, limit int) ([]CoinExpiration, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+expirationColumns+` FROM coin_expirations
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
		LIMIT $3
	`, ExpirationPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CoinExpiration{}
	for rows.Next() {
		var e CoinExpiration
		if err := rows.Scan(&e.ID, &e.WalletID, &e.AmountSC, &e.ActualAmountSC, &e.ScheduledAt, &e.Status, &e.NotificationSent, &e.ProcessedAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkExpirationProcessed stamps the executed amount and time. The status
// guard makes reprocessing after an overlapping run a no-op.
func (s *Store) MarkExpirationProcessed(ctx context.Context, id string, actualAmount int64, now time.Time) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE coin_expirations SET status = $1, actual_amount_sc = $2, processed_at = $3
		WHERE id = $4 AND status = $5
	`, ExpirationProcessed, actualAmount, now, id, ExpirationPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetExpirationNotified flips the notification flag exactly once.
func (s *Store) SetExpirationNotified(ctx context.Context, id string) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE coin_expirations SET notification_sent = TRUE
		WHERE id = $1 AND NOT notification_sent
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
