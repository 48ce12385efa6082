package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// EnsureTreasuryState creates the singleton counter row if missing.
func (s *Store) EnsureTreasuryState(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO treasury_state (singleton, day_spent_sc, last_reset_date)
		VALUES (TRUE, 0, CURRENT_DATE)
		ON CONFLICT (singleton) DO NOTHING
	`)
	return err
}

func (s *Store) GetTreasuryState(ctx context.Context) (*TreasuryState, error) {
	var st TreasuryState
	err := s.Pool.QueryRow(ctx, `SELECT day_spent_sc, last_reset_date FROM treasury_state WHERE singleton`).
		Scan(&st.DaySpentSC, &st.LastResetDate)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &st, nil
}

// GetTreasuryStateForUpdate locks the counter row. Every bot-spend commit goes
// through this lock, which serializes daily-cap accounting.
func (s *Store) GetTreasuryStateForUpdate(ctx context.Context, tx pgx.Tx) (*TreasuryState, error) {
	var st TreasuryState
	err := tx.QueryRow(ctx, `SELECT day_spent_sc, last_reset_date FROM treasury_state WHERE singleton FOR UPDATE`).
		Scan(&st.DaySpentSC, &st.LastResetDate)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &st, nil
}

func (s *Store) AddDailySpend(ctx context.Context, tx pgx.Tx, amount int64) error {
	_, err := tx.Exec(ctx, `UPDATE treasury_state SET day_spent_sc = day_spent_sc + $1 WHERE singleton`, amount)
	return err
}

// ResetDailySpend zeroes the day counter once per calendar day. Returns false
// when the counter was already reset for the given day.
func (s *Store) ResetDailySpend(ctx context.Context, day time.Time) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE treasury_state SET day_spent_sc = 0, last_reset_date = $1
		WHERE singleton AND last_reset_date < $1
	`, day)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
