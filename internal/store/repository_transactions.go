package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s *Store) InsertTransaction(ctx context.Context, tx pgx.Tx, t Transaction) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, type, idempotency_key, status, metadata)
		VALUES ($1,$2,$3,$4,$5)
	`, t.ID, t.Type, t.IdempotencyKey, t.Status, t.Metadata)
	return err
}

func (s *Store) InsertLedgerEntry(ctx context.Context, tx pgx.Tx, e LedgerEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (id, transaction_id, wallet_id, direction, amount_sc, balance_after_sc)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.ID, e.TransactionID, e.WalletID, e.Direction, e.AmountSC, e.BalanceAfterSC)
	return err
}

const transactionColumns = `id, type, idempotency_key, status, metadata, created_at`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Type, &t.IdempotencyKey, &t.Status, &t.Metadata, &t.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &t, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	return scanTransaction(s.Pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

func (s *Store) GetTransactionByIdempotencyKey(ctx context.Context, key string) (*Transaction, error) {
	return scanTransaction(s.Pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key = $1`, key))
}

// GetTransactionByIdempotencyKeyTx is the in-transaction variant used for the
// replay check before any wallet is locked.
func (s *Store) GetTransactionByIdempotencyKeyTx(ctx context.Context, tx pgx.Tx, key string) (*Transaction, error) {
	return scanTransaction(tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key = $1`, key))
}

const entryColumns = `id, transaction_id, wallet_id, direction, amount_sc, balance_after_sc, created_at`

func collectEntries(rows pgx.Rows) ([]LedgerEntry, error) {
	defer rows.Close()
	out := []LedgerEntry{}
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.WalletID, &e.Direction, &e.AmountSC, &e.BalanceAfterSC, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListEntriesByTransaction(ctx context.Context, txID string) ([]LedgerEntry, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE transaction_id = $1 ORDER BY id ASC`, txID)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (s *Store) ListEntriesByTransactionTx(ctx context.Context, tx pgx.Tx, txID string) ([]LedgerEntry, error) {
	rows, err := tx.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE transaction_id = $1 ORDER BY id ASC`, txID)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (s *Store) ListLedgerEntries(ctx context.Context, f EntryFilter, limit, offset int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	where := "WHERE 1=1"
	args := []any{}
	if f.WalletID != "" {
		args = append(args, f.WalletID)
		where += fmt.Sprintf(" AND wallet_id = $%d", len(args))
	}
	if f.TransactionID != "" {
		args = append(args, f.TransactionID)
		where += fmt.Sprintf(" AND transaction_id = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	args = append(args, limit, offset)
	q := `SELECT ` + entryColumns + ` FROM ledger_entries ` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := s.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (s *Store) ListTransactions(ctx context.Context, f TransactionFilter, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	where := "WHERE 1=1"
	args := []any{}
	if f.Type != "" {
		args = append(args, f.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	args = append(args, limit, offset)
	q := `SELECT ` + transactionColumns + ` FROM transactions ` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := s.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Transaction{}
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Type, &t.IdempotencyKey, &t.Status, &t.Metadata, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
