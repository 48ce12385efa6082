package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const walletColumns = `id, owner_id, owner_kind, balance_sc, lifetime_earned_sc, lifetime_spent_sc, cap_sc, created_at, updated_at`

func scanWallet(row pgx.Row) (*Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.OwnerID, &w.OwnerKind, &w.BalanceSC, &w.LifetimeEarnedSC, &w.LifetimeSpentSC, &w.CapSC, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &w, nil
}

// EnsureWallet creates the wallet for an owner if it does not exist yet and
// returns its id either way.
func (s *Store) EnsureWallet(ctx context.Context, ownerKind, ownerID string, initial int64, cap *int64) (string, error) {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO wallets (id, owner_id, owner_kind, balance_sc, cap_sc)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (owner_kind, owner_id) DO NOTHING
	`, NewID(), ownerID, ownerKind, initial, cap)
	if err != nil {
		return "", err
	}
	w, err := s.GetWalletByOwner(ctx, ownerKind, ownerID)
	if err != nil {
		return "", err
	}
	return w.ID, nil
}

func (s *Store) GetWallet(ctx context.Context, id string) (*Wallet, error) {
	return scanWallet(s.Pool.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id))
}

func (s *Store) GetWalletByOwner(ctx context.Context, ownerKind, ownerID string) (*Wallet, error) {
	return scanWallet(s.Pool.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_kind = $1 AND owner_id = $2`, ownerKind, ownerID))
}

// GetWalletsForUpdate locks the given wallets in id order and returns them
// keyed by id. Sorted locking keeps concurrent multi-wallet commits from
// deadlocking each other.
func (s *Store) GetWalletsForUpdate(ctx context.Context, tx pgx.Tx, ids []string) (map[string]*Wallet, error) {
	rows, err := tx.Query(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]*Wallet, len(ids))
	for rows.Next() {
		var w Wallet
		if err := rows.Scan(&w.ID, &w.OwnerID, &w.OwnerKind, &w.BalanceSC, &w.LifetimeEarnedSC, &w.LifetimeSpentSC, &w.CapSC, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out[w.ID] = &w
	}
	return out, rows.Err()
}

// UpdateWalletBalance writes the new cached balance and bumps the lifetime
// counters inside the caller's transaction.
func (s *Store) UpdateWalletBalance(ctx context.Context, tx pgx.Tx, id string, newBalance, earnedDelta, spentDelta int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE wallets
		SET balance_sc = $1,
		    lifetime_earned_sc = lifetime_earned_sc + $2,
		    lifetime_spent_sc = lifetime_spent_sc + $3,
		    updated_at = now()
		WHERE id = $4
	`, newBalance, earnedDelta, spentDelta, id)
	return err
}

func (s *Store) ListWallets(ctx context.Context, ownerKind string, limit, offset int) ([]Wallet, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows pgx.Rows
	var err error
	if ownerKind == "" {
		rows, err = s.Pool.Query(ctx, `SELECT `+walletColumns+` FROM wallets ORDER BY updated_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		rows, err = s.Pool.Query(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_kind = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`, ownerKind, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Wallet{}
	for rows.Next() {
		var w Wallet
		if err := rows.Scan(&w.ID, &w.OwnerID, &w.OwnerKind, &w.BalanceSC, &w.LifetimeEarnedSC, &w.LifetimeSpentSC, &w.CapSC, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// SumWalletEntries derives a wallet balance from its ledger entries. Used by
// the balance audit: the cached wallets.balance_sc must always equal this sum.
func (s *Store) SumWalletEntries(ctx context.Context, walletID string) (int64, error) {
	var sum int64
	err := s.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount_sc ELSE -amount_sc END), 0)
		FROM ledger_entries WHERE wallet_id = $1
	`, walletID).Scan(&sum)
	return sum, err
}
