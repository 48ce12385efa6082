package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"sweet-bazaar/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Entry is one leg of a transaction.
type Entry struct {
	WalletID  string
	Direction string
	AmountSC  int64
}

// TwoLeg builds the canonical balanced pair: amount leaves the debit wallet
// and lands in the credit wallet.
func TwoLeg(debitWalletID, creditWalletID string, amount int64) []Entry {
	return []Entry{
		{WalletID: debitWalletID, Direction: store.DirectionDebit, AmountSC: amount},
		{WalletID: creditWalletID, Direction: store.DirectionCredit, AmountSC: amount},
	}
}

type CommitInput struct {
	Type           string
	IdempotencyKey string
	Entries        []Entry
	Metadata       map[string]any

	// AllowOverdraft lets a wallet's resulting balance go negative. Reserved
	// for the void wallet; normal commits must never set it.
	AllowOverdraft bool
}

type CommitResult struct {
	TransactionID string
	// Balances holds the resulting balance of every wallet the transaction
	// touched. For a replayed key these are the balances as of the original
	// commit.
	Balances map[string]int64
	Replayed bool
}

// Engine executes idempotent multi-entry transactions against the ledger
// store. All balance mutations in the system funnel through here.
type Engine struct {
	store *store.Store
}

func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

func (e *Engine) Store() *store.Store {
	return e.store
}

// Commit applies the entry set atomically, or returns the prior result when
// the idempotency key has already committed.
func (e *Engine) Commit(ctx context.Context, in CommitInput) (*CommitResult, error) {
	tx, err := e.store.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	res, err := e.CommitIn(ctx, tx, in)
	if err != nil {
		if isIdempotencyConflict(err) {
			// Lost the race to another commit with the same key. The winner's
			// result is the result.
			_ = tx.Rollback(ctx)
			return e.replay(ctx, in.IdempotencyKey)
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		if isIdempotencyConflict(err) {
			return e.replay(ctx, in.IdempotencyKey)
		}
		return nil, err
	}
	return res, nil
}

// CommitIn runs the commit inside a caller-held transaction so callers can
// atomically pair it with their own writes (treasury counters, action
// records). The caller owns commit/rollback.
func (e *Engine) CommitIn(ctx context.Context, tx pgx.Tx, in CommitInput) (*CommitResult, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	if prior, err := e.store.GetTransactionByIdempotencyKeyTx(ctx, tx, in.IdempotencyKey); err == nil {
		return e.replayTx(ctx, tx, prior)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	ids := distinctWalletIDs(in.Entries)
	wallets, err := e.store.GetWalletsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := wallets[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
		}
	}

	var metadata []byte
	if len(in.Metadata) > 0 {
		metadata, err = json.Marshal(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidEntrySet, err)
		}
	}

	txn := store.Transaction{
		ID:             store.NewID(),
		Type:           in.Type,
		IdempotencyKey: in.IdempotencyKey,
		Status:         "committed",
		Metadata:       metadata,
	}
	if err := e.store.InsertTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	balances := make(map[string]int64, len(wallets))
	earned := make(map[string]int64, len(wallets))
	spent := make(map[string]int64, len(wallets))
	for id, w := range wallets {
		balances[id] = w.BalanceSC
	}
	for _, entry := range in.Entries {
		switch entry.Direction {
		case store.DirectionCredit:
			balances[entry.WalletID] += entry.AmountSC
			earned[entry.WalletID] += entry.AmountSC
		case store.DirectionDebit:
			balances[entry.WalletID] -= entry.AmountSC
			spent[entry.WalletID] += entry.AmountSC
		}
		if err := e.store.InsertLedgerEntry(ctx, tx, store.LedgerEntry{
			ID:             store.NewID(),
			TransactionID:  txn.ID,
			WalletID:       entry.WalletID,
			Direction:      entry.Direction,
			AmountSC:       entry.AmountSC,
			BalanceAfterSC: balances[entry.WalletID],
		}); err != nil {
			return nil, err
		}
	}

	for _, id := range ids {
		if balances[id] < 0 && !in.AllowOverdraft {
			return nil, fmt.Errorf("%w: wallet %s", ErrInsufficientBalance, id)
		}
		if err := e.store.UpdateWalletBalance(ctx, tx, id, balances[id], earned[id], spent[id]); err != nil {
			return nil, err
		}
	}

	return &CommitResult{TransactionID: txn.ID, Balances: balances}, nil
}

func (e *Engine) replay(ctx context.Context, key string) (*CommitResult, error) {
	prior, err := e.store.GetTransactionByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	entries, err := e.store.ListEntriesByTransaction(ctx, prior.ID)
	if err != nil {
		return nil, err
	}
	return replayResult(prior.ID, entries), nil
}

func (e *Engine) replayTx(ctx context.Context, tx pgx.Tx, prior *store.Transaction) (*CommitResult, error) {
	entries, err := e.store.ListEntriesByTransactionTx(ctx, tx, prior.ID)
	if err != nil {
		return nil, err
	}
	return replayResult(prior.ID, entries), nil
}

func replayResult(txID string, entries []store.LedgerEntry) *CommitResult {
	balances := make(map[string]int64)
	for _, entry := range entries {
		balances[entry.WalletID] = entry.BalanceAfterSC
	}
	return &CommitResult{TransactionID: txID, Balances: balances, Replayed: true}
}

func validate(in CommitInput) error {
	if in.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidEntrySet)
	}
	if in.IdempotencyKey == "" {
		return fmt.Errorf("%w: missing idempotency key", ErrInvalidEntrySet)
	}
	if len(in.Entries) == 0 {
		return fmt.Errorf("%w: no entries", ErrInvalidEntrySet)
	}
	var debits, credits int64
	for _, entry := range in.Entries {
		if entry.WalletID == "" {
			return fmt.Errorf("%w: missing wallet id", ErrInvalidEntrySet)
		}
		if entry.AmountSC <= 0 {
			return fmt.Errorf("%w: non-positive amount %d", ErrInvalidEntrySet, entry.AmountSC)
		}
		switch entry.Direction {
		case store.DirectionDebit:
			debits += entry.AmountSC
		case store.DirectionCredit:
			credits += entry.AmountSC
		default:
			return fmt.Errorf("%w: bad direction %q", ErrInvalidEntrySet, entry.Direction)
		}
	}
	if debits != credits {
		return fmt.Errorf("%w: debits %d != credits %d", ErrInvalidEntrySet, debits, credits)
	}
	return nil
}

func distinctWalletIDs(entries []Entry) []string {
	seen := make(map[string]bool, len(entries))
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !seen[entry.WalletID] {
			seen[entry.WalletID] = true
			ids = append(ids, entry.WalletID)
		}
	}
	sort.Strings(ids)
	return ids
}

func isIdempotencyConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "transactions_idempotency_key_key"
}
