package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sweet-bazaar/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// openStore is the in-package twin of testutil.OpenTestStore; the store
// package cannot import testutil without a cycle.
func openStore(t *testing.T) (*Store, context.Context, func()) {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	dsn := cfg.TestPostgresDSN
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	execRawDSN(t, dsn, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize())

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	st, err := New(dsn + sep + "search_path=" + url.QueryEscape(schema))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := runInitMigration(st); err != nil {
		st.Close()
		t.Fatalf("apply schema: %v", err)
	}
	cleanup := func() {
		st.Close()
		execRawDSN(t, dsn, "DROP SCHEMA "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
	}
	return st, context.Background(), cleanup
}

func execRawDSN(t *testing.T, dsn, sql string) {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open base db: %v", err)
	}
	defer pool.Close()
	if _, err := pool.Exec(context.Background(), sql); err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}

func runInitMigration(st *Store) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	for {
		p := filepath.Join(dir, "migrations", "000001_init.up.sql")
		if b, err := os.ReadFile(p); err == nil {
			_, err = st.Pool.Exec(context.Background(), string(b))
			return err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return fmt.Errorf("000001_init.up.sql not found above %s", dir)
		}
		dir = parent
	}
}

func mustEnsureWallet(t *testing.T, st *Store, ctx context.Context, ownerKind, ownerID string, initial int64) string {
	t.Helper()
	id, err := st.EnsureWallet(ctx, ownerKind, ownerID, initial, nil)
	if err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	return id
}

// mustInsertTransaction writes a committed transaction row so records with a
// transaction FK can be inserted directly.
func mustInsertTransaction(t *testing.T, st *Store, ctx context.Context, typ, key string) string {
	t.Helper()
	tx, err := st.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)
	id := NewID()
	if err := st.InsertTransaction(ctx, tx, Transaction{ID: id, Type: typ, IdempotencyKey: key, Status: "committed"}); err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return id
}

func mustInsertBotAction(t *testing.T, st *Store, ctx context.Context, walletID, txID string) string {
	t.Helper()
	tx, err := st.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)
	id := NewID()
	err = st.InsertBotActionRecord(ctx, tx, BotActionRecord{
		ID:            id,
		BotWalletID:   walletID,
		ActionType:    "create_post",
		TargetType:    "thread",
		TargetID:      "t1",
		CostSC:        10,
		TransactionID: txID,
	})
	if err != nil {
		t.Fatalf("insert bot action: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return id
}
