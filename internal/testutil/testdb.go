package testutil

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
	"sweet-bazaar/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenTestStore creates a throwaway schema on TEST_POSTGRES_DSN, applies the
// init migration into it, and returns a store scoped to that schema. Tests
// skip when TEST_POSTGRES_DSN is unset.
func OpenTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	dsn := cfg.TestPostgresDSN
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	execOnBase(t, dsn, "CREATE SCHEMA "+quoteSchema(schema))

	st, err := store.New(scopedDSN(dsn, schema))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := applyInitMigration(st); err != nil {
		st.Close()
		t.Fatalf("apply schema: %v", err)
	}

	cleanup := func() {
		st.Close()
		execOnBase(t, dsn, "DROP SCHEMA "+quoteSchema(schema)+" CASCADE")
	}
	return st, cleanup
}

// MustEnsureWallet creates or fetches a wallet and fails the test on error.
func MustEnsureWallet(t *testing.T, st *store.Store, ownerKind, ownerID string, capSC *int64) string {
	t.Helper()
	id, err := st.EnsureWallet(context.Background(), ownerKind, ownerID, 0, capSC)
	if err != nil {
		t.Fatalf("ensure wallet %s/%s: %v", ownerKind, ownerID, err)
	}
	return id
}

// MustBalance reads a wallet balance and fails the test on error.
func MustBalance(t *testing.T, st *store.Store, walletID string) int64 {
	t.Helper()
	w, err := st.GetWallet(context.Background(), walletID)
	if err != nil {
		t.Fatalf("get wallet %s: %v", walletID, err)
	}
	return w.BalanceSC
}

// execOnBase runs a single statement against the raw DSN, outside any test
// schema. Used for schema create/drop.
func execOnBase(t *testing.T, dsn, sql string) {
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

func applyInitMigration(st *store.Store) error {
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

// scopedDSN appends a search_path so every connection lands in the test
// schema.
func scopedDSN(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}

func quoteSchema(schema string) string {
	return pgx.Identifier{schema}.Sanitize()
}
