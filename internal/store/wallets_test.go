package store

import (
	"errors"
	"testing"
)

func TestEnsureWalletIdempotent(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	first, err := st.EnsureWallet(ctx, OwnerKindUser, "u1", 0, nil)
	if err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	second, err := st.EnsureWallet(ctx, OwnerKindUser, "u1", 0, nil)
	if err != nil {
		t.Fatalf("re-ensure wallet: %v", err)
	}
	if first != second {
		t.Fatalf("expected same wallet id, got %s and %s", first, second)
	}

	w, err := st.GetWalletByOwner(ctx, OwnerKindUser, "u1")
	if err != nil {
		t.Fatalf("get by owner: %v", err)
	}
	if w.ID != first || w.BalanceSC != 0 {
		t.Fatalf("unexpected wallet: %+v", w)
	}
}

func TestEnsureWalletKeepsCap(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	cap := int64(2000)
	id, err := st.EnsureWallet(ctx, OwnerKindBot, "b1", 0, &cap)
	if err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	// Re-ensuring without a cap must not erase the stored one.
	if _, err := st.EnsureWallet(ctx, OwnerKindBot, "b1", 0, nil); err != nil {
		t.Fatalf("re-ensure wallet: %v", err)
	}
	w, err := st.GetWallet(ctx, id)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if w.CapSC == nil || *w.CapSC != 2000 {
		t.Fatalf("expected cap 2000, got %+v", w.CapSC)
	}
}

func TestGetWalletNotFound(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	if _, err := st.GetWallet(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.GetWalletByOwner(ctx, OwnerKindUser, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetWalletsForUpdateLocksAll(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	a := mustEnsureWallet(t, st, ctx, OwnerKindUser, "u1", 100)
	b := mustEnsureWallet(t, st, ctx, OwnerKindUser, "u2", 200)

	tx, err := st.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	got, err := st.GetWalletsForUpdate(ctx, tx, []string{a, b})
	if err != nil {
		t.Fatalf("lock wallets: %v", err)
	}
	if len(got) != 2 || got[a].BalanceSC != 100 || got[b].BalanceSC != 200 {
		t.Fatalf("unexpected wallets: %+v", got)
	}
}

func TestUpdateWalletBalanceTracksLifetime(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	id := mustEnsureWallet(t, st, ctx, OwnerKindUser, "u1", 0)

	tx, err := st.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := st.UpdateWalletBalance(ctx, tx, id, 150, 200, 50); err != nil {
		t.Fatalf("update balance: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	w, err := st.GetWallet(ctx, id)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if w.BalanceSC != 150 || w.LifetimeEarnedSC != 200 || w.LifetimeSpentSC != 50 {
		t.Fatalf("unexpected wallet after update: %+v", w)
	}
}

func TestListWalletsByOwnerKind(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	mustEnsureWallet(t, st, ctx, OwnerKindUser, "u1", 0)
	mustEnsureWallet(t, st, ctx, OwnerKindUser, "u2", 0)
	mustEnsureWallet(t, st, ctx, OwnerKindBot, "b1", 0)

	users, err := st.ListWallets(ctx, OwnerKindUser, 10, 0)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 user wallets, got %d", len(users))
	}

	all, err := st.ListWallets(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 wallets, got %d", len(all))
	}
}
