package store

import (
	"testing"
	"time"
)

func TestTreasuryStateEnsureAndSpend(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	if err := st.EnsureTreasuryState(ctx); err != nil {
		t.Fatalf("ensure state: %v", err)
	}
	// Second ensure is a no-op.
	if err := st.EnsureTreasuryState(ctx); err != nil {
		t.Fatalf("re-ensure state: %v", err)
	}

	state, err := st.GetTreasuryState(ctx)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.DaySpentSC != 0 {
		t.Fatalf("expected zero day spend, got %d", state.DaySpentSC)
	}

	tx, err := st.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := st.GetTreasuryStateForUpdate(ctx, tx); err != nil {
		t.Fatalf("lock state: %v", err)
	}
	if err := st.AddDailySpend(ctx, tx, 250); err != nil {
		t.Fatalf("add spend: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	state, err = st.GetTreasuryState(ctx)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.DaySpentSC != 250 {
		t.Fatalf("expected 250 day spend, got %d", state.DaySpentSC)
	}
}

func TestResetDailySpendDateGuard(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	if err := st.EnsureTreasuryState(ctx); err != nil {
		t.Fatalf("ensure state: %v", err)
	}
	tx, err := st.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := st.AddDailySpend(ctx, tx, 100); err != nil {
		t.Fatalf("add spend: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Same day: the guard must keep the counter.
	today := time.Now().UTC()
	reset, err := st.ResetDailySpend(ctx, today)
	if err != nil {
		t.Fatalf("reset same day: %v", err)
	}
	if reset {
		t.Fatal("expected no reset for the current day")
	}

	tomorrow := today.AddDate(0, 0, 1)
	reset, err = st.ResetDailySpend(ctx, tomorrow)
	if err != nil {
		t.Fatalf("reset next day: %v", err)
	}
	if !reset {
		t.Fatal("expected reset on day rollover")
	}
	state, err := st.GetTreasuryState(ctx)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.DaySpentSC != 0 {
		t.Fatalf("expected zero after reset, got %d", state.DaySpentSC)
	}

	// Second rollover call for the same day does nothing.
	reset, err = st.ResetDailySpend(ctx, tomorrow)
	if err != nil {
		t.Fatalf("re-reset: %v", err)
	}
	if reset {
		t.Fatal("expected second reset for same day to be a no-op")
	}
}
