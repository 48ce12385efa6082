package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"sweet-bazaar/internal/botactions"
	"sweet-bazaar/internal/ledger"
	"sweet-bazaar/internal/store"
	"sweet-bazaar/internal/testutil"
	"sweet-bazaar/internal/treasury"

	"github.com/stretchr/testify/require"
)

type jobFixture struct {
	store    *store.Store
	engine   *ledger.Engine
	treasury *treasury.Controller
	recorder *botactions.Recorder
}

func openFixture(t *testing.T) (*jobFixture, func()) {
	t.Helper()
	st, cleanup := testutil.OpenTestStore(t)
	eng := ledger.New(st)
	tc := treasury.New(st, eng, treasury.Config{DailyCapSC: 100000, BotWalletCapSC: 100000})
	if err := tc.Bootstrap(context.Background(), 1000000); err != nil {
		cleanup()
		t.Fatalf("bootstrap: %v", err)
	}
	return &jobFixture{
		store:    st,
		engine:   eng,
		treasury: tc,
		recorder: botactions.New(st, tc),
	}, cleanup
}

func (f *jobFixture) refundProcessor() *RefundProcessor {
	p := NewRefundProcessor(f.store, f.engine, f.recorder, f.treasury)
	p.InterItemWait = 0
	return p
}

func (f *jobFixture) mustSpend(t *testing.T, botWalletID string, cost int64, key string) string {
	t.Helper()
	res, err := f.recorder.RecordSpend(context.Background(), botactions.RecordSpendInput{
		BotWalletID:    botWalletID,
		ActionType:     "create_post",
		TargetType:     "thread",
		TargetID:       "t1",
		CostSC:         cost,
		IdempotencyKey: key,
	})
	require.NoError(t, err)
	return res.ActionID
}

func TestRefundRunRoundTrip(t *testing.T) {
	f, cleanup := openFixture(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	botID := testutil.MustEnsureWallet(t, f.store, store.OwnerKindBot, "b1", nil)
	actionID := f.mustSpend(t, botID, 40, "spend-1")
	require.NoError(t, f.recorder.MarkDisqualified(ctx, actionID, "spam", now))

	treasuryBefore := testutil.MustBalance(t, f.store, f.treasury.WalletID())

	stats := f.refundProcessor().Run(ctx, now.Add(time.Second))
	require.Equal(t, RunStats{Processed: 1}, stats)

	require.Equal(t, int64(0), testutil.MustBalance(t, f.store, botID))
	require.Equal(t, treasuryBefore+40, testutil.MustBalance(t, f.store, f.treasury.WalletID()))

	rec, err := f.store.GetBotActionRecord(ctx, actionID)
	require.NoError(t, err)
	require.True(t, rec.WasRefunded)
	require.Equal(t, store.RefundProcessed, rec.RefundStatus)

	// The compensating transaction is a balanced ledger entry set.
	txn, err := f.store.GetTransactionByIdempotencyKey(ctx, "refund:"+actionID)
	require.NoError(t, err)
	require.Equal(t, "refund", txn.Type)
}

func TestRefundRunSecondPassNoOp(t *testing.T) {
	f, cleanup := openFixture(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	botID := testutil.MustEnsureWallet(t, f.store, store.OwnerKindBot, "b1", nil)
	actionID := f.mustSpend(t, botID, 40, "spend-1")
	require.NoError(t, f.recorder.MarkDisqualified(ctx, actionID, "spam", now))

	p := f.refundProcessor()
	first := p.Run(ctx, now.Add(time.Second))
	require.Equal(t, 1, first.Processed)

	second := p.Run(ctx, now.Add(2*time.Second))
	require.Equal(t, RunStats{}, second)

	// Money moved exactly once.
	require.Equal(t, int64(0), testutil.MustBalance(t, f.store, botID))
}

func TestRefundRunLeavesOtherActionsAlone(t *testing.T) {
	f, cleanup := openFixture(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	botID := testutil.MustEnsureWallet(t, f.store, store.OwnerKindBot, "b1", nil)
	disqualified := f.mustSpend(t, botID, 40, "spend-1")
	kept := f.mustSpend(t, botID, 60, "spend-2")
	require.NoError(t, f.recorder.MarkDisqualified(ctx, disqualified, "spam", now))

	stats := f.refundProcessor().Run(ctx, now.Add(time.Second))
	require.Equal(t, 1, stats.Processed)

	// Only the disqualified spend was reversed.
	require.Equal(t, int64(60), testutil.MustBalance(t, f.store, botID))
	rec, err := f.store.GetBotActionRecord(ctx, kept)
	require.NoError(t, err)
	require.False(t, rec.WasRefunded)
	require.Equal(t, store.RefundNone, rec.RefundStatus)
}

func TestRefundRunInsufficientBalanceFails(t *testing.T) {
	f, cleanup := openFixture(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	botID := testutil.MustEnsureWallet(t, f.store, store.OwnerKindBot, "b1", nil)
	actionID := f.mustSpend(t, botID, 40, "spend-1")

	// The bot spends its coins elsewhere before the refund lands.
	_, err := f.engine.Commit(ctx, ledger.CommitInput{
		Type:           "purchase",
		IdempotencyKey: "drain-1",
		Entries:        ledger.TwoLeg(botID, f.treasury.WalletID(), 40),
	})
	require.NoError(t, err)
	require.NoError(t, f.recorder.MarkDisqualified(ctx, actionID, "spam", now))

	stats := f.refundProcessor().Run(ctx, now.Add(time.Second))
	require.Equal(t, RunStats{Failed: 1}, stats)

	rec, err := f.store.GetBotActionRecord(ctx, actionID)
	require.NoError(t, err)
	require.False(t, rec.WasRefunded)
	require.Equal(t, store.RefundFailed, rec.RefundStatus)
	require.NotEmpty(t, rec.RefundFailure)

	// Failed candidates are not retried on the next run.
	again := f.refundProcessor().Run(ctx, now.Add(2*time.Second))
	require.Equal(t, RunStats{}, again)
}

type brokenMarker struct{ err error }

func (m brokenMarker) MarkRefunded(context.Context, string, time.Time) error {
	return m.err
}

func TestRefundRunMarkFailureSurfacesRecord(t *testing.T) {
	f, cleanup := openFixture(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	botID := testutil.MustEnsureWallet(t, f.store, store.OwnerKindBot, "b1", nil)
	actionID := f.mustSpend(t, botID, 40, "spend-1")
	require.NoError(t, f.recorder.MarkDisqualified(ctx, actionID, "spam", now))

	treasuryBefore := testutil.MustBalance(t, f.store, f.treasury.WalletID())

	// The compensating commit lands but the bookkeeping write dies. The
	// record must come to rest as failed, not sit in processing forever.
	p := f.refundProcessor()
	p.recorder = brokenMarker{err: errors.New("store offline")}
	stats := p.Run(ctx, now.Add(time.Second))
	require.Equal(t, RunStats{Failed: 1}, stats)

	require.Equal(t, int64(0), testutil.MustBalance(t, f.store, botID))
	require.Equal(t, treasuryBefore+40, testutil.MustBalance(t, f.store, f.treasury.WalletID()))

	rec, err := f.store.GetBotActionRecord(ctx, actionID)
	require.NoError(t, err)
	require.False(t, rec.WasRefunded)
	require.Equal(t, store.RefundFailed, rec.RefundStatus)
	require.Contains(t, rec.RefundFailure, "compensated but not marked")

	// Failed is terminal for the batch; a later run does not pick it up, and
	// the refund idempotency key keeps a manual re-drive from paying twice.
	again := f.refundProcessor().Run(ctx, now.Add(2*time.Second))
	require.Equal(t, RunStats{}, again)
	res, err := f.engine.Commit(ctx, ledger.CommitInput{
		Type:           "refund",
		IdempotencyKey: "refund:" + actionID,
		Entries:        ledger.TwoLeg(botID, f.treasury.WalletID(), 40),
	})
	require.NoError(t, err)
	require.True(t, res.Replayed)
	require.Equal(t, treasuryBefore+40, testutil.MustBalance(t, f.store, f.treasury.WalletID()))
}

func TestRefundRunResetsDailySpendOnRollover(t *testing.T) {
	f, cleanup := openFixture(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	botID := testutil.MustEnsureWallet(t, f.store, store.OwnerKindBot, "b1", nil)
	f.mustSpend(t, botID, 40, "spend-1")

	state, err := f.store.GetTreasuryState(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(40), state.DaySpentSC)

	// Same-day run keeps the counter; next-day run zeroes it.
	f.refundProcessor().Run(ctx, now)
	state, err = f.store.GetTreasuryState(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(40), state.DaySpentSC)

	f.refundProcessor().Run(ctx, now.AddDate(0, 0, 1))
	state, err = f.store.GetTreasuryState(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), state.DaySpentSC)
}
