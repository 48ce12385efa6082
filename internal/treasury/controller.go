package treasury

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sweet-bazaar/internal/ledger"
	"sweet-bazaar/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// DailyCapSC bounds total bot spending funded by the treasury per day.
	DailyCapSC int64
	// BotWalletCapSC is the default holding ceiling for bot wallets without
	// an explicit cap_sc. Zero or negative means uncapped.
	BotWalletCapSC int64
}

// Controller owns the central pool. All treasury mutations run through the
// ledger engine; the controller adds cap enforcement and daily accounting.
type Controller struct {
	store  *store.Store
	engine *ledger.Engine
	cfg    Config

	walletID string
	voidID   string
}

func New(s *store.Store, eng *ledger.Engine, cfg Config) *Controller {
	return &Controller{store: s, engine: eng, cfg: cfg}
}

// Bootstrap ensures the system wallets and the daily counter row exist, and
// funds an empty treasury with the initial balance.
func (c *Controller) Bootstrap(ctx context.Context, initialSC int64) error {
	treasuryID, err := c.store.EnsureWallet(ctx, store.OwnerKindSystem, store.TreasuryOwnerID, 0, nil)
	if err != nil {
		return fmt.Errorf("ensure treasury wallet: %w", err)
	}
	voidID, err := c.store.EnsureWallet(ctx, store.OwnerKindSystem, store.VoidOwnerID, 0, nil)
	if err != nil {
		return fmt.Errorf("ensure void wallet: %w", err)
	}
	c.walletID = treasuryID
	c.voidID = voidID

	if err := c.store.EnsureTreasuryState(ctx); err != nil {
		return fmt.Errorf("ensure treasury state: %w", err)
	}

	if initialSC > 0 {
		w, err := c.store.GetWallet(ctx, treasuryID)
		if err != nil {
			return err
		}
		if w.BalanceSC == 0 && w.LifetimeEarnedSC == 0 {
			if _, err := c.Refill(ctx, initialSC, "treasury_refill:initial"); err != nil {
				return fmt.Errorf("initial refill: %w", err)
			}
			log.Info().Int64("amount_sc", initialSC).Msg("treasury funded")
		}
	}
	return nil
}

// WalletID returns the treasury wallet id. Valid after Bootstrap.
func (c *Controller) WalletID() string {
	return c.walletID
}

// Refill credits the treasury. The counterpart leg debits the void wallet so
// minted value stays visible in the ledger; void is the one wallet allowed to
// run negative.
func (c *Controller) Refill(ctx context.Context, amount int64, idempotencyKey string) (*ledger.CommitResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: non-positive refill %d", ledger.ErrInvalidEntrySet, amount)
	}
	return c.engine.Commit(ctx, ledger.CommitInput{
		Type:           "treasury_refill",
		IdempotencyKey: idempotencyKey,
		Entries:        ledger.TwoLeg(c.voidID, c.walletID, amount),
		AllowOverdraft: true,
	})
}

// CanAfford is the read-only pre-check: the bot's holding cap, the treasury's
// remaining daily budget, and the treasury balance. It mutates nothing, so a
// spend attempt can still fail if the world moves between check and commit.
func (c *Controller) CanAfford(ctx context.Context, botWalletID string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, nil
	}
	bot, err := c.store.GetWallet(ctx, botWalletID)
	if err != nil {
		return false, err
	}
	if cap := c.capFor(bot); cap > 0 && bot.BalanceSC+amount > cap {
		return false, nil
	}
	st, err := c.store.GetTreasuryState(ctx)
	if err != nil {
		return false, err
	}
	if c.cfg.DailyCapSC > 0 && st.DaySpentSC+amount > c.cfg.DailyCapSC {
		return false, nil
	}
	tw, err := c.store.GetWallet(ctx, c.walletID)
	if err != nil {
		return false, err
	}
	return tw.BalanceSC >= amount, nil
}

// DebitForBotSpend funds a bot action from the treasury: debit treasury,
// credit the bot wallet, bump the daily counter, all in one transaction.
func (c *Controller) DebitForBotSpend(ctx context.Context, botWalletID string, amount int64, reason, idempotencyKey string) (*ledger.CommitResult, error) {
	tx, err := c.store.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	res, err := c.DebitForBotSpendIn(ctx, tx, botWalletID, amount, reason, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// DebitForBotSpendIn is the in-transaction variant used by the bot action
// recorder so the action record commits atomically with the spend.
func (c *Controller) DebitForBotSpendIn(ctx context.Context, tx pgx.Tx, botWalletID string, amount int64, reason, idempotencyKey string) (*ledger.CommitResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: non-positive spend %d", ledger.ErrInvalidEntrySet, amount)
	}

	// The counter row lock serializes all bot spends; it is taken before any
	// wallet lock, in the same order on every path.
	st, err := c.store.GetTreasuryStateForUpdate(ctx, tx)
	if err != nil {
		return nil, err
	}

	in := ledger.CommitInput{
		Type:           "bot_spend",
		IdempotencyKey: idempotencyKey,
		Entries:        ledger.TwoLeg(c.walletID, botWalletID, amount),
		Metadata:       map[string]any{"reason": reason},
	}

	// A retried key replays the original result and must not re-check caps or
	// re-count spend.
	if _, err := c.store.GetTransactionByIdempotencyKeyTx(ctx, tx, idempotencyKey); err == nil {
		return c.engine.CommitIn(ctx, tx, in)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if c.cfg.DailyCapSC > 0 && st.DaySpentSC+amount > c.cfg.DailyCapSC {
		return nil, fmt.Errorf("%w: daily spend %d + %d over cap %d", ErrCapExceeded, st.DaySpentSC, amount, c.cfg.DailyCapSC)
	}

	bot, err := c.store.GetWallet(ctx, botWalletID)
	if err != nil {
		return nil, err
	}
	if cap := c.capFor(bot); cap > 0 && bot.BalanceSC+amount > cap {
		return nil, fmt.Errorf("%w: bot wallet %d + %d over cap %d", ErrCapExceeded, bot.BalanceSC, amount, cap)
	}

	res, err := c.engine.CommitIn(ctx, tx, in)
	if err != nil {
		return nil, err
	}
	if err := c.store.AddDailySpend(ctx, tx, amount); err != nil {
		return nil, err
	}
	return res, nil
}

// ResetDailySpend zeroes the daily counter, at most once per day.
func (c *Controller) ResetDailySpend(ctx context.Context, now time.Time) (bool, error) {
	reset, err := c.store.ResetDailySpend(ctx, now)
	if err != nil {
		return false, err
	}
	if reset {
		log.Info().Time("day", now).Msg("treasury daily spend reset")
	}
	return reset, nil
}

func (c *Controller) capFor(w *store.Wallet) int64 {
	if w.CapSC != nil {
		return *w.CapSC
	}
	if w.OwnerKind == store.OwnerKindBot {
		return c.cfg.BotWalletCapSC
	}
	return 0
}
