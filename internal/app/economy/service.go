package economy

import (
	"context"
	"strings"
	"time"

	"sweet-bazaar/internal/botactions"
	"sweet-bazaar/internal/config"
	"sweet-bazaar/internal/ledger"
	"sweet-bazaar/internal/store"
	"sweet-bazaar/internal/treasury"

	"github.com/jackc/pgx/v5"
)

// Service is the caller-facing surface of the coin economy: forum reward
// grants, marketplace purchases, and the bot orchestrator all come through
// here.
type Service struct {
	store    *store.Store
	engine   *ledger.Engine
	treasury *treasury.Controller
	recorder *botactions.Recorder
	cfg      config.ServerConfig
}

func NewService(s *store.Store, eng *ledger.Engine, tc *treasury.Controller, rec *botactions.Recorder, cfg config.ServerConfig) *Service {
	return &Service{store: s, engine: eng, treasury: tc, recorder: rec, cfg: cfg}
}

// Commit executes a raw entry set. The engine validates shape and balance.
func (s *Service) Commit(ctx context.Context, in CommitInput) (*CommitResponse, error) {
	entries := make([]ledger.Entry, 0, len(in.Entries))
	for _, e := range in.Entries {
		entries = append(entries, ledger.Entry{
			WalletID:  e.WalletID,
			Direction: e.Direction,
			AmountSC:  e.AmountSC,
		})
	}
	res, err := s.engine.Commit(ctx, ledger.CommitInput{
		Type:           in.Type,
		IdempotencyKey: in.IdempotencyKey,
		Entries:        entries,
		Metadata:       in.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return &CommitResponse{TransactionID: res.TransactionID, Balances: res.Balances, Replayed: res.Replayed}, nil
}

// GrantReward credits a user from the treasury and schedules the retention
// expiry for the granted amount in the same transaction.
func (s *Service) GrantReward(ctx context.Context, in RewardInput) (*RewardResponse, error) {
	if strings.TrimSpace(in.UserID) == "" || in.AmountSC <= 0 || in.IdempotencyKey == "" {
		return nil, ErrInvalidRequest
	}
	walletID, err := s.store.EnsureWallet(ctx, store.OwnerKindUser, in.UserID, 0, nil)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().AddDate(0, 0, s.cfg.ExpirationRetentionDays)

	tx, err := s.store.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	res, err := s.engine.CommitIn(ctx, tx, ledger.CommitInput{
		Type:           "reward",
		IdempotencyKey: in.IdempotencyKey,
		Entries:        ledger.TwoLeg(s.treasury.WalletID(), walletID, in.AmountSC),
		Metadata:       map[string]any{"reason": in.Reason},
	})
	if err != nil {
		return nil, err
	}
	if !res.Replayed {
		if _, err := s.store.InsertCoinExpirationTx(ctx, tx, walletID, in.AmountSC, expiresAt); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &RewardResponse{
		TransactionID: res.TransactionID,
		BalanceSC:     res.Balances[walletID],
		ExpiresAt:     expiresAt,
		Replayed:      res.Replayed,
	}, nil
}

// Purchase debits a user in favor of the treasury.
func (s *Service) Purchase(ctx context.Context, in PurchaseInput) (*PurchaseResponse, error) {
	if strings.TrimSpace(in.UserID) == "" || in.AmountSC <= 0 || in.IdempotencyKey == "" {
		return nil, ErrInvalidRequest
	}
	wallet, err := s.store.GetWalletByOwner(ctx, store.OwnerKindUser, in.UserID)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Commit(ctx, ledger.CommitInput{
		Type:           "purchase",
		IdempotencyKey: in.IdempotencyKey,
		Entries:        ledger.TwoLeg(wallet.ID, s.treasury.WalletID(), in.AmountSC),
		Metadata:       map[string]any{"ref_type": in.RefType, "ref_id": in.RefID},
	})
	if err != nil {
		return nil, err
	}
	return &PurchaseResponse{
		TransactionID: res.TransactionID,
		BalanceSC:     res.Balances[wallet.ID],
		Replayed:      res.Replayed,
	}, nil
}

// RegisterBot ensures the bot's wallet exists, with an optional holding cap.
func (s *Service) RegisterBot(ctx context.Context, botID string, capSC *int64) (string, error) {
	if strings.TrimSpace(botID) == "" {
		return "", ErrInvalidRequest
	}
	return s.store.EnsureWallet(ctx, store.OwnerKindBot, botID, 0, capSC)
}

// CanAfford is the read-only pre-check for a bot spend.
func (s *Service) CanAfford(ctx context.Context, botID string, amount int64) (bool, error) {
	wallet, err := s.store.GetWalletByOwner(ctx, store.OwnerKindBot, botID)
	if err != nil {
		return false, err
	}
	return s.treasury.CanAfford(ctx, wallet.ID, amount)
}

// RecordSpend funds and records one autonomous bot action.
func (s *Service) RecordSpend(ctx context.Context, in BotSpendInput) (*BotSpendResponse, error) {
	if strings.TrimSpace(in.BotID) == "" || in.CostSC <= 0 || in.IdempotencyKey == "" || in.ActionType == "" {
		return nil, ErrInvalidRequest
	}
	wallet, err := s.store.GetWalletByOwner(ctx, store.OwnerKindBot, in.BotID)
	if err != nil {
		return nil, err
	}
	res, err := s.recorder.RecordSpend(ctx, botactions.RecordSpendInput{
		BotWalletID:    wallet.ID,
		ActionType:     in.ActionType,
		TargetType:     in.TargetType,
		TargetID:       in.TargetID,
		CostSC:         in.CostSC,
		IdempotencyKey: in.IdempotencyKey,
		Metadata:       in.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return &BotSpendResponse{
		ActionID:      res.ActionID,
		TransactionID: res.TransactionID,
		BalanceSC:     res.BotBalanceSC,
		Replayed:      res.Replayed,
	}, nil
}

// Disqualify flags a recorded bot spend for refund by the next processor run.
func (s *Service) Disqualify(ctx context.Context, actionID, reason string) error {
	if strings.TrimSpace(actionID) == "" {
		return ErrInvalidRequest
	}
	return s.recorder.MarkDisqualified(ctx, actionID, reason, time.Now())
}

// WalletBalance reports a wallet by owner.
func (s *Service) WalletBalance(ctx context.Context, ownerKind, ownerID string) (*BalanceResponse, error) {
	wallet, err := s.store.GetWalletByOwner(ctx, ownerKind, ownerID)
	if err != nil {
		return nil, err
	}
	return &BalanceResponse{
		WalletID:         wallet.ID,
		OwnerID:          wallet.OwnerID,
		OwnerKind:        wallet.OwnerKind,
		BalanceSC:        wallet.BalanceSC,
		LifetimeEarnedSC: wallet.LifetimeEarnedSC,
		LifetimeSpentSC:  wallet.LifetimeSpentSC,
	}, nil
}

// ListLedger returns the owner's ledger entries, newest first.
func (s *Service) ListLedger(ctx context.Context, ownerKind, ownerID string, limit, offset int) ([]store.LedgerEntry, error) {
	wallet, err := s.store.GetWalletByOwner(ctx, ownerKind, ownerID)
	if err != nil {
		return nil, err
	}
	return s.store.ListLedgerEntries(ctx, store.EntryFilter{WalletID: wallet.ID}, limit, offset)
}
