package economy

import "time"

type EntryInput struct {
	WalletID  string `json:"wallet_id"`
	Direction string `json:"direction"`
	AmountSC  int64  `json:"amount_sc"`
}

type CommitInput struct {
	Type           string         `json:"type"`
	IdempotencyKey string         `json:"idempotency_key"`
	Entries        []EntryInput   `json:"entries"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type CommitResponse struct {
	TransactionID string           `json:"transaction_id"`
	Balances      map[string]int64 `json:"balances"`
	Replayed      bool             `json:"replayed"`
}

type RewardInput struct {
	UserID         string `json:"user_id"`
	AmountSC       int64  `json:"amount_sc"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key"`
}

type RewardResponse struct {
	TransactionID string    `json:"transaction_id"`
	BalanceSC     int64     `json:"balance_sc"`
	ExpiresAt     time.Time `json:"expires_at"`
	Replayed      bool      `json:"replayed"`
}

type PurchaseInput struct {
	UserID         string `json:"user_id"`
	AmountSC       int64  `json:"amount_sc"`
	RefType        string `json:"ref_type"`
	RefID          string `json:"ref_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

type PurchaseResponse struct {
	TransactionID string `json:"transaction_id"`
	BalanceSC     int64  `json:"balance_sc"`
	Replayed      bool   `json:"replayed"`
}

type BotSpendInput struct {
	BotID          string         `json:"bot_id"`
	ActionType     string         `json:"action_type"`
	TargetType     string         `json:"target_type"`
	TargetID       string         `json:"target_id"`
	CostSC         int64          `json:"cost_sc"`
	IdempotencyKey string         `json:"idempotency_key"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type BotSpendResponse struct {
	ActionID      string `json:"action_id"`
	TransactionID string `json:"transaction_id"`
	BalanceSC     int64  `json:"balance_sc"`
	Replayed      bool   `json:"replayed"`
}

type BalanceResponse struct {
	WalletID         string `json:"wallet_id"`
	OwnerID          string `json:"owner_id"`
	OwnerKind        string `json:"owner_kind"`
	BalanceSC        int64  `json:"balance_sc"`
	LifetimeEarnedSC int64  `json:"lifetime_earned_sc"`
	LifetimeSpentSC  int64  `json:"lifetime_spent_sc"`
}
