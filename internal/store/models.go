package store

import "time"

// Owner kinds. The treasury and void pools are system wallets so the same
// ledger invariants cover them without special cases.
const (
	OwnerKindUser   = "user"
	OwnerKindBot    = "bot"
	OwnerKindSystem = "system"
)

// Well-known system wallet owners.
const (
	TreasuryOwnerID = "treasury"
	VoidOwnerID     = "void"
)

// Entry directions.
const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"
)

// Refund lifecycle of a bot action record.
const (
	RefundNone       = "none"
	RefundPending    = "pending"
	RefundProcessing = "processing"
	RefundProcessed  = "processed"
	RefundFailed     = "failed"
)

// Coin expiration record status.
const (
	ExpirationPending   = "pending"
	ExpirationProcessed = "processed"
)

type Wallet struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	OwnerKind        string    `json:"owner_kind"`
	BalanceSC        int64     `json:"balance_sc"`
	LifetimeEarnedSC int64     `json:"lifetime_earned_sc"`
	LifetimeSpentSC  int64     `json:"lifetime_spent_sc"`
	CapSC            *int64    `json:"cap_sc,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Transaction struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	IdempotencyKey string    `json:"idempotency_key"`
	Status         string    `json:"status"`
	Metadata       []byte    `json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type LedgerEntry struct {
	ID             string    `json:"id"`
	TransactionID  string    `json:"transaction_id"`
	WalletID       string    `json:"wallet_id"`
	Direction      string    `json:"direction"`
	AmountSC       int64     `json:"amount_sc"`
	BalanceAfterSC int64     `json:"balance_after_sc"`
	CreatedAt      time.Time `json:"created_at"`
}

type TreasuryState struct {
	DaySpentSC    int64     `json:"day_spent_sc"`
	LastResetDate time.Time `json:"last_reset_date"`
}

type BotActionRecord struct {
	ID               string     `json:"id"`
	BotWalletID      string     `json:"bot_wallet_id"`
	ActionType       string     `json:"action_type"`
	TargetType       string     `json:"target_type"`
	TargetID         string     `json:"target_id"`
	CostSC           int64      `json:"cost_sc"`
	TransactionID    string     `json:"transaction_id"`
	WasRefunded      bool       `json:"was_refunded"`
	RefundStatus     string     `json:"refund_status"`
	DisqualifyReason string     `json:"disqualify_reason,omitempty"`
	RefundFailure    string     `json:"refund_failure,omitempty"`
	DisqualifiedAt   *time.Time `json:"disqualified_at,omitempty"`
	RefundedAt       *time.Time `json:"refunded_at,omitempty"`
	Metadata         []byte     `json:"metadata,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type CoinExpiration struct {
	ID               string     `json:"id"`
	WalletID         string     `json:"wallet_id"`
	AmountSC         int64      `json:"amount_sc"`
	ActualAmountSC   *int64     `json:"actual_amount_sc,omitempty"`
	ScheduledAt      time.Time  `json:"scheduled_at"`
	Status           string     `json:"status"`
	NotificationSent bool       `json:"notification_sent"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type EntryFilter struct {
	WalletID      string
	TransactionID string
	From          *time.Time
	To            *time.Time
}

type TransactionFilter struct {
	Type string
	From *time.Time
	To   *time.Time
}
