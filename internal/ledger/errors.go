package ledger

import "errors"

var (
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrInvalidEntrySet     = errors.New("invalid_entry_set")
	ErrWalletNotFound      = errors.New("wallet_not_found")
)
