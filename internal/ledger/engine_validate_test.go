package ledger

import (
	"errors"
	"testing"

	"sweet-bazaar/internal/store"
)

func TestValidateEntrySet(t *testing.T) {
	balanced := TwoLeg("w-a", "w-b", 10)

	tests := []struct {
		name    string
		in      CommitInput
		wantErr error
	}{
		{
			name: "balanced two-leg",
			in:   CommitInput{Type: "purchase", IdempotencyKey: "k1", Entries: balanced},
		},
		{
			name:    "missing type",
			in:      CommitInput{IdempotencyKey: "k1", Entries: balanced},
			wantErr: ErrInvalidEntrySet,
		},
		{
			name:    "missing idempotency key",
			in:      CommitInput{Type: "purchase", Entries: balanced},
			wantErr: ErrInvalidEntrySet,
		},
		{
			name:    "empty entries",
			in:      CommitInput{Type: "purchase", IdempotencyKey: "k1"},
			wantErr: ErrInvalidEntrySet,
		},
		{
			name: "zero amount",
			in: CommitInput{Type: "purchase", IdempotencyKey: "k1", Entries: []Entry{
				{WalletID: "w-a", Direction: store.DirectionDebit, AmountSC: 0},
				{WalletID: "w-b", Direction: store.DirectionCredit, AmountSC: 0},
			}},
			wantErr: ErrInvalidEntrySet,
		},
		{
			name: "negative amount",
			in: CommitInput{Type: "purchase", IdempotencyKey: "k1", Entries: []Entry{
				{WalletID: "w-a", Direction: store.DirectionDebit, AmountSC: -5},
				{WalletID: "w-b", Direction: store.DirectionCredit, AmountSC: -5},
			}},
			wantErr: ErrInvalidEntrySet,
		},
		{
			name: "unbalanced",
			in: CommitInput{Type: "purchase", IdempotencyKey: "k1", Entries: []Entry{
				{WalletID: "w-a", Direction: store.DirectionDebit, AmountSC: 10},
				{WalletID: "w-b", Direction: store.DirectionCredit, AmountSC: 7},
			}},
			wantErr: ErrInvalidEntrySet,
		},
		{
			name: "bad direction",
			in: CommitInput{Type: "purchase", IdempotencyKey: "k1", Entries: []Entry{
				{WalletID: "w-a", Direction: "transfer", AmountSC: 10},
				{WalletID: "w-b", Direction: store.DirectionCredit, AmountSC: 10},
			}},
			wantErr: ErrInvalidEntrySet,
		},
		{
			name: "missing wallet id",
			in: CommitInput{Type: "purchase", IdempotencyKey: "k1", Entries: []Entry{
				{Direction: store.DirectionDebit, AmountSC: 10},
				{WalletID: "w-b", Direction: store.DirectionCredit, AmountSC: 10},
			}},
			wantErr: ErrInvalidEntrySet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.in)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDistinctWalletIDsSorted(t *testing.T) {
	entries := []Entry{
		{WalletID: "w-c", Direction: store.DirectionDebit, AmountSC: 1},
		{WalletID: "w-a", Direction: store.DirectionCredit, AmountSC: 1},
		{WalletID: "w-c", Direction: store.DirectionCredit, AmountSC: 2},
		{WalletID: "w-b", Direction: store.DirectionDebit, AmountSC: 2},
	}
	ids := distinctWalletIDs(entries)
	if len(ids) != 3 {
		t.Fatalf("len(ids) = %d, want 3", len(ids))
	}
	for i, want := range []string{"w-a", "w-b", "w-c"} {
		if ids[i] != want {
			t.Fatalf("ids[%d] = %q, want %q", i, ids[i], want)
		}
	}
}

func TestReplayResultUsesLastBalanceAfter(t *testing.T) {
	entries := []store.LedgerEntry{
		{WalletID: "w-a", Direction: store.DirectionDebit, AmountSC: 10, BalanceAfterSC: 90},
		{WalletID: "w-b", Direction: store.DirectionCredit, AmountSC: 10, BalanceAfterSC: 110},
		{WalletID: "w-a", Direction: store.DirectionDebit, AmountSC: 5, BalanceAfterSC: 85},
		{WalletID: "w-b", Direction: store.DirectionCredit, AmountSC: 5, BalanceAfterSC: 115},
	}
	res := replayResult("tx-1", entries)
	if !res.Replayed {
		t.Fatal("expected replayed result")
	}
	if res.Balances["w-a"] != 85 {
		t.Fatalf("w-a balance = %d, want 85", res.Balances["w-a"])
	}
	if res.Balances["w-b"] != 115 {
		t.Fatalf("w-b balance = %d, want 115", res.Balances["w-b"])
	}
}
