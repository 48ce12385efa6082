package httptransport

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"sweet-bazaar/internal/botactions"
	"sweet-bazaar/internal/ledger"
	"sweet-bazaar/internal/store"
	"sweet-bazaar/internal/treasury"
)

func TestCheckAdminAuth(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   bool
	}{
		{"x-admin-key match", "X-Admin-Key", "sekrit", true},
		{"x-admin-key mismatch", "X-Admin-Key", "wrong", false},
		{"bearer match", "Authorization", "Bearer sekrit", true},
		{"bearer mismatch", "Authorization", "Bearer wrong", false},
		{"bearer empty token", "Authorization", "Bearer ", false},
		{"no header", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/admin/wallets", nil)
			if tt.header != "" {
				r.Header.Set(tt.header, tt.value)
			}
			if got := CheckAdminAuth(r, "sekrit"); got != tt.want {
				t.Fatalf("CheckAdminAuth = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePaginationClamps(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 50, 0},
		{"limit=25&offset=10", 25, 10},
		{"limit=0", 1, 0},
		{"limit=9999", 200, 0},
		{"offset=-5", 50, 0},
		{"limit=abc&offset=xyz", 50, 0},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/api/admin/entries?"+tt.query, nil)
		limit, offset := ParsePagination(r)
		if limit != tt.wantLimit || offset != tt.wantOffset {
			t.Fatalf("query %q: got (%d, %d), want (%d, %d)", tt.query, limit, offset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestEconomyErrorStatuses(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{ledger.ErrInvalidEntrySet, 400, "invalid_request"},
		{ledger.ErrInsufficientBalance, 409, "insufficient_balance"},
		{treasury.ErrCapExceeded, 409, "cap_exceeded"},
		{botactions.ErrAlreadyRefunded, 409, "already_refunded"},
		{botactions.ErrRefundInProgress, 409, "refund_in_progress"},
		{store.ErrNotFound, 404, "not_found"},
		{ledger.ErrWalletNotFound, 404, "not_found"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeEconomyError(w, tt.err)
		if w.Code != tt.wantStatus {
			t.Fatalf("%v: status = %d, want %d", tt.err, w.Code, tt.wantStatus)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["error"] != tt.wantCode {
			t.Fatalf("%v: code = %q, want %q", tt.err, body["error"], tt.wantCode)
		}
	}
}
