package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"sweet-bazaar/internal/jobs"
	"sweet-bazaar/internal/store"
	"sweet-bazaar/internal/treasury"

	"github.com/go-chi/chi/v5"
)

type AdminHandlers struct {
	store      *store.Store
	treasury   *treasury.Controller
	refunds    *jobs.RefundProcessor
	expiration *jobs.ExpirationJob
}

func NewAdminHandlers(s *store.Store, tc *treasury.Controller, rp *jobs.RefundProcessor, ej *jobs.ExpirationJob) *AdminHandlers {
	return &AdminHandlers{store: s, treasury: tc, refunds: rp, expiration: ej}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "up"})
	}
}

func (h *AdminHandlers) TreasuryState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := h.store.GetTreasuryState(r.Context())
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		wallet, err := h.store.GetWallet(r.Context(), h.treasury.WalletID())
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"wallet_id":       wallet.ID,
			"balance_sc":      wallet.BalanceSC,
			"day_spent_sc":    state.DaySpentSC,
			"last_reset_date": state.LastResetDate,
		})
	}
}

func (h *AdminHandlers) Refill() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AmountSC       int64  `json:"amount_sc"`
			IdempotencyKey string `json:"idempotency_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.AmountSC <= 0 || body.IdempotencyKey == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		res, err := h.treasury.Refill(r.Context(), body.AmountSC, "treasury_refill:"+body.IdempotencyKey)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"transaction_id": res.TransactionID,
			"balance_sc":     res.Balances[h.treasury.WalletID()],
			"replayed":       res.Replayed,
		})
	}
}

func (h *AdminHandlers) ResetDailySpend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reset, err := h.treasury.ResetDailySpend(r.Context(), time.Now().UTC())
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"reset": reset})
	}
}

func (h *AdminHandlers) RunRefunds() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := h.refunds.Run(r.Context(), time.Now().UTC())
		_ = json.NewEncoder(w).Encode(stats)
	}
}

func (h *AdminHandlers) RunExpirations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := h.expiration.Run(r.Context(), time.Now().UTC())
		_ = json.NewEncoder(w).Encode(stats)
	}
}

func (h *AdminHandlers) ListWallets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		wallets, err := h.store.ListWallets(r.Context(), r.URL.Query().Get("owner_kind"), limit, offset)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"wallets": wallets})
	}
}

func (h *AdminHandlers) ListTransactions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		f := store.TransactionFilter{Type: r.URL.Query().Get("type")}
		f.From, f.To = parseTimeRange(r)
		txs, err := h.store.ListTransactions(r.Context(), f, limit, offset)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"transactions": txs})
	}
}

func (h *AdminHandlers) ListEntries() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		f := store.EntryFilter{
			WalletID:      r.URL.Query().Get("wallet_id"),
			TransactionID: r.URL.Query().Get("transaction_id"),
		}
		f.From, f.To = parseTimeRange(r)
		entries, err := h.store.ListLedgerEntries(r.Context(), f, limit, offset)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"entries": entries})
	}
}

func (h *AdminHandlers) ListBotActions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		actions, err := h.store.ListBotActions(r.Context(), r.URL.Query().Get("wallet_id"), limit, offset)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"actions": actions})
	}
}

// AuditWallet recomputes a wallet balance from its entries and reports drift.
func (h *AdminHandlers) AuditWallet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		walletID := chi.URLParam(r, "wallet_id")
		wallet, err := h.store.GetWallet(r.Context(), walletID)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		sum, err := h.store.SumWalletEntries(r.Context(), walletID)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"wallet_id":  walletID,
			"balance_sc": wallet.BalanceSC,
			"entries_sc": sum,
			"consistent": wallet.BalanceSC == sum,
		})
	}
}

func parseTimeRange(r *http.Request) (from, to *time.Time) {
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			from = &t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			to = &t
		}
	}
	return from, to
}
