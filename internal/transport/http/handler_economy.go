package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"sweet-bazaar/internal/app/economy"
	"sweet-bazaar/internal/botactions"
	"sweet-bazaar/internal/ledger"
	"sweet-bazaar/internal/store"
	"sweet-bazaar/internal/treasury"

	"github.com/go-chi/chi/v5"
)

type EconomyHandlers struct {
	svc *economy.Service
}

func NewEconomyHandlers(svc *economy.Service) *EconomyHandlers {
	return &EconomyHandlers{svc: svc}
}

// writeEconomyError maps the error taxonomy onto HTTP statuses. Declined
// financial actions surface to the caller; anything else is internal.
func writeEconomyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, economy.ErrInvalidRequest), errors.Is(err, ledger.ErrInvalidEntrySet):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, ledger.ErrInsufficientBalance):
		WriteHTTPError(w, http.StatusConflict, "insufficient_balance")
	case errors.Is(err, treasury.ErrCapExceeded):
		WriteHTTPError(w, http.StatusConflict, "cap_exceeded")
	case errors.Is(err, botactions.ErrAlreadyRefunded):
		WriteHTTPError(w, http.StatusConflict, "already_refunded")
	case errors.Is(err, botactions.ErrRefundInProgress):
		WriteHTTPError(w, http.StatusConflict, "refund_in_progress")
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ledger.ErrWalletNotFound):
		WriteHTTPError(w, http.StatusNotFound, "not_found")
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}

func (h *EconomyHandlers) Commit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in economy.CommitInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		resp, err := h.svc.Commit(r.Context(), in)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *EconomyHandlers) Reward() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in economy.RewardInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		resp, err := h.svc.GrantReward(r.Context(), in)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *EconomyHandlers) Purchase() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in economy.PurchaseInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		resp, err := h.svc.Purchase(r.Context(), in)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *EconomyHandlers) Balance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerKind := chi.URLParam(r, "owner_kind")
		ownerID := chi.URLParam(r, "owner_id")
		resp, err := h.svc.WalletBalance(r.Context(), ownerKind, ownerID)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *EconomyHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerKind := chi.URLParam(r, "owner_kind")
		ownerID := chi.URLParam(r, "owner_id")
		limit, offset := ParsePagination(r)
		entries, err := h.svc.ListLedger(r.Context(), ownerKind, ownerID, limit, offset)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"entries": entries})
	}
}

func (h *EconomyHandlers) RegisterBot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			BotID string `json:"bot_id"`
			CapSC *int64 `json:"cap_sc,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		walletID, err := h.svc.RegisterBot(r.Context(), body.BotID, body.CapSC)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "wallet_id": walletID})
	}
}

func (h *EconomyHandlers) CanAfford() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			BotID    string `json:"bot_id"`
			AmountSC int64  `json:"amount_sc"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.BotID == "" || body.AmountSC <= 0 {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		ok, err := h.svc.CanAfford(r.Context(), body.BotID, body.AmountSC)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"can_afford": ok})
	}
}

func (h *EconomyHandlers) BotSpend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in economy.BotSpendInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		resp, err := h.svc.RecordSpend(r.Context(), in)
		if err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *EconomyHandlers) Disqualify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ActionID string `json:"action_id"`
			Reason   string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if err := h.svc.Disqualify(r.Context(), body.ActionID, body.Reason); err != nil {
			writeEconomyError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}
