package http

import (
	"net/http"

	"NovaRamp/internal/services"

	"github.com/go-chi/chi/v5"
)

type validatePayeeRequest struct {
	RawPayeeID string `json:"rawPayeeId"`
	Provider   string `json:"provider"`
}

type createDepositRequest struct {
	RawPayeeID     string   `json:"rawPayeeId"`
	Provider       string   `json:"provider"`
	Currency       string   `json:"currency"`
	MinAmount      float64  `json:"minAmount"`
	MaxAmount      float64  `json:"maxAmount"`
	ConversionRate float64  `json:"conversionRate"`
	FeePercentage  *float64 `json:"feePercentage"`
}

func (h *Handler) ValidatePayee(w http.ResponseWriter, r *http.Request) {
	var req validatePayeeRequest
	if !decode(w, r, &req) {
		return
	}
	if _, ok := h.currentUser(w, r); !ok {
		return
	}
	res, err := h.Makers.ValidatePayee(r.Context(), req.RawPayeeID, req.Provider)
	if err != nil {
		h.respondError(w, r, "validate payee failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req createDepositRequest
	if !decode(w, r, &req) {
		return
	}
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	d, err := h.Makers.CreateDeposit(r.Context(), user, services.CreateDepositInput{
		RawPayeeID:     req.RawPayeeID,
		Provider:       req.Provider,
		Currency:       req.Currency,
		MinAmount:      req.MinAmount,
		MaxAmount:      req.MaxAmount,
		ConversionRate: req.ConversionRate,
		FeePercentage:  req.FeePercentage,
	})
	if err != nil {
		h.respondError(w, r, "create deposit failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"depositId":       d.DepositID,
		"hashedOnchainId": d.HashedOnchainID,
		"normalizedId":    d.NormalizedPayeeID,
	})
}

func (h *Handler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	deposits, err := h.Makers.ListDeposits(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, "list deposits failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deposits": deposits})
}

func (h *Handler) DeactivateDeposit(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	depositID := chi.URLParam(r, "depositId")
	if err := h.Makers.DeactivateDeposit(r.Context(), user.ID, depositID); err != nil {
		h.respondError(w, r, "deactivate deposit failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "depositId": depositID})
}
