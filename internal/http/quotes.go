package http

import (
	"math"
	"net/http"
	"strconv"

	"NovaRamp/internal/models"
	"NovaRamp/internal/pricing"
)

func (h *Handler) GetQuotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := strconv.ParseFloat(q.Get("fiatAmount"), 64)
	if err != nil || amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		writeError(w, http.StatusBadRequest, "Invalid fiat amount")
		return
	}

	quotes, err := h.Quotes.Quotes(r.Context(), pricing.Request{
		FiatAmount: amount,
		Currency:   q.Get("currency"),
		Provider:   q.Get("provider"),
		OrderType:  models.OrderType(q.Get("orderType")),
	})
	if err != nil {
		h.respondError(w, r, "quotes failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}
