package http

import (
	"net/http"

	"NovaRamp/internal/chain"
	"NovaRamp/internal/providers"
)

func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": providers.All()})
}

func (h *Handler) ListChains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"chains": chain.All()})
}

func (h *Handler) ChainHealth(w http.ResponseWriter, r *http.Request) {
	health := []chain.Health{}
	if h.Chains != nil {
		health = h.Chains.Check(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{"chains": health})
}
