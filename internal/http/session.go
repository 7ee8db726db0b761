package http

import (
	"errors"
	"net/http"

	"NovaRamp/internal/auth"
)

type sessionRequest struct {
	IDToken string `json:"idToken"`
}

// Session records the caller and its wallet. An idToken in the body must
// belong to the same subject as the bearer token.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decode(w, r, &req) {
		return
	}
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if req.IDToken != "" {
		claimed, err := h.Verifier.Verify(r.Context(), req.IDToken)
		if errors.Is(err, auth.ErrUnauthorized) || (err == nil && claimed.Subject != id.Subject) {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		if err != nil {
			h.internalError(w, r, "verify id token failed", err)
			return
		}
		if id.WalletAddress == "" {
			id.WalletAddress = claimed.WalletAddress
		}
	}

	user, err := h.Users.StartSession(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "start session failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"user":      user,
		"sessionId": id.Subject,
	})
}
