package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Middleware rejects requests without a valid bearer token and stores the
// caller's Identity in the request context.
type Middleware struct {
	Verifier Verifier
	Logger   *slog.Logger
}

func (m Middleware) Require(next http.Handler) http.Handler {
	return m.handler(next, false)
}

// RequireWithQuery also accepts the token as a `token` query parameter, for
// clients such as browsers opening websockets that cannot set headers.
func (m Middleware) RequireWithQuery(next http.Handler) http.Handler {
	return m.handler(next, true)
}

func (m Middleware) handler(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" && allowQuery {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			deny(w, http.StatusUnauthorized, "missing authorization")
			return
		}
		id, err := m.Verifier.Verify(r.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				deny(w, http.StatusUnauthorized, "invalid token")
				return
			}
			m.Logger.Error("token verification error", "err", err)
			deny(w, http.StatusInternalServerError, "internal error")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
