package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"NovaRamp/internal/auth"
	"NovaRamp/internal/chain"
	"NovaRamp/internal/events"
	"NovaRamp/internal/models"
	"NovaRamp/internal/services"
	"NovaRamp/internal/zktls"
)

const maxBodyBytes = 1 << 20

// Extensions hands out the zkTLS extension acting for one user.
type Extensions interface {
	For(owner string) zktls.Extension
}

type Handler struct {
	Users      services.UserService
	Quotes     services.QuoteService
	Orders     services.OrderService
	Makers     services.MakerService
	Verifier   auth.Verifier
	Hub        *events.Hub
	Extensions Extensions
	Chains     *chain.Checker
	Logger     *slog.Logger
}

// currentUser resolves the authenticated caller to its user row.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	u, err := h.Users.EnsureUser(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "ensure user failed", err)
		return nil, false
	}
	return u, true
}

// respondError maps service errors to HTTP statuses.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "errors": verr.Errors})
	case errors.Is(err, services.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Invalid fiat amount")
	case errors.Is(err, services.ErrInvalidOrderType),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrUnsupportedProvider),
		errors.Is(err, services.ErrAmountOutOfBounds),
		errors.Is(err, services.ErrInvalidAddress),
		errors.Is(err, services.ErrMissingWallet):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, services.ErrDepositNotFound):
		writeError(w, http.StatusNotFound, "Deposit not found")
	case errors.Is(err, services.ErrDuplicatePayee),
		errors.Is(err, services.ErrDepositInactive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid status transition")
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, zktls.ErrNotInstalled), errors.Is(err, zktls.ErrNotConnected):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, zktls.ErrInvalidSession),
		errors.Is(err, zktls.ErrMetadataPending),
		errors.Is(err, zktls.ErrProofNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.internalError(w, r, op, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.Logger.Error(op, "method", r.Method, "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// decode reads a JSON body. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, "invalid json body")
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
