package services

import (
	"errors"
	"log/slog"
	"strings"

	"NovaRamp/internal/pricing"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidAmount       = pricing.ErrInvalidAmount
	ErrInvalidOrderType    = errors.New("invalid order type")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrDuplicatePayee      = errors.New("This payee ID is already registered")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrDepositNotFound     = errors.New("deposit not found")
	ErrDepositInactive     = errors.New("deposit is not active")
	ErrAmountOutOfBounds   = errors.New("fiat amount outside deposit limits")
	ErrInvalidAddress      = errors.New("invalid wallet address")
	ErrMissingWallet       = errors.New("No wallet address found")
)

// ValidationError carries field level problems with a request.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

func invalid(msgs ...string) error {
	return &ValidationError{Errors: msgs}
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
