package services

import (
	"context"
	"log/slog"

	"NovaRamp/internal/auth"
	"NovaRamp/internal/models"
	"NovaRamp/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

type UserService struct {
	Store  store.Repository
	Logger *slog.Logger
}

// EnsureUser returns the user row for the caller, creating it on first use.
func (s UserService) EnsureUser(ctx context.Context, id auth.Identity) (*models.User, error) {
	return s.Store.UpsertUser(ctx, &models.User{
		ID:             uuid.NewString(),
		AuthSubject:    id.Subject,
		PrimaryAddress: checksumOrEmpty(id.WalletAddress),
	})
}

// StartSession records the caller and its wallet. A wallet address is required.
func (s UserService) StartSession(ctx context.Context, id auth.Identity) (*models.User, error) {
	if id.WalletAddress == "" {
		return nil, ErrMissingWallet
	}
	if !common.IsHexAddress(id.WalletAddress) {
		return nil, ErrInvalidAddress
	}
	u, err := s.EnsureUser(ctx, id)
	if err != nil {
		return nil, err
	}
	loggerOr(s.Logger).Info("session started", "user_id", u.ID, "subject", id.Subject)
	return u, nil
}

func checksumOrEmpty(addr string) string {
	if !common.IsHexAddress(addr) {
		return ""
	}
	return common.HexToAddress(addr).Hex()
}
