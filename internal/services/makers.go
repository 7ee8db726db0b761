package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"NovaRamp/internal/ids"
	"NovaRamp/internal/metrics"
	"NovaRamp/internal/models"
	"NovaRamp/internal/providers"
	"NovaRamp/internal/store"
)

type MakerService struct {
	Store           store.Repository
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	DefaultCurrency string
	NewID           ids.Generator
	Now             func() time.Time
}

// PayeeValidation is the outcome of checking a payee id for a provider.
type PayeeValidation struct {
	IsValid      bool     `json:"isValid"`
	Errors       []string `json:"errors"`
	NormalizedID string   `json:"normalizedId"`
	HashedID     string   `json:"hashedId"`
}

type CreateDepositInput struct {
	RawPayeeID     string
	Provider       string
	Currency       string
	MinAmount      float64
	MaxAmount      float64
	ConversionRate float64
	FeePercentage  *float64
}

// ValidatePayee normalizes and hashes rawPayeeID and reports format problems and
// collisions with an active deposit on the same provider.
func (s MakerService) ValidatePayee(ctx context.Context, rawPayeeID, provider string) (PayeeValidation, error) {
	res := PayeeValidation{Errors: []string{}}
	p, ok := providers.Lookup(provider)
	if !ok {
		res.Errors = append(res.Errors, ErrUnsupportedProvider.Error())
		return res, nil
	}

	raw := strings.TrimSpace(rawPayeeID)
	if raw == "" {
		res.Errors = append(res.Errors, "rawPayeeId is required")
		return res, nil
	}
	res.Errors = append(res.Errors, p.Validate(raw)...)
	res.NormalizedID = p.Normalize(raw)
	res.HashedID = providers.HashPayeeID(res.NormalizedID)
	if res.NormalizedID == "" {
		res.Errors = append(res.Errors, "payee id has no usable characters")
	}

	if len(res.Errors) == 0 {
		exists, err := s.Store.ActivePayeeExists(ctx, res.NormalizedID, p.ID)
		if err != nil {
			return PayeeValidation{}, err
		}
		if exists {
			res.Errors = append(res.Errors, ErrDuplicatePayee.Error())
		}
	}
	res.IsValid = len(res.Errors) == 0
	return res, nil
}

func (s MakerService) CreateDeposit(ctx context.Context, user *models.User, in CreateDepositInput) (*models.MakerDeposit, error) {
	p, ok := providers.Lookup(in.Provider)
	if !ok {
		s.Metrics.RecordMakerRegistration("unknown", "unsupported")
		return nil, ErrUnsupportedProvider
	}

	var problems []string
	if in.MinAmount <= 0 {
		problems = append(problems, "minAmount must be greater than 0")
	}
	if in.MaxAmount < in.MinAmount {
		problems = append(problems, "maxAmount must be at least minAmount")
	}
	if in.ConversionRate <= 0 {
		problems = append(problems, "conversionRate must be greater than 0")
	}
	fee := p.DefaultFee
	if in.FeePercentage != nil {
		fee = *in.FeePercentage
	}
	if fee < 0 || fee >= 1 {
		problems = append(problems, "feePercentage must be in [0, 1)")
	}

	check, err := s.ValidatePayee(ctx, in.RawPayeeID, p.ID)
	if err != nil {
		return nil, err
	}
	for _, e := range check.Errors {
		if e == ErrDuplicatePayee.Error() {
			continue
		}
		problems = append(problems, e)
	}
	if len(problems) > 0 {
		s.Metrics.RecordMakerRegistration(p.ID, "invalid")
		return nil, invalid(problems...)
	}
	if !check.IsValid {
		s.Metrics.RecordMakerRegistration(p.ID, "duplicate")
		return nil, ErrDuplicatePayee
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.DefaultCurrency
	}
	now := s.now()
	d := &models.MakerDeposit{
		DepositID:         s.newID("deposit"),
		UserID:            user.ID,
		RawPayeeID:        strings.TrimSpace(in.RawPayeeID),
		NormalizedPayeeID: check.NormalizedID,
		HashedOnchainID:   check.HashedID,
		Provider:          p.ID,
		Currency:          currency,
		MinAmount:         in.MinAmount,
		MaxAmount:         in.MaxAmount,
		ConversionRate:    in.ConversionRate,
		FeePercentage:     fee,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Store.CreateDeposit(ctx, d); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.Metrics.RecordMakerRegistration(p.ID, "duplicate")
			return nil, ErrDuplicatePayee
		}
		return nil, err
	}
	s.Metrics.RecordMakerRegistration(p.ID, "created")
	loggerOr(s.Logger).Info("maker deposit created", "deposit_id", d.DepositID, "user_id", user.ID, "provider", d.Provider)
	return d, nil
}

func (s MakerService) ListDeposits(ctx context.Context, userID string) ([]*models.MakerDeposit, error) {
	return s.Store.ListDeposits(ctx, userID)
}

func (s MakerService) DeactivateDeposit(ctx context.Context, userID, depositID string) error {
	err := s.Store.DeactivateDeposit(ctx, userID, depositID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrDepositNotFound
	}
	if err != nil {
		return err
	}
	loggerOr(s.Logger).Info("maker deposit deactivated", "deposit_id", depositID, "user_id", userID)
	return nil
}

func (s MakerService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s MakerService) newID(prefix string) string {
	if s.NewID != nil {
		return s.NewID(prefix)
	}
	return ids.New(prefix)
}
