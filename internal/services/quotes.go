package services

import (
	"context"
	"strings"

	"NovaRamp/internal/metrics"
	"NovaRamp/internal/models"
	"NovaRamp/internal/pricing"
	"NovaRamp/internal/providers"
	"NovaRamp/internal/store"
)

type QuoteService struct {
	Store           store.Repository
	Pricing         pricing.Service
	Metrics         *metrics.Metrics
	DefaultCurrency string
}

// Quotes prices every active deposit that can serve req, best net amount first.
// An unknown provider matches nothing.
func (s QuoteService) Quotes(ctx context.Context, req pricing.Request) ([]pricing.Quote, error) {
	if req.FiatAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.OrderType == "" {
		req.OrderType = models.OrderOnramp
	}
	if !req.OrderType.Valid() {
		return nil, ErrInvalidOrderType
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = s.DefaultCurrency
	}
	if req.Provider != "" {
		p, ok := providers.Lookup(req.Provider)
		if !ok {
			s.Metrics.RecordQuotes(req.Currency, "unknown", 0)
			return []pricing.Quote{}, nil
		}
		req.Provider = p.ID
	}

	rows, err := s.Store.FindEligibleDeposits(ctx, models.DepositQuery{
		Amount:   req.FiatAmount,
		Currency: req.Currency,
		Provider: req.Provider,
	})
	if err != nil {
		return nil, err
	}
	deposits := make([]models.MakerDeposit, 0, len(rows))
	for _, d := range rows {
		deposits = append(deposits, *d)
	}

	quotes, err := s.Pricing.Compute(req, deposits)
	if err != nil {
		return nil, err
	}
	s.Metrics.RecordQuotes(req.Currency, req.Provider, len(quotes))
	return quotes, nil
}
