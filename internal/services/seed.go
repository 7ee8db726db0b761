package services

import (
	"context"
	"errors"

	"NovaRamp/internal/auth"
)

const seedSubject = "seed:demo-maker"

var demoDeposits = []CreateDepositInput{
	{RawPayeeID: "demo-venmo-maker", Provider: "venmo", Currency: "USD", MinAmount: 10, MaxAmount: 1000, ConversionRate: 0.998, FeePercentage: fee(0.01)},
	{RawPayeeID: "$demomaker", Provider: "cashapp", Currency: "USD", MinAmount: 5, MaxAmount: 500, ConversionRate: 0.997, FeePercentage: fee(0.015)},
}

func fee(v float64) *float64 { return &v }

// SeedDemo registers the demo Venmo and Cash App deposits under a dedicated maker
// account. Deposits that are already active are left alone.
func (s MakerService) SeedDemo(ctx context.Context, users UserService) (int, error) {
	maker, err := users.EnsureUser(ctx, auth.Identity{Subject: seedSubject})
	if err != nil {
		return 0, err
	}
	created := 0
	for _, in := range demoDeposits {
		_, err := s.CreateDeposit(ctx, maker, in)
		if errors.Is(err, ErrDuplicatePayee) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		loggerOr(s.Logger).Info("seeded demo deposits", "count", created)
	}
	return created, nil
}
