package pricing

import (
	"errors"
	"sort"
	"strings"

	"NovaRamp/internal/models"
	"NovaRamp/internal/providers"

	"github.com/shopspring/decimal"
)

const DefaultProtocolFeeRate = 0.001

var ErrInvalidAmount = errors.New("invalid fiat amount")

type Service struct {
	ProtocolFeeRate decimal.Decimal
}

func NewService(protocolFeeRate float64) Service {
	return Service{ProtocolFeeRate: decimal.NewFromFloat(protocolFeeRate)}
}

type Request struct {
	FiatAmount float64
	Currency   string
	Provider   string
	OrderType  models.OrderType
}

type Fees struct {
	Protocol float64 `json:"protocol"`
	Maker    float64 `json:"maker"`
	Total    float64 `json:"total"`
}

type Quote struct {
	DepositID      string  `json:"depositId"`
	Verifier       string  `json:"verifier"`
	Provider       string  `json:"provider"`
	FiatAmount     float64 `json:"fiatAmount"`
	TokenAmount    float64 `json:"tokenAmount"`
	ConversionRate float64 `json:"conversionRate"`
	ProtocolFee    float64 `json:"protocolFee"`
	MakerFee       float64 `json:"makerFee"`
	NetAmount      float64 `json:"netAmount"`
	ETA            string  `json:"eta"`
	Fees           Fees    `json:"fees"`

	net decimal.Decimal
}

// Eligible reports whether d can serve the request.
func Eligible(d models.MakerDeposit, req Request) bool {
	if !d.IsActive {
		return false
	}
	if !strings.EqualFold(d.Currency, req.Currency) {
		return false
	}
	if req.Provider != "" && d.Provider != req.Provider {
		return false
	}
	return d.MinAmount <= req.FiatAmount && req.FiatAmount <= d.MaxAmount
}

// Compute prices every eligible deposit and returns the quotes best net amount first.
// Equal net amounts are ordered by higher conversion rate, then deposit id.
func (s Service) Compute(req Request, deposits []models.MakerDeposit) ([]Quote, error) {
	if req.FiatAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	fiat := decimal.NewFromFloat(req.FiatAmount)

	quotes := make([]Quote, 0, len(deposits))
	for _, d := range deposits {
		if !Eligible(d, req) {
			continue
		}
		rate := decimal.NewFromFloat(d.ConversionRate)
		token := fiat.Mul(rate)
		protocolFee := token.Mul(s.ProtocolFeeRate)
		makerFee := token.Mul(decimal.NewFromFloat(d.FeePercentage))
		net := token.Sub(protocolFee).Sub(makerFee)

		verifier := d.Provider + "Verifier"
		eta := "5-10 minutes"
		if p, ok := providers.Lookup(d.Provider); ok {
			verifier = p.Verifier
			eta = p.ETA
		}

		quotes = append(quotes, Quote{
			DepositID:      d.DepositID,
			Verifier:       verifier,
			Provider:       d.Provider,
			FiatAmount:     req.FiatAmount,
			TokenAmount:    token.InexactFloat64(),
			ConversionRate: d.ConversionRate,
			ProtocolFee:    protocolFee.InexactFloat64(),
			MakerFee:       makerFee.InexactFloat64(),
			NetAmount:      net.InexactFloat64(),
			ETA:            eta,
			Fees: Fees{
				Protocol: protocolFee.InexactFloat64(),
				Maker:    makerFee.InexactFloat64(),
				Total:    protocolFee.Add(makerFee).InexactFloat64(),
			},
			net: net,
		})
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		if c := quotes[i].net.Cmp(quotes[j].net); c != 0 {
			return c > 0
		}
		if quotes[i].ConversionRate != quotes[j].ConversionRate {
			return quotes[i].ConversionRate > quotes[j].ConversionRate
		}
		return quotes[i].DepositID < quotes[j].DepositID
	})
	return quotes, nil
}
