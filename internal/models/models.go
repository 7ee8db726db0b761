package models

import (
	"encoding/json"
	"time"
)

type OrderType string

const (
	OrderOnramp  OrderType = "onramp"
	OrderOfframp OrderType = "offramp"
)

func (t OrderType) Valid() bool {
	return t == OrderOnramp || t == OrderOfframp
}

type Order struct {
	OrderID        string          `json:"order_id"`
	UserID         string          `json:"user_id"`
	DepositID      string          `json:"deposit_id"`
	OrderType      OrderType       `json:"order_type"`
	Provider       string          `json:"provider"`
	FiatAmount     float64         `json:"fiat_amount"`
	TokenAmount    float64         `json:"token_amount"`
	ConversionRate float64         `json:"conversion_rate"`
	FiatCurrency   string          `json:"fiat_currency"`
	ChainID        int64           `json:"chain_id"`
	Status         OrderStatus     `json:"status"`
	IntentHash     *string         `json:"intent_hash"`
	ProofBytes     *string         `json:"proof_bytes"`
	TxSignal       *string         `json:"tx_signal"`
	TxFulfill      *string         `json:"tx_fulfill"`
	ErrorMessage   *string         `json:"error_message"`
	Metadata       json.RawMessage `json:"metadata"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OrderPatch is a partial update. Nil fields are left untouched.
// ExpectStatus, when set, makes the write conditional on the stored status.
type OrderPatch struct {
	Status       *OrderStatus
	ExpectStatus *OrderStatus
	IntentHash   *string
	ProofBytes   *string
	TxSignal     *string
	TxFulfill    *string
	ErrorMessage *string
	Metadata     json.RawMessage
}

func (p OrderPatch) Empty() bool {
	return p.Status == nil && p.IntentHash == nil && p.ProofBytes == nil &&
		p.TxSignal == nil && p.TxFulfill == nil && p.ErrorMessage == nil && len(p.Metadata) == 0
}

type MakerDeposit struct {
	DepositID         string    `json:"deposit_id"`
	UserID            string    `json:"user_id"`
	RawPayeeID        string    `json:"raw_payee_id"`
	NormalizedPayeeID string    `json:"normalized_payee_id"`
	HashedOnchainID   string    `json:"hashed_onchain_id"`
	Provider          string    `json:"provider"`
	Currency          string    `json:"currency"`
	MinAmount         float64   `json:"min_amount"`
	MaxAmount         float64   `json:"max_amount"`
	ConversionRate    float64   `json:"conversion_rate"`
	FeePercentage     float64   `json:"fee_percentage"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DepositQuery selects active deposits eligible for a quote.
type DepositQuery struct {
	Amount   float64
	Currency string
	Provider string
}

type User struct {
	ID             string    `json:"id"`
	AuthSubject    string    `json:"auth_subject"`
	PrimaryAddress string    `json:"primary_address"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
