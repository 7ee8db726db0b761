package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NovaRamp/internal/events"
	"NovaRamp/internal/ids"
	"NovaRamp/internal/metrics"
	"NovaRamp/internal/models"
	"NovaRamp/internal/providers"
	"NovaRamp/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type OrderService struct {
	Store           store.Repository
	Events          events.Publisher
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	DefaultChainID  int64
	DefaultCurrency string
	TTL             time.Duration
	NewID           ids.Generator
	Now             func() time.Time
}

type CreateOrderInput struct {
	DepositID        string
	OrderType        models.OrderType
	Provider         string
	FiatAmount       float64
	TokenAmount      float64
	ConversionRate   float64
	RecipientAddress string
}

// UpdateOrderInput is a partial update. Empty strings mean "not supplied".
type UpdateOrderInput struct {
	OrderID      string
	Status       models.OrderStatus
	IntentHash   string
	ProofBytes   string
	TxHash       string
	ErrorMessage string
	Metadata     json.RawMessage
}

func (s OrderService) CreateOrder(ctx context.Context, user *models.User, in CreateOrderInput) (*models.Order, error) {
	var problems []string
	if in.DepositID == "" {
		problems = append(problems, "depositId is required")
	}
	if in.OrderType == "" {
		in.OrderType = models.OrderOnramp
	}
	if !in.OrderType.Valid() {
		problems = append(problems, "orderType must be onramp or offramp")
	}
	p, ok := providers.Lookup(in.Provider)
	if !ok {
		problems = append(problems, "unsupported provider")
	}
	if in.FiatAmount <= 0 {
		problems = append(problems, "fiatAmount must be greater than 0")
	}
	if in.TokenAmount <= 0 {
		problems = append(problems, "tokenAmount must be greater than 0")
	}
	if in.ConversionRate <= 0 {
		problems = append(problems, "conversionRate must be greater than 0")
	}
	recipient := strings.TrimSpace(in.RecipientAddress)
	if recipient == "" {
		recipient = user.PrimaryAddress
	}
	if recipient != "" && !common.IsHexAddress(recipient) {
		problems = append(problems, "recipientAddress is not a valid address")
	}
	if len(problems) > 0 {
		return nil, invalid(problems...)
	}

	deposit, err := s.Store.GetDeposit(ctx, in.DepositID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrDepositNotFound
	}
	if err != nil {
		return nil, err
	}
	if !deposit.IsActive {
		return nil, ErrDepositInactive
	}
	if deposit.Provider != p.ID {
		return nil, invalid(fmt.Sprintf("deposit %s is not a %s deposit", deposit.DepositID, p.Name))
	}
	if in.FiatAmount < deposit.MinAmount || in.FiatAmount > deposit.MaxAmount {
		return nil, ErrAmountOutOfBounds
	}

	now := s.now()
	meta := map[string]any{"createdAt": now.Format(time.RFC3339Nano)}
	if recipient != "" {
		meta["recipientAddress"] = common.HexToAddress(recipient).Hex()
	} else {
		meta["recipientAddress"] = nil
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}

	currency := deposit.Currency
	if currency == "" {
		currency = s.DefaultCurrency
	}
	order := &models.Order{
		OrderID:        s.newID("inova_" + string(in.OrderType)),
		UserID:         user.ID,
		DepositID:      deposit.DepositID,
		OrderType:      in.OrderType,
		Provider:       p.ID,
		FiatAmount:     in.FiatAmount,
		TokenAmount:    in.TokenAmount,
		ConversionRate: in.ConversionRate,
		FiatCurrency:   currency,
		ChainID:        s.DefaultChainID,
		Status:         models.OrderCreated,
		Metadata:       metaJSON,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.Metrics.RecordOrderCreated(string(order.OrderType), order.Provider)
	s.logger().Info("order created", "order_id", order.OrderID, "user_id", user.ID, "provider", order.Provider, "fiat_amount", order.FiatAmount)
	s.publish(ctx, events.NewOrderEvent(events.OrderCreated, "", order))
	return order, nil
}

func (s OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	o, err := s.Store.GetOrder(ctx, userID, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

func (s OrderService) ListOrders(ctx context.Context, userID string) ([]*models.Order, error) {
	return s.Store.ListOrders(ctx, userID)
}

// UpdateOrder applies a partial patch. Status changes must move forward along the
// pipeline; failed and expired are reachable from any non terminal status.
func (s OrderService) UpdateOrder(ctx context.Context, userID string, in UpdateOrderInput) (*models.Order, error) {
	if in.OrderID == "" {
		return nil, invalid("orderId is required")
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if in.IntentHash != "" {
		if b, err := hexutil.Decode(in.IntentHash); err != nil || len(b) != 32 {
			return nil, invalid("intentHash must be 32 bytes of 0x-prefixed hex")
		}
	}
	meta := bytes.TrimSpace(in.Metadata)
	if bytes.Equal(meta, []byte("null")) {
		meta = nil
	}
	if len(meta) > 0 {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(meta, &obj); err != nil {
			return nil, invalid("metadata must be a JSON object")
		}
	}

	current, err := s.GetOrder(ctx, userID, in.OrderID)
	if err != nil {
		return nil, err
	}
	next := current.Status
	if in.Status != "" {
		next = in.Status
	}
	if !current.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, next)
	}

	patch := models.OrderPatch{
		IntentHash:   optional(in.IntentHash),
		ProofBytes:   optional(in.ProofBytes),
		ErrorMessage: optional(in.ErrorMessage),
		Metadata:     json.RawMessage(meta),
	}
	if in.Status != "" {
		patch.Status = &next
		patch.ExpectStatus = &current.Status
	}
	if in.TxHash != "" {
		if next == models.OrderFulfilled {
			patch.TxFulfill = &in.TxHash
		} else {
			patch.TxSignal = &in.TxHash
		}
	}
	if patch.Empty() {
		return current, nil
	}

	updated, err := s.Store.UpdateOrder(ctx, userID, in.OrderID, patch)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if errors.Is(err, store.ErrStatusChanged) {
		return nil, fmt.Errorf("%w: %s is no longer %s", ErrInvalidTransition, in.OrderID, current.Status)
	}
	if err != nil {
		return nil, err
	}

	if current.Status != updated.Status {
		s.Metrics.RecordTransition(string(current.Status), string(updated.Status))
		s.logger().Info("order status changed", "order_id", updated.OrderID, "from", current.Status, "to", updated.Status)
	}
	s.publish(ctx, events.NewOrderEvent(events.OrderUpdated, current.Status, updated))
	return updated, nil
}

// ExpireStale moves open orders older than the TTL to expired. A zero TTL disables it.
func (s OrderService) ExpireStale(ctx context.Context) (int, error) {
	if s.TTL <= 0 {
		return 0, nil
	}
	expired, err := s.Store.MarkExpired(ctx, s.now().Add(-s.TTL))
	if err != nil {
		return 0, err
	}
	for _, e := range expired {
		s.Metrics.RecordTransition(string(e.From), string(e.Order.Status))
		s.publish(ctx, events.NewOrderEvent(events.OrderExpired, e.From, e.Order))
	}
	if len(expired) > 0 {
		s.logger().Info("expired stale orders", "count", len(expired), "ttl", s.TTL)
	}
	return len(expired), nil
}

func (s OrderService) publish(ctx context.Context, ev events.OrderEvent) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.logger().Warn("publish order event failed", "order_id", ev.OrderID, "type", ev.Type, "err", err)
	}
}

func (s OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s OrderService) newID(prefix string) string {
	if s.NewID != nil {
		return s.NewID(prefix)
	}
	return ids.New(prefix)
}

func (s OrderService) logger() *slog.Logger {
	return loggerOr(s.Logger)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
