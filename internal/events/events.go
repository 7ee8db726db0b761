package events

import (
	"context"
	"errors"
	"time"

	"NovaRamp/internal/models"
)

const (
	OrderCreated = "order.created"
	OrderUpdated = "order.updated"
	OrderExpired = "order.expired"
)

// OrderEvent describes one change to an order. From is empty for creations.
type OrderEvent struct {
	Type    string             `json:"type"`
	OrderID string             `json:"orderId"`
	UserID  string             `json:"userId"`
	From    models.OrderStatus `json:"from,omitempty"`
	To      models.OrderStatus `json:"to"`
	Order   *models.Order      `json:"order"`
	At      time.Time          `json:"at"`
}

func NewOrderEvent(typ string, from models.OrderStatus, o *models.Order) OrderEvent {
	return OrderEvent{
		Type:    typ,
		OrderID: o.OrderID,
		UserID:  o.UserID,
		From:    from,
		To:      o.Status,
		Order:   o,
		At:      time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }

// Multi delivers to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev OrderEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
