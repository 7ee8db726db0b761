package store

import (
	"context"
	"errors"
	"time"

	"NovaRamp/internal/models"

	"github.com/jackc/pgx/v5"
)

const orderColumns = `order_id, user_id, deposit_id, order_type, provider,
	fiat_amount, token_amount, conversion_rate, fiat_currency, chain_id, status,
	intent_hash, proof_bytes, tx_signal, tx_fulfill, error_message, metadata,
	created_at, updated_at`

func scanOrder(row scanner, extra ...any) (*models.Order, error) {
	var o models.Order
	dest := append(extra,
		&o.OrderID,
		&o.UserID,
		&o.DepositID,
		&o.OrderType,
		&o.Provider,
		&o.FiatAmount,
		&o.TokenAmount,
		&o.ConversionRate,
		&o.FiatCurrency,
		&o.ChainID,
		&o.Status,
		&o.IntentHash,
		&o.ProofBytes,
		&o.TxSignal,
		&o.TxFulfill,
		&o.ErrorMessage,
		&o.Metadata,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	metadata := order.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	_, err := s.DB.Exec(ctx, `
		INSERT INTO orders (
			order_id, user_id, deposit_id, order_type, provider,
			fiat_amount, token_amount, conversion_rate, fiat_currency, chain_id,
			status, metadata, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		order.OrderID,
		order.UserID,
		order.DepositID,
		order.OrderType,
		order.Provider,
		order.FiatAmount,
		order.TokenAmount,
		order.ConversionRate,
		order.FiatCurrency,
		order.ChainID,
		order.Status,
		metadata,
		order.CreatedAt,
		order.UpdatedAt,
	)
	return err
}

func (s *Store) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE order_id=$1 AND user_id=$2
	`, orderID, userID)
	o, err := scanOrder(row)
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, userID string) ([]*models.Order, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateOrder writes only the non-nil fields of patch. Metadata is merged
// into the stored object key by key. With ExpectStatus set, nothing is
// written unless the stored status still equals it.
func (s *Store) UpdateOrder(ctx context.Context, userID, orderID string, patch models.OrderPatch) (*models.Order, error) {
	var metadata []byte
	if len(patch.Metadata) > 0 {
		metadata = patch.Metadata
	}
	row := s.DB.QueryRow(ctx, `
		UPDATE orders SET
			status = COALESCE($3, status),
			intent_hash = COALESCE($4, intent_hash),
			proof_bytes = COALESCE($5, proof_bytes),
			tx_signal = COALESCE($6, tx_signal),
			tx_fulfill = COALESCE($7, tx_fulfill),
			error_message = COALESCE($8, error_message),
			metadata = metadata || COALESCE($9::jsonb, '{}'::jsonb),
			updated_at = now()
		WHERE order_id=$1 AND user_id=$2 AND ($10::text IS NULL OR status = $10)
		RETURNING `+orderColumns,
		orderID,
		userID,
		patch.Status,
		patch.IntentHash,
		patch.ProofBytes,
		patch.TxSignal,
		patch.TxFulfill,
		patch.ErrorMessage,
		metadata,
		patch.ExpectStatus,
	)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) && patch.ExpectStatus != nil {
		return nil, s.guardMiss(ctx, userID, orderID)
	}
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

// guardMiss tells a missing order apart from one whose status moved.
func (s *Store) guardMiss(ctx context.Context, userID, orderID string) error {
	var status models.OrderStatus
	err := s.DB.QueryRow(ctx, `SELECT status FROM orders WHERE order_id=$1 AND user_id=$2`, orderID, userID).Scan(&status)
	if err != nil {
		return notFound(err)
	}
	return ErrStatusChanged
}

// MarkExpired moves every open order created before cutoff to expired.
func (s *Store) MarkExpired(ctx context.Context, cutoff time.Time) ([]ExpiredOrder, error) {
	rows, err := s.DB.Query(ctx, `
		WITH prev AS (
			SELECT order_id, status FROM orders
			WHERE status IN ('created','paying','auth','proving') AND created_at < $1
			FOR UPDATE
		)
		UPDATE orders o SET status='expired', updated_at=now()
		FROM prev WHERE o.order_id = prev.order_id
		RETURNING prev.status, `+prefixed("o.", orderColumns),
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []ExpiredOrder
	for rows.Next() {
		var from models.OrderStatus
		o, err := scanOrder(rows, &from)
		if err != nil {
			return nil, err
		}
		expired = append(expired, ExpiredOrder{From: from, Order: o})
	}
	return expired, rows.Err()
}
