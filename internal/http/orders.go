package http

import (
	"encoding/json"
	"net/http"
	"time"

	"NovaRamp/internal/models"
	"NovaRamp/internal/services"
)

type createOrderRequest struct {
	DepositID        string  `json:"depositId"`
	OrderType        string  `json:"orderType"`
	Provider         string  `json:"provider"`
	FiatAmount       float64 `json:"fiatAmount"`
	TokenAmount      float64 `json:"tokenAmount"`
	ConversionRate   float64 `json:"conversionRate"`
	RecipientAddress string  `json:"recipientAddress"`
}

type createdOrder struct {
	OrderID     string             `json:"orderId"`
	Status      models.OrderStatus `json:"status"`
	FiatAmount  float64            `json:"fiatAmount"`
	TokenAmount float64            `json:"tokenAmount"`
	Provider    string             `json:"provider"`
	CreatedAt   string             `json:"createdAt"`
}

type updateOrderRequest struct {
	OrderID      string          `json:"orderId"`
	Status       string          `json:"status"`
	IntentHash   string          `json:"intentHash"`
	ProofBytes   string          `json:"proofBytes"`
	TxHash       string          `json:"txHash"`
	ErrorMessage string          `json:"errorMessage"`
	Metadata     json.RawMessage `json:"metadata"`
}

type updatedOrder struct {
	OrderID    string             `json:"orderId"`
	Status     models.OrderStatus `json:"status"`
	IntentHash *string            `json:"intentHash"`
	TxHash     *string            `json:"txHash"`
	UpdatedAt  string             `json:"updatedAt"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decode(w, r, &req) {
		return
	}
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	order, err := h.Orders.CreateOrder(r.Context(), user, services.CreateOrderInput{
		DepositID:        req.DepositID,
		OrderType:        models.OrderType(req.OrderType),
		Provider:         req.Provider,
		FiatAmount:       req.FiatAmount,
		TokenAmount:      req.TokenAmount,
		ConversionRate:   req.ConversionRate,
		RecipientAddress: req.RecipientAddress,
	})
	if err != nil {
		h.respondError(w, r, "create order failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order": createdOrder{
			OrderID:     order.OrderID,
			Status:      order.Status,
			FiatAmount:  order.FiatAmount,
			TokenAmount: order.TokenAmount,
			Provider:    order.Provider,
			CreatedAt:   order.CreatedAt.Format(time.RFC3339Nano),
		},
	})
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if !decode(w, r, &req) {
		return
	}
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	order, err := h.Orders.UpdateOrder(r.Context(), user.ID, services.UpdateOrderInput{
		OrderID:      req.OrderID,
		Status:       models.OrderStatus(req.Status),
		IntentHash:   req.IntentHash,
		ProofBytes:   req.ProofBytes,
		TxHash:       req.TxHash,
		ErrorMessage: req.ErrorMessage,
		Metadata:     req.Metadata,
	})
	if err != nil {
		h.respondError(w, r, "update order failed", err)
		return
	}

	txHash := order.TxSignal
	if order.Status == models.OrderFulfilled && order.TxFulfill != nil {
		txHash = order.TxFulfill
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order": updatedOrder{
			OrderID:    order.OrderID,
			Status:     order.Status,
			IntentHash: order.IntentHash,
			TxHash:     txHash,
			UpdatedAt:  order.UpdatedAt.Format(time.RFC3339Nano),
		},
	})
}

// GetOrders returns one order when orderId is given, otherwise the caller's list.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if orderID := r.URL.Query().Get("orderId"); orderID != "" {
		order, err := h.Orders.GetOrder(r.Context(), user.ID, orderID)
		if err != nil {
			h.respondError(w, r, "get order failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"order": order})
		return
	}

	orders, err := h.Orders.ListOrders(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, "list orders failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// StreamOrders upgrades to a websocket carrying the caller's order events.
func (h *Handler) StreamOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	h.Hub.Serve(w, r, user.ID)
}
