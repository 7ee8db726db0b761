package models

type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"
	OrderPaying    OrderStatus = "paying"
	OrderAuth      OrderStatus = "auth"
	OrderProving   OrderStatus = "proving"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderFailed    OrderStatus = "failed"
	OrderExpired   OrderStatus = "expired"
)

// pipeline is the success path in order.
var pipeline = []OrderStatus{OrderCreated, OrderPaying, OrderAuth, OrderProving, OrderFulfilled}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderFailed, OrderExpired:
		return true
	}
	return s.step() >= 0
}

// Terminal reports whether no further status change is accepted.
func (s OrderStatus) Terminal() bool {
	return s == OrderFulfilled || s == OrderFailed || s == OrderExpired
}

func (s OrderStatus) step() int {
	for i, p := range pipeline {
		if p == s {
			return i
		}
	}
	return -1
}

// CanTransition reports whether an order in status s may move to next.
// Re-applying the current status is always allowed so other fields can be patched.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}
	if next == OrderFailed || next == OrderExpired {
		return true
	}
	return next.step() > s.step()
}

// OpenStatuses are the statuses the expiry sweep may move to expired.
func OpenStatuses() []OrderStatus {
	return []OrderStatus{OrderCreated, OrderPaying, OrderAuth, OrderProving}
}
