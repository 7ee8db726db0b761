package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderCreated, OrderPaying, true},
		{OrderCreated, OrderProving, true},
		{OrderPaying, OrderAuth, true},
		{OrderProving, OrderFulfilled, true},
		{OrderAuth, OrderAuth, true},
		{OrderAuth, OrderPaying, false},
		{OrderProving, OrderCreated, false},
		{OrderCreated, OrderFailed, true},
		{OrderProving, OrderExpired, true},
		{OrderFulfilled, OrderFulfilled, true},
		{OrderFulfilled, OrderCreated, false},
		{OrderFulfilled, OrderFailed, false},
		{OrderFailed, OrderCreated, false},
		{OrderFailed, OrderExpired, false},
		{OrderExpired, OrderProving, false},
		{OrderCreated, OrderStatus("cancelled"), false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, OrderFulfilled.Terminal())
	assert.True(t, OrderFailed.Terminal())
	assert.True(t, OrderExpired.Terminal())
	for _, s := range OpenStatuses() {
		assert.False(t, s.Terminal(), s)
	}
}

func TestOrderTypeValid(t *testing.T) {
	assert.True(t, OrderOnramp.Valid())
	assert.True(t, OrderOfframp.Valid())
	assert.False(t, OrderType("swap").Valid())
}
