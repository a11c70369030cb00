package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	legal := [][2]OrderStatus{
		{OrderPending, OrderPaid},
		{OrderPending, OrderCancelled},
		{OrderPaid, OrderConfirmed},
		{OrderPaid, OrderCancelled},
		{OrderConfirmed, OrderInProgress},
		{OrderConfirmed, OrderCancelled},
		{OrderInProgress, OrderShipped},
		{OrderInProgress, OrderCancelled},
	}
	for _, tr := range legal {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	illegal := [][2]OrderStatus{
		{OrderPending, OrderConfirmed},
		{OrderPending, OrderShipped},
		{OrderShipped, OrderPending},
		{OrderShipped, OrderCancelled},
		{OrderCancelled, OrderPending},
		{OrderConfirmed, OrderPaid},
		{OrderInProgress, OrderConfirmed},
	}
	for _, tr := range illegal {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestOrderStatus_Notifies(t *testing.T) {
	assert.True(t, OrderPaid.Notifies())
	assert.True(t, OrderShipped.Notifies())
	assert.False(t, OrderPending.Notifies())
	assert.False(t, OrderCancelled.Notifies())
}

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus("inProgress")
	require.NoError(t, err)
	assert.Equal(t, OrderInProgress, st)

	_, err = ParseOrderStatus("lost")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "status", ve.Field)
}

func TestItemsTotal(t *testing.T) {
	items := []OrderItem{{PriceCents: 1000, Quantity: 2}, {PriceCents: 250, Quantity: 3}}
	assert.Equal(t, int64(2750), ItemsTotal(items))
}

func TestDeliveryType_Fee(t *testing.T) {
	assert.Equal(t, int64(500), DeliveryType{Name: DeliveryShipping, PriceCents: 500}.Fee())
	assert.Equal(t, int64(0), DeliveryType{Name: DeliveryWithdrawal, PriceCents: 500}.Fee())
}

func TestPaymentError_Unwrap(t *testing.T) {
	inner := errors.New("card declined")
	err := error(&PaymentError{Provider: PaymentStripe, Op: "confirm", Err: inner})
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "Stripe confirm")
}
