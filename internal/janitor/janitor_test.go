package janitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wexcommerce/internal/db/dbtest"
	"wexcommerce/internal/domain"
	"wexcommerce/internal/repository/notification"
	orderrepo "wexcommerce/internal/repository/order"
	"wexcommerce/internal/repository/user"
)

type stubSweeper struct {
	n     int64
	err   error
	calls int32
	last  time.Time
	trace *[]string
	name  string
}

func (s *stubSweeper) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	atomic.AddInt32(&s.calls, 1)
	s.last = now
	if s.trace != nil {
		*s.trace = append(*s.trace, s.name)
	}
	return s.n, s.err
}

type stubCounters struct{ calls int }

func (s *stubCounters) ReconcileCounters(context.Context) (int64, error) {
	s.calls++
	return 0, nil
}

func TestSweep_RunsSweepersInOrder(t *testing.T) {
	var trace []string
	orders := &stubSweeper{n: 2, trace: &trace, name: "orders"}
	users := &stubSweeper{err: errors.New("boom"), trace: &trace, name: "users"}
	counters := &stubCounters{}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	j := New(time.Minute, counters, nil).Register("orders", orders).Register("users", users)
	j.now = func() time.Time { return now }

	got := j.Sweep(context.Background())
	assert.Equal(t, map[string]int64{"orders": 2}, got)
	assert.Equal(t, []string{"orders", "users"}, trace)
	assert.Equal(t, now, orders.last)
	assert.Equal(t, 1, counters.calls)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := &stubSweeper{}
	j := New(10*time.Millisecond, nil, nil).Register("orders", s)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&s.calls) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestSweep_RemovesExpiredPendingOrders(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	fx := dbtest.Seed(t, pool)
	mug := dbtest.Product(t, pool, "Mug", 1000, 5)
	orders := orderrepo.NewPostgres(pool, nil)

	past := time.Now().Add(-time.Minute)
	created, err := orders.Create(ctx, orderrepo.CreateInput{
		Order: domain.Order{
			DeliveryTypeID: fx.ShippingID,
			PaymentTypeID:  fx.StripeID,
			TotalCents:     1000,
			Status:         domain.OrderPending,
			ExpireAt:       &past,
			Items:          []domain.OrderItem{{ProductID: mug, ProductName: "Mug", PriceCents: 1000, Quantity: 1}},
		},
		Guest: &domain.User{Email: "guest@example.com", FullName: "Guest", Type: domain.UserTypeUser, ExpireAt: &past},
	})
	require.NoError(t, err)

	j := New(time.Minute, notification.NewPostgres(pool, nil), nil).
		Register("orders", orders).
		Register("users", user.NewPostgres(pool, nil))
	got := j.Sweep(ctx)

	assert.EqualValues(t, 1, got["orders"])
	assert.EqualValues(t, 1, got["users"])
	_, err = orders.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
