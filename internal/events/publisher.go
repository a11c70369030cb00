package events

import (
	"context"
	"errors"
	"time"

	"wexcommerce/internal/domain"
)

// Publisher delivers order events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev domain.OrderEvent) error
}

type Noop struct{}

func (Noop) Publish(context.Context, domain.OrderEvent) error { return nil }

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev domain.OrderEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewOrderEvent builds an event from a stored order.
func NewOrderEvent(t domain.OrderEventType, o *domain.Order, currency string, at time.Time) domain.OrderEvent {
	ev := domain.OrderEvent{
		Type:          t,
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		TotalCents:    o.TotalCents,
		Currency:      currency,
		OccurredAt:    at.UTC(),
	}
	if o.User != nil {
		ev.Email = o.User.Email
		ev.FullName = o.User.FullName
	}
	return ev
}
