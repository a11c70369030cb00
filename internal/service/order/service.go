package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"wexcommerce/internal/domain"
	"wexcommerce/internal/events"
	orderrepo "wexcommerce/internal/repository/order"
	"wexcommerce/internal/service/payment"
)

const maxPageSize = 100

type gatewayLookup interface {
	For(method domain.PaymentMethod) (payment.Gateway, error)
}

type settingReader interface {
	Get(ctx context.Context) (*domain.Setting, error)
}

type webhookParser interface {
	ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

type Deps struct {
	Orders   orderrepo.Repository
	Gateways gatewayLookup
	Settings settingReader
	// Webhooks verifies Stripe webhook payloads; nil disables the endpoint.
	Webhooks webhookParser
	Events   events.Publisher
	Logger   *log.Logger
}

// Service drives order status changes for merchants and payment callbacks.
type Service struct {
	deps Deps
	now  func() time.Time
}

func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}
	return &Service{deps: deps, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	if !domain.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	return s.deps.Orders.GetByID(ctx, id)
}

// List pages through orders. Non-admin callers only ever see their own.
func (s *Service) List(ctx context.Context, callerID string, isAdmin bool, page, size int, f domain.OrderFilter) (*domain.OrderPage, error) {
	if page < 1 {
		return nil, domain.Invalid("page", "must be >= 1")
	}
	if size < 1 || size > maxPageSize {
		return nil, domain.Invalid("size", "must be between 1 and 100")
	}
	for _, st := range f.Statuses {
		if _, err := domain.ParseOrderStatus(string(st)); err != nil {
			return nil, err
		}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, domain.Invalid("to", "must not be before from")
	}
	f.UserID = ""
	if !isAdmin {
		f.UserID = callerID
	}
	return s.deps.Orders.List(ctx, f, page, size)
}

// UpdateStatus applies a merchant status change. Paid can only be reached
// through payment confirmation.
func (s *Service) UpdateStatus(ctx context.Context, id string, to domain.OrderStatus) (*domain.Order, error) {
	if _, err := domain.ParseOrderStatus(string(to)); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == to {
		return current, nil
	}
	if to == domain.OrderPaid || !domain.CanTransition(current.Status, to) {
		return nil, &domain.InvalidTransitionError{From: current.Status, To: to}
	}

	in := orderrepo.TransitionInput{
		OrderID:     id,
		From:        current.Status,
		To:          to,
		ClearExpiry: current.Status == domain.OrderPending,
	}
	if to == domain.OrderCancelled && current.Status.StockDecremented() {
		in.Stock = orderrepo.StockRestore
	}
	if to.Notifies() {
		in.Notification = statusMessage(to)
	}

	updated, err := s.deps.Orders.Transition(ctx, in)
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Printf("order service: status order_id=%s from=%s to=%s", id, current.Status, to)
	s.publish(ctx, domain.EventOrderStatusChanged, updated)
	return updated, nil
}

// ConfirmPayment checks a gateway reference and marks the matching pending
// order paid. Confirming an order that already left Pending is a no-op.
func (s *Service) ConfirmPayment(ctx context.Context, kind orderrepo.RefKind, ref string) (*domain.Order, error) {
	if ref == "" {
		return nil, domain.Invalid("ref", "is required")
	}
	o, err := s.deps.Orders.GetByPaymentRef(ctx, kind, ref)
	if err != nil {
		return nil, err
	}
	return s.confirm(ctx, o, ref)
}

// ConfirmPayPal confirms a PayPal order, checking it belongs to orderID.
func (s *Service) ConfirmPayPal(ctx context.Context, orderID, paypalOrderID string) (*domain.Order, error) {
	if paypalOrderID == "" {
		return nil, domain.Invalid("paypalOrderId", "is required")
	}
	o, err := s.deps.Orders.GetByPaymentRef(ctx, orderrepo.RefPayPalOrder, paypalOrderID)
	if err != nil {
		return nil, err
	}
	if o.ID != orderID {
		return nil, domain.ErrNotFound
	}
	return s.confirm(ctx, o, paypalOrderID)
}

func (s *Service) confirm(ctx context.Context, o *domain.Order, ref string) (*domain.Order, error) {
	if o.Status != domain.OrderPending {
		return o, nil
	}
	gw, err := s.deps.Gateways.For(o.PaymentMethod)
	if err != nil {
		return nil, err
	}
	outcome, err := gw.Confirm(ctx, ref)
	if err != nil {
		s.deps.Logger.Printf("order service: confirm order_id=%s ref=%s error=%v", o.ID, ref, err)
		return nil, err
	}

	switch outcome {
	case payment.OutcomePaid:
		paid, err := s.deps.Orders.Transition(ctx, orderrepo.TransitionInput{
			OrderID:      o.ID,
			From:         domain.OrderPending,
			To:           domain.OrderPaid,
			Stock:        orderrepo.StockDecrement,
			Notification: statusMessage(domain.OrderPaid),
			ClearExpiry:  true,
			ClearCart:    true,
		})
		var transErr *domain.InvalidTransitionError
		if errors.As(err, &transErr) && transErr.From != domain.OrderPending {
			// Another confirmation won the race.
			return s.deps.Orders.GetByID(ctx, o.ID)
		}
		if err != nil {
			return nil, err
		}
		s.deps.Logger.Printf("order service: paid order_id=%s method=%s", o.ID, o.PaymentMethod)
		s.publish(ctx, domain.EventOrderPaid, paid)
		return paid, nil
	case payment.OutcomeExpired:
		if err := s.deps.Orders.Delete(ctx, o.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		s.deps.Logger.Printf("order service: expired order_id=%s deleted", o.ID)
		return nil, &domain.PaymentError{Provider: o.PaymentMethod, Op: "confirm", Err: errors.New("session expired")}
	}
	return nil, errPaymentOpen
}

// errPaymentOpen is returned while the provider still waits on the buyer.
var errPaymentOpen = &domain.ValidationError{Field: "payment", Message: "payment not completed"}

// HandleStripeWebhook verifies a Stripe event and confirms the order it refers
// to. Events for unknown references or still-open payments are acknowledged
// without changes.
func (s *Service) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.deps.Webhooks == nil {
		return domain.ErrNotFound
	}
	ev, err := s.deps.Webhooks.ParseWebhook(payload, signature)
	if err != nil || ev == nil {
		return err
	}
	kind := orderrepo.RefSession
	if ev.Type == "payment_intent.succeeded" {
		kind = orderrepo.RefPaymentIntent
	}
	_, err = s.ConfirmPayment(ctx, kind, ev.Ref)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.deps.Logger.Printf("order service: webhook for unknown ref=%s type=%s", ev.Ref, ev.Type)
		return nil
	case errors.Is(err, errPaymentOpen):
		// Async payment methods complete later; a follow-up event confirms them.
		s.deps.Logger.Printf("order service: webhook ref=%s type=%s payment still open", ev.Ref, ev.Type)
		return nil
	}
	return err
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if !domain.ValidID(id) {
		return domain.ErrNotFound
	}
	return s.deps.Orders.Delete(ctx, id)
}

// DeleteTemp removes a pending order whose checkout session was abandoned.
func (s *Service) DeleteTemp(ctx context.Context, orderID, sessionID string) error {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != domain.OrderPending || o.SessionID == nil || *o.SessionID != sessionID {
		return domain.ErrNotFound
	}
	if err := s.deps.Orders.Delete(ctx, orderID); err != nil {
		return err
	}
	s.deps.Logger.Printf("order service: deleted temp order_id=%s", orderID)
	return nil
}

func (s *Service) publish(ctx context.Context, t domain.OrderEventType, o *domain.Order) {
	currency := ""
	if s.deps.Settings != nil {
		if setting, err := s.deps.Settings.Get(ctx); err == nil {
			currency = setting.Currency
		}
	}
	ev := events.NewOrderEvent(t, o, currency, s.now())
	if err := s.deps.Events.Publish(ctx, ev); err != nil {
		s.deps.Logger.Printf("order service: publish type=%s order_id=%s error=%v", t, o.ID, err)
	}
}

func statusMessage(st domain.OrderStatus) string {
	label := string(st)
	if st == domain.OrderInProgress {
		label = "in progress"
	}
	return fmt.Sprintf("Your order is now %s.", label)
}
