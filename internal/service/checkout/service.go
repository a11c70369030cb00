package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"wexcommerce/internal/domain"
	"wexcommerce/internal/events"
	orderrepo "wexcommerce/internal/repository/order"
	"wexcommerce/internal/service/payment"
)

type cartReader interface {
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
}

type deliveryTypeReader interface {
	GetByID(ctx context.Context, id string) (*domain.DeliveryType, error)
}

type paymentTypeReader interface {
	GetByID(ctx context.Context, id string) (*domain.PaymentType, error)
}

type settingReader interface {
	Get(ctx context.Context) (*domain.Setting, error)
}

type userReader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type orderWriter interface {
	Create(ctx context.Context, in orderrepo.CreateInput) (*domain.Order, error)
	SetPaymentRefs(ctx context.Context, id string, refs orderrepo.PaymentRefs) error
	Delete(ctx context.Context, id string) error
}

type gatewayLookup interface {
	For(method domain.PaymentMethod) (payment.Gateway, error)
}

// Options carries the payment window settings.
type Options struct {
	SessionExpiry time.Duration
	ExpiryGrace   time.Duration
	FrontendURL   string
}

type Deps struct {
	Carts         cartReader
	DeliveryTypes deliveryTypeReader
	PaymentTypes  paymentTypeReader
	Settings      settingReader
	Users         userReader
	Orders        orderWriter
	Gateways      gatewayLookup
	Events        events.Publisher
	Logger        *log.Logger
}

type Service struct {
	deps Deps
	opts Options
	now  func() time.Time
}

func New(deps Deps, opts Options) *Service {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}
	if opts.SessionExpiry <= 0 {
		opts.SessionExpiry = 30 * time.Minute
	}
	if opts.ExpiryGrace < 0 {
		opts.ExpiryGrace = 0
	}
	return &Service{deps: deps, opts: opts, now: time.Now}
}

// Buyer identifies a guest placing an order without an account.
type Buyer struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type Request struct {
	CartID         string
	DeliveryTypeID string
	PaymentTypeID  string
	// UserID is set for authenticated callers; Buyer is used otherwise.
	UserID     string
	Buyer      *Buyer
	StripeFlow string
}

type Result struct {
	Order   *domain.Order    `json:"order"`
	Payment *payment.Session `json:"payment,omitempty"`
}

// plan is the settlement path chosen from the payment type.
type plan interface{ method() domain.PaymentMethod }

type offlinePlan struct {
	pm   domain.PaymentMethod
	bank *domain.BankDetails
}

type stripePlan struct{ flow string }

type paypalPlan struct{}

func (p offlinePlan) method() domain.PaymentMethod { return p.pm }
func (stripePlan) method() domain.PaymentMethod    { return domain.PaymentStripe }
func (paypalPlan) method() domain.PaymentMethod    { return domain.PaymentPayPal }

// quote is a validated cart priced against live products.
type quote struct {
	cart     *domain.Cart
	delivery *domain.DeliveryType
	items    []domain.OrderItem
	total    int64
	setting  *domain.Setting
}

func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	if err := domain.RequireID("cartId", req.CartID); err != nil {
		return nil, err
	}
	if err := domain.RequireID("deliveryType", req.DeliveryTypeID); err != nil {
		return nil, err
	}
	if err := domain.RequireID("paymentType", req.PaymentTypeID); err != nil {
		return nil, err
	}

	q, err := s.quote(ctx, req)
	if err != nil {
		return nil, err
	}
	pt, err := s.deps.PaymentTypes.GetByID(ctx, req.PaymentTypeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Invalid("paymentType", "not found")
		}
		return nil, err
	}
	if !pt.Enabled {
		return nil, domain.Invalid("paymentType", "is disabled")
	}
	p, err := resolvePlan(pt.Name, req.StripeFlow, q.setting)
	if err != nil {
		return nil, err
	}

	userID, guest, err := s.resolveBuyer(ctx, req)
	if err != nil {
		return nil, err
	}

	order := domain.Order{
		UserID:         userID,
		DeliveryTypeID: q.delivery.ID,
		PaymentTypeID:  pt.ID,
		TotalCents:     q.total,
		Items:          q.items,
		CartID:         &q.cart.ID,
	}

	switch p := p.(type) {
	case offlinePlan:
		return s.checkoutOffline(ctx, order, guest, p, q)
	case stripePlan, paypalPlan:
		return s.checkoutGateway(ctx, order, guest, p, q)
	}
	return nil, fmt.Errorf("unhandled payment plan %T", p)
}

func (s *Service) quote(ctx context.Context, req Request) (*quote, error) {
	cart, err := s.deps.Carts.GetByID(ctx, req.CartID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, domain.Invalid("cartId", "cart is empty")
	}
	// A user-owned cart is only visible to its owner, signed in.
	if cart.UserID != nil && *cart.UserID != req.UserID {
		return nil, domain.ErrNotFound
	}

	delivery, err := s.deps.DeliveryTypes.GetByID(ctx, req.DeliveryTypeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Invalid("deliveryType", "not found")
		}
		return nil, err
	}
	if !delivery.Enabled {
		return nil, domain.Invalid("deliveryType", "is disabled")
	}

	items, err := snapshotItems(cart)
	if err != nil {
		return nil, err
	}
	setting, err := s.deps.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &quote{
		cart:     cart,
		delivery: delivery,
		items:    items,
		total:    domain.ItemsTotal(items) + delivery.Fee(),
		setting:  setting,
	}, nil
}

// snapshotItems re-validates every cart line against the live product and
// copies its name and price into an order item.
func snapshotItems(cart *domain.Cart) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, ci := range cart.Items {
		p := ci.Product
		switch {
		case p == nil:
			return nil, &domain.InvalidCartError{ProductID: ci.ProductID, Reason: "no longer exists"}
		case p.Hidden:
			return nil, &domain.InvalidCartError{ProductID: ci.ProductID, Reason: "is not available"}
		case p.SoldOut:
			return nil, &domain.InvalidCartError{ProductID: ci.ProductID, Reason: "is sold out"}
		case p.Quantity < ci.Quantity:
			return nil, &domain.InvalidCartError{ProductID: ci.ProductID, Reason: "is out of stock"}
		}
		items = append(items, domain.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			PriceCents:  p.PriceCents,
			Quantity:    ci.Quantity,
		})
	}
	return items, nil
}

func resolvePlan(method domain.PaymentMethod, stripeFlow string, setting *domain.Setting) (plan, error) {
	switch method {
	case domain.PaymentCashOnDelivery:
		return offlinePlan{pm: method}, nil
	case domain.PaymentWireTransfer:
		bank := setting.BankDetails
		return offlinePlan{pm: method, bank: &bank}, nil
	case domain.PaymentStripe:
		switch stripeFlow {
		case "", payment.FlowSession:
			return stripePlan{flow: payment.FlowSession}, nil
		case payment.FlowIntent:
			return stripePlan{flow: payment.FlowIntent}, nil
		}
		return nil, domain.Invalid("stripeFlow", "must be session or intent")
	case domain.PaymentPayPal:
		return paypalPlan{}, nil
	}
	return nil, domain.Invalid("paymentType", fmt.Sprintf("unsupported payment method %q", method))
}

// resolveBuyer returns the ordering user id, or a guest to create with the order.
func (s *Service) resolveBuyer(ctx context.Context, req Request) (string, *domain.User, error) {
	if req.UserID != "" {
		u, err := s.deps.Users.GetByID(ctx, req.UserID)
		if err != nil {
			return "", nil, err
		}
		return u.ID, nil, nil
	}

	b := req.Buyer
	if b == nil {
		return "", nil, domain.Invalid("user", "is required")
	}
	email, err := domain.NormalizeEmail("user.email", b.Email)
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(b.FullName) == "" {
		return "", nil, domain.Invalid("user.fullName", "is required")
	}
	_, err = s.deps.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return "", nil, domain.Invalid("user.email", "already registered, sign in to continue")
	case !errors.Is(err, domain.ErrNotFound):
		return "", nil, err
	}
	return "", &domain.User{
		Email:    email,
		FullName: strings.TrimSpace(b.FullName),
		Phone:    b.Phone,
		Address:  b.Address,
		Type:     domain.UserTypeUser,
	}, nil
}

func (s *Service) checkoutOffline(ctx context.Context, order domain.Order, guest *domain.User, p offlinePlan, q *quote) (*Result, error) {
	order.Status = domain.OrderConfirmed
	created, err := s.deps.Orders.Create(ctx, orderrepo.CreateInput{
		Order:        order,
		Guest:        guest,
		StrictStock:  true,
		Notification: "Your order has been confirmed.",
		ClearCart:    true,
	})
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Printf("checkout: confirmed order_id=%s method=%s total_cents=%d", created.ID, p.pm, created.TotalCents)

	ev := events.NewOrderEvent(domain.EventOrderConfirmed, created, q.setting.Currency, s.now())
	ev.Bank = p.bank
	s.publish(ctx, ev)
	return &Result{Order: created}, nil
}

func (s *Service) checkoutGateway(ctx context.Context, order domain.Order, guest *domain.User, p plan, q *quote) (*Result, error) {
	gw, err := s.deps.Gateways.For(p.method())
	if err != nil {
		return nil, err
	}

	now := s.now()
	sessionExpiry := now.Add(s.opts.SessionExpiry)
	if sp, ok := p.(stripePlan); ok && sp.flow == payment.FlowSession {
		sessionExpiry = payment.ClampStripeExpiry(now, sessionExpiry)
	}
	orderExpiry := sessionExpiry.Add(s.opts.ExpiryGrace)
	order.Status = domain.OrderPending
	order.ExpireAt = &orderExpiry
	if guest != nil {
		guest.ExpireAt = &orderExpiry
	}

	created, err := s.deps.Orders.Create(ctx, orderrepo.CreateInput{Order: order, Guest: guest})
	if err != nil {
		return nil, err
	}

	req := payment.SessionRequest{
		OrderID:    created.ID,
		Currency:   q.setting.Currency,
		Lines:      lines(q),
		TotalCents: created.TotalCents,
		ExpiresAt:  sessionExpiry,
	}
	if created.User != nil {
		req.Email = created.User.Email
		req.FullName = created.User.FullName
		req.Phone = created.User.Phone
	}
	base := strings.TrimRight(s.opts.FrontendURL, "/")
	switch p := p.(type) {
	case stripePlan:
		req.Flow = p.flow
		req.SuccessURL = base + "/checkout-session/{CHECKOUT_SESSION_ID}"
		req.CancelURL = base + "/checkout"
	case paypalPlan:
		req.SuccessURL = base + "/checkout-paypal/" + created.ID
		req.CancelURL = base + "/checkout"
	}

	session, err := gw.CreateSession(ctx, req)
	if err != nil {
		s.compensate(created.ID, err)
		return nil, err
	}

	refs := orderrepo.PaymentRefs{
		SessionID:       nonEmpty(session.SessionID),
		PaymentIntentID: nonEmpty(session.PaymentIntentID),
		CustomerID:      nonEmpty(session.CustomerID),
		PayPalOrderID:   nonEmpty(session.PayPalOrderID),
	}
	if err := s.deps.Orders.SetPaymentRefs(ctx, created.ID, refs); err != nil {
		s.compensate(created.ID, err)
		return nil, err
	}
	created.SessionID = refs.SessionID
	created.PaymentIntentID = refs.PaymentIntentID
	created.CustomerID = refs.CustomerID
	created.PayPalOrderID = refs.PayPalOrderID

	s.deps.Logger.Printf("checkout: pending order_id=%s method=%s total_cents=%d expire_at=%s",
		created.ID, p.method(), created.TotalCents, orderExpiry.Format(time.RFC3339))
	return &Result{Order: created, Payment: session}, nil
}

// compensate removes a pending order whose gateway session could not be opened.
// It runs on a fresh context so a cancelled request still cleans up.
func (s *Service) compensate(orderID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.deps.Logger.Printf("checkout: gateway failed order_id=%s error=%v", orderID, cause)
	if err := s.deps.Orders.Delete(ctx, orderID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.deps.Logger.Printf("checkout: compensating delete order_id=%s error=%v", orderID, err)
	}
}

func (s *Service) publish(ctx context.Context, ev domain.OrderEvent) {
	if err := s.deps.Events.Publish(ctx, ev); err != nil {
		s.deps.Logger.Printf("checkout: publish type=%s order_id=%s error=%v", ev.Type, ev.OrderID, err)
	}
}

func lines(q *quote) []payment.LineItem {
	out := make([]payment.LineItem, 0, len(q.items)+1)
	for _, it := range q.items {
		out = append(out, payment.LineItem{Name: it.ProductName, UnitCents: it.PriceCents, Quantity: it.Quantity})
	}
	if fee := q.delivery.Fee(); fee > 0 {
		out = append(out, payment.LineItem{Name: "Delivery", UnitCents: fee, Quantity: 1})
	}
	return out
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
