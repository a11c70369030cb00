package payment

import (
	"context"
	"fmt"
	"time"

	"wexcommerce/internal/domain"
)

// Outcome is the state of a gateway payment as seen by Confirm.
type Outcome int

const (
	OutcomeOpen Outcome = iota
	OutcomePaid
	OutcomeExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomePaid:
		return "paid"
	case OutcomeExpired:
		return "expired"
	}
	return "open"
}

// Stripe flows.
const (
	FlowSession = "session"
	FlowIntent  = "intent"
)

type LineItem struct {
	Name      string
	UnitCents int64
	Quantity  int
}

// SessionRequest describes a payment for one pending order. Lines sum to
// TotalCents, delivery fee included.
type SessionRequest struct {
	OrderID    string
	Flow       string
	Currency   string
	Lines      []LineItem
	TotalCents int64
	Email      string
	FullName   string
	Phone      string
	ExpiresAt  time.Time
	SuccessURL string
	CancelURL  string
}

// Session is the client handle returned after a gateway session is opened.
type Session struct {
	SessionID       string `json:"sessionId,omitempty"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	ClientSecret    string `json:"clientSecret,omitempty"`
	CustomerID      string `json:"customerId,omitempty"`
	PayPalOrderID   string `json:"paypalOrderId,omitempty"`
	URL             string `json:"url,omitempty"`
}

type Gateway interface {
	Provider() domain.PaymentMethod
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	Confirm(ctx context.Context, ref string) (Outcome, error)
}

// Gateways looks adapters up by payment method.
type Gateways struct {
	byMethod map[domain.PaymentMethod]Gateway
}

func NewGateways(gateways ...Gateway) *Gateways {
	g := &Gateways{byMethod: make(map[domain.PaymentMethod]Gateway, len(gateways))}
	for _, gw := range gateways {
		if gw != nil {
			g.byMethod[gw.Provider()] = gw
		}
	}
	return g
}

func (g *Gateways) For(method domain.PaymentMethod) (Gateway, error) {
	if gw, ok := g.byMethod[method]; ok {
		return gw, nil
	}
	return nil, &domain.PaymentError{Provider: method, Op: "lookup", Err: fmt.Errorf("no gateway configured")}
}

func paymentErr(provider domain.PaymentMethod, op string, err error) error {
	return &domain.PaymentError{Provider: provider, Op: op, Err: err}
}
