package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"wexcommerce/internal/domain"
)

// StripeClient is the subset of the Stripe API the adapter calls.
type StripeClient interface {
	NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(id string) (*stripe.CheckoutSession, error)
	NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error)
	NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(id string) (*stripe.PaymentIntent, error)
}

type apiClient struct {
	api *client.API
}

// NewStripeClient returns a StripeClient backed by the live API.
func NewStripeClient(secretKey string) StripeClient {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &apiClient{api: api}
}

func (c *apiClient) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return c.api.CheckoutSessions.New(params)
}

func (c *apiClient) GetCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	return c.api.CheckoutSessions.Get(id, nil)
}

func (c *apiClient) NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	return c.api.Customers.New(params)
}

func (c *apiClient) NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return c.api.PaymentIntents.New(params)
}

func (c *apiClient) GetPaymentIntent(id string) (*stripe.PaymentIntent, error) {
	return c.api.PaymentIntents.Get(id, nil)
}

// Checkout Sessions must expire between 30 minutes and 24 hours after they are
// created. StripeMinSessionWindow adds a minute so request latency cannot push
// expires_at under the floor.
const (
	StripeMinSessionWindow = 31 * time.Minute
	stripeMaxSessionWindow = 24 * time.Hour
)

// ClampStripeExpiry keeps a requested session expiry inside the window Stripe
// accepts for a session created at now.
func ClampStripeExpiry(now, want time.Time) time.Time {
	if floor := now.Add(StripeMinSessionWindow); want.Before(floor) {
		return floor
	}
	if ceiling := now.Add(stripeMaxSessionWindow); want.After(ceiling) {
		return ceiling
	}
	return want
}

type Stripe struct {
	client        StripeClient
	webhookSecret string
	logger        *log.Logger
	now           func() time.Time
}

func NewStripe(c StripeClient, webhookSecret string, logger *log.Logger) *Stripe {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Stripe{client: c, webhookSecret: webhookSecret, logger: logger, now: time.Now}
}

func (s *Stripe) Provider() domain.PaymentMethod { return domain.PaymentStripe }

func (s *Stripe) CreateSession(_ context.Context, req SessionRequest) (*Session, error) {
	currency := strings.ToLower(req.Currency)
	if req.Flow == FlowIntent {
		return s.createIntent(req, currency)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
		ExpiresAt:         stripe.Int64(ClampStripeExpiry(s.now(), req.ExpiresAt).Unix()),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	for _, line := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
				UnitAmount: stripe.Int64(line.UnitCents),
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}
	params.AddMetadata("orderId", req.OrderID)

	sess, err := s.client.NewCheckoutSession(params)
	if err != nil {
		s.logger.Printf("stripe: create session order_id=%s error=%v", req.OrderID, err)
		return nil, paymentErr(domain.PaymentStripe, "create session", err)
	}
	return &Session{SessionID: sess.ID, URL: sess.URL}, nil
}

func (s *Stripe) createIntent(req SessionRequest, currency string) (*Session, error) {
	customerParams := &stripe.CustomerParams{
		Email: stripe.String(req.Email),
		Name:  stripe.String(req.FullName),
	}
	if req.Phone != "" {
		customerParams.Phone = stripe.String(req.Phone)
	}
	customer, err := s.client.NewCustomer(customerParams)
	if err != nil {
		s.logger.Printf("stripe: create customer order_id=%s error=%v", req.OrderID, err)
		return nil, paymentErr(domain.PaymentStripe, "create customer", err)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.TotalCents),
		Currency: stripe.String(currency),
		Customer: stripe.String(customer.ID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("orderId", req.OrderID)

	intent, err := s.client.NewPaymentIntent(params)
	if err != nil {
		s.logger.Printf("stripe: create intent order_id=%s error=%v", req.OrderID, err)
		return nil, paymentErr(domain.PaymentStripe, "create payment intent", err)
	}
	return &Session{PaymentIntentID: intent.ID, ClientSecret: intent.ClientSecret, CustomerID: customer.ID}, nil
}

// Confirm accepts either a checkout session id or a payment intent id ("pi_").
func (s *Stripe) Confirm(_ context.Context, ref string) (Outcome, error) {
	if strings.HasPrefix(ref, "pi_") {
		intent, err := s.client.GetPaymentIntent(ref)
		if err != nil {
			return OutcomeOpen, paymentErr(domain.PaymentStripe, "get payment intent", err)
		}
		switch intent.Status {
		case stripe.PaymentIntentStatusSucceeded:
			return OutcomePaid, nil
		case stripe.PaymentIntentStatusCanceled:
			return OutcomeExpired, nil
		}
		return OutcomeOpen, nil
	}

	sess, err := s.client.GetCheckoutSession(ref)
	if err != nil {
		return OutcomeOpen, paymentErr(domain.PaymentStripe, "get session", err)
	}
	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		return OutcomePaid, nil
	}
	if sess.Status == stripe.CheckoutSessionStatusExpired {
		return OutcomeExpired, nil
	}
	return OutcomeOpen, nil
}

// WebhookEvent is a verified Stripe notification about a payment reference.
type WebhookEvent struct {
	Type string
	// Ref is a checkout session id or a payment intent id.
	Ref string
}

// ParseWebhook verifies the Stripe-Signature header and extracts the payment
// reference. Event types other than session completion and intent success
// return a nil event.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("stripe webhook: %v: %w", err, domain.ErrUnauthorized)
	}

	switch string(ev.Type) {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return nil, domain.Invalid("payload", "malformed checkout session")
		}
		return &WebhookEvent{Type: string(ev.Type), Ref: sess.ID}, nil
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &intent); err != nil {
			return nil, domain.Invalid("payload", "malformed payment intent")
		}
		return &WebhookEvent{Type: string(ev.Type), Ref: intent.ID}, nil
	}
	s.logger.Printf("stripe: ignoring webhook type=%s", ev.Type)
	return nil, nil
}
