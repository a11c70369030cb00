package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"wexcommerce/internal/domain"
)

type stubStripe struct {
	lastSession  *stripe.CheckoutSessionParams
	lastCustomer *stripe.CustomerParams
	lastIntent   *stripe.PaymentIntentParams
	session      *stripe.CheckoutSession
	intent       *stripe.PaymentIntent
	err          error
}

func (s *stubStripe) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.lastSession = params
	if s.err != nil {
		return nil, s.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/cs_test_1"}, nil
}

func (s *stubStripe) GetCheckoutSession(string) (*stripe.CheckoutSession, error) {
	return s.session, s.err
}

func (s *stubStripe) NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	s.lastCustomer = params
	if s.err != nil {
		return nil, s.err
	}
	return &stripe.Customer{ID: "cus_1"}, nil
}

func (s *stubStripe) NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	s.lastIntent = params
	if s.err != nil {
		return nil, s.err
	}
	return &stripe.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil
}

func (s *stubStripe) GetPaymentIntent(string) (*stripe.PaymentIntent, error) {
	return s.intent, s.err
}

func sessionRequest(flow string) SessionRequest {
	return SessionRequest{
		OrderID:    "order-1",
		Flow:       flow,
		Currency:   "USD",
		Lines:      []LineItem{{Name: "Mug", UnitCents: 1000, Quantity: 2}, {Name: "Delivery", UnitCents: 500, Quantity: 1}},
		TotalCents: 2500,
		Email:      "jane@example.com",
		FullName:   "Jane",
		ExpiresAt:  time.Now().Add(30 * time.Minute),
		SuccessURL: "https://shop/success",
		CancelURL:  "https://shop/cancel",
	}
}

func TestStripe_CreateCheckoutSession(t *testing.T) {
	c := &stubStripe{}
	s := NewStripe(c, "whsec", nil)

	sess, err := s.CreateSession(context.Background(), sessionRequest(FlowSession))
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.SessionID)
	assert.NotEmpty(t, sess.URL)

	require.Len(t, c.lastSession.LineItems, 2)
	assert.Equal(t, "usd", *c.lastSession.LineItems[0].PriceData.Currency)
	assert.EqualValues(t, 1000, *c.lastSession.LineItems[0].PriceData.UnitAmount)
	assert.EqualValues(t, 2, *c.lastSession.LineItems[0].Quantity)
	assert.Equal(t, "order-1", c.lastSession.Metadata["orderId"])
	assert.NotNil(t, c.lastSession.ExpiresAt)
}

func TestStripe_SessionExpiryStaysAboveStripeFloor(t *testing.T) {
	c := &stubStripe{}
	s := NewStripe(c, "whsec", nil)
	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return createdAt }

	// Computed before the order insert; the session is created 300ms later.
	req := sessionRequest(FlowSession)
	req.ExpiresAt = createdAt.Add(-300 * time.Millisecond).Add(30 * time.Minute)
	_, err := s.CreateSession(context.Background(), req)
	require.NoError(t, err)
	sent := time.Unix(*c.lastSession.ExpiresAt, 0)
	assert.GreaterOrEqual(t, sent.Sub(createdAt), 30*time.Minute)
	assert.Equal(t, createdAt.Add(StripeMinSessionWindow).Unix(), *c.lastSession.ExpiresAt)

	req.ExpiresAt = createdAt.Add(48 * time.Hour)
	_, err = s.CreateSession(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, createdAt.Add(24*time.Hour).Unix(), *c.lastSession.ExpiresAt)

	req.ExpiresAt = createdAt.Add(2 * time.Hour)
	_, err = s.CreateSession(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.ExpiresAt.Unix(), *c.lastSession.ExpiresAt)
}

func TestStripe_CreatePaymentIntent(t *testing.T) {
	c := &stubStripe{}
	s := NewStripe(c, "whsec", nil)

	sess, err := s.CreateSession(context.Background(), sessionRequest(FlowIntent))
	require.NoError(t, err)
	assert.Equal(t, Session{PaymentIntentID: "pi_1", ClientSecret: "pi_1_secret", CustomerID: "cus_1"}, *sess)
	assert.EqualValues(t, 2500, *c.lastIntent.Amount)
	assert.Equal(t, "cus_1", *c.lastIntent.Customer)
	assert.Equal(t, "jane@example.com", *c.lastCustomer.Email)
}

func TestStripe_CreateSessionFailure(t *testing.T) {
	s := NewStripe(&stubStripe{err: errors.New("card declined")}, "whsec", nil)

	_, err := s.CreateSession(context.Background(), sessionRequest(FlowSession))
	var pe *domain.PaymentError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.PaymentStripe, pe.Provider)
}

func TestStripe_Confirm(t *testing.T) {
	cases := []struct {
		name    string
		ref     string
		session *stripe.CheckoutSession
		intent  *stripe.PaymentIntent
		want    Outcome
	}{
		{"session paid", "cs_1", &stripe.CheckoutSession{PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid}, nil, OutcomePaid},
		{"session expired", "cs_1", &stripe.CheckoutSession{Status: stripe.CheckoutSessionStatusExpired}, nil, OutcomeExpired},
		{"session open", "cs_1", &stripe.CheckoutSession{Status: stripe.CheckoutSessionStatusOpen}, nil, OutcomeOpen},
		{"intent succeeded", "pi_1", nil, &stripe.PaymentIntent{Status: stripe.PaymentIntentStatusSucceeded}, OutcomePaid},
		{"intent pending", "pi_1", nil, &stripe.PaymentIntent{Status: stripe.PaymentIntentStatusProcessing}, OutcomeOpen},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStripe(&stubStripe{session: tc.session, intent: tc.intent}, "whsec", nil)
			got, err := s.Confirm(context.Background(), tc.ref)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripe_ParseWebhook(t *testing.T) {
	s := NewStripe(&stubStripe{}, "whsec_test", nil)
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_test_9","object":"checkout.session"}}}`)

	ev, err := s.ParseWebhook(payload, sign(payload, "whsec_test", time.Now()))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "cs_test_9", ev.Ref)

	_, err = s.ParseWebhook(payload, sign(payload, "wrong", time.Now()))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	other := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)
	ev, err = s.ParseWebhook(other, sign(other, "whsec_test", time.Now()))
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestGateways(t *testing.T) {
	gws := NewGateways(NewStripe(&stubStripe{}, "", nil), nil)

	gw, err := gws.For(domain.PaymentStripe)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStripe, gw.Provider())

	_, err = gws.For(domain.PaymentPayPal)
	var pe *domain.PaymentError
	assert.ErrorAs(t, err, &pe)
}
