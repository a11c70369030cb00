package payment

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"wexcommerce/internal/domain"
)

type PayPal struct {
	client       *resty.Client
	clientID     string
	clientSecret string
	logger       *log.Logger
	now          func() time.Time

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewPayPal(baseURL, clientID, clientSecret string, logger *log.Logger) *PayPal {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &PayPal{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json"),
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
		now:          time.Now,
	}
}

func (p *PayPal) Provider() domain.PaymentMethod { return domain.PaymentPayPal }

// request forces JSON decoding of replies. PayPal answers JSON everywhere, and a
// proxy that drops or rewrites Content-Type must not leave results unset.
func (p *PayPal) request(ctx context.Context) *resty.Request {
	return p.client.R().
		SetContext(ctx).
		ForceContentType("application/json")
}

type paypalToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id"`
	CustomID    string       `json:"custom_id,omitempty"`
	Amount      paypalAmount `json:"amount"`
}

type paypalApplicationContext struct {
	ReturnURL string `json:"return_url,omitempty"`
	CancelURL string `json:"cancel_url,omitempty"`
}

type paypalCreateOrder struct {
	Intent             string                   `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit     `json:"purchase_units"`
	ApplicationContext paypalApplicationContext `json:"application_context"`
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrder struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []paypalLink `json:"links"`
}

func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" && p.now().Before(p.tokenExp) {
		return p.token, nil
	}

	var out paypalToken
	resp, err := p.request(ctx).
		SetBasicAuth(p.clientID, p.clientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&out).
		Post("/v1/oauth2/token")
	if err != nil {
		return "", err
	}
	if resp.IsError() || out.AccessToken == "" {
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	p.token = out.AccessToken
	// Refresh a minute early.
	p.tokenExp = p.now().Add(time.Duration(out.ExpiresIn)*time.Second - time.Minute)
	return p.token, nil
}

func (p *PayPal) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		p.logger.Printf("paypal: token order_id=%s error=%v", req.OrderID, err)
		return nil, paymentErr(domain.PaymentPayPal, "auth", err)
	}

	body := paypalCreateOrder{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: req.OrderID,
			CustomID:    req.OrderID,
			Amount: paypalAmount{
				CurrencyCode: strings.ToUpper(req.Currency),
				Value:        FormatAmount(req.TotalCents),
			},
		}},
		ApplicationContext: paypalApplicationContext{ReturnURL: req.SuccessURL, CancelURL: req.CancelURL},
	}

	var out paypalOrder
	resp, err := p.request(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		Post("/v2/checkout/orders")
	if err != nil {
		return nil, paymentErr(domain.PaymentPayPal, "create order", err)
	}
	if resp.IsError() {
		p.logger.Printf("paypal: create order order_id=%s status=%d body=%s", req.OrderID, resp.StatusCode(), resp.String())
		return nil, paymentErr(domain.PaymentPayPal, "create order", fmt.Errorf("status %d", resp.StatusCode()))
	}

	session := &Session{PayPalOrderID: out.ID}
	for _, l := range out.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			session.URL = l.Href
			break
		}
	}
	return session, nil
}

// Confirm looks the PayPal order up and captures it once the buyer approved.
// An already captured order reports OutcomePaid.
func (p *PayPal) Confirm(ctx context.Context, ref string) (Outcome, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return OutcomeOpen, paymentErr(domain.PaymentPayPal, "auth", err)
	}

	var current paypalOrder
	resp, err := p.request(ctx).
		SetAuthToken(token).
		SetPathParam("id", ref).
		SetResult(&current).
		Get("/v2/checkout/orders/{id}")
	if err != nil {
		return OutcomeOpen, paymentErr(domain.PaymentPayPal, "get order", err)
	}
	if resp.IsError() {
		return OutcomeOpen, paymentErr(domain.PaymentPayPal, "get order", fmt.Errorf("status %d", resp.StatusCode()))
	}

	switch current.Status {
	case "COMPLETED":
		return OutcomePaid, nil
	case "VOIDED":
		return OutcomeExpired, nil
	case "APPROVED":
		return p.capture(ctx, token, ref)
	}
	return OutcomeOpen, nil
}

// capture settles an approved PayPal order.
func (p *PayPal) capture(ctx context.Context, token, ref string) (Outcome, error) {
	var captured paypalOrder
	resp, err := p.request(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetPathParam("id", ref).
		SetBody("{}").
		SetResult(&captured).
		Post("/v2/checkout/orders/{id}/capture")
	if err != nil {
		return OutcomeOpen, paymentErr(domain.PaymentPayPal, "capture", err)
	}
	if resp.IsError() {
		p.logger.Printf("paypal: capture paypal_order_id=%s status=%d body=%s", ref, resp.StatusCode(), resp.String())
		return OutcomeOpen, paymentErr(domain.PaymentPayPal, "capture", fmt.Errorf("status %d", resp.StatusCode()))
	}
	if captured.Status == "COMPLETED" {
		return OutcomePaid, nil
	}
	return OutcomeOpen, nil
}

// FormatAmount renders cents as a major-unit decimal string, e.g. 2500 -> "25.00".
func FormatAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
