package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
	"wexcommerce/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

type view struct {
	FullName string
	OrderID  string
	Total    string
	Status   string
	Bank     *domain.BankDetails
}

// Render picks the template for an event. Events with no email return ok=false.
func Render(ev domain.OrderEvent) (msg Message, ok bool, err error) {
	if ev.Email == "" {
		return Message{}, false, nil
	}

	var name, subject string
	switch ev.Type {
	case domain.EventOrderConfirmed:
		name, subject = "confirmed.html", "Your order is confirmed"
		if ev.PaymentMethod == domain.PaymentWireTransfer && ev.Bank != nil {
			name, subject = "wire_transfer.html", "Payment instructions for your order"
		}
	case domain.EventOrderPaid:
		name, subject = "paid.html", "Payment received"
	case domain.EventOrderStatusChanged:
		name, subject = "status_changed.html", "Your order was updated"
	default:
		return Message{}, false, nil
	}

	v := view{
		FullName: ev.FullName,
		OrderID:  ev.OrderID,
		Total:    money(ev.TotalCents, ev.Currency),
		Status:   statusLabel(ev.Status),
		Bank:     ev.Bank,
	}
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, v); err != nil {
		return Message{}, false, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{To: ev.Email, Subject: subject, HTML: body.String()}, true, nil
}

func money(cents int64, currency string) string {
	amount := decimal.New(cents, -2).StringFixed(2)
	if currency == "" {
		return amount
	}
	return amount + " " + strings.ToUpper(currency)
}

func statusLabel(s domain.OrderStatus) string {
	if s == domain.OrderInProgress {
		return "in progress"
	}
	return string(s)
}
