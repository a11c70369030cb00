package mailer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wexcommerce/internal/domain"
)

type stubSender struct {
	sent []Message
	err  error
}

func (s *stubSender) Send(msg Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func event(t domain.OrderEventType) domain.OrderEvent {
	return domain.OrderEvent{
		Type:          t,
		OrderID:       "order-1",
		Email:         "jane@example.com",
		FullName:      "Jane",
		Status:        domain.OrderConfirmed,
		PaymentMethod: domain.PaymentCashOnDelivery,
		TotalCents:    2500,
		Currency:      "usd",
	}
}

func TestRender_WireTransferIncludesBankDetails(t *testing.T) {
	ev := event(domain.EventOrderConfirmed)
	ev.PaymentMethod = domain.PaymentWireTransfer
	ev.Bank = &domain.BankDetails{BankName: "Bank", IBAN: "DE89370400440532013000"}

	msg, ok, err := Render(ev)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", msg.To)
	assert.Contains(t, msg.HTML, "DE89370400440532013000")
	assert.Contains(t, msg.HTML, "25.00 USD")
}

func TestRender_StatusChanged(t *testing.T) {
	ev := event(domain.EventOrderStatusChanged)
	ev.Status = domain.OrderInProgress

	msg, ok, err := Render(ev)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, msg.HTML, "in progress")
}

func TestRender_EscapesNames(t *testing.T) {
	ev := event(domain.EventOrderPaid)
	ev.FullName = "<script>x</script>"

	msg, _, err := Render(ev)
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestHandle(t *testing.T) {
	body, err := json.Marshal(event(domain.EventOrderConfirmed))
	require.NoError(t, err)

	sender := &stubSender{}
	c := NewConsumer(nil, "order-events", 1, sender, nil)
	assert.Equal(t, Ack, c.Handle(body))
	require.Len(t, sender.sent, 1)

	assert.Equal(t, Reject, c.Handle([]byte("not json")))

	noEmail := event(domain.EventOrderPaid)
	noEmail.Email = ""
	raw, _ := json.Marshal(noEmail)
	assert.Equal(t, Ack, c.Handle(raw))
	assert.Len(t, sender.sent, 1)

	failing := NewConsumer(nil, "order-events", 1, &stubSender{err: errors.New("smtp down")}, nil)
	assert.Equal(t, Requeue, failing.Handle(body))
}

func TestHandle_PermanentFailuresAreRejected(t *testing.T) {
	body, err := json.Marshal(event(domain.EventOrderConfirmed))
	require.NoError(t, err)

	mailbox := &textproto.Error{Code: 550, Msg: "mailbox unavailable"}
	rejected := NewConsumer(nil, "order-events", 1, &stubSender{err: fmt.Errorf("send mail: %w", mailbox)}, nil)
	assert.Equal(t, Reject, rejected.Handle(body))

	busy := &textproto.Error{Code: 451, Msg: "try again later"}
	deferred := NewConsumer(nil, "order-events", 1, &stubSender{err: fmt.Errorf("send mail: %w", busy)}, nil)
	assert.Equal(t, Requeue, deferred.Handle(body))

	// The address check runs before any connection is made.
	ev := event(domain.EventOrderConfirmed)
	ev.Email = "jane@@example.com"
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	smtpConsumer := NewConsumer(nil, "order-events", 1, NewSMTPSender("127.0.0.1", 1, "", "", "shop@example.com"), nil)
	assert.Equal(t, Reject, smtpConsumer.Handle(raw))
}

func TestSMTPSender_RefusesHeaderInjection(t *testing.T) {
	s := NewSMTPSender("127.0.0.1", 1, "", "", "shop@example.com")
	err := s.Send(Message{To: "jane@example.com\r\nBcc: all@example.com", Subject: "x", HTML: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadRecipient)
	assert.True(t, Permanent(err))
}
