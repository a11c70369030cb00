package mailer

import (
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
)

// ErrBadRecipient marks a message whose address can never be delivered.
var ErrBadRecipient = errors.New("mailer: bad recipient")

// Permanent reports whether retrying a failed send cannot help: the address
// is unusable or the server answered with a 5xx reply.
func Permanent(err error) bool {
	if errors.Is(err, ErrBadRecipient) {
		return true
	}
	var reply *textproto.Error
	return errors.As(err, &reply) && reply.Code >= 500
}

// Sender delivers a rendered message.
type Sender interface {
	Send(msg Message) error
}

type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPSender uses PLAIN auth when user is set.
func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	s := &SMTPSender{addr: net.JoinHostPort(host, strconv.Itoa(port)), from: from}
	if user != "" {
		s.auth = smtp.PlainAuth("", user, password, host)
	}
	return s
}

func (s *SMTPSender) Send(msg Message) error {
	if strings.ContainsAny(msg.To, "\r\n") {
		return fmt.Errorf("%w: %q", ErrBadRecipient, msg.To)
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrBadRecipient, msg.To, err)
	}
	raw := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n%s",
		s.from, msg.To, msg.Subject, msg.HTML,
	)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{msg.To}, []byte(raw)); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}
