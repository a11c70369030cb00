package domain

import (
	"net/mail"
	"strings"
)

// NormalizeEmail lowercases and validates a bare mailbox address. Display
// names and header line breaks are refused.
func NormalizeEmail(field, s string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(s))
	if email == "" {
		return "", Invalid(field, "is required")
	}
	if strings.ContainsAny(email, "\r\n") {
		return "", Invalid(field, "is not a valid email address")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return "", Invalid(field, "is not a valid email address")
	}
	return email, nil
}
