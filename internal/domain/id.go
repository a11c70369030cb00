package domain

import "github.com/google/uuid"

// ValidID reports whether s is a well-formed UUID.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// RequireID returns a ValidationError naming field when id is malformed.
func RequireID(field, id string) error {
	if !ValidID(id) {
		return Invalid(field, "is not a valid id")
	}
	return nil
}
