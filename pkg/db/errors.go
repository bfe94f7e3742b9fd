package db

import "strings"

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}

// IsConstraintViolation reports whether the provided error references any
// Postgres constraint violation (unique, check, foreign key, not-null).
// The sqlite form is matched too so repository tests exercise the same path.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"duplicate key value",
		"violates check constraint",
		"violates foreign key constraint",
		"violates not-null constraint",
		"constraint failed",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
