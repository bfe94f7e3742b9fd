// Package errors defines the typed error taxonomy shared by the service
// layer and the HTTP surface. Every expected business outcome carries a
// Code; the metadata table maps codes to HTTP status, retryability, and
// what clients may see.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code tags an error with its business outcome.
type Code string

const (
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeNotFound    Code = "NOT_FOUND"
	CodeConflict    Code = "CONFLICT"
	CodeConcurrency Code = "CONCURRENT_MODIFICATION"
	CodeConstraint  Code = "CONSTRAINT_VIOLATION"
	CodeLedger      Code = "LEDGER_ERROR"
	CodeConsistency Code = "CONSISTENCY_ERROR"
	CodeRollback    Code = "ROLLBACK_FAILED"
	CodeIdempotency Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal    Code = "INTERNAL_ERROR"
	CodeDependency  Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// metadataByCode columns: HTTP status, retryable, public message, details allowed.
// CodeInternal never exposes details; everything exposed for the other codes
// still passes through the responses layer, which only forwards structured
// details when this table allows it.
var metadataByCode = map[Code]Metadata{
	CodeValidation:  {http.StatusBadRequest, false, "validation failed", true},
	CodeNotFound:    {http.StatusNotFound, false, "resource not found", false},
	CodeConflict:    {http.StatusConflict, false, "conflict detected", true},
	CodeConcurrency: {http.StatusConflict, true, "entity modified concurrently", true},
	CodeConstraint:  {http.StatusUnprocessableEntity, false, "storage constraint violated", true},
	CodeLedger:      {http.StatusBadGateway, false, "ledger attestation failed", true},
	CodeConsistency: {http.StatusInternalServerError, false, "completion state inconsistent", true},
	CodeRollback:    {http.StatusInternalServerError, false, "rollback failed", true},
	CodeIdempotency: {http.StatusConflict, false, "idempotency key reused", true},
	CodeInternal:    {http.StatusInternalServerError, true, "internal server error", false},
	CodeDependency:  {http.StatusServiceUnavailable, true, "dependency unavailable", true},
}

// MetadataFor returns the table entry for code, defaulting unknown codes
// to the internal-error row.
func MetadataFor(code Code) Metadata {
	meta, ok := metadataByCode[code]
	if !ok {
		return metadataByCode[CodeInternal]
	}
	return meta
}

// Error is the concrete error type produced everywhere below the HTTP
// layer. The zero-value guards let callers chain accessors on a nil
// receiver without panicking.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to an underlying cause. A nil cause
// degrades to New so call sites need not branch.
func Wrap(code Code, err error, message string) *Error {
	e := New(code, message)
	e.cause = err
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails attaches structured detail for clients. Whether it is
// actually serialized depends on the code's DetailsAllowed flag.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts a typed *Error from anywhere in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
