package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetadataTable(t *testing.T) {
	want := map[Code]Metadata{
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

	require.Len(t, metadataByCode, len(want), "taxonomy drifted from test expectations")
	for code, meta := range want {
		require.Equal(t, meta, MetadataFor(code), "code %s", code)
	}

	// Unknown codes must degrade to the opaque internal row.
	require.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestNewAndWithDetails(t *testing.T) {
	err := New(CodeValidation, "missing proposal id")
	require.Equal(t, CodeValidation, err.Code())
	require.Equal(t, "missing proposal id", err.Message())
	require.Nil(t, err.Details())
	require.EqualError(t, err, "VALIDATION_ERROR: missing proposal id")

	err.WithDetails(map[string]any{"field": "proposal_id"})
	require.NotNil(t, err.Details())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConcurrency, cause, "stale swap version")
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, CodeConcurrency, wrapped.Code())

	// Wrapping nil is equivalent to New.
	require.Nil(t, Wrap(CodeLedger, nil, "no cause").Unwrap())
}

func TestAsAndHasCode(t *testing.T) {
	err := New(CodeLedger, "attestation timed out")
	typed := As(err)
	require.NotNil(t, typed)
	require.Equal(t, CodeLedger, typed.Code())
	require.Nil(t, As(nil))
	require.Nil(t, As(stdErrors.New("untyped")))

	rollback := Wrap(CodeRollback, stdErrors.New("restore swap"), "compensation failed")
	require.True(t, HasCode(rollback, CodeRollback))
	require.False(t, HasCode(rollback, CodeLedger))
	require.False(t, HasCode(nil, CodeRollback))
}

func TestNilReceiverAccessors(t *testing.T) {
	var err *Error
	require.Equal(t, CodeInternal, err.Code())
	require.Empty(t, err.Message())
	require.Nil(t, err.Details())
	require.Nil(t, err.WithDetails("ignored"))
	require.Empty(t, err.Error())
	require.Nil(t, err.Unwrap())
}
