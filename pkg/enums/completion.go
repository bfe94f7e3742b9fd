package enums

import "fmt"

// CompletionAuditStatus maps to the completion_audit_status_enum enum in Postgres.
type CompletionAuditStatus string

const (
	CompletionAuditInitiated  CompletionAuditStatus = "initiated"
	CompletionAuditCompleted  CompletionAuditStatus = "completed"
	CompletionAuditFailed     CompletionAuditStatus = "failed"
	CompletionAuditRolledBack CompletionAuditStatus = "rolled_back"
)

var validCompletionAuditStatuses = []CompletionAuditStatus{
	CompletionAuditInitiated,
	CompletionAuditCompleted,
	CompletionAuditFailed,
	CompletionAuditRolledBack,
}

// IsValid reports whether the value matches the canonical audit status enum.
func (s CompletionAuditStatus) IsValid() bool {
	for _, candidate := range validCompletionAuditStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the audit record admits no further phase updates.
func (s CompletionAuditStatus) IsTerminal() bool {
	return s != CompletionAuditInitiated
}

// ParseCompletionAuditStatus converts raw input into CompletionAuditStatus.
func ParseCompletionAuditStatus(value string) (CompletionAuditStatus, error) {
	for _, candidate := range validCompletionAuditStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid completion audit status %q", value)
}

// CompletionKind distinguishes the two exchange shapes.
type CompletionKind string

const (
	CompletionKindExchange CompletionKind = "booking_exchange"
	CompletionKindCash     CompletionKind = "cash_swap"
)

var validCompletionKinds = []CompletionKind{
	CompletionKindExchange,
	CompletionKindCash,
}

// IsValid reports whether the value matches the canonical completion kind enum.
func (k CompletionKind) IsValid() bool {
	for _, candidate := range validCompletionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// AttestationStatus is the ledger's answer when asked about a record.
type AttestationStatus string

const (
	AttestationPresent AttestationStatus = "present"
	AttestationAbsent  AttestationStatus = "absent"
	AttestationUnknown AttestationStatus = "unknown"
)
