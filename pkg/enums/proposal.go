package enums

import "fmt"

// ProposalStatus maps to the proposal_status_enum enum in Postgres.
type ProposalStatus string

const (
	ProposalStatusPending           ProposalStatus = "pending"
	ProposalStatusAccepted          ProposalStatus = "accepted"
	ProposalStatusRejected          ProposalStatus = "rejected"
	ProposalStatusPaymentProcessing ProposalStatus = "payment_processing"
	ProposalStatusCompleted         ProposalStatus = "completed"
)

var validProposalStatuses = []ProposalStatus{
	ProposalStatusPending,
	ProposalStatusAccepted,
	ProposalStatusRejected,
	ProposalStatusPaymentProcessing,
	ProposalStatusCompleted,
}

// IsValid reports whether the value matches the canonical proposal status enum.
func (s ProposalStatus) IsValid() bool {
	for _, candidate := range validProposalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProposalStatus converts raw input into ProposalStatus.
func ParseProposalStatus(value string) (ProposalStatus, error) {
	for _, candidate := range validProposalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid proposal status %q", value)
}

// ProposalKind maps to the proposal_kind_enum enum in Postgres.
type ProposalKind string

const (
	ProposalKindBooking ProposalKind = "booking"
	ProposalKindCash    ProposalKind = "cash"
)

var validProposalKinds = []ProposalKind{
	ProposalKindBooking,
	ProposalKindCash,
}

// IsValid reports whether the value matches the canonical proposal kind enum.
func (k ProposalKind) IsValid() bool {
	for _, candidate := range validProposalKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseProposalKind converts raw input into ProposalKind.
func ParseProposalKind(value string) (ProposalKind, error) {
	for _, candidate := range validProposalKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid proposal kind %q", value)
}
