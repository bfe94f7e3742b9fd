package enums

import "fmt"

// SwapStatus maps to the swap_status_enum enum in Postgres.
type SwapStatus string

const (
	SwapStatusPending    SwapStatus = "pending"
	SwapStatusAccepted   SwapStatus = "accepted"
	SwapStatusCompleted  SwapStatus = "completed"
	SwapStatusCancelled  SwapStatus = "cancelled"
	SwapStatusRolledBack SwapStatus = "rolled_back"
)

var validSwapStatuses = []SwapStatus{
	SwapStatusPending,
	SwapStatusAccepted,
	SwapStatusCompleted,
	SwapStatusCancelled,
	SwapStatusRolledBack,
}

// IsValid reports whether the value matches the canonical swap status enum.
func (s SwapStatus) IsValid() bool {
	for _, candidate := range validSwapStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s SwapStatus) IsTerminal() bool {
	return s == SwapStatusCompleted || s == SwapStatusCancelled || s == SwapStatusRolledBack
}

// ParseSwapStatus converts raw input into SwapStatus.
func ParseSwapStatus(value string) (SwapStatus, error) {
	for _, candidate := range validSwapStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid swap status %q", value)
}
