package enums

import "fmt"

// BookingStatus maps to the booking_status_enum enum in Postgres.
type BookingStatus string

const (
	BookingStatusAvailable BookingStatus = "available"
	BookingStatusLocked    BookingStatus = "locked"
	BookingStatusSwapped   BookingStatus = "swapped"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusAvailable,
	BookingStatusLocked,
	BookingStatusSwapped,
	BookingStatusCancelled,
}

// IsValid reports whether the value matches the canonical booking status enum.
func (s BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Exchangeable reports whether a booking in this status may still enter an exchange.
func (s BookingStatus) Exchangeable() bool {
	return s == BookingStatusAvailable || s == BookingStatusLocked
}

// ParseBookingStatus converts raw input into BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}
