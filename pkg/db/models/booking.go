package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lucasbravon/swapstay-backend/pkg/enums"
)

// Booking is a reserved inventory item owned by exactly one user at a time.
//
// Invariant: Status is swapped if and only if SwappedAt is set; an ownership
// transfer is recorded atomically with the status change (PriorOwnerID keeps
// the owner the booking left behind, CompletionID the audit record that
// moved it).
type Booking struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID           `gorm:"column:owner_id;type:uuid;not null"`
	Reference string              `gorm:"column:reference;not null"`
	Status    enums.BookingStatus `gorm:"column:status;type:booking_status_enum;not null;default:'available'"`

	CheckIn  time.Time `gorm:"column:check_in;not null"`
	CheckOut time.Time `gorm:"column:check_out;not null"`

	SwappedAt    *time.Time `gorm:"column:swapped_at"`
	PriorOwnerID *uuid.UUID `gorm:"column:prior_owner_id;type:uuid"`
	CompletionID *uuid.UUID `gorm:"column:completion_id;type:uuid"`

	Version int `gorm:"column:version;not null;default:1"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
