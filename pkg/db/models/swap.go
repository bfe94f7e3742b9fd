package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/lucasbravon/swapstay-backend/pkg/db/types"
	"github.com/lucasbravon/swapstay-backend/pkg/enums"
)

// Swap is one party's listing of a booking as available for exchange.
//
// Completion metadata (CompletedAt, CompletedBy, LedgerAttestationID,
// SiblingSwapIDs) is written only by the completion workflow and is
// immutable once Status reaches completed. CompletedAt and
// LedgerAttestationID are always set together, never one without the other.
type Swap struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID        `gorm:"column:owner_id;type:uuid;not null"`
	BookingID uuid.UUID        `gorm:"column:booking_id;type:uuid;not null"`
	Status    enums.SwapStatus `gorm:"column:status;type:swap_status_enum;not null;default:'pending'"`

	CompletedAt         *time.Time        `gorm:"column:completed_at"`
	CompletedBy         *uuid.UUID        `gorm:"column:completed_by;type:uuid"`
	LedgerAttestationID *string           `gorm:"column:ledger_attestation_id"`
	SiblingSwapIDs      dbtypes.UUIDArray `gorm:"column:sibling_swap_ids;type:uuid[]"`

	// Version backs optimistic concurrency; every update must bump it.
	Version int `gorm:"column:version;not null;default:1"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
