package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/lucasbravon/swapstay-backend/pkg/db/types"
	"github.com/lucasbravon/swapstay-backend/pkg/enums"
)

// SwapCompletionAudit is the durable record of one completion attempt.
// It is created when the workflow starts, updated exactly once per phase
// transition, and never deleted by the core (retention jobs live elsewhere).
type SwapCompletionAudit struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProposalID  uuid.UUID            `gorm:"column:proposal_id;type:uuid;not null"`
	Kind        enums.CompletionKind `gorm:"column:kind;type:completion_kind_enum;not null"`
	InitiatedBy uuid.UUID            `gorm:"column:initiated_by;type:uuid;not null"`

	SwapIDs    dbtypes.UUIDArray `gorm:"column:swap_ids;type:uuid[];not null"`
	BookingIDs dbtypes.UUIDArray `gorm:"column:booking_ids;type:uuid[];not null"`

	DBTransactionID     uuid.UUID `gorm:"column:db_transaction_id;type:uuid;not null"`
	LedgerAttestationID *string   `gorm:"column:ledger_attestation_id"`

	Status enums.CompletionAuditStatus `gorm:"column:status;type:completion_audit_status_enum;not null;default:'initiated'"`

	PreValidation  json.RawMessage `gorm:"column:pre_validation;type:jsonb"`
	PostValidation json.RawMessage `gorm:"column:post_validation;type:jsonb"`

	RequiresManualIntervention bool    `gorm:"column:requires_manual_intervention;not null;default:false"`
	ErrorDetail                *string `gorm:"column:error_detail"`

	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
