package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/lucasbravon/swapstay-backend/pkg/enums"
)

// CompletionStatusChangedEvent is emitted when a completion audit reaches a terminal status.
type CompletionStatusChangedEvent struct {
	AuditID                    uuid.UUID                   `json:"audit_id"`
	ProposalID                 uuid.UUID                   `json:"proposal_id"`
	Kind                       enums.CompletionKind        `json:"kind"`
	Status                     enums.CompletionAuditStatus `json:"status"`
	SwapIDs                    []uuid.UUID                 `json:"swap_ids"`
	BookingIDs                 []uuid.UUID                 `json:"booking_ids"`
	LedgerAttestationID        *string                     `json:"ledger_attestation_id,omitempty"`
	RequiresManualIntervention bool                        `json:"requires_manual_intervention"`
	CompletedAt                *time.Time                  `json:"completed_at,omitempty"`
}
