package completion

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucasbravon/swapstay-backend/pkg/attest"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// LedgerClient is the slice of the attestation client the completion
// workflow depends on.
type LedgerClient interface {
	SubmitAttestation(ctx context.Context, changeSet attest.ChangeSet) (*attest.Attestation, error)
	GetAttestationStatus(ctx context.Context, referenceID uuid.UUID) (*attest.StatusResult, error)
}
