package completion

import (
	"time"

	"github.com/google/uuid"

	"github.com/lucasbravon/swapstay-backend/pkg/db/models"
	dbtypes "github.com/lucasbravon/swapstay-backend/pkg/db/types"
	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
)

// CompletionPlan holds the exact terminal state for every entity one
// completion attempt touches. The entities inside still carry the version
// they were read at; the transaction manager uses that as the optimistic
// concurrency guard when applying the plan.
type CompletionPlan struct {
	Kind        enums.CompletionKind
	CompletedAt time.Time
	CompletedBy uuid.UUID
	Snapshot    *EntitySnapshot
}

// buildPlan derives the terminal state for the snapshot's entities. The plan
// is a mutated deep copy: the original snapshot stays pristine for rollback.
// CompletedAt is stamped verbatim on every affected swap and booking so the
// timestamps match to the millisecond.
func buildPlan(snapshot *EntitySnapshot, actingUserID uuid.UUID, completedAt time.Time) (*CompletionPlan, error) {
	switch snapshot.Proposal.Kind {
	case enums.ProposalKindBooking:
		return planExchange(snapshot, actingUserID, completedAt)
	case enums.ProposalKindCash:
		return planCashSwap(snapshot, actingUserID, completedAt)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported proposal kind")
	}
}

// planExchange plans a booking-for-booking completion: both swaps complete,
// both bookings swap ownership between the two prior owners.
func planExchange(snapshot *EntitySnapshot, actingUserID uuid.UUID, completedAt time.Time) (*CompletionPlan, error) {
	if snapshot.SourceSwap == nil || snapshot.SourceBooking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking proposal missing source swap or booking")
	}

	target := snapshot.Clone()

	targetOwner := target.TargetBooking.OwnerID
	sourceOwner := target.SourceBooking.OwnerID

	markSwapCompleted(target.TargetSwap, actingUserID, completedAt, []uuid.UUID{target.SourceSwap.ID})
	markSwapCompleted(target.SourceSwap, actingUserID, completedAt, []uuid.UUID{target.TargetSwap.ID})

	markBookingSwapped(target.TargetBooking, sourceOwner, targetOwner, completedAt)
	markBookingSwapped(target.SourceBooking, targetOwner, sourceOwner, completedAt)

	markProposalCompleted(target.Proposal, actingUserID, completedAt)

	return &CompletionPlan{
		Kind:        enums.CompletionKindExchange,
		CompletedAt: completedAt,
		CompletedBy: actingUserID,
		Snapshot:    target,
	}, nil
}

// planCashSwap plans a booking-for-cash completion: the single swap/booking
// pair reaches terminal state, ownership stays put (settlement is external).
func planCashSwap(snapshot *EntitySnapshot, actingUserID uuid.UUID, completedAt time.Time) (*CompletionPlan, error) {
	target := snapshot.Clone()

	markSwapCompleted(target.TargetSwap, actingUserID, completedAt, nil)
	markBookingSwapped(target.TargetBooking, target.TargetBooking.OwnerID, target.TargetBooking.OwnerID, completedAt)
	// Ownership unchanged: drop the prior-owner marker the helper set.
	target.TargetBooking.PriorOwnerID = nil
	markProposalCompleted(target.Proposal, actingUserID, completedAt)

	return &CompletionPlan{
		Kind:        enums.CompletionKindCash,
		CompletedAt: completedAt,
		CompletedBy: actingUserID,
		Snapshot:    target,
	}, nil
}

// SetLedgerAttestation stamps the recorded attestation id on every planned
// swap, so any later re-application of the plan keeps the completed-at and
// attestation pairing intact.
func (p *CompletionPlan) SetLedgerAttestation(attestationID string) {
	for _, swap := range p.Snapshot.Swaps() {
		id := attestationID
		swap.LedgerAttestationID = &id
	}
}

// SetCompletionID stamps the audit id on every planned booking so the row
// points back at the attempt that moved it.
func (p *CompletionPlan) SetCompletionID(auditID uuid.UUID) {
	for _, booking := range p.Snapshot.Bookings() {
		id := auditID
		booking.CompletionID = &id
	}
}

func markSwapCompleted(swap *models.Swap, actingUserID uuid.UUID, completedAt time.Time, siblings []uuid.UUID) {
	swap.Status = enums.SwapStatusCompleted
	at := completedAt
	swap.CompletedAt = &at
	by := actingUserID
	swap.CompletedBy = &by
	swap.SiblingSwapIDs = dbtypes.UUIDArray(siblings)
}

func markBookingSwapped(booking *models.Booking, newOwner, priorOwner uuid.UUID, completedAt time.Time) {
	booking.OwnerID = newOwner
	booking.Status = enums.BookingStatusSwapped
	at := completedAt
	booking.SwappedAt = &at
	prior := priorOwner
	booking.PriorOwnerID = &prior
}

func markProposalCompleted(proposal *models.SwapProposal, actingUserID uuid.UUID, completedAt time.Time) {
	proposal.Status = enums.ProposalStatusCompleted
	at := completedAt
	proposal.RespondedAt = &at
	by := actingUserID
	proposal.RespondedBy = &by
}
