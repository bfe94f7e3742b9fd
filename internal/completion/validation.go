package completion

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucasbravon/swapstay-backend/internal/bookings"
	"github.com/lucasbravon/swapstay-backend/internal/proposals"
	"github.com/lucasbravon/swapstay-backend/internal/swaps"
	"github.com/lucasbravon/swapstay-backend/pkg/db/models"
	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
)

// Violation names one entity that failed a consistency check.
type Violation struct {
	EntityKind string    `json:"entity_kind"`
	EntityID   uuid.UUID `json:"entity_id"`
	Reason     string    `json:"reason"`
}

// ValidationResult is the outcome of a pre- or post-completion check.
type ValidationResult struct {
	Valid                      bool        `json:"valid"`
	Violations                 []Violation `json:"violations,omitempty"`
	RequiresManualIntervention bool        `json:"requires_manual_intervention,omitempty"`
}

func (r ValidationResult) violation(kind string, id uuid.UUID, format string, args ...any) ValidationResult {
	r.Valid = false
	r.Violations = append(r.Violations, Violation{
		EntityKind: kind,
		EntityID:   id,
		Reason:     fmt.Sprintf(format, args...),
	})
	return r
}

// ValidationService runs pure eligibility and consistency checks over entity
// snapshots. Nothing here touches storage except AttemptAutomaticCorrection,
// which re-applies a plan's terminal state in its own narrow transaction.
type ValidationService struct {
	tx        txRunner
	swaps     swaps.Repository
	bookings  bookings.Repository
	proposals proposals.Repository
}

// NewValidationService builds the validator with the stores the correction
// hook needs.
func NewValidationService(tx txRunner, swapRepo swaps.Repository, bookingRepo bookings.Repository, proposalRepo proposals.Repository) (*ValidationService, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if swapRepo == nil {
		return nil, fmt.Errorf("swap repository required")
	}
	if bookingRepo == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if proposalRepo == nil {
		return nil, fmt.Errorf("proposal repository required")
	}
	return &ValidationService{
		tx:        tx,
		swaps:     swapRepo,
		bookings:  bookingRepo,
		proposals: proposalRepo,
	}, nil
}

// ValidatePreCompletion checks that every entity in the snapshot is eligible
// for completion. Pure: safe to call repeatedly and concurrently.
func (v *ValidationService) ValidatePreCompletion(snapshot *EntitySnapshot) ValidationResult {
	result := ValidationResult{Valid: true}

	proposal := snapshot.Proposal
	if proposal.Status != enums.ProposalStatusPending {
		result = result.violation("proposal", proposal.ID, "proposal status is %s, want pending", proposal.Status)
	}

	if snapshot.TargetSwap.Status != enums.SwapStatusPending && snapshot.TargetSwap.Status != enums.SwapStatusAccepted {
		result = result.violation("swap", snapshot.TargetSwap.ID, "target swap status is %s", snapshot.TargetSwap.Status)
	}

	switch proposal.Kind {
	case enums.ProposalKindBooking:
		if snapshot.SourceSwap == nil || snapshot.SourceBooking == nil {
			result = result.violation("proposal", proposal.ID, "booking proposal has no source swap")
			break
		}
		if snapshot.SourceSwap.Status != enums.SwapStatusPending && snapshot.SourceSwap.Status != enums.SwapStatusAccepted {
			result = result.violation("swap", snapshot.SourceSwap.ID, "source swap status is %s", snapshot.SourceSwap.Status)
		}
		for _, booking := range snapshot.Bookings() {
			if booking.Status == enums.BookingStatusSwapped || booking.Status == enums.BookingStatusCancelled {
				result = result.violation("booking", booking.ID, "booking status is %s", booking.Status)
			}
		}
	case enums.ProposalKindCash:
		if proposal.PaymentRef == nil || *proposal.PaymentRef == "" {
			result = result.violation("proposal", proposal.ID, "cash proposal has no settled payment reference")
		}
		if proposal.CashAmount != nil {
			if !proposal.CashAmount.IsPositive() {
				result = result.violation("proposal", proposal.ID, "cash amount %s is not positive", proposal.CashAmount)
			}
			if proposal.CashCurrency == nil || *proposal.CashCurrency == "" {
				result = result.violation("proposal", proposal.ID, "cash amount has no currency")
			}
		}
		if snapshot.TargetBooking.Status == enums.BookingStatusSwapped || snapshot.TargetBooking.Status == enums.BookingStatusCancelled {
			result = result.violation("booking", snapshot.TargetBooking.ID, "booking status is %s", snapshot.TargetBooking.Status)
		}
	default:
		result = result.violation("proposal", proposal.ID, "unsupported proposal kind %s", proposal.Kind)
	}

	return result
}

// ValidatePostCompletion checks that the committed entities landed exactly on
// the plan's terminal state, including millisecond timestamp equality across
// swaps and bookings. Pure.
func (v *ValidationService) ValidatePostCompletion(snapshot *EntitySnapshot, plan *CompletionPlan) ValidationResult {
	result := ValidationResult{Valid: true}

	for _, swap := range snapshot.Swaps() {
		if swap.Status != enums.SwapStatusCompleted {
			result = result.violation("swap", swap.ID, "swap status is %s, want completed", swap.Status)
			continue
		}
		if swap.CompletedAt == nil || !swap.CompletedAt.Equal(plan.CompletedAt) {
			result = result.violation("swap", swap.ID, "swap completed_at does not match the plan")
		}
	}

	for _, booking := range snapshot.Bookings() {
		if booking.Status != enums.BookingStatusSwapped {
			result = result.violation("booking", booking.ID, "booking status is %s, want swapped", booking.Status)
			continue
		}
		if booking.SwappedAt == nil || !booking.SwappedAt.Equal(plan.CompletedAt) {
			result = result.violation("booking", booking.ID, "booking swapped_at does not match the plan")
		}
	}

	proposal := snapshot.Proposal
	if proposal.Status != enums.ProposalStatusCompleted && proposal.Status != enums.ProposalStatusAccepted {
		result = result.violation("proposal", proposal.ID, "proposal status is %s, want completed", proposal.Status)
	}

	return result
}

// AttemptAutomaticCorrection re-applies the plan's terminal state to exactly
// the offending entities inside a fresh transaction. Called at most once per
// audit record; a failure here flags the attempt for manual intervention.
func (v *ValidationService) AttemptAutomaticCorrection(ctx context.Context, plan *CompletionPlan, violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}

	offending := map[uuid.UUID]bool{}
	for _, violation := range violations {
		offending[violation.EntityID] = true
	}

	err := v.tx.WithTx(ctx, func(tx *gorm.DB) error {
		swapRepo := v.swaps.WithTx(tx)
		bookingRepo := v.bookings.WithTx(tx)
		proposalRepo := v.proposals.WithTx(tx)

		for _, planned := range plan.Snapshot.Swaps() {
			if !offending[planned.ID] {
				continue
			}
			current, err := swapRepo.FindByID(ctx, planned.ID)
			if err != nil {
				return err
			}
			target := cloneSwap(planned)
			if err := swapRepo.UpdateVersioned(ctx, target, current.Version); err != nil {
				return err
			}
		}

		for _, planned := range plan.Snapshot.Bookings() {
			if !offending[planned.ID] {
				continue
			}
			current, err := bookingRepo.FindByID(ctx, planned.ID)
			if err != nil {
				return err
			}
			target := cloneBooking(planned)
			if err := bookingRepo.UpdateVersioned(ctx, target, current.Version); err != nil {
				return err
			}
		}

		if offending[plan.Snapshot.Proposal.ID] {
			current, err := proposalRepo.FindByID(ctx, plan.Snapshot.Proposal.ID)
			if err != nil {
				return err
			}
			target := cloneProposal(plan.Snapshot.Proposal)
			if err := proposalRepo.UpdateVersioned(ctx, target, current.Version); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeConsistency, err, "automatic correction failed")
	}
	return nil
}

// ConsistencyReport is the result of an on-demand consistency check over
// arbitrary entity sets, used by support tooling.
type ConsistencyReport struct {
	Consistent bool        `json:"consistent"`
	Checked    int         `json:"checked"`
	Violations []Violation `json:"violations,omitempty"`
}

// checkTerminalConsistency applies the post-completion invariants to already
// terminal entities without a plan: completed swaps must carry completion
// metadata, swapped bookings must carry swap metadata, and attestation ids
// must never appear on non-completed swaps.
func checkTerminalConsistency(swaps []models.Swap, bookings []models.Booking, proposals []models.SwapProposal) ConsistencyReport {
	report := ConsistencyReport{Consistent: true}

	addViolation := func(kind string, id uuid.UUID, reason string) {
		report.Consistent = false
		report.Violations = append(report.Violations, Violation{EntityKind: kind, EntityID: id, Reason: reason})
	}

	for _, swap := range swaps {
		report.Checked++
		switch {
		case swap.Status == enums.SwapStatusCompleted && (swap.CompletedAt == nil || swap.LedgerAttestationID == nil):
			addViolation("swap", swap.ID, "completed swap missing completed_at or ledger attestation id")
		case swap.Status != enums.SwapStatusCompleted && swap.LedgerAttestationID != nil:
			addViolation("swap", swap.ID, "non-completed swap carries a ledger attestation id")
		}
	}

	for _, booking := range bookings {
		report.Checked++
		switch {
		case booking.Status == enums.BookingStatusSwapped && (booking.SwappedAt == nil || booking.CompletionID == nil):
			addViolation("booking", booking.ID, "swapped booking missing swap metadata")
		case booking.Status != enums.BookingStatusSwapped && booking.SwappedAt != nil:
			addViolation("booking", booking.ID, "non-swapped booking carries swap metadata")
		}
	}

	for _, proposal := range proposals {
		report.Checked++
		if proposal.Status == enums.ProposalStatusCompleted && proposal.RespondedAt == nil {
			addViolation("proposal", proposal.ID, "completed proposal missing responded_at")
		}
	}

	return report
}
