package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucasbravon/swapstay-backend/internal/bookings"
	"github.com/lucasbravon/swapstay-backend/internal/proposals"
	"github.com/lucasbravon/swapstay-backend/internal/swaps"
	"github.com/lucasbravon/swapstay-backend/pkg/attest"
	"github.com/lucasbravon/swapstay-backend/pkg/config"
	"github.com/lucasbravon/swapstay-backend/pkg/db/models"
	dbtypes "github.com/lucasbravon/swapstay-backend/pkg/db/types"
	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
	"github.com/lucasbravon/swapstay-backend/pkg/logger"
	"github.com/lucasbravon/swapstay-backend/pkg/metrics"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox/payloads"
)

// CompletionResult is what a caller gets back from a successful (or
// idempotently short-circuited) completion.
type CompletionResult struct {
	AuditID             uuid.UUID            `json:"audit_id"`
	Proposal            *models.SwapProposal `json:"proposal"`
	Swaps               []models.Swap        `json:"swaps"`
	Bookings            []models.Booking     `json:"bookings"`
	LedgerAttestationID string               `json:"ledger_attestation_id"`
	CompletedAt         time.Time            `json:"completed_at"`
	AlreadyCompleted    bool                 `json:"already_completed"`
}

// CompletionStatus summarizes where a swap sits in the completion lifecycle.
type CompletionStatus struct {
	SwapID                     uuid.UUID                    `json:"swap_id"`
	SwapStatus                 enums.SwapStatus             `json:"swap_status"`
	CompletedAt                *time.Time                   `json:"completed_at,omitempty"`
	LedgerAttestationID        *string                      `json:"ledger_attestation_id,omitempty"`
	AuditID                    *uuid.UUID                   `json:"audit_id,omitempty"`
	AuditStatus                *enums.CompletionAuditStatus `json:"audit_status,omitempty"`
	RequiresManualIntervention bool                         `json:"requires_manual_intervention"`
}

// Service orchestrates the swap completion workflow end to end: identify,
// validate, commit, attest, verify, audit.
type Service interface {
	AcceptProposalWithCompletion(ctx context.Context, proposalID, actingUserID uuid.UUID) (*CompletionResult, error)
	GetCompletionStatus(ctx context.Context, swapID uuid.UUID) (*CompletionStatus, error)
	GetCompletionAudit(ctx context.Context, completionID uuid.UUID) (*models.SwapCompletionAudit, error)
	ListManualInterventionAudits(ctx context.Context, limit int) ([]models.SwapCompletionAudit, error)
	ValidateCompletionConsistency(ctx context.Context, swapIDs, bookingIDs, proposalIDs []uuid.UUID) (*ConsistencyReport, error)
}

type service struct {
	tx        txRunner
	swaps     swaps.Repository
	bookings  bookings.Repository
	proposals proposals.Repository
	audits    AuditRepository
	validator *ValidationService
	txm       *TransactionManager
	rollback  *RollbackManager
	ledger    LedgerClient
	outbox    outboxPublisher
	logg      *logger.Logger
	metrics   *metrics.CompletionMetrics

	maxAttempts  int
	retryBackoff time.Duration
	clock        func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewService validates every dependency and builds the orchestrator.
func NewService(
	cfg config.CompletionConfig,
	tx txRunner,
	swapRepo swaps.Repository,
	bookingRepo bookings.Repository,
	proposalRepo proposals.Repository,
	auditRepo AuditRepository,
	validator *ValidationService,
	txm *TransactionManager,
	rollbackMgr *RollbackManager,
	ledger LedgerClient,
	publisher outboxPublisher,
	logg *logger.Logger,
	completionMetrics *metrics.CompletionMetrics,
) (Service, error) {
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
	if auditRepo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if validator == nil {
		return nil, fmt.Errorf("validation service required")
	}
	if txm == nil {
		return nil, fmt.Errorf("transaction manager required")
	}
	if rollbackMgr == nil {
		return nil, fmt.Errorf("rollback manager required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger client required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxAttempts := cfg.TxMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &service{
		tx:           tx,
		swaps:        swapRepo,
		bookings:     bookingRepo,
		proposals:    proposalRepo,
		audits:       auditRepo,
		validator:    validator,
		txm:          txm,
		rollback:     rollbackMgr,
		ledger:       ledger,
		outbox:       publisher,
		logg:         logg,
		metrics:      completionMetrics,
		maxAttempts:  maxAttempts,
		retryBackoff: cfg.TxRetryBackoff,
		clock:        time.Now,
		sleep:        sleepCtx,
	}, nil
}

// AcceptProposalWithCompletion runs the whole workflow for a proposal. A
// version conflict restarts the attempt from identification, each restart
// under its own audit record, bounded by the configured attempt budget.
func (s *service) AcceptProposalWithCompletion(ctx context.Context, proposalID, actingUserID uuid.UUID) (*CompletionResult, error) {
	if proposalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proposal id is required")
	}
	if actingUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "acting user id is required")
	}
	ctx = s.logg.WithProposalID(ctx, proposalID.String())

	if result, err := s.findExistingCompletion(ctx, proposalID); err != nil {
		return nil, err
	} else if result != nil {
		s.logg.Info(ctx, "completion already recorded for proposal, returning existing result")
		return result, nil
	}

	started := s.clock()
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		result, err := s.attemptCompletion(ctx, proposalID, actingUserID)
		if err == nil {
			s.metrics.ObserveDuration(string(result.Proposal.Kind), s.clock().Sub(started))
			s.metrics.IncOutcome(string(result.Proposal.Kind), string(enums.CompletionAuditCompleted))
			return result, nil
		}
		lastErr = err
		if !pkgerrors.HasCode(err, pkgerrors.CodeConcurrency) {
			return nil, err
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "completion lost a version race, retrying from identification")
		if attempt < s.maxAttempts {
			if sleepErr := s.sleep(ctx, s.retryBackoff*time.Duration(attempt)); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeConcurrency, lastErr, "completion abandoned after repeated version conflicts")
}

// findExistingCompletion returns a result built from the newest completed
// audit for the proposal, or nil when no attempt ever finished. This is the
// idempotency short-circuit: a retried accept never mutates anything.
func (s *service) findExistingCompletion(ctx context.Context, proposalID uuid.UUID) (*CompletionResult, error) {
	audit, err := s.audits.FindCompletedByProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if audit == nil {
		return nil, nil
	}

	proposal, err := s.proposals.FindByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	swapRows, err := s.swaps.FindByIDs(ctx, audit.SwapIDs)
	if err != nil {
		return nil, err
	}
	bookingRows, err := s.bookings.FindByIDs(ctx, audit.BookingIDs)
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{
		AuditID:          audit.ID,
		Proposal:         proposal,
		Swaps:            swapRows,
		Bookings:         bookingRows,
		AlreadyCompleted: true,
	}
	if audit.LedgerAttestationID != nil {
		result.LedgerAttestationID = *audit.LedgerAttestationID
	}
	if audit.CompletedAt != nil {
		result.CompletedAt = *audit.CompletedAt
	}
	return result, nil
}

func (s *service) attemptCompletion(ctx context.Context, proposalID, actingUserID uuid.UUID) (*CompletionResult, error) {
	snapshot, err := s.identifyRelatedEntities(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	preResult := s.validator.ValidatePreCompletion(snapshot)
	if !preResult.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("completion pre-validation failed: %s", describeViolations(preResult.Violations)))
	}

	// One timestamp for the whole attempt, millisecond precision.
	completedAt := s.clock().UTC().Truncate(time.Millisecond)

	plan, err := buildPlan(snapshot, actingUserID, completedAt)
	if err != nil {
		return nil, err
	}

	audit, err := s.createAudit(ctx, snapshot, plan, actingUserID, preResult)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithAuditID(ctx, audit.ID.String())
	plan.SetCompletionID(audit.ID)

	if err := s.txm.ExecuteCompletionTransaction(ctx, snapshot, plan); err != nil {
		// Nothing committed, so no compensation is needed.
		s.finalizeAudit(ctx, audit, enums.CompletionAuditFailed, nil, false, err)
		if !pkgerrors.HasCode(err, pkgerrors.CodeConcurrency) {
			s.metrics.IncOutcome(string(plan.Kind), string(enums.CompletionAuditFailed))
		}
		return nil, err
	}
	s.logg.Info(ctx, "completion transaction committed")

	attestationID, err := s.recordAttestation(ctx, audit, snapshot, plan)
	if err != nil {
		return nil, err
	}
	plan.SetLedgerAttestation(attestationID)

	if err := s.stampAttestation(ctx, plan, attestationID); err != nil {
		// The ledger holds the record, so compensating here would orphan it.
		s.finalizeAudit(ctx, audit, enums.CompletionAuditFailed, nil, true, err)
		s.metrics.IncOutcome(string(plan.Kind), string(enums.CompletionAuditFailed))
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to stamp ledger attestation on swaps")
	}

	committed, postResult, err := s.verifyCommittedState(ctx, snapshot, plan)
	if err != nil {
		s.finalizeAudit(ctx, audit, enums.CompletionAuditFailed, marshalValidation(postResult), true, err)
		s.metrics.IncOutcome(string(plan.Kind), string(enums.CompletionAuditFailed))
		return nil, err
	}

	audit.Status = enums.CompletionAuditCompleted
	audit.LedgerAttestationID = &attestationID
	audit.PostValidation = marshalValidation(postResult)
	audit.CompletedAt = &completedAt
	if err := s.completeAudit(ctx, audit, actingUserID); err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "swap completion finished")

	return &CompletionResult{
		AuditID:             audit.ID,
		Proposal:            committed.Proposal,
		Swaps:               dereferenceSwaps(committed.Swaps()),
		Bookings:            dereferenceBookings(committed.Bookings()),
		LedgerAttestationID: attestationID,
		CompletedAt:         completedAt,
	}, nil
}

// identifyRelatedEntities loads the proposal and every entity its completion
// touches inside one read transaction, so the versions form a consistent cut.
func (s *service) identifyRelatedEntities(ctx context.Context, proposalID uuid.UUID) (*EntitySnapshot, error) {
	var snapshot EntitySnapshot
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		proposalRepo := s.proposals.WithTx(tx)
		swapRepo := s.swaps.WithTx(tx)
		bookingRepo := s.bookings.WithTx(tx)

		proposal, err := proposalRepo.FindByID(ctx, proposalID)
		if err != nil {
			return err
		}
		snapshot.Proposal = proposal

		targetSwap, err := swapRepo.FindByID(ctx, proposal.SwapID)
		if err != nil {
			return err
		}
		snapshot.TargetSwap = targetSwap

		targetBooking, err := bookingRepo.FindByID(ctx, targetSwap.BookingID)
		if err != nil {
			return err
		}
		snapshot.TargetBooking = targetBooking

		if proposal.Kind == enums.ProposalKindBooking {
			if proposal.SourceSwapID == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "booking proposal has no source swap")
			}
			sourceSwap, err := swapRepo.FindByID(ctx, *proposal.SourceSwapID)
			if err != nil {
				return err
			}
			snapshot.SourceSwap = sourceSwap

			sourceBooking, err := bookingRepo.FindByID(ctx, sourceSwap.BookingID)
			if err != nil {
				return err
			}
			snapshot.SourceBooking = sourceBooking
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *service) createAudit(ctx context.Context, snapshot *EntitySnapshot, plan *CompletionPlan, actingUserID uuid.UUID, preResult ValidationResult) (*models.SwapCompletionAudit, error) {
	audit := &models.SwapCompletionAudit{
		ID:              uuid.New(),
		ProposalID:      snapshot.Proposal.ID,
		Kind:            plan.Kind,
		InitiatedBy:     actingUserID,
		SwapIDs:         dbtypes.UUIDArray(snapshot.SwapIDs()),
		BookingIDs:      dbtypes.UUIDArray(snapshot.BookingIDs()),
		DBTransactionID: uuid.New(),
		Status:          enums.CompletionAuditInitiated,
		PreValidation:   marshalValidation(&preResult),
	}
	if err := s.audits.Create(ctx, audit); err != nil {
		return nil, err
	}
	return audit, nil
}

// recordAttestation submits the change set to the ledger. On failure it runs
// the rollback workflow: a present attestation turns the failure into a
// success, a clean restore surfaces a ledger error, and a failed restore is
// flagged for manual intervention.
func (s *service) recordAttestation(ctx context.Context, audit *models.SwapCompletionAudit, snapshot *EntitySnapshot, plan *CompletionPlan) (string, error) {
	attestation, err := s.ledger.SubmitAttestation(ctx, buildChangeSet(audit, plan))
	if err == nil {
		return attestation.AttestationID, nil
	}
	s.logg.Error(ctx, "ledger attestation failed, starting rollback workflow", err)

	rbResult, rbErr := s.rollback.RollbackCompletionWorkflow(ctx, audit, snapshot)
	if rbResult != nil && rbResult.LedgerPresent {
		return rbResult.AttestationID, nil
	}
	if rbErr != nil {
		s.finalizeAudit(ctx, audit, enums.CompletionAuditFailed, nil, true, rbErr)
		s.metrics.IncOutcome(string(plan.Kind), string(enums.CompletionAuditFailed))
		return "", rbErr
	}
	s.finalizeAudit(ctx, audit, enums.CompletionAuditRolledBack, nil, false, err)
	s.metrics.IncOutcome(string(plan.Kind), string(enums.CompletionAuditRolledBack))
	return "", pkgerrors.Wrap(pkgerrors.CodeLedger, err, "ledger attestation failed, completion rolled back")
}

// stampAttestation writes the attestation id onto every completed swap in a
// follow-up transaction, keeping the completed-at/attestation pairing intact
// at terminal states.
func (s *service) stampAttestation(ctx context.Context, plan *CompletionPlan, attestationID string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		swapRepo := s.swaps.WithTx(tx)
		for _, planned := range plan.Snapshot.Swaps() {
			current, err := swapRepo.FindByID(ctx, planned.ID)
			if err != nil {
				return err
			}
			id := attestationID
			current.LedgerAttestationID = &id
			if err := swapRepo.UpdateVersioned(ctx, current, current.Version); err != nil {
				return err
			}
		}
		return nil
	})
}

// verifyCommittedState re-reads the committed entities and checks them against
// the plan. A violation gets exactly one automatic correction attempt; if the
// state still diverges the attempt is flagged for manual intervention. No
// rollback happens here: the ledger already holds the attestation.
func (s *service) verifyCommittedState(ctx context.Context, snapshot *EntitySnapshot, plan *CompletionPlan) (*EntitySnapshot, *ValidationResult, error) {
	committed, err := s.identifyRelatedEntities(ctx, snapshot.Proposal.ID)
	if err != nil {
		return nil, nil, err
	}
	postResult := s.validator.ValidatePostCompletion(committed, plan)
	if postResult.Valid {
		return committed, &postResult, nil
	}

	s.logg.Warn(ctx, "post-completion validation found inconsistencies, attempting automatic correction")
	if err := s.validator.AttemptAutomaticCorrection(ctx, plan, postResult.Violations); err != nil {
		postResult.RequiresManualIntervention = true
		return nil, &postResult, pkgerrors.Wrap(pkgerrors.CodeConsistency, err, "post-completion state is inconsistent and automatic correction failed")
	}

	committed, err = s.identifyRelatedEntities(ctx, snapshot.Proposal.ID)
	if err != nil {
		return nil, nil, err
	}
	corrected := s.validator.ValidatePostCompletion(committed, plan)
	if !corrected.Valid {
		corrected.RequiresManualIntervention = true
		return nil, &corrected, pkgerrors.New(pkgerrors.CodeConsistency,
			fmt.Sprintf("post-completion state is inconsistent after correction: %s", describeViolations(corrected.Violations)))
	}
	return committed, &corrected, nil
}

// completeAudit moves the audit to completed and queues the terminal event in
// the same transaction. The event is deduplicated per audit aggregate, so a
// replay of the same attempt never double-publishes.
func (s *service) completeAudit(ctx context.Context, audit *models.SwapCompletionAudit, actingUserID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.audits.WithTx(tx).Update(ctx, audit); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, s.terminalEvent(audit, actingUserID))
	})
}

// finalizeAudit records a terminal failure (or rollback) on the audit and
// queues the status event. Failures here are logged, not returned: the
// original workflow error is what the caller needs to see.
func (s *service) finalizeAudit(ctx context.Context, audit *models.SwapCompletionAudit, status enums.CompletionAuditStatus, postValidation json.RawMessage, manual bool, cause error) {
	audit.Status = status
	audit.RequiresManualIntervention = manual
	if postValidation != nil {
		audit.PostValidation = postValidation
	}
	if cause != nil {
		detail := cause.Error()
		audit.ErrorDetail = &detail
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.audits.WithTx(tx).Update(ctx, audit); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, s.terminalEvent(audit, audit.InitiatedBy))
	})
	if err != nil {
		s.logg.Error(ctx, "failed to record terminal audit status", err)
	}
	if manual {
		s.logg.Warn(ctx, "completion flagged for manual intervention")
	}
}

func (s *service) terminalEvent(audit *models.SwapCompletionAudit, actingUserID uuid.UUID) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventCompletionStatusChanged,
		AggregateType: enums.AggregateCompletion,
		AggregateID:   audit.ID,
		Actor:         &outbox.ActorRef{UserID: actingUserID, Role: "system"},
		Data: payloads.CompletionStatusChangedEvent{
			AuditID:                    audit.ID,
			ProposalID:                 audit.ProposalID,
			Kind:                       audit.Kind,
			Status:                     audit.Status,
			SwapIDs:                    []uuid.UUID(audit.SwapIDs),
			BookingIDs:                 []uuid.UUID(audit.BookingIDs),
			LedgerAttestationID:        audit.LedgerAttestationID,
			RequiresManualIntervention: audit.RequiresManualIntervention,
			CompletedAt:                audit.CompletedAt,
		},
		Version: 1,
	}
}

// GetCompletionStatus reports the completion lifecycle position of a swap,
// resolving the audit through the booking the swap listed.
func (s *service) GetCompletionStatus(ctx context.Context, swapID uuid.UUID) (*CompletionStatus, error) {
	swap, err := s.swaps.FindByID(ctx, swapID)
	if err != nil {
		return nil, err
	}

	status := &CompletionStatus{
		SwapID:              swap.ID,
		SwapStatus:          swap.Status,
		CompletedAt:         swap.CompletedAt,
		LedgerAttestationID: swap.LedgerAttestationID,
	}

	booking, err := s.bookings.FindByID(ctx, swap.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.CompletionID == nil {
		return status, nil
	}

	audit, err := s.audits.FindByID(ctx, *booking.CompletionID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return status, nil
		}
		return nil, err
	}
	status.AuditID = &audit.ID
	status.AuditStatus = &audit.Status
	status.RequiresManualIntervention = audit.RequiresManualIntervention
	return status, nil
}

// GetCompletionAudit returns one audit record by id.
func (s *service) GetCompletionAudit(ctx context.Context, completionID uuid.UUID) (*models.SwapCompletionAudit, error) {
	return s.audits.FindByID(ctx, completionID)
}

// ListManualInterventionAudits returns the most recent audits stuck on
// manual intervention, newest first.
func (s *service) ListManualInterventionAudits(ctx context.Context, limit int) ([]models.SwapCompletionAudit, error) {
	return s.audits.ListManualIntervention(ctx, limit)
}

// ValidateCompletionConsistency runs the terminal-state invariants over
// arbitrary entity sets for support tooling. Read-only.
func (s *service) ValidateCompletionConsistency(ctx context.Context, swapIDs, bookingIDs, proposalIDs []uuid.UUID) (*ConsistencyReport, error) {
	swapRows, err := s.swaps.FindByIDs(ctx, swapIDs)
	if err != nil {
		return nil, err
	}
	bookingRows, err := s.bookings.FindByIDs(ctx, bookingIDs)
	if err != nil {
		return nil, err
	}
	proposalRows, err := s.proposals.FindByIDs(ctx, proposalIDs)
	if err != nil {
		return nil, err
	}
	report := checkTerminalConsistency(swapRows, bookingRows, proposalRows)
	return &report, nil
}

func buildChangeSet(audit *models.SwapCompletionAudit, plan *CompletionPlan) attest.ChangeSet {
	changeSet := attest.ChangeSet{
		ReferenceID: audit.DBTransactionID,
		ProposalID:  audit.ProposalID,
		Kind:        plan.Kind,
		CompletedAt: plan.CompletedAt,
	}
	for _, swap := range plan.Snapshot.Swaps() {
		changeSet.Swaps = append(changeSet.Swaps, attest.SwapChange{
			SwapID:      swap.ID,
			OwnerID:     swap.OwnerID,
			Status:      string(swap.Status),
			FromVersion: swap.Version,
			ToVersion:   swap.Version + 1,
		})
	}
	for _, booking := range plan.Snapshot.Bookings() {
		changeSet.Bookings = append(changeSet.Bookings, attest.BookingChange{
			BookingID:   booking.ID,
			OwnerID:     booking.OwnerID,
			PriorOwner:  booking.PriorOwnerID,
			Status:      string(booking.Status),
			FromVersion: booking.Version,
			ToVersion:   booking.Version + 1,
		})
	}
	if proposal := plan.Snapshot.Proposal; plan.Kind == enums.CompletionKindCash && proposal.PaymentRef != nil {
		settlement := &attest.CashSettlement{PaymentRef: *proposal.PaymentRef}
		if proposal.CashAmount != nil {
			settlement.Amount = *proposal.CashAmount
		}
		if proposal.CashCurrency != nil {
			settlement.Currency = *proposal.CashCurrency
		}
		changeSet.Settlement = settlement
	}
	return changeSet
}

func marshalValidation(result *ValidationResult) json.RawMessage {
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil
	}
	return raw
}

func describeViolations(violations []Violation) string {
	if len(violations) == 0 {
		return "no violations reported"
	}
	out := ""
	for i, violation := range violations {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%s %s: %s", violation.EntityKind, violation.EntityID, violation.Reason)
	}
	return out
}

func dereferenceSwaps(in []*models.Swap) []models.Swap {
	out := make([]models.Swap, 0, len(in))
	for _, swap := range in {
		out = append(out, *swap)
	}
	return out
}

func dereferenceBookings(in []*models.Booking) []models.Booking {
	out := make([]models.Booking, 0, len(in))
	for _, booking := range in {
		out = append(out, *booking)
	}
	return out
}
