package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/lucasbravon/swapstay-backend/pkg/db/models"
	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
	"github.com/lucasbravon/swapstay-backend/pkg/logger"
	"github.com/lucasbravon/swapstay-backend/pkg/metrics"
)

// RollbackResult reports what a compensation attempt accomplished.
type RollbackResult struct {
	// LedgerPresent is true when the status re-query found the attestation
	// was actually recorded. The caller must treat the completion as
	// successful and must not compensate.
	LedgerPresent              bool        `json:"ledger_present"`
	AttestationID              string      `json:"attestation_id,omitempty"`
	RestoredSwaps              []uuid.UUID `json:"restored_swaps,omitempty"`
	RestoredBookings           []uuid.UUID `json:"restored_bookings,omitempty"`
	FailedEntities             []uuid.UUID `json:"failed_entities,omitempty"`
	RequiresManualIntervention bool        `json:"requires_manual_intervention"`
}

// RollbackManager compensates the window where the database transaction
// committed but the ledger attestation failed. It always re-queries the
// ledger first: a submission that timed out may still have been recorded,
// and compensating a recorded completion would orphan the ledger entry.
type RollbackManager struct {
	txm     *TransactionManager
	ledger  LedgerClient
	logg    *logger.Logger
	metrics *metrics.CompletionMetrics

	statusRechecks  int
	restoreAttempts int
	recheckBackoff  time.Duration
	sleep           func(ctx context.Context, d time.Duration) error
}

// NewRollbackManager validates dependencies and builds the manager.
func NewRollbackManager(txm *TransactionManager, ledger LedgerClient, logg *logger.Logger, completionMetrics *metrics.CompletionMetrics, statusRechecks, restoreAttempts int, recheckBackoff time.Duration) (*RollbackManager, error) {
	if txm == nil {
		return nil, fmt.Errorf("transaction manager required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if statusRechecks < 1 {
		statusRechecks = 1
	}
	if restoreAttempts < 1 {
		restoreAttempts = 1
	}
	return &RollbackManager{
		txm:             txm,
		ledger:          ledger,
		logg:            logg,
		metrics:         completionMetrics,
		statusRechecks:  statusRechecks,
		restoreAttempts: restoreAttempts,
		recheckBackoff:  recheckBackoff,
		sleep:           sleepCtx,
	}, nil
}

// RollbackCompletionWorkflow handles a failed ledger attestation for an
// already-committed completion transaction.
//
// It first re-queries the attestation status by the reference id the change
// set was submitted under. Present means the failure was only apparent, so
// the caller proceeds as a success. Absent (or still unknown after the
// recheck budget) triggers the compensating transaction, bounded by
// restoreAttempts. A compensation that ultimately fails returns a result
// flagged for manual intervention together with a ROLLBACK_FAILED error.
func (m *RollbackManager) RollbackCompletionWorkflow(ctx context.Context, audit *models.SwapCompletionAudit, snapshot *EntitySnapshot) (*RollbackResult, error) {
	ctx = m.logg.WithAuditID(ctx, audit.ID.String())

	status := m.recheckLedger(ctx, audit.DBTransactionID)
	if status.Status == enums.AttestationPresent {
		m.logg.Info(ctx, "ledger attestation found on recheck, treating completion as successful")
		m.metrics.IncRollback("ledger_present")
		return &RollbackResult{
			LedgerPresent: true,
			AttestationID: status.AttestationID,
		}, nil
	}

	var restoreErr error
	for attempt := 1; attempt <= m.restoreAttempts; attempt++ {
		err := m.txm.RollbackCompletionTransaction(ctx, snapshot)
		if err == nil {
			m.logg.Info(ctx, "completion rolled back")
			m.metrics.IncRollback("restored")
			return &RollbackResult{
				RestoredSwaps:    snapshot.SwapIDs(),
				RestoredBookings: snapshot.BookingIDs(),
			}, nil
		}
		restoreErr = multierr.Append(restoreErr, err)
		m.logg.Error(m.logg.WithField(ctx, "attempt", attempt), "completion rollback attempt failed", err)
		if attempt < m.restoreAttempts {
			if sleepErr := m.sleep(ctx, m.recheckBackoff*time.Duration(attempt)); sleepErr != nil {
				restoreErr = multierr.Append(restoreErr, sleepErr)
				break
			}
		}
	}

	m.metrics.IncRollback("failed")
	result := &RollbackResult{
		FailedEntities:             append(snapshot.SwapIDs(), snapshot.BookingIDs()...),
		RequiresManualIntervention: true,
	}
	return result, pkgerrors.Wrap(pkgerrors.CodeRollback, restoreErr, "completion rollback failed, manual intervention required")
}

// recheckLedger polls the attestation status until it is definitively present
// or absent, or the recheck budget runs out. Unknown after the budget is
// treated as absent so compensation proceeds; the reference id keeps a later
// manual reconciliation possible.
func (m *RollbackManager) recheckLedger(ctx context.Context, referenceID uuid.UUID) *attestStatus {
	for attempt := 1; attempt <= m.statusRechecks; attempt++ {
		status, err := m.ledger.GetAttestationStatus(ctx, referenceID)
		if err == nil && status != nil && status.Status != enums.AttestationUnknown {
			return &attestStatus{Status: status.Status, AttestationID: status.AttestationID}
		}
		if attempt < m.statusRechecks {
			if sleepErr := m.sleep(ctx, m.recheckBackoff*time.Duration(attempt)); sleepErr != nil {
				break
			}
		}
	}
	m.logg.Warn(m.logg.WithField(ctx, "reference_id", referenceID.String()), "ledger attestation status still unknown, treating as absent")
	return &attestStatus{Status: enums.AttestationAbsent}
}

type attestStatus struct {
	Status        enums.AttestationStatus
	AttestationID string
}
