package completion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lucasbravon/swapstay-backend/internal/bookings"
	"github.com/lucasbravon/swapstay-backend/internal/proposals"
	"github.com/lucasbravon/swapstay-backend/internal/swaps"
	"github.com/lucasbravon/swapstay-backend/pkg/attest"
	"github.com/lucasbravon/swapstay-backend/pkg/db/models"
	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
)

func newTestRollbackManager(t *testing.T, txm *TransactionManager, ledger LedgerClient) *RollbackManager {
	t.Helper()
	mgr, err := NewRollbackManager(txm, ledger, newTestLogger(), newTestMetrics(), 2, 2, 0)
	require.NoError(t, err)
	return mgr
}

func testAudit(scn scenario) *models.SwapCompletionAudit {
	return &models.SwapCompletionAudit{
		ID:              uuid.New(),
		ProposalID:      scn.proposal.ID,
		Kind:            enums.CompletionKindExchange,
		InitiatedBy:     uuid.New(),
		DBTransactionID: uuid.New(),
		Status:          enums.CompletionAuditInitiated,
	}
}

func TestRollbackWorkflowLedgerPresent(t *testing.T) {
	db := setupCompletionDB(t)
	txm := newTestTxManager(t, db)
	scn := seedExchangeScenario(t, db)
	snapshot := scn.snapshot()

	ctx := context.Background()
	plan, err := buildPlan(snapshot, uuid.New(), time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, txm.ExecuteCompletionTransaction(ctx, snapshot, plan))

	ledger := &fakeLedger{statusResult: &attest.StatusResult{Status: enums.AttestationPresent, AttestationID: "att-recovered"}}
	mgr := newTestRollbackManager(t, txm, ledger)

	result, err := mgr.RollbackCompletionWorkflow(ctx, testAudit(scn), snapshot)
	require.NoError(t, err)
	assert.True(t, result.LedgerPresent)
	assert.Equal(t, "att-recovered", result.AttestationID)
	assert.Empty(t, result.RestoredSwaps)

	// The completion stands: no compensation ran.
	row, err := swaps.NewRepository(db).FindByID(ctx, scn.targetSwap.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SwapStatusCompleted, row.Status)
}

func TestRollbackWorkflowRestoresEntities(t *testing.T) {
	db := setupCompletionDB(t)
	txm := newTestTxManager(t, db)
	scn := seedExchangeScenario(t, db)
	snapshot := scn.snapshot()

	ctx := context.Background()
	plan, err := buildPlan(snapshot, uuid.New(), time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, txm.ExecuteCompletionTransaction(ctx, snapshot, plan))

	ledger := &fakeLedger{statusResult: &attest.StatusResult{Status: enums.AttestationAbsent}}
	mgr := newTestRollbackManager(t, txm, ledger)

	result, err := mgr.RollbackCompletionWorkflow(ctx, testAudit(scn), snapshot)
	require.NoError(t, err)
	assert.False(t, result.LedgerPresent)
	assert.False(t, result.RequiresManualIntervention)
	assert.ElementsMatch(t, []uuid.UUID{scn.targetSwap.ID, scn.sourceSwap.ID}, result.RestoredSwaps)
	assert.ElementsMatch(t, []uuid.UUID{scn.targetBooking.ID, scn.sourceBooking.ID}, result.RestoredBookings)

	row, err := bookings.NewRepository(db).FindByID(ctx, scn.targetBooking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusLocked, row.Status)
	assert.Equal(t, scn.targetBooking.OwnerID, row.OwnerID)

	proposalRow, err := proposals.NewRepository(db).FindByID(ctx, scn.proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ProposalStatusPending, proposalRow.Status)
}

func TestRollbackWorkflowUnknownStatusCompensates(t *testing.T) {
	db := setupCompletionDB(t)
	txm := newTestTxManager(t, db)
	scn := seedCashScenario(t, db)
	snapshot := scn.snapshot()

	ctx := context.Background()
	plan, err := buildPlan(snapshot, uuid.New(), time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, txm.ExecuteCompletionTransaction(ctx, snapshot, plan))

	// The ledger never answers definitively; after the recheck budget the
	// workflow must assume absent and compensate.
	ledger := &fakeLedger{statusResult: &attest.StatusResult{Status: enums.AttestationUnknown}}
	mgr := newTestRollbackManager(t, txm, ledger)

	result, err := mgr.RollbackCompletionWorkflow(ctx, testAudit(scn), snapshot)
	require.NoError(t, err)
	assert.False(t, result.LedgerPresent)
	assert.Equal(t, 2, ledger.statusCalls)

	row, err := swaps.NewRepository(db).FindByID(ctx, scn.targetSwap.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SwapStatusPending, row.Status)
}

// failingTxRunner fails every transaction after the ledger recheck, forcing
// the restore path to exhaust its budget.
type failingTxRunner struct{}

func (failingTxRunner) WithTx(context.Context, func(tx *gorm.DB) error) error {
	return errors.New("storage offline")
}

func TestRollbackWorkflowRestoreExhaustedFlagsManual(t *testing.T) {
	db := setupCompletionDB(t)
	scn := seedCashScenario(t, db)
	snapshot := scn.snapshot()

	txm, err := NewTransactionManager(
		failingTxRunner{},
		swaps.NewRepository(db),
		bookings.NewRepository(db),
		proposals.NewRepository(db),
		newTestLogger(),
		1,
		0,
	)
	require.NoError(t, err)

	ledger := &fakeLedger{statusResult: &attest.StatusResult{Status: enums.AttestationAbsent}}
	mgr := newTestRollbackManager(t, txm, ledger)

	result, err := mgr.RollbackCompletionWorkflow(context.Background(), testAudit(scn), snapshot)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeRollback))
	assert.True(t, result.RequiresManualIntervention)
	assert.NotEmpty(t, result.FailedEntities)
}
