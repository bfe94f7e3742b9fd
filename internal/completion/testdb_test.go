package completion

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lucasbravon/swapstay-backend/internal/bookings"
	"github.com/lucasbravon/swapstay-backend/internal/proposals"
	"github.com/lucasbravon/swapstay-backend/internal/swaps"
	"github.com/lucasbravon/swapstay-backend/pkg/attest"
	"github.com/lucasbravon/swapstay-backend/pkg/db/models"
	dbtypes "github.com/lucasbravon/swapstay-backend/pkg/db/types"
	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	"github.com/lucasbravon/swapstay-backend/pkg/logger"
	"github.com/lucasbravon/swapstay-backend/pkg/metrics"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox"
)

func setupCompletionDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS bookings (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  reference TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'available',
  check_in DATETIME NOT NULL,
  check_out DATETIME NOT NULL,
  swapped_at DATETIME,
  prior_owner_id TEXT,
  completion_id TEXT,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS swaps (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  booking_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  completed_at DATETIME,
  completed_by TEXT,
  ledger_attestation_id TEXT,
  sibling_swap_ids TEXT NOT NULL DEFAULT '{}',
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS swap_proposals (
  id TEXT PRIMARY KEY,
  swap_id TEXT NOT NULL,
  proposer_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  source_swap_id TEXT,
  payment_ref TEXT,
  cash_amount NUMERIC,
  cash_currency TEXT,
  responded_at DATETIME,
  responded_by TEXT,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS swap_completion_audits (
  id TEXT PRIMARY KEY,
  proposal_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  initiated_by TEXT NOT NULL,
  swap_ids TEXT NOT NULL,
  booking_ids TEXT NOT NULL,
  db_transaction_id TEXT NOT NULL,
  ledger_attestation_id TEXT,
  status TEXT NOT NULL DEFAULT 'initiated',
  pre_validation BLOB,
  post_validation BLOB,
  requires_manual_intervention INTEGER NOT NULL DEFAULT 0,
  error_detail TEXT,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

// testTxRunner satisfies the service's transaction surface over a bare
// sqlite connection.
type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// fakeLedger is a hand-rolled ledger double. submitErr fails submissions,
// statusResult drives the rollback recheck, and afterSubmit lets a test
// corrupt state between the commit and post-validation.
type fakeLedger struct {
	submitErr     error
	submitCalls   int
	lastChangeSet attest.ChangeSet
	statusResult  *attest.StatusResult
	statusCalls   int
	afterSubmit   func()
}

func (f *fakeLedger) SubmitAttestation(_ context.Context, changeSet attest.ChangeSet) (*attest.Attestation, error) {
	f.submitCalls++
	f.lastChangeSet = changeSet
	if f.afterSubmit != nil {
		f.afterSubmit()
	}
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &attest.Attestation{
		AttestationID: "att-" + changeSet.ReferenceID.String(),
		RecordedAt:    time.Now(),
	}, nil
}

func (f *fakeLedger) GetAttestationStatus(_ context.Context, _ uuid.UUID) (*attest.StatusResult, error) {
	f.statusCalls++
	if f.statusResult != nil {
		return f.statusResult, nil
	}
	return &attest.StatusResult{Status: enums.AttestationAbsent}, nil
}

// fakeOutbox records emitted events in memory, deduplicating per aggregate
// like the real publisher does.
type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		return context.Canceled
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range f.events {
		if existing.EventType == event.EventType &&
			existing.AggregateType == event.AggregateType &&
			existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	return f.Emit(ctx, tx, event)
}

func newTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "completion-test", Level: zerolog.ErrorLevel})
}

func newTestMetrics() *metrics.CompletionMetrics {
	return metrics.NewCompletionMetrics(prometheus.NewRegistry())
}

type scenario struct {
	proposal      *models.SwapProposal
	targetSwap    *models.Swap
	targetBooking *models.Booking
	sourceSwap    *models.Swap
	sourceBooking *models.Booking
}

func seedBooking(t *testing.T, db *gorm.DB, reference string) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Reference: reference,
		Status:    enums.BookingStatusLocked,
		CheckIn:   time.Now().AddDate(0, 1, 0),
		CheckOut:  time.Now().AddDate(0, 1, 7),
		Version:   1,
	}
	require.NoError(t, bookings.NewRepository(db).Create(context.Background(), booking))
	return booking
}

func seedSwap(t *testing.T, db *gorm.DB, booking *models.Booking) *models.Swap {
	t.Helper()
	swap := &models.Swap{
		ID:             uuid.New(),
		OwnerID:        booking.OwnerID,
		BookingID:      booking.ID,
		Status:         enums.SwapStatusPending,
		SiblingSwapIDs: dbtypes.UUIDArray{},
		Version:        1,
	}
	require.NoError(t, swaps.NewRepository(db).Create(context.Background(), swap))
	return swap
}

func seedExchangeScenario(t *testing.T, db *gorm.DB) scenario {
	t.Helper()

	targetBooking := seedBooking(t, db, "BK-TARGET")
	targetSwap := seedSwap(t, db, targetBooking)
	sourceBooking := seedBooking(t, db, "BK-SOURCE")
	sourceSwap := seedSwap(t, db, sourceBooking)

	proposal := &models.SwapProposal{
		ID:           uuid.New(),
		SwapID:       targetSwap.ID,
		ProposerID:   sourceBooking.OwnerID,
		Kind:         enums.ProposalKindBooking,
		Status:       enums.ProposalStatusPending,
		SourceSwapID: &sourceSwap.ID,
		Version:      1,
	}
	require.NoError(t, proposals.NewRepository(db).Create(context.Background(), proposal))

	return scenario{
		proposal:      proposal,
		targetSwap:    targetSwap,
		targetBooking: targetBooking,
		sourceSwap:    sourceSwap,
		sourceBooking: sourceBooking,
	}
}

func seedCashScenario(t *testing.T, db *gorm.DB) scenario {
	t.Helper()

	targetBooking := seedBooking(t, db, "BK-CASH")
	targetSwap := seedSwap(t, db, targetBooking)

	paymentRef := "pay_" + uuid.NewString()
	amount := decimal.NewFromFloat(450.00)
	currency := "EUR"
	proposal := &models.SwapProposal{
		ID:           uuid.New(),
		SwapID:       targetSwap.ID,
		ProposerID:   uuid.New(),
		Kind:         enums.ProposalKindCash,
		Status:       enums.ProposalStatusPending,
		PaymentRef:   &paymentRef,
		CashAmount:   &amount,
		CashCurrency: &currency,
		Version:      1,
	}
	require.NoError(t, proposals.NewRepository(db).Create(context.Background(), proposal))

	return scenario{
		proposal:      proposal,
		targetSwap:    targetSwap,
		targetBooking: targetBooking,
	}
}

func (s scenario) snapshot() *EntitySnapshot {
	return &EntitySnapshot{
		Proposal:      cloneProposal(s.proposal),
		TargetSwap:    cloneSwap(s.targetSwap),
		TargetBooking: cloneBooking(s.targetBooking),
		SourceSwap:    cloneSwap(s.sourceSwap),
		SourceBooking: cloneBooking(s.sourceBooking),
	}
}

func newTestTxManager(t *testing.T, db *gorm.DB) *TransactionManager {
	t.Helper()
	txm, err := NewTransactionManager(
		&testTxRunner{db: db},
		swaps.NewRepository(db),
		bookings.NewRepository(db),
		proposals.NewRepository(db),
		newTestLogger(),
		2,
		0,
	)
	require.NoError(t, err)
	return txm
}

func newTestValidator(t *testing.T, db *gorm.DB) *ValidationService {
	t.Helper()
	validator, err := NewValidationService(
		&testTxRunner{db: db},
		swaps.NewRepository(db),
		bookings.NewRepository(db),
		proposals.NewRepository(db),
	)
	require.NoError(t, err)
	return validator
}
