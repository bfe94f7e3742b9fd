package completion

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lucasbravon/swapstay-backend/internal/bookings"
	"github.com/lucasbravon/swapstay-backend/internal/proposals"
	"github.com/lucasbravon/swapstay-backend/internal/swaps"
	"github.com/lucasbravon/swapstay-backend/pkg/db"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
	"github.com/lucasbravon/swapstay-backend/pkg/logger"
)

// TransactionManager applies a completion plan to every related entity inside
// a single database transaction, guarded by the optimistic versions the
// entities were identified at.
type TransactionManager struct {
	tx        txRunner
	swaps     swaps.Repository
	bookings  bookings.Repository
	proposals proposals.Repository
	logg      *logger.Logger

	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewTransactionManager validates dependencies and builds the manager.
// maxAttempts bounds retries for transient storage failures only; version
// conflicts and constraint violations are never retried here.
func NewTransactionManager(tx txRunner, swapRepo swaps.Repository, bookingRepo bookings.Repository, proposalRepo proposals.Repository, logg *logger.Logger, maxAttempts int, backoff time.Duration) (*TransactionManager, error) {
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
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &TransactionManager{
		tx:          tx,
		swaps:       swapRepo,
		bookings:    bookingRepo,
		proposals:   proposalRepo,
		logg:        logg,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		sleep:       sleepCtx,
	}, nil
}

// ExecuteCompletionTransaction commits the plan atomically. Every entity's
// current version is re-checked against the snapshot inside the transaction;
// any mismatch aborts with CONCURRENT_MODIFICATION so the caller can restart
// from identification. Constraint violations are fatal. Other storage
// failures are retried up to maxAttempts with linear backoff.
func (m *TransactionManager) ExecuteCompletionTransaction(ctx context.Context, snapshot *EntitySnapshot, plan *CompletionPlan) error {
	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		err := m.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return m.applyPlan(ctx, tx, snapshot, plan)
		})
		if err == nil {
			return nil
		}
		if pkgerrors.HasCode(err, pkgerrors.CodeConcurrency) || pkgerrors.HasCode(err, pkgerrors.CodeConstraint) {
			return err
		}
		if db.IsConstraintViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConstraint, err, "completion transaction violated a constraint")
		}
		lastErr = err
		m.logg.Warn(m.logg.WithFields(ctx, map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		}), "completion transaction attempt failed")
		if attempt < m.maxAttempts {
			if err := m.sleep(ctx, m.backoff*time.Duration(attempt)); err != nil {
				return err
			}
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "completion transaction failed after retries")
}

func (m *TransactionManager) applyPlan(ctx context.Context, tx *gorm.DB, snapshot *EntitySnapshot, plan *CompletionPlan) error {
	swapRepo := m.swaps.WithTx(tx)
	bookingRepo := m.bookings.WithTx(tx)
	proposalRepo := m.proposals.WithTx(tx)

	// Re-read under the transaction so stale identification fails before any
	// write, not halfway through.
	for _, snap := range snapshot.Swaps() {
		current, err := swapRepo.FindByID(ctx, snap.ID)
		if err != nil {
			return err
		}
		if current.Version != snap.Version {
			return pkgerrors.New(pkgerrors.CodeConcurrency,
				fmt.Sprintf("swap %s version changed from %d to %d since identification", snap.ID, snap.Version, current.Version))
		}
	}
	for _, snap := range snapshot.Bookings() {
		current, err := bookingRepo.FindByID(ctx, snap.ID)
		if err != nil {
			return err
		}
		if current.Version != snap.Version {
			return pkgerrors.New(pkgerrors.CodeConcurrency,
				fmt.Sprintf("booking %s version changed from %d to %d since identification", snap.ID, snap.Version, current.Version))
		}
	}
	currentProposal, err := proposalRepo.FindByID(ctx, snapshot.Proposal.ID)
	if err != nil {
		return err
	}
	if currentProposal.Version != snapshot.Proposal.Version {
		return pkgerrors.New(pkgerrors.CodeConcurrency,
			fmt.Sprintf("proposal %s version changed from %d to %d since identification", snapshot.Proposal.ID, snapshot.Proposal.Version, currentProposal.Version))
	}

	// Writes go through clones so a retried attempt starts from the plan's
	// original read versions, not versions bumped by a rolled-back try.
	for _, planned := range plan.Snapshot.Swaps() {
		row := cloneSwap(planned)
		if err := swapRepo.UpdateVersioned(ctx, row, row.Version); err != nil {
			return err
		}
	}
	for _, planned := range plan.Snapshot.Bookings() {
		row := cloneBooking(planned)
		if err := bookingRepo.UpdateVersioned(ctx, row, row.Version); err != nil {
			return err
		}
	}
	row := cloneProposal(plan.Snapshot.Proposal)
	return proposalRepo.UpdateVersioned(ctx, row, row.Version)
}

// RollbackCompletionTransaction restores every entity to its snapshot state
// through a compensating transaction. Restores are guarded by each entity's
// current version, so an interleaved writer surfaces as CONCURRENT_MODIFICATION
// rather than being silently overwritten.
func (m *TransactionManager) RollbackCompletionTransaction(ctx context.Context, snapshot *EntitySnapshot) error {
	return m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		swapRepo := m.swaps.WithTx(tx)
		bookingRepo := m.bookings.WithTx(tx)
		proposalRepo := m.proposals.WithTx(tx)

		for _, snap := range snapshot.Swaps() {
			current, err := swapRepo.FindByID(ctx, snap.ID)
			if err != nil {
				return err
			}
			if current.Version == snap.Version {
				continue
			}
			restored := cloneSwap(snap)
			if err := swapRepo.UpdateVersioned(ctx, restored, current.Version); err != nil {
				return err
			}
		}
		for _, snap := range snapshot.Bookings() {
			current, err := bookingRepo.FindByID(ctx, snap.ID)
			if err != nil {
				return err
			}
			if current.Version == snap.Version {
				continue
			}
			restored := cloneBooking(snap)
			if err := bookingRepo.UpdateVersioned(ctx, restored, current.Version); err != nil {
				return err
			}
		}

		current, err := proposalRepo.FindByID(ctx, snapshot.Proposal.ID)
		if err != nil {
			return err
		}
		if current.Version == snapshot.Proposal.Version {
			return nil
		}
		restored := cloneProposal(snapshot.Proposal)
		return proposalRepo.UpdateVersioned(ctx, restored, current.Version)
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
