package swaps

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lucasbravon/swapstay-backend/pkg/db/models"
	dbtypes "github.com/lucasbravon/swapstay-backend/pkg/db/types"
	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
)

func setupSwapsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
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
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func seedSwap(t *testing.T, db *gorm.DB) *models.Swap {
	t.Helper()
	swap := &models.Swap{
		ID:             uuid.New(),
		OwnerID:        uuid.New(),
		BookingID:      uuid.New(),
		Status:         enums.SwapStatusPending,
		SiblingSwapIDs: dbtypes.UUIDArray{},
		Version:        1,
	}
	require.NoError(t, NewRepository(db).Create(context.Background(), swap))
	return swap
}

func TestFindByID(t *testing.T) {
	db := setupSwapsTestDB(t)
	repo := NewRepository(db)
	swap := seedSwap(t, db)

	found, err := repo.FindByID(context.Background(), swap.ID)
	require.NoError(t, err)
	assert.Equal(t, swap.ID, found.ID)
	assert.Equal(t, enums.SwapStatusPending, found.Status)
	assert.Equal(t, 1, found.Version)
}

func TestFindByIDNotFound(t *testing.T) {
	db := setupSwapsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestFindByIDs(t *testing.T) {
	db := setupSwapsTestDB(t)
	repo := NewRepository(db)
	first := seedSwap(t, db)
	second := seedSwap(t, db)

	rows, err := repo.FindByIDs(context.Background(), []uuid.UUID{first.ID, second.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateVersioned(t *testing.T) {
	db := setupSwapsTestDB(t)
	repo := NewRepository(db)
	swap := seedSwap(t, db)

	completedAt := time.Now().UTC().Truncate(time.Millisecond)
	completedBy := uuid.New()
	attestation := "att_42"
	sibling := uuid.New()

	swap.Status = enums.SwapStatusCompleted
	swap.CompletedAt = &completedAt
	swap.CompletedBy = &completedBy
	swap.LedgerAttestationID = &attestation
	swap.SiblingSwapIDs = dbtypes.UUIDArray{sibling}

	require.NoError(t, repo.UpdateVersioned(context.Background(), swap, 1))
	assert.Equal(t, 2, swap.Version)

	found, err := repo.FindByID(context.Background(), swap.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SwapStatusCompleted, found.Status)
	assert.Equal(t, 2, found.Version)
	require.NotNil(t, found.LedgerAttestationID)
	assert.Equal(t, "att_42", *found.LedgerAttestationID)
	require.Len(t, found.SiblingSwapIDs, 1)
	assert.Equal(t, sibling, found.SiblingSwapIDs[0])
}

func TestUpdateVersionedStaleVersion(t *testing.T) {
	db := setupSwapsTestDB(t)
	repo := NewRepository(db)
	swap := seedSwap(t, db)

	swap.Status = enums.SwapStatusCompleted
	err := repo.UpdateVersioned(context.Background(), swap, 99)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConcurrency))

	found, err := repo.FindByID(context.Background(), swap.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SwapStatusPending, found.Status)
	assert.Equal(t, 1, found.Version)
}

func TestWithTxRebindsConnection(t *testing.T) {
	db := setupSwapsTestDB(t)
	repo := NewRepository(db)
	swap := seedSwap(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		found, err := txRepo.FindByID(context.Background(), swap.ID)
		if err != nil {
			return err
		}
		found.Status = enums.SwapStatusAccepted
		return txRepo.UpdateVersioned(context.Background(), found, found.Version)
	})
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), swap.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SwapStatusAccepted, found.Status)
	assert.Equal(t, 2, found.Version)
}
