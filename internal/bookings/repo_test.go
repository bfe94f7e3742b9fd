package bookings

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
	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
)

func setupBookingsTestDB(t *testing.T) *gorm.DB {
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
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func seedBooking(t *testing.T, db *gorm.DB, reference string) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Reference: reference,
		Status:    enums.BookingStatusAvailable,
		CheckIn:   time.Now().AddDate(0, 1, 0),
		CheckOut:  time.Now().AddDate(0, 1, 7),
		Version:   1,
	}
	require.NoError(t, NewRepository(db).Create(context.Background(), booking))
	return booking
}

func TestFindByID(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	booking := seedBooking(t, db, "BK-1001")

	found, err := repo.FindByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, found.ID)
	assert.Equal(t, "BK-1001", found.Reference)
}

func TestFindByIDNotFound(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateVersionedTransfersOwnership(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	booking := seedBooking(t, db, "BK-2002")

	priorOwner := booking.OwnerID
	newOwner := uuid.New()
	completionID := uuid.New()
	swappedAt := time.Now().UTC().Truncate(time.Millisecond)

	booking.OwnerID = newOwner
	booking.Status = enums.BookingStatusSwapped
	booking.SwappedAt = &swappedAt
	booking.PriorOwnerID = &priorOwner
	booking.CompletionID = &completionID

	require.NoError(t, repo.UpdateVersioned(context.Background(), booking, 1))

	found, err := repo.FindByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, newOwner, found.OwnerID)
	assert.Equal(t, enums.BookingStatusSwapped, found.Status)
	require.NotNil(t, found.PriorOwnerID)
	assert.Equal(t, priorOwner, *found.PriorOwnerID)
	require.NotNil(t, found.CompletionID)
	assert.Equal(t, completionID, *found.CompletionID)
	assert.Equal(t, 2, found.Version)
}

func TestUpdateVersionedStaleVersion(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	booking := seedBooking(t, db, "BK-3003")

	booking.Status = enums.BookingStatusSwapped
	err := repo.UpdateVersioned(context.Background(), booking, 7)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConcurrency))
}

func TestWithTxRollbackLeavesRowUntouched(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	booking := seedBooking(t, db, "BK-4004")

	err := db.Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		booking.Status = enums.BookingStatusLocked
		if err := txRepo.UpdateVersioned(context.Background(), booking, 1); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	found, err := repo.FindByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusAvailable, found.Status)
	assert.Equal(t, 1, found.Version)
}
