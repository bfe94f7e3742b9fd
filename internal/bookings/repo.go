package bookings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucasbravon/swapstay-backend/pkg/db/models"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
)

// Repository manages persistence for bookings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Booking, error)
	// UpdateVersioned persists the booking's mutable fields guarded by the
	// version it was read at.
	UpdateVersioned(ctx context.Context, booking *models.Booking, expectedVersion int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a booking repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Booking, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Booking
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateVersioned(ctx context.Context, booking *models.Booking, expectedVersion int) error {
	result := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND version = ?", booking.ID, expectedVersion).
		Updates(map[string]any{
			"owner_id":       booking.OwnerID,
			"status":         booking.Status,
			"swapped_at":     booking.SwappedAt,
			"prior_owner_id": booking.PriorOwnerID,
			"completion_id":  booking.CompletionID,
			"version":        expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConcurrency, "booking was modified concurrently")
	}
	booking.Version = expectedVersion + 1
	return nil
}
