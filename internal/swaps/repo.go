package swaps

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucasbravon/swapstay-backend/pkg/db/models"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
)

// Repository manages persistence for swaps.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, swap *models.Swap) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Swap, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Swap, error)
	// UpdateVersioned persists the swap's mutable fields guarded by the version
	// it was read at. A zero-row update means someone else won the race.
	UpdateVersioned(ctx context.Context, swap *models.Swap, expectedVersion int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a swap repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, swap *models.Swap) error {
	return r.db.WithContext(ctx).Create(swap).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Swap, error) {
	var swap models.Swap
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&swap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "swap not found")
		}
		return nil, err
	}
	return &swap, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Swap, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Swap
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateVersioned(ctx context.Context, swap *models.Swap, expectedVersion int) error {
	result := r.db.WithContext(ctx).Model(&models.Swap{}).
		Where("id = ? AND version = ?", swap.ID, expectedVersion).
		Updates(map[string]any{
			"status":                swap.Status,
			"completed_at":          swap.CompletedAt,
			"completed_by":          swap.CompletedBy,
			"ledger_attestation_id": swap.LedgerAttestationID,
			"sibling_swap_ids":      swap.SiblingSwapIDs,
			"version":               expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConcurrency, "swap was modified concurrently")
	}
	swap.Version = expectedVersion + 1
	return nil
}
