package proposals

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucasbravon/swapstay-backend/pkg/db/models"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
)

// Repository manages persistence for swap proposals.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, proposal *models.SwapProposal) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SwapProposal, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.SwapProposal, error)
	ListBySwapID(ctx context.Context, swapID uuid.UUID) ([]models.SwapProposal, error)
	// UpdateVersioned persists the proposal's mutable fields guarded by the
	// version it was read at.
	UpdateVersioned(ctx context.Context, proposal *models.SwapProposal, expectedVersion int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a proposal repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, proposal *models.SwapProposal) error {
	return r.db.WithContext(ctx).Create(proposal).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SwapProposal, error) {
	var proposal models.SwapProposal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&proposal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "proposal not found")
		}
		return nil, err
	}
	return &proposal, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.SwapProposal, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.SwapProposal
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) ListBySwapID(ctx context.Context, swapID uuid.UUID) ([]models.SwapProposal, error) {
	var rows []models.SwapProposal
	err := r.db.WithContext(ctx).
		Where("swap_id = ?", swapID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateVersioned(ctx context.Context, proposal *models.SwapProposal, expectedVersion int) error {
	result := r.db.WithContext(ctx).Model(&models.SwapProposal{}).
		Where("id = ? AND version = ?", proposal.ID, expectedVersion).
		Updates(map[string]any{
			"status":       proposal.Status,
			"responded_at": proposal.RespondedAt,
			"responded_by": proposal.RespondedBy,
			"version":      expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConcurrency, "proposal was modified concurrently")
	}
	proposal.Version = expectedVersion + 1
	return nil
}
