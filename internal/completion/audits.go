package completion

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucasbravon/swapstay-backend/pkg/db/models"
	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
)

// AuditRepository manages persistence for swap completion audit records.
type AuditRepository interface {
	WithTx(tx *gorm.DB) AuditRepository
	Create(ctx context.Context, audit *models.SwapCompletionAudit) error
	// Update persists the audit's phase transition fields.
	Update(ctx context.Context, audit *models.SwapCompletionAudit) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SwapCompletionAudit, error)
	// FindCompletedByProposal returns the most recent completed audit for the
	// proposal, or nil when no attempt ever finished.
	FindCompletedByProposal(ctx context.Context, proposalID uuid.UUID) (*models.SwapCompletionAudit, error)
	ListManualIntervention(ctx context.Context, limit int) ([]models.SwapCompletionAudit, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository returns an audit repository bound to the provided database.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) WithTx(tx *gorm.DB) AuditRepository {
	if tx == nil {
		return r
	}
	return &auditRepository{db: tx}
}

func (r *auditRepository) Create(ctx context.Context, audit *models.SwapCompletionAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

func (r *auditRepository) Update(ctx context.Context, audit *models.SwapCompletionAudit) error {
	return r.db.WithContext(ctx).Model(&models.SwapCompletionAudit{}).
		Where("id = ?", audit.ID).
		Updates(map[string]any{
			"status":                       audit.Status,
			"ledger_attestation_id":        audit.LedgerAttestationID,
			"post_validation":              audit.PostValidation,
			"requires_manual_intervention": audit.RequiresManualIntervention,
			"error_detail":                 audit.ErrorDetail,
			"completed_at":                 audit.CompletedAt,
		}).Error
}

func (r *auditRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.SwapCompletionAudit, error) {
	var audit models.SwapCompletionAudit
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&audit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "completion audit not found")
		}
		return nil, err
	}
	return &audit, nil
}

func (r *auditRepository) FindCompletedByProposal(ctx context.Context, proposalID uuid.UUID) (*models.SwapCompletionAudit, error) {
	var audit models.SwapCompletionAudit
	err := r.db.WithContext(ctx).
		Where("proposal_id = ? AND status = ?", proposalID, enums.CompletionAuditCompleted).
		Order("created_at DESC").
		First(&audit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &audit, nil
}

func (r *auditRepository) ListManualIntervention(ctx context.Context, limit int) ([]models.SwapCompletionAudit, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var rows []models.SwapCompletionAudit
	err := r.db.WithContext(ctx).
		Where("requires_manual_intervention = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
