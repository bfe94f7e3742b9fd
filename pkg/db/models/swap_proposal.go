package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucasbravon/swapstay-backend/pkg/enums"
)

// SwapProposal is an offer made against a target swap, exchanging either
// another booking (Kind booking, SourceSwapID set) or cash (Kind cash,
// PaymentRef referencing a settled/escrowed payment transaction).
//
// Status moves to accepted/completed only through the completion workflow,
// after every sibling entity committed in the same transaction.
type SwapProposal struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SwapID     uuid.UUID            `gorm:"column:swap_id;type:uuid;not null"`
	ProposerID uuid.UUID            `gorm:"column:proposer_id;type:uuid;not null"`
	Kind       enums.ProposalKind   `gorm:"column:kind;type:proposal_kind_enum;not null"`
	Status     enums.ProposalStatus `gorm:"column:status;type:proposal_status_enum;not null;default:'pending'"`

	SourceSwapID *uuid.UUID       `gorm:"column:source_swap_id;type:uuid"`
	PaymentRef   *string          `gorm:"column:payment_ref"`
	CashAmount   *decimal.Decimal `gorm:"column:cash_amount;type:numeric(12,2)"`
	CashCurrency *string          `gorm:"column:cash_currency;type:char(3)"`

	RespondedAt *time.Time `gorm:"column:responded_at"`
	RespondedBy *uuid.UUID `gorm:"column:responded_by;type:uuid"`

	Version int `gorm:"column:version;not null;default:1"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
