package completion

import (
	"github.com/google/uuid"

	"github.com/lucasbravon/swapstay-backend/pkg/db/models"
)

// EntitySnapshot is the consistent read of everything one completion touches:
// the proposal, its target swap/booking, and for booking-kind proposals the
// source swap/booking. Source fields are nil for cash proposals.
type EntitySnapshot struct {
	Proposal      *models.SwapProposal
	TargetSwap    *models.Swap
	TargetBooking *models.Booking
	SourceSwap    *models.Swap
	SourceBooking *models.Booking
}

// Clone deep-copies the snapshot so later mutations cannot corrupt the
// pre-completion state the rollback path depends on.
func (s *EntitySnapshot) Clone() *EntitySnapshot {
	if s == nil {
		return nil
	}
	return &EntitySnapshot{
		Proposal:      cloneProposal(s.Proposal),
		TargetSwap:    cloneSwap(s.TargetSwap),
		TargetBooking: cloneBooking(s.TargetBooking),
		SourceSwap:    cloneSwap(s.SourceSwap),
		SourceBooking: cloneBooking(s.SourceBooking),
	}
}

// Swaps returns the affected swaps, target first.
func (s *EntitySnapshot) Swaps() []*models.Swap {
	out := []*models.Swap{}
	if s.TargetSwap != nil {
		out = append(out, s.TargetSwap)
	}
	if s.SourceSwap != nil {
		out = append(out, s.SourceSwap)
	}
	return out
}

// Bookings returns the affected bookings, target first.
func (s *EntitySnapshot) Bookings() []*models.Booking {
	out := []*models.Booking{}
	if s.TargetBooking != nil {
		out = append(out, s.TargetBooking)
	}
	if s.SourceBooking != nil {
		out = append(out, s.SourceBooking)
	}
	return out
}

// SwapIDs returns the ids of every affected swap.
func (s *EntitySnapshot) SwapIDs() []uuid.UUID {
	swaps := s.Swaps()
	out := make([]uuid.UUID, 0, len(swaps))
	for _, swap := range swaps {
		out = append(out, swap.ID)
	}
	return out
}

// BookingIDs returns the ids of every affected booking.
func (s *EntitySnapshot) BookingIDs() []uuid.UUID {
	bookings := s.Bookings()
	out := make([]uuid.UUID, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, booking.ID)
	}
	return out
}

func cloneSwap(swap *models.Swap) *models.Swap {
	if swap == nil {
		return nil
	}
	out := *swap
	out.CompletedAt = cloneTimePtr(swap.CompletedAt)
	out.CompletedBy = cloneUUIDPtr(swap.CompletedBy)
	out.LedgerAttestationID = cloneStringPtr(swap.LedgerAttestationID)
	if swap.SiblingSwapIDs != nil {
		out.SiblingSwapIDs = append(out.SiblingSwapIDs[:0:0], swap.SiblingSwapIDs...)
	}
	return &out
}

func cloneBooking(booking *models.Booking) *models.Booking {
	if booking == nil {
		return nil
	}
	out := *booking
	out.SwappedAt = cloneTimePtr(booking.SwappedAt)
	out.PriorOwnerID = cloneUUIDPtr(booking.PriorOwnerID)
	out.CompletionID = cloneUUIDPtr(booking.CompletionID)
	return &out
}

func cloneProposal(proposal *models.SwapProposal) *models.SwapProposal {
	if proposal == nil {
		return nil
	}
	out := *proposal
	out.SourceSwapID = cloneUUIDPtr(proposal.SourceSwapID)
	out.PaymentRef = cloneStringPtr(proposal.PaymentRef)
	out.CashCurrency = cloneStringPtr(proposal.CashCurrency)
	out.RespondedAt = cloneTimePtr(proposal.RespondedAt)
	out.RespondedBy = cloneUUIDPtr(proposal.RespondedBy)
	if proposal.CashAmount != nil {
		amount := *proposal.CashAmount
		out.CashAmount = &amount
	}
	return &out
}
