package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lucasbravon/swapstay-backend/api/middleware"
	"github.com/lucasbravon/swapstay-backend/api/responses"
	"github.com/lucasbravon/swapstay-backend/api/validators"
	"github.com/lucasbravon/swapstay-backend/internal/completion"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
	"github.com/lucasbravon/swapstay-backend/pkg/logger"
)

type validateConsistencyPayload struct {
	SwapIDs     []uuid.UUID `json:"swap_ids"`
	BookingIDs  []uuid.UUID `json:"booking_ids"`
	ProposalIDs []uuid.UUID `json:"proposal_ids"`
}

// AcceptProposal accepts a swap proposal and drives the completion workflow
// through to a committed, attested state.
func AcceptProposal(svc completion.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "completion service unavailable"))
			return
		}

		proposalID, err := uuid.Parse(chi.URLParam(r, "proposalID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid proposal id"))
			return
		}

		actingUserID := middleware.UserIDFromContext(ctx)
		if actingUserID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "acting user required"))
			return
		}

		ctx = logg.WithProposalID(ctx, proposalID.String())
		result, err := svc.AcceptProposalWithCompletion(ctx, proposalID, actingUserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// GetCompletionStatus reports where a swap sits in the completion lifecycle.
func GetCompletionStatus(svc completion.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "completion service unavailable"))
			return
		}

		swapID, err := uuid.Parse(chi.URLParam(r, "swapID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid swap id"))
			return
		}

		status, err := svc.GetCompletionStatus(ctx, swapID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// GetCompletionAudit returns the full audit record for one completion run.
func GetCompletionAudit(svc completion.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "completion service unavailable"))
			return
		}

		completionID, err := uuid.Parse(chi.URLParam(r, "completionID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid completion id"))
			return
		}

		ctx = logg.WithAuditID(ctx, completionID.String())
		audit, err := svc.GetCompletionAudit(ctx, completionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, audit)
	}
}

// ListManualInterventionAudits lists completion runs waiting on an operator.
func ListManualInterventionAudits(svc completion.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "completion service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		audits, err := svc.ListManualInterventionAudits(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, audits)
	}
}

// ValidateConsistency runs the terminal-state invariants over an arbitrary
// set of swaps, bookings, and proposals.
func ValidateConsistency(svc completion.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "completion service unavailable"))
			return
		}

		var payload validateConsistencyPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if len(payload.SwapIDs)+len(payload.BookingIDs)+len(payload.ProposalIDs) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "at least one entity id required"))
			return
		}

		report, err := svc.ValidateCompletionConsistency(ctx, payload.SwapIDs, payload.BookingIDs, payload.ProposalIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
