package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lucasbravon/swapstay-backend/api/middleware"
	"github.com/lucasbravon/swapstay-backend/internal/completion"
	"github.com/lucasbravon/swapstay-backend/pkg/db/models"
	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
	"github.com/lucasbravon/swapstay-backend/pkg/logger"
)

type testCompletionService struct {
	acceptFn   func(ctx context.Context, proposalID, actingUserID uuid.UUID) (*completion.CompletionResult, error)
	statusFn   func(ctx context.Context, swapID uuid.UUID) (*completion.CompletionStatus, error)
	auditFn    func(ctx context.Context, completionID uuid.UUID) (*models.SwapCompletionAudit, error)
	listFn     func(ctx context.Context, limit int) ([]models.SwapCompletionAudit, error)
	validateFn func(ctx context.Context, swapIDs, bookingIDs, proposalIDs []uuid.UUID) (*completion.ConsistencyReport, error)
}

func (s *testCompletionService) AcceptProposalWithCompletion(ctx context.Context, proposalID, actingUserID uuid.UUID) (*completion.CompletionResult, error) {
	if s.acceptFn != nil {
		return s.acceptFn(ctx, proposalID, actingUserID)
	}
	return nil, nil
}

func (s *testCompletionService) GetCompletionStatus(ctx context.Context, swapID uuid.UUID) (*completion.CompletionStatus, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, swapID)
	}
	return nil, nil
}

func (s *testCompletionService) GetCompletionAudit(ctx context.Context, completionID uuid.UUID) (*models.SwapCompletionAudit, error) {
	if s.auditFn != nil {
		return s.auditFn(ctx, completionID)
	}
	return nil, nil
}

func (s *testCompletionService) ListManualInterventionAudits(ctx context.Context, limit int) ([]models.SwapCompletionAudit, error) {
	if s.listFn != nil {
		return s.listFn(ctx, limit)
	}
	return nil, nil
}

func (s *testCompletionService) ValidateCompletionConsistency(ctx context.Context, swapIDs, bookingIDs, proposalIDs []uuid.UUID) (*completion.ConsistencyReport, error) {
	if s.validateFn != nil {
		return s.validateFn(ctx, swapIDs, bookingIDs, proposalIDs)
	}
	return nil, nil
}

func testControllerLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestAcceptProposalSuccess(t *testing.T) {
	proposalID := uuid.New()
	userID := uuid.New()
	auditID := uuid.New()
	completedAt := time.Now().UTC().Truncate(time.Millisecond)

	var called bool
	svc := &testCompletionService{
		acceptFn: func(ctx context.Context, pid, uid uuid.UUID) (*completion.CompletionResult, error) {
			called = true
			if pid != proposalID {
				t.Fatalf("unexpected proposal %s", pid)
			}
			if uid != userID {
				t.Fatalf("unexpected acting user %s", uid)
			}
			return &completion.CompletionResult{
				AuditID:             auditID,
				LedgerAttestationID: "att-1",
				CompletedAt:         completedAt,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals/"+proposalID.String()+"/accept", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	req = withURLParam(req, "proposalID", proposalID.String())

	resp := httptest.NewRecorder()
	AcceptProposal(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("expected service called")
	}
	var envelope struct {
		Data completion.CompletionResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.AuditID != auditID {
		t.Fatalf("unexpected audit id %s", envelope.Data.AuditID)
	}
	if envelope.Data.LedgerAttestationID != "att-1" {
		t.Fatalf("unexpected attestation %s", envelope.Data.LedgerAttestationID)
	}
}

func TestAcceptProposalRequiresActingUser(t *testing.T) {
	svc := &testCompletionService{
		acceptFn: func(ctx context.Context, pid, uid uuid.UUID) (*completion.CompletionResult, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	proposalID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals/"+proposalID.String()+"/accept", nil)
	req = withURLParam(req, "proposalID", proposalID.String())

	resp := httptest.NewRecorder()
	AcceptProposal(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAcceptProposalInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals/not-a-uuid/accept", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
	req = withURLParam(req, "proposalID", "not-a-uuid")

	resp := httptest.NewRecorder()
	AcceptProposal(&testCompletionService{}, testControllerLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAcceptProposalMapsConcurrencyToConflict(t *testing.T) {
	svc := &testCompletionService{
		acceptFn: func(ctx context.Context, pid, uid uuid.UUID) (*completion.CompletionResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConcurrency, "completion abandoned after repeated version conflicts")
		},
	}

	proposalID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals/"+proposalID.String()+"/accept", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
	req = withURLParam(req, "proposalID", proposalID.String())

	resp := httptest.NewRecorder()
	AcceptProposal(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeConcurrency) {
		t.Fatalf("unexpected error code %s", envelope.Error.Code)
	}
}

func TestGetCompletionStatusSuccess(t *testing.T) {
	swapID := uuid.New()
	svc := &testCompletionService{
		statusFn: func(ctx context.Context, sid uuid.UUID) (*completion.CompletionStatus, error) {
			if sid != swapID {
				t.Fatalf("unexpected swap %s", sid)
			}
			return &completion.CompletionStatus{SwapID: sid, SwapStatus: enums.SwapStatusCompleted}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/swaps/"+swapID.String()+"/completion", nil)
	req = withURLParam(req, "swapID", swapID.String())

	resp := httptest.NewRecorder()
	GetCompletionStatus(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data completion.CompletionStatus `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.SwapStatus != enums.SwapStatusCompleted {
		t.Fatalf("unexpected swap status %s", envelope.Data.SwapStatus)
	}
}

func TestGetCompletionAuditNotFound(t *testing.T) {
	svc := &testCompletionService{
		auditFn: func(ctx context.Context, cid uuid.UUID) (*models.SwapCompletionAudit, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "completion audit not found")
		},
	}

	completionID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/completions/"+completionID.String()+"/audit", nil)
	req = withURLParam(req, "completionID", completionID.String())

	resp := httptest.NewRecorder()
	GetCompletionAudit(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestListManualInterventionAuditsDefaultsLimit(t *testing.T) {
	auditID := uuid.New()
	svc := &testCompletionService{
		listFn: func(ctx context.Context, limit int) ([]models.SwapCompletionAudit, error) {
			if limit != 50 {
				t.Fatalf("expected default limit 50, got %d", limit)
			}
			return []models.SwapCompletionAudit{{ID: auditID, RequiresManualIntervention: true}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/completions/manual-intervention", nil)
	resp := httptest.NewRecorder()
	ListManualInterventionAudits(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data []models.SwapCompletionAudit `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].ID != auditID {
		t.Fatalf("unexpected audits %+v", envelope.Data)
	}
}

func TestListManualInterventionAuditsRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/completions/manual-intervention?limit=9999", nil)
	resp := httptest.NewRecorder()
	ListManualInterventionAudits(&testCompletionService{}, testControllerLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestValidateConsistencySuccess(t *testing.T) {
	swapID := uuid.New()
	svc := &testCompletionService{
		validateFn: func(ctx context.Context, swapIDs, bookingIDs, proposalIDs []uuid.UUID) (*completion.ConsistencyReport, error) {
			if len(swapIDs) != 1 || swapIDs[0] != swapID {
				t.Fatalf("unexpected swap ids %v", swapIDs)
			}
			return &completion.ConsistencyReport{Consistent: true, Checked: 1}, nil
		},
	}

	body := `{"swap_ids":["` + swapID.String() + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/completions/validate", strings.NewReader(body))

	resp := httptest.NewRecorder()
	ValidateConsistency(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data completion.ConsistencyReport `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !envelope.Data.Consistent || envelope.Data.Checked != 1 {
		t.Fatalf("unexpected report %+v", envelope.Data)
	}
}

func TestValidateConsistencyRejectsEmptyRequest(t *testing.T) {
	svc := &testCompletionService{
		validateFn: func(ctx context.Context, swapIDs, bookingIDs, proposalIDs []uuid.UUID) (*completion.ConsistencyReport, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/completions/validate", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	ValidateConsistency(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
