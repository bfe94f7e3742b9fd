package attest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucasbravon/swapstay-backend/pkg/config"
	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	pkgerrors "github.com/lucasbravon/swapstay-backend/pkg/errors"
	"github.com/lucasbravon/swapstay-backend/pkg/logger"
)

var (
	errBaseURLRequired = errors.New("ledger base url is required")
	errLoggerRequired  = errors.New("ledger logger is required")
)

const maxResponseBody = 1 << 20

// SwapChange records the post-completion state of one swap for attestation.
type SwapChange struct {
	SwapID      uuid.UUID `json:"swap_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Status      string    `json:"status"`
	FromVersion int       `json:"from_version"`
	ToVersion   int       `json:"to_version"`
}

// BookingChange records the post-completion state of one booking for attestation.
type BookingChange struct {
	BookingID   uuid.UUID  `json:"booking_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	PriorOwner  *uuid.UUID `json:"prior_owner,omitempty"`
	Status      string     `json:"status"`
	FromVersion int        `json:"from_version"`
	ToVersion   int        `json:"to_version"`
}

// ChangeSet is the full set of entity mutations submitted to the ledger.
// ReferenceID is client-generated and stable across retries so the ledger
// can deduplicate and we can re-query outcome after an ambiguous failure.
type ChangeSet struct {
	ReferenceID uuid.UUID            `json:"reference_id"`
	ProposalID  uuid.UUID            `json:"proposal_id"`
	Kind        enums.CompletionKind `json:"kind"`
	Swaps       []SwapChange         `json:"swaps"`
	Bookings    []BookingChange      `json:"bookings"`
	Settlement  *CashSettlement      `json:"settlement,omitempty"`
	CompletedAt time.Time            `json:"completed_at"`
}

// CashSettlement carries the externally settled payment terms attested
// alongside a cash completion. Exchange completions have none.
type CashSettlement struct {
	PaymentRef string          `json:"payment_ref"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

// Attestation is the ledger's durable receipt for a recorded change set.
type Attestation struct {
	AttestationID string    `json:"attestation_id"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// StatusResult reports whether the ledger holds a record for a reference.
type StatusResult struct {
	Status        enums.AttestationStatus
	AttestationID string
}

// Client talks to the external attestation ledger over HTTP with bounded retries.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	maxAttempts int
	backoff     time.Duration
	logger      *logger.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient validates the ledger configuration and builds a client.
func NewClient(cfg config.LedgerConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid ledger base url: %w", err)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logg,
		sleep:       sleepCtx,
	}, nil
}

// SubmitAttestation records the change set on the ledger. Retries transport and
// 5xx failures up to the configured attempt budget; an exhausted budget or an
// ambiguous outcome surfaces as a ledger error for the caller to resolve via
// GetAttestationStatus.
func (c *Client) SubmitAttestation(ctx context.Context, changeSet ChangeSet) (*Attestation, error) {
	if changeSet.ReferenceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attestation reference id is required")
	}
	if len(changeSet.Swaps) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attestation change set has no swaps")
	}

	body, err := json.Marshal(changeSet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding attestation change set")
	}

	endpoint := c.baseURL + "/v1/attestations"
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		attestation, retryable, err := c.submitOnce(ctx, endpoint, body)
		if err == nil {
			c.log(ctx, "attestation recorded", map[string]any{
				"reference_id":   changeSet.ReferenceID.String(),
				"attestation_id": attestation.AttestationID,
				"attempt":        attempt,
			})
			return attestation, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.log(ctx, "attestation attempt failed", map[string]any{
			"reference_id": changeSet.ReferenceID.String(),
			"attempt":      attempt,
			"error":        err.Error(),
		})
		if attempt < c.maxAttempts {
			if err := c.sleep(ctx, c.backoff*time.Duration(attempt)); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeLedger, err, "attestation retry interrupted")
			}
		}
	}

	return nil, pkgerrors.Wrap(pkgerrors.CodeLedger, lastErr, "ledger attestation failed after retries")
}

func (c *Client) submitOnce(ctx context.Context, endpoint string, body []byte) (*Attestation, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building attestation request")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failure after the request may have left the ledger: retryable,
		// and ambiguous if the budget runs out.
		return nil, true, pkgerrors.Wrap(pkgerrors.CodeLedger, err, "attestation request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, true, pkgerrors.Wrap(pkgerrors.CodeLedger, err, "reading attestation response")
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var attestation Attestation
		if err := json.Unmarshal(payload, &attestation); err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeLedger, err, "decoding attestation response")
		}
		if attestation.AttestationID == "" {
			return nil, false, pkgerrors.New(pkgerrors.CodeLedger, "ledger returned empty attestation id")
		}
		return &attestation, false, nil

	case resp.StatusCode >= 500:
		return nil, true, pkgerrors.New(pkgerrors.CodeLedger, fmt.Sprintf("ledger returned %d", resp.StatusCode))

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, pkgerrors.New(pkgerrors.CodeLedger, "ledger rate limited the request")

	default:
		return nil, false, pkgerrors.New(pkgerrors.CodeLedger, fmt.Sprintf("ledger rejected attestation: %d %s", resp.StatusCode, strings.TrimSpace(string(payload))))
	}
}

// GetAttestationStatus asks whether the ledger holds a record for the given
// reference. Used after ambiguous submit outcomes to decide between completing
// and compensating.
func (c *Client) GetAttestationStatus(ctx context.Context, referenceID uuid.UUID) (*StatusResult, error) {
	if referenceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attestation reference id is required")
	}

	endpoint := fmt.Sprintf("%s/v1/attestations/%s", c.baseURL, referenceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building attestation status request")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &StatusResult{Status: enums.AttestationUnknown}, nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &StatusResult{Status: enums.AttestationUnknown}, nil
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var attestation Attestation
		if err := json.Unmarshal(payload, &attestation); err != nil {
			return &StatusResult{Status: enums.AttestationUnknown}, nil
		}
		return &StatusResult{Status: enums.AttestationPresent, AttestationID: attestation.AttestationID}, nil

	case resp.StatusCode == http.StatusNotFound:
		return &StatusResult{Status: enums.AttestationAbsent}, nil

	default:
		return &StatusResult{Status: enums.AttestationUnknown}, nil
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) log(ctx context.Context, message string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	logCtx := c.logger.WithFields(ctx, fields)
	c.logger.Info(logCtx, message)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
