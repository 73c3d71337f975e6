package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/pkg/domain"
)

// HTTPGateway charges through a REST payment provider.
//
// Request:  POST <base>/v1/charges with an Idempotency-Key header
// Response: {"id": "...", "status": "succeeded"|"declined", "failure_message": "..."}
// A 402 answer is a decline; other non-2xx answers are errors.
type HTTPGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPGateway creates a gateway for the provider at baseURL.
func NewHTTPGateway(baseURL, apiKey string, logger *slog.Logger) *HTTPGateway {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HTTPGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// WithHTTPClient overrides the HTTP client.
func (g *HTTPGateway) WithHTTPClient(c *http.Client) *HTTPGateway {
	if c != nil {
		g.httpClient = c
	}
	return g
}

type chargeBody struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata"`
}

type chargeResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	FailureMessage string `json:"failure_message"`
}

// Charge implements ports.PaymentGateway.
func (g *HTTPGateway) Charge(ctx context.Context, req domain.ChargeRequest) (domain.ChargeOutcome, error) {
	if req.IdempotencyKey == "" {
		return domain.ChargeOutcome{}, fmt.Errorf("payment: missing idempotency key")
	}

	payload, err := json.Marshal(chargeBody{
		Amount:      req.AmountCents,
		Currency:    req.Currency,
		Description: req.Description,
		Metadata: map[string]string{
			"session_id": req.SessionID,
			"offer":      req.Offer,
		},
	})
	if err != nil {
		return domain.ChargeOutcome{}, fmt.Errorf("payment: payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/charges", bytes.NewReader(payload))
	if err != nil {
		return domain.ChargeOutcome{}, fmt.Errorf("payment: request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return domain.ChargeOutcome{}, fmt.Errorf("payment: http: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		var parsed chargeResponse
		_ = json.NewDecoder(resp.Body).Decode(&parsed)
		reason := parsed.FailureMessage
		if reason == "" {
			reason = "card declined"
		}
		g.logger.Info("Charge declined", "session_id", req.SessionID, "reason", reason)
		return domain.ChargeOutcome{Reference: parsed.ID, Reason: reason}, nil

	case resp.StatusCode >= http.StatusMultipleChoices:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.ChargeOutcome{}, fmt.Errorf("payment: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.ChargeOutcome{}, fmt.Errorf("payment: decode: %w", err)
	}
	outcome := domain.ChargeOutcome{
		Approved:  parsed.Status == "succeeded",
		Reference: parsed.ID,
		Reason:    parsed.FailureMessage,
	}
	if !outcome.Approved && outcome.Reason == "" {
		outcome.Reason = "payment " + parsed.Status
	}
	return outcome, nil
}
