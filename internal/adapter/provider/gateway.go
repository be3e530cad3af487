package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/mvelabs/boardroom/internal/domain"
)

// Compile-time check: Gateway implements domain.PaymentGateway.
var _ domain.PaymentGateway = (*Gateway)(nil)

// Config describes one payment provider endpoint.
type Config struct {
	ID      string
	BaseURL string
	APIKey  string
}

// Gateway charges external payment providers over HTTP. Unknown provider
// ids and transport failures surface as domain.ProviderError; the caller
// bounds each call with a context deadline.
type Gateway struct {
	providers map[string]Config
	client    *http.Client
}

// New creates a gateway from the configured providers.
func New(configs []Config) *Gateway {
	providers := make(map[string]Config, len(configs))
	for _, c := range configs {
		providers[c.ID] = c
	}
	return &Gateway{
		providers: providers,
		client:    &http.Client{},
	}
}

// chargeRequest is the wire format sent to a provider.
type chargeRequest struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	PayerRef  string  `json:"payer_ref"`
	Reference string  `json:"reference"`
}

// chargeResponse is the provider's answer. Status is the provider's own
// vocabulary; it is mapped onto the internal enum before leaving this
// package.
type chargeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Process sends a charge request to the named provider and maps the
// response onto the internal payment status enum.
func (g *Gateway) Process(ctx context.Context, providerID string, amount float64, payerRef string) (domain.ProviderResult, error) {
	cfg, ok := g.providers[providerID]
	if !ok {
		return domain.ProviderResult{}, &domain.ProviderError{
			Provider: providerID,
			Err:      fmt.Errorf("unknown provider"),
		}
	}

	body, err := json.Marshal(chargeRequest{
		Amount:    amount,
		Currency:  "EUR",
		PayerRef:  payerRef,
		Reference: uuid.NewString(),
	})
	if err != nil {
		return domain.ProviderResult{}, fmt.Errorf("encoding charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return domain.ProviderResult{}, fmt.Errorf("building charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.ProviderResult{}, &domain.ProviderError{Provider: providerID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ProviderResult{}, &domain.ProviderError{
			Provider: providerID,
			Err:      fmt.Errorf("provider returned status %d", resp.StatusCode),
		}
	}

	var out chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.ProviderResult{}, &domain.ProviderError{
			Provider: providerID,
			Err:      fmt.Errorf("decoding charge response: %w", err),
		}
	}

	status, err := MapStatus(out.Status)
	if err != nil {
		return domain.ProviderResult{}, &domain.ProviderError{Provider: providerID, Err: err}
	}

	return domain.ProviderResult{ExternalID: out.ID, Status: status}, nil
}

// MapStatus translates a provider status string onto the internal enum.
// Webhook handlers use it too, so provider vocabulary never leaks past
// this package.
func MapStatus(s string) (domain.PaymentStatus, error) {
	switch s {
	case "pending", "created", "awaiting_payment":
		return domain.PaymentPending, nil
	case "processing", "in_progress", "authorized":
		return domain.PaymentProcessing, nil
	case "completed", "succeeded", "paid", "settled":
		return domain.PaymentCompleted, nil
	case "failed", "declined", "error":
		return domain.PaymentFailed, nil
	case "cancelled", "canceled", "voided":
		return domain.PaymentCancelled, nil
	}
	return "", fmt.Errorf("unknown provider status %q", s)
}

// WithHTTPClient overrides the HTTP client, mainly for tests and for
// callers that need custom transports.
func (g *Gateway) WithHTTPClient(c *http.Client) *Gateway {
	g.client = c
	return g
}
