// Package payment charges tickets through an external payment gateway.
// Free tickets never reach this package; the booking flow marks them
// paid directly.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrDeclined is returned when the gateway rejects a charge.
var ErrDeclined = errors.New("payment: charge declined")

// Charge is a request to collect a ticket's cost from a buyer.
//
// Fields:
//
//	Reference – unique order reference generated per booking attempt.
//	BuyerID   – buyer the charge is billed to.
//	Amount    – cost in the event's currency.
//	Currency  – ISO 4217 code, e.g. "USD".
//	Memo      – human-readable line shown on the buyer's statement.
type Charge struct {
	Reference string          `json:"reference"`
	BuyerID   uint64          `json:"buyer_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Memo      string          `json:"memo,omitempty"`
}

// Receipt is the gateway's acknowledgement of a completed charge.
type Receipt struct {
	Reference string          `json:"reference"`
	GatewayID string          `json:"gateway_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Timestamp int64           `json:"timestamp"`
}

// Client is implemented by payment backends. Implementations must be
// safe for concurrent use.
type Client interface {
	// CollectPayment charges the buyer and returns a receipt, or
	// ErrDeclined when the gateway refuses the charge.
	CollectPayment(ctx context.Context, c Charge) (*Receipt, error)
}

// NewReference returns a fresh order reference for a booking attempt.
func NewReference() string { return uuid.NewString() }

// Gateway talks to an HTTP payment provider.
type Gateway struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// NewGateway returns a Gateway for the given provider endpoint. The
// HTTP client carries a bounded timeout so a slow provider cannot hold
// a booking request open indefinitely.
func NewGateway(baseURL, apiKey string) *Gateway {
	return &Gateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

// CollectPayment posts the charge to the provider's /charges endpoint.
func (g *Gateway) CollectPayment(ctx context.Context, c Charge) (*Receipt, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("payment: marshal charge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payment: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment: call gateway: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, ErrDeclined
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		rbody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("payment: gateway status %d: %s", resp.StatusCode, rbody)
	}

	var rc Receipt
	if err := json.NewDecoder(resp.Body).Decode(&rc); err != nil {
		return nil, fmt.Errorf("payment: decode receipt: %w", err)
	}
	return &rc, nil
}

// NoOp approves every charge locally. It is used when no gateway is
// configured, e.g. in development or when all events are free.
type NoOp struct{}

// CollectPayment returns a synthetic receipt without contacting anyone.
func (NoOp) CollectPayment(_ context.Context, c Charge) (*Receipt, error) {
	return &Receipt{
		Reference: c.Reference,
		GatewayID: "noop-" + uuid.NewString(),
		Amount:    c.Amount,
		Currency:  c.Currency,
		Timestamp: time.Now().UTC().Unix(),
	}, nil
}

// FromEnv picks the client implied by configuration: a Gateway when
// PAYMENT_GATEWAY_URL is set, otherwise NoOp.
func FromEnv(baseURL, apiKey string) Client {
	if baseURL == "" {
		return NoOp{}
	}
	return NewGateway(baseURL, apiKey)
}
