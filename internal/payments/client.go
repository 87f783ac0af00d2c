// Package payments is the HTTP client for the external payment gateway.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

var (
	// ErrDeclined means the gateway answered and said no. Not retriable
	// with the same method.
	ErrDeclined = errors.New("payment declined by gateway")
	// ErrUnavailable covers connection failures, gateway server errors and
	// malformed responses. The caller may retry.
	ErrUnavailable = errors.New("payment gateway unavailable")
)

type Request struct {
	Amount     decimal.Decimal `json:"amount"`
	MethodID   int64           `json:"method_id"`
	MethodName string          `json:"method_name"`
	OrderID    string          `json:"order_id"`
}

type Result struct {
	TransactionID string `json:"transaction_id"`
	PaymentStatus string `json:"payment_status"`
}

type gatewayResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    Result `json:"data"`
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	return &Client{baseURL: baseURL, client: client}
}

// Process submits a payment synchronously. A decline leaves the caller free
// to resubmit with another method; an unreachable or garbled gateway is
// reported as ErrUnavailable so the caller can retry as-is.
func (c *Client) Process(ctx context.Context, preq Request) (*Result, error) {
	data, err := json.Marshal(preq)
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process_payment", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// A 5xx is the gateway failing, not the payment being refused.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: gateway returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var body gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK || body.Status != "success" {
		if body.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrDeclined, body.Message)
		}
		return nil, ErrDeclined
	}

	if body.Data.TransactionID == "" {
		return nil, fmt.Errorf("%w: response missing transaction id", ErrUnavailable)
	}

	return &body.Data, nil
}
