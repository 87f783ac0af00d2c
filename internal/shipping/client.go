// Package shipping holds the workflow-side shipment store and the client
// for the external shipment service.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrOrderUnknown means the shipment service does not know the order.
	ErrOrderUnknown = errors.New("shipment service does not recognize the order")
	// ErrRejected is any other explicit refusal from the shipment service.
	ErrRejected = errors.New("shipment service rejected the request")
	// ErrServiceUnavailable covers connection failures and garbled responses.
	ErrServiceUnavailable = errors.New("shipment service unavailable")
)

type initiateRequest struct {
	OrderID string `json:"order_id"`
	Service string `json:"shipment_service"`
}

type initiateResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	TrackingNo string `json:"tracking_no"`
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	return &Client{baseURL: baseURL, client: client}
}

// Initiate asks the shipment service for a tracking number. The service owns
// tracking number generation; persistence stays with the caller.
func (c *Client) Initiate(ctx context.Context, orderID, service string) (string, error) {
	data, err := json.Marshal(initiateRequest{OrderID: orderID, Service: service})
	if err != nil {
		return "", fmt.Errorf("marshal shipment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/initiate_shipment", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create shipment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body initiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: invalid response: %v", ErrServiceUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrOrderUnknown
	case resp.StatusCode != http.StatusCreated || body.Status != "success" || body.TrackingNo == "":
		if body.Message != "" {
			return "", fmt.Errorf("%w: %s", ErrRejected, body.Message)
		}
		return "", ErrRejected
	}

	return body.TrackingNo, nil
}
