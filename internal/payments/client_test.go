package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestClient_Process(t *testing.T) {
	t.Run("approved payment returns transaction id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/process_payment" {
				t.Errorf("expected /process_payment, got %s", r.URL.Path)
			}
			var req Request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("failed to decode request: %v", err)
			}
			if req.OrderID != "order-1" {
				t.Errorf("expected order-1, got %s", req.OrderID)
			}
			if !req.Amount.Equal(decimal.NewFromInt(105000)) {
				t.Errorf("expected amount 105000, got %s", req.Amount)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"success","data":{"transaction_id":"txn-1","payment_status":"approved"}}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		result, err := client.Process(context.Background(), Request{
			Amount:     decimal.NewFromInt(105000),
			MethodID:   1,
			MethodName: "Credit Card",
			OrderID:    "order-1",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TransactionID != "txn-1" {
			t.Errorf("expected txn-1, got %s", result.TransactionID)
		}
		if result.PaymentStatus != "approved" {
			t.Errorf("expected approved, got %s", result.PaymentStatus)
		}
	})

	t.Run("gateway decline maps to ErrDeclined", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"failed","message":"Invalid method_id or method_name"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		_, err := client.Process(context.Background(), Request{OrderID: "order-1"})
		if !errors.Is(err, ErrDeclined) {
			t.Fatalf("expected ErrDeclined, got %v", err)
		}
	})

	t.Run("gateway server error maps to ErrUnavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"failed","message":"Payment processing error."}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		_, err := client.Process(context.Background(), Request{OrderID: "order-1"})
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("unreachable gateway maps to ErrUnavailable", func(t *testing.T) {
		client := NewClient("http://localhost:1", &http.Client{})
		_, err := client.Process(context.Background(), Request{OrderID: "order-1"})
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("malformed response maps to ErrUnavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>gateway error</html>`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		_, err := client.Process(context.Background(), Request{OrderID: "order-1"})
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("success without transaction id maps to ErrUnavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"success","data":{}}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		_, err := client.Process(context.Background(), Request{OrderID: "order-1"})
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})
}
