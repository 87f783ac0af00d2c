package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Initiate(t *testing.T) {
	t.Run("returns tracking number on success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/initiate_shipment" {
				t.Errorf("expected /initiate_shipment, got %s", r.URL.Path)
			}
			var req map[string]string
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("failed to decode request: %v", err)
			}
			if req["order_id"] != "order-1" {
				t.Errorf("expected order-1, got %s", req["order_id"])
			}
			if req["shipment_service"] != "jne" {
				t.Errorf("expected jne, got %s", req["shipment_service"])
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"status":"success","tracking_no":"TRK123456"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		trackingNo, err := client.Initiate(context.Background(), "order-1", "jne")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if trackingNo != "TRK123456" {
			t.Errorf("expected TRK123456, got %s", trackingNo)
		}
	})

	t.Run("unknown order maps to ErrOrderUnknown", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":"error","message":"Order not found."}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		_, err := client.Initiate(context.Background(), "missing", "jne")
		if !errors.Is(err, ErrOrderUnknown) {
			t.Fatalf("expected ErrOrderUnknown, got %v", err)
		}
	})

	t.Run("explicit failure maps to ErrRejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"error","message":"Order ID is required."}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		_, err := client.Initiate(context.Background(), "", "jne")
		if !errors.Is(err, ErrRejected) {
			t.Fatalf("expected ErrRejected, got %v", err)
		}
	})

	t.Run("unreachable service maps to ErrServiceUnavailable", func(t *testing.T) {
		client := NewClient("http://localhost:1", &http.Client{})
		_, err := client.Initiate(context.Background(), "order-1", "jne")
		if !errors.Is(err, ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
