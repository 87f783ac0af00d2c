// Package shipmentapi is a stand-in carrier API. It hands out tracking
// numbers for known orders and answers tracking queries from the shipment
// table the order workflow maintains.
package shipmentapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/pentabook/bookshop/internal/domain"
)

type Store interface {
	OrderExists(ctx context.Context, orderID string) (bool, error)
	GetByTracking(ctx context.Context, trackingNo string) (*domain.Shipment, error)
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

type initiateRequest struct {
	OrderID string `json:"order_id"`
	Service string `json:"shipment_service"`
}

func (h *Handler) HandleInitiateShipment(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		h.writeError(w, http.StatusBadRequest, "Order ID is required.")
		return
	}

	exists, err := h.store.OrderExists(r.Context(), req.OrderID)
	if err != nil {
		h.logger.Error("failed to look up order", "error", err, "order_id", req.OrderID)
		h.writeError(w, http.StatusInternalServerError, "Database error occurred.")
		return
	}
	if !exists {
		h.writeError(w, http.StatusNotFound, "Order not found.")
		return
	}

	trackingNo := newTrackingNo()
	h.logger.Info("shipment initiated", "order_id", req.OrderID, "tracking_no", trackingNo)

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"status":      "success",
		"tracking_no": trackingNo,
	})
}

func (h *Handler) HandleTrackShipment(w http.ResponseWriter, r *http.Request) {
	trackingNo := r.PathValue("trackingNo")
	if trackingNo == "" {
		h.writeError(w, http.StatusBadRequest, "Tracking number is required.")
		return
	}

	shipment, err := h.store.GetByTracking(r.Context(), trackingNo)
	if err != nil {
		h.logger.Error("failed to look up shipment", "error", err, "tracking_no", trackingNo)
		h.writeError(w, http.StatusInternalServerError, "Database error occurred.")
		return
	}
	if shipment == nil {
		h.writeError(w, http.StatusNotFound, "Shipment not found.")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"shipment_data": shipment,
	})
}

// newTrackingNo mimics a carrier reference: TRK plus six digits. The space
// is small on purpose so collisions stay reachable in tests; the order
// workflow is responsible for retrying on a duplicate.
func newTrackingNo() string {
	return "TRK" + strconv.Itoa(rand.IntN(900000)+100000)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"status": "error", "message": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
