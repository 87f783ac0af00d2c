package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pentabook/bookshop/internal/domain"
	"github.com/pentabook/bookshop/internal/payments"
	"github.com/pentabook/bookshop/internal/shipping"
)

// The workflow depends on ports, not concrete collaborators, so payment and
// shipment sequencing can be exercised without the real services.
type OrderStore interface {
	Checkout(ctx context.Context, buyerID int64, address string) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]domain.Order, error)
	GetPaymentMethod(ctx context.Context, methodID int64) (*domain.PaymentMethod, error)
	RecordPayment(ctx context.Context, p *domain.Payment) error
}

type ShipmentStore interface {
	// Create persists the shipment and advances its order to shipped as
	// one atomic write.
	Create(ctx context.Context, s *domain.Shipment) error
	Resolve(ctx context.Context, trackingNo string) (*domain.Shipment, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]domain.Shipment, error)
}

type PaymentGateway interface {
	Process(ctx context.Context, req payments.Request) (*payments.Result, error)
}

type ShipmentService interface {
	Initiate(ctx context.Context, orderID, service string) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// trackingAttempts bounds retries when the shipment service hands out a
// tracking number that already exists.
const trackingAttempts = 3

const defaultShipmentService = "standard"

type Handler struct {
	store     OrderStore
	shipments ShipmentStore
	gateway   PaymentGateway
	shipper   ShipmentService
	producer  EventPublisher
	logger    *slog.Logger
}

func NewHandler(store OrderStore, shipments ShipmentStore, gateway PaymentGateway, shipper ShipmentService, producer EventPublisher, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		shipments: shipments,
		gateway:   gateway,
		shipper:   shipper,
		producer:  producer,
		logger:    logger,
	}
}

type checkoutRequest struct {
	Address string `json:"address"`
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyerID(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Address == "" {
		h.writeError(w, http.StatusBadRequest, "delivery address is required")
		return
	}

	order, err := h.store.Checkout(r.Context(), buyerID, req.Address)
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			h.writeError(w, http.StatusConflict, "cart is empty")
			return
		}
		h.logger.Error("checkout failed", "error", err, "buyer_id", buyerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("order placed", "order_id", order.ID, "buyer_id", buyerID, "total", order.Total)
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyerID(w, r)
	if !ok {
		return
	}

	list, err := h.store.ListByBuyer(r.Context(), buyerID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "buyer_id", buyerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, list)
}

type payRequest struct {
	MethodID int64 `json:"method_id"`
}

func (h *Handler) HandlePay(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if !order.Status.CanTransitionTo(domain.OrderStatusPaid) {
		h.writeError(w, http.StatusConflict, "order is not awaiting payment")
		return
	}

	method, err := h.store.GetPaymentMethod(r.Context(), req.MethodID)
	if err != nil {
		if errors.Is(err, ErrUnknownMethod) {
			h.writeError(w, http.StatusBadRequest, "unknown payment method")
			return
		}
		h.logger.Error("failed to load payment method", "error", err, "method_id", req.MethodID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	result, err := h.gateway.Process(r.Context(), payments.Request{
		Amount:     order.Total,
		MethodID:   method.ID,
		MethodName: method.Name,
		OrderID:    order.ID,
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrDeclined):
			h.logger.Info("payment declined", "order_id", order.ID, "method_id", method.ID)
			h.writeError(w, http.StatusPaymentRequired, "payment declined by gateway")
		case errors.Is(err, payments.ErrUnavailable):
			h.logger.Error("payment gateway unavailable", "error", err, "order_id", order.ID)
			h.writeError(w, http.StatusBadGateway, "payment gateway unavailable, try again")
		default:
			h.logger.Error("payment failed", "error", err, "order_id", order.ID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	payment := &domain.Payment{
		OrderID:       order.ID,
		MethodID:      method.ID,
		TransactionID: result.TransactionID,
		Status:        result.PaymentStatus,
		Total:         order.Total,
		PaidAt:        time.Now().UTC(),
	}
	if err := h.store.RecordPayment(r.Context(), payment); err != nil {
		if errors.Is(err, ErrInvalidState) {
			h.writeError(w, http.StatusConflict, "order already paid")
			return
		}
		h.logger.Error("failed to record payment", "error", err, "order_id", order.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.producer != nil {
		event := domain.OrderPaidEvent{
			OrderID:   order.ID,
			BuyerID:   order.BuyerID,
			Total:     order.Total,
			Timestamp: payment.PaidAt,
		}
		for _, item := range order.Items {
			event.Items = append(event.Items, domain.OrderItemEvent{BookID: item.BookID, Quantity: item.Quantity})
		}
		if err := h.producer.Publish(r.Context(), order.ID, event); err != nil {
			h.logger.Error("failed to publish order paid event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("order paid", "order_id", order.ID, "transaction_id", payment.TransactionID)
	h.writeJSON(w, http.StatusOK, payment)
}

type shipRequest struct {
	Service string `json:"shipment_service"`
}

func (h *Handler) HandleInitiateShipment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	// Body is optional; an absent body falls back to the default service.
	var req shipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Service == "" {
		req.Service = defaultShipmentService
	}

	order, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if order.Status == domain.OrderStatusInitiated {
		// Matches the reference behavior: shipping an unpaid order is
		// allowed but suspicious enough to flag.
		h.logger.Warn("shipment initiated for unpaid order", "order_id", order.ID, "status", order.Status)
	}

	var shipment *domain.Shipment
	for attempt := 0; attempt < trackingAttempts; attempt++ {
		trackingNo, err := h.shipper.Initiate(r.Context(), order.ID, req.Service)
		if err != nil {
			switch {
			case errors.Is(err, shipping.ErrOrderUnknown):
				h.writeError(w, http.StatusNotFound, "order not found")
			case errors.Is(err, shipping.ErrServiceUnavailable):
				h.logger.Error("shipment service unavailable", "error", err, "order_id", order.ID)
				h.writeError(w, http.StatusBadGateway, "shipment service unavailable, try again")
			default:
				h.logger.Error("shipment initiation rejected", "error", err, "order_id", order.ID)
				h.writeError(w, http.StatusUnprocessableEntity, "shipment service rejected the request")
			}
			return
		}

		s := &domain.Shipment{OrderID: order.ID, TrackingNo: trackingNo, Service: req.Service}
		err = h.shipments.Create(r.Context(), s)
		if err == nil {
			shipment = s
			break
		}
		if !errors.Is(err, shipping.ErrDuplicateTracking) {
			h.logger.Error("failed to persist shipment", "error", err, "order_id", order.ID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		h.logger.Warn("tracking number collision, retrying", "order_id", order.ID, "tracking_no", trackingNo)
	}
	if shipment == nil {
		h.logger.Error("exhausted tracking number attempts", "order_id", order.ID)
		h.writeError(w, http.StatusBadGateway, "could not obtain a unique tracking number")
		return
	}

	h.logger.Info("shipment initiated", "order_id", order.ID, "tracking_no", shipment.TrackingNo)
	h.writeJSON(w, http.StatusCreated, shipment)
}

func (h *Handler) HandleResolveShipment(w http.ResponseWriter, r *http.Request) {
	trackingNo := r.PathValue("trackingNo")
	if trackingNo == "" {
		h.writeError(w, http.StatusBadRequest, "missing tracking number")
		return
	}

	shipment, err := h.shipments.Resolve(r.Context(), trackingNo)
	if err != nil {
		switch {
		case errors.Is(err, shipping.ErrNotFound):
			h.writeError(w, http.StatusNotFound, "shipment not found")
		case errors.Is(err, shipping.ErrAlreadyDelivered):
			h.writeError(w, http.StatusConflict, "shipment already delivered")
		default:
			h.logger.Error("failed to resolve shipment", "error", err, "tracking_no", trackingNo)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.logger.Info("shipment delivered", "tracking_no", trackingNo, "order_id", shipment.OrderID)
	h.writeJSON(w, http.StatusOK, shipment)
}

func (h *Handler) HandleListShipments(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyerID(w, r)
	if !ok {
		return
	}

	list, err := h.shipments.ListByBuyer(r.Context(), buyerID)
	if err != nil {
		h.logger.Error("failed to list shipments", "error", err, "buyer_id", buyerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, list)
}

// buyerID reads the request-scoped identity header. There is no session
// state; callers must say who they act for on every request.
func (h *Handler) buyerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-Buyer-ID")
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "missing X-Buyer-ID header")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid X-Buyer-ID header")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
