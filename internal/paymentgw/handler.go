// Package paymentgw is a stand-in payment processor. It validates requests
// against the configured payment methods and approves everything that
// passes, which is enough to exercise the checkout flow end to end.
package paymentgw

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MethodSource interface {
	Methods(ctx context.Context) (map[int64]string, error)
}

type Handler struct {
	methods MethodSource
	logger  *slog.Logger

	mu      sync.Mutex
	history []Transaction
}

// Transaction is one processed payment, kept in memory for /payment_history.
type Transaction struct {
	TransactionID string          `json:"transaction_id"`
	PaymentStatus string          `json:"payment_status"`
	MethodID      int64           `json:"method_id"`
	MethodName    string          `json:"method_name"`
	OrderID       string          `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
}

func NewHandler(methods MethodSource, logger *slog.Logger) *Handler {
	return &Handler{methods: methods, logger: logger}
}

type processRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	MethodID   int64           `json:"method_id"`
	MethodName string          `json:"method_name"`
	OrderID    string          `json:"order_id"`
}

func (h *Handler) HandleProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !req.Amount.IsPositive() {
		h.writeFailure(w, http.StatusBadRequest, "Missing or invalid amount")
		return
	}
	if req.MethodID == 0 {
		h.writeFailure(w, http.StatusBadRequest, "Missing method_id")
		return
	}
	if req.MethodName == "" {
		h.writeFailure(w, http.StatusBadRequest, "Missing method_name")
		return
	}
	if req.OrderID == "" {
		h.writeFailure(w, http.StatusBadRequest, "Missing order_id")
		return
	}

	methods, err := h.methods.Methods(r.Context())
	if err != nil {
		h.logger.Error("failed to load payment methods", "error", err)
		h.writeFailure(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if name, ok := methods[req.MethodID]; !ok || name != req.MethodName {
		h.writeFailure(w, http.StatusBadRequest, "Invalid method_id or method_name")
		return
	}

	txn := Transaction{
		TransactionID: uuid.New().String(),
		PaymentStatus: "approved",
		MethodID:      req.MethodID,
		MethodName:    req.MethodName,
		OrderID:       req.OrderID,
		Amount:        req.Amount,
	}

	h.mu.Lock()
	h.history = append(h.history, txn)
	h.mu.Unlock()

	h.logger.Info("payment processed",
		"transaction_id", txn.TransactionID, "order_id", txn.OrderID, "amount", txn.Amount)

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": txn})
}

func (h *Handler) HandlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	history := make([]Transaction, len(h.history))
	copy(history, h.history)
	h.mu.Unlock()

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": history})
}

func (h *Handler) writeFailure(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"status": "failed", "message": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
