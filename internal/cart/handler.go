package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/pentabook/bookshop/internal/domain"
)

type Store interface {
	AddItem(ctx context.Context, buyerID, bookID int64, quantity int) error
	Lines(ctx context.Context, buyerID int64) ([]domain.CartLine, error)
	RemoveItem(ctx context.Context, buyerID, bookID int64) error
	Clear(ctx context.Context, buyerID int64) error
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

type addItemRequest struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyerID(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BookID <= 0 {
		h.writeError(w, http.StatusBadRequest, "book_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	if err := h.store.AddItem(r.Context(), buyerID, req.BookID, req.Quantity); err != nil {
		if errors.Is(err, ErrBookNotFound) {
			h.writeError(w, http.StatusNotFound, "book not found")
			return
		}
		h.logger.Error("failed to add cart item", "error", err, "buyer_id", buyerID, "book_id", req.BookID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{"book_id": req.BookID, "quantity": req.Quantity})
}

type cartResponse struct {
	Items    []domain.CartLine `json:"items"`
	Subtotal decimal.Decimal   `json:"subtotal"`
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyerID(w, r)
	if !ok {
		return
	}

	lines, err := h.store.Lines(r.Context(), buyerID)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "buyer_id", buyerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	h.writeJSON(w, http.StatusOK, cartResponse{Items: lines, Subtotal: subtotal})
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyerID(w, r)
	if !ok {
		return
	}

	bookID, err := strconv.ParseInt(r.PathValue("bookID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	if err := h.store.RemoveItem(r.Context(), buyerID, bookID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			h.writeError(w, http.StatusNotFound, "item not in cart")
			return
		}
		h.logger.Error("failed to remove cart item", "error", err, "buyer_id", buyerID, "book_id", bookID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := h.buyerID(w, r)
	if !ok {
		return
	}

	if err := h.store.Clear(r.Context(), buyerID); err != nil {
		h.logger.Error("failed to clear cart", "error", err, "buyer_id", buyerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

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
