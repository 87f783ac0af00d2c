package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pentabook/bookshop/internal/domain"
)

type Store interface {
	List(ctx context.Context, categoryID int64) ([]domain.Book, error)
	GetByID(ctx context.Context, id int64) (*domain.Book, error)
	Create(ctx context.Context, b *domain.Book) error
	Update(ctx context.Context, b *domain.Book) error
	Delete(ctx context.Context, id, shopID int64) error
	DecrementStock(ctx context.Context, bookID int64, quantity int) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid category filter")
			return
		}
		categoryID = id
	}

	books, err := h.store.List(r.Context(), categoryID)
	if err != nil {
		h.logger.Error("failed to list books", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, books)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	book, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get book", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if book == nil {
		h.writeError(w, http.StatusNotFound, "book not found")
		return
	}

	h.writeJSON(w, http.StatusOK, book)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopID(w, r)
	if !ok {
		return
	}

	var book domain.Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if book.Name == "" {
		h.writeError(w, http.StatusBadRequest, "book name is required")
		return
	}
	if book.Price.IsNegative() || book.Stock < 0 {
		h.writeError(w, http.StatusBadRequest, "price and stock must not be negative")
		return
	}
	book.ShopID = shopID

	if err := h.store.Create(r.Context(), &book); err != nil {
		h.logger.Error("failed to create book", "error", err, "shop_id", shopID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusCreated, book)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopID(w, r)
	if !ok {
		return
	}
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	var book domain.Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	book.ID = id
	book.ShopID = shopID

	if err := h.store.Update(r.Context(), &book); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "book not found")
			return
		}
		h.logger.Error("failed to update book", "error", err, "id", id, "shop_id", shopID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, book)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopID(w, r)
	if !ok {
		return
	}
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id, shopID); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "book not found")
			return
		}
		h.logger.Error("failed to delete book", "error", err, "id", id, "shop_id", shopID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type decrementRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleDecrementStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	var req decrementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	if err := h.store.DecrementStock(r.Context(), id, req.Quantity); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			h.writeError(w, http.StatusNotFound, "book not found")
		case errors.Is(err, ErrInsufficientStock):
			h.writeError(w, http.StatusConflict, "insufficient stock")
		default:
			h.logger.Error("failed to decrement stock", "error", err, "id", id)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.logger.Info("stock decremented", "book_id", id, "quantity", req.Quantity)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("failed to list categories", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) bookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid book id")
		return 0, false
	}
	return id, true
}

func (h *Handler) shopID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-Shop-ID")
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "missing X-Shop-ID header")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid X-Shop-ID header")
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
