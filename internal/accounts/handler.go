package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/pentabook/bookshop/internal/domain"
)

type Store interface {
	CreateBuyer(ctx context.Context, b *domain.Buyer, passwordHash string) error
	GetBuyer(ctx context.Context, id int64) (*domain.Buyer, error)
	ListBuyers(ctx context.Context) ([]domain.Buyer, error)
	DeleteBuyer(ctx context.Context, id int64) error
	CreateShop(ctx context.Context, s *domain.Shop, passwordHash string) error
	GetShop(ctx context.Context, id int64) (*domain.Shop, error)
	ListShops(ctx context.Context) ([]domain.Shop, error)
	VerifyShop(ctx context.Context, id int64) error
	DeleteShop(ctx context.Context, id int64) error
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

type registerBuyerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone_number"`
	Address  string `json:"address"`
}

func (h *Handler) HandleRegisterBuyer(w http.ResponseWriter, r *http.Request) {
	var req registerBuyerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" || req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "username, password and email are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	buyer := &domain.Buyer{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
	}
	if err := h.store.CreateBuyer(r.Context(), buyer, string(hash)); err != nil {
		if errors.Is(err, ErrDuplicate) {
			h.writeError(w, http.StatusConflict, "username or email already registered")
			return
		}
		h.logger.Error("failed to create buyer", "error", err, "username", req.Username)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("buyer registered", "buyer_id", buyer.ID, "username", buyer.Username)
	h.writeJSON(w, http.StatusCreated, buyer)
}

func (h *Handler) HandleGetBuyer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	buyer, err := h.store.GetBuyer(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get buyer", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if buyer == nil {
		h.writeError(w, http.StatusNotFound, "buyer not found")
		return
	}

	h.writeJSON(w, http.StatusOK, buyer)
}

func (h *Handler) HandleListBuyers(w http.ResponseWriter, r *http.Request) {
	buyers, err := h.store.ListBuyers(r.Context())
	if err != nil {
		h.logger.Error("failed to list buyers", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, buyers)
}

func (h *Handler) HandleDeleteBuyer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteBuyer(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "buyer not found")
			return
		}
		h.logger.Error("failed to delete buyer", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type registerShopRequest struct {
	Name        string `json:"name"`
	OwnerName   string `json:"owner_name"`
	Password    string `json:"password"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Email       string `json:"email"`
	Description string `json:"description"`
}

func (h *Handler) HandleRegisterShop(w http.ResponseWriter, r *http.Request) {
	var req registerShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Password == "" || req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "name, password and email are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	shop := &domain.Shop{
		Name:        req.Name,
		OwnerName:   req.OwnerName,
		Phone:       req.Phone,
		Address:     req.Address,
		Email:       req.Email,
		Description: req.Description,
	}
	if err := h.store.CreateShop(r.Context(), shop, string(hash)); err != nil {
		if errors.Is(err, ErrDuplicate) {
			h.writeError(w, http.StatusConflict, "shop name or email already registered")
			return
		}
		h.logger.Error("failed to create shop", "error", err, "name", req.Name)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("shop registered", "shop_id", shop.ID, "name", shop.Name)
	h.writeJSON(w, http.StatusCreated, shop)
}

func (h *Handler) HandleGetShop(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	shop, err := h.store.GetShop(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get shop", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if shop == nil {
		h.writeError(w, http.StatusNotFound, "shop not found")
		return
	}

	h.writeJSON(w, http.StatusOK, shop)
}

func (h *Handler) HandleListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.store.ListShops(r.Context())
	if err != nil {
		h.logger.Error("failed to list shops", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, shops)
}

func (h *Handler) HandleVerifyShop(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.VerifyShop(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "shop not found")
			return
		}
		h.logger.Error("failed to verify shop", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("shop verified", "shop_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleDeleteShop(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteShop(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "shop not found")
			return
		}
		h.logger.Error("failed to delete shop", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid id")
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
