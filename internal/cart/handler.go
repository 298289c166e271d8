package cart

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

// Store is the cart persistence used by the handler.
type Store interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.CartItem, error)
	GetByID(ctx context.Context, id int64) (*domain.CartItem, error)
	Add(ctx context.Context, userID, productID int64, quantity int) (*domain.CartItem, error)
	UpdateQuantity(ctx context.Context, id int64, quantity int) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Clear(ctx context.Context, userID int64) (int64, error)
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userId")
	if !ok {
		return
	}

	items, err := h.store.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list cart", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

type addRequest struct {
	UserID    int64 `json:"userId"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID <= 0 || req.ProductID <= 0 {
		h.writeError(w, http.StatusBadRequest, "userId and productId are required")
		return
	}
	if req.Quantity < 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := h.store.Add(r.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, ErrUnknownProduct) {
			h.writeError(w, http.StatusUnprocessableEntity, "unknown product")
			return
		}
		h.logger.Error("failed to add cart item", "error", err, "user_id", req.UserID, "product_id", req.ProductID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart item added", "cart_item_id", item.ID, "user_id", req.UserID, "quantity", item.Quantity)
	h.writeJSON(w, http.StatusCreated, item)
}

type updateRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	found, err := h.store.UpdateQuantity(r.Context(), id, req.Quantity)
	if err != nil {
		h.logger.Error("failed to update cart item", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "cart item not found")
		return
	}

	item, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get updated cart item", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if item == nil {
		h.writeError(w, http.StatusNotFound, "cart item not found")
		return
	}

	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	found, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete cart item", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "cart item not found")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{"deleted": 1})
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userId")
	if !ok {
		return
	}

	deleted, err := h.store.Clear(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to clear cart", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart cleared", "user_id", userID, "deleted", deleted)
	h.writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid "+name)
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
