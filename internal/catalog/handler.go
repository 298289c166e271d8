package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

type Store interface {
	List(ctx context.Context) ([]domain.Product, error)
	SearchByName(ctx context.Context, term string) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
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

// HandleList lists the catalog, filtered by ?name= when present.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		products []domain.Product
		err      error
	)
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		products, err = h.store.SearchByName(r.Context(), name)
	} else {
		products, err = h.store.List(r.Context())
	}
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("products listed", "count", len(products))
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
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
