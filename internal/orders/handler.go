package orders

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type placeOrderItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type placeOrderRequest struct {
	UserID                int64                   `json:"userId"`
	Total                 *decimal.Decimal        `json:"total"`
	PaymentMethod         domain.PaymentMethod    `json:"paymentMethod"`
	Items                 []placeOrderItem        `json:"items"`
	ShippingAddress       *domain.ShippingAddress `json:"shippingAddress"`
	SubscribeToNewsletter bool                    `json:"subscribeToNewsletter"`
}

func (req placeOrderRequest) input() PlaceOrderInput {
	in := PlaceOrderInput{
		UserID:                req.UserID,
		PaymentMethod:         req.PaymentMethod,
		Items:                 make([]ItemInput, 0, len(req.Items)),
		ShippingAddress:       req.ShippingAddress,
		SubscribeToNewsletter: req.SubscribeToNewsletter,
	}
	if req.Total != nil {
		in.Total = decimal.NewNullDecimal(*req.Total)
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, ItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return in
}

func (h *Handler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := req.input()
	if !req.PaymentMethod.Valid() {
		problems := []string{"paymentMethod must be one of: card, cash"}
		var validationErr *ValidationError
		if errors.As(in.Validate(), &validationErr) {
			problems = append(validationErr.Problems, problems...)
		}
		h.writeValidation(w, problems)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), in)
	if err != nil {
		var (
			validationErr *ValidationError
			stockErr      *InsufficientStockError
		)
		switch {
		case errors.As(err, &validationErr):
			h.writeValidation(w, validationErr.Problems)
		case errors.As(err, &stockErr):
			h.logger.Warn("order rejected", "error", err, "user_id", req.UserID, "product_id", stockErr.ProductID)
			h.writeError(w, http.StatusConflict, stockErr.Error())
		case errors.Is(err, ErrUnknownProduct):
			h.logger.Warn("order rejected", "error", err, "user_id", req.UserID)
			h.writeError(w, http.StatusUnprocessableEntity, "order references an unknown product")
		default:
			h.logger.Error("failed to place order", "error", err, "user_id", req.UserID)
			h.writeError(w, http.StatusInternalServerError, "failed to process order")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userId")
	if !ok {
		return
	}

	orders, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "user_id", userID, "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

type updateStatusResponse struct {
	ID     int64              `json:"id"`
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	found, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			h.writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		h.logger.Error("failed to update order status", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !found {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order status updated", "order_id", id, "status", req.Status)
	h.writeJSON(w, http.StatusOK, updateStatusResponse{ID: id, Status: req.Status})
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

func (h *Handler) writeValidation(w http.ResponseWriter, problems []string) {
	h.writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":   "validation failed",
		"details": problems,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
