package email

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

type Handler struct {
	logger *slog.Logger
	delay  func() time.Duration
}

type HandlerOption func(*Handler)

// WithDelay replaces the simulated delivery latency.
func WithDelay(delay func() time.Duration) HandlerOption {
	return func(h *Handler) {
		h.delay = delay
	}
}

func NewHandler(logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		logger: logger,
		delay: func() time.Duration {
			return time.Duration(50+rand.Intn(151)) * time.Millisecond
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Message is the body accepted by POST /send.
type Message struct {
	OrderID int64  `json:"order_id,omitempty"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	HTML    bool   `json:"html"`
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req Message
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.To) == "" || !strings.Contains(req.To, "@") {
		h.writeError(w, http.StatusBadRequest, "invalid recipient")
		return
	}
	if strings.TrimSpace(req.Subject) == "" {
		h.writeError(w, http.StatusBadRequest, "missing subject")
		return
	}

	select {
	case <-time.After(h.delay()):
	case <-r.Context().Done():
		h.writeError(w, http.StatusServiceUnavailable, "request cancelled")
		return
	}

	h.logger.Info("email sent", "to", req.To, "subject", req.Subject, "html", req.HTML, "order_id", req.OrderID)

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
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
