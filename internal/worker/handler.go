package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
	"github.com/joao-fontenele/orderflow-checkout/internal/messaging"
)

// Sender delivers a notification, normally through the email service.
type Sender interface {
	Send(ctx context.Context, n domain.OrderNotification) error
}

// NotificationHandler forwards order confirmations read from Kafka to the
// email service. Delivery is best effort: failures are logged and the message
// is committed, so one bad message never blocks the partition.
type NotificationHandler struct {
	sender Sender
	logger *slog.Logger
}

func NewNotificationHandler(sender Sender, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		sender: sender,
		logger: logger,
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, payload []byte) error {
	var n domain.OrderNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		h.logger.Error("discarding malformed notification", "error", err)
		return messaging.Permanent(errors.Wrap(err, "unmarshal order notification"))
	}

	if n.To == "" || n.Subject == "" {
		h.logger.Error("discarding incomplete notification", "order_id", n.OrderID)
		return messaging.Permanent(errors.Errorf("notification for order %d has no recipient or subject", n.OrderID))
	}

	h.logger.Info("processing order notification", "order_id", n.OrderID, "to", n.To)

	if err := h.sender.Send(ctx, n); err != nil {
		h.logger.Error("failed to deliver order notification", "error", err, "order_id", n.OrderID)
		return messaging.Permanent(errors.Wrapf(err, "deliver notification for order %d", n.OrderID))
	}

	h.logger.Info("order notification delivered", "order_id", n.OrderID)
	return nil
}
