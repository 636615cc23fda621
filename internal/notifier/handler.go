package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

type Handler struct {
	mailer Mailer
	logger *slog.Logger
}

func NewHandler(mailer Mailer, logger *slog.Logger) *Handler {
	return &Handler{
		mailer: mailer,
		logger: logger,
	}
}

type message struct {
	subject string
	body    string
}

func messageFor(event domain.OrderEvent) (message, bool) {
	switch event.Type {
	case domain.OrderEventCreated:
		return message{
			subject: fmt.Sprintf("Order #%d received", event.OrderID),
			body:    fmt.Sprintf("<p>Thank you for your purchase! Order <strong>#%d</strong> is waiting for a shipper.</p>", event.OrderID),
		}, true
	case domain.OrderEventPickedUp:
		return message{
			subject: fmt.Sprintf("Order #%d is on its way", event.OrderID),
			body:    fmt.Sprintf("<p>A shipper picked up order <strong>#%d</strong>.</p>", event.OrderID),
		}, true
	case domain.OrderEventCompleted:
		return message{
			subject: fmt.Sprintf("Order #%d delivered", event.OrderID),
			body:    fmt.Sprintf("<p>Order <strong>#%d</strong> has been delivered. Enjoy!</p>", event.OrderID),
		}, true
	case domain.OrderEventDeleted:
		return message{
			subject: fmt.Sprintf("Order #%d cancelled", event.OrderID),
			body:    fmt.Sprintf("<p>Order <strong>#%d</strong> has been cancelled.</p>", event.OrderID),
		}, true
	default:
		return message{}, false
	}
}

// Handle is a messaging.HandlerFunc. Undecodable or unknown events are skipped; a failed
// send is returned so the consumer retries it.
func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("skipping undecodable order event", "error", err)
		return nil
	}

	msg, ok := messageFor(event)
	if !ok {
		h.logger.Warn("skipping unknown order event", "type", event.Type, "order_id", event.OrderID)
		return nil
	}

	if event.CustomerEmail == "" {
		h.logger.Warn("order event has no customer email", "type", event.Type, "order_id", event.OrderID)
		return nil
	}

	if err := h.mailer.Send(ctx, event.CustomerEmail, msg.subject, msg.body); err != nil {
		h.logger.Error("failed to send order email", "error", err, "order_id", event.OrderID, "type", event.Type)
		return fmt.Errorf("send %s email: %w", event.Type, err)
	}

	h.logger.Info("order email sent", "order_id", event.OrderID, "type", event.Type)
	return nil
}
