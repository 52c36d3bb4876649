package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"storefront/internal/domain"
	"storefront/internal/notify"
)

// NotificationHandler consumes notification.requested events and turns
// them into emails. Delivery failures are logged and the message is
// committed anyway: mail is best-effort and a poison event must not
// wedge the consumer group.
type NotificationHandler struct {
	deliverer *notify.Deliverer
	logger    *slog.Logger
}

func NewNotificationHandler(deliverer *notify.Deliverer, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		deliverer: deliverer,
		logger:    logger,
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.NotificationRequestedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal notification event: %w", err)
	}

	h.logger.Info("processing notification event",
		"kind", event.Kind, "tenant_id", event.TenantID, "recipient", event.Recipient)

	if err := h.deliverer.Deliver(ctx, event); err != nil {
		h.logger.Error("failed to deliver notification", "error", err,
			"kind", event.Kind, "tenant_id", event.TenantID)
	}

	return nil
}
