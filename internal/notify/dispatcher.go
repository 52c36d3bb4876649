package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/domain"
)

// ClientSource resolves a tenant's client record, including its mail
// configuration.
type ClientSource interface {
	GetByID(ctx context.Context, id string) (*domain.Client, error)
}

// Publisher pushes a notification event onto the broker.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Deliverer turns a notification event into a sent email: resolve the
// tenant's mail settings, render the template, send.
type Deliverer struct {
	clients ClientSource
	sender  Sender
	logger  *slog.Logger
}

func NewDeliverer(clients ClientSource, sender Sender, logger *slog.Logger) *Deliverer {
	return &Deliverer{
		clients: clients,
		sender:  sender,
		logger:  logger,
	}
}

func (d *Deliverer) Deliver(ctx context.Context, event domain.NotificationRequestedEvent) error {
	client, err := d.clients.GetByID(ctx, event.TenantID)
	if err != nil {
		return fmt.Errorf("load client %s: %w", event.TenantID, err)
	}
	if client == nil {
		return fmt.Errorf("unknown tenant %s", event.TenantID)
	}

	subject, body, err := Render(event.Kind, event.Data)
	if err != nil {
		return err
	}

	msg := Message{To: event.Recipient, Subject: subject, Body: body}
	if err := d.sender.Send(ctx, client.Mail, msg); err != nil {
		return fmt.Errorf("send %s mail: %w", event.Kind, err)
	}

	d.logger.Info("notification sent", "kind", event.Kind, "tenant_id", event.TenantID, "to", event.Recipient)
	return nil
}

// Dispatcher is the fire-and-forget entry point handlers use. Failures
// are logged and never surfaced to the HTTP caller, and never roll back
// the state change that preceded them.
type Dispatcher struct {
	producer Publisher
	fallback *Deliverer
	logger   *slog.Logger
}

// NewDispatcher builds a dispatcher. producer may be nil, in which case
// notifications are delivered inline instead of through the broker.
func NewDispatcher(producer Publisher, fallback *Deliverer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		producer: producer,
		fallback: fallback,
		logger:   logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event domain.NotificationRequestedEvent) {
	event.Timestamp = time.Now().UTC()

	if d.producer != nil {
		if err := d.producer.Publish(ctx, event.TenantID, event); err != nil {
			d.logger.Error("failed to publish notification event", "error", err,
				"kind", event.Kind, "tenant_id", event.TenantID)
		}
		return
	}

	if err := d.fallback.Deliver(ctx, event); err != nil {
		d.logger.Error("failed to deliver notification", "error", err,
			"kind", event.Kind, "tenant_id", event.TenantID)
	}
}
