package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/notify"
)

type fakeClients struct {
	client *domain.Client
}

func (f *fakeClients) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	return f.client, nil
}

type fakeSender struct {
	sent []notify.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, cfg domain.MailConfig, msg notify.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func TestNotificationHandler_Handle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	newHandler := func(sender *fakeSender) *NotificationHandler {
		deliverer := notify.NewDeliverer(&fakeClients{client: &domain.Client{ID: "tenant-1"}}, sender, logger)
		return NewNotificationHandler(deliverer, logger)
	}

	t.Run("delivers a well-formed event", func(t *testing.T) {
		sender := &fakeSender{}
		handler := newHandler(sender)

		payload, _ := json.Marshal(domain.NotificationRequestedEvent{
			Kind:      domain.NotificationConfirmation,
			TenantID:  "tenant-1",
			Recipient: "jo@example.com",
			Data:      map[string]string{"first_name": "Jo", "order_id": "o-1", "total": "28.00"},
		})

		if err := handler.Handle(context.Background(), payload); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sender.sent) != 1 {
			t.Fatalf("expected 1 sent message, got %d", len(sender.sent))
		}
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		handler := newHandler(&fakeSender{})

		if err := handler.Handle(context.Background(), []byte("{not json")); err == nil {
			t.Fatal("expected error for malformed payload")
		}
	})

	t.Run("delivery failure does not fail the message", func(t *testing.T) {
		sender := &fakeSender{err: errors.New("smtp down")}
		handler := newHandler(sender)

		payload, _ := json.Marshal(domain.NotificationRequestedEvent{
			Kind:      domain.NotificationConfirmation,
			TenantID:  "tenant-1",
			Recipient: "jo@example.com",
		})

		if err := handler.Handle(context.Background(), payload); err != nil {
			t.Fatalf("delivery failures must be swallowed, got %v", err)
		}
	})
}
