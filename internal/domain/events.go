package domain

import "time"

type NotificationKind string

const (
	NotificationVerification NotificationKind = "verification"
	NotificationProcessed    NotificationKind = "processed"
	NotificationConfirmation NotificationKind = "confirmation"
)

// NotificationRequestedEvent is published to Kafka whenever a handler
// wants an email sent. The worker resolves the tenant's mail settings
// from the tenant id; credentials never ride through the broker.
type NotificationRequestedEvent struct {
	Kind      NotificationKind  `json:"kind"`
	TenantID  string            `json:"tenant_id"`
	Recipient string            `json:"recipient"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
