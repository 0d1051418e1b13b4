package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notification types published by the core.
const (
	NotificationOrderCreated       = "order.created"
	NotificationInventoryAdjusted  = "inventory.adjusted"
	NotificationInventoryBroadcast = "inventory.broadcast"
	NotificationSyncJobCompleted   = "sync_job.completed"
	NotificationSyncJobFailed      = "sync_job.failed"
)

// Notification is a fire-and-forget message for downstream observers
// (analytics, audit). It carries no delivery guarantee.
type Notification struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type"`
	TenantID   *uuid.UUID     `json:"tenant_id,omitempty"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewNotification builds a notification stamped with a fresh id and the current time.
func NewNotification(typ string, tenantID *uuid.UUID, payload map[string]any) Notification {
	return Notification{
		ID:         uuid.New(),
		Type:       typ,
		TenantID:   tenantID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Notifier is the in-process publish point. Publish must never block the
// caller nor fail its transaction; notifications may be dropped under load.
type Notifier interface {
	Publish(ctx context.Context, n Notification)
}

// NotificationHandler receives notifications from a Notifier.
type NotificationHandler interface {
	// Name identifies the handler in logs and metrics
	Name() string
	// Handle processes one notification
	Handle(ctx context.Context, n Notification) error
}

// NopNotifier discards every notification.
type NopNotifier struct{}

// Publish implements Notifier
func (NopNotifier) Publish(context.Context, Notification) {}
