// Package eventlog holds the durable audit trail of published notifications.
package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/shared"
)

// Entry is one persisted notification
type Entry struct {
	ID        uuid.UUID
	TenantID  *uuid.UUID
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// FromNotification converts a notification into an entry, keeping its id
// so a redelivered notification maps onto the same row.
func FromNotification(n shared.Notification) (*Entry, error) {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return nil, err
	}
	return &Entry{
		ID:        n.ID,
		TenantID:  n.TenantID,
		Type:      n.Type,
		Payload:   payload,
		CreatedAt: n.OccurredAt,
	}, nil
}

// Repository stores entries. Append ignores an id that already exists.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	// List returns the newest entries of a tenant, or of all tenants when tenantID is nil
	List(ctx context.Context, tenantID *uuid.UUID, limit int) ([]Entry, error)
}
