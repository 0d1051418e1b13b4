package event

import (
	"context"
	"fmt"

	"github.com/omnisync/backend/internal/domain/eventlog"
	"github.com/omnisync/backend/internal/domain/shared"
)

// EventLogSubscriber persists every notification it receives to the audit
// trail. Redelivery of the same notification id is a no-op.
type EventLogSubscriber struct {
	repo eventlog.Repository
}

// NewEventLogSubscriber creates a new EventLogSubscriber
func NewEventLogSubscriber(repo eventlog.Repository) *EventLogSubscriber {
	return &EventLogSubscriber{repo: repo}
}

// Name implements shared.NotificationHandler
func (s *EventLogSubscriber) Name() string { return "event_log" }

// Handle implements shared.NotificationHandler
func (s *EventLogSubscriber) Handle(ctx context.Context, n shared.Notification) error {
	entry, err := eventlog.FromNotification(n)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}
	return s.repo.Append(ctx, entry)
}

var _ shared.NotificationHandler = (*EventLogSubscriber)(nil)
