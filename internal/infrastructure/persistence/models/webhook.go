package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/webhook"
)

// WebhookEventModel stores the raw delivery verbatim as bytes, since a
// malformed body must still be kept.
type WebhookEventModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID   *uuid.UUID `gorm:"type:uuid;index;index:idx_webhook_events_tenant_received,priority:1"`
	Source     string     `gorm:"type:varchar(32);not null;index"`
	EventType  string     `gorm:"type:varchar(128)"`
	ExternalID string     `gorm:"type:varchar(255)"`
	RawPayload []byte     `gorm:"type:bytea"`
	Signature  string     `gorm:"type:varchar(512)"`
	State      string     `gorm:"type:varchar(32);not null;index"`
	Error      string     `gorm:"type:text"`
	OrderID    *uuid.UUID `gorm:"type:uuid"`
	ReceivedAt time.Time  `gorm:"not null;index;index:idx_webhook_events_tenant_received,priority:2"`
	UpdatedAt  time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the model to a domain event
func (m *WebhookEventModel) ToDomain() *webhook.Event {
	return &webhook.Event{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Source:     m.Source,
		EventType:  m.EventType,
		ExternalID: m.ExternalID,
		RawPayload: m.RawPayload,
		Signature:  m.Signature,
		State:      webhook.State(m.State),
		Error:      m.Error,
		OrderID:    m.OrderID,
		ReceivedAt: m.ReceivedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// WebhookEventModelFromDomain creates a model from a domain event
func WebhookEventModelFromDomain(e *webhook.Event) *WebhookEventModel {
	return &WebhookEventModel{
		ID:         e.ID,
		TenantID:   e.TenantID,
		Source:     e.Source,
		EventType:  e.EventType,
		ExternalID: e.ExternalID,
		RawPayload: e.RawPayload,
		Signature:  e.Signature,
		State:      e.State.String(),
		Error:      e.Error,
		OrderID:    e.OrderID,
		ReceivedAt: e.ReceivedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}
