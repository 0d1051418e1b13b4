package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/eventlog"
	"github.com/omnisync/backend/internal/domain/integration"
	"gorm.io/datatypes"
)

// IntegrationModel is the persistence model for integration.Integration
type IntegrationModel struct {
	ID                           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID                     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_integrations_tenant_source,priority:1"`
	Source                       string     `gorm:"type:varchar(32);not null;uniqueIndex:idx_integrations_tenant_source,priority:2;index:idx_integrations_shop,priority:1"`
	ShopDomain                   string     `gorm:"type:varchar(255);index:idx_integrations_shop,priority:2"`
	InventorySyncEnabled         bool       `gorm:"not null;default:false"`
	InventorySyncIntervalMinutes int        `gorm:"not null;default:60"`
	LastInventorySyncAt          *time.Time `gorm:""`
	CreatedAt                    time.Time  `gorm:"not null"`
	UpdatedAt                    time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "integrations"
}

// ToDomain converts the model to a domain integration
func (m *IntegrationModel) ToDomain() *integration.Integration {
	return &integration.Integration{
		ID:                           m.ID,
		TenantID:                     m.TenantID,
		Source:                       integration.Source(m.Source),
		ShopDomain:                   m.ShopDomain,
		InventorySyncEnabled:         m.InventorySyncEnabled,
		InventorySyncIntervalMinutes: m.InventorySyncIntervalMinutes,
		LastInventorySyncAt:          m.LastInventorySyncAt,
		CreatedAt:                    m.CreatedAt,
		UpdatedAt:                    m.UpdatedAt,
	}
}

// IntegrationModelFromDomain creates a model from a domain integration
func IntegrationModelFromDomain(i *integration.Integration) *IntegrationModel {
	return &IntegrationModel{
		ID:                           i.ID,
		TenantID:                     i.TenantID,
		Source:                       i.Source.String(),
		ShopDomain:                   i.ShopDomain,
		InventorySyncEnabled:         i.InventorySyncEnabled,
		InventorySyncIntervalMinutes: i.InventorySyncIntervalMinutes,
		LastInventorySyncAt:          i.LastInventorySyncAt,
		CreatedAt:                    i.CreatedAt,
		UpdatedAt:                    i.UpdatedAt,
	}
}

// EventLogModel is one persisted notification
type EventLogModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantID  *uuid.UUID     `gorm:"type:uuid;index"`
	Type      string         `gorm:"type:varchar(64);not null;index"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (EventLogModel) TableName() string {
	return "event_logs"
}

// ToDomain converts the model to a domain entry
func (m *EventLogModel) ToDomain() *eventlog.Entry {
	return &eventlog.Entry{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Type:      m.Type,
		Payload:   []byte(m.Payload),
		CreatedAt: m.CreatedAt,
	}
}

// EventLogModelFromDomain creates a model from a domain entry
func EventLogModelFromDomain(e *eventlog.Entry) *EventLogModel {
	return &EventLogModel{
		ID:        e.ID,
		TenantID:  e.TenantID,
		Type:      e.Type,
		Payload:   datatypes.JSON(e.Payload),
		CreatedAt: e.CreatedAt,
	}
}

// All returns every model, in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&OrderModel{},
		&OrderItemModel{},
		&InventoryRecordModel{},
		&InventoryAdjustmentModel{},
		&InventoryBroadcastModel{},
		&WebhookEventModel{},
		&SyncJobModel{},
		&IntegrationModel{},
		&EventLogModel{},
	}
}
