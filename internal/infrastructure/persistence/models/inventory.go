package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/inventory"
	"gorm.io/datatypes"
)

// InventoryRecordModel is the persistence model for inventory.Record
type InventoryRecordModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_records_tenant_sku,priority:1"`
	SKU       string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_inventory_records_tenant_sku,priority:2"`
	Quantity  int       `gorm:"not null;default:0;check:chk_inventory_records_quantity,quantity >= 0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InventoryRecordModel) TableName() string {
	return "inventory_records"
}

// ToDomain converts the model to a domain record
func (m *InventoryRecordModel) ToDomain() *inventory.Record {
	return &inventory.Record{
		ID:        m.ID,
		TenantID:  m.TenantID,
		SKU:       m.SKU,
		Quantity:  m.Quantity,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// InventoryRecordModelFromDomain creates a model from a domain record
func InventoryRecordModelFromDomain(r *inventory.Record) *InventoryRecordModel {
	return &InventoryRecordModel{
		ID:        r.ID,
		TenantID:  r.TenantID,
		SKU:       r.SKU,
		Quantity:  r.Quantity,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// InventoryAdjustmentModel is one append-only ledger row
type InventoryAdjustmentModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_inventory_adjustments_tenant_sku,priority:1"`
	SKU       string     `gorm:"type:varchar(128);not null;index:idx_inventory_adjustments_tenant_sku,priority:2"`
	Delta     int        `gorm:"not null"`
	Reason    string     `gorm:"type:varchar(64);not null"`
	Reference *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InventoryAdjustmentModel) TableName() string {
	return "inventory_adjustments"
}

// ToDomain converts the model to a domain adjustment
func (m *InventoryAdjustmentModel) ToDomain() *inventory.Adjustment {
	return &inventory.Adjustment{
		ID:        m.ID,
		TenantID:  m.TenantID,
		SKU:       m.SKU,
		Delta:     m.Delta,
		Reason:    m.Reason,
		Reference: m.Reference,
		CreatedAt: m.CreatedAt,
	}
}

// InventoryAdjustmentModelFromDomain creates a model from a domain adjustment
func InventoryAdjustmentModelFromDomain(a *inventory.Adjustment) *InventoryAdjustmentModel {
	return &InventoryAdjustmentModel{
		ID:        a.ID,
		TenantID:  a.TenantID,
		SKU:       a.SKU,
		Delta:     a.Delta,
		Reason:    a.Reason,
		Reference: a.Reference,
		CreatedAt: a.CreatedAt,
	}
}

// InventoryBroadcastModel records one outbound stock broadcast request
type InventoryBroadcastModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Source    *string        `gorm:"type:varchar(32)"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InventoryBroadcastModel) TableName() string {
	return "inventory_broadcasts"
}

// ToDomain converts the model to a domain broadcast
func (m *InventoryBroadcastModel) ToDomain() *inventory.Broadcast {
	b := &inventory.Broadcast{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Payload:   []byte(m.Payload),
		CreatedAt: m.CreatedAt,
	}
	if m.Source != nil {
		b.Source = *m.Source
	}
	return b
}

// InventoryBroadcastModelFromDomain creates a model from a domain broadcast
func InventoryBroadcastModelFromDomain(b *inventory.Broadcast) *InventoryBroadcastModel {
	m := &InventoryBroadcastModel{
		ID:        b.ID,
		TenantID:  b.TenantID,
		Payload:   datatypes.JSON(b.Payload),
		CreatedAt: b.CreatedAt,
	}
	if b.Source != "" {
		src := b.Source
		m.Source = &src
	}
	return m
}
