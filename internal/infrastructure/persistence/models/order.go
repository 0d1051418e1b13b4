// Package models contains the GORM persistence models. They are kept apart
// from the domain entities so the domain stays free of ORM tags; each model
// carries ToDomain and FromDomain mappers.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderModel is the persistence model for CanonicalOrder
type OrderModel struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_orders_dedupe,priority:1;index"`
	Source      string           `gorm:"type:varchar(32);not null;uniqueIndex:idx_orders_dedupe,priority:2"`
	ExternalID  *string          `gorm:"type:varchar(255);uniqueIndex:idx_orders_dedupe,priority:3"`
	Status      string           `gorm:"type:varchar(64);not null"`
	TotalAmount decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	Currency    string           `gorm:"type:varchar(3);not null"`
	RawPayload  datatypes.JSON   `gorm:"type:jsonb"`
	Items       []OrderItemModel `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"not null;index"`
	UpdatedAt   time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the persistence model for an order line
type OrderItemModel struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	SKU       string           `gorm:"type:varchar(128);not null;index"`
	Name      string           `gorm:"type:varchar(512);not null"`
	Quantity  int              `gorm:"not null;check:chk_order_items_quantity,quantity >= 1"`
	UnitPrice *decimal.Decimal `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the model and its loaded items
func (m *OrderModel) ToDomain() *order.CanonicalOrder {
	o := &order.CanonicalOrder{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Source:      m.Source,
		Status:      m.Status,
		TotalAmount: m.TotalAmount,
		Currency:    m.Currency,
		RawPayload:  []byte(m.RawPayload),
		Items:       make([]order.Item, len(m.Items)),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.ExternalID != nil {
		o.ExternalID = *m.ExternalID
	}
	for i, it := range m.Items {
		o.Items[i] = order.Item{
			ID:        it.ID,
			OrderID:   it.OrderID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}
	return o
}

// OrderModelFromDomain builds the model and item models for insertion. An
// empty external id is stored as NULL so it never collides in the dedupe index.
func OrderModelFromDomain(o *order.CanonicalOrder) *OrderModel {
	m := &OrderModel{
		ID:          o.ID,
		TenantID:    o.TenantID,
		Source:      o.Source,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		Items:       make([]OrderItemModel, len(o.Items)),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.ExternalID != "" {
		ext := o.ExternalID
		m.ExternalID = &ext
	}
	if len(o.RawPayload) > 0 {
		m.RawPayload = datatypes.JSON(o.RawPayload)
	}
	for i, it := range o.Items {
		m.Items[i] = OrderItemModel{
			ID:        it.ID,
			OrderID:   o.ID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}
	return m
}
