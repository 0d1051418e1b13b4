package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/shared"
)

// Adjustment reasons written by the core.
const (
	ReasonManualAdjustment = "manual_adjustment"
	ReasonOrderCreated     = "order_created"
	ReasonReconciliation   = "reconciliation"
)

// Record is the authoritative stock count for one (tenant, sku).
// Quantity never goes below zero.
type Record struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	SKU       string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord creates an empty record, used when a SKU is written for the first time.
func NewRecord(tenantID uuid.UUID, sku string) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:        uuid.New(),
		TenantID:  tenantID,
		SKU:       sku,
		Quantity:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyDelta moves the quantity by delta and returns the adjustment to
// append. The record is left untouched when the result would be negative.
func (r *Record) ApplyDelta(delta int, reason string, reference *uuid.UUID) (*Adjustment, error) {
	next := r.Quantity + delta
	if next < 0 {
		return nil, shared.ErrInsufficientInventory.WithMessage(
			"insufficient inventory for %s: have %d, requested %d", r.SKU, r.Quantity, -delta)
	}
	r.Quantity = next
	r.UpdatedAt = time.Now().UTC()
	return NewAdjustment(r.TenantID, r.SKU, delta, reason, reference), nil
}

// SetQuantity overwrites the quantity with an absolute count. It returns the
// adjustment recording the difference, or nil when nothing changed.
func (r *Record) SetQuantity(quantity int, reason string) (*Adjustment, error) {
	if quantity < 0 {
		return nil, shared.ErrValidation.WithMessage("quantity for %s cannot be negative", r.SKU)
	}
	delta := quantity - r.Quantity
	r.Quantity = quantity
	r.UpdatedAt = time.Now().UTC()
	if delta == 0 {
		return nil, nil
	}
	return NewAdjustment(r.TenantID, r.SKU, delta, reason, nil), nil
}

// Adjustment is one append-only entry of the ledger audit trail.
type Adjustment struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	SKU       string
	Delta     int
	Reason    string
	Reference *uuid.UUID
	CreatedAt time.Time
}

// NewAdjustment creates an adjustment stamped with the current time.
func NewAdjustment(tenantID uuid.UUID, sku string, delta int, reason string, reference *uuid.UUID) *Adjustment {
	return &Adjustment{
		ID:        uuid.New(),
		TenantID:  tenantID,
		SKU:       sku,
		Delta:     delta,
		Reason:    reason,
		Reference: reference,
		CreatedAt: time.Now().UTC(),
	}
}

// NormalizeSKU trims a SKU and rejects empty values.
func NormalizeSKU(sku string) (string, error) {
	s := strings.TrimSpace(sku)
	if s == "" {
		return "", shared.ErrValidation.WithMessage("sku is required")
	}
	return s, nil
}
