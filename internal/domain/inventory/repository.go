package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists ledger records and their adjustments. Only the ledger
// service may write through it, and only while holding the (tenant, sku) lease.
type Repository interface {
	// FindRecord returns shared.ErrNotFound when the SKU has never been written
	FindRecord(ctx context.Context, tenantID uuid.UUID, sku string) (*Record, error)

	// SaveRecord inserts or updates the record
	SaveRecord(ctx context.Context, record *Record) error

	// AppendAdjustment appends one audit row
	AppendAdjustment(ctx context.Context, adjustment *Adjustment) error

	// ListRecords returns every record of the tenant ordered by SKU
	ListRecords(ctx context.Context, tenantID uuid.UUID) ([]Record, error)

	// ListAdjustments returns the most recent adjustments for a SKU, newest first
	ListAdjustments(ctx context.Context, tenantID uuid.UUID, sku string, limit int) ([]Adjustment, error)
}

// Broadcast records a request to push stock levels out to marketplaces.
type Broadcast struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Source    string
	Payload   []byte
	CreatedAt time.Time
}

// BroadcastRepository persists inventory broadcasts.
type BroadcastRepository interface {
	Save(ctx context.Context, b *Broadcast) error
	List(ctx context.Context, tenantID uuid.UUID, limit int) ([]Broadcast, error)
}
