package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultInventorySyncInterval applies when an integration has no interval set.
const DefaultInventorySyncInterval = 60 * time.Minute

// Integration is a tenant's connection to one marketplace. It carries the
// scheduling state of periodic inventory reconciliation but no secrets.
type Integration struct {
	ID                           uuid.UUID
	TenantID                     uuid.UUID
	Source                       Source
	ShopDomain                   string
	InventorySyncEnabled         bool
	InventorySyncIntervalMinutes int
	LastInventorySyncAt          *time.Time
	CreatedAt                    time.Time
	UpdatedAt                    time.Time
}

// SyncInterval returns the configured reconciliation interval.
func (i *Integration) SyncInterval() time.Duration {
	if i.InventorySyncIntervalMinutes <= 0 {
		return DefaultInventorySyncInterval
	}
	return time.Duration(i.InventorySyncIntervalMinutes) * time.Minute
}

// InventorySyncDue reports whether the last run is older than the interval.
func (i *Integration) InventorySyncDue(now time.Time) bool {
	if !i.InventorySyncEnabled {
		return false
	}
	if i.LastInventorySyncAt == nil {
		return true
	}
	return now.Sub(*i.LastInventorySyncAt) >= i.SyncInterval()
}

// IntegrationRepository persists Integration entities.
type IntegrationRepository interface {
	FindByTenantAndSource(ctx context.Context, tenantID uuid.UUID, source Source) (*Integration, error)
	// FindByShopDomain resolves the tenant owning a store, used for webhooks
	// that carry no tenant header.
	FindByShopDomain(ctx context.Context, source Source, shopDomain string) (*Integration, error)
	FindInventorySyncEnabled(ctx context.Context) ([]Integration, error)
	MarkInventorySynced(ctx context.Context, id uuid.UUID, at time.Time) error
	Save(ctx context.Context, integration *Integration) error
}
