package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Default values applied when a marketplace omits a field.
const (
	DefaultStatus = "NEW"
	UnknownSKU    = "UNKNOWN"
)

// CanonicalOrder is the marketplace-agnostic order representation. It is
// created once per successful normalization and immutable afterwards.
type CanonicalOrder struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Source      string
	ExternalID  string
	Status      string
	TotalAmount decimal.Decimal
	Currency    string
	Items       []Item
	RawPayload  []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item is a line of a CanonicalOrder. Quantity is always at least 1.
type Item struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	SKU       string
	Name      string
	Quantity  int
	UnitPrice *decimal.Decimal
}

// PrepareForInsert assigns identifiers and timestamps to the order and its items.
func (o *CanonicalOrder) PrepareForInsert(tenantID uuid.UUID) {
	now := time.Now().UTC()
	o.ID = uuid.New()
	o.TenantID = tenantID
	o.CreatedAt = now
	o.UpdatedAt = now
	for i := range o.Items {
		o.Items[i].ID = uuid.New()
		o.Items[i].OrderID = o.ID
	}
}

// SKUs returns the distinct SKUs referenced by the order's items.
func (o *CanonicalOrder) SKUs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	out := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.SKU]; ok {
			continue
		}
		seen[it.SKU] = struct{}{}
		out = append(out, it.SKU)
	}
	return out
}

// HasExternalID reports whether the order can be deduplicated on replay.
func (o *CanonicalOrder) HasExternalID() bool {
	return o.ExternalID != ""
}

// ListFilter narrows order listings.
type ListFilter struct {
	Source string
	Limit  int
	Offset int
}

// Repository persists canonical orders together with their items.
type Repository interface {
	// FindByExternalID returns shared.ErrNotFound when no order matches
	FindByExternalID(ctx context.Context, tenantID uuid.UUID, source, externalID string) (*CanonicalOrder, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*CanonicalOrder, error)
	// Create inserts the order and its items. It returns shared.ErrAlreadyExists
	// when the (tenant, source, external id) key is taken.
	Create(ctx context.Context, order *CanonicalOrder) error
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]CanonicalOrder, int64, error)
}
