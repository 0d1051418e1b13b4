package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(tenantID uuid.UUID, source, externalID string, skus ...string) *order.CanonicalOrder {
	price := decimal.RequireFromString("12.50")
	o := &order.CanonicalOrder{
		Source:      source,
		ExternalID:  externalID,
		Status:      order.DefaultStatus,
		TotalAmount: decimal.RequireFromString("25.00"),
		Currency:    "USD",
		RawPayload:  []byte(`{"id":"` + externalID + `"}`),
	}
	for _, sku := range skus {
		o.Items = append(o.Items, order.Item{SKU: sku, Name: sku, Quantity: 2, UnitPrice: &price})
	}
	o.PrepareForInsert(tenantID)
	return o
}

func TestGormOrderRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newTestDB(t))
	tenantID := uuid.New()

	o := newTestOrder(tenantID, "SHOPIFY", "1001", "SKU-1", "SKU-2")
	require.NoError(t, repo.Create(ctx, o))

	found, err := repo.FindByExternalID(ctx, tenantID, "SHOPIFY", "1001")
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)
	require.Len(t, found.Items, 2)
	assert.True(t, decimal.RequireFromString("25").Equal(found.TotalAmount))
	require.NotNil(t, found.Items[0].UnitPrice)
	assert.True(t, decimal.RequireFromString("12.5").Equal(*found.Items[0].UnitPrice))

	byID, err := repo.FindByID(ctx, tenantID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "1001", byID.ExternalID)

	_, err = repo.FindByID(ctx, uuid.New(), o.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "orders are tenant scoped")
}

func TestGormOrderRepository_DuplicateExternalID(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newTestDB(t))
	tenantID := uuid.New()

	require.NoError(t, repo.Create(ctx, newTestOrder(tenantID, "SHOPIFY", "1001", "SKU-1")))

	err := repo.Create(ctx, newTestOrder(tenantID, "SHOPIFY", "1001", "SKU-1"))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// Same id from another marketplace or tenant is a different order.
	require.NoError(t, repo.Create(ctx, newTestOrder(tenantID, "WOO", "1001", "SKU-1")))
	require.NoError(t, repo.Create(ctx, newTestOrder(uuid.New(), "SHOPIFY", "1001", "SKU-1")))
}

func TestGormOrderRepository_EmptyExternalIDNeverCollides(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newTestDB(t))
	tenantID := uuid.New()

	require.NoError(t, repo.Create(ctx, newTestOrder(tenantID, "AMAZON", "", "SKU-1")))
	require.NoError(t, repo.Create(ctx, newTestOrder(tenantID, "AMAZON", "", "SKU-1")))

	orders, total, err := repo.List(ctx, tenantID, order.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)
	assert.Empty(t, orders[0].ExternalID)
}

func TestGormOrderRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newTestDB(t))
	tenantID := uuid.New()

	for i, src := range []string{"SHOPIFY", "SHOPIFY", "WOO"} {
		require.NoError(t, repo.Create(ctx, newTestOrder(tenantID, src, uuid.NewString(), "SKU-1")), i)
	}

	orders, total, err := repo.List(ctx, tenantID, order.ListFilter{Source: "SHOPIFY", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, orders, 1)
	assert.Equal(t, "SHOPIFY", orders[0].Source)
	assert.Len(t, orders[0].Items, 1)

	_, total, err = repo.List(ctx, tenantID, order.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}
