package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/application/transaction"
	"github.com/omnisync/backend/internal/domain/eventlog"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/domain/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormWebhookEventRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormWebhookEventRepository(newTestDB(t))

	raw := []byte("{not json")
	event := webhook.NewEvent("SHOPIFY", "orders/create", nil, raw)
	require.NoError(t, repo.Create(ctx, event))

	tenantID := uuid.New()
	event.TenantID = &tenantID
	event.Fail(shared.ErrMalformedPayload)
	require.NoError(t, repo.Update(ctx, event))

	stored, err := repo.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, raw, stored.RawPayload, "malformed bodies are kept verbatim")
	assert.Equal(t, webhook.StateReceived, stored.State)
	assert.Equal(t, shared.ErrMalformedPayload.Message, stored.Error)
	require.NotNil(t, stored.TenantID)
	assert.Equal(t, tenantID, *stored.TenantID)

	recent, err := repo.ListRecent(ctx, tenantID, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	missing := webhook.NewEvent("WOO", "", nil, nil)
	assert.ErrorIs(t, repo.Update(ctx, missing), shared.ErrNotFound)
}

func TestGormWebhookEventRepository_SignatureIsStored(t *testing.T) {
	ctx := context.Background()
	repo := NewGormWebhookEventRepository(newTestDB(t))

	event := webhook.NewEvent("SHOPIFY", "orders/create", nil, []byte(`{"id":1}`))
	event.Signature = "c2lnbmF0dXJl"
	require.NoError(t, repo.Create(ctx, event))

	stored, err := repo.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "c2lnbmF0dXJl", stored.Signature)
}

func TestGormWebhookEventRepository_ListRecentFiltersBeforeLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewGormWebhookEventRepository(newTestDB(t))

	quiet, busy := uuid.New(), uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	add := func(tenantID uuid.UUID, offset time.Duration) {
		id := tenantID
		event := webhook.NewEvent("SHOPIFY", "orders/create", &id, []byte(`{}`))
		event.ReceivedAt = base.Add(offset)
		require.NoError(t, repo.Create(ctx, event))
	}

	// The quiet tenant's events are the oldest; the busy tenant's newer
	// events would fill any global window first.
	for i := range 3 {
		add(quiet, time.Duration(i)*time.Second)
	}
	for i := range 20 {
		add(busy, time.Minute+time.Duration(i)*time.Second)
	}

	mine, err := repo.ListRecent(ctx, quiet, 5)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	for _, e := range mine {
		require.NotNil(t, e.TenantID)
		assert.Equal(t, quiet, *e.TenantID)
	}
	assert.True(t, mine[0].ReceivedAt.After(mine[2].ReceivedAt), "newest first")

	theirs, err := repo.ListRecent(ctx, busy, 5)
	require.NoError(t, err)
	assert.Len(t, theirs, 5)
}

func TestGormIntegrationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormIntegrationRepository(newTestDB(t))
	tenantID := uuid.New()

	in := &integration.Integration{
		TenantID:             tenantID,
		Source:               integration.SourceShopify,
		ShopDomain:           "acme.myshopify.com",
		InventorySyncEnabled: true,
	}
	require.NoError(t, repo.Save(ctx, in))
	require.NoError(t, repo.Save(ctx, &integration.Integration{
		TenantID: tenantID,
		Source:   integration.SourceWoo,
	}))

	byShop, err := repo.FindByShopDomain(ctx, integration.SourceShopify, "acme.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, tenantID, byShop.TenantID)

	enabled, err := repo.FindInventorySyncEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Nil(t, enabled[0].LastInventorySyncAt)

	at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkInventorySynced(ctx, enabled[0].ID, at))

	found, err := repo.FindByTenantAndSource(ctx, tenantID, integration.SourceShopify)
	require.NoError(t, err)
	require.NotNil(t, found.LastInventorySyncAt)
	assert.True(t, at.Equal(*found.LastInventorySyncAt))

	require.NoError(t, repo.Save(ctx, &integration.Integration{
		TenantID:                     tenantID,
		Source:                       integration.SourceShopify,
		ShopDomain:                   "acme.myshopify.com",
		InventorySyncEnabled:         true,
		InventorySyncIntervalMinutes: 15,
	}))
	found, err = repo.FindByTenantAndSource(ctx, tenantID, integration.SourceShopify)
	require.NoError(t, err)
	assert.Equal(t, 15, found.InventorySyncIntervalMinutes, "save upserts on tenant and source")

	_, err = repo.FindByTenantAndSource(ctx, tenantID, integration.SourceAmazon)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormEventLogRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormEventLogRepository(newTestDB(t))
	tenantID := uuid.New()

	n := shared.NewNotification(shared.NotificationOrderCreated, &tenantID, map[string]any{"order_id": "o-1"})
	entry, err := eventlog.FromNotification(n)
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, entry))
	require.NoError(t, repo.Append(ctx, entry), "redelivery is ignored")

	other, err := eventlog.FromNotification(shared.NewNotification(shared.NotificationSyncJobFailed, nil, nil))
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, other))

	mine, err := repo.List(ctx, &tenantID, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.JSONEq(t, `{"order_id":"o-1"}`, string(mine[0].Payload))

	all, err := repo.List(ctx, nil, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGormTransactionScope(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	scope := NewGormTransactionScope(db)
	tenantID := uuid.New()

	t.Run("commits on success", func(t *testing.T) {
		err := scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
			o := newTestOrder(tenantID, "SHOPIFY", "commit-1", "SKU-1")
			if err := repos.Orders().Create(ctx, o); err != nil {
				return err
			}
			r := inventory.NewRecord(tenantID, "SKU-1")
			r.Quantity = 3
			return repos.Inventory().SaveRecord(ctx, r)
		})
		require.NoError(t, err)

		_, err = NewGormOrderRepository(db).FindByExternalID(ctx, tenantID, "SHOPIFY", "commit-1")
		assert.NoError(t, err)
	})

	t.Run("rolls back every write on error", func(t *testing.T) {
		boom := errors.New("ledger refused")
		err := scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
			o := newTestOrder(tenantID, "SHOPIFY", "rollback-1", "SKU-2")
			if err := repos.Orders().Create(ctx, o); err != nil {
				return err
			}
			r := inventory.NewRecord(tenantID, "SKU-2")
			r.Quantity = 9
			if err := repos.Inventory().SaveRecord(ctx, r); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = NewGormOrderRepository(db).FindByExternalID(ctx, tenantID, "SHOPIFY", "rollback-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = NewGormInventoryRepository(db).FindRecord(ctx, tenantID, "SKU-2")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
