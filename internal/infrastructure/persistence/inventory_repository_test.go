package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormInventoryRepository_RecordLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInventoryRepository(newTestDB(t))
	tenantID := uuid.New()

	_, err := repo.FindRecord(ctx, tenantID, "SKU-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	record := inventory.NewRecord(tenantID, "SKU-1")
	record.Quantity = 10
	require.NoError(t, repo.SaveRecord(ctx, record))

	record.Quantity = 7
	require.NoError(t, repo.SaveRecord(ctx, record))

	found, err := repo.FindRecord(ctx, tenantID, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 7, found.Quantity)
	assert.Equal(t, record.ID, found.ID)

	other := inventory.NewRecord(uuid.New(), "SKU-1")
	require.NoError(t, repo.SaveRecord(ctx, other))

	records, err := repo.ListRecords(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, records, 1, "records are tenant scoped")
}

func TestGormInventoryRepository_RejectsNegativeQuantity(t *testing.T) {
	repo := NewGormInventoryRepository(newTestDB(t))
	record := inventory.NewRecord(uuid.New(), "SKU-1")
	record.Quantity = -1

	err := repo.SaveRecord(context.Background(), record)
	assert.Error(t, err)
}

func TestGormInventoryRepository_ListAdjustments(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInventoryRepository(newTestDB(t))
	tenantID := uuid.New()
	ref := uuid.New()

	record := inventory.NewRecord(tenantID, "SKU-1")
	for _, delta := range []int{5, -2, -1} {
		adj, err := record.ApplyDelta(delta, inventory.ReasonManualAdjustment, &ref)
		require.NoError(t, err)
		require.NoError(t, repo.AppendAdjustment(ctx, adj))
	}
	require.NoError(t, repo.SaveRecord(ctx, record))

	adjustments, err := repo.ListAdjustments(ctx, tenantID, "SKU-1", 2)
	require.NoError(t, err)
	assert.Len(t, adjustments, 2)

	all, err := repo.ListAdjustments(ctx, tenantID, "SKU-1", 0)
	require.NoError(t, err)
	sum := 0
	for _, a := range all {
		sum += a.Delta
		require.NotNil(t, a.Reference)
		assert.Equal(t, ref, *a.Reference)
	}
	assert.Equal(t, record.Quantity, sum, "adjustments sum to the current quantity")
}

func TestGormInventoryRepository_ListRecordsError(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormInventoryRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "inventory_records" WHERE tenant_id = \$1 ORDER BY sku ASC`).
		WillReturnError(assert.AnError)

	_, err := repo.ListRecords(context.Background(), uuid.New())
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInventoryRepository_FindRecordQuery(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormInventoryRepository(db)
	tenantID := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "sku", "quantity"}).
		AddRow(uuid.New(), tenantID, "SKU-9", 3)
	mock.ExpectQuery(`SELECT \* FROM "inventory_records" WHERE tenant_id = \$1 AND sku = \$2`).
		WithArgs(tenantID, "SKU-9", 1).
		WillReturnRows(rows)

	record, err := repo.FindRecord(context.Background(), tenantID, "SKU-9")
	require.NoError(t, err)
	assert.Equal(t, 3, record.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormBroadcastRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBroadcastRepository(newTestDB(t))
	tenantID := uuid.New()

	require.NoError(t, repo.Save(ctx, &inventory.Broadcast{
		ID:       uuid.New(),
		TenantID: tenantID,
		Source:   "SHOPIFY",
		Payload:  []byte(`[{"sku":"SKU-1","quantity":4}]`),
	}))
	require.NoError(t, repo.Save(ctx, &inventory.Broadcast{
		ID:       uuid.New(),
		TenantID: tenantID,
		Payload:  []byte(`[]`),
	}))

	list, err := repo.List(ctx, tenantID, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	sources := []string{list[0].Source, list[1].Source}
	assert.ElementsMatch(t, []string{"SHOPIFY", ""}, sources)
}
