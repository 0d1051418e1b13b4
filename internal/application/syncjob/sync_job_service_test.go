package syncjob_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	appsync "github.com/omnisync/backend/internal/application/syncjob"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/domain/syncjob"
	"github.com/omnisync/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedTypes []string

func (p *publishedTypes) Publish(_ context.Context, n shared.Notification) {
	*p = append(*p, n.Type)
}

func newService(t *testing.T) (*appsync.Service, *persistence.GormSyncJobRepository, *publishedTypes) {
	t.Helper()
	db, err := persistence.OpenSQLite(persistence.MemoryDSN(uuid.NewString()), persistence.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	jobs := persistence.NewGormSyncJobRepository(db.DB)
	svc := appsync.NewService(jobs, persistence.NewGormBroadcastRepository(db.DB), syncjob.DefaultRetryPolicy())
	published := &publishedTypes{}
	svc.SetNotifier(published)
	return svc, jobs, published
}

func TestService_Enqueue(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	tenantID := uuid.New()

	job, err := svc.Enqueue(ctx, syncjob.TypeOrderSync, tenantID, "shopify", []byte(`{"since":"2025-01-01"}`))
	require.NoError(t, err)
	assert.Equal(t, syncjob.StatusPending, job.Status)
	assert.Equal(t, "SHOPIFY", job.Source)
	assert.Equal(t, 3, job.MaxAttempts)
	assert.Zero(t, job.Attempts)

	got, err := svc.Get(ctx, tenantID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = svc.Get(ctx, uuid.New(), job.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	tests := []struct {
		name    string
		jobType syncjob.Type
		source  string
		payload string
	}{
		{"unknown type", "price_sync", "SHOPIFY", ""},
		{"unknown source", syncjob.TypeOrderSync, "ebay", ""},
		{"payload not an object", syncjob.TypeOrderSync, "WOO", `[1]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Enqueue(ctx, tt.jobType, tenantID, tt.source, []byte(tt.payload))
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestService_Requeue(t *testing.T) {
	ctx := context.Background()
	svc, jobs, _ := newService(t)
	tenantID := uuid.New()

	job, err := svc.Enqueue(ctx, syncjob.TypeInventorySync, tenantID, "WOO", nil)
	require.NoError(t, err)

	_, err = svc.Requeue(ctx, tenantID, job.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState, "pending jobs cannot be requeued")

	claimed, err := jobs.ClaimDue(ctx, time.Now().UTC().Add(time.Second), 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	failed := claimed[0]
	failed.Fail(errors.New("boom"), false, syncjob.DefaultRetryPolicy(), time.Now().UTC())
	require.NoError(t, jobs.Save(ctx, &failed))

	fresh, err := svc.Requeue(ctx, tenantID, job.ID)
	require.NoError(t, err)
	assert.NotEqual(t, job.ID, fresh.ID)
	assert.Equal(t, syncjob.StatusPending, fresh.Status)
	assert.Equal(t, syncjob.TypeInventorySync, fresh.Type)

	old, err := svc.Get(ctx, tenantID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, syncjob.StatusFailed, old.Status, "the failed row is kept")

	all, err := svc.List(ctx, tenantID, syncjob.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_Broadcast(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"items":[{"sku":"SKU-1","quantity":4}]}`)

	t.Run("fans out to every marketplace", func(t *testing.T) {
		svc, _, published := newService(t)
		tenantID := uuid.New()

		res, err := svc.Broadcast(ctx, tenantID, "", payload)
		require.NoError(t, err)
		require.Len(t, res.Jobs, 4)
		sources := make([]string, 0, 4)
		for _, j := range res.Jobs {
			assert.Equal(t, syncjob.TypeInventorySync, j.Type)
			assert.JSONEq(t, string(payload), string(j.Payload))
			sources = append(sources, j.Source)
		}
		assert.Equal(t, []string{"AMAZON", "SHOPIFY", "WOO", "FLIPKART"}, sources)
		assert.Equal(t, []string{shared.NotificationInventoryBroadcast}, []string(*published))

		stored, err := svc.ListBroadcasts(ctx, tenantID, 10)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Empty(t, stored[0].Source)
	})

	t.Run("targets one source", func(t *testing.T) {
		svc, _, _ := newService(t)
		res, err := svc.Broadcast(ctx, uuid.New(), "flipkart", payload)
		require.NoError(t, err)
		require.Len(t, res.Jobs, 1)
		assert.Equal(t, "FLIPKART", res.Jobs[0].Source)
		assert.Equal(t, "FLIPKART", res.Broadcast.Source)
	})

	t.Run("rejects a non-object payload", func(t *testing.T) {
		svc, _, _ := newService(t)
		_, err := svc.Broadcast(ctx, uuid.New(), "", []byte(`"stock"`))
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}
