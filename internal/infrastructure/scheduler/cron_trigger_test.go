package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	appsync "github.com/omnisync/backend/internal/application/syncjob"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/syncjob"
	"github.com/omnisync/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type triggerFixture struct {
	trigger      *InventorySyncTrigger
	jobs         *persistence.GormSyncJobRepository
	integrations *persistence.GormIntegrationRepository
}

func newTriggerFixture(t *testing.T, interval time.Duration) *triggerFixture {
	t.Helper()
	db, err := persistence.OpenSQLite(persistence.MemoryDSN(uuid.NewString()), persistence.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	jobs := persistence.NewGormSyncJobRepository(db.DB)
	integrations := persistence.NewGormIntegrationRepository(db.DB)
	svc := appsync.NewService(jobs, persistence.NewGormBroadcastRepository(db.DB), syncjob.DefaultRetryPolicy())

	return &triggerFixture{
		trigger:      NewInventorySyncTrigger(interval, integrations, jobs, svc, nil),
		jobs:         jobs,
		integrations: integrations,
	}
}

func (f *triggerFixture) connect(t *testing.T, tenantID uuid.UUID, source integration.Source, enabled bool, last *time.Time) {
	t.Helper()
	require.NoError(t, f.integrations.Save(context.Background(), &integration.Integration{
		TenantID:                     tenantID,
		Source:                       source,
		InventorySyncEnabled:         enabled,
		InventorySyncIntervalMinutes: 30,
		LastInventorySyncAt:          last,
	}))
}

func (f *triggerFixture) pending(t *testing.T, tenantID uuid.UUID) []syncjob.Job {
	t.Helper()
	jobs, err := f.jobs.List(context.Background(), tenantID, syncjob.ListFilter{Type: syncjob.TypeInventorySync})
	require.NoError(t, err)
	return jobs
}

func TestInventorySyncTrigger_TriggerNow(t *testing.T) {
	ctx := context.Background()
	f := newTriggerFixture(t, time.Minute)

	tenantID := uuid.New()
	recent := time.Now().UTC().Add(-5 * time.Minute)
	stale := time.Now().UTC().Add(-2 * time.Hour)
	f.connect(t, tenantID, integration.SourceShopify, true, nil)
	f.connect(t, tenantID, integration.SourceWoo, true, &stale)
	f.connect(t, tenantID, integration.SourceAmazon, true, &recent)
	f.connect(t, tenantID, integration.SourceFlipkart, false, nil)

	n, err := f.trigger.TriggerNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	jobs := f.pending(t, tenantID)
	sources := map[string]bool{}
	for _, j := range jobs {
		sources[j.Source] = true
		assert.Equal(t, syncjob.StatusPending, j.Status)
	}
	assert.Equal(t, map[string]bool{"SHOPIFY": true, "WOO": true}, sources)

	shopify, err := f.integrations.FindByTenantAndSource(ctx, tenantID, integration.SourceShopify)
	require.NoError(t, err)
	require.NotNil(t, shopify.LastInventorySyncAt)

	n, err = f.trigger.TriggerNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "stamped integrations are not due again")
}

func TestInventorySyncTrigger_SkipsQueuedTargets(t *testing.T) {
	ctx := context.Background()
	f := newTriggerFixture(t, time.Minute)

	tenantID := uuid.New()
	f.connect(t, tenantID, integration.SourceShopify, true, nil)
	queued, err := syncjob.NewJob(syncjob.TypeInventorySync, tenantID, "SHOPIFY", nil, 3)
	require.NoError(t, err)
	require.NoError(t, f.jobs.Create(ctx, queued))

	n, err := f.trigger.TriggerNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.pending(t, tenantID), 1)

	in, err := f.integrations.FindByTenantAndSource(ctx, tenantID, integration.SourceShopify)
	require.NoError(t, err)
	assert.Nil(t, in.LastInventorySyncAt, "a skipped target is not stamped")
}

func TestInventorySyncTrigger_StartStop(t *testing.T) {
	f := newTriggerFixture(t, 20*time.Millisecond)
	tenantID := uuid.New()
	f.connect(t, tenantID, integration.SourceWoo, true, nil)

	require.NoError(t, f.trigger.Start(context.Background()))
	assert.Eventually(t, func() bool {
		jobs, err := f.jobs.List(context.Background(), tenantID, syncjob.ListFilter{})
		return err == nil && len(jobs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.trigger.Stop(ctx))
	require.NoError(t, f.trigger.Stop(ctx), "stopping twice is a no-op")

	assert.Len(t, f.pending(t, tenantID), 1, "later ticks skip the queued target")
}

func TestNewInventorySyncTrigger_DefaultInterval(t *testing.T) {
	trigger := NewInventorySyncTrigger(0, nil, nil, nil, nil)
	assert.Equal(t, DefaultTriggerInterval, trigger.interval)
}
