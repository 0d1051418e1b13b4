package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/domain/syncjob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(t *testing.T, tenantID uuid.UUID, jobType syncjob.Type) *syncjob.Job {
	t.Helper()
	job, err := syncjob.NewJob(jobType, tenantID, "SHOPIFY", []byte(`{"reason":"test"}`), 3)
	require.NoError(t, err)
	return job
}

func TestGormSyncJobRepository_ClaimDue(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncJobRepository(newTestDB(t))
	tenantID := uuid.New()
	now := time.Now().UTC()

	due := newTestJob(t, tenantID, syncjob.TypeInventorySync)
	require.NoError(t, repo.Create(ctx, due))

	later := newTestJob(t, tenantID, syncjob.TypeOrderSync)
	later.NextRunAt = now.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, later))

	claimed, err := repo.ClaimDue(ctx, now.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, due.ID, claimed[0].ID)
	assert.Equal(t, syncjob.StatusProcessing, claimed[0].Status)
	assert.Equal(t, 1, claimed[0].Attempts)
	assert.NotNil(t, claimed[0].StartedAt)

	again, err := repo.ClaimDue(ctx, now.Add(time.Second), 10)
	require.NoError(t, err)
	assert.Empty(t, again, "a PROCESSING job is not handed out twice")
}

func TestGormSyncJobRepository_ConcurrentClaimsAreExclusive(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncJobRepository(newTestDB(t))
	tenantID := uuid.New()

	const jobs = 20
	for range jobs {
		require.NoError(t, repo.Create(ctx, newTestJob(t, tenantID, syncjob.TypeOrderSync)))
	}

	var (
		mu   sync.Mutex
		seen = map[uuid.UUID]int{}
		wg   sync.WaitGroup
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				claimed, err := repo.ClaimDue(ctx, time.Now().UTC().Add(time.Second), 3)
				if err != nil || len(claimed) == 0 {
					return
				}
				mu.Lock()
				for _, j := range claimed {
					seen[j.ID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, jobs)
	for id, n := range seen {
		assert.Equal(t, 1, n, "job %s claimed more than once", id)
	}
}

func TestGormSyncJobRepository_SaveAndHasActive(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncJobRepository(newTestDB(t))
	tenantID := uuid.New()

	job := newTestJob(t, tenantID, syncjob.TypeInventorySync)
	require.NoError(t, repo.Create(ctx, job))

	active, err := repo.HasActive(ctx, tenantID, "SHOPIFY", syncjob.TypeInventorySync)
	require.NoError(t, err)
	assert.True(t, active)

	active, err = repo.HasActive(ctx, tenantID, "SHOPIFY", syncjob.TypeOrderSync)
	require.NoError(t, err)
	assert.False(t, active)

	claimed, err := repo.ClaimDue(ctx, time.Now().UTC().Add(time.Second), 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	j := claimed[0]
	j.Fail(errors.New("marketplace down"), false, syncjob.DefaultRetryPolicy(), time.Now().UTC())
	require.NoError(t, repo.Save(ctx, &j))

	stored, err := repo.FindByID(ctx, tenantID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, syncjob.StatusFailed, stored.Status)
	assert.Equal(t, "marketplace down", stored.LastError)
	assert.NotNil(t, stored.CompletedAt)

	active, err = repo.HasActive(ctx, tenantID, "SHOPIFY", syncjob.TypeInventorySync)
	require.NoError(t, err)
	assert.False(t, active)

	failed, err := repo.List(ctx, tenantID, syncjob.ListFilter{Status: syncjob.StatusFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestGormSyncJobRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncJobRepository(newTestDB(t))

	_, err := repo.FindByID(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	job := newTestJob(t, uuid.New(), syncjob.TypeOrderSync)
	assert.ErrorIs(t, repo.Save(ctx, job), shared.ErrNotFound)
}

func TestGormSyncJobRepository_ReclaimsStaleProcessingJobs(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncJobRepository(newTestDB(t))
	repo.SetStaleAfter(10 * time.Minute)
	tenantID := uuid.New()
	now := time.Now().UTC()

	job := newTestJob(t, tenantID, syncjob.TypeInventorySync)
	job.NextRunAt = now.Add(-2 * time.Hour)
	require.NoError(t, repo.Create(ctx, job))

	// Claimed by a worker that never reports back.
	lost, err := repo.ClaimDue(ctx, now.Add(-time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, lost, 1)

	active, err := repo.HasActive(ctx, tenantID, "SHOPIFY", syncjob.TypeInventorySync)
	require.NoError(t, err)
	assert.False(t, active, "a stale PROCESSING job does not block new triggers")

	claimed, err := repo.ClaimDue(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, job.ID, claimed[0].ID)
	assert.Equal(t, syncjob.StatusProcessing, claimed[0].Status)
	assert.Equal(t, 2, claimed[0].Attempts)
	assert.Equal(t, StaleJobError, claimed[0].LastError)

	active, err = repo.HasActive(ctx, tenantID, "SHOPIFY", syncjob.TypeInventorySync)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestGormSyncJobRepository_StaleJobWithoutAttemptsLeftFails(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncJobRepository(newTestDB(t))
	tenantID := uuid.New()
	now := time.Now().UTC()

	job, err := syncjob.NewJob(syncjob.TypeOrderSync, tenantID, "SHOPIFY", []byte(`{}`), 1)
	require.NoError(t, err)
	job.NextRunAt = now.Add(-2 * time.Hour)
	require.NoError(t, repo.Create(ctx, job))

	lost, err := repo.ClaimDue(ctx, now.Add(-time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, lost, 1)

	claimed, err := repo.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	stored, err := repo.FindByID(ctx, tenantID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, syncjob.StatusFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, StaleJobError, stored.LastError)
	assert.NotNil(t, stored.CompletedAt)
}
