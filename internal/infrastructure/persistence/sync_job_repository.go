package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/syncjob"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// DefaultStaleJobAfter is how long a job may stay PROCESSING before its
// worker is presumed dead. It matches the default job timeout plus lock TTL.
const DefaultStaleJobAfter = 11 * time.Minute

// StaleJobError is recorded on a job reclaimed from a lost worker
const StaleJobError = "worker lost while processing"

// GormSyncJobRepository implements syncjob.Repository using GORM
type GormSyncJobRepository struct {
	db         *gorm.DB
	staleAfter time.Duration
	now        func() time.Time
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db, staleAfter: DefaultStaleJobAfter, now: time.Now}
}

// SetStaleAfter sets how long a PROCESSING job may run before it is reclaimed.
// It should be at least the job timeout plus the sync lock TTL.
func (r *GormSyncJobRepository) SetStaleAfter(d time.Duration) {
	if d > 0 {
		r.staleAfter = d
	}
}

// Create inserts a job
func (r *GormSyncJobRepository) Create(ctx context.Context, job *syncjob.Job) error {
	return translateError(r.db.WithContext(ctx).Create(models.SyncJobModelFromDomain(job)).Error)
}

// FindByID finds a job within a tenant
func (r *GormSyncJobRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*syncjob.Job, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// List returns the newest jobs of a tenant
func (r *GormSyncJobRepository) List(ctx context.Context, tenantID uuid.UUID, filter syncjob.ListFilter) ([]syncjob.Job, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.Type != "" {
		query = query.Where("type = ?", string(filter.Type))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var rows []models.SyncJobModel
	if err := query.
		Order("created_at DESC").
		Limit(clampLimit(filter.Limit, 50, 500)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toJobs(rows), nil
}

// ClaimDue hands out due PENDING jobs. Each candidate is flipped with a
// conditional UPDATE, so when several pollers race for the same row only the
// one whose UPDATE affects it gets the job. Jobs left PROCESSING by a dead
// worker are reclaimed first.
func (r *GormSyncJobRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]syncjob.Job, error) {
	now = now.UTC()
	if err := r.reclaimStale(ctx, now); err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("status = ? AND next_run_at <= ?", string(syncjob.StatusPending), now).
		Order("next_run_at ASC").
		Limit(clampLimit(limit, 10, 100)).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	claimed := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		result := r.db.WithContext(ctx).
			Model(&models.SyncJobModel{}).
			Where("id = ? AND status = ?", id, string(syncjob.StatusPending)).
			UpdateColumns(map[string]any{
				"status":     string(syncjob.StatusProcessing),
				"attempts":   gorm.Expr("attempts + 1"),
				"started_at": now,
				"updated_at": now,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			claimed = append(claimed, id)
		}
	}
	if len(claimed) == 0 {
		return nil, nil
	}

	var rows []models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", claimed).
		Order("next_run_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toJobs(rows), nil
}

// Save writes back every mutable column of a job
func (r *GormSyncJobRepository) Save(ctx context.Context, job *syncjob.Job) error {
	result := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":       string(job.Status),
			"attempts":     job.Attempts,
			"last_error":   job.LastError,
			"next_run_at":  job.NextRunAt.UTC(),
			"started_at":   job.StartedAt,
			"completed_at": job.CompletedAt,
			"updated_at":   job.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

// HasActive reports whether a PENDING or live PROCESSING job exists for a
// target. A PROCESSING job past the stale window does not count.
func (r *GormSyncJobRepository) HasActive(ctx context.Context, tenantID uuid.UUID, source string, jobType syncjob.Type) (bool, error) {
	cutoff := r.now().UTC().Add(-r.staleAfter)
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("tenant_id = ? AND source = ? AND type = ?", tenantID, source, string(jobType)).
		Where("status = ? OR (status = ? AND started_at >= ?)",
			string(syncjob.StatusPending), string(syncjob.StatusProcessing), cutoff).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// reclaimStale settles jobs whose worker stopped reporting. The claim already
// counted their attempt: jobs with attempts left go back to PENDING due now,
// the rest become FAILED.
func (r *GormSyncJobRepository) reclaimStale(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-r.staleAfter)
	stale := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&models.SyncJobModel{}).
			Where("status = ? AND started_at < ?", string(syncjob.StatusProcessing), cutoff)
	}

	if err := stale().
		Where("attempts >= max_attempts").
		UpdateColumns(map[string]any{
			"status":       string(syncjob.StatusFailed),
			"last_error":   StaleJobError,
			"completed_at": now,
			"updated_at":   now,
		}).Error; err != nil {
		return err
	}
	return stale().
		UpdateColumns(map[string]any{
			"status":      string(syncjob.StatusPending),
			"last_error":  StaleJobError,
			"next_run_at": now,
			"updated_at":  now,
		}).Error
}

func toJobs(rows []models.SyncJobModel) []syncjob.Job {
	out := make([]syncjob.Job, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ syncjob.Repository = (*GormSyncJobRepository)(nil)
