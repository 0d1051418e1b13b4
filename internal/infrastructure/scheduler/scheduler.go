// Package scheduler runs durable sync jobs on a pool of polling workers and
// periodically enqueues inventory reconciliation for enabled integrations.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/domain/syncjob"
	"github.com/omnisync/backend/internal/infrastructure/config"
	"github.com/omnisync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Executor performs the marketplace work of one claimed job
type Executor interface {
	Execute(ctx context.Context, job *syncjob.Job) error
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, job *syncjob.Job) error

// Execute calls f(ctx, job)
func (f ExecutorFunc) Execute(ctx context.Context, job *syncjob.Job) error {
	return f(ctx, job)
}

// MetricsRecorder counts job outcomes
type MetricsRecorder interface {
	RecordSyncJob(jobType, status string)
}

// ---------------------------------------------------------------------------
// JobQueueConfig
// ---------------------------------------------------------------------------

// JobQueueConfig holds worker pool configuration
type JobQueueConfig struct {
	// Workers is the number of concurrent poll loops
	Workers int
	// PollInterval is the wait between polls that found no work
	PollInterval time.Duration
	// BatchSize is the number of jobs one worker claims per poll
	BatchSize int
	// JobTimeout bounds a single execution
	JobTimeout time.Duration
	// LockTTL is the lease on the sync target; it must outlive JobTimeout
	LockTTL time.Duration
	// BusyDelay postpones a job whose sync target is locked
	BusyDelay time.Duration
	// Policy decides retries and backoff
	Policy syncjob.RetryPolicy
}

// DefaultJobQueueConfig returns default configuration
func DefaultJobQueueConfig() JobQueueConfig {
	return JobQueueConfig{
		Workers:      4,
		PollInterval: time.Second,
		BatchSize:    1,
		JobTimeout:   5 * time.Minute,
		LockTTL:      6 * time.Minute,
		BusyDelay:    5 * time.Second,
		Policy:       syncjob.DefaultRetryPolicy(),
	}
}

// NewJobQueueConfig derives the pool configuration from the sync settings
func NewJobQueueConfig(cfg config.SyncConfig) JobQueueConfig {
	c := DefaultJobQueueConfig()
	if cfg.Workers > 0 {
		c.Workers = cfg.Workers
	}
	if cfg.PollInterval > 0 {
		c.PollInterval = cfg.PollInterval
	}
	if cfg.BatchSize > 0 {
		c.BatchSize = cfg.BatchSize
	}
	if cfg.JobTimeout > 0 {
		c.JobTimeout = cfg.JobTimeout
		c.LockTTL = cfg.JobTimeout + time.Minute
	}
	policy := syncjob.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Factor:      cfg.BackoffFactor,
		MaxDelay:    cfg.MaxDelay,
	}
	if policy.Validate() == nil {
		c.Policy = policy
	}
	return c
}

// Validate validates the configuration
func (c *JobQueueConfig) Validate() error {
	if c.Workers <= 0 || c.BatchSize <= 0 {
		return ErrInvalidConfig
	}
	if c.PollInterval <= 0 || c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.LockTTL < c.JobTimeout {
		return ErrInvalidConfig
	}
	if c.BusyDelay < 0 {
		return ErrInvalidConfig
	}
	return c.Policy.Validate()
}

// ---------------------------------------------------------------------------
// JobQueue
// ---------------------------------------------------------------------------

// JobQueue drains the sync_jobs table. Every worker polls the repository,
// whose conditional claim guarantees a job runs on one worker at a time, and
// executes each job under the lock of its sync target.
type JobQueue struct {
	config    JobQueueConfig
	jobs      syncjob.Repository
	locks     shared.LockCoordinator
	executors map[syncjob.Type]Executor
	notifier  shared.Notifier
	metrics   MetricsRecorder
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewJobQueue creates a new job queue
func NewJobQueue(cfg JobQueueConfig, jobs syncjob.Repository, locks shared.LockCoordinator, logger *zap.Logger) (*JobQueue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobQueue{
		config:    cfg,
		jobs:      jobs,
		locks:     locks,
		executors: make(map[syncjob.Type]Executor),
		notifier:  shared.NopNotifier{},
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Register sets the executor for a job type. It must be called before Start.
func (q *JobQueue) Register(jobType syncjob.Type, executor Executor) {
	q.executors[jobType] = executor
}

// SetNotifier sets the notifier for job outcomes
func (q *JobQueue) SetNotifier(n shared.Notifier) {
	if n != nil {
		q.notifier = n
	}
}

// SetMetrics sets the outcome counter
func (q *JobQueue) SetMetrics(m MetricsRecorder) {
	q.metrics = m
}

// Start launches the workers
func (q *JobQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = true
	q.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	q.logger.Info("Sync job queue started",
		zap.Int("workers", q.config.Workers),
		zap.Duration("poll_interval", q.config.PollInterval),
		zap.Duration("job_timeout", q.config.JobTimeout),
	)
	return nil
}

// Stop cancels the workers and waits for in-flight jobs to be written back
func (q *JobQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("Sync job queue stopped gracefully")
		return nil
	case <-ctx.Done():
		q.logger.Warn("Sync job queue stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the workers are started
func (q *JobQueue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isRunning
}

func (q *JobQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	q.logger.Debug("Worker started", zap.Int("worker_id", workerID))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			q.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
			return
		case <-timer.C:
		}

		n, err := q.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			q.logger.Error("Failed to claim sync jobs", zap.Int("worker_id", workerID), zap.Error(err))
		}
		// A full batch means more work is probably waiting.
		if n >= q.config.BatchSize {
			timer.Reset(0)
		} else {
			timer.Reset(q.config.PollInterval)
		}
	}
}

// RunOnce claims one batch of due jobs and processes them on the calling
// goroutine. It returns the number of jobs claimed.
func (q *JobQueue) RunOnce(ctx context.Context) (int, error) {
	claimed, err := q.jobs.ClaimDue(ctx, q.now(), q.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due jobs: %w", err)
	}
	for i := range claimed {
		job := &claimed[i]
		if ctx.Err() != nil {
			// Shutting down: hand the rest back without consuming attempts.
			job.Defer(0, q.now())
			q.save(ctx, job)
			continue
		}
		q.process(ctx, job)
	}
	return len(claimed), nil
}

func (q *JobQueue) process(ctx context.Context, job *syncjob.Job) {
	logger := q.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("source", job.Source),
		zap.Int("attempt", job.Attempts),
	)

	executor, ok := q.executors[job.Type]
	if !ok {
		q.finish(ctx, logger, job, fmt.Errorf("%w: %s", ErrNoExecutor, job.Type))
		return
	}

	started := time.Now()
	ran := false
	err := shared.WithLock(ctx, q.locks, shared.SyncLockKey(job.TenantID, job.Source, string(job.Type)), q.config.LockTTL, func(ctx context.Context) error {
		ran = true
		jobCtx, cancel := context.WithTimeout(ctx, q.config.JobTimeout)
		defer cancel()
		return q.execute(jobCtx, executor, job)
	})

	switch {
	case !ran && errors.Is(err, shared.ErrResourceBusy):
		job.Defer(q.config.BusyDelay, q.now())
		logger.Debug("Sync target busy, job deferred", zap.Duration("delay", q.config.BusyDelay))
		q.save(ctx, job)
		return
	case err != nil && ctx.Err() != nil:
		job.Defer(0, q.now())
		logger.Info("Job interrupted by shutdown, returned to queue")
		q.save(ctx, job)
		return
	}

	logger.Debug("Job executed", zap.Duration("duration", time.Since(started)))
	q.finish(ctx, logger, job, err)
}

// execute runs the executor and turns a panic into an error
func (q *JobQueue) execute(ctx context.Context, executor Executor, job *syncjob.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	telemetry.WithJobLabels(ctx, string(job.Type), job.Source, func(ctx context.Context) {
		err = executor.Execute(ctx, job)
	})
	return err
}

func (q *JobQueue) finish(ctx context.Context, logger *zap.Logger, job *syncjob.Job, err error) {
	now := q.now()
	if err == nil {
		job.Complete(now)
		logger.Info("Sync job completed")
	} else if job.Fail(err, isRetryable(err), q.config.Policy, now) {
		logger.Warn("Sync job failed, retry scheduled",
			zap.Time("next_run_at", job.NextRunAt),
			zap.Int("max_attempts", job.MaxAttempts),
			zap.Error(err),
		)
	} else {
		logger.Error("Sync job failed permanently", zap.Error(err))
	}

	q.save(ctx, job)
	if q.metrics != nil {
		q.metrics.RecordSyncJob(string(job.Type), string(job.Status))
	}

	switch job.Status {
	case syncjob.StatusCompleted:
		q.publish(ctx, shared.NotificationSyncJobCompleted, job)
	case syncjob.StatusFailed:
		q.publish(ctx, shared.NotificationSyncJobFailed, job)
	}
}

func (q *JobQueue) save(ctx context.Context, job *syncjob.Job) {
	if err := q.jobs.Save(context.WithoutCancel(ctx), job); err != nil {
		q.logger.Error("Failed to save sync job",
			zap.String("job_id", job.ID.String()),
			zap.String("status", string(job.Status)),
			zap.Error(err),
		)
	}
}

func (q *JobQueue) publish(ctx context.Context, typ string, job *syncjob.Job) {
	tenantID := job.TenantID
	payload := map[string]any{
		"job_id":   job.ID.String(),
		"type":     string(job.Type),
		"source":   job.Source,
		"attempts": job.Attempts,
	}
	if job.LastError != "" {
		payload["error"] = job.LastError
	}
	q.notifier.Publish(ctx, shared.NewNotification(typ, &tenantID, payload))
}

// isRetryable classifies an execution error. Configuration problems never
// heal on their own; timeouts and unclassified errors do.
func isRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrNoExecutor),
		errors.Is(err, integration.ErrOperationNotSupported),
		errors.Is(err, integration.ErrCredentialsNotFound),
		errors.Is(err, integration.ErrAdapterNotFound),
		errors.Is(err, integration.ErrInvalidSource):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return shared.IsRetryable(err)
}
