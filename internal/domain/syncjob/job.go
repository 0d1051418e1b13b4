package syncjob

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sync Job Types
// ---------------------------------------------------------------------------

var (
	ErrInvalidJobType     = errors.New("syncjob: invalid job type")
	ErrJobNotClaimable    = errors.New("syncjob: job is not pending")
	ErrJobTerminal        = errors.New("syncjob: job is in a terminal state")
	ErrJobNotFailed       = errors.New("syncjob: only failed jobs can be requeued")
	ErrInvalidRetryPolicy = errors.New("syncjob: invalid retry policy")
)

// Type is the kind of marketplace pull a job performs
type Type string

const (
	TypeOrderSync     Type = "order_sync"
	TypeInventorySync Type = "inventory_sync"
)

// IsValid returns true if the job type is known
func (t Type) IsValid() bool {
	return t == TypeOrderSync || t == TypeInventorySync
}

// Status represents the lifecycle of a job
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// IsTerminal returns true for COMPLETED and FAILED, which are immutable
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ---------------------------------------------------------------------------
// Retry Policy
// ---------------------------------------------------------------------------

// RetryPolicy controls how many times a job runs and how long it waits
// between attempts. The delay before attempt n+1 is BaseDelay*Factor^(n-1),
// capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns 3 attempts with exponential backoff from 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Factor:      2,
		MaxDelay:    30 * time.Minute,
	}
}

// Validate validates the policy
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 || p.BaseDelay < 0 || p.Factor < 1 || p.MaxDelay < p.BaseDelay {
		return ErrInvalidRetryPolicy
	}
	return nil
}

// Backoff returns the wait after the given (1-based) failed attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt-1)))
	if delay > p.MaxDelay || delay < 0 {
		delay = p.MaxDelay
	}
	return delay
}

// ---------------------------------------------------------------------------
// Job
// ---------------------------------------------------------------------------

// Job is a durable, retryable unit of asynchronous marketplace work.
type Job struct {
	ID          uuid.UUID
	Type        Type
	TenantID    uuid.UUID
	Source      string
	Payload     []byte
	Status      Status
	Attempts    int
	MaxAttempts int
	LastError   string
	NextRunAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewJob creates a PENDING job that is due immediately.
func NewJob(jobType Type, tenantID uuid.UUID, source string, payload []byte, maxAttempts int) (*Job, error) {
	if !jobType.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		Type:        jobType,
		TenantID:    tenantID,
		Source:      source,
		Payload:     payload,
		Status:      StatusPending,
		MaxAttempts: maxAttempts,
		NextRunAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Complete marks the job as successful
func (j *Job) Complete(now time.Time) {
	j.Status = StatusCompleted
	j.CompletedAt = &now
	j.LastError = ""
	j.UpdatedAt = now
}

// Fail records err. The job goes back to PENDING with a backoff delay while
// attempts remain and err is retryable; otherwise it becomes terminal FAILED.
// It returns true when the job was rescheduled.
func (j *Job) Fail(err error, retryable bool, policy RetryPolicy, now time.Time) bool {
	j.LastError = err.Error()
	j.UpdatedAt = now
	if retryable && j.Attempts < j.MaxAttempts {
		j.Status = StatusPending
		j.NextRunAt = now.Add(policy.Backoff(j.Attempts))
		return true
	}
	j.Status = StatusFailed
	j.CompletedAt = &now
	return false
}

// Defer returns a claimed job to PENDING without consuming an attempt, used
// when its sync target is locked by another worker.
func (j *Job) Defer(delay time.Duration, now time.Time) {
	if j.Attempts > 0 {
		j.Attempts--
	}
	j.Status = StatusPending
	j.NextRunAt = now.Add(delay)
	j.UpdatedAt = now
}

// ListFilter narrows job listings.
type ListFilter struct {
	Type   Type
	Status Status
	Limit  int
}

// Repository persists jobs. Claim must be atomic: a PENDING job is handed to
// exactly one caller.
type Repository interface {
	Create(ctx context.Context, job *Job) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Job, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Job, error)

	// ClaimDue moves up to limit due PENDING jobs to PROCESSING, increments
	// their attempts and returns them. A job stuck in PROCESSING past the
	// stale window counts as a failed attempt: it is retried while attempts
	// remain and FAILED otherwise.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]Job, error)

	// Save writes back the outcome of a claimed job
	Save(ctx context.Context, job *Job) error

	// HasActive reports whether a PENDING or non-stale PROCESSING job exists
	// for the target
	HasActive(ctx context.Context, tenantID uuid.UUID, source string, jobType Type) (bool, error)
}
