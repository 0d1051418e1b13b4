// Package syncjob exposes the durable sync job queue to the API: enqueueing,
// inspection, manual requeue and inventory broadcasts.
package syncjob

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/domain/syncjob"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// BroadcastResult is the stored broadcast and the jobs it fanned out to
type BroadcastResult struct {
	Broadcast *inventory.Broadcast
	Jobs      []*syncjob.Job
}

// Service manages sync jobs
type Service struct {
	jobs       syncjob.Repository
	broadcasts inventory.BroadcastRepository
	policy     syncjob.RetryPolicy
	notifier   shared.Notifier
	logger     *zap.Logger
}

// NewService creates a new sync job Service
func NewService(jobs syncjob.Repository, broadcasts inventory.BroadcastRepository, policy syncjob.RetryPolicy) *Service {
	if policy.Validate() != nil {
		policy = syncjob.DefaultRetryPolicy()
	}
	return &Service{
		jobs:       jobs,
		broadcasts: broadcasts,
		policy:     policy,
		notifier:   shared.NopNotifier{},
		logger:     zap.NewNop(),
	}
}

// SetNotifier sets the notifier for inventory.broadcast notifications
func (s *Service) SetNotifier(n shared.Notifier) {
	if n != nil {
		s.notifier = n
	}
}

// SetLogger sets the logger
func (s *Service) SetLogger(l *zap.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Enqueue stores a PENDING job and returns without running it
func (s *Service) Enqueue(ctx context.Context, jobType syncjob.Type, tenantID uuid.UUID, source string, payload []byte) (*syncjob.Job, error) {
	src := integration.ParseSource(source)
	if !src.IsValid() {
		return nil, shared.ErrValidation.WithMessage("unknown source %q", source)
	}
	if len(payload) > 0 && !gjson.ParseBytes(payload).IsObject() {
		return nil, shared.ErrValidation.WithMessage("payload must be a JSON object")
	}
	job, err := syncjob.NewJob(jobType, tenantID, src.String(), payload, s.policy.MaxAttempts)
	if err != nil {
		if errors.Is(err, syncjob.ErrInvalidJobType) {
			return nil, shared.ErrValidation.WithMessage("unknown job type %q", jobType)
		}
		return nil, err
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("sync job enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("type", string(job.Type)),
		zap.String("tenant_id", tenantID.String()),
		zap.String("source", job.Source),
	)
	return job, nil
}

// Get returns one job of the tenant
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*syncjob.Job, error) {
	return s.jobs.FindByID(ctx, tenantID, id)
}

// List returns the tenant's jobs, newest first
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter syncjob.ListFilter) ([]syncjob.Job, error) {
	return s.jobs.List(ctx, tenantID, filter)
}

// Requeue enqueues a fresh copy of a FAILED job. The failed row stays as it is.
func (s *Service) Requeue(ctx context.Context, tenantID, id uuid.UUID) (*syncjob.Job, error) {
	job, err := s.jobs.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if job.Status != syncjob.StatusFailed {
		return nil, shared.ErrInvalidState.WithMessage("job %s is %s, only FAILED jobs can be requeued", id, job.Status)
	}
	return s.Enqueue(ctx, job.Type, tenantID, job.Source, job.Payload)
}

// Broadcast records a request to push stock levels out and enqueues an
// inventory_sync job for source, or for every marketplace when source is empty.
func (s *Service) Broadcast(ctx context.Context, tenantID uuid.UUID, source string, payload []byte) (*BroadcastResult, error) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if !gjson.ParseBytes(payload).IsObject() {
		return nil, shared.ErrValidation.WithMessage("payload must be a JSON object")
	}

	targets := integration.MarketplaceSources()
	if source != "" {
		src := integration.ParseSource(source)
		if !src.IsValid() {
			return nil, shared.ErrValidation.WithMessage("unknown source %q", source)
		}
		targets = []integration.Source{src}
	}

	broadcast := &inventory.Broadcast{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if source != "" {
		broadcast.Source = targets[0].String()
	}
	if err := s.broadcasts.Save(ctx, broadcast); err != nil {
		return nil, err
	}

	s.notifier.Publish(ctx, shared.NewNotification(shared.NotificationInventoryBroadcast, &tenantID, map[string]any{
		"broadcast_id": broadcast.ID.String(),
		"source":       broadcast.Source,
	}))

	result := &BroadcastResult{Broadcast: broadcast}
	for _, target := range targets {
		job, err := s.Enqueue(ctx, syncjob.TypeInventorySync, tenantID, target.String(), payload)
		if err != nil {
			return nil, err
		}
		result.Jobs = append(result.Jobs, job)
	}
	return result, nil
}

// ListBroadcasts returns the tenant's recent broadcasts
func (s *Service) ListBroadcasts(ctx context.Context, tenantID uuid.UUID, limit int) ([]inventory.Broadcast, error) {
	return s.broadcasts.List(ctx, tenantID, limit)
}
