package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/syncjob"
	"go.uber.org/zap"
)

// JobEnqueuer creates PENDING sync jobs
type JobEnqueuer interface {
	Enqueue(ctx context.Context, jobType syncjob.Type, tenantID uuid.UUID, source string, payload []byte) (*syncjob.Job, error)
}

// ActiveJobChecker reports whether a sync target already has queued work
type ActiveJobChecker interface {
	HasActive(ctx context.Context, tenantID uuid.UUID, source string, jobType syncjob.Type) (bool, error)
}

// DefaultTriggerInterval is how often enabled integrations are checked
const DefaultTriggerInterval = 60 * time.Second

// InventorySyncTrigger periodically enqueues inventory reconciliation for
// every integration whose interval has elapsed.
type InventorySyncTrigger struct {
	interval     time.Duration
	integrations integration.IntegrationRepository
	active       ActiveJobChecker
	enqueuer     JobEnqueuer
	logger       *zap.Logger
	now          func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewInventorySyncTrigger creates a new trigger. A non-positive interval
// falls back to DefaultTriggerInterval.
func NewInventorySyncTrigger(
	interval time.Duration,
	integrations integration.IntegrationRepository,
	active ActiveJobChecker,
	enqueuer JobEnqueuer,
	logger *zap.Logger,
) *InventorySyncTrigger {
	if interval <= 0 {
		interval = DefaultTriggerInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventorySyncTrigger{
		interval:     interval,
		integrations: integrations,
		active:       active,
		enqueuer:     enqueuer,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Start starts the ticker loop
func (t *InventorySyncTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Inventory sync trigger started", zap.Duration("interval", t.interval))
	return nil
}

// Stop stops the ticker loop
func (t *InventorySyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Inventory sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *InventorySyncTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.TriggerNow(ctx); err != nil && ctx.Err() == nil {
				t.logger.Error("Inventory sync pass failed", zap.Error(err))
			}
		}
	}
}

// TriggerNow runs a single pass and returns the number of jobs enqueued.
// Targets with a PENDING or PROCESSING inventory_sync job are skipped; one
// failing target does not stop the pass.
func (t *InventorySyncTrigger) TriggerNow(ctx context.Context) (int, error) {
	candidates, err := t.integrations.FindInventorySyncEnabled(ctx)
	if err != nil {
		return 0, err
	}

	now := t.now()
	enqueued := 0
	for i := range candidates {
		in := &candidates[i]
		if !in.InventorySyncDue(now) {
			continue
		}
		logger := t.logger.With(
			zap.String("tenant_id", in.TenantID.String()),
			zap.String("source", in.Source.String()),
		)

		busy, err := t.active.HasActive(ctx, in.TenantID, in.Source.String(), syncjob.TypeInventorySync)
		if err != nil {
			logger.Warn("Failed to check queued inventory sync", zap.Error(err))
			continue
		}
		if busy {
			logger.Debug("Inventory sync already queued")
			continue
		}

		job, err := t.enqueuer.Enqueue(ctx, syncjob.TypeInventorySync, in.TenantID, in.Source.String(), nil)
		if err != nil {
			logger.Error("Failed to enqueue inventory sync", zap.Error(err))
			continue
		}
		if err := t.integrations.MarkInventorySynced(ctx, in.ID, now); err != nil {
			logger.Warn("Failed to stamp inventory sync time", zap.Error(err))
		}
		enqueued++
		logger.Info("Inventory sync enqueued", zap.String("job_id", job.ID.String()))
	}
	return enqueued, nil
}
