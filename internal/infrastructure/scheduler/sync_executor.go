package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appinv "github.com/omnisync/backend/internal/application/inventory"
	apporder "github.com/omnisync/backend/internal/application/order"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/domain/syncjob"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// AdapterMetrics observes outbound marketplace calls
type AdapterMetrics interface {
	ObserveAdapterCall(source, operation string, seconds float64)
}

// SyncExecutor runs order_sync and inventory_sync jobs against the
// marketplace adapters.
type SyncExecutor struct {
	registry     *integration.Registry
	credentials  integration.CredentialProvider
	integrations integration.IntegrationRepository
	orders       *apporder.Service
	ledger       *appinv.LedgerService
	metrics      AdapterMetrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewSyncExecutor creates a new sync executor
func NewSyncExecutor(
	registry *integration.Registry,
	credentials integration.CredentialProvider,
	integrations integration.IntegrationRepository,
	orders *apporder.Service,
	ledger *appinv.LedgerService,
	logger *zap.Logger,
) *SyncExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncExecutor{
		registry:     registry,
		credentials:  credentials,
		integrations: integrations,
		orders:       orders,
		ledger:       ledger,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics sets the adapter latency recorder
func (e *SyncExecutor) SetMetrics(m AdapterMetrics) {
	e.metrics = m
}

// Register binds the executor to both job types of q
func (e *SyncExecutor) Register(q *JobQueue) {
	q.Register(syncjob.TypeOrderSync, ExecutorFunc(e.SyncOrders))
	q.Register(syncjob.TypeInventorySync, ExecutorFunc(e.SyncInventory))
}

// Execute dispatches on the job type
func (e *SyncExecutor) Execute(ctx context.Context, job *syncjob.Job) error {
	switch job.Type {
	case syncjob.TypeOrderSync:
		return e.SyncOrders(ctx, job)
	case syncjob.TypeInventorySync:
		return e.SyncInventory(ctx, job)
	default:
		return fmt.Errorf("%w: %s", ErrNoExecutor, job.Type)
	}
}

// SyncOrders pulls recent orders and creates each one. Orders already
// ingested are deduplicated by the order service, so repeated pulls are
// harmless. A retryable failure aborts the pull so the whole job is retried;
// orders rejected for good are skipped and reported once all were tried.
func (e *SyncExecutor) SyncOrders(ctx context.Context, job *syncjob.Job) error {
	source, adapter, creds, err := e.prepare(ctx, job)
	if err != nil {
		return err
	}

	started := time.Now()
	pulled, err := adapter.PullOrders(ctx, creds)
	e.observe(source, "pull_orders", started)
	if err != nil {
		return err
	}

	var created, duplicates, rejected int
	var firstRejection error
	for i := range pulled {
		o, err := e.orders.Normalizer().FromPlatformOrder(source, &pulled[i])
		if err != nil {
			return err
		}
		if o == nil {
			continue
		}
		_, isNew, err := e.orders.Create(ctx, job.TenantID, o)
		switch {
		case err == nil && isNew:
			created++
		case err == nil:
			duplicates++
		case shared.IsRetryable(err):
			return fmt.Errorf("order %s: %w", o.ExternalID, err)
		default:
			rejected++
			if firstRejection == nil {
				firstRejection = fmt.Errorf("order %s: %w", o.ExternalID, err)
			}
			e.logger.Warn("Pulled order rejected",
				zap.String("job_id", job.ID.String()),
				zap.String("external_id", o.ExternalID),
				zap.Error(err),
			)
		}
	}

	e.logger.Info("Order sync finished",
		zap.String("job_id", job.ID.String()),
		zap.String("source", source.String()),
		zap.Int("pulled", len(pulled)),
		zap.Int("created", created),
		zap.Int("duplicates", duplicates),
		zap.Int("rejected", rejected),
	)

	if firstRejection != nil {
		return fmt.Errorf("%d of %d orders rejected, first: %w", rejected, len(pulled), firstRejection)
	}
	return nil
}

// SyncInventory either pushes the stock levels carried in the payload
// (broadcast) or pulls the marketplace's levels into the ledger
// (reconciliation). Success stamps the integration's last sync time.
func (e *SyncExecutor) SyncInventory(ctx context.Context, job *syncjob.Job) error {
	source, adapter, creds, err := e.prepare(ctx, job)
	if err != nil {
		return err
	}

	levels, push, err := stockLevelsFromPayload(job.Payload)
	if err != nil {
		return err
	}

	started := time.Now()
	if push {
		err = adapter.UpdateInventory(ctx, creds, levels)
		e.observe(source, "update_inventory", started)
		if err != nil {
			return err
		}
		e.logger.Info("Inventory pushed",
			zap.String("job_id", job.ID.String()),
			zap.String("source", source.String()),
			zap.Int("skus", len(levels)),
		)
	} else {
		levels, err = adapter.PullInventory(ctx, creds)
		e.observe(source, "pull_inventory", started)
		if err != nil {
			return err
		}
		for _, level := range levels {
			if _, err := e.ledger.BulkSet(ctx, job.TenantID, level.SKU, level.Quantity); err != nil {
				return fmt.Errorf("reconcile %s: %w", level.SKU, err)
			}
		}
		e.logger.Info("Inventory reconciled",
			zap.String("job_id", job.ID.String()),
			zap.String("source", source.String()),
			zap.Int("skus", len(levels)),
		)
	}

	e.markSynced(ctx, job, source)
	return nil
}

func (e *SyncExecutor) prepare(ctx context.Context, job *syncjob.Job) (integration.Source, integration.Adapter, *integration.Credentials, error) {
	source := integration.ParseSource(job.Source)
	adapter, err := e.registry.Get(source)
	if err != nil {
		if errors.Is(err, integration.ErrAdapterNotFound) {
			return source, nil, nil, shared.ErrUnknownSource.WithMessage("no adapter registered for source %q", job.Source)
		}
		return source, nil, nil, err
	}
	creds, err := e.credentials.Credentials(ctx, job.TenantID, source)
	if err != nil {
		return source, nil, nil, err
	}
	return source, adapter, creds, nil
}

func (e *SyncExecutor) markSynced(ctx context.Context, job *syncjob.Job, source integration.Source) {
	if e.integrations == nil {
		return
	}
	in, err := e.integrations.FindByTenantAndSource(ctx, job.TenantID, source)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			e.logger.Warn("Failed to load integration", zap.String("job_id", job.ID.String()), zap.Error(err))
		}
		return
	}
	if err := e.integrations.MarkInventorySynced(ctx, in.ID, e.now()); err != nil {
		e.logger.Warn("Failed to stamp inventory sync time", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}

func (e *SyncExecutor) observe(source integration.Source, operation string, started time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveAdapterCall(strings.ToLower(source.String()), operation, time.Since(started).Seconds())
	}
}

// stockLevelsFromPayload reads {"items":[{"sku","quantity"}]}. push is false
// when the payload is empty or carries no items array.
func stockLevelsFromPayload(payload []byte) ([]integration.StockLevel, bool, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, false, nil
	}
	if !gjson.ValidBytes(payload) {
		return nil, false, shared.ErrMalformedPayload.WithMessage("inventory sync payload is not valid JSON")
	}
	items := gjson.GetBytes(payload, "items")
	if !items.IsArray() {
		return nil, false, nil
	}
	var levels []integration.StockLevel
	for i, item := range items.Array() {
		sku := strings.TrimSpace(item.Get("sku").String())
		qty := item.Get("quantity")
		if sku == "" || qty.Type != gjson.Number || qty.Int() < 0 {
			return nil, true, shared.ErrMalformedPayload.WithMessage("items[%d] needs a sku and a non-negative quantity", i)
		}
		levels = append(levels, integration.StockLevel{SKU: sku, Quantity: int(qty.Int())})
	}
	return levels, true, nil
}
