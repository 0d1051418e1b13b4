// Package inventory implements the inventory ledger: the only writer of
// inventory records, serializing every read-modify-write on a (tenant, sku)
// through the lock coordinator.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/application/transaction"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultLockTTL bounds how long an abandoned ledger lease blocks a SKU.
const DefaultLockTTL = 5 * time.Second

// MetricsRecorder receives one call per persisted adjustment
type MetricsRecorder interface {
	RecordInventoryAdjustment(reason string)
}

// LedgerService handles inventory ledger operations
type LedgerService struct {
	scope    transaction.Scope
	repo     inventory.Repository
	locks    shared.LockCoordinator
	lockTTL  time.Duration
	notifier shared.Notifier
	metrics  MetricsRecorder
	logger   *zap.Logger
}

// NewLedgerService creates a new LedgerService. repo serves reads outside a
// transaction; writes always go through scope.
func NewLedgerService(scope transaction.Scope, repo inventory.Repository, locks shared.LockCoordinator, lockTTL time.Duration) *LedgerService {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &LedgerService{
		scope:    scope,
		repo:     repo,
		locks:    locks,
		lockTTL:  lockTTL,
		notifier: shared.NopNotifier{},
		logger:   zap.NewNop(),
	}
}

// SetNotifier sets the notifier for inventory.adjusted notifications
func (s *LedgerService) SetNotifier(n shared.Notifier) {
	if n != nil {
		s.notifier = n
	}
}

// SetMetrics sets the adjustment metrics recorder
func (s *LedgerService) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// SetLogger sets the logger
func (s *LedgerService) SetLogger(l *zap.Logger) {
	if l != nil {
		s.logger = l
	}
}

// LockTTL returns the lease duration used for inventory locks
func (s *LedgerService) LockTTL() time.Duration {
	return s.lockTTL
}

// Adjust moves the stock of one SKU by delta. It fails with ErrResourceBusy
// when another writer holds the SKU, and with ErrInsufficientInventory when
// the result would be negative, in which case nothing is written.
func (s *LedgerService) Adjust(ctx context.Context, tenantID uuid.UUID, sku string, delta int, reason string) (*inventory.Record, error) {
	sku, err := inventory.NormalizeSKU(sku)
	if err != nil {
		return nil, err
	}
	reason = normalizeReason(reason)

	var (
		record     *inventory.Record
		adjustment *inventory.Adjustment
	)
	err = shared.WithLock(ctx, s.locks, shared.InventoryLockKey(tenantID, sku), s.lockTTL, func(ctx context.Context) error {
		return s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
			var err error
			record, adjustment, err = s.apply(ctx, repos.Inventory(), tenantID, sku, delta, reason, nil)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, adjustment)
	return record, nil
}

// AdjustLocked applies a delta inside a transaction the caller already owns,
// while the caller holds the SKU lease. It publishes nothing; the caller
// notifies after its own commit.
func (s *LedgerService) AdjustLocked(ctx context.Context, repo inventory.Repository, tenantID uuid.UUID, sku string, delta int, reason string, reference *uuid.UUID) (*inventory.Adjustment, error) {
	sku, err := inventory.NormalizeSKU(sku)
	if err != nil {
		return nil, err
	}
	_, adjustment, err := s.apply(ctx, repo, tenantID, sku, delta, normalizeReason(reason), reference)
	return adjustment, err
}

// BulkSet overwrites the stock of one SKU with an absolute count. The
// adjustment row records the difference and is skipped when nothing changed.
func (s *LedgerService) BulkSet(ctx context.Context, tenantID uuid.UUID, sku string, quantity int) (*inventory.Record, error) {
	sku, err := inventory.NormalizeSKU(sku)
	if err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, shared.ErrValidation.WithMessage("quantity for %s cannot be negative", sku)
	}

	var (
		record     *inventory.Record
		adjustment *inventory.Adjustment
	)
	err = shared.WithLock(ctx, s.locks, shared.InventoryLockKey(tenantID, sku), s.lockTTL, func(ctx context.Context) error {
		return s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
			repo := repos.Inventory()
			current, err := s.load(ctx, repo, tenantID, sku)
			if err != nil {
				return err
			}
			adjustment, err = current.SetQuantity(quantity, inventory.ReasonReconciliation)
			if err != nil {
				return err
			}
			if err := repo.SaveRecord(ctx, current); err != nil {
				return fmt.Errorf("save inventory record: %w", err)
			}
			if adjustment != nil {
				if err := repo.AppendAdjustment(ctx, adjustment); err != nil {
					return fmt.Errorf("append adjustment: %w", err)
				}
			}
			record = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, adjustment)
	return record, nil
}

// List returns every record of a tenant
func (s *LedgerService) List(ctx context.Context, tenantID uuid.UUID) ([]inventory.Record, error) {
	return s.repo.ListRecords(ctx, tenantID)
}

// ListAdjustments returns the newest adjustments of a SKU
func (s *LedgerService) ListAdjustments(ctx context.Context, tenantID uuid.UUID, sku string, limit int) ([]inventory.Adjustment, error) {
	sku, err := inventory.NormalizeSKU(sku)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAdjustments(ctx, tenantID, sku, limit)
}

// RecordAdjustments reports adjustments committed by a caller-owned
// transaction to metrics. Order creation calls it after commit.
func (s *LedgerService) RecordAdjustments(adjustments []*inventory.Adjustment) {
	for _, a := range adjustments {
		if a != nil && s.metrics != nil {
			s.metrics.RecordInventoryAdjustment(a.Reason)
		}
	}
}

func (s *LedgerService) apply(ctx context.Context, repo inventory.Repository, tenantID uuid.UUID, sku string, delta int, reason string, reference *uuid.UUID) (*inventory.Record, *inventory.Adjustment, error) {
	record, err := s.load(ctx, repo, tenantID, sku)
	if err != nil {
		return nil, nil, err
	}
	adjustment, err := record.ApplyDelta(delta, reason, reference)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.SaveRecord(ctx, record); err != nil {
		return nil, nil, fmt.Errorf("save inventory record: %w", err)
	}
	if err := repo.AppendAdjustment(ctx, adjustment); err != nil {
		return nil, nil, fmt.Errorf("append adjustment: %w", err)
	}
	return record, adjustment, nil
}

// load returns the stored record, or a fresh zero record for a SKU never written.
func (s *LedgerService) load(ctx context.Context, repo inventory.Repository, tenantID uuid.UUID, sku string) (*inventory.Record, error) {
	record, err := repo.FindRecord(ctx, tenantID, sku)
	if err == nil {
		return record, nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		return inventory.NewRecord(tenantID, sku), nil
	}
	return nil, fmt.Errorf("load inventory record: %w", err)
}

func (s *LedgerService) afterCommit(ctx context.Context, adjustment *inventory.Adjustment) {
	if adjustment == nil {
		return
	}
	s.RecordAdjustments([]*inventory.Adjustment{adjustment})
	s.logger.Debug("inventory adjusted",
		zap.String("tenant_id", adjustment.TenantID.String()),
		zap.String("sku", adjustment.SKU),
		zap.Int("delta", adjustment.Delta),
		zap.String("reason", adjustment.Reason),
	)
	tenantID := adjustment.TenantID
	s.notifier.Publish(ctx, shared.NewNotification(shared.NotificationInventoryAdjusted, &tenantID, map[string]any{
		"sku":    adjustment.SKU,
		"delta":  adjustment.Delta,
		"reason": adjustment.Reason,
	}))
}

func normalizeReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return inventory.ReasonManualAdjustment
	}
	return reason
}
