package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	appinv "github.com/omnisync/backend/internal/application/inventory"
	"github.com/omnisync/backend/internal/application/transaction"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ManualSource tags orders posted directly to the API
const ManualSource = "MANUAL"

// Service creates canonical orders and debits inventory in the same transaction
type Service struct {
	scope      transaction.Scope
	repo       order.Repository
	ledger     *appinv.LedgerService
	locks      shared.LockCoordinator
	normalizer *Normalizer
	notifier   shared.Notifier
	logger     *zap.Logger
}

// NewService creates a new order Service
func NewService(scope transaction.Scope, repo order.Repository, ledger *appinv.LedgerService, locks shared.LockCoordinator, normalizer *Normalizer) *Service {
	return &Service{
		scope:      scope,
		repo:       repo,
		ledger:     ledger,
		locks:      locks,
		normalizer: normalizer,
		notifier:   shared.NopNotifier{},
		logger:     zap.NewNop(),
	}
}

// SetNotifier sets the notifier for order.created notifications
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

// Normalizer returns the normalizer used by CreateManual
func (s *Service) Normalizer() *Normalizer {
	return s.normalizer
}

// Create persists o and debits one adjustment per item, all or nothing.
// Every SKU of the order is locked in sorted order first. A replay of an
// order already stored for (tenant, source, external id) returns the stored
// order with created=false and has no side effects.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, o *order.CanonicalOrder) (*order.CanonicalOrder, bool, error) {
	if o == nil {
		return nil, false, shared.ErrValidation.WithMessage("order is required")
	}
	if tenantID == uuid.Nil {
		return nil, false, shared.ErrValidation.WithMessage("tenant is required")
	}
	if strings.TrimSpace(o.Source) == "" {
		return nil, false, shared.ErrValidation.WithMessage("order source is required")
	}
	// Lock keys and ledger rows must agree on the SKU spelling.
	for i := range o.Items {
		sku, err := inventory.NormalizeSKU(o.Items[i].SKU)
		if err != nil {
			return nil, false, err
		}
		o.Items[i].SKU = sku
		if o.Items[i].Quantity < 1 {
			return nil, false, shared.ErrValidation.WithMessage("item %s quantity must be at least 1", sku)
		}
	}

	skus := o.SKUs()
	sort.Strings(skus)
	keys := make([]string, 0, len(skus))
	for _, sku := range skus {
		keys = append(keys, shared.InventoryLockKey(tenantID, sku))
	}

	var (
		result      *order.CanonicalOrder
		created     bool
		adjustments []*inventory.Adjustment
	)
	err := shared.WithLocks(ctx, s.locks, keys, s.ledger.LockTTL(), func(ctx context.Context) error {
		return s.scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
			if o.HasExternalID() {
				existing, err := repos.Orders().FindByExternalID(ctx, tenantID, o.Source, o.ExternalID)
				if err == nil {
					result = existing
					return nil
				}
				if !errors.Is(err, shared.ErrNotFound) {
					return fmt.Errorf("dedupe lookup: %w", err)
				}
			}

			o.PrepareForInsert(tenantID)
			if err := repos.Orders().Create(ctx, o); err != nil {
				return err
			}
			orderID := o.ID
			for _, item := range o.Items {
				adj, err := s.ledger.AdjustLocked(ctx, repos.Inventory(), tenantID, item.SKU, -item.Quantity, inventory.ReasonOrderCreated, &orderID)
				if err != nil {
					return err
				}
				adjustments = append(adjustments, adj)
			}
			result = o
			created = true
			return nil
		})
	})
	if err != nil {
		// A concurrent writer on disjoint SKUs can win the dedupe key.
		if errors.Is(err, shared.ErrAlreadyExists) && o.HasExternalID() {
			existing, findErr := s.repo.FindByExternalID(ctx, tenantID, o.Source, o.ExternalID)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	if created {
		s.ledger.RecordAdjustments(adjustments)
		s.logger.Info("order created",
			zap.String("tenant_id", tenantID.String()),
			zap.String("order_id", result.ID.String()),
			zap.String("source", result.Source),
			zap.Int("items", len(result.Items)),
		)
		s.notifier.Publish(ctx, shared.NewNotification(shared.NotificationOrderCreated, &tenantID, map[string]any{
			"order_id":  result.ID.String(),
			"source":    result.Source,
			"tenant_id": tenantID.String(),
		}))
	}
	return result, created, nil
}

// CreateManual canonicalizes an order posted to the API and creates it
// through the same path as marketplace orders.
func (s *Service) CreateManual(ctx context.Context, tenantID uuid.UUID, input ManualOrderInput) (*order.CanonicalOrder, bool, error) {
	source := integration.ParseSource(input.Source)
	if source == "" {
		source = ManualSource
	}

	po := input.toPlatformOrder()
	var canonical *order.CanonicalOrder
	if source.IsValid() {
		var err error
		canonical, err = s.normalizer.FromPlatformOrder(source, po)
		if err != nil && !errors.Is(err, shared.ErrUnknownSource) {
			return nil, false, err
		}
	}
	if canonical == nil {
		canonical = Canonicalize(source.String(), FallbackCurrency, po)
	}
	return s.Create(ctx, tenantID, canonical)
}

// Get returns one order of the tenant
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*order.CanonicalOrder, error) {
	return s.repo.FindByID(ctx, tenantID, id)
}

// List returns a page of the tenant's orders, newest first, and the total count
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter order.ListFilter) ([]order.CanonicalOrder, int64, error) {
	if filter.Source != "" {
		filter.Source = integration.ParseSource(filter.Source).String()
	}
	return s.repo.List(ctx, tenantID, filter)
}
