package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// registerIntegrations makes sure every configured credential has an
// integration row, so webhooks can resolve their tenant by shop domain and the
// inventory trigger sees the connection. Existing rows keep their schedule.
func registerIntegrations(ctx context.Context, repo integration.IntegrationRepository, cfg *config.Config, log *zap.Logger) error {
	interval := int(cfg.Sync.DefaultInventoryEvery / time.Minute)

	for _, c := range cfg.Credentials {
		tenantID, err := uuid.Parse(c.TenantID)
		if err != nil {
			return fmt.Errorf("credential tenant %q: %w", c.TenantID, err)
		}
		source := integration.ParseSource(c.Source)

		existing, err := repo.FindByTenantAndSource(ctx, tenantID, source)
		switch {
		case err == nil:
			if existing.ShopDomain == c.ShopDomain {
				continue
			}
			existing.ShopDomain = c.ShopDomain
			if err := repo.Save(ctx, existing); err != nil {
				return fmt.Errorf("update integration %s/%s: %w", tenantID, source, err)
			}
		case errors.Is(err, shared.ErrNotFound):
			in := &integration.Integration{
				TenantID:                     tenantID,
				Source:                       source,
				ShopDomain:                   c.ShopDomain,
				InventorySyncEnabled:         cfg.Sync.SchedulerEnabled && source != integration.SourceShipping,
				InventorySyncIntervalMinutes: interval,
			}
			if err := repo.Save(ctx, in); err != nil {
				return fmt.Errorf("register integration %s/%s: %w", tenantID, source, err)
			}
			log.Info("Integration registered",
				zap.String("tenant_id", tenantID.String()),
				zap.String("source", source.String()),
				zap.Bool("inventory_sync", in.InventorySyncEnabled),
			)
		default:
			return fmt.Errorf("load integration %s/%s: %w", tenantID, source, err)
		}
	}
	return nil
}
