package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormIntegrationRepository implements integration.IntegrationRepository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

// FindByTenantAndSource finds a tenant's connection to one marketplace
func (r *GormIntegrationRepository) FindByTenantAndSource(ctx context.Context, tenantID uuid.UUID, source integration.Source) (*integration.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source = ?", tenantID, source.String()).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByShopDomain resolves the integration owning a store
func (r *GormIntegrationRepository) FindByShopDomain(ctx context.Context, source integration.Source, shopDomain string) (*integration.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("source = ? AND LOWER(shop_domain) = LOWER(?)", source.String(), shopDomain).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindInventorySyncEnabled lists every integration with periodic reconciliation on
func (r *GormIntegrationRepository) FindInventorySyncEnabled(ctx context.Context) ([]integration.Integration, error) {
	var rows []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("inventory_sync_enabled = ?", true).
		Order("tenant_id").
		Order("source").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]integration.Integration, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// MarkInventorySynced stamps the last reconciliation time
func (r *GormIntegrationRepository) MarkInventorySynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	at = at.UTC()
	result := r.db.WithContext(ctx).
		Model(&models.IntegrationModel{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"last_inventory_sync_at": at,
			"updated_at":             at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

// Save upserts on (tenant_id, source)
func (r *GormIntegrationRepository) Save(ctx context.Context, in *integration.Integration) error {
	now := time.Now().UTC()
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	in.UpdatedAt = now
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "source"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"shop_domain",
				"inventory_sync_enabled",
				"inventory_sync_interval_minutes",
				"last_inventory_sync_at",
				"updated_at",
			}),
		}).
		Create(models.IntegrationModelFromDomain(in)).Error
	return translateError(err)
}

var _ integration.IntegrationRepository = (*GormIntegrationRepository)(nil)
