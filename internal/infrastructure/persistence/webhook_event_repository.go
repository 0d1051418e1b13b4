package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/webhook"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormWebhookEventRepository implements webhook.Repository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Create records a delivery
func (r *GormWebhookEventRepository) Create(ctx context.Context, event *webhook.Event) error {
	return translateError(r.db.WithContext(ctx).Create(models.WebhookEventModelFromDomain(event)).Error)
}

// Update writes back state, error and order link
func (r *GormWebhookEventRepository) Update(ctx context.Context, event *webhook.Event) error {
	result := r.db.WithContext(ctx).
		Model(&models.WebhookEventModel{}).
		Where("id = ?", event.ID).
		Updates(map[string]any{
			"tenant_id":   event.TenantID,
			"event_type":  event.EventType,
			"external_id": event.ExternalID,
			"state":       event.State.String(),
			"error":       event.Error,
			"order_id":    event.OrderID,
			"updated_at":  event.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

// FindByID finds a delivery by id
func (r *GormWebhookEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*webhook.Event, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// ListRecent returns the tenant's newest deliveries. The tenant filter runs
// before the limit so busy tenants cannot crowd out quiet ones.
func (r *GormWebhookEventRepository) ListRecent(ctx context.Context, tenantID uuid.UUID, limit int) ([]webhook.Event, error) {
	var rows []models.WebhookEventModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("received_at DESC").
		Limit(clampLimit(limit, 50, 500)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]webhook.Event, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

var _ webhook.Repository = (*GormWebhookEventRepository)(nil)
