package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByExternalID finds an order by its marketplace id
func (r *GormOrderRepository) FindByExternalID(ctx context.Context, tenantID uuid.UUID, source, externalID string) (*order.CanonicalOrder, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND source = ? AND external_id = ?", tenantID, source, externalID).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByID finds an order within a tenant
func (r *GormOrderRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*order.CanonicalOrder, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts the order and, through the association, its items
func (r *GormOrderRepository) Create(ctx context.Context, o *order.CanonicalOrder) error {
	return translateError(r.db.WithContext(ctx).Create(models.OrderModelFromDomain(o)).Error)
}

// List returns one page of orders, newest first, with the total count
func (r *GormOrderRepository) List(ctx context.Context, tenantID uuid.UUID, filter order.ListFilter) ([]order.CanonicalOrder, int64, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("tenant_id = ?", tenantID)
		if filter.Source != "" {
			q = q.Where("source = ?", filter.Source)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	if err := scoped().
		Preload("Items").
		Order("created_at DESC").
		Order("id").
		Limit(clampLimit(filter.Limit, 20, 200)).
		Offset(max(filter.Offset, 0)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]order.CanonicalOrder, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

var _ order.Repository = (*GormOrderRepository)(nil)
