package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryRepository implements inventory.Repository using GORM
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new GormInventoryRepository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// FindRecord finds the record of one SKU
func (r *GormInventoryRepository) FindRecord(ctx context.Context, tenantID uuid.UUID, sku string) (*inventory.Record, error) {
	var model models.InventoryRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sku = ?", tenantID, sku).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// SaveRecord upserts on (tenant_id, sku), so the first write of a SKU creates it
func (r *GormInventoryRepository) SaveRecord(ctx context.Context, record *inventory.Record) error {
	model := models.InventoryRecordModelFromDomain(record)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(model).Error
	return translateError(err)
}

// AppendAdjustment appends one ledger row
func (r *GormInventoryRepository) AppendAdjustment(ctx context.Context, adjustment *inventory.Adjustment) error {
	return translateError(r.db.WithContext(ctx).Create(models.InventoryAdjustmentModelFromDomain(adjustment)).Error)
}

// ListRecords returns every record of a tenant ordered by SKU
func (r *GormInventoryRepository) ListRecords(ctx context.Context, tenantID uuid.UUID) ([]inventory.Record, error) {
	var rows []models.InventoryRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("sku ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.Record, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// ListAdjustments returns the newest adjustments of a SKU
func (r *GormInventoryRepository) ListAdjustments(ctx context.Context, tenantID uuid.UUID, sku string, limit int) ([]inventory.Adjustment, error) {
	var rows []models.InventoryAdjustmentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sku = ?", tenantID, sku).
		Order("created_at DESC").
		Order("id").
		Limit(clampLimit(limit, 50, 500)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.Adjustment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// GormBroadcastRepository implements inventory.BroadcastRepository
type GormBroadcastRepository struct {
	db *gorm.DB
}

// NewGormBroadcastRepository creates a new GormBroadcastRepository
func NewGormBroadcastRepository(db *gorm.DB) *GormBroadcastRepository {
	return &GormBroadcastRepository{db: db}
}

// Save stores a broadcast request
func (r *GormBroadcastRepository) Save(ctx context.Context, b *inventory.Broadcast) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return translateError(r.db.WithContext(ctx).Create(models.InventoryBroadcastModelFromDomain(b)).Error)
}

// List returns the newest broadcasts of a tenant
func (r *GormBroadcastRepository) List(ctx context.Context, tenantID uuid.UUID, limit int) ([]inventory.Broadcast, error) {
	var rows []models.InventoryBroadcastModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(clampLimit(limit, 50, 500)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.Broadcast, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

var (
	_ inventory.Repository          = (*GormInventoryRepository)(nil)
	_ inventory.BroadcastRepository = (*GormBroadcastRepository)(nil)
)
