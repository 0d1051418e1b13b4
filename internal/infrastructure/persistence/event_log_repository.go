package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/eventlog"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEventLogRepository implements eventlog.Repository using GORM
type GormEventLogRepository struct {
	db *gorm.DB
}

// NewGormEventLogRepository creates a new GormEventLogRepository
func NewGormEventLogRepository(db *gorm.DB) *GormEventLogRepository {
	return &GormEventLogRepository{db: db}
}

// Append inserts an entry and silently skips an id already present
func (r *GormEventLogRepository) Append(ctx context.Context, entry *eventlog.Entry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(models.EventLogModelFromDomain(entry)).Error
}

// List returns the newest entries
func (r *GormEventLogRepository) List(ctx context.Context, tenantID *uuid.UUID, limit int) ([]eventlog.Entry, error) {
	query := r.db.WithContext(ctx)
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	var rows []models.EventLogModel
	if err := query.
		Order("created_at DESC").
		Limit(clampLimit(limit, 50, 500)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]eventlog.Entry, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

var _ eventlog.Repository = (*GormEventLogRepository)(nil)
