package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/syncjob"
	"gorm.io/datatypes"
)

// SyncJobModel is the persistence model for syncjob.Job
type SyncJobModel struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Type        string         `gorm:"type:varchar(32);not null;index:idx_sync_jobs_target,priority:3"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_sync_jobs_target,priority:1"`
	Source      string         `gorm:"type:varchar(32);not null;index:idx_sync_jobs_target,priority:2"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null"`
	Status      string         `gorm:"type:varchar(16);not null;index:idx_sync_jobs_due,priority:1"`
	Attempts    int            `gorm:"not null;default:0"`
	MaxAttempts int            `gorm:"not null;default:3"`
	LastError   string         `gorm:"type:text"`
	NextRunAt   time.Time      `gorm:"not null;index:idx_sync_jobs_due,priority:2"`
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time `gorm:"not null;index"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the model to a domain job
func (m *SyncJobModel) ToDomain() *syncjob.Job {
	return &syncjob.Job{
		ID:          m.ID,
		Type:        syncjob.Type(m.Type),
		TenantID:    m.TenantID,
		Source:      m.Source,
		Payload:     []byte(m.Payload),
		Status:      syncjob.Status(m.Status),
		Attempts:    m.Attempts,
		MaxAttempts: m.MaxAttempts,
		LastError:   m.LastError,
		NextRunAt:   m.NextRunAt,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// SyncJobModelFromDomain creates a model from a domain job
func SyncJobModelFromDomain(j *syncjob.Job) *SyncJobModel {
	return &SyncJobModel{
		ID:          j.ID,
		Type:        string(j.Type),
		TenantID:    j.TenantID,
		Source:      j.Source,
		Payload:     datatypes.JSON(j.Payload),
		Status:      string(j.Status),
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		LastError:   j.LastError,
		NextRunAt:   j.NextRunAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}
