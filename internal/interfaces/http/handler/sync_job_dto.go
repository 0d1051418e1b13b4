package handler

import (
	"encoding/json"
	"time"

	"github.com/omnisync/backend/internal/domain/syncjob"
)

// EnqueueSyncJobRequest starts an order or inventory sync for one marketplace
type EnqueueSyncJobRequest struct {
	Source  string          `json:"source" binding:"required,max=50"`
	Payload json.RawMessage `json:"payload"`
}

// SyncJobListQuery filters GET /workers
type SyncJobListQuery struct {
	Type   string `form:"type" binding:"omitempty,oneof=order_sync inventory_sync"`
	Status string `form:"status" binding:"omitempty,oneof=PENDING PROCESSING COMPLETED FAILED"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// SyncJobResponse is a queued marketplace job
type SyncJobResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Source      string          `json:"source"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"last_error,omitempty"`
	NextRunAt   time.Time       `json:"next_run_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toSyncJobResponse(j *syncjob.Job) SyncJobResponse {
	return SyncJobResponse{
		ID:          j.ID.String(),
		Type:        string(j.Type),
		Source:      j.Source,
		Payload:     rawJSON(j.Payload),
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
