package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/syncjob"
)

const defaultSyncJobLimit = 50

// SyncJobService is the part of the sync job service used over HTTP
type SyncJobService interface {
	Enqueue(ctx context.Context, jobType syncjob.Type, tenantID uuid.UUID, source string, payload []byte) (*syncjob.Job, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*syncjob.Job, error)
	List(ctx context.Context, tenantID uuid.UUID, filter syncjob.ListFilter) ([]syncjob.Job, error)
	Requeue(ctx context.Context, tenantID, id uuid.UUID) (*syncjob.Job, error)
}

// SyncJobHandler exposes the background worker queue
type SyncJobHandler struct {
	BaseHandler
	jobs SyncJobService
}

// NewSyncJobHandler creates a new SyncJobHandler
func NewSyncJobHandler(jobs SyncJobService) *SyncJobHandler {
	return &SyncJobHandler{jobs: jobs}
}

// EnqueueOrderSync handles POST /workers/order-sync
func (h *SyncJobHandler) EnqueueOrderSync(c *gin.Context) {
	h.enqueue(c, syncjob.TypeOrderSync)
}

// EnqueueInventorySync handles POST /workers/inventory-sync
func (h *SyncJobHandler) EnqueueInventorySync(c *gin.Context) {
	h.enqueue(c, syncjob.TypeInventorySync)
}

func (h *SyncJobHandler) enqueue(c *gin.Context, jobType syncjob.Type) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req EnqueueSyncJobRequest
	if !h.BindJSON(c, &req) {
		return
	}

	job, err := h.jobs.Enqueue(c.Request.Context(), jobType, tenantID, req.Source, req.Payload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, toSyncJobResponse(job))
}

// List handles GET /workers
func (h *SyncJobHandler) List(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var q SyncJobListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultSyncJobLimit
	}

	jobs, err := h.jobs.List(c.Request.Context(), tenantID, syncjob.ListFilter{
		Type:   syncjob.Type(q.Type),
		Status: syncjob.Status(q.Status),
		Limit:  q.Limit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := make([]SyncJobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, toSyncJobResponse(&jobs[i]))
	}
	h.Success(c, resp)
}

// Get handles GET /workers/:id
func (h *SyncJobHandler) Get(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	id, ok := h.BindID(c)
	if !ok {
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSyncJobResponse(job))
}

// Requeue handles POST /workers/:id/requeue
func (h *SyncJobHandler) Requeue(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	id, ok := h.BindID(c)
	if !ok {
		return
	}

	job, err := h.jobs.Requeue(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, toSyncJobResponse(job))
}
