package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appsync "github.com/omnisync/backend/internal/application/syncjob"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
)

const (
	defaultAdjustmentLimit = 100
	defaultBroadcastLimit  = 50
)

// InventoryLedger is the part of the ledger service used over HTTP
type InventoryLedger interface {
	Adjust(ctx context.Context, tenantID uuid.UUID, sku string, delta int, reason string) (*inventory.Record, error)
	BulkSet(ctx context.Context, tenantID uuid.UUID, sku string, quantity int) (*inventory.Record, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]inventory.Record, error)
	ListAdjustments(ctx context.Context, tenantID uuid.UUID, sku string, limit int) ([]inventory.Adjustment, error)
}

// InventoryBroadcaster records broadcasts and enqueues their sync jobs
type InventoryBroadcaster interface {
	Broadcast(ctx context.Context, tenantID uuid.UUID, source string, payload []byte) (*appsync.BroadcastResult, error)
	ListBroadcasts(ctx context.Context, tenantID uuid.UUID, limit int) ([]inventory.Broadcast, error)
}

// InventoryHandler handles the stock ledger endpoints
type InventoryHandler struct {
	BaseHandler
	ledger      InventoryLedger
	broadcaster InventoryBroadcaster
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(ledger InventoryLedger, broadcaster InventoryBroadcaster) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, broadcaster: broadcaster}
}

// Adjust handles POST /inventory/adjust
func (h *InventoryHandler) Adjust(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req AdjustInventoryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	record, err := h.ledger.Adjust(c.Request.Context(), tenantID, req.SKU, req.Delta, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInventoryRecordResponse(record))
}

// Set handles POST /inventory/set
func (h *InventoryHandler) Set(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req SetInventoryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	record, err := h.ledger.BulkSet(c.Request.Context(), tenantID, req.SKU, *req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInventoryRecordResponse(record))
}

// List handles GET /inventory
func (h *InventoryHandler) List(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}

	records, err := h.ledger.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := make([]InventoryRecordResponse, 0, len(records))
	for i := range records {
		resp = append(resp, toInventoryRecordResponse(&records[i]))
	}
	h.Success(c, resp)
}

// ListAdjustments handles GET /inventory/:sku/adjustments
func (h *InventoryHandler) ListAdjustments(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	adjustments, err := h.ledger.ListAdjustments(c.Request.Context(), tenantID, c.Param("sku"), q.LimitOr(defaultAdjustmentLimit))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := make([]AdjustmentResponse, 0, len(adjustments))
	for i := range adjustments {
		resp = append(resp, toAdjustmentResponse(&adjustments[i]))
	}
	h.Success(c, resp)
}

// Broadcast handles POST /inventory/broadcast
func (h *InventoryHandler) Broadcast(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req BroadcastRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.broadcaster.Broadcast(c.Request.Context(), tenantID, req.Source, req.Payload)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := BroadcastResultResponse{
		Broadcast: toBroadcastResponse(result.Broadcast),
		Jobs:      make([]SyncJobResponse, 0, len(result.Jobs)),
	}
	for _, job := range result.Jobs {
		resp.Jobs = append(resp.Jobs, toSyncJobResponse(job))
	}
	h.Accepted(c, resp)
}

// ListBroadcasts handles GET /inventory/broadcasts
func (h *InventoryHandler) ListBroadcasts(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	broadcasts, err := h.broadcaster.ListBroadcasts(c.Request.Context(), tenantID, q.LimitOr(defaultBroadcastLimit))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := make([]BroadcastResponse, 0, len(broadcasts))
	for i := range broadcasts {
		resp = append(resp, toBroadcastResponse(&broadcasts[i]))
	}
	h.Success(c, resp)
}
