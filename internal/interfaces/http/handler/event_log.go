package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/eventlog"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
)

const defaultEventLogLimit = 100

// EventLogReader lists persisted notifications
type EventLogReader interface {
	List(ctx context.Context, tenantID *uuid.UUID, limit int) ([]eventlog.Entry, error)
}

// EventLogHandler exposes the notification audit trail
type EventLogHandler struct {
	BaseHandler
	entries EventLogReader
}

// NewEventLogHandler creates a new EventLogHandler
func NewEventLogHandler(entries EventLogReader) *EventLogHandler {
	return &EventLogHandler{entries: entries}
}

// EventLogEntryResponse is one published notification
type EventLogEntryResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// List handles GET /events
func (h *EventLogHandler) List(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	entries, err := h.entries.List(c.Request.Context(), &tenantID, q.LimitOr(defaultEventLogLimit))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := make([]EventLogEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, EventLogEntryResponse{
			ID:        e.ID.String(),
			Type:      e.Type,
			Payload:   rawJSON(e.Payload),
			CreatedAt: e.CreatedAt,
		})
	}
	h.Success(c, resp)
}
