package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appwebhook "github.com/omnisync/backend/internal/application/webhook"
	"github.com/omnisync/backend/internal/domain/webhook"
	"github.com/omnisync/backend/internal/infrastructure/logger"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// WebhookIntake is the part of the intake service used over HTTP
type WebhookIntake interface {
	Receive(ctx context.Context, source string, headers http.Header, body []byte) (*appwebhook.ReceiveResult, error)
	Replay(ctx context.Context, tenantID, eventID uuid.UUID) (*appwebhook.ReceiveResult, error)
	List(ctx context.Context, tenantID uuid.UUID, limit int) ([]webhook.Event, error)
}

// WebhookHandler receives marketplace webhooks
type WebhookHandler struct {
	BaseHandler
	intake WebhookIntake
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(intake WebhookIntake) *WebhookHandler {
	return &WebhookHandler{intake: intake}
}

// Receive handles POST /webhooks/:source.
// The marketplace always gets a 200 once the delivery is recorded, so it
// does not redeliver events that failed for reasons of our own. Only a
// failure to record the delivery itself is a 500.
func (h *WebhookHandler) Receive(c *gin.Context) {
	log := logger.FromContext(c.Request.Context())
	source := c.Param("source")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, appwebhook.MaxBodyBytes+1))
	if err != nil {
		log.Warn("Failed to read webhook body", zap.String("source", source), zap.Error(err))
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(body) > appwebhook.MaxBodyBytes {
		h.ErrorWithCode(c, dto.ErrCodeRequestTooLarge, "Webhook body exceeds 1 MiB")
		return
	}

	result, err := h.intake.Receive(c.Request.Context(), source, c.Request.Header, body)
	if err != nil {
		log.Error("Failed to record webhook", zap.String("source", source), zap.Error(err))
		h.InternalError(c, "Failed to record webhook")
		return
	}

	if !result.Accepted {
		log.Info("Webhook not accepted",
			zap.String("event_id", result.EventID.String()),
			zap.String("source", source),
			zap.String("state", string(result.State)),
			zap.String("error", result.Error),
		)
	}
	c.JSON(http.StatusOK, toWebhookAckResponse(result))
}

// List handles GET /webhooks for the caller's tenant
func (h *WebhookHandler) List(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var q WebhookListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	events, err := h.intake.List(c.Request.Context(), tenantID, q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]WebhookEventResponse, len(events))
	for i := range events {
		resp[i] = toWebhookEventResponse(&events[i])
	}
	h.Success(c, resp)
}

// Replay handles POST /webhooks/events/:id/replay
func (h *WebhookHandler) Replay(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	eventID, ok := h.BindID(c)
	if !ok {
		return
	}

	result, err := h.intake.Replay(c.Request.Context(), tenantID, eventID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toWebhookAckResponse(result))
}
