package handler

import (
	"time"

	appwebhook "github.com/omnisync/backend/internal/application/webhook"
	"github.com/omnisync/backend/internal/domain/webhook"
)

// WebhookAckResponse is returned to the marketplace for every delivery.
// It is sent without the response envelope.
type WebhookAckResponse struct {
	EventID  string `json:"eventId"`
	Accepted bool   `json:"accepted"`
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
	OrderID  string `json:"orderId,omitempty"`
}

// WebhookEventResponse is a recorded delivery
type WebhookEventResponse struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id,omitempty"`
	Source     string    `json:"source"`
	EventType  string    `json:"event_type,omitempty"`
	ExternalID string    `json:"external_id,omitempty"`
	State      string    `json:"state"`
	Error      string    `json:"error,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WebhookListQuery filters GET /webhooks
type WebhookListQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

func toWebhookAckResponse(r *appwebhook.ReceiveResult) WebhookAckResponse {
	resp := WebhookAckResponse{
		EventID:  r.EventID.String(),
		Accepted: r.Accepted,
		State:    string(r.State),
		Error:    r.Error,
	}
	if r.OrderID != nil {
		resp.OrderID = r.OrderID.String()
	}
	return resp
}

func toWebhookEventResponse(e *webhook.Event) WebhookEventResponse {
	resp := WebhookEventResponse{
		ID:         e.ID.String(),
		Source:     e.Source,
		EventType:  e.EventType,
		ExternalID: e.ExternalID,
		State:      string(e.State),
		Error:      e.Error,
		ReceivedAt: e.ReceivedAt,
		UpdatedAt:  e.UpdatedAt,
	}
	if e.TenantID != nil {
		resp.TenantID = e.TenantID.String()
	}
	if e.OrderID != nil {
		resp.OrderID = e.OrderID.String()
	}
	return resp
}
