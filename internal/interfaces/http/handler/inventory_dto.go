package handler

import (
	"encoding/json"
	"time"

	"github.com/omnisync/backend/internal/domain/inventory"
)

// AdjustInventoryRequest moves the stock of one SKU by delta
type AdjustInventoryRequest struct {
	SKU    string `json:"sku" binding:"required,max=255"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason" binding:"omitempty,max=255"`
}

// SetInventoryRequest overwrites the stock of one SKU
type SetInventoryRequest struct {
	SKU      string `json:"sku" binding:"required,max=255"`
	Quantity *int   `json:"quantity" binding:"required,gte=0"`
}

// BroadcastRequest pushes stock to one marketplace, or to all when Source is empty
type BroadcastRequest struct {
	Source  string          `json:"source" binding:"omitempty,max=50"`
	Payload json.RawMessage `json:"payload"`
}

// InventoryRecordResponse is the stock of one SKU
type InventoryRecordResponse struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AdjustmentResponse is one ledger entry
type AdjustmentResponse struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BroadcastResponse is a recorded broadcast
type BroadcastResponse struct {
	ID        string          `json:"id"`
	Source    string          `json:"source,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// BroadcastResultResponse is a broadcast with the jobs it enqueued
type BroadcastResultResponse struct {
	Broadcast BroadcastResponse `json:"broadcast"`
	Jobs      []SyncJobResponse `json:"jobs"`
}

func toInventoryRecordResponse(r *inventory.Record) InventoryRecordResponse {
	return InventoryRecordResponse{
		ID:        r.ID.String(),
		SKU:       r.SKU,
		Quantity:  r.Quantity,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toAdjustmentResponse(a *inventory.Adjustment) AdjustmentResponse {
	resp := AdjustmentResponse{
		ID:        a.ID.String(),
		SKU:       a.SKU,
		Delta:     a.Delta,
		Reason:    a.Reason,
		CreatedAt: a.CreatedAt,
	}
	if a.Reference != nil {
		resp.Reference = a.Reference.String()
	}
	return resp
}

func toBroadcastResponse(b *inventory.Broadcast) BroadcastResponse {
	return BroadcastResponse{
		ID:        b.ID.String(),
		Source:    b.Source,
		Payload:   rawJSON(b.Payload),
		CreatedAt: b.CreatedAt,
	}
}

// rawJSON returns stored JSON for embedding, or {} when there is none
func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 || !json.Valid(b) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(b)
}
