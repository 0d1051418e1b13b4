package handler

import (
	"time"

	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest is a canonical order posted by an operator. Missing
// fields are filled the same way as for marketplace payloads.
type CreateOrderRequest struct {
	Source      string                   `json:"source" binding:"omitempty,max=50"`
	ExternalID  string                   `json:"external_id" binding:"omitempty,max=255"`
	Status      string                   `json:"status" binding:"omitempty,max=50"`
	TotalAmount *decimal.Decimal         `json:"total_amount"`
	Currency    string                   `json:"currency" binding:"omitempty,len=3"`
	Items       []CreateOrderItemRequest `json:"items" binding:"max=500,dive"`
}

// CreateOrderItemRequest is one line of CreateOrderRequest
type CreateOrderItemRequest struct {
	SKU       string           `json:"sku" binding:"omitempty,max=255"`
	Name      string           `json:"name" binding:"omitempty,max=500"`
	Quantity  *int             `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// OrderListQuery filters GET /orders
type OrderListQuery struct {
	Source string `form:"source" binding:"omitempty,max=50"`
	dto.ListQuery
}

// OrderResponse is a canonical order
type OrderResponse struct {
	ID          string              `json:"id"`
	TenantID    string              `json:"tenant_id"`
	Source      string              `json:"source"`
	ExternalID  string              `json:"external_id,omitempty"`
	Status      string              `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Currency    string              `json:"currency"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// OrderItemResponse is one order line
type OrderItemResponse struct {
	ID        string           `json:"id"`
	SKU       string           `json:"sku"`
	Name      string           `json:"name,omitempty"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// CreateOrderResponse reports whether the order is new or an existing one
// with the same external id.
type CreateOrderResponse struct {
	Order   OrderResponse `json:"order"`
	Created bool          `json:"created"`
}

func toOrderResponse(o *order.CanonicalOrder) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ID:        it.ID.String(),
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return OrderResponse{
		ID:          o.ID.String(),
		TenantID:    o.TenantID.String(),
		Source:      o.Source,
		ExternalID:  o.ExternalID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		Items:       items,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
