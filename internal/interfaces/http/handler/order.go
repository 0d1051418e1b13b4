package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	apporder "github.com/omnisync/backend/internal/application/order"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"github.com/omnisync/backend/internal/interfaces/http/middleware"
)

const defaultOrderPageSize = 50

// OrderService is the part of the order service used over HTTP
type OrderService interface {
	CreateManual(ctx context.Context, tenantID uuid.UUID, input apporder.ManualOrderInput) (*order.CanonicalOrder, bool, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*order.CanonicalOrder, error)
	List(ctx context.Context, tenantID uuid.UUID, filter order.ListFilter) ([]order.CanonicalOrder, int64, error)
}

// OrderHandler handles canonical order endpoints
type OrderHandler struct {
	BaseHandler
	orders OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var q OrderListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	limit := q.LimitOr(defaultOrderPageSize)
	orders, total, err := h.orders.List(c.Request.Context(), tenantID, order.ListFilter{
		Source: q.Source,
		Limit:  limit,
		Offset: q.Offset,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	h.SuccessWithMeta(c, resp, total, limit, q.Offset)
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	id, ok := h.BindID(c)
	if !ok {
		return
	}

	o, err := h.orders.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(o))
}

// Create handles POST /orders. A new order is 201; an order whose external
// id already exists is returned unchanged with 200.
func (h *OrderHandler) Create(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	var req CreateOrderRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	input := apporder.ManualOrderInput{
		Source:      req.Source,
		ExternalID:  req.ExternalID,
		Status:      req.Status,
		TotalAmount: req.TotalAmount,
		Currency:    req.Currency,
		Items:       make([]apporder.ManualOrderItem, 0, len(req.Items)),
		RawPayload:  body,
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, apporder.ManualOrderItem{
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	o, created, err := h.orders.CreateManual(c.Request.Context(), tenantID, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.NewSuccessResponse(CreateOrderResponse{Order: toOrderResponse(o), Created: created}))
}
