package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderHandler_Create(t *testing.T) {
	f := newAPIFixture(t)
	f.stock(t, "PEN", 10)

	req := map[string]any{
		"external_id": "M-1",
		"items": []map[string]any{
			{"sku": "PEN", "name": "Blue pen", "quantity": 2, "unit_price": "1.50"},
		},
	}

	w := f.do(t, http.MethodPost, "/orders", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created CreateOrderResponse
	decodeData(t, w, &created)
	assert.True(t, created.Created)
	assert.Equal(t, "MANUAL", created.Order.Source)
	assert.Equal(t, "USD", created.Order.Currency)
	assert.Equal(t, "NEW", created.Order.Status)
	assert.True(t, decimal.RequireFromString("3").Equal(created.Order.TotalAmount))
	require.Len(t, created.Order.Items, 1)
	assert.Equal(t, 2, created.Order.Items[0].Quantity)
	assert.Equal(t, f.tenantID.String(), created.Order.TenantID)
	assert.Equal(t, 8, f.quantity(t, "PEN"))

	t.Run("same external id returns the existing order", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/orders", req)
		require.Equal(t, http.StatusOK, w.Code)
		var again CreateOrderResponse
		decodeData(t, w, &again)
		assert.False(t, again.Created)
		assert.Equal(t, created.Order.ID, again.Order.ID)
		assert.Equal(t, 8, f.quantity(t, "PEN"))
	})

	t.Run("insufficient inventory", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/orders", map[string]any{
			"external_id": "M-2",
			"items":       []map[string]any{{"sku": "PEN", "quantity": 9}},
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		errInfo := decodeErrorInfo(t, w)
		assert.Equal(t, dto.ErrCodeInsufficientInventory, errInfo.Code)
		assert.False(t, errInfo.Retryable)
		assert.Equal(t, 8, f.quantity(t, "PEN"))
	})

	t.Run("malformed json", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/orders", `{"items":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid currency", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/orders", map[string]any{"currency": "DOLLARS"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeErrorInfo(t, w).Code)
	})
}

func TestOrderHandler_ListAndGet(t *testing.T) {
	f := newAPIFixture(t)
	f.stock(t, "BOOK", 10)

	for _, id := range []string{"A-1", "A-2", "A-3"} {
		w := f.do(t, http.MethodPost, "/orders", map[string]any{
			"source":      "shopify",
			"external_id": id,
			"items":       []map[string]any{{"sku": "BOOK", "quantity": 1, "unit_price": 10}},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := f.do(t, http.MethodGet, "/orders?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page []OrderResponse
	resp := decodeData(t, w, &page)
	assert.Len(t, page, 2)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(3), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Limit)

	w = f.do(t, http.MethodGet, "/orders?source=amazon", nil)
	var none []OrderResponse
	resp = decodeData(t, w, &none)
	assert.Empty(t, none)
	assert.Equal(t, int64(0), resp.Meta.Total)

	w = f.do(t, http.MethodGet, "/orders/"+page[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var one OrderResponse
	decodeData(t, w, &one)
	assert.Equal(t, page[0].ID, one.ID)
	assert.Equal(t, "SHOPIFY", one.Source)

	t.Run("other tenant", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/orders/"+page[0].ID, nil, "X-Tenant-ID", uuid.NewString())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("limit too large", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/orders?limit=5000", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
