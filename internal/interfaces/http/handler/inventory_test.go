package handler

import (
	"net/http"
	"sync"
	"testing"

	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryHandler_AdjustAndSet(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/inventory/adjust", map[string]any{"sku": "TSHIRT-M", "delta": 5, "reason": "restock"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var record InventoryRecordResponse
	decodeData(t, w, &record)
	assert.Equal(t, "TSHIRT-M", record.SKU)
	assert.Equal(t, 5, record.Quantity)

	t.Run("exactly to zero", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/inventory/adjust", map[string]any{"sku": "TSHIRT-M", "delta": -5})
		require.Equal(t, http.StatusOK, w.Code)
		decodeData(t, w, &record)
		assert.Zero(t, record.Quantity)
	})

	t.Run("below zero", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/inventory/adjust", map[string]any{"sku": "TSHIRT-M", "delta": -1})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeInsufficientInventory, decodeErrorInfo(t, w).Code)
		assert.Zero(t, f.quantity(t, "TSHIRT-M"))
	})

	t.Run("sku required", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/inventory/adjust", map[string]any{"delta": 1})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		errInfo := decodeErrorInfo(t, w)
		assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
		require.Len(t, errInfo.Details, 1)
		assert.Equal(t, "sku", errInfo.Details[0].Field)
	})

	t.Run("set", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/inventory/set", map[string]any{"sku": "TSHIRT-M", "quantity": 42})
		require.Equal(t, http.StatusOK, w.Code)
		decodeData(t, w, &record)
		assert.Equal(t, 42, record.Quantity)
	})

	t.Run("set requires quantity", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/inventory/set", map[string]any{"sku": "TSHIRT-M"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = f.do(t, http.MethodPost, "/inventory/set", map[string]any{"sku": "TSHIRT-M", "quantity": -1})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	w = f.do(t, http.MethodGet, "/inventory/TSHIRT-M/adjustments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []AdjustmentResponse
	decodeData(t, w, &history)
	require.Len(t, history, 3)
	deltas := make([]int, 0, len(history))
	reasons := make([]string, 0, len(history))
	for _, a := range history {
		deltas = append(deltas, a.Delta)
		reasons = append(reasons, a.Reason)
	}
	assert.ElementsMatch(t, []int{5, -5, 42}, deltas)
	assert.Contains(t, reasons, "restock")

	w = f.do(t, http.MethodGet, "/inventory", nil)
	var records []InventoryRecordResponse
	decodeData(t, w, &records)
	require.Len(t, records, 1)
	assert.Equal(t, 42, records[0].Quantity)
}

func TestInventoryHandler_ConcurrentAdjustNeverNegative(t *testing.T) {
	f := newAPIFixture(t)
	f.stock(t, "HOT", 10)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := f.do(t, http.MethodPost, "/inventory/adjust", map[string]any{"sku": "HOT", "delta": -1})
			if w.Code == http.StatusOK {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10-succeeded, f.quantity(t, "HOT"))
	assert.GreaterOrEqual(t, f.quantity(t, "HOT"), 0)
}

func TestInventoryHandler_Broadcast(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/inventory/broadcast", map[string]any{"payload": map[string]any{"reason": "price drop"}})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var result BroadcastResultResponse
	decodeData(t, w, &result)
	assert.Empty(t, result.Broadcast.Source)
	assert.JSONEq(t, `{"reason":"price drop"}`, string(result.Broadcast.Payload))
	require.Len(t, result.Jobs, 4)
	for _, job := range result.Jobs {
		assert.Equal(t, "inventory_sync", job.Type)
		assert.Equal(t, "PENDING", job.Status)
	}

	w = f.do(t, http.MethodPost, "/inventory/broadcast", map[string]any{"source": "amazon"})
	require.Equal(t, http.StatusAccepted, w.Code)
	decodeData(t, w, &result)
	assert.Equal(t, "AMAZON", result.Broadcast.Source)
	require.Len(t, result.Jobs, 1)

	t.Run("unknown source", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/inventory/broadcast", map[string]any{"source": "ebay"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("payload must be an object", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/inventory/broadcast", map[string]any{"payload": []int{1, 2}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	w = f.do(t, http.MethodGet, "/inventory/broadcasts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var broadcasts []BroadcastResponse
	decodeData(t, w, &broadcasts)
	assert.Len(t, broadcasts, 2)
}
