package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncJobHandler(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/workers/order-sync", map[string]any{"source": "woo", "payload": map[string]any{"since": "2026-01-01"}})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var job SyncJobResponse
	decodeData(t, w, &job)
	assert.Equal(t, "order_sync", job.Type)
	assert.Equal(t, "WOO", job.Source)
	assert.Equal(t, "PENDING", job.Status)
	assert.Equal(t, 3, job.MaxAttempts)
	assert.JSONEq(t, `{"since":"2026-01-01"}`, string(job.Payload))

	w = f.do(t, http.MethodPost, "/workers/inventory-sync", map[string]any{"source": "flipkart"})
	require.Equal(t, http.StatusAccepted, w.Code)

	t.Run("source required", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/workers/order-sync", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown source", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/workers/order-sync", map[string]any{"source": "etsy"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeErrorInfo(t, w).Code)
	})

	w = f.do(t, http.MethodGet, "/workers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var jobs []SyncJobResponse
	decodeData(t, w, &jobs)
	assert.Len(t, jobs, 2)

	w = f.do(t, http.MethodGet, "/workers?type=inventory_sync", nil)
	decodeData(t, w, &jobs)
	require.Len(t, jobs, 1)
	assert.Equal(t, "FLIPKART", jobs[0].Source)

	w = f.do(t, http.MethodGet, "/workers?status=RUNNING", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/workers/"+job.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got SyncJobResponse
	decodeData(t, w, &got)
	assert.Equal(t, job.ID, got.ID)

	t.Run("requeue needs a failed job", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/workers/"+job.ID+"/requeue", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, decodeErrorInfo(t, w).Code)
	})

	t.Run("other tenant", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/workers/"+job.ID, nil, "X-Tenant-ID", uuid.NewString())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
