package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler_Health(t *testing.T) {
	healthy := HealthCheck{Name: "database", Check: func(context.Context) error { return nil }}
	down := HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}

	t.Run("healthy", func(t *testing.T) {
		h := NewSystemHandler("omnisync", "test", healthy)
		r := newBareRouter()
		r.GET("/health", h.Health)

		w := serve(r, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "healthy", resp.Checks["database"])
	})

	t.Run("degraded", func(t *testing.T) {
		h := NewSystemHandler("omnisync", "test", healthy, down)
		r := newBareRouter()
		r.GET("/health", h.Health)

		w := serve(r, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "healthy", resp.Checks["database"])
		assert.Equal(t, "unhealthy: connection refused", resp.Checks["redis"])
	})
}

func TestSystemHandler_Info(t *testing.T) {
	h := NewSystemHandler("omnisync", "1.2.3")
	r := newBareRouter()
	r.GET("/system/info", h.GetSystemInfo)
	r.GET("/system/ping", h.Ping)

	w := serve(r, http.MethodGet, "/system/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "omnisync", data["name"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["go_version"])

	w = serve(r, http.MethodGet, "/system/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}
