package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appwebhook "github.com/omnisync/backend/internal/application/webhook"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/domain/webhook"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"github.com/omnisync/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
)

func newBareRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

type failingIntake struct{}

func (failingIntake) Receive(context.Context, string, http.Header, []byte) (*appwebhook.ReceiveResult, error) {
	return nil, errors.New("database is down")
}

func (failingIntake) Replay(context.Context, uuid.UUID, uuid.UUID) (*appwebhook.ReceiveResult, error) {
	return nil, errors.New("database is down")
}

func (failingIntake) List(context.Context, uuid.UUID, int) ([]webhook.Event, error) {
	return nil, errors.New("database is down")
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantCode      string
		wantMessage   string
		wantRetryable bool
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound, "Resource not found", false},
		{"validation", shared.ErrValidation.WithMessage("sku is required"), http.StatusBadRequest, dto.ErrCodeValidation, "sku is required", false},
		{"busy", shared.ErrResourceBusy, http.StatusConflict, dto.ErrCodeResourceBusy, shared.ErrResourceBusy.Message, true},
		{"insufficient", shared.ErrInsufficientInventory, http.StatusConflict, dto.ErrCodeInsufficientInventory, shared.ErrInsufficientInventory.Message, false},
		{"adapter", shared.ErrAdapterUnavailable, http.StatusServiceUnavailable, dto.ErrCodeAdapterUnavailable, shared.ErrAdapterUnavailable.Message, true},
		{"signature", shared.ErrInvalidSignature, http.StatusUnauthorized, dto.ErrCodeInvalidSignature, shared.ErrInvalidSignature.Message, false},
		{"malformed", shared.ErrMalformedPayload, http.StatusBadRequest, dto.ErrCodeMalformedPayload, shared.ErrMalformedPayload.Message, false},
		{"wrapped", fmt.Errorf("create order: %w", shared.ErrInvalidState), http.StatusConflict, dto.ErrCodeInvalidState, shared.ErrInvalidState.Message, false},
		{"plain error", errors.New("pq: connection refused"), http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			r := newBareRouter()
			r.GET("/", func(c *gin.Context) { h.HandleError(c, tt.err) })

			w := serve(r, http.MethodGet, "/", "")
			assert.Equal(t, tt.wantStatus, w.Code)
			errInfo := decodeErrorInfo(t, w)
			assert.Equal(t, tt.wantCode, errInfo.Code)
			assert.Equal(t, tt.wantMessage, errInfo.Message)
			assert.Equal(t, tt.wantRetryable, errInfo.Retryable)
			assert.NotEmpty(t, errInfo.RequestID)
		})
	}
}

func TestBaseHandler_HandleError_Nil(t *testing.T) {
	h := &BaseHandler{}
	r := newBareRouter()
	r.GET("/", func(c *gin.Context) {
		h.HandleError(c, nil)
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", "").Code)
}

func TestBaseHandler_Responses(t *testing.T) {
	h := &BaseHandler{}
	r := newBareRouter()
	r.GET("/ok", func(c *gin.Context) { h.Success(c, gin.H{"a": 1}) })
	r.GET("/created", func(c *gin.Context) { h.Created(c, nil) })
	r.GET("/accepted", func(c *gin.Context) { h.Accepted(c, nil) })
	r.GET("/page", func(c *gin.Context) { h.SuccessWithMeta(c, []int{1}, 10, 1, 5) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ok", "").Code)
	assert.Equal(t, http.StatusCreated, serve(r, http.MethodGet, "/created", "").Code)
	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodGet, "/accepted", "").Code)

	w := serve(r, http.MethodGet, "/page", "")
	assert.JSONEq(t, `{"success":true,"data":[1],"meta":{"total":10,"limit":1,"offset":5}}`, w.Body.String())
}

func TestBaseHandler_TenantID_Missing(t *testing.T) {
	h := &BaseHandler{}
	r := newBareRouter()
	r.GET("/", func(c *gin.Context) {
		if _, ok := h.TenantID(c); ok {
			c.Status(http.StatusOK)
		}
	})

	w := serve(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, decodeErrorInfo(t, w).Code)
}
