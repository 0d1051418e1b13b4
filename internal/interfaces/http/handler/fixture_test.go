package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appinv "github.com/omnisync/backend/internal/application/inventory"
	apporder "github.com/omnisync/backend/internal/application/order"
	appsync "github.com/omnisync/backend/internal/application/syncjob"
	appwebhook "github.com/omnisync/backend/internal/application/webhook"
	"github.com/omnisync/backend/internal/domain/syncjob"
	"github.com/omnisync/backend/internal/infrastructure/config"
	"github.com/omnisync/backend/internal/infrastructure/ecommerce"
	"github.com/omnisync/backend/internal/infrastructure/lock"
	"github.com/omnisync/backend/internal/infrastructure/persistence"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"github.com/omnisync/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testWebhookSecret = "whsec_handler_test"

// apiFixture wires real services over an in-memory database
type apiFixture struct {
	router   *gin.Engine
	tenantID uuid.UUID
	ledger   *appinv.LedgerService
	jobs     *appsync.Service
	eventLog *persistence.GormEventLogRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db, err := persistence.OpenSQLite(persistence.MemoryDSN(uuid.NewString()), persistence.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	locks := lock.NewInMemoryLockCoordinator()
	t.Cleanup(func() { _ = locks.Close() })

	tenantID := uuid.New()
	creds, err := ecommerce.NewConfigCredentialProvider([]config.CredentialConfig{
		{TenantID: tenantID.String(), Source: "shopify", WebhookSecret: testWebhookSecret},
	})
	require.NoError(t, err)

	scope := persistence.NewGormTransactionScope(db.DB)
	registry := ecommerce.NewRegistry(config.AdaptersConfig{Timeout: time.Second})
	normalizer := apporder.NewNormalizer(registry)

	ledger := appinv.NewLedgerService(scope, persistence.NewGormInventoryRepository(db.DB), locks, time.Second)
	orders := apporder.NewService(scope, persistence.NewGormOrderRepository(db.DB), ledger, locks, normalizer)
	intake := appwebhook.NewIntakeService(
		persistence.NewGormWebhookEventRepository(db.DB),
		persistence.NewGormIntegrationRepository(db.DB),
		creds, normalizer, orders,
	)
	jobs := appsync.NewService(
		persistence.NewGormSyncJobRepository(db.DB),
		persistence.NewGormBroadcastRepository(db.DB),
		syncjob.DefaultRetryPolicy(),
	)
	eventLog := persistence.NewGormEventLogRepository(db.DB)

	webhooks := NewWebhookHandler(intake)
	orderHandler := NewOrderHandler(orders)
	inventory := NewInventoryHandler(ledger, jobs)
	workers := NewSyncJobHandler(jobs)
	events := NewEventLogHandler(eventLog)

	middleware.SetupValidator()
	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/webhooks/:source", webhooks.Receive)

	api := r.Group("")
	api.Use(middleware.TenantMiddleware(middleware.TenantMiddlewareConfig{HeaderEnabled: true, DefaultTenant: tenantID}))
	api.GET("/webhooks", webhooks.List)
	api.POST("/webhooks/events/:id/replay", webhooks.Replay)
	api.GET("/orders", orderHandler.List)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders", orderHandler.Create)
	api.POST("/inventory/adjust", inventory.Adjust)
	api.POST("/inventory/set", inventory.Set)
	api.GET("/inventory", inventory.List)
	api.GET("/inventory/:sku/adjustments", inventory.ListAdjustments)
	api.POST("/inventory/broadcast", inventory.Broadcast)
	api.GET("/inventory/broadcasts", inventory.ListBroadcasts)
	api.POST("/workers/order-sync", workers.EnqueueOrderSync)
	api.POST("/workers/inventory-sync", workers.EnqueueInventorySync)
	api.GET("/workers", workers.List)
	api.GET("/workers/:id", workers.Get)
	api.POST("/workers/:id/requeue", workers.Requeue)
	api.GET("/events", events.List)

	return &apiFixture{router: r, tenantID: tenantID, ledger: ledger, jobs: jobs, eventLog: eventLog}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the data field of a success response into out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) *dto.Response {
	t.Helper()
	var resp struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Data, out), w.Body.String())
	}
	return &resp.Response
}

func decodeErrorInfo(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return *resp.Error
}
