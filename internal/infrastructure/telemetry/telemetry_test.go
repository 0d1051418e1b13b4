package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	cfg := Config{Enabled: false, ServiceName: "omnisync-test"}

	tp, err := NewTracerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	tp.EnableSpanProfiles()
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, cfg, 0, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(ctx))

	assert.False(t, lp.ZapCore("svc", zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))

	prof, err := NewProfiler(ProfilerConfig{Enabled: false}, logger)
	require.NoError(t, err)
	assert.False(t, prof.IsEnabled())
	assert.NoError(t, prof.Stop())
	assert.NoError(t, prof.Stop())
}

func TestNewProfiler_RequiresAddress(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true}, zap.NewNop())
	assert.Error(t, err)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), sampler(0.25).Description())
}

func TestLevelFilterCore(t *testing.T) {
	inner, recorded := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}
	l := zap.New(core).With(zap.String("k", "v"))

	l.Info("dropped")
	l.Warn("kept")

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "kept", recorded.All()[0].Message)
	assert.Equal(t, "v", recorded.All()[0].ContextMap()["k"])
}

func TestStartSpan_RecordsError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), "ledger.adjust")
	EndSpan(span, errors.New("insufficient"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "ledger.adjust", spans[0].Name)
	assert.Len(t, spans[0].Events, 1)
}

func TestBusinessMetrics(t *testing.T) {
	m := NewBusinessMetrics()

	m.RecordInventoryAdjustment("order_created")
	m.RecordInventoryAdjustment("order_created")
	m.RecordWebhookEvent("SHOPIFY", "ACKED")
	m.RecordSyncJob("inventory_sync", "FAILED")
	m.RecordLockAcquire("busy")
	m.RecordNotification("order.created", "delivered")
	m.ObserveAdapterCall("WOO", "pull_orders", 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.inventoryAdjustments.WithLabelValues("order_created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookEvents.WithLabelValues("SHOPIFY", "ACKED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lockAcquires.WithLabelValues("busy")))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `omnisync_sync_jobs_total{status="FAILED",type="inventory_sync"} 1`)
	assert.Contains(t, string(body), "omnisync_adapter_request_duration_seconds_bucket")
}
