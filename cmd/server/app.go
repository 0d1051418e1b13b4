package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appinv "github.com/omnisync/backend/internal/application/inventory"
	apporder "github.com/omnisync/backend/internal/application/order"
	appsync "github.com/omnisync/backend/internal/application/syncjob"
	appwebhook "github.com/omnisync/backend/internal/application/webhook"
	"github.com/omnisync/backend/internal/infrastructure/auth"
	"github.com/omnisync/backend/internal/infrastructure/cache"
	"github.com/omnisync/backend/internal/infrastructure/config"
	"github.com/omnisync/backend/internal/infrastructure/ecommerce"
	"github.com/omnisync/backend/internal/infrastructure/event"
	"github.com/omnisync/backend/internal/infrastructure/lock"
	"github.com/omnisync/backend/internal/infrastructure/logger"
	"github.com/omnisync/backend/internal/infrastructure/migration"
	"github.com/omnisync/backend/internal/infrastructure/persistence"
	"github.com/omnisync/backend/internal/infrastructure/scheduler"
	"github.com/omnisync/backend/internal/infrastructure/telemetry"
	"github.com/omnisync/backend/internal/interfaces/http/handler"
	"github.com/omnisync/backend/internal/interfaces/http/middleware"
	"github.com/omnisync/backend/internal/interfaces/http/router"
	"github.com/omnisync/backend/migrations"
	"go.uber.org/zap"
)

// app owns every long-lived component of the server process
type app struct {
	cfg *config.Config
	log *zap.Logger
	tel *telemetryStack

	db          *persistence.Database
	locks       lock.Coordinator
	credentials *cache.CredentialCache
	notifier    *event.ChannelNotifier
	forwarder   *event.AMQPForwarder
	queue       *scheduler.JobQueue
	trigger     *scheduler.InventorySyncTrigger
	limiter     *middleware.RateLimiter

	ledger  *appinv.LedgerService
	orders  *apporder.Service
	intake  *appwebhook.IntakeService
	jobs    *appsync.Service
	events  *persistence.GormEventLogRepository
	tenant  uuid.UUID
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, tel *telemetryStack) (*app, error) {
	a := &app{cfg: cfg, log: log, tel: tel}
	if err := a.wire(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg, log, tel := a.cfg, a.log, a.tel

	if cfg.App.DefaultTenant != "" {
		a.tenant = uuid.MustParse(cfg.App.DefaultTenant)
	}

	if err := a.openDatabase(); err != nil {
		return err
	}

	var err error
	a.locks, err = lock.NewFromConfig(ctx, cfg.Lock, cfg.Redis,
		lock.WithLogger(log.Named("lock")),
		lock.WithMetrics(tel.business),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize lock coordinator: %w", err)
	}
	a.closers = append(a.closers, a.locks.Close)

	provider, err := ecommerce.NewConfigCredentialProvider(cfg.Credentials)
	if err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}
	a.credentials = cache.NewCredentialCache(provider)
	a.closers = append(a.closers, a.credentials.Close)

	if err := a.startNotifier(ctx); err != nil {
		return err
	}

	db := a.db.DB
	scope := persistence.NewGormTransactionScope(db)
	integrations := persistence.NewGormIntegrationRepository(db)
	jobRepo := persistence.NewGormSyncJobRepository(db)
	a.events = persistence.NewGormEventLogRepository(db)
	a.notifier.Subscribe(event.NewEventLogSubscriber(a.events))

	if err := registerIntegrations(ctx, integrations, cfg, log); err != nil {
		return err
	}

	registry := ecommerce.NewRegistry(cfg.Adapters)

	a.ledger = appinv.NewLedgerService(scope, persistence.NewGormInventoryRepository(db), a.locks, cfg.Lock.TTL)
	a.ledger.SetNotifier(a.notifier)
	a.ledger.SetMetrics(tel.business)
	a.ledger.SetLogger(log.Named("ledger"))

	a.orders = apporder.NewService(scope, persistence.NewGormOrderRepository(db), a.ledger, a.locks, apporder.NewNormalizer(registry))
	a.orders.SetNotifier(a.notifier)
	a.orders.SetLogger(log.Named("orders"))

	a.intake = appwebhook.NewIntakeService(
		persistence.NewGormWebhookEventRepository(db),
		integrations,
		a.credentials,
		apporder.NewNormalizer(registry),
		a.orders,
	)
	a.intake.SetDefaultTenant(a.tenant)
	a.intake.SetMetrics(tel.business)
	a.intake.SetLogger(log.Named("webhook"))

	queueCfg := scheduler.NewJobQueueConfig(cfg.Sync)
	jobRepo.SetStaleAfter(queueCfg.JobTimeout + queueCfg.LockTTL)
	a.jobs = appsync.NewService(jobRepo, persistence.NewGormBroadcastRepository(db), queueCfg.Policy)
	a.jobs.SetNotifier(a.notifier)
	a.jobs.SetLogger(log.Named("jobs"))

	a.queue, err = scheduler.NewJobQueue(queueCfg, jobRepo, a.locks, log.Named("queue"))
	if err != nil {
		return fmt.Errorf("invalid sync configuration: %w", err)
	}
	a.queue.SetNotifier(a.notifier)
	a.queue.SetMetrics(tel.business)

	executor := scheduler.NewSyncExecutor(registry, a.credentials, integrations, a.orders, a.ledger, log.Named("sync"))
	executor.SetMetrics(tel.business)
	executor.Register(a.queue)

	a.trigger = scheduler.NewInventorySyncTrigger(cfg.Sync.SchedulerInterval, integrations, jobRepo, a.jobs, log.Named("trigger"))

	log.Info("Application wired",
		zap.Int("workers", queueCfg.Workers),
		zap.Int("credentials", len(cfg.Credentials)),
		zap.Bool("scheduler", cfg.Sync.SchedulerEnabled),
	)
	return nil
}

func (a *app) openDatabase() error {
	cfg := a.cfg
	gormLog := logger.NewGormLogger(a.log.Named("gorm"), logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{Logger: gormLog})
	if err != nil {
		return err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:     cfg.Database.DBName,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}

	if db.Driver == persistence.DriverSQLite {
		a.log.Info("Creating sqlite schema")
		return db.AutoMigrate()
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	m, err := migration.NewFromFS(sqlDB, migrations.FS, a.log.Named("migrate"))
	if err != nil {
		return err
	}
	// Close is skipped: it would close the shared sql.DB.
	return m.Up()
}

func (a *app) startNotifier(ctx context.Context) error {
	cfg := a.cfg.Notifier
	a.notifier = event.NewChannelNotifier(event.ChannelNotifierConfig{
		BufferSize:     cfg.BufferSize,
		HandlerTimeout: event.DefaultChannelNotifierConfig().HandlerTimeout,
	}, a.log.Named("notifier"))
	a.notifier.SetMetrics(a.tel.business)

	if cfg.AMQPURL == "" {
		return nil
	}
	forwarder, err := event.DialAMQPForwarder(ctx, cfg.AMQPURL, cfg.Exchange, a.log.Named("amqp"))
	if err != nil {
		return fmt.Errorf("failed to connect notification broker: %w", err)
	}
	a.forwarder = forwarder
	a.closers = append(a.closers, forwarder.Close)
	a.notifier.Subscribe(forwarder)
	return nil
}

// httpEngine builds the gin engine with the full middleware chain and routes
func (a *app) httpEngine() (*gin.Engine, error) {
	cfg := a.cfg
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	httpMetrics, err := middleware.HTTPMetrics(a.tel.metrics.Meter("omnisync/http"))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(a.log),
		logger.Recovery(a.log),
		middleware.Tracing(cfg.Telemetry.ServiceName),
		middleware.SpanErrorMarker(),
		middleware.CORSWithConfig(cors),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if cfg.HTTP.RateLimitEnabled {
		a.limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(a.limiter))
	}
	engine.Use(httpMetrics, middleware.Profiling())

	var authChain []gin.HandlerFunc
	if cfg.JWT.Enabled {
		authChain = append(authChain, middleware.JWTAuthMiddleware(middleware.JWTMiddlewareConfig{
			Verifier: newTokenVerifier(cfg.JWT),
			Logger:   a.log,
		}))
	}
	authChain = append(authChain,
		middleware.TenantMiddleware(middleware.TenantMiddlewareConfig{
			HeaderEnabled: !cfg.JWT.Enabled,
			DefaultTenant: a.tenant,
			Logger:        a.log,
		}),
		middleware.TracingAttributeInjector(),
	)

	checks := []handler.HealthCheck{{Name: "database", Check: a.db.Ping}}
	r := router.NewRouter(engine)
	router.RegisterAPI(r, router.Handlers{
		Webhooks:  handler.NewWebhookHandler(a.intake),
		Orders:    handler.NewOrderHandler(a.orders),
		Inventory: handler.NewInventoryHandler(a.ledger, a.jobs),
		Workers:   handler.NewSyncJobHandler(a.jobs),
		Events:    handler.NewEventLogHandler(a.events),
		System:    handler.NewSystemHandler(cfg.App.Name, version, checks...),
	}, router.APIConfig{
		Auth:    authChain,
		Metrics: a.tel.business.Handler(),
	})
	r.Setup()

	return engine, nil
}

func newTokenVerifier(cfg config.JWTConfig) middleware.TokenVerifier {
	return auth.NewTokenVerifier(cfg)
}

// shutdownWorkers stops the background components in dependency order: the
// trigger and queue first, then the notifier so their last events drain.
func (a *app) shutdownWorkers(ctx context.Context) {
	if a.cfg.Sync.SchedulerEnabled {
		if err := a.trigger.Stop(ctx); err != nil {
			a.log.Warn("Failed to stop inventory sync trigger", zap.Error(err))
		}
	}
	if err := a.queue.Stop(ctx); err != nil {
		a.log.Warn("Failed to stop job queue", zap.Error(err))
	}
	if err := a.notifier.Stop(ctx); err != nil {
		a.log.Warn("Failed to drain notifier", zap.Error(err))
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
}

// close releases connections in reverse order of acquisition
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("Failed to release resource", zap.Error(err))
		}
	}
	a.closers = nil
}

var _ scheduler.JobEnqueuer = (*appsync.Service)(nil)

