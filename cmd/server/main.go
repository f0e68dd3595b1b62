package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/application/settlement"
	"github.com/erp/fulfillment/internal/application/shipping"
	"github.com/erp/fulfillment/internal/application/withdrawal"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/shipment"
	"github.com/erp/fulfillment/internal/infrastructure/auth"
	"github.com/erp/fulfillment/internal/infrastructure/cache"
	"github.com/erp/fulfillment/internal/infrastructure/carrier"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/erp/fulfillment/internal/interfaces/http/handler"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/erp/fulfillment/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const serviceVersion = "1.0.0"

//	@title			Fulfillment API
//	@version		1.0
//	@description	Order fulfillment, profit settlement and carrier dispatch
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})

	// Telemetry first so the bridged logger reaches the collector
	providers, err := telemetry.Setup(context.Background(), cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := providers.BridgeLogger(baseLog)
	defer func() {
		_ = log.Sync()
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			baseLog.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	log.Info("Starting fulfillment service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), 200*time.Millisecond)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.App.Env == "development"
	if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	metrics, err := telemetry.NewFulfillmentMetrics(providers.Meter("fulfillment"))
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	shipmentRepo := persistence.NewGormShipmentRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)

	eventBus := event.NewInMemoryEventBus(log)

	// Carriers
	httpCarrier, err := carrier.NewHTTPCarrier(cfg.Carrier, log)
	if err != nil {
		log.Fatal("Failed to configure carrier", zap.Error(err))
	}
	carriers := shipment.NewCarrierRegistry(cfg.Shipping.DefaultCarrier)
	carriers.Register(httpCarrier)

	// Application services
	fulfillmentService := fulfillment.NewFulfillmentService(orderRepo, eventBus, cfg.Settlement.CommissionRate, log).
		WithMetrics(metrics)
	ledgerService := settlement.NewLedgerService(ledgerRepo, eventBus, log).
		WithMetrics(metrics)
	distributionService := settlement.NewProfitDistributionService(orderRepo, ledgerService, eventBus, cfg.Settlement, log).
		WithMetrics(metrics)
	dispatchService := shipping.NewDispatchService(orderRepo, shipmentRepo, carriers, eventBus, cfg.Shipping, log).
		WithMetrics(metrics)
	withdrawalService := withdrawal.NewWithdrawalService(ledgerService, eventBus, cfg.Withdrawal, log).
		WithMetrics(metrics)

	// Event handlers. Deliveries are deduped so a replayed event settles or dispatches once.
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Idempotency, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).Create()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()
	idempotency := event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Idempotency.TTL, Enabled: true})

	orderDeliveredHandler := event.NewIdempotentHandler("order_delivered_settlement",
		settlement.NewOrderDeliveredHandler(distributionService, log), idempotencyStore, log, idempotency)
	eventBus.Subscribe(orderDeliveredHandler)

	orderConfirmedHandler := event.NewIdempotentHandler("order_confirmed_dispatch",
		shipping.NewOrderConfirmedHandler(dispatchService, cfg.Shipping.AutoDispatch, log).
			WithTimeout(cfg.Shipping.AutoDispatchTimeout),
		idempotencyStore, log, idempotency)
	eventBus.Subscribe(orderConfirmedHandler)

	if cfg.Event.KafkaEnabled {
		kafkaPublisher, err := event.NewKafkaPublisher(cfg.Event, log)
		if err != nil {
			log.Fatal("Failed to create kafka publisher", zap.Error(err))
		}
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				log.Error("Error closing kafka publisher", zap.Error(err))
			}
		}()
		eventBus.Subscribe(kafkaPublisher)
		log.Info("Kafka forwarding enabled",
			zap.Strings("brokers", cfg.Event.KafkaBrokers),
			zap.String("topic", cfg.Event.KafkaTopic),
		)
	}

	log.Info("Event handlers registered",
		zap.Strings("order_delivered_events", orderDeliveredHandler.EventTypes()),
		zap.Strings("order_confirmed_events", orderConfirmedHandler.EventTypes()),
		zap.Bool("auto_dispatch", cfg.Shipping.AutoDispatch),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.Telemetry.ServiceName, Enabled: cfg.Telemetry.Enabled}),
		middleware.Secure(middleware.SecurityConfig{HSTSEnabled: cfg.App.Env == "production", HSTSMaxAge: 31536000}),
		middleware.CORSWithConfig(middleware.DefaultCORSConfig(cfg.HTTP.CORSAllowOrigins)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if cfg.HTTP.MetricsEnabled {
		engine.Use(middleware.NewHTTPMetrics(registry, "fulfillment").Middleware())
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	apiMiddleware := []gin.HandlerFunc{
		middleware.JWTAuthMiddleware(middleware.DefaultJWTConfig(jwtService, log)),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
	}
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(limiter, middleware.ActorOrIPKey))
	}

	perms := middleware.PermissionConfig{Logger: log}
	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithAPIMiddleware(apiMiddleware...),
	)
	r.RegisterRoot(handler.NewHealthHandler(serviceVersion, map[string]handler.Pinger{"database": db}))
	if cfg.HTTP.MetricsEnabled {
		r.RegisterRoot(router.RegistrarFunc(func(rg *gin.RouterGroup) {
			rg.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
		}))
	}
	r.Register(handler.NewOrderHandler(fulfillmentService)).
		Register(handler.NewShipmentHandler(dispatchService, fulfillmentService, perms)).
		Register(handler.NewSettlementHandler(distributionService, ledgerService, perms)).
		Register(handler.NewWithdrawalHandler(withdrawalService, perms))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
