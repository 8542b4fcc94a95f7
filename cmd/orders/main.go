package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/restaurant-pos/internal/audit"
	"github.com/joao-fontenele/restaurant-pos/internal/catalog"
	"github.com/joao-fontenele/restaurant-pos/internal/config"
	"github.com/joao-fontenele/restaurant-pos/internal/messaging"
	"github.com/joao-fontenele/restaurant-pos/internal/orders"
	"github.com/joao-fontenele/restaurant-pos/internal/reporting"
	"github.com/joao-fontenele/restaurant-pos/internal/telemetry"
	"github.com/joao-fontenele/restaurant-pos/internal/worker"
)

const serviceName = "orders"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("orders service failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load(config.WithDefault("PORT", "8081"))
	if err != nil {
		return err
	}
	if err := cfg.Require("POSTGRES_URL", "KAFKA_BROKERS"); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, cfg.ServiceVersion)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, cfg.ServiceVersion)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	db, err := telemetry.OpenDB(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	metrics, err := orders.NewMetrics(otel.Meter(serviceName))
	if err != nil {
		return err
	}

	repo := orders.NewOrderRepository(db)
	outbox := audit.NewOutbox(db)

	manager, err := orders.NewManager(orders.ManagerDeps{
		Store:   repo,
		Catalog: catalog.NewCatalogRepository(db),
		Audit:   outbox,
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	dashboard := reporting.NewService(repo, reporting.Options{
		Location:    cfg.BusinessLocation,
		CutoverHour: cfg.BusinessDayCutoverHour,
		TopN:        cfg.DashboardTopN,
	}, logger)

	mux := http.NewServeMux()
	orders.NewHandler(manager, logger).Register(mux)
	mux.HandleFunc("GET /dashboard", reporting.NewHandler(dashboard, logger).HandleDashboard)
	mux.Handle("GET /metrics", metricsHandler)

	producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.AuditTopic)
	defer func() { _ = producer.Close() }()

	relay := worker.NewRelay(outbox, producer, worker.RelayConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
	}, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.NewServerHandler(mux, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting orders service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("starting audit outbox relay", "topic", cfg.AuditTopic)
		return relay.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
