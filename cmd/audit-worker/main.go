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
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/restaurant-pos/internal/audit"
	"github.com/joao-fontenele/restaurant-pos/internal/config"
	"github.com/joao-fontenele/restaurant-pos/internal/messaging"
	"github.com/joao-fontenele/restaurant-pos/internal/telemetry"
	"github.com/joao-fontenele/restaurant-pos/internal/worker"
)

const serviceName = "audit-worker"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("audit worker failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load(config.WithDefault("PORT", "8083"))
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

	store := audit.NewStore(db)

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, cfg.AuditTopic, cfg.AuditGroupID, messaging.WithLogger(logger))
	defer func() { _ = consumer.Close() }()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /audit/orders/{id}", audit.NewHandler(store, logger).HandleTrail)
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.NewServerHandler(mux, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	handler := worker.NewAuditHandler(store, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting audit consumer", "brokers", cfg.KafkaBrokers, "topic", cfg.AuditTopic)
		err := consumer.Consume(gctx, handler.Handle)
		if gctx.Err() != nil {
			logger.Info("consumer stopped")
			return nil
		}
		return err
	})
	g.Go(func() error {
		logger.Info("starting audit trail server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
