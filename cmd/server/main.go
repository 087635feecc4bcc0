package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agenda/internal/audit"
	contacthandler "agenda/internal/contact/handler"
	contactmetrics "agenda/internal/contact/metrics"
	contactservice "agenda/internal/contact/service"
	contactstore "agenda/internal/contact/store"
	"agenda/internal/enrich"
	enrichmetrics "agenda/internal/enrich/metrics"
	"agenda/internal/platform/config"
	"agenda/internal/platform/httpserver"
	"agenda/internal/platform/logger"
	"agenda/internal/platform/middleware"
	"agenda/internal/platform/postgres"
	platformredis "agenda/internal/platform/redis"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	ctx := context.Background()

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Error("store init failed", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	lookups := enrich.NewClient(cfg.APINinjasURL, cfg.APINinjasKey, cfg.LookupTimeout, enrichmetrics.New())
	pipeline := enrich.NewPipeline(lookups, log)

	opts := []contactservice.Option{
		contactservice.WithMetrics(contactmetrics.New()),
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := audit.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			log.Error("kafka audit publisher init failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		opts = append(opts, contactservice.WithAuditPublisher(publisher))
	}
	svc := contactservice.New(store, pipeline, log, opts...)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	contacthandler.New(svc, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting agenda", "addr", cfg.Addr, "store", cfg.StoreBackend)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// buildStore selects the contact store backend from configuration.
func buildStore(ctx context.Context, cfg config.Config) (contactstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		pg := contactstore.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return pg, func() { db.Close() }, nil
	case "redis":
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return contactstore.NewRedis(client.Client), func() { client.Close() }, nil
	default:
		return contactstore.NewInMemory(), func() {}, nil
	}
}
