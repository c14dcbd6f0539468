package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/expensehub/internal/cache"
	"github.com/geocoder89/expensehub/internal/config"
	"github.com/geocoder89/expensehub/internal/db"
	"github.com/geocoder89/expensehub/internal/domain/category"
	httpx "github.com/geocoder89/expensehub/internal/http"
	"github.com/geocoder89/expensehub/internal/observability"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	taxonomy, err := category.Load()

	if err != nil {
		log.Error("invalid embedded category taxonomy", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("could not connect to database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	// optional summary cache
	var summaries *cache.SummaryCache

	if cfg.RedisAddr != "" {
		summaries = cache.NewSummaryCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, 5*time.Minute)

		pingCtx, cancel := config.WithTimeout(2 * time.Second)
		if err := summaries.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable, summary cache disabled", "err", err)
			summaries = nil
		}
		cancel()
	}

	// optional tracing
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), "expensehub-api", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("could not init tracer", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()

			_ = shutdownTracer(ctx)
		}()
	}

	reg := prometheus.NewRegistry()

	router := httpx.NewRouter(cfg, log, pool, reg, taxonomy, summaries)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
