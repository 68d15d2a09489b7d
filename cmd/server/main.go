// The server exposes the read API: notice listings and details with their
// alarm flags, plus admin edit and delete endpoints.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"redwatch/internal/admintoken"
	"redwatch/internal/alarm"
	"redwatch/internal/blob"
	"redwatch/internal/notice/handler"
	noticemetrics "redwatch/internal/notice/metrics"
	"redwatch/internal/notice/service"
	"redwatch/internal/notice/store"
	"redwatch/internal/platform/config"
	"redwatch/internal/platform/httpserver"
	"redwatch/internal/platform/logger"
	"redwatch/internal/platform/middleware"
	"redwatch/internal/platform/postgres"
	platformredis "redwatch/internal/platform/redis"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := store.EnsureSchema(ctx, db); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	var acks alarm.Acks
	if redisClient != nil {
		defer redisClient.Close()
		acks = alarm.NewRedisAcks(redisClient.Client)
		log.Info("alarm acknowledgement enabled")
	}

	blobs, err := blob.New(blob.Config{
		Endpoint:  cfg.Blob.Endpoint,
		AccessKey: cfg.Blob.AccessKey,
		SecretKey: cfg.Blob.SecretKey,
		Bucket:    cfg.Blob.Bucket,
		PublicURL: cfg.Blob.PublicURL,
		UseSSL:    cfg.Blob.UseSSL,
	})
	if err != nil {
		log.Error("blob store init failed", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	svc := service.New(store.NewPostgres(db), acks, blobs, log, noticemetrics.New(reg))

	var validator middleware.TokenValidator
	if cfg.Server.AdminJWTKey != "" {
		validator = admintoken.New(cfg.Server.AdminJWTKey, "redwatch")
	} else {
		log.Warn("ADMIN_JWT_KEY not set, mutating endpoints are unguarded")
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handler.New(svc, log).Register(r, middleware.RequireAdmin(validator, log))

	srv := httpserver.New(cfg.Server.Addr, r)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("server started", "addr", cfg.Server.Addr)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
