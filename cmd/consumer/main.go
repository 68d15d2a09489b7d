// The consumer drains page messages from the work queue, reconciles each
// notice into Postgres, and enriches new or changed records with detail
// documents and photos stored in MinIO.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"redwatch/internal/blob"
	"redwatch/internal/ingest"
	ingestmetrics "redwatch/internal/ingest/metrics"
	"redwatch/internal/notice/store"
	"redwatch/internal/platform/config"
	"redwatch/internal/platform/httpserver"
	"redwatch/internal/platform/logger"
	"redwatch/internal/platform/postgres"
	"redwatch/internal/queue"
	"redwatch/internal/source"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New("consumer")

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
	if err := blobs.EnsureBucket(ctx); err != nil {
		log.Error("bucket provisioning failed", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	q := queue.New(cfg.Queue.URL, cfg.Queue.Name)
	defer q.Close()

	consumer := ingest.New(
		q,
		store.NewPostgres(db),
		store.PageTx(db),
		source.New(cfg.Source.BaseURL, cfg.Source.UserAgent, cfg.Source.Timeout),
		blobs,
		ingest.Config{
			PollInterval: cfg.Consumer.PollInterval,
			ErrorBackoff: cfg.Consumer.ErrorBackoff,
		},
		log,
		ingestmetrics.New(reg),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := httpserver.New(cfg.Consumer.MetricsAddr, mux)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(ctx)
	})
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return metricsSrv.Close()
	})

	log.Info("consumer started",
		"queue", cfg.Queue.Name,
		"bucket", cfg.Blob.Bucket,
		"metrics_addr", cfg.Consumer.MetricsAddr,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer exited", "error", err)
		os.Exit(1)
	}
	log.Info("consumer stopped")
}
