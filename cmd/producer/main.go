// The producer walks the partitioned search space of the upstream catalog and
// publishes every non-empty result page to the work queue.
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

	"redwatch/internal/platform/config"
	"redwatch/internal/platform/httpserver"
	"redwatch/internal/platform/logger"
	"redwatch/internal/queue"
	"redwatch/internal/scan"
	scanmetrics "redwatch/internal/scan/metrics"
	"redwatch/internal/source"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New("producer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	src := source.New(cfg.Source.BaseURL, cfg.Source.UserAgent, cfg.Source.Timeout)
	q := queue.New(cfg.Queue.URL, cfg.Queue.Name)
	defer q.Close()

	producer := scan.NewProducer(src, q, scan.Config{
		PageSize:         cfg.Producer.PageSize,
		RequestDelay:     cfg.Producer.RequestDelay,
		RateLimitBackoff: cfg.Producer.RateLimitBackoff,
		CycleInterval:    cfg.Producer.CycleInterval,
	}, log, scanmetrics.New(reg))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := httpserver.New(cfg.Producer.MetricsAddr, mux)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return producer.Run(ctx)
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

	log.Info("producer started",
		"queue", cfg.Queue.Name,
		"cycle_interval", cfg.Producer.CycleInterval.String(),
		"metrics_addr", cfg.Producer.MetricsAddr,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("producer exited", "error", err)
		os.Exit(1)
	}
	log.Info("producer stopped")
}
