package scan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"redwatch/internal/scan/metrics"
	"redwatch/internal/source"
	"redwatch/pkg/platform/sentinel"
)

// Source fetches one catalog page per partition.
type Source interface {
	SearchPage(ctx context.Context, q source.Query) (*source.Page, []byte, error)
}

// Publisher puts one serialized page onto the work queue.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// Config tunes the scan loop timing.
type Config struct {
	PageSize         int
	RequestDelay     time.Duration
	RateLimitBackoff time.Duration
	CycleInterval    time.Duration
}

// Producer walks the partition set each cycle and publishes every non-empty
// page to the work queue. It never terminates on error: partition failures are
// isolated, queue failures abort the cycle, and the next cycle starts after
// the configured interval either way.
type Producer struct {
	source  Source
	queue   Publisher
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProducer constructs a producer with explicit dependencies.
func NewProducer(src Source, queue Publisher, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Producer {
	return &Producer{source: src, queue: queue, cfg: cfg, logger: logger, metrics: m}
}

// Run executes scan cycles until ctx is cancelled.
func (p *Producer) Run(ctx context.Context) error {
	for {
		start := time.Now()
		published, err := p.RunCycle(ctx)
		if err != nil && ctx.Err() == nil {
			p.logger.Error("scan cycle aborted", "error", err)
		}
		p.metrics.CycleDuration.Observe(time.Since(start).Seconds())
		p.logger.Info("scan cycle finished",
			"pages_published", published,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.CycleInterval):
		}
	}
}

// RunCycle scans every partition once. Per-partition errors are logged and
// skipped; a queue publish failure aborts the cycle because the connection is
// gone and every remaining publish would fail the same way.
func (p *Producer) RunCycle(ctx context.Context) (int, error) {
	published := 0
	for _, partition := range Partitions() {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}

		page, raw, err := p.source.SearchPage(ctx, source.Query{
			Nationality: partition.Nationality,
			AgeMin:      partition.Band.Min,
			AgeMax:      partition.Band.Max,
			PageSize:    p.cfg.PageSize,
		})
		switch {
		case errors.Is(err, sentinel.ErrRateLimited):
			p.metrics.RateLimitHits.Inc()
			p.logger.Warn("source rate limited, backing off",
				"nationality", partition.Nationality,
				"backoff", p.cfg.RateLimitBackoff,
			)
			if !sleep(ctx, p.cfg.RateLimitBackoff) {
				return published, ctx.Err()
			}
			continue
		case err != nil:
			p.metrics.PartitionErrors.Inc()
			p.logger.Warn("partition scan failed",
				"nationality", partition.Nationality,
				"age_min", partition.Band.Min,
				"age_max", partition.Band.Max,
				"error", err,
			)
			continue
		}

		if len(page.Embedded.Notices) == 0 {
			p.metrics.EmptyPartitions.Inc()
		} else {
			if err := p.queue.Publish(ctx, raw); err != nil {
				return published, err
			}
			p.metrics.PagesPublished.Inc()
			published++
			p.logger.Debug("page published",
				"nationality", partition.Nationality,
				"age_min", partition.Band.Min,
				"age_max", partition.Band.Max,
				"notices", len(page.Embedded.Notices),
			)
		}

		if !sleep(ctx, p.cfg.RequestDelay) {
			return published, ctx.Err()
		}
	}
	return published, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
