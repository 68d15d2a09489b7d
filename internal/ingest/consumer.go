// Package ingest is the queue consumer: it pulls page messages, reconciles
// each notice against the store, and enriches new or changed records with
// detail documents and photos.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"redwatch/internal/ingest/metrics"
	"redwatch/internal/notice/store"
	"redwatch/internal/source"
	"redwatch/pkg/platform/sentinel"
)

// Queue pulls one message at a time; sentinel.ErrEmpty means nothing is ready.
type Queue interface {
	Get(ctx context.Context) ([]byte, error)
}

// Source fetches the secondary per-notice resources during enrichment.
type Source interface {
	Detail(ctx context.Context, href string) (*source.Detail, []byte, error)
	ImageList(ctx context.Context, href string) (*source.ImageList, error)
	FetchImage(ctx context.Context, href string) ([]byte, error)
}

// BlobStore uploads image bytes under deterministic keys.
type BlobStore interface {
	PutJPEG(ctx context.Context, key string, data []byte) error
}

// Config tunes the consumer poll loop.
type Config struct {
	PollInterval time.Duration
	ErrorBackoff time.Duration
}

// Consumer is the ingestion worker. It is the only writer of upserts; the
// read API only edits and deletes.
type Consumer struct {
	queue   Queue
	store   store.Store
	inTx    store.TxRunner
	source  Source
	blobs   BlobStore
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New constructs a consumer with explicit dependencies. inTx batches one
// page's mutations into a single commit; pass store.NoTx() for stores without
// transactions.
func New(q Queue, st store.Store, inTx store.TxRunner, src Source, blobs BlobStore, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Consumer {
	return &Consumer{
		queue:   q,
		store:   st,
		inTx:    inTx,
		source:  src,
		blobs:   blobs,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Run polls the queue until ctx is cancelled. Every failure mode backs off and
// retries; the consumer never terminates on error.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		err := c.ProcessOne(ctx)
		var wait time.Duration
		switch {
		case err == nil:
			// Message processed; immediately check for the next one.
		case errors.Is(err, sentinel.ErrEmpty):
			wait = c.cfg.PollInterval
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			c.logger.Error("consumer iteration failed", "error", err)
			wait = c.cfg.ErrorBackoff
		}

		if wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// ProcessOne pulls and processes a single page message. The message is already
// acknowledged when Get returns, so decode failures drop the page rather than
// redelivering a poison message forever.
func (c *Consumer) ProcessOne(ctx context.Context) error {
	body, err := c.queue.Get(ctx)
	if err != nil {
		return err
	}
	c.metrics.PagesConsumed.Inc()

	var page source.Page
	if err := json.Unmarshal(body, &page); err != nil {
		return fmt.Errorf("decode page message: %w", err)
	}
	return c.processPage(ctx, &page)
}

func (c *Consumer) processPage(ctx context.Context, page *source.Page) error {
	changed := 0
	err := c.inTx(ctx, func(ctx context.Context) error {
		for _, notice := range page.Embedded.Notices {
			outcome, err := c.reconcile(ctx, notice)
			if err != nil {
				// Per-notice failures are isolated; the rest of the page
				// still commits.
				c.metrics.NoticeErrors.Inc()
				c.logger.Warn("notice reconcile failed",
					"entity_id", notice.EntityID,
					"error", err,
				)
				continue
			}
			c.metrics.NoticesProcessed.WithLabelValues(outcome.String()).Inc()
			if outcome != store.OutcomeUnchanged {
				changed++
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit page: %w", err)
	}
	c.logger.Info("page processed",
		"notices", len(page.Embedded.Notices),
		"changed", changed,
	)
	return nil
}

// reconcile upserts one notice and triggers enrichment when the record is new
// or changed. Unchanged notices are left completely untouched: no timestamp
// bump, no enrichment refetch.
func (c *Consumer) reconcile(ctx context.Context, notice source.Notice) (store.UpsertOutcome, error) {
	if notice.EntityID == "" {
		return store.OutcomeUnchanged, errors.New("notice without entity_id")
	}

	var outcome store.UpsertOutcome
	err := store.WithSavepoint(ctx, func(ctx context.Context) error {
		var err error
		outcome, err = c.store.Upsert(ctx, store.Upsert{
			EntityID:      notice.EntityID,
			Name:          notice.Name,
			Forename:      notice.Forename,
			DateOfBirth:   notice.DateOfBirth,
			Nationalities: notice.Nationalities,
		})
		return err
	})
	if err != nil {
		return outcome, err
	}

	switch outcome {
	case store.OutcomeCreated:
		c.storeThumbnail(ctx, notice)
		c.enrich(ctx, notice.EntityID, notice.Links.Self.Href)
	case store.OutcomeUpdated:
		c.enrich(ctx, notice.EntityID, notice.Links.Self.Href)
	}
	return outcome, nil
}
