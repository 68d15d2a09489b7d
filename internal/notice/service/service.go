// Package service sits between the HTTP handlers and the store: it computes
// alarm flags, resolves blob keys to public URLs, and validates edits.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"redwatch/internal/alarm"
	noticemetrics "redwatch/internal/notice/metrics"
	"redwatch/internal/notice/models"
	"redwatch/internal/notice/store"
)

// URLBuilder turns a blob key into a public URL.
type URLBuilder interface {
	URL(key string) string
}

// View is one record as the read API presents it. Alarm is computed at read
// time and never stored.
type View struct {
	Record       *models.Record
	Alarm        bool
	ThumbnailURL string
	PhotoURLs    []string
}

// Service orchestrates the read API. A nil acks disables acknowledgement on
// view; a nil urls leaves blob keys unresolved.
type Service struct {
	store   store.Store
	acks    alarm.Acks
	urls    URLBuilder
	logger  *slog.Logger
	metrics *noticemetrics.Metrics
	now     func() time.Time
}

func New(st store.Store, acks alarm.Acks, urls URLBuilder, logger *slog.Logger, m *noticemetrics.Metrics) *Service {
	return &Service{
		store:   st,
		acks:    acks,
		urls:    urls,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// SetClock overrides the alarm clock. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// List returns all records, most recently updated first, each with its alarm
// flag computed at this instant.
func (s *Service) List(ctx context.Context) ([]View, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}

	now := s.now()
	views := make([]View, 0, len(records))
	for _, rec := range records {
		views = append(views, s.view(ctx, rec, now))
	}
	s.metrics.ListRequests.Inc()
	return views, nil
}

// Get returns one record with its detail and photos. Viewing a record
// acknowledges its alarm: the caller still sees the flag on this response,
// subsequent reads within the window do not.
func (s *Service) Get(ctx context.Context, entityID string) (*View, error) {
	rec, err := s.store.Get(ctx, entityID)
	if err != nil {
		return nil, err
	}

	v := s.view(ctx, rec, s.now())
	if v.Alarm && s.acks != nil {
		if err := s.acks.Acknowledge(ctx, entityID, rec.UpdatedAt); err != nil {
			s.logger.Warn("alarm acknowledge failed", "entity_id", entityID, "error", err)
		}
	}
	s.metrics.RecordViews.Inc()
	return &v, nil
}

// Update applies an admin edit to a record's editable fields.
func (s *Service) Update(ctx context.Context, entityID string, fields store.EditableFields) error {
	if err := s.store.Update(ctx, entityID, fields); err != nil {
		return err
	}
	s.metrics.AdminEdits.Inc()
	return nil
}

// Delete removes a record and everything hanging off it.
func (s *Service) Delete(ctx context.Context, entityID string) error {
	if err := s.store.Delete(ctx, entityID); err != nil {
		return err
	}
	s.metrics.AdminDeletes.Inc()
	return nil
}

func (s *Service) view(ctx context.Context, rec *models.Record, now time.Time) View {
	v := View{Record: rec}

	active := alarm.Active(rec.Status, rec.UpdatedAt, now)
	if active && s.acks != nil {
		acked, err := s.acks.IsAcknowledged(ctx, rec.EntityID, rec.UpdatedAt)
		if err != nil {
			s.logger.Warn("alarm ack lookup failed", "entity_id", rec.EntityID, "error", err)
		} else if acked {
			active = false
		}
	}
	v.Alarm = active
	if active {
		s.metrics.AlarmsServed.Inc()
	}

	if s.urls != nil {
		if rec.ThumbnailPath != "" {
			v.ThumbnailURL = s.urls.URL(rec.ThumbnailPath)
		}
		for _, p := range rec.Photos {
			v.PhotoURLs = append(v.PhotoURLs, s.urls.URL(p.BlobPath))
		}
	}
	return v
}
