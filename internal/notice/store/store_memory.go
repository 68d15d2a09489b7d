package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"redwatch/internal/notice/models"
	"redwatch/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded Store for tests and local runs. It mirrors the
// PostgresStore semantics, including atomic upsert-by-identity.
type InMemory struct {
	mu      sync.Mutex
	records map[string]*models.Record
	details map[string]*models.Detail
	photos  map[string][]models.Photo
	now     func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[string]*models.Record),
		details: make(map[string]*models.Detail),
		photos:  make(map[string][]models.Photo),
		now:     time.Now,
	}
}

// SetClock overrides the time source; tests use it to pin timestamps.
func (s *InMemory) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *InMemory) Upsert(_ context.Context, u Upsert) (UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, ok := s.records[u.EntityID]
	if !ok {
		s.records[u.EntityID] = &models.Record{
			EntityID:      u.EntityID,
			Name:          u.Name,
			Forename:      u.Forename,
			DateOfBirth:   u.DateOfBirth,
			Nationalities: append([]string(nil), u.Nationalities...),
			ThumbnailPath: u.ThumbnailPath,
			Status:        models.StatusNew,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return OutcomeCreated, nil
	}

	if !existing.Changed(u.Name, u.Nationalities) {
		return OutcomeUnchanged, nil
	}
	existing.Name = u.Name
	existing.Forename = u.Forename
	existing.DateOfBirth = u.DateOfBirth
	existing.Nationalities = append([]string(nil), u.Nationalities...)
	existing.Status = models.StatusUpdated
	existing.UpdatedAt = now
	return OutcomeUpdated, nil
}

func (s *InMemory) SetThumbnail(_ context.Context, entityID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[entityID]
	if !ok {
		return fmt.Errorf("notice %s: %w", entityID, sentinel.ErrNotFound)
	}
	rec.ThumbnailPath = path
	return nil
}

func (s *InMemory) Get(_ context.Context, entityID string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[entityID]
	if !ok {
		return nil, fmt.Errorf("notice %s: %w", entityID, sentinel.ErrNotFound)
	}
	out := cloneRecord(rec)
	if d, ok := s.details[entityID]; ok {
		detail := *d
		out.Detail = &detail
	}
	out.Photos = append([]models.Photo(nil), s.photos[entityID]...)
	return out, nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]*models.Record, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, cloneRecord(rec))
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		}
		return records[i].EntityID < records[j].EntityID
	})
	return records, nil
}

func (s *InMemory) Update(_ context.Context, entityID string, fields EditableFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[entityID]
	if !ok {
		return fmt.Errorf("notice %s: %w", entityID, sentinel.ErrNotFound)
	}
	rec.UpdatedAt = s.now()
	if fields.Name != nil {
		rec.Name = *fields.Name
	}
	if fields.Forename != nil {
		rec.Forename = *fields.Forename
	}
	if fields.Status != nil {
		rec.Status = *fields.Status
	}

	if fields.Sex != nil || fields.Height != nil || fields.Weight != nil || fields.Marks != nil {
		d, ok := s.details[entityID]
		if !ok {
			d = &models.Detail{EntityID: entityID, Sex: models.SexUnknown, FetchedAt: s.now()}
			s.details[entityID] = d
		}
		if fields.Sex != nil {
			d.Sex = *fields.Sex
		}
		if fields.Height != nil {
			d.Height = fields.Height
		}
		if fields.Weight != nil {
			d.Weight = fields.Weight
		}
		if fields.Marks != nil {
			d.Marks = *fields.Marks
		}
	}
	return nil
}

func (s *InMemory) Delete(_ context.Context, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[entityID]; !ok {
		return fmt.Errorf("notice %s: %w", entityID, sentinel.ErrNotFound)
	}
	delete(s.records, entityID)
	delete(s.details, entityID)
	delete(s.photos, entityID)
	return nil
}

func (s *InMemory) SaveDetail(_ context.Context, d *models.Detail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[d.EntityID]; !ok {
		return fmt.Errorf("notice %s: %w", d.EntityID, sentinel.ErrNotFound)
	}
	detail := *d
	s.details[d.EntityID] = &detail
	return nil
}

func (s *InMemory) AddPhoto(_ context.Context, p models.Photo) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[p.EntityID]; !ok {
		return false, fmt.Errorf("notice %s: %w", p.EntityID, sentinel.ErrNotFound)
	}
	for _, existing := range s.photos[p.EntityID] {
		if existing.PictureID == p.PictureID {
			return false, nil
		}
	}
	s.photos[p.EntityID] = append(s.photos[p.EntityID], p)
	return true, nil
}

func (s *InMemory) ListPhotos(_ context.Context, entityID string) ([]models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Photo(nil), s.photos[entityID]...), nil
}

func cloneRecord(rec *models.Record) *models.Record {
	out := *rec
	out.Nationalities = append([]string(nil), rec.Nationalities...)
	out.Detail = nil
	out.Photos = nil
	return &out
}
