package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"redwatch/internal/notice/models"
	"redwatch/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	clock time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.clock = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	s.store.SetClock(func() time.Time { return s.clock })
}

func (s *MemoryStoreSuite) advance(d time.Duration) {
	s.clock = s.clock.Add(d)
}

func (s *MemoryStoreSuite) upsert(entityID, name string, nationalities ...string) UpsertOutcome {
	outcome, err := s.store.Upsert(s.ctx, Upsert{
		EntityID:      entityID,
		Name:          name,
		Nationalities: nationalities,
	})
	s.Require().NoError(err)
	return outcome
}

func (s *MemoryStoreSuite) TestUpsertIdempotence() {
	s.Run("first ingestion creates with status NEW", func() {
		s.Equal(OutcomeCreated, s.upsert("2026/1111", "DOE", "TR"))

		rec, err := s.store.Get(s.ctx, "2026/1111")
		s.Require().NoError(err)
		s.Equal(models.StatusNew, rec.Status)
		s.Equal(rec.CreatedAt, rec.UpdatedAt)
	})

	s.Run("identical re-ingestion touches nothing", func() {
		s.upsert("2026/2222", "SMITH", "FR")
		before, err := s.store.Get(s.ctx, "2026/2222")
		s.Require().NoError(err)

		s.advance(time.Minute)
		s.Equal(OutcomeUnchanged, s.upsert("2026/2222", "SMITH", "FR"))

		after, err := s.store.Get(s.ctx, "2026/2222")
		s.Require().NoError(err)
		s.Equal(models.StatusNew, after.Status)
		s.True(after.UpdatedAt.Equal(before.UpdatedAt), "updated_at must not move for an unchanged notice")
	})

	s.Run("same page twice leaves exactly one record", func() {
		s.upsert("2026/3333", "KIM", "KR")
		s.upsert("2026/3333", "KIM", "KR")

		records, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		seen := 0
		for _, rec := range records {
			if rec.EntityID == "2026/3333" {
				seen++
			}
		}
		s.Equal(1, seen)
	})
}

func (s *MemoryStoreSuite) TestChangeDetection() {
	s.Run("name change flips status and advances updated_at", func() {
		s.upsert("2026/1111", "A", "TR")
		s.advance(time.Minute)

		s.Equal(OutcomeUpdated, s.upsert("2026/1111", "B", "TR"))

		rec, err := s.store.Get(s.ctx, "2026/1111")
		s.Require().NoError(err)
		s.Equal(models.StatusUpdated, rec.Status)
		s.True(rec.UpdatedAt.After(rec.CreatedAt))
	})

	s.Run("nationality change alone is a change", func() {
		s.upsert("2026/4444", "DOE", "TR")
		s.advance(time.Minute)

		s.Equal(OutcomeUpdated, s.upsert("2026/4444", "DOE", "FR"))

		rec, err := s.store.Get(s.ctx, "2026/4444")
		s.Require().NoError(err)
		s.Equal(models.StatusUpdated, rec.Status)
		s.Equal([]string{"FR"}, rec.Nationalities)
	})

	s.Run("nationality order matters", func() {
		s.upsert("2026/5555", "DOE", "TR", "FR")
		s.Equal(OutcomeUpdated, s.upsert("2026/5555", "DOE", "FR", "TR"))
	})
}

func (s *MemoryStoreSuite) TestThumbnailSurvivesUpdate() {
	_, err := s.store.Upsert(s.ctx, Upsert{
		EntityID:      "2026/1111",
		Name:          "DOE",
		Nationalities: []string{"TR"},
		ThumbnailPath: "2026_1111/thumbnail/2026_1111_profile.jpg",
	})
	s.Require().NoError(err)

	s.upsert("2026/1111", "CHANGED", "TR")

	rec, err := s.store.Get(s.ctx, "2026/1111")
	s.Require().NoError(err)
	s.Equal("2026_1111/thumbnail/2026_1111_profile.jpg", rec.ThumbnailPath)
}

func (s *MemoryStoreSuite) TestPhotoDedup() {
	s.upsert("2026/1111", "DOE", "TR")

	added, err := s.store.AddPhoto(s.ctx, models.Photo{EntityID: "2026/1111", PictureID: "63213", BlobPath: "2026_1111/others/2026_1111_63213.jpg"})
	s.Require().NoError(err)
	s.True(added)

	added, err = s.store.AddPhoto(s.ctx, models.Photo{EntityID: "2026/1111", PictureID: "63213", BlobPath: "2026_1111/others/2026_1111_63213.jpg"})
	s.Require().NoError(err)
	s.False(added, "second pass with the same picture_id must not add a row")

	photos, err := s.store.ListPhotos(s.ctx, "2026/1111")
	s.Require().NoError(err)
	s.Len(photos, 1)
}

func (s *MemoryStoreSuite) TestDetailLifecycle() {
	s.upsert("2026/1111", "DOE", "TR")

	s.Run("absent detail is valid", func() {
		rec, err := s.store.Get(s.ctx, "2026/1111")
		s.Require().NoError(err)
		s.Nil(rec.Detail)
	})

	s.Run("saved detail is eagerly loaded", func() {
		height := 1.85
		err := s.store.SaveDetail(s.ctx, &models.Detail{
			EntityID:  "2026/1111",
			Sex:       models.SexMale,
			Height:    &height,
			Languages: []string{"TUR", "ENG"},
			FetchedAt: s.clock,
		})
		s.Require().NoError(err)

		rec, err := s.store.Get(s.ctx, "2026/1111")
		s.Require().NoError(err)
		s.Require().NotNil(rec.Detail)
		s.Equal(models.SexMale, rec.Detail.Sex)
		s.Equal([]string{"TUR", "ENG"}, rec.Detail.Languages)
	})
}

func (s *MemoryStoreSuite) TestDeleteCascades() {
	s.upsert("2026/1111", "DOE", "TR")
	_, err := s.store.AddPhoto(s.ctx, models.Photo{EntityID: "2026/1111", PictureID: "1", BlobPath: "p"})
	s.Require().NoError(err)
	s.Require().NoError(s.store.SaveDetail(s.ctx, &models.Detail{EntityID: "2026/1111", Sex: models.SexUnknown, FetchedAt: s.clock}))

	s.Require().NoError(s.store.Delete(s.ctx, "2026/1111"))

	_, err = s.store.Get(s.ctx, "2026/1111")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	photos, err := s.store.ListPhotos(s.ctx, "2026/1111")
	s.Require().NoError(err)
	s.Empty(photos)
}

func (s *MemoryStoreSuite) TestUpdateAndDeleteUnknown() {
	name := "X"
	err := s.store.Update(s.ctx, "missing", EditableFields{Name: &name})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.Delete(s.ctx, "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestListOrderedByRecency() {
	s.upsert("2026/1111", "OLD", "TR")
	s.advance(time.Minute)
	s.upsert("2026/2222", "NEW", "FR")
	s.advance(time.Minute)
	s.upsert("2026/1111", "OLD-CHANGED", "TR")

	records, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("2026/1111", records[0].EntityID, "most recently touched record lists first")
}
