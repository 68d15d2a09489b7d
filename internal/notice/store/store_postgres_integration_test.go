//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"redwatch/internal/notice/models"
	"redwatch/internal/notice/store"
	"redwatch/pkg/platform/sentinel"
	"redwatch/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(store.EnsureSchema(context.Background(), s.postgres.DB))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	// Truncate in dependency order
	err := s.postgres.TruncateTables(ctx, "notice_photos", "notice_details", "notices")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) upsert(entityID, name string, nationalities ...string) store.UpsertOutcome {
	outcome, err := s.store.Upsert(context.Background(), store.Upsert{
		EntityID:      entityID,
		Name:          name,
		Nationalities: nationalities,
	})
	s.Require().NoError(err)
	return outcome
}

func (s *PostgresStoreSuite) TestUpsertOutcomes() {
	s.Equal(store.OutcomeCreated, s.upsert("2026/1111", "DOE", "TR"))
	s.Equal(store.OutcomeUnchanged, s.upsert("2026/1111", "DOE", "TR"))
	s.Equal(store.OutcomeUpdated, s.upsert("2026/1111", "DOE", "FR"))

	rec, err := s.store.Get(context.Background(), "2026/1111")
	s.Require().NoError(err)
	s.Equal(models.StatusUpdated, rec.Status)
	s.Equal([]string{"FR"}, rec.Nationalities)
	s.True(rec.UpdatedAt.After(rec.CreatedAt))
}

func (s *PostgresStoreSuite) TestUnchangedDoesNotBumpTimestamp() {
	ctx := context.Background()
	s.upsert("2026/2222", "SMITH", "FR")
	before, err := s.store.Get(ctx, "2026/2222")
	s.Require().NoError(err)

	s.Equal(store.OutcomeUnchanged, s.upsert("2026/2222", "SMITH", "FR"))

	after, err := s.store.Get(ctx, "2026/2222")
	s.Require().NoError(err)
	s.True(after.UpdatedAt.Equal(before.UpdatedAt))
	s.Equal(models.StatusNew, after.Status)
}

// TestConcurrentUpsertSameIdentity verifies that racing duplicate ingestion of
// one entity_id (overlapping partitions in the same cycle) converges on a
// single row instead of tripping the unique constraint.
func (s *PostgresStoreSuite) TestConcurrentUpsertSameIdentity() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var created atomic.Int32
	var failures atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := s.store.Upsert(ctx, store.Upsert{
				EntityID:      "2026/9999",
				Name:          "RACE",
				Nationalities: []string{"TR", "FR"},
			})
			if err != nil {
				failures.Add(1)
				return
			}
			if outcome == store.OutcomeCreated {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load(), "no upsert may fail on the identity race")
	s.Equal(int32(1), created.Load(), "exactly one upsert creates the row")

	records, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *PostgresStoreSuite) TestPhotoDedupAndCascade() {
	ctx := context.Background()
	s.upsert("2026/1111", "DOE", "TR")

	added, err := s.store.AddPhoto(ctx, models.Photo{EntityID: "2026/1111", PictureID: "63213", BlobPath: "2026_1111/others/2026_1111_63213.jpg"})
	s.Require().NoError(err)
	s.True(added)

	added, err = s.store.AddPhoto(ctx, models.Photo{EntityID: "2026/1111", PictureID: "63213", BlobPath: "2026_1111/others/2026_1111_63213.jpg"})
	s.Require().NoError(err)
	s.False(added)

	s.Require().NoError(s.store.Delete(ctx, "2026/1111"))

	photos, err := s.store.ListPhotos(ctx, "2026/1111")
	s.Require().NoError(err)
	s.Empty(photos, "photos must cascade with the record")
}

func (s *PostgresStoreSuite) TestDetailRoundTrip() {
	ctx := context.Background()
	s.upsert("2026/1111", "DOE", "TR")

	height := 1.85
	detail := &models.Detail{
		EntityID:   "2026/1111",
		Sex:        models.SexMale,
		Height:     &height,
		EyeColors:  []string{"BLU"},
		HairColors: []string{"BLA"},
		Languages:  []string{"TUR", "ENG"},
		Warrants:   []models.Warrant{{IssuingCountry: "TR", Charge: "fraud"}},
		RawPayload: []byte(`{"sex_id":"M"}`),
		FetchedAt:  time.Now(),
	}
	s.Require().NoError(s.store.SaveDetail(ctx, detail))

	rec, err := s.store.Get(ctx, "2026/1111")
	s.Require().NoError(err)
	s.Require().NotNil(rec.Detail)
	s.Equal(models.SexMale, rec.Detail.Sex)
	s.Require().NotNil(rec.Detail.Height)
	s.InDelta(1.85, *rec.Detail.Height, 0.001)
	s.Equal([]string{"TUR", "ENG"}, rec.Detail.Languages)
	s.Require().Len(rec.Detail.Warrants, 1)
	s.Equal("TR", rec.Detail.Warrants[0].IssuingCountry)
	s.JSONEq(`{"sex_id":"M"}`, string(rec.Detail.RawPayload))
}

func (s *PostgresStoreSuite) TestUpdateEditableFields() {
	ctx := context.Background()
	s.upsert("2026/1111", "DOE", "TR")

	name := "EDITED"
	status := models.StatusUpdated
	sex := models.SexFemale
	marks := "scar on left cheek"
	err := s.store.Update(ctx, "2026/1111", store.EditableFields{
		Name:   &name,
		Status: &status,
		Sex:    &sex,
		Marks:  &marks,
	})
	s.Require().NoError(err)

	rec, err := s.store.Get(ctx, "2026/1111")
	s.Require().NoError(err)
	s.Equal("EDITED", rec.Name)
	s.Equal(models.StatusUpdated, rec.Status)
	s.Require().NotNil(rec.Detail, "editing detail fields creates the detail row")
	s.Equal(models.SexFemale, rec.Detail.Sex)
	s.Equal("scar on left cheek", rec.Detail.Marks)
}

func (s *PostgresStoreSuite) TestUnknownEntity() {
	ctx := context.Background()

	_, err := s.store.Get(ctx, "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().ErrorIs(s.store.Delete(ctx, "missing"), sentinel.ErrNotFound)
}

// Upstream notices routinely omit the nationalities key entirely; the decoded
// nil slice must land as an empty array, not NULL.
func (s *PostgresStoreSuite) TestUpsertWithoutNationalities() {
	ctx := context.Background()

	outcome, err := s.store.Upsert(ctx, store.Upsert{EntityID: "2026/1111", Name: "DOE"})
	s.Require().NoError(err)
	s.Equal(store.OutcomeCreated, outcome)

	rec, err := s.store.Get(ctx, "2026/1111")
	s.Require().NoError(err)
	s.Empty(rec.Nationalities)

	// Gaining a nationality later is a change like any other.
	s.Equal(store.OutcomeUpdated, s.upsert("2026/1111", "DOE", "TR"))
}

func (s *PostgresStoreSuite) TestSaveDetailWithAbsentArrays() {
	ctx := context.Background()
	s.upsert("2026/1111", "DOE", "TR")

	s.Require().NoError(s.store.SaveDetail(ctx, &models.Detail{
		EntityID:  "2026/1111",
		Sex:       models.SexUnknown,
		FetchedAt: time.Now(),
	}))

	rec, err := s.store.Get(ctx, "2026/1111")
	s.Require().NoError(err)
	s.Require().NotNil(rec.Detail)
	s.Empty(rec.Detail.EyeColors)
	s.Empty(rec.Detail.HairColors)
	s.Empty(rec.Detail.Languages)
}

// TestPageBatchSurvivesFailedNotice drives the page-transaction contract: a
// statement that errors inside the batch rolls back to its savepoint, and the
// rest of the page's mutations still commit.
func (s *PostgresStoreSuite) TestPageBatchSurvivesFailedNotice() {
	ctx := context.Background()

	err := store.PageTx(s.postgres.DB)(ctx, func(ctx context.Context) error {
		_, err := s.store.Upsert(ctx, store.Upsert{EntityID: "2026/1111", Name: "DOE"})
		s.Require().NoError(err)

		// Detail for a record that does not exist trips the foreign key.
		spErr := store.WithSavepoint(ctx, func(ctx context.Context) error {
			return s.store.SaveDetail(ctx, &models.Detail{
				EntityID:  "2026/0000",
				Sex:       models.SexUnknown,
				FetchedAt: time.Now(),
			})
		})
		s.Require().Error(spErr)

		// The transaction is still usable after the rollback.
		_, err = s.store.Upsert(ctx, store.Upsert{EntityID: "2026/2222", Name: "SMITH"})
		return err
	})
	s.Require().NoError(err)

	records, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(records, 2, "both healthy notices must survive the failed one")
}
