package store

import (
	"context"

	"redwatch/internal/notice/models"
)

// UpsertOutcome reports what an Upsert did so the consumer can decide whether
// to enrich and what to count.
type UpsertOutcome int

const (
	OutcomeUnchanged UpsertOutcome = iota
	OutcomeCreated
	OutcomeUpdated
)

func (o UpsertOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Upsert is the identity-keyed write the consumer performs per notice.
// ThumbnailPath is only applied on create; updates never clobber an existing
// thumbnail reference.
type Upsert struct {
	EntityID      string
	Name          string
	Forename      string
	DateOfBirth   string
	Nationalities []string
	ThumbnailPath string
}

// EditableFields is the subset of record fields the read-side collaborator may
// change. Nil pointers mean "leave untouched".
type EditableFields struct {
	Name     *string
	Forename *string
	Status   *models.Status
	Sex      *models.Sex
	Height   *float64
	Weight   *float64
	Marks    *string
}

// Store is the durable record of current state. The ingestion consumer is the
// only writer of upserts; the read API writes only through Update/Delete.
//
// Implementations return sentinel.ErrNotFound for unknown entity IDs. Upsert
// must be atomic on EntityID: racing duplicate ingestion of the same identity
// (overlapping partitions in one cycle) must converge on one row.
type Store interface {
	Upsert(ctx context.Context, u Upsert) (UpsertOutcome, error)
	SetThumbnail(ctx context.Context, entityID, path string) error
	Get(ctx context.Context, entityID string) (*models.Record, error)
	List(ctx context.Context) ([]*models.Record, error)
	Update(ctx context.Context, entityID string, fields EditableFields) error
	Delete(ctx context.Context, entityID string) error

	SaveDetail(ctx context.Context, d *models.Detail) error
	AddPhoto(ctx context.Context, p models.Photo) (added bool, err error)
	ListPhotos(ctx context.Context, entityID string) ([]models.Photo, error)
}
