package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"redwatch/internal/notice/models"
	"redwatch/pkg/platform/sentinel"
	txcontext "redwatch/pkg/platform/tx"
)

// PostgresStore persists notice records in PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// textArray serializes a string slice for a NOT NULL text[] column. Upstream
// payloads routinely omit array fields entirely, which decodes to a nil slice;
// a nil pq.StringArray would serialize as SQL NULL, so absent means empty.
func textArray(v []string) pq.StringArray {
	if v == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(v)
}

// Upsert inserts the notice or, when the identity already exists and name or
// nationalities diverge, flips it to UPDATED and advances updated_at. An
// unchanged notice touches nothing. The whole decision happens in one
// statement so racing duplicate ingestion of the same entity_id converges on
// a single row instead of tripping the unique constraint.
func (s *PostgresStore) Upsert(ctx context.Context, u Upsert) (UpsertOutcome, error) {
	now := s.now()
	const query = `
		INSERT INTO notices (entity_id, name, forename, date_of_birth, nationalities, thumbnail_path, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'NEW', $7, $7)
		ON CONFLICT (entity_id) DO UPDATE SET
			name          = EXCLUDED.name,
			forename      = EXCLUDED.forename,
			date_of_birth = EXCLUDED.date_of_birth,
			nationalities = EXCLUDED.nationalities,
			status        = 'UPDATED',
			updated_at    = EXCLUDED.updated_at
		WHERE notices.name IS DISTINCT FROM EXCLUDED.name
		   OR notices.nationalities IS DISTINCT FROM EXCLUDED.nationalities
		RETURNING (xmax = 0) AS inserted
	`
	// xmax = 0 distinguishes a fresh insert from a conflict-update; no row at
	// all means the guard WHERE rejected the update (nothing changed).
	var inserted bool
	err := s.execer(ctx).QueryRowContext(ctx, query,
		u.EntityID,
		u.Name,
		u.Forename,
		u.DateOfBirth,
		textArray(u.Nationalities),
		u.ThumbnailPath,
		now,
	).Scan(&inserted)
	if err == sql.ErrNoRows {
		return OutcomeUnchanged, nil
	}
	if err != nil {
		return OutcomeUnchanged, fmt.Errorf("upsert notice %s: %w", u.EntityID, err)
	}
	if inserted {
		return OutcomeCreated, nil
	}
	return OutcomeUpdated, nil
}

// SetThumbnail records the blob key of a freshly uploaded thumbnail. It is
// not a change in the change-detection sense, so updated_at stays put.
func (s *PostgresStore) SetThumbnail(ctx context.Context, entityID, path string) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE notices SET thumbnail_path = $1 WHERE entity_id = $2`, path, entityID)
	if err != nil {
		return fmt.Errorf("set thumbnail %s: %w", entityID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set thumbnail %s: %w", entityID, err)
	}
	if affected == 0 {
		return fmt.Errorf("notice %s: %w", entityID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, entityID string) (*models.Record, error) {
	const query = `
		SELECT entity_id, name, forename, date_of_birth, nationalities, thumbnail_path, status, created_at, updated_at
		FROM notices WHERE entity_id = $1
	`
	rec, err := scanRecord(s.execer(ctx).QueryRowContext(ctx, query, entityID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("notice %s: %w", entityID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get notice %s: %w", entityID, err)
	}

	detail, err := s.getDetail(ctx, entityID)
	if err != nil {
		return nil, err
	}
	rec.Detail = detail

	photos, err := s.ListPhotos(ctx, entityID)
	if err != nil {
		return nil, err
	}
	rec.Photos = photos
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Record, error) {
	const query = `
		SELECT entity_id, name, forename, date_of_birth, nationalities, thumbnail_path, status, created_at, updated_at
		FROM notices ORDER BY updated_at DESC, entity_id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Update applies the editable subset. Detail sub-fields are upserted so a
// record that never enriched can still be annotated by hand.
func (s *PostgresStore) Update(ctx context.Context, entityID string, fields EditableFields) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM notices WHERE entity_id = $1)`, entityID).Scan(&exists); err != nil {
		return fmt.Errorf("check notice %s: %w", entityID, err)
	}
	if !exists {
		return fmt.Errorf("notice %s: %w", entityID, sentinel.ErrNotFound)
	}

	set := []string{"updated_at = $1"}
	args := []any{s.now()}
	appendSet := func(column string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if fields.Name != nil {
		appendSet("name", *fields.Name)
	}
	if fields.Forename != nil {
		appendSet("forename", *fields.Forename)
	}
	if fields.Status != nil {
		appendSet("status", string(*fields.Status))
	}
	args = append(args, entityID)
	query := fmt.Sprintf("UPDATE notices SET %s WHERE entity_id = $%d", strings.Join(set, ", "), len(args))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update notice %s: %w", entityID, err)
	}

	if fields.Sex != nil || fields.Height != nil || fields.Weight != nil || fields.Marks != nil {
		if err := updateDetailFields(ctx, tx, entityID, fields, s.now()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func updateDetailFields(ctx context.Context, tx *sql.Tx, entityID string, fields EditableFields, now time.Time) error {
	const ensure = `
		INSERT INTO notice_details (entity_id, fetched_at) VALUES ($1, $2)
		ON CONFLICT (entity_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, ensure, entityID, now); err != nil {
		return fmt.Errorf("ensure detail %s: %w", entityID, err)
	}

	var set []string
	var args []any
	appendSet := func(column string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if fields.Sex != nil {
		appendSet("sex", string(*fields.Sex))
	}
	if fields.Height != nil {
		appendSet("height", *fields.Height)
	}
	if fields.Weight != nil {
		appendSet("weight", *fields.Weight)
	}
	if fields.Marks != nil {
		appendSet("distinguishing_marks", *fields.Marks)
	}
	args = append(args, entityID)
	query := fmt.Sprintf("UPDATE notice_details SET %s WHERE entity_id = $%d", strings.Join(set, ", "), len(args))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update detail %s: %w", entityID, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, entityID string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM notices WHERE entity_id = $1`, entityID)
	if err != nil {
		return fmt.Errorf("delete notice %s: %w", entityID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete notice %s: %w", entityID, err)
	}
	if affected == 0 {
		return fmt.Errorf("notice %s: %w", entityID, sentinel.ErrNotFound)
	}
	// Detail and photos go with the record via ON DELETE CASCADE.
	return nil
}

func (s *PostgresStore) SaveDetail(ctx context.Context, d *models.Detail) error {
	warrants, err := json.Marshal(d.Warrants)
	if err != nil {
		return fmt.Errorf("marshal warrants: %w", err)
	}
	raw := d.RawPayload
	if raw == nil {
		raw = json.RawMessage("null")
	}
	const query = `
		INSERT INTO notice_details (entity_id, sex, height, weight, eyes_colors, hairs, place_of_birth,
			country_of_birth, languages_spoken, distinguishing_marks, arrest_warrants, raw_payload, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (entity_id) DO UPDATE SET
			sex                  = EXCLUDED.sex,
			height               = EXCLUDED.height,
			weight               = EXCLUDED.weight,
			eyes_colors          = EXCLUDED.eyes_colors,
			hairs                = EXCLUDED.hairs,
			place_of_birth       = EXCLUDED.place_of_birth,
			country_of_birth     = EXCLUDED.country_of_birth,
			languages_spoken     = EXCLUDED.languages_spoken,
			distinguishing_marks = EXCLUDED.distinguishing_marks,
			arrest_warrants      = EXCLUDED.arrest_warrants,
			raw_payload          = EXCLUDED.raw_payload,
			fetched_at           = EXCLUDED.fetched_at
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		d.EntityID,
		string(d.Sex),
		d.Height,
		d.Weight,
		textArray(d.EyeColors),
		textArray(d.HairColors),
		d.PlaceOfBirth,
		d.BirthCountry,
		textArray(d.Languages),
		d.Marks,
		warrants,
		[]byte(raw),
		d.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("save detail %s: %w", d.EntityID, err)
	}
	return nil
}

// AddPhoto records a blob reference unless the record already references the
// picture. Returns whether a new row was written.
func (s *PostgresStore) AddPhoto(ctx context.Context, p models.Photo) (bool, error) {
	const query = `
		INSERT INTO notice_photos (entity_id, picture_id, blob_path)
		VALUES ($1, $2, $3)
		ON CONFLICT (entity_id, picture_id) DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, p.EntityID, p.PictureID, p.BlobPath)
	if err != nil {
		return false, fmt.Errorf("add photo %s/%s: %w", p.EntityID, p.PictureID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add photo %s/%s: %w", p.EntityID, p.PictureID, err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListPhotos(ctx context.Context, entityID string) ([]models.Photo, error) {
	const query = `
		SELECT entity_id, picture_id, blob_path FROM notice_photos
		WHERE entity_id = $1 ORDER BY picture_id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("list photos %s: %w", entityID, err)
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.EntityID, &p.PictureID, &p.BlobPath); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (s *PostgresStore) getDetail(ctx context.Context, entityID string) (*models.Detail, error) {
	const query = `
		SELECT entity_id, sex, height, weight, eyes_colors, hairs, place_of_birth,
			country_of_birth, languages_spoken, distinguishing_marks, arrest_warrants, raw_payload, fetched_at
		FROM notice_details WHERE entity_id = $1
	`
	var (
		d        models.Detail
		sex      string
		eyes     pq.StringArray
		hairs    pq.StringArray
		langs    pq.StringArray
		warrants []byte
		raw      []byte
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, entityID).Scan(
		&d.EntityID, &sex, &d.Height, &d.Weight, &eyes, &hairs, &d.PlaceOfBirth,
		&d.BirthCountry, &langs, &d.Marks, &warrants, &raw, &d.FetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // no detail yet is a valid state
	}
	if err != nil {
		return nil, fmt.Errorf("get detail %s: %w", entityID, err)
	}
	d.Sex = models.Sex(sex)
	d.EyeColors = eyes
	d.HairColors = hairs
	d.Languages = langs
	if len(warrants) > 0 {
		if err := json.Unmarshal(warrants, &d.Warrants); err != nil {
			return nil, fmt.Errorf("unmarshal warrants %s: %w", entityID, err)
		}
	}
	d.RawPayload = raw
	return &d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		rec           models.Record
		nationalities pq.StringArray
		status        string
	)
	err := row.Scan(
		&rec.EntityID, &rec.Name, &rec.Forename, &rec.DateOfBirth,
		&nationalities, &rec.ThumbnailPath, &status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Nationalities = nationalities
	rec.Status = models.Status(status)
	return &rec, nil
}
