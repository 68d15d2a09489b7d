package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema bootstrap. Executed at consumer/server start so a fresh database is
// usable without an external migration step.
const schema = `
CREATE TABLE IF NOT EXISTS notices (
	entity_id       TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	forename        TEXT NOT NULL DEFAULT '',
	date_of_birth   TEXT NOT NULL DEFAULT '',
	nationalities   TEXT[] NOT NULL DEFAULT '{}',
	thumbnail_path  TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'NEW',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS notice_details (
	entity_id            TEXT PRIMARY KEY REFERENCES notices(entity_id) ON DELETE CASCADE,
	sex                  TEXT NOT NULL DEFAULT 'U',
	height               DOUBLE PRECISION,
	weight               DOUBLE PRECISION,
	eyes_colors          TEXT[] NOT NULL DEFAULT '{}',
	hairs                TEXT[] NOT NULL DEFAULT '{}',
	place_of_birth       TEXT NOT NULL DEFAULT '',
	country_of_birth     TEXT NOT NULL DEFAULT '',
	languages_spoken     TEXT[] NOT NULL DEFAULT '{}',
	distinguishing_marks TEXT NOT NULL DEFAULT '',
	arrest_warrants      JSONB NOT NULL DEFAULT '[]',
	raw_payload          JSONB,
	fetched_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS notice_photos (
	entity_id   TEXT NOT NULL REFERENCES notices(entity_id) ON DELETE CASCADE,
	picture_id  TEXT NOT NULL,
	blob_path   TEXT NOT NULL,
	PRIMARY KEY (entity_id, picture_id)
);

CREATE INDEX IF NOT EXISTS notices_updated_at_idx ON notices (updated_at DESC);
`

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
