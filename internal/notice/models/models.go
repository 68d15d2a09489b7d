package models

import (
	"encoding/json"
	"time"
)

// Status tracks the lifecycle of a record relative to the upstream catalog.
type Status string

const (
	StatusNew     Status = "NEW"
	StatusUpdated Status = "UPDATED"
)

// Sex is the coded sex category from the detail resource. Codes outside the
// known set collapse to SexUnknown at the ingestion boundary rather than
// failing the record.
type Sex string

const (
	SexMale    Sex = "M"
	SexFemale  Sex = "F"
	SexUnknown Sex = "U"
)

// ParseSex maps a raw source code onto a Sex, defaulting to unknown.
func ParseSex(code string) Sex {
	switch code {
	case "M":
		return SexMale
	case "F":
		return SexFemale
	default:
		return SexUnknown
	}
}

// Record is the aggregate root for one wanted-person profile.
//
// Invariants:
//   - EntityID is the upstream identity; at most one Record exists per EntityID,
//     and re-ingestion of a known EntityID updates in place, never duplicates
//   - UpdatedAt is monotonically non-decreasing and only moves on mutating writes
//   - Status is NEW until the upstream copy diverges from ours (name or
//     nationalities), then UPDATED
//
// Record exclusively owns its Detail and Photos; deleting a Record cascades
// both. EntityID may contain path separators (upstream uses "year/number"),
// so blob keys and URL paths must escape it.
type Record struct {
	EntityID      string    `json:"entity_id"`
	Name          string    `json:"name"`
	Forename      string    `json:"forename,omitempty"`
	DateOfBirth   string    `json:"date_of_birth,omitempty"` // full date or year-only, as published
	Nationalities []string  `json:"nationalities"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Detail *Detail `json:"detail,omitempty"`
	Photos []Photo `json:"photos,omitempty"`
}

// DisplayName joins forename and name the way the upstream catalog lists people.
func (r *Record) DisplayName() string {
	if r.Forename == "" {
		return r.Name
	}
	return r.Forename + " " + r.Name
}

// Changed reports whether an incoming notice diverges from this record on the
// fields change detection covers: name and the ordered nationality list.
func (r *Record) Changed(name string, nationalities []string) bool {
	if r.Name != name {
		return true
	}
	if len(r.Nationalities) != len(nationalities) {
		return true
	}
	for i := range nationalities {
		if r.Nationalities[i] != nationalities[i] {
			return true
		}
	}
	return false
}

// Warrant is one legal-charge entry from the detail resource.
type Warrant struct {
	IssuingCountry string `json:"issuing_country_id,omitempty"`
	Charge         string `json:"charge,omitempty"`
}

// Detail extends a Record with physical and biographic attributes. It exists
// only after at least one successful detail fetch; absence is a valid state.
type Detail struct {
	EntityID       string          `json:"-"`
	Sex            Sex             `json:"sex"`
	Height         *float64        `json:"height,omitempty"`
	Weight         *float64        `json:"weight,omitempty"`
	EyeColors      []string        `json:"eyes_colors,omitempty"`
	HairColors     []string        `json:"hairs,omitempty"`
	PlaceOfBirth   string          `json:"place_of_birth,omitempty"`
	BirthCountry   string          `json:"country_of_birth,omitempty"`
	Languages      []string        `json:"languages_spoken,omitempty"`
	Marks          string          `json:"distinguishing_marks,omitempty"`
	Warrants       []Warrant       `json:"arrest_warrants,omitempty"`
	RawPayload     json.RawMessage `json:"-"` // last fetched detail document, kept for audit/diff
	FetchedAt      time.Time       `json:"fetched_at"`
}

// Photo is a blob-storage reference for one source image.
//
// PictureID is unique per record; re-enrichment never re-uploads a picture the
// record already references.
type Photo struct {
	EntityID  string `json:"-"`
	PictureID string `json:"picture_id"`
	BlobPath  string `json:"blob_path"`
}
