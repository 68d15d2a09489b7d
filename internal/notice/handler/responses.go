package handler

import (
	"time"

	"redwatch/internal/notice/models"
	"redwatch/internal/notice/service"
)

// NoticeSummary is one row of the list endpoint.
type NoticeSummary struct {
	EntityID      string    `json:"entity_id"`
	Name          string    `json:"name"`
	Forename      string    `json:"forename,omitempty"`
	DisplayName   string    `json:"display_name"`
	DateOfBirth   string    `json:"date_of_birth,omitempty"`
	Nationalities []string  `json:"nationalities"`
	Status        string    `json:"status"`
	Alarm         bool      `json:"alarm"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NoticeResponse is the full single-record payload.
type NoticeResponse struct {
	NoticeSummary
	CreatedAt time.Time      `json:"created_at"`
	Detail    *models.Detail `json:"detail,omitempty"`
	PhotoURLs []string       `json:"photo_urls,omitempty"`
}

// NoticeListResponse wraps the list with its size.
type NoticeListResponse struct {
	Total   int             `json:"total"`
	Notices []NoticeSummary `json:"notices"`
}

func toSummary(v service.View) NoticeSummary {
	rec := v.Record
	return NoticeSummary{
		EntityID:      rec.EntityID,
		Name:          rec.Name,
		Forename:      rec.Forename,
		DisplayName:   rec.DisplayName(),
		DateOfBirth:   rec.DateOfBirth,
		Nationalities: rec.Nationalities,
		Status:        string(rec.Status),
		Alarm:         v.Alarm,
		ThumbnailURL:  v.ThumbnailURL,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func toResponse(v service.View) NoticeResponse {
	return NoticeResponse{
		NoticeSummary: toSummary(v),
		CreatedAt:     v.Record.CreatedAt,
		Detail:        v.Record.Detail,
		PhotoURLs:     v.PhotoURLs,
	}
}
