package handler

import (
	"errors"

	"redwatch/internal/notice/models"
	"redwatch/internal/notice/store"
)

// UpdateNoticeRequest is the admin edit payload. Every field is optional;
// absent fields are left untouched.
type UpdateNoticeRequest struct {
	Name     *string  `json:"name"`
	Forename *string  `json:"forename"`
	Status   *string  `json:"status"`
	Sex      *string  `json:"sex"`
	Height   *float64 `json:"height"`
	Weight   *float64 `json:"weight"`
	Marks    *string  `json:"distinguishing_marks"`
}

func (r *UpdateNoticeRequest) Validate() error {
	if r.Name == nil && r.Forename == nil && r.Status == nil && r.Sex == nil &&
		r.Height == nil && r.Weight == nil && r.Marks == nil {
		return errors.New("no editable fields in request")
	}
	if r.Name != nil && *r.Name == "" {
		return errors.New("name cannot be empty")
	}
	if r.Status != nil {
		switch models.Status(*r.Status) {
		case models.StatusNew, models.StatusUpdated:
		default:
			return errors.New("status must be NEW or UPDATED")
		}
	}
	if r.Sex != nil {
		switch models.Sex(*r.Sex) {
		case models.SexMale, models.SexFemale, models.SexUnknown:
		default:
			return errors.New("sex must be M, F or U")
		}
	}
	if r.Height != nil && *r.Height <= 0 {
		return errors.New("height must be positive")
	}
	if r.Weight != nil && *r.Weight <= 0 {
		return errors.New("weight must be positive")
	}
	return nil
}

// Fields converts the validated request into the store's edit set.
func (r *UpdateNoticeRequest) Fields() store.EditableFields {
	fields := store.EditableFields{
		Name:     r.Name,
		Forename: r.Forename,
		Height:   r.Height,
		Weight:   r.Weight,
		Marks:    r.Marks,
	}
	if r.Status != nil {
		status := models.Status(*r.Status)
		fields.Status = &status
	}
	if r.Sex != nil {
		sex := models.Sex(*r.Sex)
		fields.Sex = &sex
	}
	return fields
}
