package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"redwatch/pkg/platform/sentinel"
)

// WriteJSON writes v as a JSON response body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError maps infrastructure sentinels and generic errors onto JSON error
// responses. Internal failures never leak their description to the client.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Description: "record does not exist"})
	case errors.Is(err, sentinel.ErrConflict):
		WriteJSON(w, http.StatusConflict, errorBody{Error: "conflict", Description: "record was modified concurrently"})
	case errors.Is(err, sentinel.ErrUnavailable):
		WriteJSON(w, http.StatusServiceUnavailable, errorBody{Error: "unavailable"})
	default:
		WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error"})
	}
}

// WriteBadRequest reports a client-side validation failure with its reason.
func WriteBadRequest(w http.ResponseWriter, description string) {
	WriteJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Description: description})
}
