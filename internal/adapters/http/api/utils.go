package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and a stable error body. Known kinds
// expose their own message; anything else is reported as an internal error.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoSample):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Code: "no_sample", Message: ErrNoSample.Error()})
	case errors.Is(err, ErrMethodNotAllowed):
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Code: "method_not_allowed", Message: ErrMethodNotAllowed.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal_error", Message: err.Error()})
	}
}
