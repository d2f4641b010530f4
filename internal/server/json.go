package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campday/cornerquest/internal/corners"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps controller errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, corners.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, corners.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, corners.ErrInvalidOutcome), errors.Is(err, corners.ErrInvalidScore):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, corners.ErrRemote):
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// bodyError reports a malformed request body, keeping outcome parse errors visible.
func bodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, corners.ErrInvalidOutcome) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
}
