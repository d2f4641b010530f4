package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/campday/cornerquest/internal/corners"
)

type ctxKey int

const ctxKeyGroup ctxKey = iota

const scorerCodeHeader = "X-Scorer-Code"

// groupMiddleware resolves {groupID} against the catalog.
func groupMiddleware(catalog *corners.Catalog) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := strconv.Atoi(chi.URLParam(r, "groupID"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid group id")
				return
			}
			if !catalog.HasGroup(id) {
				writeError(w, http.StatusNotFound, "group not found")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyGroup, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func groupFrom(r *http.Request) int {
	return r.Context().Value(ctxKeyGroup).(int)
}

// scorerMiddleware checks the shared scorer code against a bcrypt hash.
func scorerMiddleware(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.Header.Get(scorerCodeHeader)
			if code == "" {
				writeError(w, http.StatusUnauthorized, "scorer code required")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
				writeError(w, http.StatusUnauthorized, "invalid scorer code")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func stationParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "stationID"))
	return id, err == nil
}
