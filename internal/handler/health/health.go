// Package health reports whether the tracker's dependencies are reachable.
// A failing required check makes the service unavailable; a failing
// optional check only marks it degraded.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a ping function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

// Check is one named dependency.
type Check struct {
	Name     string
	Checker  Checker
	Optional bool
}

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

type Handler struct {
	checks []Check
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, checks ...Check) *Handler {
	return &Handler{checks: checks, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

type Result struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
}

type Response struct {
	Status string            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := Response{Status: StatusOK, Checks: make(map[string]Result, len(h.checks))}
	status := http.StatusOK

	for _, c := range h.checks {
		start := time.Now()
		err := c.Checker.Check(ctx)
		res := Result{Status: StatusOK, LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			h.logger.Error("health check failed", "name", c.Name, "optional", c.Optional, "error", err)
			res.Status = StatusError
			if c.Optional {
				if resp.Status == StatusOK {
					resp.Status = StatusDegraded
				}
			} else {
				resp.Status = StatusError
				status = http.StatusServiceUnavailable
			}
		}
		resp.Checks[c.Name] = res
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
