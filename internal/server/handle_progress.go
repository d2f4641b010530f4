package server

import (
	"net/http"

	"github.com/campday/cornerquest/internal/corners"
	"github.com/campday/cornerquest/internal/tracker"
)

// OverwriteProgressRequest is the request body for POST /api/groups/{groupID}/progress.
type OverwriteProgressRequest struct {
	CurrentStationIndex int   `json:"currentStationIndex"`
	CompletedStationIDs []int `json:"completedStationIds"`
	TotalScore          int   `json:"totalScore"`
}

// CompleteStationRequest is the request body for PUT /api/groups/{groupID}/progress/complete.
type CompleteStationRequest struct {
	StationID int `json:"stationId"`
	Score     int `json:"score"`
}

// OutcomeRequest is the request body for POST /api/groups/{groupID}/outcome.
// Base is only read for manual outcomes.
type OutcomeRequest struct {
	Outcome corners.Outcome `json:"outcome"`
	Bonus   int             `json:"bonus"`
	Base    int             `json:"base,omitempty"`
}

func (req OutcomeRequest) award() corners.Award {
	return corners.Award{Outcome: req.Outcome, Bonus: req.Bonus, Base: req.Base}
}

func handleGetProgress(t *tracker.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := t.Snapshot(r.Context(), groupFrom(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleOverwriteProgress(t *tracker.Controller, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OverwriteProgressRequest
		if err := readJSON(r, &req); err != nil {
			bodyError(w, err)
			return
		}
		if req.CompletedStationIDs == nil {
			req.CompletedStationIDs = []int{}
		}

		p, err := t.OverwriteProgress(r.Context(), groupFrom(r), req.CurrentStationIndex, req.CompletedStationIDs, req.TotalScore)
		m.action("overwrite_progress", err)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleCompleteStation(t *tracker.Controller, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CompleteStationRequest
		if err := readJSON(r, &req); err != nil {
			bodyError(w, err)
			return
		}
		if req.StationID <= 0 {
			writeError(w, http.StatusBadRequest, "stationId is required")
			return
		}

		tr, err := t.CompleteStation(r.Context(), groupFrom(r), req.StationID, req.Score)
		m.action("complete_station", err)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		m.score(tr.Entry.Score)
		writeJSON(w, http.StatusOK, tr)
	}
}

func handleRecordOutcome(t *tracker.Controller, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OutcomeRequest
		if err := readJSON(r, &req); err != nil {
			bodyError(w, err)
			return
		}

		tr, err := t.RecordOutcome(r.Context(), groupFrom(r), req.award())
		m.action("record_outcome", err)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		m.score(tr.Entry.Score)
		writeJSON(w, http.StatusOK, tr)
	}
}

func handleRoute(t *tracker.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		route, err := t.Route(r.Context(), groupFrom(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, route)
	}
}
