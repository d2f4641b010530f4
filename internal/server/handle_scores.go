package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/campday/cornerquest/internal/corners"
	"github.com/campday/cornerquest/internal/tracker"
)

// ScoreRequest is the request body for POST /api/groups/{groupID}/scores.
// A bare score without an outcome type is classified against the policy.
// With an outcome type, score is the final amount: a manual outcome without
// baseScore takes its base from it, any other outcome must agree with it.
type ScoreRequest struct {
	StationID   int             `json:"stationId"`
	OutcomeType corners.Outcome `json:"outcomeType,omitempty"`
	BaseScore   *int            `json:"baseScore,omitempty"`
	BonusScore  int             `json:"bonusScore,omitempty"`
	Score       *int            `json:"score,omitempty"`
}

func (req ScoreRequest) award(p corners.ScorePolicy) (corners.Award, error) {
	if req.Score != nil && req.OutcomeType == 0 {
		return corners.Award{Outcome: p.OutcomeFor(*req.Score), Base: *req.Score}, nil
	}
	a := corners.Award{Outcome: req.OutcomeType, Bonus: req.BonusScore}
	if req.BaseScore != nil {
		a.Base = *req.BaseScore
	}
	if req.Score == nil {
		return a, nil
	}
	if a.Outcome == corners.OutcomeManual && req.BaseScore == nil {
		a.Base = *req.Score - p.ClampBonus(a.Bonus)
	}
	s, err := p.Resolve(a)
	if err != nil {
		return corners.Award{}, err
	}
	if s.Score != *req.Score {
		return corners.Award{}, fmt.Errorf("%w: score %d does not match %s worth %d", corners.ErrInvalidScore, *req.Score, s.Outcome, s.Score)
	}
	return a, nil
}

// ResyncRequest is the optional body for POST /api/groups/{groupID}/resync.
// Without a total the group is reconciled with its ledger.
type ResyncRequest struct {
	Total *int `json:"total,omitempty"`
}

func handleListScores(t *tracker.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := t.Entries(r.Context(), groupFrom(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleGetScore(t *tracker.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stationID, ok := stationParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid station id")
			return
		}
		e, err := t.Entry(r.Context(), groupFrom(r), stationID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func handleSubmitScore(t *tracker.Controller, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScoreRequest
		if err := readJSON(r, &req); err != nil {
			bodyError(w, err)
			return
		}
		if req.StationID <= 0 {
			writeError(w, http.StatusBadRequest, "stationId is required")
			return
		}
		if req.Score != nil && *req.Score < 0 {
			writeError(w, http.StatusBadRequest, "score must not be negative")
			return
		}

		a, err := req.award(t.Policy())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		res, err := t.SubmitScore(r.Context(), groupFrom(r), req.StationID, a)
		m.action("submit_score", err)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if res.Forward != nil {
			m.score(res.Forward.Entry.Score)
		} else {
			m.score(res.Correction.NewScore)
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleCorrectScore(t *tracker.Controller, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stationID, ok := stationParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid station id")
			return
		}
		var req OutcomeRequest
		if err := readJSON(r, &req); err != nil {
			bodyError(w, err)
			return
		}

		c, err := t.CorrectOutcome(r.Context(), groupFrom(r), stationID, req.award())
		m.action("correct_outcome", err)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		m.score(c.NewScore)
		writeJSON(w, http.StatusOK, c)
	}
}

func handleAudit(t *tracker.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := t.Audit(r.Context(), groupFrom(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func handleResync(t *tracker.Controller, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResyncRequest
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			bodyError(w, err)
			return
		}

		groupID := groupFrom(r)
		var (
			p   corners.Progress
			err error
		)
		if req.Total != nil {
			p, err = t.ResyncTotal(r.Context(), groupID, *req.Total)
			m.action("resync_total", err)
		} else {
			p, err = t.Reconcile(r.Context(), groupID)
			m.action("reconcile", err)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
