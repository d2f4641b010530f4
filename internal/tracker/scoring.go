package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/campday/cornerquest/internal/corners"
	"github.com/campday/cornerquest/internal/store"
)

// Transition is the result of a forward step.
type Transition struct {
	Entry    corners.ScoreEntry `json:"entry"`
	Progress corners.Progress   `json:"progress"`
	State    corners.State      `json:"state"`
	Next     *corners.Station   `json:"nextStation"`
}

// Correction is the result of rescoring a completed station.
type Correction struct {
	Entry         corners.ScoreEntry `json:"entry"`
	Progress      corners.Progress   `json:"progress"`
	PriorScore    int                `json:"priorScore"`
	NewScore      int                `json:"newScore"`
	Delta         int                `json:"delta"`
	NewGroupTotal int                `json:"newGroupTotal"`
}

// RecordOutcome scores the group's current station from a game outcome and
// advances it by one. A group past the end of its rotation is rejected
// with ErrAlreadyComplete and nothing is written.
func (c *Controller) RecordOutcome(ctx context.Context, groupID int, a corners.Award) (Transition, error) {
	return c.forward(ctx, "record_outcome", groupID, 0, a)
}

// CompleteStation is the raw-score form of a forward step. stationID must
// be the group's current station.
func (c *Controller) CompleteStation(ctx context.Context, groupID, stationID, score int) (Transition, error) {
	if score < 0 {
		return Transition{}, fmt.Errorf("%w: score %d is negative", corners.ErrInvalidScore, score)
	}
	a := corners.Award{Outcome: c.policy.OutcomeFor(score), Base: score}
	return c.forward(ctx, "complete_station", groupID, stationID, a)
}

// forward runs one forward step. A non-zero expect pins the station that
// must be current.
func (c *Controller) forward(ctx context.Context, op string, groupID, expect int, a corners.Award) (Transition, error) {
	rot, err := c.rotation(groupID)
	if err != nil {
		return Transition{}, err
	}
	scored, err := c.policy.Resolve(a)
	if err != nil {
		return Transition{}, c.rejected(op, groupID, err)
	}

	unlock := c.lock(groupID)
	defer unlock()

	var t Transition
	var delta int
	err = c.inTx(ctx, func(tx *store.Tx) error {
		p, err := tx.LoadProgress(ctx, groupID)
		if err != nil {
			return err
		}
		if p.CurrentStationIndex >= len(rot) {
			return fmt.Errorf("group %d: %w", groupID, corners.ErrAlreadyComplete)
		}
		stationID := rot[p.CurrentStationIndex]
		if expect != 0 && expect != stationID {
			return fmt.Errorf("%w: station %d is not the current station of group %d", corners.ErrInvalidState, expect, groupID)
		}

		entry, prior, err := tx.UpsertEntry(ctx, groupID, stationID, scored.Base, scored.Bonus, scored.Outcome)
		if err != nil {
			return err
		}
		delta = entry.Score
		if prior != nil {
			delta -= *prior
		}

		p, err = tx.Advance(ctx, groupID, stationID, delta, len(rot))
		if err != nil {
			return err
		}
		if err := addGroupScore(ctx, tx, groupID, delta); err != nil {
			return err
		}
		t = Transition{Entry: entry, Progress: p, State: corners.StateOf(&p, len(rot))}
		return nil
	})
	if err != nil {
		return Transition{}, c.rejected(op, groupID, err)
	}
	if s, ok := c.catalog.StationAt(groupID, t.Progress.CurrentStationIndex); ok {
		t.Next = &s
	}

	c.logger.Info("station completed",
		"group_id", groupID,
		"station_id", t.Entry.StationID,
		"outcome", t.Entry.OutcomeType.String(),
		"score", t.Entry.Score,
		"total", t.Progress.TotalScore,
	)
	c.committed(ctx, Event{
		Type:      EventStationCompleted,
		GroupID:   groupID,
		StationID: t.Entry.StationID,
		Score:     t.Entry.Score,
		Progress:  t.Progress,
	})
	return t, nil
}

// CorrectOutcome rescores a station the group has already completed. The
// progress index and completed set are untouched; totals move by the
// difference between the new and the prior score.
func (c *Controller) CorrectOutcome(ctx context.Context, groupID, stationID int, a corners.Award) (Correction, error) {
	rot, err := c.rotation(groupID)
	if err != nil {
		return Correction{}, err
	}
	if !slices.Contains(rot, stationID) {
		return Correction{}, fmt.Errorf("station %d in rotation of group %d: %w", stationID, groupID, corners.ErrNotFound)
	}
	scored, err := c.policy.Resolve(a)
	if err != nil {
		return Correction{}, c.rejected("correct_outcome", groupID, err)
	}

	unlock := c.lock(groupID)
	defer unlock()

	var res Correction
	err = c.inTx(ctx, func(tx *store.Tx) error {
		p, err := tx.GetProgress(ctx, groupID)
		if errors.Is(err, corners.ErrNotFound) || (err == nil && !p.HasCompleted(stationID)) {
			return fmt.Errorf("station %d of group %d: %w", stationID, groupID, corners.ErrNotCompleted)
		}
		if err != nil {
			return err
		}

		entry, prior, err := tx.UpsertEntry(ctx, groupID, stationID, scored.Base, scored.Bonus, scored.Outcome)
		if err != nil {
			return err
		}
		if prior != nil {
			res.PriorScore = *prior
		}
		res.NewScore = entry.Score
		res.Delta = res.NewScore - res.PriorScore

		p, err = tx.ResyncTotal(ctx, groupID, p.TotalScore+res.Delta)
		if err != nil {
			return err
		}
		if err := addGroupScore(ctx, tx, groupID, res.Delta); err != nil {
			return err
		}
		res.Entry = entry
		res.Progress = p
		res.NewGroupTotal = p.TotalScore
		return nil
	})
	if err != nil {
		return Correction{}, c.rejected("correct_outcome", groupID, err)
	}

	c.logger.Info("score corrected",
		"group_id", groupID,
		"station_id", stationID,
		"prior", res.PriorScore,
		"score", res.NewScore,
		"delta", res.Delta,
	)
	c.committed(ctx, Event{
		Type:      EventScoreCorrected,
		GroupID:   groupID,
		StationID: stationID,
		Score:     res.NewScore,
		Progress:  res.Progress,
	})
	return res, nil
}

// SubmitResult carries whichever kind of write SubmitScore performed.
type SubmitResult struct {
	Forward    *Transition `json:"forward,omitempty"`
	Correction *Correction `json:"correction,omitempty"`
}

// SubmitScore writes a score for stationID without the caller choosing the
// operation: a completed station is corrected, the current station is
// completed, a station outside the rotation is ErrNotFound and any other
// station is rejected with ErrInvalidState.
func (c *Controller) SubmitScore(ctx context.Context, groupID, stationID int, a corners.Award) (SubmitResult, error) {
	p, err := c.Load(ctx, groupID)
	if err != nil {
		return SubmitResult{}, err
	}
	if p.HasCompleted(stationID) {
		res, err := c.CorrectOutcome(ctx, groupID, stationID, a)
		if err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Correction: &res}, nil
	}
	rot, err := c.rotation(groupID)
	if err != nil {
		return SubmitResult{}, err
	}
	if !slices.Contains(rot, stationID) {
		return SubmitResult{}, fmt.Errorf("station %d not in rotation of group %d: %w", stationID, groupID, corners.ErrNotFound)
	}
	t, err := c.forward(ctx, "submit_score", groupID, stationID, a)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Forward: &t}, nil
}

func addGroupScore(ctx context.Context, tx *store.Tx, groupID, delta int) error {
	score, err := tx.GroupScore(ctx, groupID)
	if err != nil {
		return err
	}
	return tx.SetGroupScore(ctx, groupID, score+delta)
}
