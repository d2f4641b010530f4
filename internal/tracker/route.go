package tracker

import (
	"context"
	"errors"

	"github.com/campday/cornerquest/internal/corners"
	"github.com/campday/cornerquest/internal/store"
)

type StopStatus string

const (
	StopDone     StopStatus = "done"
	StopCurrent  StopStatus = "current"
	StopUpcoming StopStatus = "upcoming"
)

// Stop is one station of a group's rotation, with its score once done.
type Stop struct {
	Index   int                 `json:"index"`
	Station corners.Station     `json:"station"`
	Status  StopStatus          `json:"status"`
	Entry   *corners.ScoreEntry `json:"entry,omitempty"`
}

type Route struct {
	GroupID    int           `json:"groupId"`
	State      corners.State `json:"state"`
	TotalScore int           `json:"totalScore"`
	Stops      []Stop        `json:"stops"`
}

// Route lays out a group's rotation in visiting order. Reading the route
// does not create progress; a group without a row is reported as not started.
func (c *Controller) Route(ctx context.Context, groupID int) (Route, error) {
	rot, err := c.rotation(groupID)
	if err != nil {
		return Route{}, err
	}

	var p *corners.Progress
	var entries []corners.ScoreEntry
	err = c.inTx(ctx, func(tx *store.Tx) error {
		got, err := tx.GetProgress(ctx, groupID)
		switch {
		case err == nil:
			p = &got
		case !errors.Is(err, corners.ErrNotFound):
			return err
		}
		entries, err = tx.ListEntries(ctx, groupID)
		return err
	})
	if err != nil {
		return Route{}, err
	}

	byStation := make(map[int]corners.ScoreEntry, len(entries))
	for _, e := range entries {
		byStation[e.StationID] = e
	}

	r := Route{GroupID: groupID, State: corners.StateOf(p, len(rot)), Stops: make([]Stop, 0, len(rot))}
	current := 0
	if p != nil {
		current = p.CurrentStationIndex
		r.TotalScore = p.TotalScore
	}
	for i, id := range rot {
		st, err := c.catalog.StationByID(id)
		if err != nil {
			return Route{}, err
		}
		stop := Stop{Index: i, Station: st, Status: StopUpcoming}
		switch {
		case i < current:
			stop.Status = StopDone
		case i == current:
			stop.Status = StopCurrent
		}
		if e, ok := byStation[id]; ok && stop.Status == StopDone {
			stop.Entry = &e
		}
		r.Stops = append(r.Stops, stop)
	}
	return r, nil
}

// Standing is one leaderboard row.
type Standing struct {
	Rank                int           `json:"rank"`
	GroupID             int           `json:"groupId"`
	Name                string        `json:"name"`
	Score               int           `json:"score"`
	State               corners.State `json:"state"`
	CurrentStationIndex int           `json:"currentStationIndex"`
	RotationLength      int           `json:"rotationLength"`
}

// Leaderboard lists groups by aggregate score. Tied groups share a rank.
func (c *Controller) Leaderboard(ctx context.Context) ([]Standing, error) {
	var groups []store.GroupSummary
	err := c.inTx(ctx, func(tx *store.Tx) (err error) {
		groups, err = tx.ListGroups(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]Standing, 0, len(groups))
	for i, g := range groups {
		n := len(c.catalog.RotationForGroup(g.ID))
		s := Standing{
			Rank:                i + 1,
			GroupID:             g.ID,
			Name:                g.Name,
			Score:               g.Score,
			State:               corners.StateNotStarted,
			CurrentStationIndex: g.CurrentStationIndex,
			RotationLength:      n,
		}
		if g.Started {
			p := corners.Progress{CurrentStationIndex: g.CurrentStationIndex}
			s.State = corners.StateOf(&p, n)
		}
		if i > 0 && out[i-1].Score == g.Score {
			s.Rank = out[i-1].Rank
		}
		out = append(out, s)
	}
	return out, nil
}
