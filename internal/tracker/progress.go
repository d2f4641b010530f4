package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campday/cornerquest/internal/corners"
	"github.com/campday/cornerquest/internal/store"
)

// View is progress prepared for display. Stale is set when the store
// could not be read and the progress comes from the last-known-good cache
// (or is a zero placeholder); stale views must not be written back.
type View struct {
	Progress       corners.Progress `json:"progress"`
	State          corners.State    `json:"state"`
	RotationLength int              `json:"rotationLength"`
	Current        *corners.Station `json:"currentStation"`
	Next           *corners.Station `json:"nextStation"`
	Stale          bool             `json:"stale"`
	StoredAt       *time.Time       `json:"storedAt,omitempty"`
}

// Load returns the group's progress, creating a zero row on first read.
func (c *Controller) Load(ctx context.Context, groupID int) (corners.Progress, error) {
	if _, err := c.rotation(groupID); err != nil {
		return corners.Progress{}, err
	}

	unlock := c.lock(groupID)
	defer unlock()

	var p corners.Progress
	err := c.inTx(ctx, func(tx *store.Tx) (err error) {
		p, err = tx.LoadProgress(ctx, groupID)
		return err
	})
	if err != nil {
		return p, c.rejected("load", groupID, err)
	}
	if err := c.cache.Put(ctx, p); err != nil {
		c.logger.Warn("caching progress failed", "group_id", groupID, "error", err)
	}
	return p, nil
}

// Snapshot is Load with a fallback: when the store fails, the last cached
// progress (or a zero progress) is returned flagged as stale.
func (c *Controller) Snapshot(ctx context.Context, groupID int) (View, error) {
	p, err := c.Load(ctx, groupID)
	if err == nil {
		return c.view(p, false, nil), nil
	}
	if !errors.Is(err, corners.ErrRemote) {
		return View{}, err
	}

	snap, ok, cerr := c.cache.Get(ctx, groupID)
	if cerr != nil {
		c.logger.Warn("reading cached progress failed", "group_id", groupID, "error", cerr)
	}
	if !ok {
		c.logger.Warn("serving placeholder progress", "group_id", groupID)
		return c.view(corners.NewProgress(groupID, 0), true, nil), nil
	}
	c.logger.Warn("serving cached progress", "group_id", groupID, "stored_at", snap.StoredAt)
	return c.view(snap.Progress, true, &snap.StoredAt), nil
}

func (c *Controller) view(p corners.Progress, stale bool, storedAt *time.Time) View {
	n := len(c.catalog.RotationForGroup(p.GroupID))
	v := View{
		Progress:       p,
		State:          corners.StateOf(&p, n),
		RotationLength: n,
		Stale:          stale,
		StoredAt:       storedAt,
	}
	if s, ok := c.catalog.StationAt(p.GroupID, p.CurrentStationIndex); ok {
		v.Current = &s
	}
	if s, ok := c.catalog.NextStation(p.GroupID, p.CurrentStationIndex); ok {
		v.Next = &s
	}
	return v
}

// OverwriteProgress replaces the stored progress. completed must be
// exactly the first index stations of the rotation; total is taken as
// given and written to both the progress row and the group aggregate.
func (c *Controller) OverwriteProgress(ctx context.Context, groupID, index int, completed []int, total int) (corners.Progress, error) {
	rot, err := c.rotation(groupID)
	if err != nil {
		return corners.Progress{}, err
	}
	if err := validatePrefix(rot, index, completed); err != nil {
		return corners.Progress{}, c.rejected("overwrite", groupID, err)
	}

	unlock := c.lock(groupID)
	defer unlock()

	var p corners.Progress
	err = c.inTx(ctx, func(tx *store.Tx) (err error) {
		p, err = tx.OverwriteProgress(ctx, corners.Progress{
			GroupID:             groupID,
			CurrentStationIndex: index,
			CompletedStationIDs: completed,
			TotalScore:          total,
		})
		if err != nil {
			return err
		}
		return tx.SetGroupScore(ctx, groupID, total)
	})
	if err != nil {
		return p, c.rejected("overwrite", groupID, err)
	}

	c.logger.Info("progress overwritten", "group_id", groupID, "index", index, "total", total)
	c.committed(ctx, Event{Type: EventProgressReset, GroupID: groupID, Progress: p})
	return p, nil
}

func validatePrefix(rot []int, index int, completed []int) error {
	if index < 0 || index > len(rot) {
		return fmt.Errorf("%w: index %d outside rotation of %d", corners.ErrInvalidState, index, len(rot))
	}
	if len(completed) != index {
		return fmt.Errorf("%w: %d completed stations for index %d", corners.ErrInvalidState, len(completed), index)
	}
	prefix := make(map[int]bool, index)
	for _, id := range rot[:index] {
		prefix[id] = true
	}
	for _, id := range completed {
		if !prefix[id] {
			return fmt.Errorf("%w: station %d is not among the first %d of the rotation", corners.ErrInvalidState, id, index)
		}
		delete(prefix, id)
	}
	return nil
}
