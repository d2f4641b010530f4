package tracker

import (
	"context"
	"errors"

	"github.com/campday/cornerquest/internal/corners"
	"github.com/campday/cornerquest/internal/store"
)

// Entry returns one ledger row, or ErrNotFound if the station was never scored.
func (c *Controller) Entry(ctx context.Context, groupID, stationID int) (corners.ScoreEntry, error) {
	if _, err := c.rotation(groupID); err != nil {
		return corners.ScoreEntry{}, err
	}
	var e corners.ScoreEntry
	err := c.inTx(ctx, func(tx *store.Tx) (err error) {
		e, err = tx.GetEntry(ctx, groupID, stationID)
		return err
	})
	return e, err
}

// Entries returns a group's ledger ordered by station id.
func (c *Controller) Entries(ctx context.Context, groupID int) ([]corners.ScoreEntry, error) {
	if _, err := c.rotation(groupID); err != nil {
		return nil, err
	}
	var entries []corners.ScoreEntry
	err := c.inTx(ctx, func(tx *store.Tx) (err error) {
		entries, err = tx.ListEntries(ctx, groupID)
		return err
	})
	return entries, err
}

// ResyncTotal force-sets the group total in the progress row and the
// aggregate score. The ledger is not touched.
func (c *Controller) ResyncTotal(ctx context.Context, groupID, total int) (corners.Progress, error) {
	if _, err := c.rotation(groupID); err != nil {
		return corners.Progress{}, err
	}

	unlock := c.lock(groupID)
	defer unlock()

	var p corners.Progress
	err := c.inTx(ctx, func(tx *store.Tx) (err error) {
		p, err = tx.ResyncTotal(ctx, groupID, total)
		if err != nil {
			return err
		}
		return tx.SetGroupScore(ctx, groupID, total)
	})
	if err != nil {
		return p, c.rejected("resync_total", groupID, err)
	}

	c.logger.Info("total resynced", "group_id", groupID, "total", total)
	c.committed(ctx, Event{Type: EventTotalResynced, GroupID: groupID, Progress: p})
	return p, nil
}

// Audit compares the three places a group's score lives.
type Audit struct {
	GroupID        int  `json:"groupId"`
	HasProgress    bool `json:"hasProgress"`
	ProgressTotal  int  `json:"progressTotal"`
	LedgerSum      int  `json:"ledgerSum"`
	GroupScore     int  `json:"groupScore"`
	CompletedCount int  `json:"completedCount"`
	LedgerCount    int  `json:"ledgerCount"`
	Consistent     bool `json:"consistent"`
}

// Audit reads the progress total, the ledger sum and the aggregate score
// without changing anything.
func (c *Controller) Audit(ctx context.Context, groupID int) (Audit, error) {
	if _, err := c.rotation(groupID); err != nil {
		return Audit{}, err
	}

	a := Audit{GroupID: groupID}
	err := c.inTx(ctx, func(tx *store.Tx) error {
		p, err := tx.GetProgress(ctx, groupID)
		switch {
		case err == nil:
			a.HasProgress = true
			a.ProgressTotal = p.TotalScore
			a.CompletedCount = len(p.CompletedStationIDs)
		case !errors.Is(err, corners.ErrNotFound):
			return err
		}

		entries, err := tx.ListEntries(ctx, groupID)
		if err != nil {
			return err
		}
		a.LedgerCount = len(entries)
		for _, e := range entries {
			a.LedgerSum += e.Score
		}

		a.GroupScore, err = tx.GroupScore(ctx, groupID)
		if errors.Is(err, corners.ErrNotFound) {
			err = nil
		}
		return err
	})
	if err != nil {
		return Audit{}, err
	}

	a.Consistent = a.GroupScore == a.LedgerSum &&
		(!a.HasProgress || (a.ProgressTotal == a.LedgerSum && a.CompletedCount == a.LedgerCount))
	if !a.Consistent {
		c.logger.Warn("score views disagree",
			"group_id", groupID,
			"progress_total", a.ProgressTotal,
			"ledger_sum", a.LedgerSum,
			"group_score", a.GroupScore,
		)
	}
	return a, nil
}

// Reconcile resets the progress total and the aggregate score to the
// ledger sum.
func (c *Controller) Reconcile(ctx context.Context, groupID int) (corners.Progress, error) {
	if _, err := c.rotation(groupID); err != nil {
		return corners.Progress{}, err
	}

	unlock := c.lock(groupID)
	defer unlock()

	var p corners.Progress
	err := c.inTx(ctx, func(tx *store.Tx) error {
		sum, err := tx.SumEntries(ctx, groupID)
		if err != nil {
			return err
		}
		if _, err := tx.LoadProgress(ctx, groupID); err != nil {
			return err
		}
		if p, err = tx.ResyncTotal(ctx, groupID, sum); err != nil {
			return err
		}
		return tx.SetGroupScore(ctx, groupID, sum)
	})
	if err != nil {
		return p, c.rejected("reconcile", groupID, err)
	}

	c.logger.Info("totals reconciled with ledger", "group_id", groupID, "total", p.TotalScore)
	c.committed(ctx, Event{Type: EventTotalResynced, GroupID: groupID, Progress: p})
	return p, nil
}
