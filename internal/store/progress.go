package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/campday/cornerquest/internal/corners"
)

type progressRow struct {
	GroupID   int    `db:"group_id"`
	Index     int    `db:"current_station_index"`
	Completed string `db:"completed_station_ids"`
	Total     int    `db:"total_score"`
	UpdatedAt string `db:"updated_at"`
}

func (r progressRow) progress() (corners.Progress, error) {
	p := corners.Progress{
		GroupID:             r.GroupID,
		CurrentStationIndex: r.Index,
		TotalScore:          r.Total,
		UpdatedAt:           r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.Completed), &p.CompletedStationIDs); err != nil {
		return p, fmt.Errorf("decoding completed stations of group %d: %w", r.GroupID, err)
	}
	if p.CompletedStationIDs == nil {
		p.CompletedStationIDs = []int{}
	}
	return p, nil
}

func encodeCompleted(ids []int) string {
	if ids == nil {
		ids = []int{}
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

// GetProgress returns the stored progress or corners.ErrNotFound.
func (t *Tx) GetProgress(ctx context.Context, groupID int) (corners.Progress, error) {
	var row progressRow
	err := t.get(ctx, &row, `
		SELECT group_id, current_station_index, completed_station_ids, total_score, updated_at
		FROM group_progress WHERE group_id = ?
	`, groupID)
	if errors.Is(err, errNoRows) {
		return corners.Progress{}, fmt.Errorf("progress of group %d: %w", groupID, corners.ErrNotFound)
	}
	if err != nil {
		return corners.Progress{}, fmt.Errorf("reading progress of group %d: %w", groupID, err)
	}
	return row.progress()
}

// LoadProgress returns the group's progress, creating a zero row seeded
// from the aggregate group score when none exists. Repeated calls without
// intervening writes return identical rows.
func (t *Tx) LoadProgress(ctx context.Context, groupID int) (corners.Progress, error) {
	p, err := t.GetProgress(ctx, groupID)
	if err == nil || !errors.Is(err, corners.ErrNotFound) {
		return p, err
	}

	if err := t.EnsureGroup(ctx, groupID); err != nil {
		return corners.Progress{}, err
	}
	seed, err := t.GroupScore(ctx, groupID)
	if err != nil {
		return corners.Progress{}, err
	}

	_, err = t.exec(ctx, `
		INSERT INTO group_progress (group_id, current_station_index, completed_station_ids, total_score, updated_at)
		VALUES (?, 0, '[]', ?, ?)
		ON CONFLICT (group_id) DO NOTHING
	`, groupID, seed, nowUTC())
	if err != nil {
		return corners.Progress{}, fmt.Errorf("creating progress of group %d: %w", groupID, err)
	}
	return t.GetProgress(ctx, groupID)
}

// Advance records stationID as completed, moves the index forward by one
// and adds delta to the total. The update only applies if the index is
// still the one that was read, so a concurrent advance yields ErrConflict.
func (t *Tx) Advance(ctx context.Context, groupID, stationID, delta, rotationLen int) (corners.Progress, error) {
	p, err := t.GetProgress(ctx, groupID)
	if errors.Is(err, corners.ErrNotFound) {
		return p, fmt.Errorf("%w: group %d has no progress", corners.ErrInvalidState, groupID)
	}
	if err != nil {
		return p, err
	}
	if p.CurrentStationIndex >= rotationLen {
		return p, fmt.Errorf("group %d: %w", groupID, corners.ErrAlreadyComplete)
	}
	if p.HasCompleted(stationID) {
		return p, fmt.Errorf("%w: station %d already completed by group %d", corners.ErrInvalidState, stationID, groupID)
	}

	completed := append(append([]int{}, p.CompletedStationIDs...), stationID)
	n, err := t.exec(ctx, `
		UPDATE group_progress
		SET current_station_index = ?, completed_station_ids = ?, total_score = ?, updated_at = ?
		WHERE group_id = ? AND current_station_index = ?
	`, p.CurrentStationIndex+1, encodeCompleted(completed), p.TotalScore+delta, nowUTC(),
		groupID, p.CurrentStationIndex)
	if err != nil {
		return p, fmt.Errorf("advancing group %d: %w", groupID, err)
	}
	if n == 0 {
		return p, fmt.Errorf("group %d: %w", groupID, corners.ErrConflict)
	}
	return t.GetProgress(ctx, groupID)
}

// ResyncTotal force-sets the progress total without touching the index
// or the completed set.
func (t *Tx) ResyncTotal(ctx context.Context, groupID, total int) (corners.Progress, error) {
	n, err := t.exec(ctx, `
		UPDATE group_progress SET total_score = ?, updated_at = ? WHERE group_id = ?
	`, total, nowUTC(), groupID)
	if err != nil {
		return corners.Progress{}, fmt.Errorf("resyncing group %d: %w", groupID, err)
	}
	if n == 0 {
		return corners.Progress{}, fmt.Errorf("%w: group %d has no progress", corners.ErrInvalidState, groupID)
	}
	return t.GetProgress(ctx, groupID)
}

// OverwriteProgress stores p as-is, creating the row if needed.
func (t *Tx) OverwriteProgress(ctx context.Context, p corners.Progress) (corners.Progress, error) {
	if err := t.EnsureGroup(ctx, p.GroupID); err != nil {
		return corners.Progress{}, err
	}
	_, err := t.exec(ctx, `
		INSERT INTO group_progress (group_id, current_station_index, completed_station_ids, total_score, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (group_id) DO UPDATE SET
			current_station_index = excluded.current_station_index,
			completed_station_ids = excluded.completed_station_ids,
			total_score = excluded.total_score,
			updated_at = excluded.updated_at
	`, p.GroupID, p.CurrentStationIndex, encodeCompleted(p.CompletedStationIDs), p.TotalScore, nowUTC())
	if err != nil {
		return corners.Progress{}, fmt.Errorf("overwriting progress of group %d: %w", p.GroupID, err)
	}
	return t.GetProgress(ctx, p.GroupID)
}
