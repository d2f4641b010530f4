package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/campday/cornerquest/internal/corners"
)

type entryRow struct {
	GroupID     int    `db:"group_id"`
	StationID   int    `db:"station_id"`
	Score       int    `db:"score"`
	BaseScore   int    `db:"base_score"`
	BonusScore  int    `db:"bonus_score"`
	OutcomeType string `db:"outcome_type"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func (r entryRow) entry() (corners.ScoreEntry, error) {
	o, err := corners.ParseOutcome(r.OutcomeType)
	if err != nil {
		return corners.ScoreEntry{}, fmt.Errorf("ledger row (%d, %d): %w", r.GroupID, r.StationID, err)
	}
	return corners.ScoreEntry{
		GroupID:     r.GroupID,
		StationID:   r.StationID,
		Score:       r.Score,
		BaseScore:   r.BaseScore,
		BonusScore:  r.BonusScore,
		OutcomeType: o,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

const entryColumns = `group_id, station_id, score, base_score, bonus_score, outcome_type, created_at, updated_at`

// GetEntry returns the ledger row for (group, station) or corners.ErrNotFound.
func (t *Tx) GetEntry(ctx context.Context, groupID, stationID int) (corners.ScoreEntry, error) {
	var row entryRow
	err := t.get(ctx, &row, `SELECT `+entryColumns+` FROM corner_scores WHERE group_id = ? AND station_id = ?`,
		groupID, stationID)
	if errors.Is(err, errNoRows) {
		return corners.ScoreEntry{}, fmt.Errorf("score of group %d at station %d: %w", groupID, stationID, corners.ErrNotFound)
	}
	if err != nil {
		return corners.ScoreEntry{}, fmt.Errorf("reading score of group %d at station %d: %w", groupID, stationID, err)
	}
	return row.entry()
}

// UpsertEntry writes base+bonus for (group, station), replacing any prior
// row. prior is the replaced score, or nil if the row is new.
func (t *Tx) UpsertEntry(ctx context.Context, groupID, stationID, base, bonus int, outcome corners.Outcome) (corners.ScoreEntry, *int, error) {
	if !outcome.Valid() {
		return corners.ScoreEntry{}, nil, fmt.Errorf("%w: %d", corners.ErrInvalidOutcome, uint8(outcome))
	}

	var prior *int
	existing, err := t.GetEntry(ctx, groupID, stationID)
	switch {
	case err == nil:
		prior = &existing.Score
	case !errors.Is(err, corners.ErrNotFound):
		return corners.ScoreEntry{}, nil, err
	}

	now := nowUTC()
	_, err = t.exec(ctx, `
		INSERT INTO corner_scores (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (group_id, station_id) DO UPDATE SET
			score = excluded.score,
			base_score = excluded.base_score,
			bonus_score = excluded.bonus_score,
			outcome_type = excluded.outcome_type,
			updated_at = excluded.updated_at
	`, groupID, stationID, corners.FinalScore(base, bonus), base, bonus, outcome.String(), now, now)
	if err != nil {
		return corners.ScoreEntry{}, nil, fmt.Errorf("writing score of group %d at station %d: %w", groupID, stationID, err)
	}

	e, err := t.GetEntry(ctx, groupID, stationID)
	return e, prior, err
}

// ListEntries returns a group's ledger ordered by station id.
func (t *Tx) ListEntries(ctx context.Context, groupID int) ([]corners.ScoreEntry, error) {
	var rows []entryRow
	err := t.tx.SelectContext(ctx, &rows, t.tx.Rebind(`SELECT `+entryColumns+`
		FROM corner_scores WHERE group_id = ? ORDER BY station_id`), groupID)
	if err != nil {
		return nil, fmt.Errorf("listing scores of group %d: %w", groupID, err)
	}

	entries := make([]corners.ScoreEntry, 0, len(rows))
	for _, r := range rows {
		e, err := r.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// SumEntries is the ledger total for a group; zero if it has no rows.
func (t *Tx) SumEntries(ctx context.Context, groupID int) (int, error) {
	var sum int
	if err := t.get(ctx, &sum, `SELECT COALESCE(SUM(score), 0) FROM corner_scores WHERE group_id = ?`, groupID); err != nil {
		return 0, fmt.Errorf("summing scores of group %d: %w", groupID, err)
	}
	return sum, nil
}
