package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campday/cornerquest/internal/corners"
)

// GroupSummary is one row of the leaderboard.
type GroupSummary struct {
	ID                  int
	Name                string
	Score               int
	Started             bool
	CurrentStationIndex int
}

func (t *Tx) EnsureGroup(ctx context.Context, groupID int) error {
	_, err := t.exec(ctx, `
		INSERT INTO camp_groups (id, name, score, created_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT (id) DO NOTHING
	`, groupID, fmt.Sprintf("Group %d", groupID), nowUTC())
	if err != nil {
		return fmt.Errorf("ensuring group %d: %w", groupID, err)
	}
	return nil
}

// GroupScore returns the denormalized aggregate score of a group.
func (t *Tx) GroupScore(ctx context.Context, groupID int) (int, error) {
	var score int
	err := t.get(ctx, &score, `SELECT score FROM camp_groups WHERE id = ?`, groupID)
	if errors.Is(err, errNoRows) {
		return 0, fmt.Errorf("group %d: %w", groupID, corners.ErrNotFound)
	}
	return score, err
}

func (t *Tx) SetGroupScore(ctx context.Context, groupID, score int) error {
	n, err := t.exec(ctx, `UPDATE camp_groups SET score = ? WHERE id = ?`, score, groupID)
	if err != nil {
		return fmt.Errorf("updating group %d score: %w", groupID, err)
	}
	if n == 0 {
		return fmt.Errorf("group %d: %w", groupID, corners.ErrNotFound)
	}
	return nil
}

// ListGroups returns every group with its score and rotation position,
// highest score first.
func (t *Tx) ListGroups(ctx context.Context) ([]GroupSummary, error) {
	rows, err := t.tx.QueryxContext(ctx, `
		SELECT g.id, g.name, g.score, p.current_station_index
		FROM camp_groups g
		LEFT JOIN group_progress p ON p.group_id = g.id
		ORDER BY g.score DESC, g.id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	groups := []GroupSummary{}
	for rows.Next() {
		var g GroupSummary
		var index sql.NullInt64
		if err := rows.Scan(&g.ID, &g.Name, &g.Score, &index); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		g.Started = index.Valid
		g.CurrentStationIndex = int(index.Int64)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
