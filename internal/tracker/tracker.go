// Package tracker drives each group through its corner rotation. A forward
// step scores the current station and advances the group; a correction
// rescoring an already completed station adjusts the totals by the delta.
// The ledger row, the progress row and the aggregate group score are
// written in one store transaction per operation.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/campday/cornerquest/internal/cache"
	"github.com/campday/cornerquest/internal/corners"
	"github.com/campday/cornerquest/internal/store"
)

// Event is published after every committed change to a group.
type Event struct {
	Type      string           `json:"type"`
	GroupID   int              `json:"groupId"`
	StationID int              `json:"stationId,omitempty"`
	Score     int              `json:"score,omitempty"`
	Progress  corners.Progress `json:"progress"`
}

const (
	EventStationCompleted = "station_completed"
	EventScoreCorrected   = "score_corrected"
	EventProgressReset    = "progress_overwritten"
	EventTotalResynced    = "total_resynced"
)

// Notifier receives committed events, e.g. to fan them out to live feeds.
type Notifier interface {
	Publish(groupID int, ev Event)
}

// Controller applies progress and scoring operations for camp groups.
type Controller struct {
	catalog  *corners.Catalog
	policy   corners.ScorePolicy
	store    *store.Store
	cache    cache.Cache
	notifier Notifier
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// New returns a Controller. n may be nil.
func New(catalog *corners.Catalog, policy corners.ScorePolicy, st *store.Store, c cache.Cache, n Notifier, logger *slog.Logger) *Controller {
	return &Controller{
		catalog:  catalog,
		policy:   policy,
		store:    st,
		cache:    c,
		notifier: n,
		logger:   logger,
		locks:    make(map[int]*sync.Mutex),
	}
}

func (c *Controller) Catalog() *corners.Catalog { return c.catalog }

func (c *Controller) Policy() corners.ScorePolicy { return c.policy }

// lock serializes operations on one group within this process.
func (c *Controller) lock(groupID int) func() {
	c.mu.Lock()
	l, ok := c.locks[groupID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[groupID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (c *Controller) rotation(groupID int) ([]int, error) {
	rot := c.catalog.RotationForGroup(groupID)
	if len(rot) == 0 {
		return nil, fmt.Errorf("group %d: %w", groupID, corners.ErrNotFound)
	}
	return rot, nil
}

var domainErrors = []error{
	corners.ErrNotFound,
	corners.ErrInvalidState,
	corners.ErrInvalidOutcome,
	corners.ErrInvalidScore,
}

// classify leaves rejected actions untouched and marks everything else as
// a store failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", corners.ErrRemote, err)
}

// inTx runs fn and classifies the resulting error.
func (c *Controller) inTx(ctx context.Context, fn func(*store.Tx) error) error {
	return classify(c.store.InTx(ctx, fn))
}

// committed refreshes the cache and notifies subscribers.
func (c *Controller) committed(ctx context.Context, ev Event) {
	if err := c.cache.Put(ctx, ev.Progress); err != nil {
		c.logger.Warn("caching progress failed", "group_id", ev.GroupID, "error", err)
	}
	if c.notifier != nil {
		c.notifier.Publish(ev.GroupID, ev)
	}
}

// rejected logs a refused action and passes the error through.
func (c *Controller) rejected(op string, groupID int, err error) error {
	switch {
	case errors.Is(err, corners.ErrRemote):
		c.logger.Error("store failure", "op", op, "group_id", groupID, "error", err)
	case err != nil:
		c.logger.Warn("action rejected", "op", op, "group_id", groupID, "error", err)
	}
	return err
}
