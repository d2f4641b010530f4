// Package cache keeps the last progress read from or written to the store
// for each group. Entries are never authoritative: callers only fall back
// to them when the store is unreachable, and must flag the result stale.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/campday/cornerquest/internal/corners"
)

// Snapshot is a cached progress plus the time it was known to be current.
type Snapshot struct {
	Progress corners.Progress `json:"progress"`
	StoredAt time.Time        `json:"storedAt"`
}

type Cache interface {
	Get(ctx context.Context, groupID int) (Snapshot, bool, error)
	Put(ctx context.Context, p corners.Progress) error
}

// Memory is an in-process Cache.
type Memory struct {
	mu    sync.RWMutex
	items map[int]Snapshot
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		items: make(map[int]Snapshot),
		now:   time.Now,
	}
}

func (m *Memory) Get(_ context.Context, groupID int) (Snapshot, bool, error) {
	m.mu.RLock()
	s, ok := m.items[groupID]
	m.mu.RUnlock()
	return s, ok, nil
}

func (m *Memory) Put(_ context.Context, p corners.Progress) error {
	p.CompletedStationIDs = append([]int{}, p.CompletedStationIDs...)
	m.mu.Lock()
	m.items[p.GroupID] = Snapshot{Progress: p, StoredAt: m.now().UTC()}
	m.mu.Unlock()
	return nil
}
