package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campday/cornerquest/internal/corners"
)

const keyPrefix = "cornerquest:progress:"

// Redis stores snapshots as JSON strings so several server processes share
// the same last-known-good view.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Open parses rawURL, connects and pings.
func Open(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

func key(groupID int) string {
	return fmt.Sprintf("%s%d", keyPrefix, groupID)
}

func (r *Redis) Get(ctx context.Context, groupID int) (Snapshot, bool, error) {
	data, err := r.client.Get(ctx, key(groupID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("reading snapshot of group %d: %w", groupID, err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, false, fmt.Errorf("decoding snapshot of group %d: %w", groupID, err)
	}
	return s, true, nil
}

func (r *Redis) Put(ctx context.Context, p corners.Progress) error {
	data, err := json.Marshal(Snapshot{Progress: p, StoredAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key(p.GroupID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("writing snapshot of group %d: %w", p.GroupID, err)
	}
	return nil
}

// Ping adapts the client for health checks.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
