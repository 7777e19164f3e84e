package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/bookscope/internal/domain"
	"github.com/redis/go-redis/v9"
)

// snapshotTTL expires stale books. A live feed replaces its key far more
// often than this; the TTL only clears keys for feeds that stopped.
const snapshotTTL = 5 * time.Minute

// SnapshotCache implements domain.SnapshotCache with one JSON value per
// (venue, symbol) pair. Each write replaces the whole snapshot, matching the
// feed's replace-not-merge semantics; there is no level-by-level state and no
// history.
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

func snapshotKey(v domain.Venue, symbol string) string {
	return "book:" + string(v) + ":" + symbol
}

// SetSnapshot stores the latest normalized book for the snapshot's pair.
func (sc *SnapshotCache) SetSnapshot(ctx context.Context, snap domain.BookSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s %s: %w", snap.Venue, snap.Symbol, err)
	}
	key := snapshotKey(snap.Venue, snap.Symbol)
	if err := sc.rdb.Set(ctx, key, data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", key, err)
	}
	return nil
}

// GetSnapshot returns the latest stored book for a pair, or
// domain.ErrNotFound when none exists.
func (sc *SnapshotCache) GetSnapshot(ctx context.Context, v domain.Venue, symbol string) (domain.BookSnapshot, error) {
	key := snapshotKey(v, symbol)
	data, err := sc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.BookSnapshot{}, domain.ErrNotFound
		}
		return domain.BookSnapshot{}, fmt.Errorf("redis: get snapshot %s: %w", key, err)
	}

	var snap domain.BookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("redis: unmarshal snapshot %s: %w", key, err)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
