package domain

import "context"

// SnapshotCache mirrors the latest normalized book for each (venue, symbol)
// pair. Snapshots are replaced wholesale; there is no history.
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, snap BookSnapshot) error
	GetSnapshot(ctx context.Context, venue Venue, symbol string) (BookSnapshot, error)
}

// SignalBus provides ephemeral pub/sub fan-out of feed events to in-process
// and external consumers (the websocket hub). Messages are fire-and-forget;
// a subscriber that misses an update only ever sees the next one.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
