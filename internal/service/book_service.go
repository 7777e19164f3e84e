// Package service exposes the consumer-facing surface over the live feeds:
// latest snapshots, connection states, manual reconnects, and execution
// simulation. It also fans feed updates out to the Redis snapshot cache and
// the signal bus for external consumers.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/bookscope/internal/domain"
	"github.com/alanyoungcy/bookscope/internal/feed"
	"github.com/alanyoungcy/bookscope/internal/sim"
	"github.com/google/uuid"
)

// publishTimeout bounds cache writes and bus publishes done per feed update.
const publishTimeout = 2 * time.Second

// ChannelFeedStatus is the signal-bus channel carrying connection state
// changes. Book updates go to ChannelBook(venue, symbol).
const ChannelFeedStatus = "ch:feed:status"

// ChannelBook returns the signal-bus channel for one pair's book updates.
func ChannelBook(v domain.Venue, symbol string) string {
	return "ch:book:" + string(v) + ":" + symbol
}

// BookService owns the in-memory view of every registered feed. The feed
// managers push updates into it via HandleUpdate; HTTP and websocket
// consumers read from it. Cache and bus are optional; a nil value disables
// the corresponding fan-out.
type BookService struct {
	cache  domain.SnapshotCache
	bus    domain.SignalBus
	logger *slog.Logger

	mu     sync.RWMutex
	feeds  map[feed.Key]*feed.Manager
	latest map[feed.Key]*domain.BookSnapshot
	states map[feed.Key]domain.ConnectionState
}

// NewBookService creates an empty BookService. Feed managers are attached
// with Register after construction, since each manager is built with
// HandleUpdate as its notify callback.
func NewBookService(cache domain.SnapshotCache, bus domain.SignalBus, logger *slog.Logger) *BookService {
	return &BookService{
		cache:  cache,
		bus:    bus,
		logger: logger.With(slog.String("component", "book_service")),
		feeds:  make(map[feed.Key]*feed.Manager),
		latest: make(map[feed.Key]*domain.BookSnapshot),
		states: make(map[feed.Key]domain.ConnectionState),
	}
}

// Register attaches a feed manager so Reconnect and Feeds can find it.
func (s *BookService) Register(m *feed.Manager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[m.Key()] = m
}

// HandleUpdate is the notify callback for all registered feed managers. It
// stores the latest state/snapshot and fans the event out to the cache and
// the signal bus.
func (s *BookService) HandleUpdate(u feed.Update) {
	s.mu.Lock()
	s.states[u.Key] = u.State
	if u.Snapshot != nil {
		s.latest[u.Key] = u.Snapshot
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if u.Snapshot != nil {
		if s.cache != nil {
			if err := s.cache.SetSnapshot(ctx, *u.Snapshot); err != nil {
				s.logger.Warn("snapshot cache write failed",
					slog.String("feed", u.Key.String()),
					slog.String("error", err.Error()),
				)
			}
		}
		s.publish(ctx, ChannelBook(u.Key.Venue, u.Key.Symbol), "book", u.Snapshot)
		return
	}

	s.publish(ctx, ChannelFeedStatus, "feed_status", domain.FeedStatus{
		Venue:  u.Key.Venue,
		Symbol: u.Key.Symbol,
		State:  u.State,
	})
}

// publish sends a {"type":..., "payload":...} envelope to the signal bus.
func (s *BookService) publish(ctx context.Context, channel, typ string, payload any) {
	if s.bus == nil {
		return
	}
	data, err := json.Marshal(map[string]any{"type": typ, "payload": payload})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, channel, data); err != nil {
		s.logger.Debug("bus publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// Snapshot returns the latest normalized book for a pair. It returns
// domain.ErrNotFound for a pair with no registered feed and
// domain.ErrNoSnapshot for a feed that has not produced a book yet.
func (s *BookService) Snapshot(v domain.Venue, symbol string) (domain.BookSnapshot, error) {
	key := feed.Key{Venue: v, Symbol: symbol}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.feeds[key]; !ok {
		return domain.BookSnapshot{}, fmt.Errorf("service: feed %s: %w", key, domain.ErrNotFound)
	}
	snap, ok := s.latest[key]
	if !ok {
		return domain.BookSnapshot{}, fmt.Errorf("service: feed %s: %w", key, domain.ErrNoSnapshot)
	}
	return *snap, nil
}

// Feeds lists every registered feed with its current connection state.
func (s *BookService) Feeds() []domain.FeedStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.FeedStatus, 0, len(s.feeds))
	for key, m := range s.feeds {
		state, ok := s.states[key]
		if !ok {
			state = m.State()
		}
		out = append(out, domain.FeedStatus{
			Venue:  key.Venue,
			Symbol: key.Symbol,
			State:  state,
		})
	}
	return out
}

// Reconnect forces a manual reconnect for one feed.
func (s *BookService) Reconnect(v domain.Venue, symbol string) error {
	key := feed.Key{Venue: v, Symbol: symbol}

	s.mu.RLock()
	m, ok := s.feeds[key]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("service: feed %s: %w", key, domain.ErrNotFound)
	}
	return m.Reconnect()
}

// SimulationResult wraps an ImpactResult with the request it answers and the
// snapshot it was priced against. It is derived on demand and never stored.
type SimulationResult struct {
	RequestID    string              `json:"request_id"`
	Request      domain.OrderRequest `json:"request"`
	SnapshotTime time.Time           `json:"snapshot_time"`
	Result       domain.ImpactResult `json:"result"`
}

// Simulate validates the request and prices it against the latest snapshot
// for its pair. Validation failures wrap domain.ErrInvalidOrder; a feed
// without a book yet yields domain.ErrNoSnapshot. The request's timing delay
// is advisory metadata: the simulation always runs against the snapshot
// current at call time.
func (s *BookService) Simulate(req domain.OrderRequest) (SimulationResult, error) {
	if err := req.Validate(); err != nil {
		return SimulationResult{}, fmt.Errorf("service: %w", err)
	}

	snap, err := s.Snapshot(req.Venue, req.Symbol)
	if err != nil {
		return SimulationResult{}, err
	}

	return SimulationResult{
		RequestID:    uuid.NewString(),
		Request:      req,
		SnapshotTime: snap.Timestamp,
		Result:       sim.Simulate(snap, req),
	}, nil
}
