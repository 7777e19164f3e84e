// Package feed maintains one live book subscription per (venue, symbol) pair.
// Each Manager runs an explicit state machine (idle, connecting, open, closed,
// errored) driven by discrete socket events, so the retry and forced-close
// behavior is testable without a real socket.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/bookscope/internal/domain"
	"github.com/alanyoungcy/bookscope/internal/venue"
)

// RetryDelay is the fixed delay before reconnecting after a transport error.
// Retry is unconditional and infinite: live market data has no fallback, so
// the only recourse is to keep trying. There is no backoff growth and no
// retry ceiling.
const RetryDelay = 5 * time.Second

// Key identifies one feed.
type Key struct {
	Venue  domain.Venue
	Symbol string
}

func (k Key) String() string { return string(k.Venue) + ":" + k.Symbol }

// Update is delivered to the manager's consumer on every state transition and
// on every normalized book message. Snapshot is non-nil only for message
// events. The consumer must treat both fields as read-only.
type Update struct {
	Key      Key
	State    domain.ConnectionState
	Snapshot *domain.BookSnapshot
}

// UpdateFunc receives feed updates. It is called sequentially per manager and
// must not block for long.
type UpdateFunc func(Update)

// Manager owns the socket lifecycle for one (venue, symbol) subscription.
//
// Transitions:
//
//	Idle       -> Connecting   Subscribe
//	Connecting -> Open         handshake completed (subscribe payload sent)
//	Open       -> Open         book message (snapshot replaced)
//	Open       -> Closed       clean remote close or Close
//	any        -> Errored      transport error; always retries after RetryDelay
//	any        -> Closed       Subscribe to a new key or Reconnect force a
//	                           local close first, without waiting for the old
//	                           close handshake to settle
//
// An unsupported venue goes straight to Errored with no retry scheduled;
// there is nothing to retry without a different venue selection.
type Manager struct {
	transport Transport
	logger    *slog.Logger
	notify    UpdateFunc

	// retryDelay is RetryDelay in production; tests shorten it.
	retryDelay time.Duration

	mu       sync.Mutex
	ctx      context.Context
	key      Key
	adapter  venue.Adapter
	state    domain.ConnectionState
	snapshot *domain.BookSnapshot
	conn     Conn
	retry    *time.Timer
	gen      int
	closed   bool
}

// NewManager creates an idle Manager. Updates flow to notify; a nil notify is
// allowed and discards updates.
func NewManager(transport Transport, logger *slog.Logger, notify UpdateFunc) *Manager {
	if notify == nil {
		notify = func(Update) {}
	}
	return &Manager{
		transport:  transport,
		logger:     logger.With(slog.String("component", "feed")),
		notify:     notify,
		retryDelay: RetryDelay,
		state:      domain.ConnectionState{Status: domain.StatusIdle},
	}
}

// Subscribe (re)points the manager at a (venue, symbol) pair and starts
// connecting. A live or pending connection for the previous key is force
// closed first and its stored snapshot is dropped, so stale data cannot leak
// into the new subscription. ctx bounds all dials for this subscription.
func (m *Manager) Subscribe(ctx context.Context, v domain.Venue, symbol string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.ErrFeedClosed
	}

	var updates []Update
	if u, ok := m.forceCloseLocked(); ok {
		updates = append(updates, u)
	}

	m.key = Key{Venue: v, Symbol: symbol}
	m.snapshot = nil
	m.ctx = ctx

	adapter, err := venue.Lookup(v)
	if err != nil {
		m.adapter = nil
		m.state = domain.ConnectionState{Status: domain.StatusErrored, LastError: err.Error()}
		updates = append(updates, m.updateLocked(nil))
		m.mu.Unlock()
		m.emit(updates...)
		return err
	}
	m.adapter = adapter

	m.gen++
	gen := m.gen
	m.state = domain.ConnectionState{Status: domain.StatusConnecting}
	updates = append(updates, m.updateLocked(nil))
	m.mu.Unlock()

	m.emit(updates...)
	go m.connect(gen)
	return nil
}

// Reconnect forces Closed -> Connecting regardless of the current status. It
// is the manual-recovery affordance surfaced to the user.
func (m *Manager) Reconnect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.ErrFeedClosed
	}
	if m.adapter == nil {
		m.mu.Unlock()
		return fmt.Errorf("feed: reconnect: %w", domain.ErrNotFound)
	}

	var updates []Update
	if u, ok := m.forceCloseLocked(); ok {
		updates = append(updates, u)
	}

	m.gen++
	gen := m.gen
	m.state = domain.ConnectionState{Status: domain.StatusConnecting}
	updates = append(updates, m.updateLocked(nil))
	m.mu.Unlock()

	m.emit(updates...)
	go m.connect(gen)
	return nil
}

// Close releases the socket and cancels any pending retry timer. The manager
// cannot be reused afterwards. Leaving either resource behind would be a
// leak, so Close is safe to call from any state and is idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true

	var updates []Update
	if u, ok := m.forceCloseLocked(); ok {
		updates = append(updates, u)
	}
	m.snapshot = nil
	m.mu.Unlock()

	m.emit(updates...)
}

// Key returns the currently subscribed (venue, symbol) pair.
func (m *Manager) Key() Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key
}

// State returns a copy of the current connection state.
func (m *Manager) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns the most recently received normalized snapshot, or nil
// before the first book message. The returned value must not be mutated.
func (m *Manager) Snapshot() *domain.BookSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// connect dials, sends the subscription payload, and starts the read loop.
// gen guards against events from superseded connections: every transition
// bumps m.gen, and handlers drop events whose gen no longer matches.
func (m *Manager) connect(gen int) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return
	}
	ctx := m.ctx
	adapter := m.adapter
	symbol := m.key.Symbol
	m.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	conn, err := m.transport.Dial(ctx, adapter.Endpoint())
	if err != nil {
		m.handleError(gen, err)
		return
	}

	payload, err := adapter.SubscriptionPayload(symbol)
	if err != nil {
		conn.Close()
		m.handleError(gen, err)
		return
	}

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.conn = conn
	m.state = domain.ConnectionState{Status: domain.StatusOpen}
	u := m.updateLocked(nil)
	m.mu.Unlock()

	m.emit(u)

	if err := conn.WriteMessage(payload); err != nil {
		m.handleError(gen, err)
		return
	}

	go m.readLoop(gen, conn)
}

// readLoop pumps frames from one connection into the state machine.
func (m *Manager) readLoop(gen int, conn Conn) {
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, ErrRemoteClosed) {
				m.handleRemoteClose(gen)
			} else {
				m.handleError(gen, err)
			}
			return
		}
		m.handleMessage(gen, raw)
	}
}

// handleMessage normalizes one inbound frame. Frames that carry no book
// payload (heartbeats, acks, garbage) are expected noise and are dropped
// without touching the stored snapshot or surfacing an error.
func (m *Manager) handleMessage(gen int, raw []byte) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return
	}
	adapter := m.adapter
	m.mu.Unlock()

	snap := adapter.Parse(raw)
	if snap == nil {
		return
	}

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return
	}
	// Latest snapshot unconditionally replaces the prior one; there is no
	// queuing or replay.
	m.snapshot = snap
	u := m.updateLocked(snap)
	m.mu.Unlock()

	m.emit(u)
}

// handleError records a transport failure and schedules the unconditional
// retry. Errors never propagate past the manager; they surface only as state.
func (m *Manager) handleError(gen int, err error) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.state = domain.ConnectionState{Status: domain.StatusErrored, LastError: err.Error()}
	m.retry = time.AfterFunc(m.retryDelay, func() { m.retryFire(gen) })
	u := m.updateLocked(nil)
	key := m.key
	m.mu.Unlock()

	m.logger.Warn("feed error, retry scheduled",
		slog.String("feed", key.String()),
		slog.Duration("delay", m.retryDelay),
		slog.String("error", err.Error()),
	)
	m.emit(u)
}

// retryFire transitions Errored -> Connecting once the retry delay elapses.
func (m *Manager) retryFire(gen int) {
	m.mu.Lock()
	if m.closed || gen != m.gen || m.state.Status != domain.StatusErrored {
		m.mu.Unlock()
		return
	}
	m.gen++
	next := m.gen
	m.state = domain.ConnectionState{Status: domain.StatusConnecting}
	u := m.updateLocked(nil)
	m.mu.Unlock()

	m.emit(u)
	go m.connect(next)
}

// handleRemoteClose transitions Open -> Closed on a clean remote close. No
// retry is scheduled; recovery is manual via Reconnect.
func (m *Manager) handleRemoteClose(gen int) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.state = domain.ConnectionState{Status: domain.StatusClosed}
	u := m.updateLocked(nil)
	m.mu.Unlock()

	m.emit(u)
}

// forceCloseLocked tears down the current connection and pending retry timer
// without waiting for a close handshake. It reports the Closed transition to
// emit, if the feed was not already closed or idle. Caller holds m.mu.
func (m *Manager) forceCloseLocked() (Update, bool) {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.gen++ // invalidate in-flight events for the old connection

	switch m.state.Status {
	case domain.StatusOpen, domain.StatusConnecting, domain.StatusErrored:
		m.state = domain.ConnectionState{Status: domain.StatusClosed}
		return m.updateLocked(nil), true
	}
	return Update{}, false
}

// updateLocked builds an Update from current state. Caller holds m.mu.
func (m *Manager) updateLocked(snap *domain.BookSnapshot) Update {
	return Update{Key: m.key, State: m.state, Snapshot: snap}
}

func (m *Manager) emit(updates ...Update) {
	for _, u := range updates {
		m.notify(u)
	}
}
