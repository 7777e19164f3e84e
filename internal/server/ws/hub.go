// Package ws bridges the Redis signal bus to websocket clients so a UI can
// render live books and feed status without polling.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alanyoungcy/bookscope/internal/domain"
	"github.com/alanyoungcy/bookscope/internal/service"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// defaultChannels are the signal-bus channels the hub subscribes to.
var defaultChannels = []string{
	"ch:book:*",
	service.ChannelFeedStatus,
}

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// client represents a single WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	subs map[string]bool // subscribed channels
	mu   sync.RWMutex
}

// subscribeMsg is the JSON message a client sends to manage its channel
// subscriptions, e.g. {"subscribe":["ch:book:okx:BTC-USDT"]}.
type subscribeMsg struct {
	Subscribe   []string `json:"subscribe"`
	Unsubscribe []string `json:"unsubscribe"`
}

// FeedLister supplies the feed status list sent to clients on connect.
type FeedLister interface {
	Feeds() []domain.FeedStatus
}

// Hub manages a set of connected WebSocket clients and broadcasts messages
// from the signal bus to all subscribed clients. A slow client's messages are
// dropped rather than queued: consumers only ever need the latest book.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	bus        domain.SignalBus
	feeds      FeedLister
	mu         sync.RWMutex
	logger     *slog.Logger
	startedAt  time.Time
}

// broadcastMsg carries a message along with its source channel so the hub
// can route it only to clients subscribed to that channel.
type broadcastMsg struct {
	channel string
	data    []byte
}

// NewHub creates a hub that forwards signal-bus traffic to websocket clients.
func NewHub(bus domain.SignalBus, feeds FeedLister, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		bus:        bus,
		feeds:      feeds,
		logger:     logger,
		startedAt:  time.Now().UTC(),
	}
}

// Run starts the hub's main event loop. It should be called in a goroutine.
// It handles client registration, unregistration, and message broadcasting.
// The loop exits when the provided context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for _, ch := range defaultChannels {
		go h.subscribeToChannel(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("ws: client connected",
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected",
				slog.Int("total_clients", h.clientCount()),
			)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if c.isSubscribed(msg.channel) {
					select {
					case c.send <- msg.data:
					default:
						// Client's send buffer is full; drop the message.
						h.logger.Warn("ws: dropping message for slow client")
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// subscribeToChannel subscribes to a single signal-bus channel and forwards
// received messages to the hub's broadcast channel.
func (h *Hub) subscribeToChannel(ctx context.Context, channel string) {
	msgCh, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("ws: failed to subscribe to channel",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	h.logger.Info("ws: subscribed to channel", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				h.logger.Warn("ws: channel subscription closed",
					slog.String("channel", channel),
				)
				return
			}
			h.broadcast <- broadcastMsg{
				channel: channel,
				data:    data,
			}
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the client with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool),
	}

	// Subscribe to all default channels initially.
	for _, ch := range defaultChannels {
		c.subs[ch] = true
	}

	h.register <- c
	c.sendInitialStatus()

	go c.writePump()
	go c.readPump()
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump reads messages from the WebSocket connection. It handles
// subscription management requests (JSON text frames) from the client.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var sub subscribeMsg
		if err := json.Unmarshal(message, &sub); err == nil &&
			(len(sub.Subscribe) > 0 || len(sub.Unsubscribe) > 0) {
			c.handleSubscription(sub)
		}
	}
}

// handleSubscription processes subscribe/unsubscribe requests from the client.
func (c *client) handleSubscription(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range msg.Subscribe {
		c.subs[ch] = true
	}
	for _, ch := range msg.Unsubscribe {
		delete(c.subs, ch)
	}
}

// sendInitialStatus pushes the current feed states so clients can render
// connection indicators before the first live event arrives.
func (c *client) sendInitialStatus() {
	var feeds []domain.FeedStatus
	if c.hub.feeds != nil {
		feeds = c.hub.feeds.Feeds()
	}

	uptime := int64(time.Since(c.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	msg, err := json.Marshal(map[string]any{
		"type": "hub_status",
		"payload": map[string]any{
			"uptime_seconds": uptime,
			"feeds":          feeds,
		},
	})
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// isSubscribed checks whether the client is subscribed to the given channel.
func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Direct match.
	if c.subs[channel] {
		return true
	}

	// Wildcard match: "ch:book:*" should match "ch:book:okx:BTC-USDT".
	for sub := range c.subs {
		if len(sub) > 0 && sub[len(sub)-1] == '*' {
			prefix := sub[:len(sub)-1]
			if len(channel) >= len(prefix) && channel[:len(prefix)] == prefix {
				return true
			}
		}
	}

	// Broadcasts arrive tagged with the hub's own subscription, which may be a
	// pattern. A client narrowed to one concrete channel under that pattern
	// still wants these messages.
	if len(channel) > 0 && channel[len(channel)-1] == '*' {
		prefix := channel[:len(channel)-1]
		for sub := range c.subs {
			if len(sub) >= len(prefix) && sub[:len(prefix)] == prefix {
				return true
			}
		}
	}

	return false
}

// writePump pumps messages from the hub to the WebSocket connection and sends
// periodic ping frames for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
