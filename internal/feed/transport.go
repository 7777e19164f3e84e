package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// handshakeTimeout bounds the websocket dial.
	handshakeTimeout = 15 * time.Second

	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// ErrRemoteClosed reports that the peer closed the connection cleanly, as
// opposed to a transport failure. The manager transitions to Closed instead
// of Errored when it sees this.
var ErrRemoteClosed = errors.New("remote closed connection")

// Conn is one live socket. ReadMessage blocks until a frame arrives; it
// returns ErrRemoteClosed on a clean remote close and any other error on
// transport failure.
type Conn interface {
	WriteMessage(data []byte) error
	ReadMessage() ([]byte, error)
	Close() error
}

// Transport dials sockets. It exists so the manager's state machine can be
// driven by synthetic connections in tests; production code uses WSTransport.
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WSTransport dials real websocket connections via gorilla.
type WSTransport struct{}

// NewWSTransport returns the production websocket transport.
func NewWSTransport() *WSTransport { return &WSTransport{} }

// Dial opens a websocket connection with keep-alive pings running until the
// connection is closed.
func (t *WSTransport) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: dial %s: %w", url, err)
	}

	wc := &wsConn{conn: conn, done: make(chan struct{})}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go wc.pingLoop()
	return wc, nil
}

// wsConn adapts a gorilla connection to the Conn interface. Writes are
// serialized because the ping loop and the manager both write.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("feed: write: %w", err)
	}
	return nil
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, ErrRemoteClosed
		}
		return nil, fmt.Errorf("feed: read: %w", err)
	}
	return data, nil
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
