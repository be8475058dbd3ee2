package bus

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// ErrClientClosed is returned by Read after Close.
var ErrClientClosed = errors.New("bus: client closed")

// Client attaches to a daemon's event feed and reconnects when the
// daemon restarts.
type Client struct {
	url     string
	backoff time.Duration

	mu     sync.Mutex // guards conn and closed
	conn   *ws.Conn
	closed bool
}

// Dial connects to the bus at wsURL (e.g. "ws://127.0.0.1:8092/ws").
func Dial(wsURL string) (*Client, error) {
	conn, _, err := ws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, err
	}
	return &Client{url: wsURL, backoff: 2 * time.Second, conn: conn}, nil
}

// Read blocks for the next event, reconnecting on a closed connection.
// Safe to call while another goroutine calls Close.
func (c *Client) Read() (Event, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return Event{}, ErrClientClosed
		}
		conn := c.conn
		c.mu.Unlock()

		var ev Event
		err := conn.ReadJSON(&ev)
		if err == nil {
			return ev, nil
		}

		if c.isClosed() {
			return Event{}, ErrClientClosed
		}
		if !isClosedConn(err) {
			return Event{}, err
		}

		slog.Warn("bus connection lost, reconnecting", "url", c.url)
		if !c.reconnect() {
			return Event{}, ErrClientClosed
		}
	}
}

// Close tears down the connection; a pending Read returns ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// reconnect redials until it succeeds. Returns false when the client
// was closed in the meantime.
func (c *Client) reconnect() bool {
	for {
		if c.isClosed() {
			return false
		}

		conn, _, err := ws.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			time.Sleep(c.backoff)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return false
		}
		c.conn = conn
		c.mu.Unlock()
		return true
	}
}

func isClosedConn(err error) bool {
	if ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure) {
		return true
	}
	var closeErr *ws.CloseError
	return errors.As(err, &closeErr)
}
