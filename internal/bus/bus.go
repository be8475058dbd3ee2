// Package bus fans daemon events out to attached UIs over websockets.
package bus

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// Event kinds.
const (
	KindState   = "state"   // daemon state changes: idle, listening, thinking, speaking
	KindYou     = "you"     // recognized user speech
	KindSetsuna = "setsuna" // assistant reply
	KindError   = "error"   // a pipeline stage failed
)

// Event is one bus message.
type Event struct {
	Kind string    `json:"kind"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// NewEvent builds an Event stamped with the current time.
func NewEvent(kind, text string) Event {
	return Event{Kind: kind, Text: text, At: time.Now()}
}

type subscriber struct {
	conn *ws.Conn
	send chan Event
}

// Hub broadcasts events to every connected client. Slow clients are
// dropped rather than blocking the pipeline.
type Hub struct {
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	upgrader ws.Upgrader
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[*subscriber]struct{}),
		upgrader: ws.Upgrader{
			// local desktop service, no cross-origin story
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Broadcast queues ev for every connected client.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub.send <- ev:
		default:
			slog.Warn("dropping slow bus client")
			delete(h.subs, sub)
			close(sub.send)
		}
	}
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("bus upgrade failed", "err", err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan Event, 32)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go h.readUntilClose(sub)
	h.writePump(sub)
}

func (h *Hub) writePump(sub *subscriber) {
	defer sub.conn.Close()

	for ev := range sub.send {
		if err := sub.conn.WriteJSON(ev); err != nil {
			h.drop(sub)
			return
		}
	}
}

// readUntilClose discards inbound frames; the bus is one-way. Reading
// is still required to notice disconnects.
func (h *Hub) readUntilClose(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.drop(sub)
			return
		}
	}
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.send)
		sub.conn.Close()
	}
}
