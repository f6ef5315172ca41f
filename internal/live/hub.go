// Package live pushes leaderboard changes to connected browsers over
// websockets and server-sent events.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"gamestats/internal/leaderboard"
	"gamestats/internal/metrics"

	"github.com/coder/websocket"
)

const (
	MessageLeaderboard = "leaderboard"
	MessageBye         = "bye"
)

// Message is the JSON structure sent to clients.
type Message struct {
	Type  string             `json:"t"`
	Board *leaderboard.Board `json:"board,omitempty"`
}

// Client is one websocket connection.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{ID: id, Conn: conn, Send: make(chan []byte, 16)}
}

// writeTimeout bounds one frame write so a stalled browser cannot pin its
// pump goroutine.
const writeTimeout = 5 * time.Second

// WritePump forwards queued leaderboard frames to the browser until ctx ends,
// a write fails or the hub drops the client. It returns the status the caller
// should close the connection with: StatusGoingAway once the hub has closed
// Send, so browsers know to reconnect elsewhere.
func (c *Client) WritePump(ctx context.Context) websocket.StatusCode {
	for {
		select {
		case <-ctx.Done():
			return websocket.StatusNormalClosure
		case msg, ok := <-c.Send:
			if !ok {
				return websocket.StatusGoingAway
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				slog.Debug("live write failed", "component", "live", "client_id", c.ID, "error", err)
				return websocket.StatusInternalError
			}
		}
	}
}

// Hub fans messages out to websocket clients and event-stream subscribers.
// Slow receivers miss messages rather than block the sender.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	subs    map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		subs:    make(map[chan []byte]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	h.updateGauge()
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		close(c.Send)
		delete(h.clients, id)
	}
	h.updateGauge()
}

// Subscribe returns a channel receiving every broadcast payload.
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 10)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.updateGauge()
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.updateGauge()
	h.mu.Unlock()
}

// Count is the number of connected receivers of either kind.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) + len(h.subs)
}

func (h *Hub) updateGauge() {
	metrics.LiveSubscribers.Set(float64(len(h.clients) + len(h.subs)))
}

func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("live message encoding failed", "component", "live", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.Send <- data:
		default:
		}
	}
	for ch := range h.subs {
		select {
		case ch <- data:
		default:
		}
	}
}

// LeaderboardChanged broadcasts the new board.
func (h *Hub) LeaderboardChanged(board leaderboard.Board) {
	h.Broadcast(Message{Type: MessageLeaderboard, Board: &board})
}

// Close tells every receiver the hub is going away and disconnects them.
func (h *Hub) Close() {
	h.Broadcast(Message{Type: MessageBye})
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.Send)
		delete(h.clients, id)
	}
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
	h.updateGauge()
}
