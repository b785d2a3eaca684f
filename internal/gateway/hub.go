// Package gateway pushes recomputed lab curves to WebSocket clients.
//
// Clients subscribe to lab session IDs. Every Notify for a session is wrapped
// in an envelope carrying a per-session sequence number and fanned out to the
// subscribed clients; slow clients miss messages instead of blocking the hub.
// The last envelopes of each session are kept for gap backfill.
package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fuzzyter/NKU-Hackathon-2025/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	// EnvelopeCurve is the envelope type for curve updates.
	EnvelopeCurve = "curve"

	sendBuffer   = 64
	replayLength = 50
)

// Envelope is the frame sent to clients.
type Envelope struct {
	Type    string          `json:"type"`
	Session string          `json:"session"`
	Seq     int64           `json:"seq"`
	TS      time.Time       `json:"ts"`
	Data    json.RawMessage `json:"data"`
}

// Hub tracks connected clients and the per-session sequence state.
type Hub struct {
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
	seqs    map[string]int64
	replay  map[string]*ReplayBuffer

	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewHub creates an empty hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		metrics: m,
		clients: make(map[*Client]bool),
		seqs:    make(map[string]int64),
		replay:  make(map[string]*ReplayBuffer),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// Notify wraps payload in a curve envelope and sends it to every client
// subscribed to sessionID. Sequence assignment and fan-out share one critical
// section, so clients see a session's frames in seq order.
func (h *Hub) Notify(sessionID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[gateway] marshal payload for %s: %v", sessionID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.seqs[sessionID]++
	env := Envelope{
		Type:    EnvelopeCurve,
		Session: sessionID,
		Seq:     h.seqs[sessionID],
		TS:      h.now().UTC(),
		Data:    data,
	}
	frame, err := json.Marshal(env)
	if err != nil {
		log.Printf("[gateway] marshal envelope for %s: %v", sessionID, err)
		return
	}
	rb, ok := h.replay[sessionID]
	if !ok {
		rb = NewReplayBuffer(replayLength)
		h.replay[sessionID] = rb
	}
	rb.Push(env.Seq, frame)

	for c := range h.clients {
		if !c.subscribed(sessionID) {
			continue
		}
		if c.enqueue(frame) {
			if h.metrics != nil {
				h.metrics.CurvePushesTotal.Inc()
			}
		} else if h.metrics != nil {
			h.metrics.CurvePushDrops.Inc()
		}
	}
}

// Forget drops sequence and replay state for a closed session.
func (h *Hub) Forget(sessionID string) {
	h.mu.Lock()
	delete(h.seqs, sessionID)
	delete(h.replay, sessionID)
	h.mu.Unlock()
}

// Seq returns the last sequence number sent for sessionID.
func (h *Hub) Seq(sessionID string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seqs[sessionID]
}

// Missed returns buffered frames for sessionID with seq > after, oldest first.
func (h *Hub) Missed(sessionID string, after int64) [][]byte {
	h.mu.RLock()
	rb, ok := h.replay[sessionID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return rb.Since(after)
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket. The optional "session" query
// parameter takes a comma-separated list of sessions to subscribe to at once.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade error: %v", err)
		return
	}
	var sessions []string
	for _, s := range strings.Split(r.URL.Query().Get("session"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			sessions = append(sessions, s)
		}
	}
	h.register(conn, sessions)
}

func (h *Hub) register(conn *websocket.Conn, sessions []string) *Client {
	c := newClient(h, conn)
	for _, s := range sessions {
		c.subscribe(s)
	}

	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
	log.Printf("[gateway] ws client connected (%d total)", count)

	go c.writePump()
	go c.readPump()
	return c
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	close(c.send)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
	log.Printf("[gateway] ws client disconnected (%d total)", count)
}
