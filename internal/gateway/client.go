package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client is one WebSocket peer and the sessions it follows.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	subMu    sync.RWMutex
	sessions map[string]bool
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		sessions: make(map[string]bool),
	}
}

// controlMsg is what clients send: subscribe/unsubscribe to a session, or a
// ping carrying a client timestamp.
type controlMsg struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	After   int64  `json:"after"`
	Ping    int64  `json:"ping"`
}

func (c *Client) subscribe(session string) {
	c.subMu.Lock()
	c.sessions[session] = true
	c.subMu.Unlock()
}

func (c *Client) unsubscribe(session string) {
	c.subMu.Lock()
	delete(c.sessions, session)
	c.subMu.Unlock()
}

func (c *Client) subscribed(session string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return c.sessions[session]
}

// enqueue never blocks; it reports whether the frame was queued. Callers hold
// the hub lock, so send is not closed underneath them.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg controlMsg
		if json.Unmarshal(raw, &msg) != nil {
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg controlMsg) {
	switch msg.Type {
	case "subscribe":
		if msg.Session == "" {
			return
		}
		c.subscribe(msg.Session)
		c.hub.mu.RLock()
		defer c.hub.mu.RUnlock()
		// replay what the client has not seen yet
		if rb, ok := c.hub.replay[msg.Session]; ok {
			for _, frame := range rb.Since(msg.After) {
				c.enqueue(frame)
			}
		}
	case "unsubscribe":
		c.unsubscribe(msg.Session)
	default:
		if msg.Ping > 0 {
			pong, _ := json.Marshal(map[string]int64{
				"ping":      msg.Ping,
				"server_ts": time.Now().UnixMilli(),
			})
			c.hub.mu.RLock()
			c.enqueue(pong)
			c.hub.mu.RUnlock()
		}
	}
}
