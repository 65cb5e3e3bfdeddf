// Package realtime owns the open live-channel connections.
package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/nikhilkumar000/Intern/internal/logger"
	"github.com/nikhilkumar000/Intern/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Conn is one live connection. Its id is ephemeral and never reused.
type Conn struct {
	ID string

	ws     *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ID:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, sendBuffer),
	}
}

// enqueue never blocks; a full buffer or a closed connection drops the frame.
func (c *Conn) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	log   *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{conns: make(map[string]*Conn), log: log}
}

// Add registers a websocket and returns its connection.
func (h *Hub) Add(ws *websocket.Conn) *Conn {
	c := newConn(ws)

	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()

	metrics.LiveConnections.Inc()
	h.log.WithField("connection_id", c.ID).Info("connection opened")
	return c
}

func (h *Hub) Remove(c *Conn) {
	h.mu.Lock()
	_, ok := h.conns[c.ID]
	delete(h.conns, c.ID)
	h.mu.Unlock()

	c.close()
	if ok {
		metrics.LiveConnections.Dec()
		h.log.WithField("connection_id", c.ID).Info("connection closed")
	}
}

// Send is best-effort: an unknown or closing connection silently drops the frame.
func (h *Hub) Send(connectionID string, frame []byte) bool {
	h.mu.RLock()
	c, ok := h.conns[connectionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	if !c.enqueue(frame) {
		h.log.WithField("connection_id", connectionID).Debug("send dropped")
		return false
	}
	return true
}

func (h *Hub) Broadcast(frame []byte) int {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	n := 0
	for _, c := range targets {
		if c.enqueue(frame) {
			n++
		}
	}
	return n
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// WritePump drains the connection's queue onto the socket and keeps it alive
// with pings. It returns when the queue is closed or a write fails.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadLoop calls fn for every text frame until the socket fails or closes.
func (c *Conn) ReadLoop(maxFrame int64, fn func(frame []byte)) {
	c.ws.SetReadLimit(maxFrame)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		fn(data)
	}
}
