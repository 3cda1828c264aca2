package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait = 5 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = 50 * time.Second
	streamBuffer    = 16
)

// StreamMessage is pushed to renderers whenever the board changes.
type StreamMessage struct {
	Type     string `json:"type"` // "hello" or "changed"
	Revision uint64 `json:"revision"`
}

// Hub fans board change notifications out to websocket clients.
// A client that cannot keep up is dropped; it reconnects and redraws.
type Hub struct {
	mu       sync.Mutex
	clients  map[*streamClient]struct{}
	upgrader websocket.Upgrader
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *streamClient) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*streamClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues msg for every client without blocking.
func (h *Hub) Broadcast(msg StreamMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("stream marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			delete(h.clients, c)
			c.close()
		}
	}
}

// Serve upgrades the request and streams messages until the client leaves.
// hello is sent first so the client knows the revision it is drawing.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, hello StreamMessage) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &streamClient{conn: conn, send: make(chan []byte, streamBuffer)}
	if b, err := json.Marshal(hello); err == nil {
		c.send <- b
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	slog.Debug("stream client connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go h.writeLoop(c, done)

	// Reader loop: only control frames are expected; it detects disconnects.
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
	<-done
	slog.Debug("stream client disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) writeLoop(c *streamClient, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()

	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}
