package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bobmcallan/surge/internal/common"
	"github.com/bobmcallan/surge/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// ScreenEvent is pushed to websocket subscribers after every completed run
type ScreenEvent struct {
	Type      string                 `json:"type"`
	RunID     string                 `json:"run_id"`
	Stocks    []models.ScreenedStock `json:"stocks"`
	Source    string                 `json:"source"`
	Notice    string                 `json:"notice,omitempty"`
	Screened  int                    `json:"screened"`
	Timestamp time.Time              `json:"timestamp"`
}

func newScreenEvent(result *models.ScreenResult) ScreenEvent {
	return ScreenEvent{
		Type:      "screen",
		RunID:     result.RunID,
		Stocks:    result.Stocks,
		Source:    result.Source,
		Notice:    result.Notice,
		Screened:  result.Screened,
		Timestamp: result.CompletedAt,
	}
}

// Hub manages websocket clients and broadcasts screen results.
type Hub struct {
	clients    map[*hubClient]bool
	broadcast  chan []byte
	register   chan *hubClient
	unregister chan *hubClient
	done       chan struct{}
	mu         sync.RWMutex
	logger     *common.Logger
}

type hubClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a websocket hub. Call Run in a goroutine before serving.
func NewHub(logger *common.Logger) *Hub {
	return &Hub{
		clients:    make(map[*hubClient]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("clients", n).Msg("WebSocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("clients", n).Msg("WebSocket client disconnected")

		case data := <-h.broadcast:
			h.mu.RLock()
			var slow []*hubClient
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			if len(slow) > 0 {
				h.mu.Lock()
				for _, c := range slow {
					if _, ok := h.clients[c]; ok {
						delete(h.clients, c)
						close(c.send)
					}
				}
				h.mu.Unlock()
				h.logger.Warn().Int("dropped", len(slow)).Msg("WebSocket clients too slow, disconnected")
			}
		}
	}
}

// Stop signals the event loop to exit and disconnects every client.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// PublishScreen queues a completed result for every connected client.
func (h *Hub) PublishScreen(result *models.ScreenResult) {
	if result == nil {
		return
	}
	data, err := json.Marshal(newScreenEvent(result))
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to marshal screen event")
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn().Msg("WebSocket broadcast channel full, dropping event")
	}
}

// ServeWS upgrades the connection and registers the client. When initial is
// non-nil it is sent before any broadcast.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial *models.ScreenResult) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &hubClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	if initial != nil {
		if data, err := json.Marshal(newScreenEvent(initial)); err == nil {
			client.send <- data
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writePump sends queued messages and keepalive pings.
func (c *hubClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection to detect close.
func (c *hubClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
