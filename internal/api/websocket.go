package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opencasa/casa-core/internal/infrastructure/config"
	"github.com/opencasa/casa-core/internal/infrastructure/logging"
)

// ChannelEventProcessed carries one message per pipeline result. Clients
// are subscribed to it on connect; admin UIs watch mappings fire live.
const ChannelEventProcessed = "event.processed"

// wsSendBuffer is the per-connection outbound buffer. A connection that
// falls this far behind starts losing broadcasts rather than blocking
// the pipeline.
const wsSendBuffer = 256

// clientMessage is a message received from a WebSocket client.
type clientMessage struct {
	Type     string   `json:"type"` // subscribe | unsubscribe | ping
	ID       string   `json:"id,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

// serverMessage is a message pushed to a WebSocket client.
type serverMessage struct {
	Type      string `json:"type"` // event | ack | pong | error
	ID        string `json:"id,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// Hub fans pipeline results out to connected WebSocket clients.
//
// Connections register themselves on upgrade and are dropped when their
// read pump exits or the hub shuts down. Broadcast never blocks on a
// slow client.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu    sync.RWMutex
	conns map[*wsConn]struct{}
}

// NewHub creates an empty hub. Start its lifecycle with Run.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:    cfg,
		logger: logger,
		conns:  make(map[*wsConn]struct{}),
	}
}

// Run blocks until the context is cancelled, then closes every
// connection so the pump goroutines can exit.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		close(c.send)
		c.conn.Close()
		delete(h.conns, c)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends a payload to every client subscribed to the channel.
// The message is marshalled once; per-connection delivery is best-effort.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(serverMessage{
		Type:      "event",
		Channel:   channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast", "channel", channel, "error", err)
		return
	}

	// Snapshot under the hub lock, deliver outside it. Subscription
	// checks take per-connection locks and must not nest inside h.mu.
	h.mu.RLock()
	conns := make([]*wsConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if c.subscribed(channel) {
			c.trySend(data)
		}
	}
}

// register adds a connection to the hub.
func (h *Hub) register(c *wsConn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", h.ClientCount())
}

// unregister removes a connection. The goroutine that wins the map
// removal closes the send channel; Run may race with a dying read pump
// and only one of them may close it.
func (h *Hub) unregister(c *wsConn) {
	h.mu.Lock()
	_, present := h.conns[c]
	delete(h.conns, c)
	h.mu.Unlock()

	if present {
		close(c.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// wsConn is one connected WebSocket client.
type wsConn struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by the CORS middleware
		return true
	},
}

// handleWebSocket upgrades the request and starts the connection pumps.
// New connections start subscribed to the event-result channel.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsConn{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, wsSendBuffer),
		channels: map[string]struct{}{ChannelEventProcessed: {}},
	}
	s.hub.register(c)

	go c.writePump(s.wsCfg)
	go c.readPump(s.wsCfg)
}

func (c *wsConn) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.channels[channel]
	return ok
}

// trySend queues data for the write pump without ever blocking. A full
// buffer drops the message; a closed channel (connection torn down mid
// broadcast) is absorbed by the recover.
func (c *wsConn) trySend(data []byte) {
	defer func() { _ = recover() }()

	select {
	case c.send <- data:
	default:
	}
}

// readPump consumes client messages until the connection dies, then
// unregisters. Any inbound traffic refreshes the read deadline.
func (c *wsConn) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	deadline := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(deadline))
		c.handle(data)
	}
}

// writePump drains the send channel and keeps the connection alive with
// protocol-level pings.
func (c *wsConn) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle dispatches one inbound client message.
func (c *wsConn) handle(data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(serverMessage{Type: "error", Payload: map[string]string{"message": "invalid JSON message"}})
		return
	}

	switch msg.Type {
	case "subscribe":
		c.mu.Lock()
		for _, ch := range msg.Channels {
			c.channels[ch] = struct{}{}
		}
		c.mu.Unlock()
		c.reply(serverMessage{Type: "ack", ID: msg.ID, Payload: map[string]any{"subscribed": msg.Channels}})

	case "unsubscribe":
		c.mu.Lock()
		for _, ch := range msg.Channels {
			delete(c.channels, ch)
		}
		c.mu.Unlock()
		c.reply(serverMessage{Type: "ack", ID: msg.ID, Payload: map[string]any{"unsubscribed": msg.Channels}})

	case "ping":
		c.reply(serverMessage{Type: "pong", ID: msg.ID})

	default:
		c.reply(serverMessage{Type: "error", ID: msg.ID, Payload: map[string]string{"message": "unknown message type: " + msg.Type}})
	}
}

// reply marshals and queues a message for this connection only.
func (c *wsConn) reply(msg serverMessage) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}
