package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/config"
	"github.com/nerrad567/cinnamon-core/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// WSChannelAll subscribes a client to every channel.
	WSChannelAll = "*"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// WSMessage is a frame sent to or from a client. Seq increases by one for
// every event the hub broadcasts, so a gap means the client missed events.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Seq       uint64 `json:"seq,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe frames.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checking is handled by the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub fans engine events out to WebSocket clients. It keeps the last event
// of each channel and replays it to clients when they subscribe, so a
// dashboard that connects mid-run sees the current state at once.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger
	seq    atomic.Uint64

	mu       sync.RWMutex
	clients  map[*WSClient]struct{}
	retained map[string][]byte
}

// NewHub creates a hub. Run stops it.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:      cfg,
		logger:   logger,
		clients:  make(map[*WSClient]struct{}),
		retained: make(map[string][]byte),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

// Register adds a client and replays retained events for the channels it
// already subscribes to.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.replay(c, c.channels())
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client. Only the caller that removes it closes its
// send channel, so shutdown and a read error cannot close it twice.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", n, "dropped", c.dropped.Load())
}

// Broadcast sends payload to every client subscribed to channel.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		Seq:       h.seq.Add(1),
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "channel", channel, "error", err)
		return
	}

	// Client subscriptions have their own lock; never hold both.
	h.mu.Lock()
	h.retained[channel] = data
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	sent := 0
	for _, c := range targets {
		if c.isSubscribed(channel) {
			c.trySend(data)
			sent++
		}
	}
	if sent > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "recipients", sent)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// replay sends the retained event of each channel, oldest first.
func (h *Hub) replay(c *WSClient, channels []string) {
	h.mu.RLock()
	var frames [][]byte
	for _, ch := range channels {
		if ch == WSChannelAll {
			frames = frames[:0]
			for _, data := range h.retained {
				frames = append(frames, data)
			}
			break
		}
		if data, ok := h.retained[ch]; ok {
			frames = append(frames, data)
		}
	}
	h.mu.RUnlock()

	sort.Slice(frames, func(i, j int) bool { return frameSeq(frames[i]) < frameSeq(frames[j]) })
	for _, data := range frames {
		c.trySend(data)
	}
}

func frameSeq(data []byte) uint64 {
	var m struct {
		Seq uint64 `json:"seq"`
	}
	_ = json.Unmarshal(data, &m)
	return m.Seq
}

// WSClient is one connected dashboard.
type WSClient struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	dropped atomic.Int64

	mu            sync.RWMutex
	subscriptions map[string]struct{}
}

func newWSClient(hub *Hub, conn *websocket.Conn, channels []string) *WSClient {
	c := &WSClient{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}, len(channels)),
	}
	for _, ch := range channels {
		c.subscriptions[ch] = struct{}{}
	}
	return c
}

// handleWebSocket upgrades the request. Channels may be pre-subscribed with
// ?channels=a,b; "*" receives everything.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := newWSClient(s.Hub(), conn, splitChannels(r.URL.Query().Get("channels")))
	c.hub.Register(c)

	go c.writePump(s.wsCfg)
	go c.readPump(s.wsCfg)
}

func splitChannels(q string) []string {
	var out []string
	for _, ch := range strings.Split(q, ",") {
		if ch = strings.TrimSpace(ch); ch != "" {
			out = append(out, ch)
		}
	}
	return out
}

func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	wait := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	resetDeadline := func() error { return c.conn.SetReadDeadline(time.Now().Add(wait)) }

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	_ = resetDeadline()
	c.conn.SetPongHandler(func(string) error { return resetDeadline() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Any frame counts as liveness; some browsers never answer pings.
		_ = resetDeadline()
		c.handleMessage(data)
	}
}

func (c *WSClient) writePump(cfg config.WebSocketConfig) {
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
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		channels, ok := decodeChannels(msg.Payload)
		if !ok {
			c.sendError(msg.ID, "invalid "+msg.Type+" payload")
			return
		}
		if msg.Type == WSTypeSubscribe {
			c.subscribe(msg.ID, channels)
		} else {
			c.unsubscribe(msg.ID, channels)
		}
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

func decodeChannels(payload any) ([]string, bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	var sub WSSubscribePayload
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, false
	}
	return sub.Channels, true
}

func (c *WSClient) subscribe(id string, channels []string) {
	c.mu.Lock()
	for _, ch := range channels {
		c.subscriptions[ch] = struct{}{}
	}
	c.mu.Unlock()

	c.hub.logger.Debug("websocket client subscribed", "channels", channels)
	c.reply(id, WSTypeResponse, map[string]any{"subscribed": channels})
	c.hub.replay(c, channels)
}

func (c *WSClient) unsubscribe(id string, channels []string) {
	c.mu.Lock()
	for _, ch := range channels {
		delete(c.subscriptions, ch)
	}
	c.mu.Unlock()

	c.reply(id, WSTypeResponse, map[string]any{"unsubscribed": channels})
}

func (c *WSClient) channels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.subscriptions))
	for ch := range c.subscriptions {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, all := c.subscriptions[WSChannelAll]; all {
		return true
	}
	_, ok := c.subscriptions[channel]
	return ok
}

// trySend queues data without blocking. A full buffer drops the frame; a
// closed channel (client gone mid-broadcast) is ignored.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // send on closed channel
	}()

	select {
	case c.send <- data:
	default:
		if c.dropped.Add(1) == 1 {
			c.hub.logger.Warn("websocket client too slow, dropping events")
		}
	}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) sendError(id, message string) {
	c.reply(id, WSTypeError, map[string]string{"message": message})
}
