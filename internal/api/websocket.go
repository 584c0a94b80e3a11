package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smartnest/smartnest-core/internal/home"
	"github.com/smartnest/smartnest-core/internal/infrastructure/config"
	"github.com/smartnest/smartnest-core/internal/infrastructure/logging"
	"github.com/smartnest/smartnest-core/internal/infrastructure/mqtt"
	"github.com/smartnest/smartnest-core/internal/settings"
)

// WebSocket constants.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// Broadcast channels. Room events go out on "room.{location}"; notification
// events on the shared notifications channel.
const channelNotifications = "notifications"

// roomChannel returns the broadcast channel for one room.
func roomChannel(location string) string {
	return "room." + location
}

// WSMessage represents a message sent to/from a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Channel   string `json:"channel,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub manages WebSocket connections and broadcasts events.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]struct{}
	mu            sync.RWMutex
	userID        string // owner of the ticket the connection authenticated with
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run starts the hub's main loop. It blocks until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "user_id", client.userID, "clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// Broadcast sends an event to all clients subscribed to the given channel.
// Lock ordering: hub lock is acquired first, then released before per-client
// subscription checks. This avoids holding both hub and client locks simultaneously.
func (h *Hub) Broadcast(channel, eventType string, payload any) {
	msg := WSMessage{
		Type:      WSTypeEvent,
		Channel:   channel,
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	// Snapshot client list under hub lock, then release before sending
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sentCount := 0
	for _, client := range clients {
		if client.isSubscribed(channel) {
			client.trySend(data)
			sentCount++
		}
	}
	if sentCount > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "event", eventType, "recipients", sentCount)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// broadcastRoom publishes an event on a room's channel.
func (s *Server) broadcastRoom(location, eventType string, payload any) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(roomChannel(location), eventType, payload)
}

// subscribeFleet wires the MQTT fleet topics into the live-state registry,
// the WebSocket hub, telemetry, and threshold alerting.
func (s *Server) subscribeFleet() error {
	if s.mqtt == nil {
		return nil // MQTT not configured; realtime events disabled
	}

	topics := mqtt.Topics{}
	if err := s.mqtt.Subscribe(topics.AllSensorReadings(), 1, s.onSensorReading); err != nil {
		return err
	}
	if err := s.mqtt.Subscribe(topics.AllDeviceStates(), 1, s.onDeviceState); err != nil {
		return err
	}
	return s.mqtt.Subscribe(topics.AllDeviceStatus(), 1, s.onDeviceStatus)
}

// onSensorReading handles one sensor report: merge the shallow patch into the
// room's cached state, broadcast the merged view, write telemetry, and run
// the threshold alerter.
//
// Topic shape: smartnest/sensor/{location}.
func (s *Server) onSensorReading(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 {
		return nil
	}
	location := parts[2]

	var patch map[string]any
	if err := json.Unmarshal(payload, &patch); err != nil {
		s.logger.Warn("unparseable sensor payload", "topic", topic, "error", err)
		return nil
	}

	merged := s.home.State().Apply(location, patch)
	s.broadcastRoom(location, "sensor.updated", map[string]any{
		"location": location,
		"readings": merged,
	})

	ctx := context.Background()
	thresholds := s.fleetThresholds(ctx)

	for metric, v := range patch {
		value, ok := v.(float64)
		if !ok {
			continue
		}
		if s.influx != nil {
			s.influx.WriteSensorReading(location, metric, value)
		}
		if s.alerter == nil {
			continue
		}
		band, ok := thresholdBand(thresholds, metric)
		if !ok {
			continue
		}
		n, err := s.alerter.CheckReading(ctx, location, metric, value, band)
		if err != nil {
			s.logger.Error("threshold check failed", "location", location, "metric", metric, "error", err)
			continue
		}
		if n != nil {
			s.hub.Broadcast(channelNotifications, "notification.created", n)
		}
	}

	return nil
}

// onDeviceState handles a device's own state report (physical switch press,
// lock actuated at the door).
//
// Topic shape: smartnest/state/{location}/{deviceID}.
func (s *Server) onDeviceState(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		return nil
	}
	location, deviceID := parts[2], parts[3]

	var msg struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil || msg.State == "" {
		s.logger.Warn("unparseable device state payload", "topic", topic)
		return nil
	}

	ctx := context.Background()
	if err := s.home.Repo().UpdateDeviceState(ctx, deviceID, msg.State); err != nil {
		s.logger.Debug("device state update failed", "device_id", deviceID, "error", err)
		return nil
	}

	kind := ""
	if device, err := s.home.Repo().GetDevice(ctx, deviceID); err == nil {
		kind = device.Type
	}

	s.broadcastRoom(location, "device.state_changed", map[string]any{
		"device_id": deviceID, "location": location, "type": kind, "state": msg.State,
	})
	if s.influx != nil {
		s.influx.WriteDeviceEvent(deviceID, location, kind, msg.State)
	}

	return nil
}

// onDeviceStatus handles online/offline transitions.
//
// Topic shape: smartnest/status/{location}/{deviceID}.
func (s *Server) onDeviceStatus(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		return nil
	}
	location, deviceID := parts[2], parts[3]

	var msg struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.logger.Warn("unparseable device status payload", "topic", topic)
		return nil
	}
	if msg.Status != home.StatusOnline && msg.Status != home.StatusOffline {
		return nil
	}

	ctx := context.Background()
	if err := s.home.Repo().UpdateDeviceStatus(ctx, deviceID, msg.Status); err != nil {
		s.logger.Debug("device status update failed", "device_id", deviceID, "error", err)
		return nil
	}

	s.broadcastRoom(location, "device.status_changed", map[string]any{
		"device_id": deviceID, "location": location, "status": msg.Status,
	})
	if s.influx != nil {
		s.influx.WriteDeviceEvent(deviceID, location, "", msg.Status)
	}

	if msg.Status == home.StatusOffline && s.alerter != nil {
		name := deviceID
		if device, err := s.home.Repo().GetDevice(ctx, deviceID); err == nil {
			name = device.Name
		}
		n, err := s.alerter.DeviceOffline(ctx, location, deviceID, name)
		if err != nil {
			s.logger.Error("offline alert failed", "device_id", deviceID, "error", err)
		} else if n != nil {
			s.hub.Broadcast(channelNotifications, "notification.created", n)
		}
	}

	return nil
}

// fleetThresholds loads thresholds for the MQTT pipeline, defaulting when the
// settings row is unreadable.
func (s *Server) fleetThresholds(ctx context.Context) *settings.Thresholds {
	t, err := s.settings.Get(ctx)
	if err != nil {
		def := settings.DefaultThresholds()
		return &def
	}
	return t
}

// thresholdBand maps a sensor metric to its alert band. Metrics without a
// band (lightLevel) report false.
func thresholdBand(t *settings.Thresholds, metric string) (settings.Range, bool) {
	switch metric {
	case "temperature":
		return t.Temperature, true
	case "humidity":
		return t.Humidity, true
	case "gas":
		return t.Gas, true
	default:
		return settings.Range{}, false
	}
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
// Authentication is via ticket query parameter (obtained from POST /auth/ws-ticket).
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	entry, ok := s.tickets.validate(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
		userID:        entry.userID,
	}

	s.hub.Register(client)

	// Start read/write pumps
	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps connection alive
		// even if browser doesn't respond to protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.handleSubscribe(msg)
	case WSTypeUnsubscribe:
		c.handleUnsubscribe(msg)
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// handleSubscribe adds channels to the client's subscription list.
func (c *WSClient) handleSubscribe(msg WSMessage) {
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		c.sendError(msg.ID, "invalid payload")
		return
	}

	var sub WSSubscribePayload
	if err := json.Unmarshal(payloadBytes, &sub); err != nil {
		c.sendError(msg.ID, "invalid subscribe payload")
		return
	}

	c.mu.Lock()
	for _, ch := range sub.Channels {
		c.subscriptions[ch] = struct{}{}
	}
	c.mu.Unlock()

	c.hub.logger.Info("websocket client subscribed", "user_id", c.userID, "channels", sub.Channels)

	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{
		"subscribed": sub.Channels,
	})
}

// handleUnsubscribe removes channels from the client's subscription list.
func (c *WSClient) handleUnsubscribe(msg WSMessage) {
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		c.sendError(msg.ID, "invalid payload")
		return
	}

	var sub WSSubscribePayload
	if err := json.Unmarshal(payloadBytes, &sub); err != nil {
		c.sendError(msg.ID, "invalid unsubscribe payload")
		return
	}

	c.mu.Lock()
	for _, ch := range sub.Channels {
		delete(c.subscriptions, ch)
	}
	c.mu.Unlock()

	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{
		"unsubscribed": sub.Channels,
	})
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during broadcast)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// isSubscribed checks if the client is subscribed to a channel.
func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[channel]
	return ok
}

// sendResponse sends a response message to the client.
// Routes through trySend to safely handle closed channels during shutdown.
func (c *WSClient) sendResponse(id, msgType string, payload any) {
	msg := WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error message to the client.
func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
