package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"eventplanner-backend/internal/authz"
	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/realtime"
	"eventplanner-backend/pkg/logger"
	"eventplanner-backend/pkg/metrics"
)

// Close codes of the handshake contract
const (
	CloseBadEventID     = 4400
	CloseUnauthorized   = 4401
	CloseNotParticipant = 4403
)

// typingRateLimit is the minimum spacing between typing broadcasts of one
// connection
const typingRateLimit = time.Second

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	sendBuffer = 64
)

// Authenticator resolves a bearer access token to its active user
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
}

// RoleSource resolves event membership for the handshake
type RoleSource = authz.RoleSource

// Broadcaster publishes typing indicators to the event's group
type Broadcaster interface {
	PublishEvent(ctx context.Context, eventID int64, messageType string, payload any, senderID *int64)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Gateway accepts event-room WebSocket connections, bridges the broker group
// to each client and handles the client-to-server message set.
type Gateway struct {
	broker         realtime.Broker
	broadcaster    Broadcaster
	auth           Authenticator
	roles          RoleSource
	maxMessageSize int
	metrics        *metrics.Metrics
}

// NewGateway creates a new WebSocket gateway
func NewGateway(broker realtime.Broker, broadcaster Broadcaster, auth Authenticator, roles RoleSource, maxMessageSize int, m *metrics.Metrics) *Gateway {
	return &Gateway{
		broker:         broker,
		broadcaster:    broadcaster,
		auth:           auth,
		roles:          roles,
		maxMessageSize: maxMessageSize,
		metrics:        m,
	}
}

// client is one accepted connection
type client struct {
	gateway *Gateway
	conn    *websocket.Conn
	send    chan []byte
	sub     *realtime.Subscription

	eventID    int64
	userID     int64
	userName   string
	lastTyping time.Time
}

// ServeWS handles GET /ws/events/:event_id. The token travels in the
// Authorization header or the token query parameter; the checks run after
// the upgrade so the close codes reach the client.
func (g *Gateway) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	eventID, err := strconv.ParseInt(c.Param("event_id"), 10, 64)
	if err != nil {
		closeWith(conn, CloseBadEventID, "invalid event id")
		return
	}

	token := bearerToken(c)
	if token == "" {
		closeWith(conn, CloseUnauthorized, "missing token")
		return
	}
	user, err := g.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		closeWith(conn, CloseUnauthorized, "invalid token")
		return
	}

	// The role cache inside the resolver lives for this handshake only.
	resolver := authz.NewResolver(g.roles)
	isParticipant, err := resolver.IsParticipant(c.Request.Context(), eventID, user.ID)
	if err != nil || !isParticipant {
		closeWith(conn, CloseNotParticipant, "not a participant")
		return
	}

	cl := &client{
		gateway:  g,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		sub:      g.broker.Subscribe(realtime.GroupName(eventID)),
		eventID:  eventID,
		userID:   user.ID,
		userName: user.DisplayName(),
	}
	g.metrics.WSConnectionOpened()
	logger.Info("WebSocket connected",
		zap.Int64("event_id", eventID),
		zap.Int64("user_id", user.ID))

	go cl.writePump()
	go cl.brokerPump()
	go cl.readPump()
}

func bearerToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}

// readPump consumes client frames until the connection dies
func (c *client) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(int64(c.gateway.maxMessageSize))
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		var frame realtime.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Debug("Ignoring malformed client frame", zap.Int64("user_id", c.userID))
			continue
		}

		switch frame.Type {
		case "ping":
			c.enqueue([]byte(`{"type":"pong"}`))
		case "chat.typing":
			c.handleTyping(frame.Payload)
		default:
			logger.Debug("Ignoring client frame",
				zap.String("type", frame.Type),
				zap.Int64("user_id", c.userID))
		}
	}
}

// handleTyping validates and rate-limits a typing indicator, then broadcasts
// it. A payload whose event_id does not match the connection is dropped.
func (c *client) handleTyping(payload json.RawMessage) {
	var body struct {
		EventID int64 `json:"event_id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.EventID != c.eventID {
		logger.Debug("Dropping typing frame with mismatched event",
			zap.Int64("event_id", c.eventID),
			zap.Int64("user_id", c.userID))
		return
	}

	now := time.Now()
	if now.Sub(c.lastTyping) < typingRateLimit {
		return
	}
	c.lastTyping = now

	senderID := c.userID
	c.gateway.broadcaster.PublishEvent(context.Background(), c.eventID, "chat.typing", map[string]any{
		"event_id":  c.eventID,
		"user_id":   c.userID,
		"user_name": c.userName,
	}, &senderID)
}

// brokerPump forwards group broadcasts to the client frame by frame. It
// owns the send channel: the channel closes only after the subscription has
// drained, so no late enqueue can hit a closed channel.
func (c *client) brokerPump() {
	defer close(c.send)
	for data := range c.sub.C {
		var envelope realtime.Broadcast
		if err := json.Unmarshal(data, &envelope); err != nil {
			logger.Warn("Dropping malformed broadcast envelope", zap.Error(err))
			continue
		}

		// The originator of a typing indicator does not hear its own echo.
		if envelope.MessageType == "chat.typing" &&
			envelope.SenderID != nil && *envelope.SenderID == c.userID {
			continue
		}

		frame, err := json.Marshal(realtime.Frame{
			Type:    envelope.MessageType,
			Payload: envelope.Payload,
		})
		if err != nil {
			continue
		}
		if len(frame) > c.gateway.maxMessageSize {
			logger.Warn("Outbound frame exceeds max size, dropping",
				zap.Int64("event_id", c.eventID),
				zap.String("message_type", envelope.MessageType),
				zap.Int("size", len(frame)))
			continue
		}
		c.enqueue(frame)
	}
}

// enqueue offers a frame to the write pump. The buffer is a bounded ring:
// when full, the oldest frame is dropped so the newest wins.
func (c *client) enqueue(frame []byte) {
	for {
		select {
		case c.send <- frame:
			return
		default:
		}
		select {
		case <-c.send:
			c.gateway.metrics.WSMessageDropped()
		default:
		}
	}
}

// writePump writes frames and keepalive pings until the connection dies
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// teardown runs once when the read pump exits. Unsubscribing closes the
// subscription channel, which lets the broker pump drain and release the
// send channel in turn.
func (c *client) teardown() {
	c.gateway.broker.Unsubscribe(c.sub)
	_ = c.conn.Close()
	c.gateway.metrics.WSConnectionClosed()
	logger.Info("WebSocket disconnected",
		zap.Int64("event_id", c.eventID),
		zap.Int64("user_id", c.userID))
}
