package notifications

import (
	"log/slog"
	"time"

	"gigboard/internal/middleware"
	"gigboard/internal/observability"

	"github.com/gofiber/websocket/v2"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16384

	sendBuffer = 256

	// Inbound frames per second, with a small burst.
	inboundRate  = 5
	inboundBurst = 10
)

var (
	dropNotice     = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)
	throttleNotice = []byte(`{"type":"error","payload":{"message":"You are sending messages too quickly."}}`)
)

// WSHub is implemented by hubs that own clients.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is the middleman between one websocket connection and its hub.
type Client struct {
	Hub WSHub

	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	UserID uint

	// IncomingHandler is called for every inbound frame within the rate limit.
	IncomingHandler func(*Client, []byte)

	limiter *rate.Limiter
}

// NewClient creates a Client with its own inbound limiter.
func NewClient(hub WSHub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		Hub:     hub,
		Conn:    conn,
		UserID:  userID,
		Send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(rate.Limit(inboundRate), inboundBurst),
	}
}

// allowInbound reports whether another inbound frame fits the rate limit.
func (c *Client) allowInbound() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}

// handleInbound applies the rate limit and dispatches one frame.
func (c *Client) handleInbound(message []byte) {
	if !c.allowInbound() {
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "throttled").Inc()
		c.TrySend(throttleNotice)
		return
	}
	if c.IncomingHandler != nil {
		c.IncomingHandler(c, message)
	}
}

// ReadPump pumps messages from the websocket connection to the handler.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed", slog.Any("user_id", c.UserID), slog.String("error", err.Error()))
			}
			break
		}
		c.handleInbound(message)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. When the buffer is full the
// message is dropped, the oldest queued frame makes room for a drop notice,
// and the client re-fetches history when it sees that notice.
func (c *Client) TrySend(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		middleware.Logger.Warn("websocket buffer full, message dropped",
			slog.Any("user_id", c.UserID), slog.String("hub", c.Hub.Name()))

		select {
		case <-c.Send:
		default:
		}
		select {
		case c.Send <- dropNotice:
		default:
		}
	}
}
