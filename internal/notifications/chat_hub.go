package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"gigboard/internal/middleware"
	"gigboard/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const maxConnsPerUser = 12

// ErrConnectionLimit is returned by Register when a user has too many sockets open.
var ErrConnectionLimit = errors.New("user connection limit reached")

// Chat event types.
const (
	EventMessage = "message"
	EventJoined  = "joined"
	EventLeft    = "left"
	EventError   = "error"
)

// ChatEvent is the envelope sent to websocket clients.
type ChatEvent struct {
	Type       string      `json:"type"`
	ContractID uint        `json:"contract_id,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
}

// ChatHub tracks websocket clients and the contract rooms they joined.
// Rooms are per connection, so two tabs can watch different contracts.
type ChatHub struct {
	mu sync.RWMutex

	// contractID -> clients in the room
	rooms map[uint]map[*Client]struct{}

	// client -> contract rooms it joined
	joined map[*Client]map[uint]struct{}

	// userID -> open clients
	userConns map[uint]map[*Client]struct{}

	notifier *Notifier
}

func NewChatHub() *ChatHub {
	return &ChatHub{
		rooms:     make(map[uint]map[*Client]struct{}),
		joined:    make(map[*Client]map[uint]struct{}),
		userConns: make(map[uint]map[*Client]struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *ChatHub) Name() string { return "chat hub" }

// Register creates a client for conn. It fails once the user has
// maxConnsPerUser sockets open.
func (h *ChatHub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	client := NewClient(h, conn, userID)
	if err := h.attach(client); err != nil {
		return nil, err
	}
	return client, nil
}

func (h *ChatHub) attach(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.userConns[client.UserID]
	if conns == nil {
		conns = make(map[*Client]struct{})
		h.userConns[client.UserID] = conns
	}
	if len(conns) >= maxConnsPerUser {
		return ErrConnectionLimit
	}
	conns[client] = struct{}{}
	h.joined[client] = make(map[uint]struct{})
	observability.WebSocketConnections.Inc()
	return nil
}

// UnregisterClient drops the client from every room it joined.
func (h *ChatHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rooms, ok := h.joined[client]
	if !ok {
		return
	}
	for contractID := range rooms {
		h.removeFromRoom(client, contractID)
	}
	delete(h.joined, client)

	if conns, ok := h.userConns[client.UserID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.userConns, client.UserID)
		}
	}
	observability.WebSocketConnections.Dec()
}

// Join adds the client to a contract room. Callers check access first.
func (h *ChatHub) Join(client *Client, contractID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rooms, ok := h.joined[client]
	if !ok {
		return
	}
	if h.rooms[contractID] == nil {
		h.rooms[contractID] = make(map[*Client]struct{})
	}
	h.rooms[contractID][client] = struct{}{}
	rooms[contractID] = struct{}{}
}

func (h *ChatHub) Leave(client *Client, contractID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rooms, ok := h.joined[client]; ok {
		delete(rooms, contractID)
	}
	h.removeFromRoom(client, contractID)
}

// removeFromRoom expects h.mu held.
func (h *ChatHub) removeFromRoom(client *Client, contractID uint) {
	if members, ok := h.rooms[contractID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, contractID)
		}
	}
}

// RoomSize returns the number of clients in a contract room.
func (h *ChatHub) RoomSize(contractID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[contractID])
}

// IsUserOnline reports whether the user has at least one open socket.
func (h *ChatHub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

// BroadcastToContract sends event to every client in the room on this instance.
func (h *ChatHub) BroadcastToContract(contractID uint, event ChatEvent) {
	event.ContractID = contractID
	payload, err := json.Marshal(event)
	if err != nil {
		middleware.Logger.Error("chat event marshal failed", slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[contractID] {
		client.TrySend(payload)
	}
}

// Deliver routes an event to a contract room. With redis wired it goes
// through the contract channel so every instance receives it; otherwise it
// is broadcast locally.
func (h *ChatHub) Deliver(ctx context.Context, contractID uint, event ChatEvent) error {
	h.mu.RLock()
	n := h.notifier
	h.mu.RUnlock()

	if !n.Enabled() {
		h.BroadcastToContract(contractID, event)
		return nil
	}
	event.ContractID = contractID
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.PublishContractMessage(ctx, contractID, string(payload))
}

// StartWiring subscribes to the contract channels and fans every published
// event out to the local room. Until it succeeds Deliver stays local.
func (h *ChatHub) StartWiring(ctx context.Context, n *Notifier) error {
	err := n.StartChatSubscriber(ctx, func(channel, payload string) {
		contractID, err := ParseContractChannel(channel)
		if err != nil {
			middleware.Logger.Warn("chat event on unknown channel", slog.String("channel", channel))
			return
		}
		var event ChatEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			middleware.Logger.Warn("chat event parse failed", slog.String("channel", channel), slog.String("error", err.Error()))
			return
		}
		if event.Type == "" {
			event.Type = EventMessage
		}
		h.BroadcastToContract(contractID, event)
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.notifier = n
	h.mu.Unlock()
	return nil
}

// Shutdown tells every client the server is going away and closes them.
func (h *ChatHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.userConns {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"type":"server_shutdown","payload":{"message":"Server is shutting down"}}`)); err != nil {
				middleware.Logger.Debug("shutdown notice failed", slog.Any("user_id", userID), slog.String("error", err.Error()))
			}
			_ = client.Conn.Close()
		}
	}

	h.rooms = make(map[uint]map[*Client]struct{})
	h.joined = make(map[*Client]map[uint]struct{})
	h.userConns = make(map[uint]map[*Client]struct{})
	return nil
}
