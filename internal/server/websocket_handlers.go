package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"gigboard/internal/auth"
	"gigboard/internal/middleware"
	"gigboard/internal/models"
	"gigboard/internal/notifications"
	"gigboard/internal/policy"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// chatFrame is an inbound websocket frame.
type chatFrame struct {
	Type       string `json:"type"`
	ContractID uint   `json:"contract_id"`
	Content    string `json:"content"`
}

// WebSocketUpgradeRequired rejects plain HTTP requests on websocket routes.
func WebSocketUpgradeRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// WebSocketChatHandler handles WebSocket connections for contract chat.
// Clients join contract rooms they can read and receive every message sent
// on those contracts, from any instance.
func (s *Server) WebSocketChatHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		id, _ := conn.Locals("identity").(*auth.Identity)
		a := policy.ActorFrom(id)
		if a == nil {
			_ = conn.WriteJSON(notifications.ChatEvent{Type: notifications.EventError, Payload: fiber.Map{"message": "You need to sign in."}})
			_ = conn.Close()
			return
		}

		ctx := context.Background()
		if s.shutdownCtx != nil {
			ctx = s.shutdownCtx
		}
		ctx = middleware.WithUserID(auth.WithIdentity(ctx, id), a.UserID)

		client, err := s.chatHub.Register(a.UserID, conn)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "chat websocket rejected", slog.String("error", err.Error()))
			_ = conn.WriteJSON(notifications.ChatEvent{Type: notifications.EventError, Payload: fiber.Map{"message": err.Error()}})
			_ = conn.Close()
			return
		}

		client.IncomingHandler = func(cl *notifications.Client, message []byte) {
			var frame chatFrame
			if err := json.Unmarshal(message, &frame); err != nil {
				sendChatError(cl, 0, "Invalid message format.")
				return
			}
			s.handleChatFrame(ctx, id, cl, frame)
		}

		welcome, _ := json.Marshal(notifications.ChatEvent{Type: "connected", Payload: fiber.Map{"user_id": a.UserID}})
		client.TrySend(welcome)

		go client.WritePump()
		client.ReadPump()
	})
}

// handleChatFrame re-reads the sender's profile for every join and message,
// so a suspension or sign-out takes effect on open sockets too.
func (s *Server) handleChatFrame(ctx context.Context, id *auth.Identity, cl *notifications.Client, frame chatFrame) {
	switch frame.Type {
	case "join":
		a := s.frameActor(ctx, id, cl, frame.ContractID)
		if a == nil {
			return
		}
		if err := s.chat.CanJoin(ctx, a, frame.ContractID); err != nil {
			sendChatError(cl, frame.ContractID, models.AsAppError(err).Message)
			return
		}
		s.chatHub.Join(cl, frame.ContractID)
		joined, _ := json.Marshal(notifications.ChatEvent{Type: notifications.EventJoined, ContractID: frame.ContractID})
		cl.TrySend(joined)

	case "leave":
		s.chatHub.Leave(cl, frame.ContractID)
		left, _ := json.Marshal(notifications.ChatEvent{Type: notifications.EventLeft, ContractID: frame.ContractID})
		cl.TrySend(left)

	case "message":
		a := s.frameActor(ctx, id, cl, frame.ContractID)
		if a == nil {
			return
		}
		// Delivery back to this client comes through the room broadcast.
		if _, err := s.chat.SendMessage(ctx, a, frame.ContractID, frame.Content); err != nil {
			sendChatError(cl, frame.ContractID, models.AsAppError(err).Message)
		}

	default:
		sendChatError(cl, frame.ContractID, "Unknown message type.")
	}
}

// frameActor returns the sender as currently stored, or nil after telling the
// client why it cannot act.
func (s *Server) frameActor(ctx context.Context, id *auth.Identity, cl *notifications.Client, contractID uint) *policy.Actor {
	if s.resolver == nil {
		return policy.ActorFrom(id)
	}
	fresh, err := s.resolver.Refresh(ctx, id)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "chat identity refresh failed", slog.String("error", err.Error()))
		sendChatError(cl, contractID, models.GenericErrorMessage)
		return nil
	}
	if fresh == nil {
		sendChatError(cl, contractID, "You need to sign in.")
		return nil
	}
	return policy.ActorFrom(fresh)
}

func sendChatError(cl *notifications.Client, contractID uint, message string) {
	payload, _ := json.Marshal(notifications.ChatEvent{
		Type:       notifications.EventError,
		ContractID: contractID,
		Payload:    fiber.Map{"message": message},
	})
	cl.TrySend(payload)
}
