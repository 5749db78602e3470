package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"gigboard/internal/cache"
	"gigboard/internal/middleware"
	"gigboard/internal/models"
	"gigboard/internal/notifications"
	"gigboard/internal/observability"
	"gigboard/internal/policy"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const maxMessageLength = 5000

// ChatDelivery pushes an event to everyone watching a contract.
type ChatDelivery interface {
	Deliver(ctx context.Context, contractID uint, event notifications.ChatEvent) error
}

// ChatService persists contract messages and hands them to the realtime channel.
type ChatService struct {
	base
	delivery ChatDelivery
}

func NewChatService(db *gorm.DB, views *cache.ViewCache, delivery ChatDelivery) *ChatService {
	return &ChatService{base: newBase(db, views), delivery: delivery}
}

// SendMessage stores a message from a contract participant and publishes it.
// A failed publish does not fail the send; clients re-read history on reconnect.
func (s *ChatService) SendMessage(ctx context.Context, actor *policy.Actor, contractID uint, content string) (*models.Message, error) {
	var msg *models.Message
	err := track(ctx, "send_message", func(ctx context.Context) error {
		content = strings.TrimSpace(content)
		if content == "" {
			return models.NewValidationError("Message cannot be empty.")
		}
		if utf8.RuneCountInString(content) > maxMessageLength {
			return models.NewValidationError("Message must be at most 5000 characters.")
		}

		st, err := s.store()
		if err != nil {
			return err
		}
		c, err := st.Contracts.GetByID(ctx, contractID)
		if err != nil {
			return err
		}
		if err := policy.CanWriteContract(actor, c); err != nil {
			return err
		}

		m := &models.Message{ContractID: c.ID, SenderID: actor.UserID, Content: content}
		if err := st.Messages.Create(ctx, m); err != nil {
			return err
		}
		if sender, err := st.Profiles.GetByID(ctx, actor.UserID); err == nil {
			m.Sender = sender
		}
		observability.ChatMessagesTotal.Inc()
		msg = m
		return nil
	}, attribute.Int64("contract.id", int64(contractID)))
	if err != nil {
		return nil, err
	}

	if s.delivery != nil {
		event := notifications.ChatEvent{Type: notifications.EventMessage, Payload: msg}
		if err := s.delivery.Deliver(ctx, contractID, event); err != nil {
			middleware.Logger.WarnContext(ctx, "chat publish failed",
				slog.Any("contract_id", contractID),
				slog.String("error", err.Error()),
			)
		}
	}
	return msg, nil
}

// History returns the most recent messages of a contract, oldest first.
func (s *ChatService) History(ctx context.Context, actor *policy.Actor, contractID uint) ([]models.Message, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	c, err := st.Contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanReadContract(actor, c); err != nil {
		return nil, err
	}
	return st.Messages.ListRecent(ctx, contractID, HistoryLimit)
}

// CanJoin reports whether the actor may watch a contract's room.
func (s *ChatService) CanJoin(ctx context.Context, actor *policy.Actor, contractID uint) error {
	st, err := s.store()
	if err != nil {
		return err
	}
	c, err := st.Contracts.GetByID(ctx, contractID)
	if err != nil {
		return err
	}
	return policy.CanReadContract(actor, c)
}
