// Package notifications delivers contract chat events to websocket clients,
// across instances through redis pub/sub.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"

	"gigboard/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const contractChannelPattern = "chat:contract:*"

// Notifier publishes chat payloads into redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier. A nil client turns publishing into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// ContractChannel derives the redis channel name for a contract.
func ContractChannel(contractID uint) string {
	return "chat:contract:" + strconv.FormatUint(uint64(contractID), 10)
}

// ParseContractChannel extracts the contract id from a channel name.
func ParseContractChannel(channel string) (uint, error) {
	var id uint
	if _, err := fmt.Sscanf(channel, "chat:contract:%d", &id); err != nil {
		return 0, fmt.Errorf("invalid contract channel %q: %w", channel, err)
	}
	return id, nil
}

// PublishContractMessage sends payload to every subscriber of the contract.
func (n *Notifier) PublishContractMessage(ctx context.Context, contractID uint, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, ContractChannel(contractID), payload).Err()
}

// StartChatSubscriber subscribes to every contract channel and calls
// onMessage for each payload until ctx is cancelled. It returns once the
// subscription is confirmed.
func (n *Notifier) StartChatSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, contractChannelPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", contractChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in chat subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
