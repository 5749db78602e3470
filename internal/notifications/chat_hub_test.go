package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, hub *ChatHub, userID uint) *Client {
	t.Helper()
	c := NewClient(hub, nil, userID)
	require.NoError(t, hub.attach(c))
	return c
}

func readEvent(t *testing.T, c *Client) ChatEvent {
	t.Helper()
	select {
	case raw := <-c.Send:
		var ev ChatEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return ChatEvent{}
	}
}

func TestChatHub_JoinLeaveAndBroadcast(t *testing.T) {
	hub := NewChatHub()
	alice := newTestClient(t, hub, 1)
	bob := newTestClient(t, hub, 2)
	outsider := newTestClient(t, hub, 3)

	hub.Join(alice, 10)
	hub.Join(bob, 10)
	hub.Join(outsider, 11)
	assert.Equal(t, 2, hub.RoomSize(10))

	hub.BroadcastToContract(10, ChatEvent{Type: EventMessage, Payload: "hi"})

	assert.Equal(t, uint(10), readEvent(t, alice).ContractID)
	assert.Equal(t, EventMessage, readEvent(t, bob).Type)
	assert.Empty(t, outsider.Send)

	hub.Leave(bob, 10)
	hub.BroadcastToContract(10, ChatEvent{Type: EventMessage, Payload: "again"})
	readEvent(t, alice)
	assert.Empty(t, bob.Send)
}

func TestChatHub_UnregisterCleansRooms(t *testing.T) {
	hub := NewChatHub()
	c := newTestClient(t, hub, 7)
	hub.Join(c, 1)
	hub.Join(c, 2)
	assert.True(t, hub.IsUserOnline(7))

	hub.UnregisterClient(c)
	assert.False(t, hub.IsUserOnline(7))
	assert.Zero(t, hub.RoomSize(1))
	assert.Zero(t, hub.RoomSize(2))

	// Unregistering twice is harmless.
	hub.UnregisterClient(c)
}

func TestChatHub_ConnectionLimit(t *testing.T) {
	hub := NewChatHub()
	for i := 0; i < maxConnsPerUser; i++ {
		newTestClient(t, hub, 1)
	}
	err := hub.attach(NewClient(hub, nil, 1))
	assert.ErrorIs(t, err, ErrConnectionLimit)
}

func TestChatHub_DeliverWithoutRedisBroadcastsLocally(t *testing.T) {
	hub := NewChatHub()
	c := newTestClient(t, hub, 1)
	hub.Join(c, 5)

	require.NoError(t, hub.Deliver(context.Background(), 5, ChatEvent{Type: EventMessage, Payload: map[string]string{"content": "local"}}))
	ev := readEvent(t, c)
	assert.Equal(t, uint(5), ev.ContractID)
}

func TestChatHub_DeliverThroughRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	hub := NewChatHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, NewNotifier(rdb)))

	c := newTestClient(t, hub, 1)
	hub.Join(c, 42)

	require.NoError(t, hub.Deliver(context.Background(), 42, ChatEvent{Type: EventMessage, Payload: map[string]string{"content": "via redis"}}))

	ev := readEvent(t, c)
	assert.Equal(t, EventMessage, ev.Type)
	assert.Equal(t, uint(42), ev.ContractID)
	payload, ok := ev.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "via redis", payload["content"])
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewChatHub()
	c := &Client{Hub: hub, UserID: 1, Send: make(chan []byte, 2)}

	c.TrySend([]byte("first"))
	c.TrySend([]byte("second"))
	c.TrySend([]byte("third"))

	// The oldest frame gives way to the notice; the new frame is dropped.
	assert.Equal(t, "second", string(<-c.Send))
	assert.Equal(t, string(dropNotice), string(<-c.Send))
	assert.Empty(t, c.Send)
}

func TestClient_InboundThrottle(t *testing.T) {
	hub := NewChatHub()
	c := NewClient(hub, nil, 1)
	handled := 0
	c.IncomingHandler = func(*Client, []byte) { handled++ }

	for i := 0; i < inboundBurst+5; i++ {
		c.handleInbound([]byte(`{}`))
	}
	assert.Equal(t, inboundBurst, handled)
	assert.Equal(t, string(throttleNotice), string(<-c.Send))
}

func TestContractChannel(t *testing.T) {
	assert.Equal(t, "chat:contract:9", ContractChannel(9))
	id, err := ParseContractChannel("chat:contract:9")
	require.NoError(t, err)
	assert.Equal(t, uint(9), id)

	_, err = ParseContractChannel("chat:conv:9")
	assert.Error(t, err)
}

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishContractMessage(context.Background(), 1, "x"))
	assert.NoError(t, n.StartChatSubscriber(context.Background(), func(string, string) {}))
}
