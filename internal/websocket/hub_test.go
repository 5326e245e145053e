package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(userID uuid.UUID) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Send:   make(chan []byte, 8),
		rooms:  make(map[string]bool),
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHubBroadcastToRoom(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	a := newTestClient(uuid.New())
	b := newTestClient(uuid.New())
	outsider := newTestClient(uuid.New())

	hub.Register(a)
	hub.Register(b)
	hub.Register(outsider)
	hub.Join(a, "conversation_1")
	hub.Join(b, "conversation_1")
	waitFor(t, func() bool { return hub.RoomSize("conversation_1") == 2 })

	hub.Broadcast("conversation_1", []byte("hello"), "")

	assert.Equal(t, "hello", string(<-a.Send))
	assert.Equal(t, "hello", string(<-b.Send))
	assert.Empty(t, outsider.Send)
}

func TestHubBroadcastExcludesOrigin(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	a := newTestClient(uuid.New())
	b := newTestClient(uuid.New())
	hub.Register(a)
	hub.Register(b)
	hub.Join(a, "room")
	hub.Join(b, "room")
	waitFor(t, func() bool { return hub.RoomSize("room") == 2 })

	hub.Broadcast("room", []byte("typing"), a.ID)

	assert.Equal(t, "typing", string(<-b.Send))
	assert.Empty(t, a.Send)
}

func TestHubUnregisterLeavesRooms(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	userID := uuid.New()
	c := newTestClient(userID)
	hub.Register(c)
	hub.Join(c, "room")
	waitFor(t, func() bool { return hub.RoomSize("room") == 1 })
	require.True(t, hub.UserHasClients(userID))

	hub.Unregister(c)
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
	assert.Equal(t, 0, hub.RoomSize("room"))
	assert.False(t, hub.UserHasClients(userID))

	// Send channel is closed on unregister.
	_, open := <-c.Send
	assert.False(t, open)
}

func TestHubLeaveRoom(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	c := newTestClient(uuid.New())
	hub.Register(c)
	hub.Join(c, "room")
	waitFor(t, func() bool { return hub.RoomSize("room") == 1 })

	hub.Leave(c, "room")
	waitFor(t, func() bool { return hub.RoomSize("room") == 0 })

	hub.Broadcast("room", []byte("nobody home"), "")
	assert.Empty(t, c.Send)
}
