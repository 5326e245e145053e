package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type membershipRequest struct {
	client *Client
	room   string
	join   bool
}

// Hub tracks connected clients and their room memberships. Membership
// changes flow through the event loop; broadcasts only take the read
// lock, so fan-out never contends with itself.
type Hub struct {
	mu sync.RWMutex

	clients map[string]*Client
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	membership chan membershipRequest
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		membership: make(chan membershipRequest, 512),
	}
}

// Run processes registration and membership requests until ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case req := <-h.membership:
			if req.join {
				h.joinRoom(req.client, req.room)
			} else {
				h.leaveRoom(req.client, req.room)
			}
		}
	}
}

func (h *Hub) Register(client *Client)   { h.register <- client }
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

func (h *Hub) Join(client *Client, room string) {
	h.membership <- membershipRequest{client: client, room: room, join: true}
}

func (h *Hub) Leave(client *Client, room string) {
	h.membership <- membershipRequest{client: client, room: room, join: false}
}

// Broadcast delivers payload to every client in the room except the one
// whose ID matches exceptClientID. Pass an empty string to deliver to
// all members.
func (h *Hub) Broadcast(room string, payload []byte, exceptClientID string) {
	h.mu.RLock()
	for c := range h.rooms[room] {
		if exceptClientID != "" && c.ID == exceptClientID {
			continue
		}
		c.Enqueue(payload)
	}
	h.mu.RUnlock()
}

// UserHasClients reports whether the user still holds any connection on
// this instance. Used to decide when to flip presence offline.
func (h *Hub) UserHasClients(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range client.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) joinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.joinRoom(room)
}

func (h *Hub) leaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	client.leaveRoom(room)
}
