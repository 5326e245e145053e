package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"amoura-chat/internal/events"
	goredis "amoura-chat/internal/redis"
	"amoura-chat/internal/services"
	"amoura-chat/internal/transport/httpdto"
	"amoura-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// inboundFrame is what clients send over the socket.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type conversationFrame struct {
	ConversationID uuid.UUID `json:"conversationId"`
}

type markReadFrame struct {
	MessageID uuid.UUID `json:"messageId"`
}

// Handler upgrades authenticated HTTP requests to WebSocket connections
// and runs the per-connection read loop.
type Handler struct {
	auth       *services.AuthService
	chats      *services.ChatService
	hub        *Hub
	authorizer *RoomAuthorizer
	fanout     *events.Fanout
	presence   *goredis.PresenceStore
	log        *logger.Logger
}

func NewHandler(auth *services.AuthService, chats *services.ChatService, hub *Hub, authorizer *RoomAuthorizer, fanout *events.Fanout, presence *goredis.PresenceStore, log *logger.Logger) *Handler {
	return &Handler{
		auth:       auth,
		chats:      chats,
		hub:        hub,
		authorizer: authorizer,
		fanout:     fanout,
		presence:   presence,
		log:        log,
	}
}

// Connect authenticates via the token query parameter, upgrades the
// connection, and auto-joins the user's own room.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}

	claims, err := h.auth.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, userID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	h.hub.Join(client, events.UserRoom(userID))
	go client.WriteLoop(ctx)

	if err := h.presence.SetOnline(ctx, userID); err != nil {
		h.log.Errorf("failed to mark user %s online: %v", userID, err)
	}

	h.readLoop(ctx, client, conn)

	h.hub.Unregister(client)
	if !h.hub.UserHasClients(userID) {
		if err := h.presence.SetOffline(context.Background(), userID); err != nil {
			h.log.Errorf("failed to mark user %s offline: %v", userID, err)
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, client *Client, conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		h.handleFrame(ctx, client, frame)

		if err := h.presence.Heartbeat(ctx, client.UserID); err != nil {
			h.log.Warnf("presence heartbeat failed for %s: %v", client.UserID, err)
		}
	}
}

func (h *Handler) handleFrame(ctx context.Context, client *Client, frame inboundFrame) {
	switch frame.Event {
	case "join_conversation":
		var data conversationFrame
		if json.Unmarshal(frame.Data, &data) != nil {
			return
		}
		room := events.ConversationRoom(data.ConversationID)
		allowed, err := h.authorizer.CanJoin(ctx, client.UserID, room)
		if err != nil {
			h.log.Errorf("room authorization failed: %v", err)
			return
		}
		if allowed {
			h.hub.Join(client, room)
		}

	case "leave_conversation":
		var data conversationFrame
		if json.Unmarshal(frame.Data, &data) != nil {
			return
		}
		h.hub.Leave(client, events.ConversationRoom(data.ConversationID))

	case "typing_start", "typing_stop":
		var data conversationFrame
		if json.Unmarshal(frame.Data, &data) != nil {
			return
		}
		isTyping := frame.Event == "typing_start"
		if err := h.chats.UpdateTypingStatus(ctx, client.UserID, data.ConversationID, isTyping); err != nil {
			return
		}
		event := events.EventUserStoppedTyping
		if isTyping {
			event = events.EventUserTyping
		}
		h.fanout.ToConversation(ctx, data.ConversationID, event, client.ID, gin.H{
			"conversationId": data.ConversationID,
			"userId":         client.UserID,
			"isTyping":       isTyping,
		})

	case "mark_read":
		var data markReadFrame
		if json.Unmarshal(frame.Data, &data) != nil {
			return
		}
		msg, err := h.chats.MarkMessageAsRead(ctx, client.UserID, data.MessageID)
		if err != nil {
			return
		}
		h.fanout.ToConversation(ctx, msg.ConversationID, events.EventMessagesRead, client.ID, gin.H{
			"conversationId": msg.ConversationID,
			"messageId":      msg.ID,
			"readerId":       client.UserID,
			"readAt":         msg.ReadAt,
		})
	}
}
