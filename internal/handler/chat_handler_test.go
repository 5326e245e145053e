package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"amoura-chat/config"
	"amoura-chat/internal/domain"
	"amoura-chat/internal/events"
	"amoura-chat/internal/middleware"
	"amoura-chat/internal/notify"
	"amoura-chat/internal/repository/repotest"
	"amoura-chat/internal/services"
	"amoura-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedEvent struct {
	Room string
	Env  events.Envelope
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *capturingPublisher) Publish(_ context.Context, room string, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Room: room, Env: env})
	return nil
}

func (p *capturingPublisher) rooms() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Room)
	}
	return out
}

type fakePresence struct {
	online map[uuid.UUID]bool
}

func (p *fakePresence) IsOnline(_ context.Context, userID uuid.UUID) (bool, error) {
	return p.online[userID], nil
}

type fakePusher struct {
	mu     sync.Mutex
	pushed []notify.PushRequest
}

func (p *fakePusher) PushNewMessage(_ context.Context, req notify.PushRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, req)
}

type testEnv struct {
	router   *gin.Engine
	auth     *services.AuthService
	chats    *services.ChatService
	pub      *capturingPublisher
	presence *fakePresence
	pusher   *fakePusher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiryMin: 60}
	authService := services.NewAuthService(cfg)
	chatService := services.NewChatService(repotest.NewConversationRepo(), repotest.NewMessageRepo(), logger.NewNop())

	pub := &capturingPublisher{}
	fanout := events.NewFanout(pub, logger.NewNop())
	presence := &fakePresence{online: make(map[uuid.UUID]bool)}
	pusher := &fakePusher{}

	h := NewChatHandler(chatService, fanout, presence, pusher, logger.NewNop())

	router := gin.New()
	chat := router.Group("/api/chat")
	chat.Use(middleware.Auth(authService))
	{
		chat.POST("/conversations", h.Create)
		chat.GET("/conversations", h.List)
		chat.GET("/conversations/:conversationId", h.GetByID)
		chat.PUT("/conversations/:conversationId/typing", h.UpdateTyping)
		chat.PUT("/conversations/:conversationId/archive", h.Archive)
		chat.GET("/conversations/:conversationId/stats", h.Stats)
		chat.POST("/conversations/:conversationId/templates/:templateId/send", h.SendTemplate)
		chat.POST("/messages", h.SendMessage)
		chat.GET("/messages/:conversationId", h.GetMessages)
		chat.GET("/messages/:conversationId/search", h.Search)
		chat.PUT("/messages/:messageId/read", h.MarkRead)
		chat.DELETE("/messages/:messageId", h.DeleteMessage)
		chat.GET("/unread-count", h.UnreadCount)
	}

	return &testEnv{router: router, auth: authService, chats: chatService, pub: pub, presence: presence, pusher: pusher}
}

func (e *testEnv) request(t *testing.T, method, path string, asUser uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	token, err := e.auth.IssueAccessToken(asUser)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateConversationEndpoint(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := uuid.New(), uuid.New()

	rec := env.request(t, http.MethodPost, "/api/chat/conversations", alice, gin.H{
		"receiverId": bob,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID           uuid.UUID `json:"id"`
			User1ID      uuid.UUID `json:"user1Id"`
			MessageStats struct {
				User1 struct {
					UnreadCount int `json:"unreadCount"`
				} `json:"user1"`
			} `json:"messageStats"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, alice, resp.Data.User1ID)

	// The other participant is notified over their user room.
	assert.Contains(t, env.pub.rooms(), events.UserRoom(bob))
}

func TestCreateConversationSelfChat(t *testing.T) {
	env := newTestEnv(t)
	alice := uuid.New()

	rec := env.request(t, http.MethodPost, "/api/chat/conversations", alice, gin.H{
		"receiverId": alice,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/conversations", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForeignConversationLooksMissing(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, mallory := uuid.New(), uuid.New(), uuid.New()

	conv, err := env.chats.CreateConversation(context.Background(), alice, bob)
	require.NoError(t, err)

	// A non-participant gets the same 404 a missing conversation would.
	rec := env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/conversations/%s", conv.ID), mallory, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec2 := env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/conversations/%s", uuid.New()), alice, nil)
	require.Equal(t, http.StatusNotFound, rec2.Code)

	assert.JSONEq(t, rec.Body.String(), rec2.Body.String())
}

func TestSendMessageEndpointPushesWhenOffline(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv, err := env.chats.CreateConversation(context.Background(), alice, bob)
	require.NoError(t, err)

	rec := env.request(t, http.MethodPost, "/api/chat/messages", alice, gin.H{
		"conversationId": conv.ID, "content": "are you there?",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Bob is offline, so the message falls back to push.
	require.Len(t, env.pusher.pushed, 1)
	assert.Equal(t, bob, env.pusher.pushed[0].UserID)
	assert.Equal(t, "are you there?", env.pusher.pushed[0].Preview)

	// Both the conversation room and bob's user room see the event.
	rooms := env.pub.rooms()
	assert.Contains(t, rooms, events.ConversationRoom(conv.ID))
	assert.Contains(t, rooms, events.UserRoom(bob))
}

func TestSendMessageEndpointSkipsPushWhenOnline(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := uuid.New(), uuid.New()
	env.presence.online[bob] = true
	conv, err := env.chats.CreateConversation(context.Background(), alice, bob)
	require.NoError(t, err)

	rec := env.request(t, http.MethodPost, "/api/chat/messages", alice, gin.H{
		"conversationId": conv.ID, "content": "ping",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, env.pusher.pushed)
}

func TestSendTemplateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv, err := env.chats.CreateConversation(context.Background(), alice, bob)
	require.NoError(t, err)

	rec := env.request(t, http.MethodPost, fmt.Sprintf("/api/chat/conversations/%s/templates/icebreaker-2/send", conv.ID), alice, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data struct {
			Content  string `json:"content"`
			Metadata struct {
				TemplateID string `json:"templateId"`
			} `json:"metadata"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "icebreaker-2", resp.Data.Metadata.TemplateID)
	assert.NotEmpty(t, resp.Data.Content)

	rec = env.request(t, http.MethodPost, fmt.Sprintf("/api/chat/conversations/%s/templates/no-such/send", conv.ID), alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTypingEndpointEmitsEvent(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv, err := env.chats.CreateConversation(context.Background(), alice, bob)
	require.NoError(t, err)

	rec := env.request(t, http.MethodPut, fmt.Sprintf("/api/chat/conversations/%s/typing", conv.ID), alice, gin.H{"isTyping": true})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, env.pub.rooms(), events.ConversationRoom(conv.ID))
}

func TestMarkReadEndpointIdempotent(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv, err := env.chats.CreateConversation(context.Background(), alice, bob)
	require.NoError(t, err)
	msg, err := env.chats.SendMessage(context.Background(), alice, conv.ID, services.SendMessageInput{Content: "hello"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rec := env.request(t, http.MethodPut, fmt.Sprintf("/api/chat/messages/%s/read", msg.ID), bob, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	count, err := env.chats.GetUnreadCount(context.Background(), bob)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestUnreadCountEndpoint(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv, err := env.chats.CreateConversation(context.Background(), alice, bob)
	require.NoError(t, err)
	_, err = env.chats.SendMessage(context.Background(), alice, conv.ID, services.SendMessageInput{Content: "one"})
	require.NoError(t, err)
	_, err = env.chats.SendMessage(context.Background(), alice, conv.ID, services.SendMessageInput{Content: "two"})
	require.NoError(t, err)

	rec := env.request(t, http.MethodGet, "/api/chat/unread-count", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			UnreadCount int64 `json:"unreadCount"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Data.UnreadCount)
}

func TestDeleteMessageEndpoint(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv, err := env.chats.CreateConversation(context.Background(), alice, bob)
	require.NoError(t, err)
	msg, err := env.chats.SendMessage(context.Background(), alice, conv.ID, services.SendMessageInput{Content: "oops"})
	require.NoError(t, err)

	// Receiver cannot delete the sender's message.
	rec := env.request(t, http.MethodDelete, fmt.Sprintf("/api/chat/messages/%s", msg.ID), bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(t, http.MethodDelete, fmt.Sprintf("/api/chat/messages/%s", msg.ID), alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMessagePreviewTruncatesOnRunes(t *testing.T) {
	long := strings.Repeat("héllo ", 30)
	preview := messagePreview(domain.Message{MessageType: domain.MessageText, Content: long})

	assert.True(t, utf8.ValidString(preview))
	assert.Equal(t, 80, utf8.RuneCountInString(preview))

	short := messagePreview(domain.Message{MessageType: domain.MessageText, Content: "  hi  "})
	assert.Equal(t, "hi", short)

	media := messagePreview(domain.Message{MessageType: domain.MessageImage, Content: "ignored"})
	assert.Equal(t, "image", media)
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := uuid.New(), uuid.New()
	conv, err := env.chats.CreateConversation(context.Background(), alice, bob)
	require.NoError(t, err)
	_, err = env.chats.SendMessage(context.Background(), alice, conv.ID, services.SendMessageInput{Content: "let's get tacos"})
	require.NoError(t, err)

	rec := env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/messages/%s/search?q=TACOS", conv.ID), bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []struct {
			Content string `json:"content"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Contains(t, resp.Data[0].Content, "tacos")

	rec = env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/messages/%s/search?q=", conv.ID), bob, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
