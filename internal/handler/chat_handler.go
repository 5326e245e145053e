package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"amoura-chat/internal/domain"
	"amoura-chat/internal/events"
	"amoura-chat/internal/notify"
	"amoura-chat/internal/repository"
	"amoura-chat/internal/services"
	"amoura-chat/internal/transport/httpdto"
	apperrors "amoura-chat/pkg/errors"
	"amoura-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PresenceChecker reports whether a user holds a live socket anywhere.
type PresenceChecker interface {
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Pusher hands a message notification to the push pipeline.
type Pusher interface {
	PushNewMessage(ctx context.Context, req notify.PushRequest)
}

type ChatHandler struct {
	chats    *services.ChatService
	fanout   *events.Fanout
	presence PresenceChecker
	notifier Pusher
	log      *logger.Logger
}

func NewChatHandler(chats *services.ChatService, fanout *events.Fanout, presence PresenceChecker, notifier Pusher, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chats:    chats,
		fanout:   fanout,
		presence: presence,
		notifier: notifier,
		log:      log,
	}
}

// Create returns the pair's conversation, creating or reactivating it as
// needed.
func (h *ChatHandler) Create(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}

	var req httpdto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request"))
		return
	}

	conv, err := h.chats.CreateConversation(c.Request.Context(), userID, req.ReceiverID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.fanout.ToParticipants(c.Request.Context(), conv, userID, events.EventNewConversation, "", httpdto.NewConversationResponse(conv, nil))
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewConversationResponse(conv, nil)))
}

func (h *ChatHandler) List(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}

	status := domain.ConversationStatus(c.DefaultQuery("status", string(domain.ConversationActive)))
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	items, err := h.chats.ListConversations(c.Request.Context(), userID, status, limit, offset)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	responses := make([]httpdto.ConversationResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, httpdto.NewConversationResponse(item.Conversation, item.LastMessage))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(responses))
}

func (h *ChatHandler) GetByID(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}
	conversationID, err := uuid.Parse(c.Param("conversationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id"))
		return
	}

	conv, err := h.chats.GetConversation(c.Request.Context(), userID, conversationID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewConversationResponse(conv, nil)))
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}

	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request"))
		return
	}

	h.sendAndDeliver(c, userID, req.ConversationID, services.SendMessageInput{
		Content:     req.Content,
		MessageType: req.MessageType,
		MediaData:   req.MediaData,
		Metadata:    req.Metadata,
	})
}

// SendTemplate sends a catalog template through the normal message path,
// stamping the template id into the message metadata.
func (h *ChatHandler) SendTemplate(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}
	conversationID, err := uuid.Parse(c.Param("conversationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id"))
		return
	}
	tmpl, ok := services.TemplateByID(c.Param("templateId"))
	if !ok {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("template not found"))
		return
	}

	h.sendAndDeliver(c, userID, conversationID, services.SendMessageInput{
		Content:     tmpl.Text,
		MessageType: domain.MessageText,
		Metadata: &domain.MessageMetadata{
			TemplateID:       tmpl.ID,
			TemplateCategory: tmpl.Category,
		},
	})
}

// sendAndDeliver persists the message, fans it out to the conversation room
// and the receiver's user room, and falls back to a push notification when
// the receiver holds no live socket.
func (h *ChatHandler) sendAndDeliver(c *gin.Context, userID, conversationID uuid.UUID, input services.SendMessageInput) {
	msg, err := h.chats.SendMessage(c.Request.Context(), userID, conversationID, input)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	ctx := c.Request.Context()
	h.fanout.ToConversation(ctx, conversationID, events.EventNewMessage, "", msg)
	h.fanout.ToUser(ctx, msg.ReceiverID, events.EventNewMessage, "", msg)

	online, err := h.presence.IsOnline(ctx, msg.ReceiverID)
	if err != nil {
		h.log.WarnfCtx(ctx, "presence lookup failed for %s: %v", msg.ReceiverID, err)
	} else if !online {
		h.notifier.PushNewMessage(ctx, notify.PushRequest{
			UserID:         msg.ReceiverID,
			SenderID:       msg.SenderID,
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			Preview:        messagePreview(msg),
		})
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(msg))
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}
	conversationID, err := uuid.Parse(c.Param("conversationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id"))
		return
	}

	window := repository.MessageWindow{}
	window.Limit, _ = strconv.Atoi(c.Query("limit"))
	window.Offset, _ = strconv.Atoi(c.Query("offset"))
	if before := c.Query("before"); before != "" {
		if t, err := time.Parse(time.RFC3339, before); err == nil {
			window.Before = &t
		}
	}
	if after := c.Query("after"); after != "" {
		if t, err := time.Parse(time.RFC3339, after); err == nil {
			window.After = &t
		}
	}

	messages, err := h.chats.GetMessages(c.Request.Context(), userID, conversationID, window)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(messages))
}

// MarkRead flips a message to read and notifies the conversation room.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id"))
		return
	}

	msg, err := h.chats.MarkMessageAsRead(c.Request.Context(), userID, messageID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.fanout.ToConversation(c.Request.Context(), msg.ConversationID, events.EventMessagesRead, "", gin.H{
		"conversationId": msg.ConversationID,
		"messageId":      msg.ID,
		"readerId":       userID,
		"readAt":         msg.ReadAt,
	})
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(msg))
}

func (h *ChatHandler) UpdateTyping(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}
	conversationID, err := uuid.Parse(c.Param("conversationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id"))
		return
	}

	var req httpdto.TypingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsTyping == nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request"))
		return
	}

	if err := h.chats.UpdateTypingStatus(c.Request.Context(), userID, conversationID, *req.IsTyping); err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.fanout.ToConversation(c.Request.Context(), conversationID, events.EventTypingIndicator, "", gin.H{
		"conversationId": conversationID,
		"userId":         userID,
		"isTyping":       *req.IsTyping,
	})
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"updated": true}))
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id"))
		return
	}

	msg, err := h.chats.DeleteMessage(c.Request.Context(), userID, messageID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.fanout.ToConversation(c.Request.Context(), msg.ConversationID, events.EventMessageDeleted, "", gin.H{
		"conversationId": msg.ConversationID,
		"messageId":      msg.ID,
	})
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *ChatHandler) UnreadCount(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}

	count, err := h.chats.GetUnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadCountResponse{UnreadCount: count}))
}

func (h *ChatHandler) Archive(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}
	conversationID, err := uuid.Parse(c.Param("conversationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id"))
		return
	}

	if err := h.chats.ArchiveConversation(c.Request.Context(), userID, conversationID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"archived": true}))
}

func (h *ChatHandler) Search(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}
	conversationID, err := uuid.Parse(c.Param("conversationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id"))
		return
	}

	query := c.Query("q")
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	messages, err := h.chats.SearchMessages(c.Request.Context(), userID, conversationID, query, limit, offset)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(messages))
}

func (h *ChatHandler) Stats(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}
	conversationID, err := uuid.Parse(c.Param("conversationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id"))
		return
	}

	stats, err := h.chats.GetConversationStats(c.Request.Context(), userID, conversationID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(stats))
}

// respondServiceError maps service errors onto HTTP responses. Missing
// conversations and membership failures share one ambiguous 404 so the
// API does not reveal whether a conversation exists.
func (h *ChatHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request"))
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("conversation not found or access denied"))
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("conflict"))
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
	default:
		h.log.ErrorfCtx(c.Request.Context(), "unhandled service error: %v", err)
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal server error"))
	}
}

func messagePreview(msg domain.Message) string {
	if msg.MessageType != domain.MessageText {
		return string(msg.MessageType)
	}
	preview := strings.TrimSpace(msg.Content)
	if runes := []rune(preview); len(runes) > 80 {
		preview = string(runes[:80])
	}
	return preview
}
