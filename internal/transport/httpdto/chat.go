package httpdto

import (
	"time"

	"amoura-chat/internal/domain"

	"github.com/google/uuid"
)

type CreateConversationRequest struct {
	ReceiverID uuid.UUID `json:"receiverId" binding:"required"`
}

type SendMessageRequest struct {
	ConversationID uuid.UUID               `json:"conversationId" binding:"required"`
	Content        string                  `json:"content" binding:"required"`
	MessageType    domain.MessageType      `json:"messageType"`
	MediaData      *domain.MediaData       `json:"mediaData,omitempty"`
	Metadata       *domain.MessageMetadata `json:"metadata,omitempty"`
}

type TypingStatusRequest struct {
	IsTyping *bool `json:"isTyping" binding:"required"`
}

// ConversationResponse is a conversation as serialized for clients, with
// the counters projected into the nested messageStats shape and the
// latest message attached when listing.
type ConversationResponse struct {
	domain.Conversation
	MessageStats domain.MessageStats `json:"messageStats"`
	LastMessage  *domain.Message     `json:"lastMessage,omitempty"`
}

func NewConversationResponse(conv domain.Conversation, last *domain.Message) ConversationResponse {
	return ConversationResponse{
		Conversation: conv,
		MessageStats: conv.Stats(),
		LastMessage:  last,
	}
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unreadCount"`
}

type PresenceResponse struct {
	UserID   uuid.UUID  `json:"userId"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}
