package httpdto

import "github.com/google/uuid"

type InitiateCallRequest struct {
	ConversationID uuid.UUID `json:"conversationId" binding:"required"`
}
