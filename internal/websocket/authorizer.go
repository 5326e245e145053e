package websocket

import (
	"context"
	"errors"
	"strings"

	"amoura-chat/internal/events"
	"amoura-chat/internal/repository"
	apperrors "amoura-chat/pkg/errors"

	"github.com/google/uuid"
)

// RoomAuthorizer decides whether a user may join a room. Users always own
// their user room; conversation rooms require participation.
type RoomAuthorizer struct {
	conversations repository.ConversationRepository
}

func NewRoomAuthorizer(conversations repository.ConversationRepository) *RoomAuthorizer {
	return &RoomAuthorizer{conversations: conversations}
}

func (a *RoomAuthorizer) CanJoin(ctx context.Context, userID uuid.UUID, room string) (bool, error) {
	if room == events.UserRoom(userID) {
		return true, nil
	}

	if strings.HasPrefix(room, "conversation_") {
		convID, err := uuid.Parse(strings.TrimPrefix(room, "conversation_"))
		if err != nil {
			return false, nil
		}
		conv, err := a.conversations.GetByID(ctx, convID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return conv.HasParticipant(userID), nil
	}

	return false, nil
}
