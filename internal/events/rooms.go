package events

import "github.com/google/uuid"

// Room name prefixes. Every user joins their own user room on connect;
// conversation rooms are joined explicitly after an authorization check.
const (
	userRoomPrefix         = "user_"
	conversationRoomPrefix = "conversation_"
)

func UserRoom(userID uuid.UUID) string {
	return userRoomPrefix + userID.String()
}

func ConversationRoom(conversationID uuid.UUID) string {
	return conversationRoomPrefix + conversationID.String()
}

// RoomPatterns are the pub/sub patterns a bridge subscribes to.
func RoomPatterns() []string {
	return []string{userRoomPrefix + "*", conversationRoomPrefix + "*"}
}
