package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
	// ConversationBlocked exists in the data model but no endpoint in this
	// service sets it; blocking belongs to the moderation surface.
	ConversationBlocked ConversationStatus = "blocked"
)

// ParticipantSlot identifies which of a conversation's two fixed seats a
// user occupies. Conversations are strictly 1:1.
type ParticipantSlot int

const (
	SlotUser1 ParticipantSlot = 1
	SlotUser2 ParticipantSlot = 2
)

// Conversation is the durable 1:1 relationship anchoring all messages
// between two participants.
//
// The per-participant read/unread counters are stored as plain integer
// columns rather than a JSON blob so the repository can adjust them with a
// single UPDATE; concurrent senders and readers never go through a
// read-modify-write cycle in application code. The wire format still
// presents them as the nested messageStats structure via Stats().
type Conversation struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	User1ID       uuid.UUID          `gorm:"type:uuid;not null;index:idx_conversations_pair" json:"user1Id"`
	User2ID       uuid.UUID          `gorm:"type:uuid;not null;index:idx_conversations_pair" json:"user2Id"`
	Status        ConversationStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	IsTypingUser1 bool               `gorm:"not null;default:false" json:"isTypingUser1"`
	IsTypingUser2 bool               `gorm:"not null;default:false" json:"isTypingUser2"`
	LastMessageAt *time.Time         `gorm:"index:idx_conversations_last_message,sort:desc" json:"lastMessageAt,omitempty"`
	LastMessageID *uuid.UUID         `gorm:"type:uuid" json:"lastMessageId,omitempty"`

	User1ReadCount   int `gorm:"not null;default:0" json:"-"`
	User1UnreadCount int `gorm:"not null;default:0" json:"-"`
	User2ReadCount   int `gorm:"not null;default:0" json:"-"`
	User2UnreadCount int `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// CounterPair is one participant's read/unread bookkeeping.
type CounterPair struct {
	ReadCount   int `json:"readCount"`
	UnreadCount int `json:"unreadCount"`
}

// MessageStats is the external shape of the per-participant counters.
type MessageStats struct {
	User1 CounterPair `json:"user1"`
	User2 CounterPair `json:"user2"`
}

func (c Conversation) Stats() MessageStats {
	return MessageStats{
		User1: CounterPair{ReadCount: c.User1ReadCount, UnreadCount: c.User1UnreadCount},
		User2: CounterPair{ReadCount: c.User2ReadCount, UnreadCount: c.User2UnreadCount},
	}
}

// SlotOf reports which seat userID occupies, if any.
func (c Conversation) SlotOf(userID uuid.UUID) (ParticipantSlot, bool) {
	switch userID {
	case c.User1ID:
		return SlotUser1, true
	case c.User2ID:
		return SlotUser2, true
	}
	return 0, false
}

// HasParticipant reports whether userID is one of the two participants.
func (c Conversation) HasParticipant(userID uuid.UUID) bool {
	_, ok := c.SlotOf(userID)
	return ok
}

// OtherParticipant returns the counterpart of userID. The caller must have
// verified membership first.
func (c Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if userID == c.User1ID {
		return c.User2ID
	}
	return c.User1ID
}

// ParticipantIDs returns both seats in slot order.
func (c Conversation) ParticipantIDs() []uuid.UUID {
	return []uuid.UUID{c.User1ID, c.User2ID}
}

// IsTyping reports the last-known typing flag for the given seat.
func (c Conversation) IsTyping(slot ParticipantSlot) bool {
	if slot == SlotUser1 {
		return c.IsTypingUser1
	}
	return c.IsTypingUser2
}
