package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageText    MessageType = "text"
	MessageImage   MessageType = "image"
	MessageVideo   MessageType = "video"
	MessageGift    MessageType = "gift"
	MessageAudio   MessageType = "audio"
	MessageSticker MessageType = "sticker"
)

// ValidMessageType reports whether t is one of the supported kinds.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageText, MessageImage, MessageVideo, MessageGift, MessageAudio, MessageSticker:
		return true
	}
	return false
}

// MediaData describes the attachment payload for non-text messages.
type MediaData struct {
	URL       string  `json:"url,omitempty"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Size      int64   `json:"size,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// Reaction is a single emoji reaction stored inside message metadata.
type Reaction struct {
	UserID    uuid.UUID `json:"userId"`
	Emoji     string    `json:"emoji"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageMetadata is the optional free-form structure attached to a message.
type MessageMetadata struct {
	ReplyTo          *uuid.UUID `json:"replyTo,omitempty"`
	Mentions         []string   `json:"mentions,omitempty"`
	Reactions        []Reaction `json:"reactions,omitempty"`
	TemplateID       string     `json:"templateId,omitempty"`
	TemplateCategory string     `json:"templateCategory,omitempty"`
}

// Message is a single message row. Delivery and read state are independent
// flags: delivered flips when the receiver next fetches the conversation,
// read flips only on an explicit read receipt. Deletion is a terminal soft
// flag; the row is retained.
type Message struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	ConversationID uuid.UUID        `gorm:"type:uuid;not null;index:idx_messages_conversation" json:"conversationId"`
	SenderID       uuid.UUID        `gorm:"type:uuid;not null" json:"senderId"`
	ReceiverID     uuid.UUID        `gorm:"type:uuid;not null;index:idx_messages_receiver" json:"receiverId"`
	Content        string           `gorm:"type:text;not null" json:"content"`
	MessageType    MessageType      `gorm:"type:varchar(16);not null;default:'text'" json:"messageType"`
	MediaData      *MediaData       `gorm:"serializer:json" json:"mediaData,omitempty"`
	Metadata       *MessageMetadata `gorm:"serializer:json" json:"metadata,omitempty"`
	IsRead         bool             `gorm:"not null;default:false" json:"isRead"`
	IsDelivered    bool             `gorm:"not null;default:false" json:"isDelivered"`
	IsDeleted      bool             `gorm:"not null;default:false" json:"isDeleted"`
	ReadAt         *time.Time       `json:"readAt,omitempty"`
	DeliveredAt    *time.Time       `json:"deliveredAt,omitempty"`
	CreatedAt      time.Time        `gorm:"default:CURRENT_TIMESTAMP;index:idx_messages_created,sort:desc" json:"createdAt"`
	UpdatedAt      time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Message) TableName() string {
	return "messages"
}
