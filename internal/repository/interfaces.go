package repository

import (
	"context"
	"time"

	"amoura-chat/internal/domain"

	"github.com/google/uuid"
)

// MessageWindow bounds a message listing.
type MessageWindow struct {
	Limit  int
	Offset int
	Before *time.Time
	After  *time.Time
}

type ConversationRepository interface {
	Create(ctx context.Context, c *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error)
	// GetByParticipants matches the unordered pair: both (a,b) and (b,a).
	GetByParticipants(ctx context.Context, a, b uuid.UUID) (domain.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status domain.ConversationStatus, limit, offset int) ([]domain.Conversation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ConversationStatus) error
	SetTyping(ctx context.Context, id uuid.UUID, slot domain.ParticipantSlot, typing bool) error
	// ApplySend advances the last-message pointer and adjusts both
	// participants' counters in one atomic statement.
	ApplySend(ctx context.Context, id uuid.UUID, senderSlot domain.ParticipantSlot, messageID uuid.UUID, at time.Time) error
	// ApplyRead decrements the reader's unread counter (floored at zero)
	// and increments their read counter in one atomic statement.
	ApplyRead(ctx context.Context, id uuid.UUID, readerSlot domain.ParticipantSlot) error
	// SumUnread totals the unread counter for userID across every
	// conversation they participate in.
	SumUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Message, error)
	// ListByConversation returns non-deleted messages newest-first.
	ListByConversation(ctx context.Context, conversationID uuid.UUID, window MessageWindow) ([]domain.Message, error)
	// MarkDelivered flips every undelivered message addressed to receiverID
	// in the conversation, regardless of any paging window. Returns the
	// number of rows flipped.
	MarkDelivered(ctx context.Context, conversationID, receiverID uuid.UUID, at time.Time) (int64, error)
	// MarkRead conditionally flips the read flag; reports whether this call
	// performed the transition (false when already read).
	MarkRead(ctx context.Context, id, receiverID uuid.UUID, at time.Time) (bool, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, conversationID uuid.UUID, query string, limit, offset int) ([]domain.Message, error)
	CountByConversation(ctx context.Context, conversationID uuid.UUID) (int64, error)
	// GetLatest returns the newest non-deleted message, ErrNotFound when
	// the conversation has none.
	GetLatest(ctx context.Context, conversationID uuid.UUID) (domain.Message, error)
}
