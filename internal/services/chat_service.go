package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"amoura-chat/internal/domain"
	"amoura-chat/internal/repository"
	apperrors "amoura-chat/pkg/errors"
	"amoura-chat/pkg/logger"

	"github.com/google/uuid"
)

// ChatService is the sole holder of conversation and message business
// rules; every mutation path, HTTP or socket, funnels through it.
type ChatService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	log           *logger.Logger
}

func NewChatService(conversations repository.ConversationRepository, messages repository.MessageRepository, log *logger.Logger) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		log:           log,
	}
}

// SendMessageInput carries the caller-supplied part of a message.
type SendMessageInput struct {
	Content     string
	MessageType domain.MessageType
	MediaData   *domain.MediaData
	Metadata    *domain.MessageMetadata
}

// ConversationWithLast pairs a conversation with its newest non-deleted
// message for listing responses.
type ConversationWithLast struct {
	Conversation domain.Conversation
	LastMessage  *domain.Message
}

// ConversationStats is the read-only projection served by the stats
// endpoint.
type ConversationStats struct {
	ConversationID uuid.UUID           `json:"conversationId"`
	MessageCount   int64               `json:"messageCount"`
	LastMessageAt  *time.Time          `json:"lastMessageAt,omitempty"`
	Stats          domain.MessageStats `json:"stats"`
	TypingStatus   TypingStatus        `json:"typingStatus"`
}

type TypingStatus struct {
	User1Typing bool `json:"user1Typing"`
	User2Typing bool `json:"user2Typing"`
}

// CreateConversation returns the conversation for the unordered pair,
// creating it if absent and reactivating it if archived. Calling it twice,
// in either argument order, never yields two rows.
func (s *ChatService) CreateConversation(ctx context.Context, userA, userB uuid.UUID) (domain.Conversation, error) {
	if userA == uuid.Nil || userB == uuid.Nil {
		return domain.Conversation{}, apperrors.ErrInvalidInput
	}
	// The self-chat invariant is enforced here, not just at the route
	// layer, so internal callers cannot create degenerate rows either.
	if userA == userB {
		return domain.Conversation{}, apperrors.ErrInvalidInput
	}

	existing, err := s.conversations.GetByParticipants(ctx, userA, userB)
	if err == nil {
		if existing.Status == domain.ConversationArchived {
			if err := s.conversations.UpdateStatus(ctx, existing.ID, domain.ConversationActive); err != nil {
				return domain.Conversation{}, err
			}
			existing.Status = domain.ConversationActive
		}
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return domain.Conversation{}, err
	}

	conv := domain.Conversation{
		ID:        uuid.New(),
		User1ID:   userA,
		User2ID:   userB,
		Status:    domain.ConversationActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.conversations.Create(ctx, &conv); err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

// GetConversation returns the conversation if the caller participates in
// it.
func (s *ChatService) GetConversation(ctx context.Context, userID, conversationID uuid.UUID) (domain.Conversation, error) {
	return s.authorizedConversation(ctx, userID, conversationID)
}

// ListConversations returns the caller's conversations, each enriched with
// its most recent non-deleted message.
func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID, status domain.ConversationStatus, limit, offset int) ([]ConversationWithLast, error) {
	if limit <= 0 {
		limit = 20
	}
	conversations, err := s.conversations.ListForUser(ctx, userID, status, limit, offset)
	if err != nil {
		return nil, err
	}

	enriched := make([]ConversationWithLast, 0, len(conversations))
	for _, conv := range conversations {
		item := ConversationWithLast{Conversation: conv}
		last, err := s.messages.GetLatest(ctx, conv.ID)
		if err == nil {
			item.LastMessage = &last
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		enriched = append(enriched, item)
	}
	return enriched, nil
}

// SendMessage inserts a message from senderID into the conversation,
// derives the receiver as the other participant, and advances the
// conversation's last-message pointer and counters.
func (s *ChatService) SendMessage(ctx context.Context, senderID, conversationID uuid.UUID, input SendMessageInput) (domain.Message, error) {
	if strings.TrimSpace(input.Content) == "" {
		return domain.Message{}, apperrors.ErrInvalidInput
	}
	messageType := input.MessageType
	if messageType == "" {
		messageType = domain.MessageText
	}
	if !domain.ValidMessageType(messageType) {
		return domain.Message{}, apperrors.ErrInvalidInput
	}

	conv, err := s.authorizedConversation(ctx, senderID, conversationID)
	if err != nil {
		return domain.Message{}, err
	}

	senderSlot, _ := conv.SlotOf(senderID)
	now := time.Now()
	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     conv.OtherParticipant(senderID),
		Content:        input.Content,
		MessageType:    messageType,
		MediaData:      input.MediaData,
		Metadata:       input.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.messages.Create(ctx, &msg); err != nil {
		return domain.Message{}, err
	}

	if err := s.conversations.ApplySend(ctx, conv.ID, senderSlot, msg.ID, now); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// GetMessages returns non-deleted messages newest-first and, as a side
// effect, marks every undelivered message addressed to the caller in this
// conversation as delivered. The bulk update is unconditional and not
// limited to the returned page.
func (s *ChatService) GetMessages(ctx context.Context, userID, conversationID uuid.UUID, window repository.MessageWindow) ([]domain.Message, error) {
	if _, err := s.authorizedConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByConversation(ctx, conversationID, window)
	if err != nil {
		return nil, err
	}

	if _, err := s.messages.MarkDelivered(ctx, conversationID, userID, time.Now()); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkMessageAsRead flips the read flag for a message addressed to userID
// and adjusts the conversation counters. Idempotent: only the call that
// performs the transition touches the counters, so racing receipts from
// the HTTP endpoint and the socket channel cannot double-apply.
func (s *ChatService) MarkMessageAsRead(ctx context.Context, userID, messageID uuid.UUID) (domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if msg.ReceiverID != userID {
		s.log.InfofCtx(ctx, "read receipt denied: user %s is not the receiver of message %s", userID, messageID)
		return domain.Message{}, apperrors.ErrForbidden
	}
	if msg.IsRead {
		return msg, nil
	}

	now := time.Now()
	flipped, err := s.messages.MarkRead(ctx, messageID, userID, now)
	if err != nil {
		return domain.Message{}, err
	}
	if !flipped {
		return msg, nil
	}
	msg.IsRead = true
	msg.ReadAt = &now

	conv, err := s.conversations.GetByID(ctx, msg.ConversationID)
	if err != nil {
		return domain.Message{}, err
	}
	readerSlot, ok := conv.SlotOf(userID)
	if !ok {
		return domain.Message{}, apperrors.ErrForbidden
	}
	if err := s.conversations.ApplyRead(ctx, conv.ID, readerSlot); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// UpdateTypingStatus records the caller's last-known typing state on their
// seat of the conversation.
func (s *ChatService) UpdateTypingStatus(ctx context.Context, userID, conversationID uuid.UUID, isTyping bool) error {
	conv, err := s.authorizedConversation(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	slot, _ := conv.SlotOf(userID)
	return s.conversations.SetTyping(ctx, conv.ID, slot, isTyping)
}

// DeleteMessage soft-deletes a message. Only the author may delete.
// The conversation's last-message pointer is intentionally left untouched
// even when the deleted message is the most recent one; listings fall back
// to the newest surviving message.
func (s *ChatService) DeleteMessage(ctx context.Context, userID, messageID uuid.UUID) (domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if msg.SenderID != userID {
		s.log.InfofCtx(ctx, "delete denied: user %s is not the sender of message %s", userID, messageID)
		return domain.Message{}, apperrors.ErrForbidden
	}
	if msg.IsDeleted {
		return msg, nil
	}
	if err := s.messages.SoftDelete(ctx, messageID); err != nil {
		return domain.Message{}, err
	}
	msg.IsDeleted = true
	return msg, nil
}

// GetUnreadCount totals the caller's unread counters across all their
// conversations.
func (s *ChatService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.conversations.SumUnread(ctx, userID)
}

// ArchiveConversation marks the conversation archived. Archived
// conversations drop out of default listings and are reactivated by the
// next CreateConversation for the same pair.
func (s *ChatService) ArchiveConversation(ctx context.Context, userID, conversationID uuid.UUID) error {
	conv, err := s.authorizedConversation(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	return s.conversations.UpdateStatus(ctx, conv.ID, domain.ConversationArchived)
}

// SearchMessages runs a case-insensitive substring match over non-deleted
// message content in the conversation.
func (s *ChatService) SearchMessages(ctx context.Context, userID, conversationID uuid.UUID, query string, limit, offset int) ([]domain.Message, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.ErrInvalidInput
	}
	if _, err := s.authorizedConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.messages.Search(ctx, conversationID, query, limit, offset)
}

// GetConversationStats aggregates message counts, counters and typing
// flags for a conversation the caller participates in.
func (s *ChatService) GetConversationStats(ctx context.Context, userID, conversationID uuid.UUID) (ConversationStats, error) {
	conv, err := s.authorizedConversation(ctx, userID, conversationID)
	if err != nil {
		return ConversationStats{}, err
	}

	count, err := s.messages.CountByConversation(ctx, conv.ID)
	if err != nil {
		return ConversationStats{}, err
	}

	stats := ConversationStats{
		ConversationID: conv.ID,
		MessageCount:   count,
		Stats:          conv.Stats(),
		TypingStatus: TypingStatus{
			User1Typing: conv.IsTyping(domain.SlotUser1),
			User2Typing: conv.IsTyping(domain.SlotUser2),
		},
	}

	last, err := s.messages.GetLatest(ctx, conv.ID)
	if err == nil {
		stats.LastMessageAt = &last.CreatedAt
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return ConversationStats{}, err
	}
	return stats, nil
}

// authorizedConversation loads the conversation and checks membership.
// Not-found and not-a-participant stay distinct internally for logging;
// the handler layer merges them into one ambiguous response so callers
// cannot probe for the existence of conversations they are not part of.
func (s *ChatService) authorizedConversation(ctx context.Context, userID, conversationID uuid.UUID) (domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !conv.HasParticipant(userID) {
		s.log.InfofCtx(ctx, "access denied: user %s is not a participant of conversation %s", userID, conversationID)
		return domain.Conversation{}, apperrors.ErrForbidden
	}
	return conv, nil
}
