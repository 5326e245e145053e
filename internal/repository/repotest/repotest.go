package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"amoura-chat/internal/domain"
	"amoura-chat/internal/repository"
	apperrors "amoura-chat/pkg/errors"

	"github.com/google/uuid"
)

// ConversationRepo is an in-memory ConversationRepository.
type ConversationRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Conversation
}

func NewConversationRepo() *ConversationRepo {
	return &ConversationRepo{items: make(map[uuid.UUID]*domain.Conversation)}
}

func (r *ConversationRepo) Create(_ context.Context, c *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *ConversationRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return domain.Conversation{}, apperrors.ErrNotFound
	}
	return *c, nil
}

func (r *ConversationRepo) GetByParticipants(_ context.Context, a, b uuid.UUID) (domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if (c.User1ID == a && c.User2ID == b) || (c.User1ID == b && c.User2ID == a) {
			return *c, nil
		}
	}
	return domain.Conversation{}, apperrors.ErrNotFound
}

func (r *ConversationRepo) ListForUser(_ context.Context, userID uuid.UUID, status domain.ConversationStatus, limit, offset int) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Conversation
	for _, c := range r.items {
		// Empty status means unfiltered, matching the SQL repository.
		if status != "" && c.Status != status {
			continue
		}
		if c.User1ID == userID || c.User2ID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].LastMessageAt, out[j].LastMessageAt
		if ti == nil {
			return false
		}
		if tj == nil {
			return true
		}
		return ti.After(*tj)
	})
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ConversationRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.ConversationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}

func (r *ConversationRepo) SetTyping(_ context.Context, id uuid.UUID, slot domain.ParticipantSlot, typing bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if slot == domain.SlotUser1 {
		c.IsTypingUser1 = typing
	} else {
		c.IsTypingUser2 = typing
	}
	return nil
}

func (r *ConversationRepo) ApplySend(_ context.Context, id uuid.UUID, senderSlot domain.ParticipantSlot, messageID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if senderSlot == domain.SlotUser1 {
		c.User1ReadCount++
		c.User2UnreadCount++
	} else {
		c.User2ReadCount++
		c.User1UnreadCount++
	}
	c.LastMessageID = &messageID
	c.LastMessageAt = &at
	c.UpdatedAt = at
	return nil
}

func (r *ConversationRepo) ApplyRead(_ context.Context, id uuid.UUID, readerSlot domain.ParticipantSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if readerSlot == domain.SlotUser1 {
		if c.User1UnreadCount > 0 {
			c.User1UnreadCount--
		}
		c.User1ReadCount++
	} else {
		if c.User2UnreadCount > 0 {
			c.User2UnreadCount--
		}
		c.User2ReadCount++
	}
	return nil
}

func (r *ConversationRepo) SumUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, c := range r.items {
		if c.User1ID == userID {
			total += int64(c.User1UnreadCount)
		} else if c.User2ID == userID {
			total += int64(c.User2UnreadCount)
		}
	}
	return total, nil
}

// MessageRepo is an in-memory MessageRepository.
type MessageRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Message
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{items: make(map[uuid.UUID]*domain.Message)}
}

func (r *MessageRepo) Create(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.items[m.ID] = &cp
	return nil
}

func (r *MessageRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok {
		return domain.Message{}, apperrors.ErrNotFound
	}
	return *m, nil
}

func (r *MessageRepo) ListByConversation(_ context.Context, conversationID uuid.UUID, window repository.MessageWindow) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.items {
		if m.ConversationID != conversationID || m.IsDeleted {
			continue
		}
		if window.Before != nil && !m.CreatedAt.Before(*window.Before) {
			continue
		}
		if window.After != nil && !m.CreatedAt.After(*window.After) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if window.Offset > len(out) {
		window.Offset = len(out)
	}
	out = out[window.Offset:]
	limit := window.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MessageRepo) MarkDelivered(_ context.Context, conversationID, receiverID uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.items {
		if m.ConversationID == conversationID && m.ReceiverID == receiverID && !m.IsDelivered {
			m.IsDelivered = true
			t := at
			m.DeliveredAt = &t
			n++
		}
	}
	return n, nil
}

func (r *MessageRepo) MarkRead(_ context.Context, id, receiverID uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok || m.ReceiverID != receiverID || m.IsRead {
		return false, nil
	}
	m.IsRead = true
	t := at
	m.ReadAt = &t
	return true, nil
}

func (r *MessageRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	m.IsDeleted = true
	return nil
}

func (r *MessageRepo) Search(_ context.Context, conversationID uuid.UUID, query string, limit, offset int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	needle := strings.ToLower(query)
	for _, m := range r.items {
		if m.ConversationID != conversationID || m.IsDeleted {
			continue
		}
		if strings.Contains(strings.ToLower(m.Content), needle) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit <= 0 {
		limit = 20
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MessageRepo) CountByConversation(_ context.Context, conversationID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.items {
		if m.ConversationID == conversationID && !m.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (r *MessageRepo) GetLatest(_ context.Context, conversationID uuid.UUID) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Message
	for _, m := range r.items {
		if m.ConversationID != conversationID || m.IsDeleted {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	if latest == nil {
		return domain.Message{}, apperrors.ErrNotFound
	}
	return *latest, nil
}
