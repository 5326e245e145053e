package repository

import (
	"context"
	"errors"
	"time"

	"amoura-chat/internal/domain"
	apperrors "amoura-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	res := r.db.WithContext(ctx).Create(c)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return apperrors.ErrConflict
		}
		return res.Error
	}
	return nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, apperrors.ErrNotFound
		}
		return domain.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) GetByParticipants(ctx context.Context, a, b uuid.UUID) (domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.WithContext(ctx).
		Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)", a, b, b, a).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, apperrors.ErrNotFound
		}
		return domain.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) ListForUser(ctx context.Context, userID uuid.UUID, status domain.ConversationStatus, limit, offset int) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	q := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.
		Order("last_message_at DESC NULLS LAST").
		Limit(limit).
		Offset(offset).
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *PostgresConversationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ConversationStatus) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) SetTyping(ctx context.Context, id uuid.UUID, slot domain.ParticipantSlot, typing bool) error {
	column := "is_typing_user1"
	if slot == domain.SlotUser2 {
		column = "is_typing_user2"
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Update(column, typing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ApplySend bumps the sender's read counter (a sender has read their own
// message) and the receiver's unread counter in a single UPDATE so
// concurrent sends never lose increments.
func (r *PostgresConversationRepository) ApplySend(ctx context.Context, id uuid.UUID, senderSlot domain.ParticipantSlot, messageID uuid.UUID, at time.Time) error {
	readCol, unreadCol := "user1_read_count", "user2_unread_count"
	if senderSlot == domain.SlotUser2 {
		readCol, unreadCol = "user2_read_count", "user1_unread_count"
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message_at": at,
			"last_message_id": messageID,
			readCol:           gorm.Expr(readCol+" + 1"),
			unreadCol:         gorm.Expr(unreadCol+" + 1"),
			"updated_at":      at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ApplyRead floors the unread decrement at zero inside the statement
// itself; two concurrent read receipts cannot drive the counter negative.
func (r *PostgresConversationRepository) ApplyRead(ctx context.Context, id uuid.UUID, readerSlot domain.ParticipantSlot) error {
	readCol, unreadCol := "user1_read_count", "user1_unread_count"
	if readerSlot == domain.SlotUser2 {
		readCol, unreadCol = "user2_read_count", "user2_unread_count"
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			unreadCol:    gorm.Expr("GREATEST("+unreadCol+" - 1, 0)"),
			readCol:      gorm.Expr(readCol+" + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) SumUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Raw(`SELECT COALESCE(SUM(CASE WHEN user1_id = ? THEN user1_unread_count ELSE user2_unread_count END), 0)
		     FROM conversations
		     WHERE user1_id = ? OR user2_id = ?`, userID, userID, userID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
