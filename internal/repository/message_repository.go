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

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *domain.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return apperrors.ErrConflict
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Message, error) {
	var m domain.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Message{}, apperrors.ErrNotFound
		}
		return domain.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, window MessageWindow) ([]domain.Message, error) {
	var messages []domain.Message
	q := r.db.WithContext(ctx).
		Where("conversation_id = ? AND is_deleted = false", conversationID)

	if window.Before != nil {
		q = q.Where("created_at < ?", *window.Before)
	}
	if window.After != nil {
		q = q.Where("created_at > ?", *window.After)
	}

	limit := window.Limit
	if limit <= 0 {
		limit = 50
	}

	err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset(window.Offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) MarkDelivered(ctx context.Context, conversationID, receiverID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_delivered = false", conversationID, receiverID).
		Updates(map[string]interface{}{
			"is_delivered": true,
			"delivered_at": at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// MarkRead is a conditional update: only the call that actually flips the
// flag reports true, so counter adjustments are applied exactly once even
// when the HTTP endpoint and the socket channel race on the same receipt.
func (r *PostgresMessageRepository) MarkRead(ctx context.Context, id, receiverID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND receiver_id = ? AND is_read = false", id, receiverID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresMessageRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND is_deleted = false", id).
		Update("is_deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) Search(ctx context.Context, conversationID uuid.UUID, query string, limit, offset int) ([]domain.Message, error) {
	var messages []domain.Message
	if limit <= 0 {
		limit = 20
	}
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND is_deleted = false AND content ILIKE ?", conversationID, "%"+query+"%").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) CountByConversation(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("conversation_id = ? AND is_deleted = false", conversationID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresMessageRepository) GetLatest(ctx context.Context, conversationID uuid.UUID) (domain.Message, error) {
	var m domain.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND is_deleted = false", conversationID).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Message{}, apperrors.ErrNotFound
		}
		return domain.Message{}, err
	}
	return m, nil
}
