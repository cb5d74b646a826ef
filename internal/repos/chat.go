package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/types"
)

type ChatRepo interface {
	Create(ctx context.Context, tx *gorm.DB, chat *types.Chat) (*types.Chat, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID, chatID uuid.UUID) (*types.Chat, error)
	// ListByUserID returns the user's chats most-recently-updated first.
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Chat, error)
	UpdateTitle(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, title string) error
	UpdateSummary(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, summary string) error
	Touch(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) error
}

type chatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatRepo(db *gorm.DB, baseLog *logger.Logger) ChatRepo {
	return &chatRepo{db: db, log: baseLog.With("repo", "ChatRepo")}
}

func (r *chatRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *chatRepo) Create(ctx context.Context, tx *gorm.DB, chat *types.Chat) (*types.Chat, error) {
	if err := r.handle(tx).WithContext(ctx).Create(chat).Error; err != nil {
		return nil, err
	}
	return chat, nil
}

func (r *chatRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, chatID uuid.UUID) (*types.Chat, error) {
	var chat types.Chat
	if err := r.handle(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", chatID, userID).
		First(&chat).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Chat, error) {
	var results []*types.Chat
	if err := r.handle(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chatRepo) UpdateTitle(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, title string) error {
	return r.handle(tx).WithContext(ctx).
		Model(&types.Chat{}).
		Where("id = ?", chatID).
		Update("title", title).Error
}

func (r *chatRepo) UpdateSummary(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, summary string) error {
	return r.handle(tx).WithContext(ctx).
		Model(&types.Chat{}).
		Where("id = ?", chatID).
		Update("summary", summary).Error
}

func (r *chatRepo) Touch(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, at time.Time) error {
	return r.handle(tx).WithContext(ctx).
		Model(&types.Chat{}).
		Where("id = ?", chatID).
		Update("updated_at", at).Error
}

func (r *chatRepo) Delete(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) error {
	return r.handle(tx).WithContext(ctx).
		Where("id = ?", chatID).
		Delete(&types.Chat{}).Error
}
