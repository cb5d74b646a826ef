package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/types"
)

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, message *types.Message) (*types.Message, error)
	// ListByChatID returns messages in creation order.
	ListByChatID(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) ([]*types.Message, error)
	CountByChatIDs(ctx context.Context, tx *gorm.DB, chatIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	// LastMatching returns the newest message with the given content and
	// role in a chat, or nil when none exists.
	LastMatching(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, role, content string) (*types.Message, error)
	DeleteByChatID(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (r *messageRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *messageRepo) Create(ctx context.Context, tx *gorm.DB, message *types.Message) (*types.Message, error) {
	if err := r.handle(tx).WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

func (r *messageRepo) ListByChatID(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) ([]*types.Message, error) {
	var results []*types.Message
	if err := r.handle(tx).WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *messageRepo) CountByChatIDs(ctx context.Context, tx *gorm.DB, chatIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(chatIDs))
	if len(chatIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ChatID uuid.UUID
		N      int64
	}
	if err := r.handle(tx).WithContext(ctx).
		Model(&types.Message{}).
		Select("chat_id, COUNT(*) AS n").
		Where("chat_id IN ?", chatIDs).
		Group("chat_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ChatID] = row.N
	}
	return counts, nil
}

func (r *messageRepo) LastMatching(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, role, content string) (*types.Message, error) {
	var msg types.Message
	err := r.handle(tx).WithContext(ctx).
		Where("chat_id = ? AND role = ? AND content = ?", chatID, role, content).
		Order("created_at DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) DeleteByChatID(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) error {
	return r.handle(tx).WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&types.Message{}).Error
}
