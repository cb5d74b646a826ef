package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/types"
)

type MemoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, memories []*types.Memory) ([]*types.Memory, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Memory, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, userID, memoryID uuid.UUID) (int64, error)
}

type memoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemoryRepo(db *gorm.DB, baseLog *logger.Logger) MemoryRepo {
	return &memoryRepo{db: db, log: baseLog.With("repo", "MemoryRepo")}
}

func (r *memoryRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *memoryRepo) Create(ctx context.Context, tx *gorm.DB, memories []*types.Memory) ([]*types.Memory, error) {
	if len(memories) == 0 {
		return memories, nil
	}
	if err := r.handle(tx).WithContext(ctx).Create(&memories).Error; err != nil {
		return nil, err
	}
	return memories, nil
}

// ListByUserID returns newest first. limit <= 0 means no limit.
func (r *memoryRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Memory, error) {
	var results []*types.Memory
	q := r.handle(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *memoryRepo) DeleteByID(ctx context.Context, tx *gorm.DB, userID, memoryID uuid.UUID) (int64, error) {
	res := r.handle(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", memoryID, userID).
		Delete(&types.Memory{})
	return res.RowsAffected, res.Error
}
