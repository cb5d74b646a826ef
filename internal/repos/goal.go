package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/types"
)

type GoalRepo interface {
	Create(ctx context.Context, tx *gorm.DB, goal *types.Goal) (*types.Goal, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID, goalID uuid.UUID) (*types.Goal, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Goal, error)
	// ListActive returns the newest active goals, capped at limit.
	ListActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Goal, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, goalID uuid.UUID, status string) error
	DeleteByID(ctx context.Context, tx *gorm.DB, userID, goalID uuid.UUID) (int64, error)
}

type goalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGoalRepo(db *gorm.DB, baseLog *logger.Logger) GoalRepo {
	return &goalRepo{db: db, log: baseLog.With("repo", "GoalRepo")}
}

func (r *goalRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *goalRepo) Create(ctx context.Context, tx *gorm.DB, goal *types.Goal) (*types.Goal, error) {
	if err := r.handle(tx).WithContext(ctx).Create(goal).Error; err != nil {
		return nil, err
	}
	return goal, nil
}

func (r *goalRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, goalID uuid.UUID) (*types.Goal, error) {
	var goal types.Goal
	if err := r.handle(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", goalID, userID).
		First(&goal).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *goalRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Goal, error) {
	var results []*types.Goal
	if err := r.handle(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *goalRepo) ListActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Goal, error) {
	var results []*types.Goal
	q := r.handle(tx).WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, types.GoalStatusActive).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *goalRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, goalID uuid.UUID, status string) error {
	return r.handle(tx).WithContext(ctx).
		Model(&types.Goal{}).
		Where("id = ?", goalID).
		Update("status", status).Error
}

func (r *goalRepo) DeleteByID(ctx context.Context, tx *gorm.DB, userID, goalID uuid.UUID) (int64, error) {
	res := r.handle(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", goalID, userID).
		Delete(&types.Goal{})
	return res.RowsAffected, res.Error
}
