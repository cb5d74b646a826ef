package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/types"
)

type ProfileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, profile *types.Profile) (*types.Profile, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error)
	// UpdateFields applies a partial column update; untouched fields keep
	// their values, so setting one profile key never clears another.
	UpdateFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fields map[string]any) error
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return &profileRepo{db: db, log: baseLog.With("repo", "ProfileRepo")}
}

func (r *profileRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *profileRepo) Create(ctx context.Context, tx *gorm.DB, profile *types.Profile) (*types.Profile, error) {
	if err := r.handle(tx).WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *profileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error) {
	var profile types.Profile
	if err := r.handle(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) UpdateFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.handle(tx).WithContext(ctx).
		Model(&types.Profile{}).
		Where("user_id = ?", userID).
		Updates(fields).Error
}
