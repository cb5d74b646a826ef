package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/types"
)

type BookRepo interface {
	Create(ctx context.Context, tx *gorm.DB, books []*types.Book) ([]*types.Book, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID, bookID uuid.UUID) (*types.Book, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Book, error)
	UpdateChapterSummaries(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, summaries string) error
	UpdateDiscussion(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, discussion string) error
}

type VideoRepo interface {
	Create(ctx context.Context, tx *gorm.DB, videos []*types.Video) ([]*types.Video, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID, videoID uuid.UUID) (*types.Video, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Video, error)
}

type FeedbackRepo interface {
	// Upsert inserts or, when feedback for the same (user, material_type,
	// material_id) already exists, replaces its rating, review and
	// completion flag on the existing row.
	Upsert(ctx context.Context, tx *gorm.DB, fb *types.MaterialFeedback) (*types.MaterialFeedback, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.MaterialFeedback, error)
}

type bookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBookRepo(db *gorm.DB, baseLog *logger.Logger) BookRepo {
	return &bookRepo{db: db, log: baseLog.With("repo", "BookRepo")}
}

func (r *bookRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *bookRepo) Create(ctx context.Context, tx *gorm.DB, books []*types.Book) ([]*types.Book, error) {
	if len(books) == 0 {
		return books, nil
	}
	if err := r.handle(tx).WithContext(ctx).Create(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, bookID uuid.UUID) (*types.Book, error) {
	var book types.Book
	if err := r.handle(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", bookID, userID).
		First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Book, error) {
	var results []*types.Book
	if err := r.handle(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *bookRepo) UpdateChapterSummaries(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, summaries string) error {
	return r.handle(tx).WithContext(ctx).
		Model(&types.Book{}).
		Where("id = ?", bookID).
		Update("chapter_summaries", summaries).Error
}

func (r *bookRepo) UpdateDiscussion(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, discussion string) error {
	return r.handle(tx).WithContext(ctx).
		Model(&types.Book{}).
		Where("id = ?", bookID).
		Update("discussion", discussion).Error
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &videoRepo{db: db, log: baseLog.With("repo", "VideoRepo")}
}

func (r *videoRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *videoRepo) Create(ctx context.Context, tx *gorm.DB, videos []*types.Video) ([]*types.Video, error) {
	if len(videos) == 0 {
		return videos, nil
	}
	if err := r.handle(tx).WithContext(ctx).Create(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

func (r *videoRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, videoID uuid.UUID) (*types.Video, error) {
	var video types.Video
	if err := r.handle(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", videoID, userID).
		First(&video).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *videoRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Video, error) {
	var results []*types.Video
	if err := r.handle(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return &feedbackRepo{db: db, log: baseLog.With("repo", "FeedbackRepo")}
}

func (r *feedbackRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *feedbackRepo) Upsert(ctx context.Context, tx *gorm.DB, fb *types.MaterialFeedback) (*types.MaterialFeedback, error) {
	if err := r.handle(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "material_type"},
				{Name: "material_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "review", "completed", "updated_at"}),
		}).
		Create(fb).Error; err != nil {
		return nil, err
	}
	return fb, nil
}

func (r *feedbackRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.MaterialFeedback, error) {
	var results []*types.MaterialFeedback
	if err := r.handle(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
