package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaterialTypeBook  = "book"
	MaterialTypeVideo = "video"
)

func ValidMaterialType(s string) bool {
	return s == MaterialTypeBook || s == MaterialTypeVideo
}

// MaterialFeedback is upserted per (user, material_type, material_id):
// resubmitting replaces the rating and review on the same row.
type MaterialFeedback struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"not null;uniqueIndex:idx_feedback_identity" json:"user_id"`
	User         *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	MaterialType string    `gorm:"not null;uniqueIndex:idx_feedback_identity;column:material_type" json:"material_type"`
	MaterialID   uuid.UUID `gorm:"not null;uniqueIndex:idx_feedback_identity;column:material_id" json:"material_id"`
	Rating       int       `gorm:"not null;column:rating" json:"rating"`
	Review       string    `gorm:"type:text;column:review" json:"review,omitempty"`
	Completed    bool      `gorm:"not null;default:true;column:completed" json:"completed"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (MaterialFeedback) TableName() string {
	return "material_feedback"
}
