package types

import (
	"time"

	"github.com/google/uuid"
)

// Book is a recommended, externally verified title. ChapterSummaries
// holds a generated JSON array of per-chapter summaries; Discussion
// accumulates the chapter-discussion transcript.
type Book struct {
	ID               uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"index;not null" json:"user_id"`
	User             *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Title            string    `gorm:"not null;column:title" json:"title"`
	Author           string    `gorm:"column:author" json:"author"`
	Description      string    `gorm:"type:text;column:description" json:"description"`
	Thumbnail        string    `gorm:"column:thumbnail" json:"thumbnail,omitempty"`
	InfoURL          string    `gorm:"column:info_url" json:"info_url,omitempty"`
	ChapterSummaries string    `gorm:"type:text;column:chapter_summaries" json:"-"`
	Discussion       string    `gorm:"type:text;column:discussion" json:"-"`
	CreatedAt        time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Book) TableName() string {
	return "book"
}
