package types

import (
	"time"

	"github.com/google/uuid"
)

type Video struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"index;not null" json:"user_id"`
	User        *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	URL         string    `gorm:"not null;column:url" json:"url"`
	Channel     string    `gorm:"column:channel" json:"channel,omitempty"`
	Description string    `gorm:"type:text;column:description" json:"description"`
	Thumbnail   string    `gorm:"column:thumbnail" json:"thumbnail,omitempty"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Video) TableName() string {
	return "video"
}
