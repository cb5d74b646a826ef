package types

import (
	"time"

	"github.com/google/uuid"
)

// DefaultChatTitle is the placeholder a chat keeps until its first
// exchange completes. Chats still at this title with no saved messages
// are excluded from user-facing listings.
const DefaultChatTitle = "New Chat"

// InterviewChatTitle marks the dedicated first-contact interview chat.
// It is excluded from ordinary chat listings.
const InterviewChatTitle = "Initial Call"

type Chat struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"index;not null" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Title     string    `gorm:"not null;column:title" json:"title"`
	Summary   string    `gorm:"type:text;column:summary" json:"-"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Chat) TableName() string {
	return "chat"
}
