package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"index;not null" json:"user_id"`
	ChatID    uuid.UUID `gorm:"index;not null" json:"chat_id"`
	Chat      *Chat     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChatID;references:ID" json:"-"`
	Role      string    `gorm:"not null;column:role" json:"role"`
	Content   string    `gorm:"type:text;not null;column:content" json:"content"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Message) TableName() string {
	return "message"
}
