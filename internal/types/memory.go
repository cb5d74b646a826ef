package types

import (
	"time"

	"github.com/google/uuid"
)

// Memory is one atomic natural-language fact about the user. Rows are
// append-only from the extraction pipeline; users may delete them.
type Memory struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"index;not null" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Content   string    `gorm:"type:text;not null;column:content" json:"content"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Memory) TableName() string {
	return "memory"
}
