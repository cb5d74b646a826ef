package types

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds the structured facts routed out of the memory
// extraction pipeline. A set field is only ever overwritten by an
// explicit new value for the same field.
type Profile struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"uniqueIndex;not null" json:"user_id"`
	User      *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	FirstName *string    `gorm:"column:first_name" json:"first_name,omitempty"`
	LastName  *string    `gorm:"column:last_name" json:"last_name,omitempty"`
	BirthDate *time.Time `gorm:"type:date;column:birth_date" json:"birth_date,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profile"
}
