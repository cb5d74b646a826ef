package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	GoalStatusActive    = "active"
	GoalStatusCompleted = "completed"
	GoalStatusPaused    = "paused"
)

func ValidGoalStatus(s string) bool {
	switch s {
	case GoalStatusActive, GoalStatusCompleted, GoalStatusPaused:
		return true
	default:
		return false
	}
}

type Goal struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"index;not null" json:"user_id"`
	User        *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Title       string     `gorm:"not null;column:title" json:"title"`
	Description string     `gorm:"type:text;not null;column:description" json:"description"`
	Category    string     `gorm:"column:category" json:"category,omitempty"`
	Priority    string     `gorm:"column:priority" json:"priority,omitempty"`
	Status      string     `gorm:"not null;default:'active';column:status" json:"status"`
	TargetDate  *time.Time `gorm:"type:date;column:target_date" json:"target_date,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (Goal) TableName() string {
	return "goal"
}
