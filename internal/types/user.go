package types

import (
	"time"

	"github.com/google/uuid"
)

// Interview (initial call) lifecycle. COMPLETED unlocks general chat
// and is never left again.
const (
	InterviewNotStarted = "not_started"
	InterviewInProgress = "in_progress"
	InterviewCompleting = "completing"
	InterviewCompleted  = "completed"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email          string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password       string    `gorm:"not null;column:password" json:"-"`
	InterviewState string    `gorm:"not null;default:'not_started';column:interview_state" json:"interview_state"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}
