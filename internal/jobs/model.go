package jobs

import "time"

const TypeReminderDispatch = "REMINDER_DISPATCH"

type Job struct {
	ID      uint64 `gorm:"primaryKey"`
	OwnerID uint64 `gorm:"index;not null"`

	Type    string `gorm:"not null"`
	Payload []byte `gorm:"not null"`

	RunAt  time.Time `gorm:"index;not null"`
	Status string    `gorm:"index;not null;default:'PENDING'"` // PENDING/RUNNING/DONE/FAILED/CANCELLED

	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null;default:8"`

	LockedBy *string
	LockedAt *time.Time

	LastError *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
