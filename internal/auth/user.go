package auth

import "time"

type User struct {
	ID           uint64 `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	LastName     string
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Phone        string

	// Staff accounts see every tenant's rows.
	IsStaff bool `gorm:"not null;default:false"`

	// Follow-up panel preference: remind after this many days without contact.
	ReminderEveryDays int `gorm:"not null;default:3"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
