package event

import (
	"time"

	"inmocrm/internal/contact"
	"inmocrm/internal/property"
)

const (
	TypeMeeting = "Reunion"
	TypeCall    = "Llamada"
	TypeVisit   = "Visita"
)

var ValidTypes = map[string]bool{
	TypeMeeting: true, TypeCall: true, TypeVisit: true,
}

// DefaultDurationMin is the fixed slot length used for conflict detection:
// every event occupies [StartsAt, StartsAt+60m).
const DefaultDurationMin = 60

// Event is a scheduled interaction. The walk-in name/email fields cover
// visitors that are not yet leads.
type Event struct {
	ID      uint64 `gorm:"primaryKey" json:"id"`
	OwnerID uint64 `gorm:"index;not null" json:"owner"`

	Type     string    `gorm:"not null" json:"type"`
	StartsAt time.Time `gorm:"index;not null" json:"starts_at"`

	ContactID  *uint64            `gorm:"index" json:"contact"`
	Contact    *contact.Contact   `json:"contact_detail,omitempty"`
	PropertyID *uint64            `gorm:"index" json:"property"`
	Property   *property.Property `json:"property_detail,omitempty"`

	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
	Notes    string `json:"notes"`

	CreatedAt time.Time `json:"created_at"`
}
