package contact

import (
	"time"

	"inmocrm/internal/stage"
)

// Contact is a lead. LastContactAt tracks the most recent past-or-present
// event, NextContactAt the nearest planned one; both are maintained by the
// event write path, not by clients.
type Contact struct {
	ID       uint64 `gorm:"primaryKey" json:"id"`
	OwnerID  uint64 `gorm:"index;not null" json:"owner"`
	Name     string `gorm:"not null" json:"name"`
	LastName string `json:"last_name"`
	Email    string `gorm:"index" json:"email"`
	Phone    string `json:"phone"`

	StageID *uint64      `json:"stage"`
	Stage   *stage.Stage `json:"stage_detail,omitempty"`

	LastContactAt   *time.Time `gorm:"index" json:"last_contact_at"`
	NextContactAt   *time.Time `gorm:"index" json:"next_contact_at"`
	NextContactNote string     `gorm:"size:255" json:"next_contact_note"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// Follow-up buckets derived from NextContactAt relative to the tenant-local
// clock.
const (
	FollowUpPending = "pendiente" // nothing planned
	FollowUpOverdue = "vencido"
	FollowUpToday   = "hoy"
	FollowUpSoon    = "proximo"
)

// FollowUpState classifies the contact for the reminders panel.
func (c *Contact) FollowUpState(now time.Time) string {
	if c.NextContactAt == nil {
		return FollowUpPending
	}
	next := c.NextContactAt.In(now.Location())
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case next.Before(dayStart):
		return FollowUpOverdue
	case next.Before(dayStart.AddDate(0, 0, 1)):
		return FollowUpToday
	default:
		return FollowUpSoon
	}
}

// DaysSinceContact returns whole days since the last interaction, or nil if
// there was none.
func (c *Contact) DaysSinceContact(now time.Time) *int {
	if c.LastContactAt == nil {
		return nil
	}
	d := int(now.Sub(*c.LastContactAt).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return &d
}

// view is the JSON shape the API returns: the stored row plus derived fields.
type view struct {
	Contact
	FollowUp         string `json:"follow_up_state"`
	DaysSinceContact *int   `json:"days_since_contact"`
}

// View decorates a contact with its derived read-only fields.
func View(c Contact, now time.Time) any {
	return view{
		Contact:          c,
		FollowUp:         c.FollowUpState(now),
		DaysSinceContact: c.DaysSinceContact(now),
	}
}
