package contact

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
)

const noteMaxRunes = 80

// ApplyEventSave adjusts a contact's follow-up timestamps after an event
// referencing it was created or edited. Runs inside the event write
// transaction. Idempotent: saving the same event twice leaves the contact
// unchanged after the first application.
//
// Rules:
//   - past or present event: LastContactAt only moves forward; a planned
//     NextContactAt that the event fulfilled (next <= event time) is cleared.
//   - future event: NextContactAt takes the event time only if unset or the
//     event is strictly earlier; a blank NextContactNote is filled from the
//     event type and notes.
func ApplyEventSave(tx *gorm.DB, contactID uint64, evType string, evTime, now time.Time, notes string) error {
	var c Contact
	if err := tx.First(&c, contactID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	updates := map[string]any{}

	if !evTime.After(now) {
		if c.LastContactAt == nil || evTime.After(*c.LastContactAt) {
			updates["last_contact_at"] = evTime
		}
		if c.NextContactAt != nil && !c.NextContactAt.After(evTime) {
			updates["next_contact_at"] = nil
		}
	} else {
		if c.NextContactAt == nil || evTime.Before(*c.NextContactAt) {
			updates["next_contact_at"] = evTime
			if strings.TrimSpace(c.NextContactNote) == "" {
				updates["next_contact_note"] = noteFromEvent(evType, notes)
			}
		}
	}

	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&Contact{}).Where("id = ?", contactID).Updates(updates).Error
}

// RecomputeNext repoints NextContactAt at the nearest remaining future event
// for the contact, or clears it. Used after an event delete so the field
// never dangles on a removed event. NextContactNote is left untouched.
func RecomputeNext(tx *gorm.DB, contactID uint64, now time.Time) error {
	var next struct {
		StartsAt time.Time
	}
	err := tx.Table("events").
		Select("starts_at").
		Where("contact_id = ? AND starts_at > ?", contactID, now).
		Order("starts_at asc").
		Limit(1).
		Scan(&next).Error
	if err != nil {
		return err
	}

	var val any
	if !next.StartsAt.IsZero() {
		val = next.StartsAt
	}
	return tx.Model(&Contact{}).Where("id = ?", contactID).
		Update("next_contact_at", val).Error
}

// noteFromEvent builds "{type} · {notes}" with the notes cut at 80 runes.
func noteFromEvent(evType, notes string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return evType
	}
	if utf8.RuneCountInString(notes) > noteMaxRunes {
		runes := []rune(notes)
		notes = string(runes[:noteMaxRunes]) + "…"
	}
	return evType + " · " + notes
}
