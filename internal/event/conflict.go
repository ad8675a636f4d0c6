package event

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	ErrPastEvent     = errors.New("no se puede programar un evento en una fecha/hora pasada")
	ErrDuplicateTime = errors.New("ya existe un evento exactamente en esa fecha y hora para la misma propiedad")
)

// OverlapError reports a window collision with an existing event on the same
// property, naming the conflicting start so the client can show it.
type OverlapError struct {
	ConflictStart time.Time
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf(
		"el horario solapa con otro evento en la misma propiedad (desde %s)",
		e.ConflictStart.Format(time.RFC3339),
	)
}

// checkConflicts enforces the scheduling invariants for a candidate slot on a
// property. Must run inside the same transaction as the write so the
// check-then-insert pair is atomic under concurrent requests.
//
// Exact-timestamp duplicates are reported separately from window overlaps,
// even though the former is a subset of the latter; clients show different
// messages for the two.
func checkConflicts(tx *gorm.DB, propertyID uint64, start time.Time, excludeID uint64, now time.Time) error {
	if start.Before(now) {
		return ErrPastEvent
	}

	dur := DefaultDurationMin * time.Minute
	end := start.Add(dur)

	var dup int64
	err := tx.Model(&Event{}).
		Where("property_id = ? AND starts_at = ? AND id <> ?", propertyID, start, excludeID).
		Count(&dup).Error
	if err != nil {
		return err
	}
	if dup > 0 {
		return ErrDuplicateTime
	}

	// Existing events all span [starts_at, starts_at+60m), so the half-open
	// intersection test reduces to a pair of starts_at comparisons.
	var first Event
	err = tx.
		Where("property_id = ? AND id <> ? AND starts_at < ? AND starts_at > ?",
			propertyID, excludeID, end, start.Add(-dur)).
		Order("starts_at asc").
		First(&first).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return &OverlapError{ConflictStart: first.StartsAt}
}
