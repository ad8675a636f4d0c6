package notice

import "time"

// Notice states. A notice is pending until its event happens (completado) or
// its due time passes without completion (atrasado). Deletion only happens by
// cascade from the event or contact.
const (
	StatusPending   = "pendiente"
	StatusCompleted = "completado"
	StatusOverdue   = "atrasado"
)

// Notice is the derived reminder mirroring an upcoming event. At most one
// notice exists per event.
type Notice struct {
	ID      uint64 `gorm:"primaryKey" json:"id"`
	OwnerID uint64 `gorm:"index;not null" json:"owner"`

	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	DueAt       time.Time `gorm:"index;not null" json:"due_at"`
	Status      string    `gorm:"index;not null;default:pendiente" json:"status"`

	EventID    *uint64 `gorm:"uniqueIndex" json:"event"`
	ContactID  *uint64 `gorm:"index" json:"contact"`
	PropertyID *uint64 `gorm:"index" json:"property"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveStatus resolves the wall-clock rule at read time: a pending notice
// whose due time has passed reads as overdue, whether or not the sweep has
// persisted the transition yet.
func (n *Notice) EffectiveStatus(now time.Time) string {
	if n.Status == StatusPending && n.DueAt.Before(now) {
		return StatusOverdue
	}
	return n.Status
}
