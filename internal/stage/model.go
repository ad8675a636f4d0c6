package stage

import "time"

// Stage is a pipeline phase a contact currently occupies.
type Stage struct {
	ID          uint64 `gorm:"primaryKey" json:"id"`
	Phase       string `gorm:"uniqueIndex;not null" json:"phase"`
	Description string `json:"description"`
}

// History is the append-only log of stage transitions. Rows are only
// removed by contact cascade.
type History struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	ContactID uint64    `gorm:"index;not null" json:"contact_id"`
	StageID   uint64    `gorm:"not null" json:"-"`
	Stage     *Stage    `json:"stage,omitempty"`
	ChangedAt time.Time `gorm:"index;not null" json:"changed_at"`
}

func (History) TableName() string { return "stage_histories" }
