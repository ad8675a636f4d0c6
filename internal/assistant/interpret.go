package assistant

import "time"

// Intent is the structured reading of a free-text request. It is produced by
// Interpret alone, with no database access, so each extractor and the
// combination stay unit-testable.
type Intent struct {
	Create bool

	Day    time.Time
	HasDay bool
	Week   bool

	Hour    int
	Minute  int
	HasTime bool

	Type    string // canonical, empty = no filter / default on create
	HasType bool

	PropertyID uint64
	HasProp    bool

	LeadID  uint64
	HasLead bool

	Notes string
}

// Interpret classifies the text and runs every extractor over it.
func Interpret(text string, now time.Time) Intent {
	in := Intent{Create: IsCreateIntent(text)}

	in.Day, in.HasDay = ExtractDate(text, now)
	in.Week = WantsWeek(text)
	in.Hour, in.Minute, in.HasTime = ExtractTime(text)
	in.Type, in.HasType = ExtractType(text)
	in.PropertyID, in.HasProp = ExtractPropertyID(text)
	in.LeadID, in.HasLead = ExtractLeadID(text)
	in.Notes = ExtractNotes(text)

	return in
}

// EventAt resolves the concrete start time of a creation intent: the
// extracted day (or today) at the extracted hour.
func (in Intent) EventAt(now time.Time) time.Time {
	day := now
	if in.HasDay {
		day = in.Day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), in.Hour, in.Minute, 0, 0, now.Location())
}
