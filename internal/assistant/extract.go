// Package assistant turns free-form Spanish text into calendar queries or
// event creations. Parsing is a cascade of small independent extractors over
// the text; Interpret combines them without touching the database.
package assistant

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateDDMMYYYY = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	dateYYYYMMDD = regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`)
	timeHHMM     = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\b`)

	// "a las 15:30", "las 9", "hs 15"
	timeHint = regexp.MustCompile(`(?i)(a\s+las|las|hs|hora|horas)\s+(\d{1,2}(?::\d{2})?)`)

	// \b is ASCII-only in RE2, which would never close a boundary after the
	// voseo forms ending in á, so the edges are spelled out as non-letters.
	createVerbs = regexp.MustCompile(
		`(?i)(?:^|[^\p{L}])(agrega|agregá|agregar|crea|creá|crear|programa|programar|agenda|agendá|agendar)(?:[^\p{L}]|$)`)

	weekWords = regexp.MustCompile(`(?i)\b(esta\s+semana|semana)\b`)

	// property refs, in priority order
	refBareID   = regexp.MustCompile(`(?i)(?:@|#)\s*(\d+)\b`)
	refAtProp   = regexp.MustCompile(`(?i)@\s*propiedad\s*(\d+)\b`)
	refPropWord = regexp.MustCompile(`(?i)\bpropiedad(?:\s*#|:\s*|\s+)(\d+)\b`)

	// lead refs
	refAtLead    = regexp.MustCompile(`(?i)@\s*(lead|contacto)\s*(\d+)\b`)
	refLeadWord  = regexp.MustCompile(`(?i)\b(lead|contacto)(?:\s*#|:\s*|\s+)(\d+)\b`)
	leadMentions = regexp.MustCompile(`(?i)\b(lead|contacto)s?\b`)

	notesPattern = regexp.MustCompile(`(?i)(?:nota|notas)\s*:\s*(.+)$`)
)

// typeAliases maps localized synonyms, singular and plural, with and without
// accents, to the canonical event types. Order matters: first match wins.
var typeAliases = []struct {
	re    *regexp.Regexp
	canon string
}{
	{regexp.MustCompile(`\breunion\b`), "Reunion"},
	{regexp.MustCompile(`\breunión\b`), "Reunion"},
	{regexp.MustCompile(`\breuniones\b`), "Reunion"},
	{regexp.MustCompile(`\bllamada\b`), "Llamada"},
	{regexp.MustCompile(`\bllamadas\b`), "Llamada"},
	{regexp.MustCompile(`\bvisita\b`), "Visita"},
	{regexp.MustCompile(`\bvisitas\b`), "Visita"},
}

var typeLabels = map[string]string{
	"Reunion": "reunión",
	"Llamada": "llamada",
	"Visita":  "visita",
}

// IsCreateIntent reports whether the text carries one of the scheduling
// verbs; anything else is treated as a query.
func IsCreateIntent(text string) bool {
	return createVerbs.MatchString(text)
}

// WantsWeek reports a "this week" window request.
func WantsWeek(text string) bool {
	return weekWords.MatchString(text)
}

// ExtractDate resolves the day the text talks about. Relative words win over
// explicit dates; DD/MM/YYYY wins over YYYY-MM-DD. The returned time carries
// now's clock on the resolved day.
func ExtractDate(text string, now time.Time) (time.Time, bool) {
	t := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.Contains(t, "hoy"):
		return now, true
	case strings.Contains(t, "pasado mañana"), strings.Contains(t, "pasado manana"):
		return now.AddDate(0, 0, 2), true
	case strings.Contains(t, "mañana"), strings.Contains(t, "manana"):
		return now.AddDate(0, 0, 1), true
	}

	if m := dateDDMMYYYY.FindStringSubmatch(t); m != nil {
		dd, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		yyyy, _ := strconv.Atoi(m[3])
		return buildDay(yyyy, mm, dd, now)
	}
	if m := dateYYYYMMDD.FindStringSubmatch(t); m != nil {
		yyyy, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		dd, _ := strconv.Atoi(m[3])
		return buildDay(yyyy, mm, dd, now)
	}
	return time.Time{}, false
}

func buildDay(yyyy, mm, dd int, now time.Time) (time.Time, bool) {
	if mm < 1 || mm > 12 || dd < 1 || dd > 31 {
		return time.Time{}, false
	}
	d := time.Date(yyyy, time.Month(mm), dd, now.Hour(), now.Minute(), 0, 0, now.Location())
	// reject rollovers like 31/02
	if d.Day() != dd || int(d.Month()) != mm {
		return time.Time{}, false
	}
	return d, true
}

// ExtractTime finds an explicit hour. An hour-hint phrase wins; otherwise the
// first bare H or H:MM token anywhere in the text is taken. Out-of-range
// values count as not found.
func ExtractTime(text string) (hh, mm int, ok bool) {
	var m []string
	if hint := timeHint.FindStringSubmatch(text); hint != nil {
		m = timeHHMM.FindStringSubmatch(hint[2])
	} else {
		m = timeHHMM.FindStringSubmatch(text)
	}
	if m == nil {
		return 0, 0, false
	}
	hh, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		mm, _ = strconv.Atoi(m[2])
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, 0, false
	}
	return hh, mm, true
}

// ExtractType maps the first recognized alias to a canonical event type.
func ExtractType(text string) (string, bool) {
	t := strings.ToLower(text)
	for _, a := range typeAliases {
		if a.re.MatchString(t) {
			return a.canon, true
		}
	}
	return "", false
}

// ExtractPropertyID recognizes '@123', '#123', '@propiedad 123' and
// 'propiedad[:# ]123', first match wins in that order.
func ExtractPropertyID(text string) (uint64, bool) {
	if m := refBareID.FindStringSubmatch(text); m != nil {
		return parseID(m[1])
	}
	if m := refAtProp.FindStringSubmatch(text); m != nil {
		return parseID(m[1])
	}
	if m := refPropWord.FindStringSubmatch(text); m != nil {
		return parseID(m[1])
	}
	return 0, false
}

// ExtractLeadID recognizes '@lead N', '@contacto N', 'lead[:# ]N',
// 'contacto[:# ]N', and — only when the words lead/contacto appear somewhere
// in the text — a bare '@N'/'#N'.
func ExtractLeadID(text string) (uint64, bool) {
	if m := refAtLead.FindStringSubmatch(text); m != nil {
		return parseID(m[2])
	}
	if m := refLeadWord.FindStringSubmatch(text); m != nil {
		return parseID(m[2])
	}
	if leadMentions.MatchString(text) {
		if m := refBareID.FindStringSubmatch(text); m != nil {
			return parseID(m[1])
		}
	}
	return 0, false
}

// ExtractNotes captures free-form notes from a trailing "notas: ..." pattern.
func ExtractNotes(text string) string {
	if m := notesPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// TypeLabel returns the lowercase Spanish label for a canonical type, or
// "evento" when no type was given.
func TypeLabel(canon string) string {
	if l, ok := typeLabels[canon]; ok {
		return l
	}
	return "evento"
}

// Pluralize applies the simple suffix rules the summaries use:
// -ón → -ones, anything else takes -s.
func Pluralize(label string) string {
	if strings.HasSuffix(label, "ón") {
		return strings.TrimSuffix(label, "ón") + "ones"
	}
	return label + "s"
}

func parseID(s string) (uint64, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
