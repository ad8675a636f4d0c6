package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/event"
)

// Client-facing failures, each with its own message; nothing is swallowed
// silently except the tolerant date fallback.
var (
	ErrEmptyQuery = errors.New("falta 'query' en el body")
	ErrNoTime     = errors.New("no pude detectar la hora del evento. Indicá, por ejemplo: 'a las 15:30'")
	ErrNoEntity   = errors.New("indicá al menos una referencia: @propiedad o @lead (ej: '@Propiedad 12' o '@lead 45')")
)

// NotFoundError marks an unresolvable entity reference; handlers map it to 404.
type NotFoundError struct {
	msg string
}

func (e *NotFoundError) Error() string { return e.msg }

const maxQueryResults = 200

type Service struct {
	Loc    *time.Location
	Events *event.Service
}

type Reply struct {
	Answer string         `json:"answer"`
	Data   map[string]any `json:"data"`
}

type item struct {
	ID            uint64  `json:"id"`
	Type          string  `json:"tipo"`
	When          string  `json:"fecha_hora"`
	PropertyID    *uint64 `json:"propiedad"`
	PropertyTitle *string `json:"propiedad_titulo"`
	ContactID     *uint64 `json:"contacto"`
	ContactName   *string `json:"contacto_nombre"`
	Notes         string  `json:"notas"`
}

// Ask interprets the text and runs either the query or the creation path.
func (s *Service) Ask(ctx context.Context, id auth.Identity, query string) (*Reply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	now := time.Now().In(s.Loc)
	in := Interpret(query, now)
	if in.Create {
		return s.create(ctx, id, in, now)
	}
	return s.query(ctx, id, in, now)
}

func (s *Service) query(ctx context.Context, id auth.Identity, in Intent, now time.Time) (*Reply, error) {
	var start, end time.Time
	switch {
	case in.Week && !in.HasDay:
		start = dayStart(now)
		end = start.AddDate(0, 0, 7)
	case in.HasDay:
		start = dayStart(in.Day)
		end = start.AddDate(0, 0, 1)
	default:
		// nothing specified: next 7 days
		start = dayStart(now)
		end = start.AddDate(0, 0, 7)
	}

	f := event.ListFilter{
		From:     start.Format("2006-01-02 15:04:05"),
		To:       end.Format("2006-01-02 15:04:05"),
		Ordering: "starts_at",
		Limit:    maxQueryResults,
	}
	if in.HasType {
		f.Types = []string{in.Type}
	}
	if in.HasLead {
		f.ContactID = in.LeadID
	}
	if in.HasProp {
		f.PropertyID = in.PropertyID
	}

	rows, err := s.Events.List(ctx, id, f)
	if err != nil {
		return nil, err
	}

	items := make([]item, 0, len(rows))
	for _, ev := range rows {
		items = append(items, s.toItem(ev))
	}

	answer := s.summarize(items, in, now)

	return &Reply{
		Answer: answer,
		Data: map[string]any{
			"count": len(items),
			"from":  start.Format(time.RFC3339),
			"to":    end.Format(time.RFC3339),
			"type":  nullableType(in),
			"items": items,
		},
	}, nil
}

// summarize builds the natural-language sentence: count, pluralized type
// label, the window talked about, and up to five times.
func (s *Service) summarize(items []item, in Intent, now time.Time) string {
	count := len(items)

	label := "evento"
	if in.HasType {
		label = TypeLabel(in.Type)
		if count != 1 {
			label = Pluralize(label)
		}
	}

	var when string
	switch {
	case in.Week && !in.HasDay:
		when = "esta semana"
	case in.HasDay:
		when = "el " + in.Day.Format("02/01/2006")
	default:
		when = "los próximos 7 días"
	}

	var extra []string
	if in.HasProp {
		extra = append(extra, fmt.Sprintf("en propiedad #%d", in.PropertyID))
	}
	if in.HasLead {
		extra = append(extra, fmt.Sprintf("con lead #%d", in.LeadID))
	}
	extraTxt := ""
	if len(extra) > 0 {
		extraTxt = " " + strings.Join(extra, " y ")
	}

	if count == 0 {
		if in.HasType {
			return fmt.Sprintf("No encontré %s para %s%s.", label, when, extraTxt)
		}
		return fmt.Sprintf("No encontré eventos para %s%s.", when, extraTxt)
	}

	var times []string
	for i, it := range items {
		if i == 5 {
			break
		}
		times = append(times, it.When[len(it.When)-5:])
	}

	prefix := "Tenés"
	if in.HasType {
		prefix = fmt.Sprintf("Tenés %d %s", count, label)
	}
	return fmt.Sprintf("%s para %s%s: %s.", prefix, when, extraTxt, strings.Join(times, ", "))
}

func (s *Service) create(ctx context.Context, id auth.Identity, in Intent, now time.Time) (*Reply, error) {
	if !in.HasTime {
		return nil, ErrNoTime
	}
	if !in.HasProp && !in.HasLead {
		return nil, ErrNoEntity
	}

	evType := event.TypeMeeting
	if in.HasType {
		evType = in.Type
	}

	w := event.WriteInput{
		Type:     evType,
		StartsAt: in.EventAt(now),
		Notes:    in.Notes,

		// any listing in the office may be referenced; leads stay
		// scoped to the caller
		AnyProperty: true,
	}
	if in.HasProp {
		pid := in.PropertyID
		w.PropertyID = &pid
	}
	if in.HasLead {
		lid := in.LeadID
		w.ContactID = &lid
	}

	ev, err := s.Events.Create(ctx, id, w)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrPropertyNotFound):
			return nil, &NotFoundError{msg: fmt.Sprintf("no encontré la propiedad #%d", in.PropertyID)}
		case errors.Is(err, event.ErrContactNotFound):
			return nil, &NotFoundError{msg: fmt.Sprintf("no encontré el lead/contacto #%d tuyo", in.LeadID)}
		default:
			return nil, err
		}
	}

	full, err := s.Events.Get(ctx, id, ev.ID)
	if err != nil {
		full = ev
	}
	it := s.toItem(*full)

	var parts []string
	if full.Property != nil {
		p := fmt.Sprintf("Propiedad #%d", full.Property.ID)
		if full.Property.Title != "" {
			p += " · " + full.Property.Title
		}
		parts = append(parts, p)
	}
	if full.Contact != nil {
		c := fmt.Sprintf("Lead #%d", full.Contact.ID)
		if name := strings.TrimSpace(full.Contact.Name + " " + full.Contact.LastName); name != "" {
			c += " · " + name
		}
		parts = append(parts, c)
	}
	inTxt := ""
	if len(parts) > 0 {
		inTxt = " en " + strings.Join(parts, " y ")
	}

	answer := fmt.Sprintf("Listo, agendé una %s para el %s%s.",
		TypeLabel(full.Type), full.StartsAt.In(s.Loc).Format("02/01/2006 15:04"), inTxt)

	return &Reply{
		Answer: answer,
		Data: map[string]any{
			"count": 1,
			"from":  nil,
			"to":    nil,
			"type":  full.Type,
			"items": []item{it},
		},
	}, nil
}

func (s *Service) toItem(ev event.Event) item {
	it := item{
		ID:    ev.ID,
		Type:  ev.Type,
		When:  ev.StartsAt.In(s.Loc).Format("2006-01-02 15:04"),
		Notes: ev.Notes,
	}
	it.PropertyID = ev.PropertyID
	if ev.Property != nil {
		t := ev.Property.Title
		it.PropertyTitle = &t
	}
	it.ContactID = ev.ContactID
	if ev.Contact != nil {
		name := strings.TrimSpace(ev.Contact.Name + " " + ev.Contact.LastName)
		it.ContactName = &name
	}
	return it
}

func nullableType(in Intent) any {
	if in.HasType {
		return in.Type
	}
	return nil
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
