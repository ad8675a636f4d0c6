// Package transfer moves CRM data across the system boundary: bulk export,
// bulk import with per-row error reporting, and the monthly metrics the
// dashboard consumes.
package transfer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/contact"
	"inmocrm/internal/event"
	"inmocrm/internal/property"
	"inmocrm/internal/tenant"

	ics "github.com/arran4/golang-ical"
	"gorm.io/gorm"
)

const (
	ResourceLeads      = "leads"
	ResourceProperties = "propiedades"
	ResourceEvents     = "eventos"
)

var ErrBadResource = errors.New("parámetro 'resource' inválido")

type Service struct {
	DB  *gorm.DB
	Loc *time.Location
}

type ExportFilters struct {
	Year           int      `json:"year"`
	Month          int      `json:"month"`
	DateFrom       string   `json:"date_from"`
	DateTo         string   `json:"date_to"`
	PropertyStatus []string `json:"property_status"`
}

type ExportRequest struct {
	Format    string        `json:"format"` // csv | json | ics
	Resources []string      `json:"resources"`
	Filters   ExportFilters `json:"filters"`
}

// ExportData gathers the requested resources as ordered column/row sets, so
// the same payload serves JSON, CSV sections and ICS.
type ExportData struct {
	Sections []Section
	Filename string
}

type Section struct {
	Resource string
	Columns  []string
	Rows     [][]any
	Events   []event.Event // kept for ICS rendering
}

func (s *Service) Export(ctx context.Context, id auth.Identity, req ExportRequest) (*ExportData, error) {
	var start, end *time.Time
	if req.Filters.Year != 0 && req.Filters.Month != 0 {
		a, b := monthRange(req.Filters.Year, req.Filters.Month, s.Loc)
		start, end = &a, &b
	} else if req.Filters.DateFrom != "" && req.Filters.DateTo != "" {
		if a, ok := parseStamp(req.Filters.DateFrom, s.Loc); ok {
			start = &a
		}
		if b, ok := parseStamp(req.Filters.DateTo, s.Loc); ok {
			// bare dates mean end of day
			if len(strings.TrimSpace(req.Filters.DateTo)) == 10 {
				b = b.AddDate(0, 0, 1).Add(-time.Second)
			}
			end = &b
		}
	}

	out := &ExportData{Filename: "export.csv"}
	if req.Filters.Year != 0 && req.Filters.Month != 0 {
		out.Filename = fmt.Sprintf("export_%04d_%02d.csv", req.Filters.Year, req.Filters.Month)
	}

	for _, res := range req.Resources {
		switch strings.ToLower(strings.TrimSpace(res)) {
		case ResourceLeads:
			sec, err := s.exportContacts(ctx, id, start, end)
			if err != nil {
				return nil, err
			}
			out.Sections = append(out.Sections, sec)
		case ResourceProperties:
			sec, err := s.exportProperties(ctx, id, start, end, req.Filters.PropertyStatus)
			if err != nil {
				return nil, err
			}
			out.Sections = append(out.Sections, sec)
		case ResourceEvents:
			sec, err := s.exportEvents(ctx, id, start, end)
			if err != nil {
				return nil, err
			}
			out.Sections = append(out.Sections, sec)
		default:
			return nil, ErrBadResource
		}
	}
	return out, nil
}

func (s *Service) exportContacts(ctx context.Context, id auth.Identity, start, end *time.Time) (Section, error) {
	q := s.DB.WithContext(ctx).Model(&contact.Contact{}).
		Scopes(tenant.Scope(id)).
		Preload("Stage")
	if start != nil && end != nil {
		q = q.Where("created_at BETWEEN ? AND ?", *start, *end)
	}
	var rows []contact.Contact
	if err := q.Order("id asc").Find(&rows).Error; err != nil {
		return Section{}, err
	}

	sec := Section{
		Resource: ResourceLeads,
		Columns:  []string{"id", "nombre", "apellido", "email", "telefono", "estado_fase", "creado_en"},
	}
	for _, c := range rows {
		phase := ""
		if c.Stage != nil {
			phase = c.Stage.Phase
		}
		sec.Rows = append(sec.Rows, []any{
			c.ID, c.Name, c.LastName, c.Email, c.Phone, phase,
			c.CreatedAt.In(s.Loc).Format(time.RFC3339),
		})
	}
	return sec, nil
}

func (s *Service) exportProperties(ctx context.Context, id auth.Identity, start, end *time.Time, statuses []string) (Section, error) {
	q := s.DB.WithContext(ctx).Model(&property.Property{}).Scopes(tenant.Scope(id))
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if start != nil && end != nil {
		q = q.Where("created_at BETWEEN ? AND ?", *start, *end)
	}
	var rows []property.Property
	if err := q.Order("id asc").Find(&rows).Error; err != nil {
		return Section{}, err
	}

	sec := Section{
		Resource: ResourceProperties,
		Columns: []string{
			"id", "codigo", "titulo", "ubicacion", "tipo_de_propiedad", "disponibilidad",
			"precio", "moneda", "ambiente", "antiguedad", "banos", "superficie",
			"estado", "fecha_alta", "vendida_en",
		},
	}
	for _, p := range rows {
		soldAt := ""
		if p.SoldAt != nil {
			soldAt = p.SoldAt.In(s.Loc).Format(time.RFC3339)
		}
		sec.Rows = append(sec.Rows, []any{
			p.ID, p.Code, p.Title, p.Location, p.Kind, p.Availability,
			p.Price, p.Currency, p.Rooms, p.Age, p.Bathrooms, p.Surface,
			p.Status, p.CreatedAt.In(s.Loc).Format(time.RFC3339), soldAt,
		})
	}
	return sec, nil
}

func (s *Service) exportEvents(ctx context.Context, id auth.Identity, start, end *time.Time) (Section, error) {
	q := s.DB.WithContext(ctx).Model(&event.Event{}).Scopes(tenant.Scope(id))
	if start != nil && end != nil {
		q = q.Where("starts_at BETWEEN ? AND ?", *start, *end)
	}
	var rows []event.Event
	if err := q.Order("starts_at asc").Find(&rows).Error; err != nil {
		return Section{}, err
	}

	sec := Section{
		Resource: ResourceEvents,
		Columns:  []string{"id", "tipo", "fecha_hora", "propiedad_id", "contacto_id", "email", "nombre", "apellido", "notas"},
		Events:   rows,
	}
	for _, ev := range rows {
		sec.Rows = append(sec.Rows, []any{
			ev.ID, ev.Type, ev.StartsAt.In(s.Loc).Format(time.RFC3339),
			deref(ev.PropertyID), deref(ev.ContactID),
			ev.Email, ev.Name, ev.LastName, ev.Notes,
		})
	}
	return sec, nil
}

// WriteCSV renders all sections into one CSV document, each prefixed by a
// section banner, matching the layout the frontend importer expects.
func (d *ExportData) WriteCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	for _, sec := range d.Sections {
		if len(sec.Rows) == 0 {
			continue
		}
		if err := w.Write([]string{fmt.Sprintf("=== %s ===", strings.ToUpper(sec.Resource))}); err != nil {
			return nil, err
		}
		if err := w.Write(sec.Columns); err != nil {
			return nil, err
		}
		for _, row := range sec.Rows {
			rec := make([]string, len(row))
			for i, v := range row {
				if v == nil {
					continue
				}
				rec[i] = fmt.Sprint(v)
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
		if err := w.Write([]string{""}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// WriteICS renders the event sections as a calendar, one 60-minute VEVENT per
// event.
func (d *ExportData) WriteICS() []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//inmocrm//agenda//ES")

	for _, sec := range d.Sections {
		for _, ev := range sec.Events {
			ve := cal.AddEvent(fmt.Sprintf("evento-%d@inmocrm", ev.ID))
			ve.SetStartAt(ev.StartsAt)
			ve.SetEndAt(ev.StartsAt.Add(event.DefaultDurationMin * time.Minute))
			ve.SetSummary(ev.Type)
			if ev.Notes != "" {
				ve.SetDescription(ev.Notes)
			}
			ve.SetDtStampTime(time.Now())
		}
	}
	return []byte(cal.Serialize())
}

// ToJSON shapes the sections as {resource: [row objects]}.
func (d *ExportData) ToJSON() map[string][]map[string]any {
	out := make(map[string][]map[string]any, len(d.Sections))
	for _, sec := range d.Sections {
		objs := make([]map[string]any, 0, len(sec.Rows))
		for _, row := range sec.Rows {
			obj := make(map[string]any, len(sec.Columns))
			for i, col := range sec.Columns {
				obj[col] = row[i]
			}
			objs = append(objs, obj)
		}
		out[sec.Resource] = objs
	}
	return out
}

func monthRange(year, month int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// parseStamp accepts the common timestamp spellings import/export files use.
func parseStamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func deref(p *uint64) any {
	if p == nil {
		return nil
	}
	return *p
}
