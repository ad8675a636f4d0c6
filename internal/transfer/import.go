package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/contact"
	"inmocrm/internal/event"
	"inmocrm/internal/property"
	"inmocrm/internal/stage"
	"inmocrm/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// errDryRun aborts the import transaction after counting, so a dry run sees
// exactly the writes a real run would make and then discards them.
var errDryRun = errors.New("dry run rollback")

type LeadRow struct {
	Name       string `json:"nombre"`
	LastName   string `json:"apellido"`
	Email      string `json:"email"`
	Phone      string `json:"telefono"`
	StagePhase string `json:"estado_fase"`
}

type PropertyRow struct {
	Code         string  `json:"codigo"`
	Title        string  `json:"titulo"`
	Location     string  `json:"ubicacion"`
	Kind         string  `json:"tipo_de_propiedad"`
	Availability string  `json:"disponibilidad"`
	Price        float64 `json:"precio"`
	Currency     string  `json:"moneda"`
	Rooms        int     `json:"ambiente"`
	Age          int     `json:"antiguedad"`
	Bathrooms    int     `json:"banos"`
	Surface      float64 `json:"superficie"`
	Status       string  `json:"estado"`
}

type EventRow struct {
	ID         uint64  `json:"id"`
	Type       string  `json:"tipo"`
	StartsAt   string  `json:"fecha_hora"`
	PropertyID *uint64 `json:"propiedad_id"`
	ContactID  *uint64 `json:"contacto_id"`
	Email      string  `json:"email"`
	Name       string  `json:"nombre"`
	LastName   string  `json:"apellido"`
	Notes      string  `json:"notas"`
}

type ImportRequest struct {
	DryRun     bool          `json:"dry_run"`
	Leads      []LeadRow     `json:"leads"`
	Properties []PropertyRow `json:"propiedades"`
	Events     []EventRow    `json:"eventos"`
}

// RowError points at the failing row within its resource list.
type RowError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type ResourceResult struct {
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
	Unchanged int        `json:"unchanged"`
	Errors    []RowError `json:"errors"`
}

type ImportResult struct {
	BatchID    string         `json:"batch_id"`
	DryRun     bool           `json:"dry_run"`
	Leads      ResourceResult `json:"leads"`
	Properties ResourceResult `json:"propiedades"`
	Events     ResourceResult `json:"eventos"`
}

// Failed reports whether any row was rejected; handlers answer 207 when the
// rest of the batch still went through.
func (r *ImportResult) Failed() bool {
	return len(r.Leads.Errors) > 0 || len(r.Properties.Errors) > 0 || len(r.Events.Errors) > 0
}

// Import upserts the batch inside one transaction. Leads match on the owner's
// email, properties on the owner's code, events on an explicit id or on the
// (property, starts_at) slot. Rows that fail are reported by index and do not
// abort the rest.
func (s *Service) Import(ctx context.Context, id auth.Identity, req ImportRequest) (*ImportResult, error) {
	res := &ImportResult{
		BatchID: uuid.NewString(),
		DryRun:  req.DryRun,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.importLeads(tx, id, req.Leads, &res.Leads); err != nil {
			return err
		}
		if err := s.importProperties(tx, id, req.Properties, &res.Properties); err != nil {
			return err
		}
		if err := s.importEvents(tx, id, req.Events, &res.Events); err != nil {
			return err
		}
		if req.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, err
	}
	return res, nil
}

func (s *Service) importLeads(tx *gorm.DB, id auth.Identity, rows []LeadRow, out *ResourceResult) error {
	for i, row := range rows {
		email := strings.ToLower(strings.TrimSpace(row.Email))
		if email == "" {
			out.Errors = append(out.Errors, RowError{Index: i, Error: "email requerido"})
			continue
		}
		if strings.TrimSpace(row.Name) == "" {
			out.Errors = append(out.Errors, RowError{Index: i, Error: "nombre requerido"})
			continue
		}

		var stageID *uint64
		if phase := strings.TrimSpace(row.StagePhase); phase != "" {
			var st stage.Stage
			err := tx.Where("phase = ?", phase).First(&st).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				out.Errors = append(out.Errors, RowError{Index: i, Error: fmt.Sprintf("fase desconocida: %q", phase)})
				continue
			}
			if err != nil {
				return err
			}
			stageID = &st.ID
		}

		var existing contact.Contact
		err := tx.Scopes(tenant.Scope(id)).Where("email = ?", email).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c := contact.Contact{
				OwnerID:  id.UserID,
				Name:     strings.TrimSpace(row.Name),
				LastName: strings.TrimSpace(row.LastName),
				Email:    email,
				Phone:    strings.TrimSpace(row.Phone),
				StageID:  stageID,
			}
			if err := tx.Create(&c).Error; err != nil {
				out.Errors = append(out.Errors, RowError{Index: i, Error: err.Error()})
				continue
			}
			out.Created++
		case err != nil:
			return err
		default:
			changed := applyLead(&existing, row, stageID)
			if !changed {
				out.Unchanged++
				continue
			}
			if err := tx.Save(&existing).Error; err != nil {
				out.Errors = append(out.Errors, RowError{Index: i, Error: err.Error()})
				continue
			}
			out.Updated++
		}
	}
	return nil
}

// applyLead copies row fields onto the stored contact and reports whether
// anything actually changed. Blank row fields leave the stored value alone.
func applyLead(c *contact.Contact, row LeadRow, stageID *uint64) bool {
	changed := false
	if v := strings.TrimSpace(row.Name); v != "" && v != c.Name {
		c.Name = v
		changed = true
	}
	if v := strings.TrimSpace(row.LastName); v != "" && v != c.LastName {
		c.LastName = v
		changed = true
	}
	if v := strings.TrimSpace(row.Phone); v != "" && v != c.Phone {
		c.Phone = v
		changed = true
	}
	if stageID != nil && (c.StageID == nil || *c.StageID != *stageID) {
		c.StageID = stageID
		changed = true
	}
	return changed
}

func (s *Service) importProperties(tx *gorm.DB, id auth.Identity, rows []PropertyRow, out *ResourceResult) error {
	for i, row := range rows {
		code := strings.TrimSpace(row.Code)
		if code == "" {
			out.Errors = append(out.Errors, RowError{Index: i, Error: "codigo requerido"})
			continue
		}
		if row.Kind != "" && !property.ValidKinds[row.Kind] {
			out.Errors = append(out.Errors, RowError{Index: i, Error: fmt.Sprintf("tipo de propiedad inválido: %q", row.Kind)})
			continue
		}
		if row.Status != "" && !property.ValidStatuses[row.Status] {
			out.Errors = append(out.Errors, RowError{Index: i, Error: fmt.Sprintf("estado inválido: %q", row.Status)})
			continue
		}

		var existing property.Property
		err := tx.Scopes(tenant.Scope(id)).Where("code = ?", code).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			p := property.Property{
				OwnerID:      id.UserID,
				Code:         code,
				Title:        strings.TrimSpace(row.Title),
				Location:     strings.TrimSpace(row.Location),
				Kind:         row.Kind,
				Availability: row.Availability,
				Price:        row.Price,
				Currency:     row.Currency,
				Rooms:        row.Rooms,
				Age:          row.Age,
				Bathrooms:    row.Bathrooms,
				Surface:      row.Surface,
				Status:       row.Status,
			}
			if p.Kind == "" {
				p.Kind = property.KindHouse
			}
			if p.Status == "" {
				p.Status = property.StatusAvailable
			}
			if p.Currency == "" {
				p.Currency = "USD"
			}
			if err := tx.Create(&p).Error; err != nil {
				out.Errors = append(out.Errors, RowError{Index: i, Error: err.Error()})
				continue
			}
			out.Created++
		case err != nil:
			return err
		default:
			changed := applyProperty(&existing, row)
			if !changed {
				out.Unchanged++
				continue
			}
			if err := tx.Save(&existing).Error; err != nil {
				out.Errors = append(out.Errors, RowError{Index: i, Error: err.Error()})
				continue
			}
			out.Updated++
		}
	}
	return nil
}

func applyProperty(p *property.Property, row PropertyRow) bool {
	changed := false
	set := func(dst *string, v string) {
		v = strings.TrimSpace(v)
		if v != "" && v != *dst {
			*dst = v
			changed = true
		}
	}
	set(&p.Title, row.Title)
	set(&p.Location, row.Location)
	set(&p.Kind, row.Kind)
	set(&p.Availability, row.Availability)
	set(&p.Currency, row.Currency)
	set(&p.Status, row.Status)
	if row.Price != 0 && row.Price != p.Price {
		p.Price = row.Price
		changed = true
	}
	if row.Rooms != 0 && row.Rooms != p.Rooms {
		p.Rooms = row.Rooms
		changed = true
	}
	if row.Age != 0 && row.Age != p.Age {
		p.Age = row.Age
		changed = true
	}
	if row.Bathrooms != 0 && row.Bathrooms != p.Bathrooms {
		p.Bathrooms = row.Bathrooms
		changed = true
	}
	if row.Surface != 0 && row.Surface != p.Surface {
		p.Surface = row.Surface
		changed = true
	}
	return changed
}

func (s *Service) importEvents(tx *gorm.DB, id auth.Identity, rows []EventRow, out *ResourceResult) error {
	for i, row := range rows {
		if !event.ValidTypes[row.Type] {
			out.Errors = append(out.Errors, RowError{Index: i, Error: fmt.Sprintf("tipo de evento inválido: %q", row.Type)})
			continue
		}
		startsAt, ok := parseStamp(row.StartsAt, s.Loc)
		if !ok {
			out.Errors = append(out.Errors, RowError{Index: i, Error: fmt.Sprintf("fecha_hora inválida: %q", row.StartsAt)})
			continue
		}

		// referenced rows must exist and belong to the caller
		if row.PropertyID != nil {
			var n int64
			if err := tx.Model(&property.Property{}).Scopes(tenant.Scope(id)).
				Where("id = ?", *row.PropertyID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				out.Errors = append(out.Errors, RowError{Index: i, Error: fmt.Sprintf("propiedad %d no encontrada", *row.PropertyID)})
				continue
			}
		}
		if row.ContactID != nil {
			var n int64
			if err := tx.Model(&contact.Contact{}).Scopes(tenant.Scope(id)).
				Where("id = ?", *row.ContactID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				out.Errors = append(out.Errors, RowError{Index: i, Error: fmt.Sprintf("contacto %d no encontrado", *row.ContactID)})
				continue
			}
		}

		var existing event.Event
		var err error
		switch {
		case row.ID != 0:
			err = tx.Scopes(tenant.Scope(id)).First(&existing, row.ID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				out.Errors = append(out.Errors, RowError{Index: i, Error: fmt.Sprintf("evento %d no encontrado", row.ID)})
				continue
			}
		case row.PropertyID != nil:
			err = tx.Scopes(tenant.Scope(id)).
				Where("property_id = ? AND starts_at = ?", *row.PropertyID, startsAt).
				First(&existing).Error
		default:
			err = gorm.ErrRecordNotFound
		}

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			ev := event.Event{
				OwnerID:    id.UserID,
				Type:       row.Type,
				StartsAt:   startsAt,
				PropertyID: row.PropertyID,
				ContactID:  row.ContactID,
				Name:       strings.TrimSpace(row.Name),
				LastName:   strings.TrimSpace(row.LastName),
				Email:      strings.TrimSpace(row.Email),
				Notes:      row.Notes,
			}
			if err := tx.Create(&ev).Error; err != nil {
				out.Errors = append(out.Errors, RowError{Index: i, Error: err.Error()})
				continue
			}
			out.Created++
		case err != nil:
			return err
		default:
			changed := applyEvent(&existing, row, startsAt)
			if !changed {
				out.Unchanged++
				continue
			}
			if err := tx.Save(&existing).Error; err != nil {
				out.Errors = append(out.Errors, RowError{Index: i, Error: err.Error()})
				continue
			}
			out.Updated++
		}
	}
	return nil
}

func applyEvent(ev *event.Event, row EventRow, startsAt time.Time) bool {
	changed := false
	if row.Type != ev.Type {
		ev.Type = row.Type
		changed = true
	}
	if !startsAt.Equal(ev.StartsAt) {
		ev.StartsAt = startsAt
		changed = true
	}
	if row.PropertyID != nil && (ev.PropertyID == nil || *ev.PropertyID != *row.PropertyID) {
		ev.PropertyID = row.PropertyID
		changed = true
	}
	if row.ContactID != nil && (ev.ContactID == nil || *ev.ContactID != *row.ContactID) {
		ev.ContactID = row.ContactID
		changed = true
	}
	set := func(dst *string, v string) {
		v = strings.TrimSpace(v)
		if v != "" && v != *dst {
			*dst = v
			changed = true
		}
	}
	set(&ev.Name, row.Name)
	set(&ev.LastName, row.LastName)
	set(&ev.Email, row.Email)
	if row.Notes != "" && row.Notes != ev.Notes {
		ev.Notes = row.Notes
		changed = true
	}
	return changed
}
