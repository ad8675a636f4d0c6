package event

import (
	"context"
	"errors"
	"strings"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/contact"
	"inmocrm/internal/jobs"
	"inmocrm/internal/notice"
	"inmocrm/internal/property"
	"inmocrm/internal/tenant"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("event not found")
	ErrInvalidType      = errors.New("tipo de evento inválido")
	ErrContactNotFound  = errors.New("contacto no encontrado")
	ErrPropertyNotFound = errors.New("propiedad no encontrada")
)

type Service struct {
	DB  *gorm.DB
	Loc *time.Location
}

func (s *Service) now() time.Time { return time.Now().In(s.Loc) }

// WriteInput covers create and update. AnyProperty lifts the tenant scope on
// the property lookup (the assistant allows referencing any listing in the
// office); contact lookups are always scoped and fail closed.
type WriteInput struct {
	Type       string
	StartsAt   time.Time
	ContactID  *uint64
	PropertyID *uint64
	Name       string
	LastName   string
	Email      string
	Notes      string

	AnyProperty bool
}

// Create validates the slot and writes the event, then synchronizes the
// contact timeline, the notice and the reminder job — all inside one
// transaction, so the conflict check cannot race a concurrent insert.
func (s *Service) Create(ctx context.Context, id auth.Identity, in WriteInput) (*Event, error) {
	if !ValidTypes[in.Type] {
		return nil, ErrInvalidType
	}

	var out *Event
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rels, err := s.resolveRefs(tx, id, in)
		if err != nil {
			return err
		}

		now := s.now()
		if in.PropertyID != nil {
			if err := checkConflicts(tx, *in.PropertyID, in.StartsAt, 0, now); err != nil {
				return err
			}
		} else if in.StartsAt.Before(now) {
			return ErrPastEvent
		}

		ev := Event{
			OwnerID:    id.UserID,
			Type:       in.Type,
			StartsAt:   in.StartsAt,
			ContactID:  in.ContactID,
			PropertyID: in.PropertyID,
			Name:       in.Name,
			LastName:   in.LastName,
			Email:      in.Email,
			Notes:      in.Notes,
		}
		if err := tx.Create(&ev).Error; err != nil {
			return err
		}

		if err := s.syncAfterSave(tx, &ev, rels, now); err != nil {
			return err
		}
		out = &ev
		return nil
	})
	return out, err
}

// Update re-runs the conflict check ignoring the event's own row, rewrites
// the event and re-synchronizes contact, notice and reminder job.
func (s *Service) Update(ctx context.Context, id auth.Identity, eventID uint64, in WriteInput) (*Event, error) {
	if !ValidTypes[in.Type] {
		return nil, ErrInvalidType
	}

	var out *Event
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev Event
		if err := tx.Scopes(tenant.Scope(id)).First(&ev, eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		rels, err := s.resolveRefs(tx, id, in)
		if err != nil {
			return err
		}

		now := s.now()
		if in.PropertyID != nil {
			if err := checkConflicts(tx, *in.PropertyID, in.StartsAt, ev.ID, now); err != nil {
				return err
			}
		} else if in.StartsAt.Before(now) {
			return ErrPastEvent
		}

		ev.Type = in.Type
		ev.StartsAt = in.StartsAt
		ev.ContactID = in.ContactID
		ev.PropertyID = in.PropertyID
		ev.Name = in.Name
		ev.LastName = in.LastName
		ev.Email = in.Email
		ev.Notes = in.Notes
		if err := tx.Save(&ev).Error; err != nil {
			return err
		}

		if err := jobs.CancelReminders(tx, ev.OwnerID, ev.ID); err != nil {
			return err
		}
		if err := s.syncAfterSave(tx, &ev, rels, now); err != nil {
			return err
		}
		out = &ev
		return nil
	})
	return out, err
}

// Delete removes the event and its derived notice, cancels any pending
// reminder and repoints the contact's next-contact timestamp at whatever
// future event remains.
func (s *Service) Delete(ctx context.Context, id auth.Identity, eventID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev Event
		if err := tx.Scopes(tenant.Scope(id)).First(&ev, eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := notice.DeleteForEvent(tx, ev.ID); err != nil {
			return err
		}
		if err := jobs.CancelReminders(tx, ev.OwnerID, ev.ID); err != nil {
			return err
		}
		if err := tx.Delete(&ev).Error; err != nil {
			return err
		}
		if ev.ContactID != nil {
			return contact.RecomputeNext(tx, *ev.ContactID, s.now())
		}
		return nil
	})
}

type resolved struct {
	contactName  string
	propertyName string
}

func (s *Service) resolveRefs(tx *gorm.DB, id auth.Identity, in WriteInput) (resolved, error) {
	var r resolved

	if in.PropertyID != nil {
		var p property.Property
		q := tx.Model(&property.Property{})
		if !in.AnyProperty {
			q = q.Scopes(tenant.Scope(id))
		}
		if err := q.First(&p, *in.PropertyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return r, ErrPropertyNotFound
			}
			return r, err
		}
		r.propertyName = p.Title
	}

	if in.ContactID != nil {
		var c contact.Contact
		err := tx.Model(&contact.Contact{}).Scopes(tenant.Scope(id)).
			First(&c, *in.ContactID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return r, ErrContactNotFound
			}
			return r, err
		}
		r.contactName = strings.TrimSpace(c.Name + " " + c.LastName)
	}

	return r, nil
}

func (s *Service) syncAfterSave(tx *gorm.DB, ev *Event, rels resolved, now time.Time) error {
	if ev.ContactID != nil {
		err := contact.ApplyEventSave(tx, *ev.ContactID, ev.Type, ev.StartsAt, now, ev.Notes)
		if err != nil {
			return err
		}
	}

	err := notice.SyncEventSave(tx, notice.EventRef{
		EventID:      ev.ID,
		OwnerID:      ev.OwnerID,
		Type:         ev.Type,
		StartsAt:     ev.StartsAt,
		ContactID:    ev.ContactID,
		ContactName:  rels.contactName,
		PropertyID:   ev.PropertyID,
		PropertyName: rels.propertyName,
	}, now)
	if err != nil {
		return err
	}

	if ev.ContactID != nil && ev.StartsAt.After(now) {
		return jobs.EnqueueReminder(tx, ev.OwnerID, ev.ID, ev.StartsAt)
	}
	return nil
}

type ListFilter struct {
	Date       string // YYYY-MM-DD shortcut for a whole day
	From       string // date or datetime, inclusive
	To         string // date (whole day, exclusive end) or datetime
	Types      []string
	ContactID  uint64
	PropertyID uint64
	Ordering   string
	Limit      int
}

var orderable = map[string]bool{
	"id": true, "starts_at": true, "type": true, "created_at": true,
}

func (s *Service) List(ctx context.Context, id auth.Identity, f ListFilter) ([]Event, error) {
	q := s.DB.WithContext(ctx).Model(&Event{}).
		Scopes(tenant.Scope(id)).
		Preload("Contact").
		Preload("Property")

	if f.Date != "" && f.From == "" && f.To == "" {
		if start, ok := parseStamp(f.Date, s.Loc); ok {
			q = q.Where("starts_at >= ? AND starts_at < ?", start, start.AddDate(0, 0, 1))
		}
	} else {
		if f.From != "" {
			if start, ok := parseStamp(f.From, s.Loc); ok {
				q = q.Where("starts_at >= ?", start)
			}
		}
		if f.To != "" {
			if end, ok := parseStamp(f.To, s.Loc); ok {
				// bare dates mean the whole day, exclusive end
				if len(strings.TrimSpace(f.To)) == 10 {
					end = end.AddDate(0, 0, 1)
				}
				q = q.Where("starts_at < ?", end)
			}
		}
	}

	if types := cleanTypes(f.Types); len(types) > 0 {
		q = q.Where("type IN ?", types)
	}
	if f.ContactID != 0 {
		q = q.Where("contact_id = ?", f.ContactID)
	}
	if f.PropertyID != 0 {
		q = q.Where("property_id = ?", f.PropertyID)
	}

	order := safeOrdering(f.Ordering)
	if order == "" {
		order = "starts_at desc, id desc"
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []Event
	err := q.Order(order).Find(&out).Error
	return out, err
}

func (s *Service) Get(ctx context.Context, id auth.Identity, eventID uint64) (*Event, error) {
	var ev Event
	err := s.DB.WithContext(ctx).Scopes(tenant.Scope(id)).
		Preload("Contact").
		Preload("Property").
		First(&ev, eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ev, nil
}

// parseStamp accepts 'YYYY-MM-DD', 'YYYY-MM-DDTHH:MM[:SS]' and
// 'YYYY-MM-DD HH:MM', interpreted in the tenant zone when no offset given.
func parseStamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		"2006-01-02",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func cleanTypes(raw []string) []string {
	var out []string
	for _, t := range raw {
		for _, piece := range strings.Split(t, ",") {
			if v := strings.TrimSpace(piece); v != "" && ValidTypes[v] {
				out = append(out, v)
			}
		}
	}
	return out
}

func safeOrdering(raw string) string {
	if raw == "" {
		return ""
	}
	var safe []string
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		base := strings.TrimPrefix(f, "-")
		if !orderable[base] {
			continue
		}
		if strings.HasPrefix(f, "-") {
			safe = append(safe, base+" desc")
		} else {
			safe = append(safe, base+" asc")
		}
	}
	return strings.Join(safe, ", ")
}
