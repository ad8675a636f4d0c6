package contact

import (
	"context"
	"errors"
	"strings"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/stage"
	"inmocrm/internal/tenant"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("contact not found")

type Service struct {
	DB  *gorm.DB
	Loc *time.Location
}

func (s *Service) now() time.Time { return time.Now().In(s.Loc) }

type ListFilter struct {
	Query         string // matches name, last name, email, phone
	StageID       uint64
	Due           string // pendiente | vencido | hoy | proximo
	DueWithinDays int    // horizon for "proximo", default 3
	StaleDays     int    // no follow-up in N days
	Ordering      string // comma-separated, safe-listed
}

var orderable = map[string]bool{
	"id": true, "created_at": true, "last_contact_at": true, "next_contact_at": true,
}

func (s *Service) List(ctx context.Context, id auth.Identity, f ListFilter) ([]Contact, error) {
	q := s.DB.WithContext(ctx).Model(&Contact{}).
		Scopes(tenant.Scope(id)).
		Preload("Stage")

	if t := strings.TrimSpace(f.Query); t != "" {
		like := "%" + t + "%"
		q = q.Where(
			"name ILIKE ? OR last_name ILIKE ? OR email ILIKE ? OR phone ILIKE ?",
			like, like, like, like,
		)
	}
	if f.StageID != 0 {
		q = q.Where("stage_id = ?", f.StageID)
	}

	now := s.now()
	today := dayStart(now)
	within := f.DueWithinDays
	if within <= 0 {
		within = 3
	}

	switch f.Due {
	case FollowUpPending:
		q = q.Where("next_contact_at IS NULL")
	case FollowUpOverdue:
		q = q.Where("next_contact_at < ?", today)
	case FollowUpToday:
		q = q.Where("next_contact_at >= ? AND next_contact_at < ?", today, today.AddDate(0, 0, 1))
	case FollowUpSoon:
		q = q.Where("next_contact_at >= ? AND next_contact_at < ?",
			today.AddDate(0, 0, 1), today.AddDate(0, 0, within+1))
	}

	if f.StaleDays > 0 {
		edge := today.AddDate(0, 0, -f.StaleDays)
		q = q.Where("last_contact_at < ? OR last_contact_at IS NULL", edge)
	}

	order := safeOrdering(f.Ordering)
	if order == "" {
		order = "id desc"
	}

	var out []Contact
	err := q.Order(order).Find(&out).Error
	return out, err
}

func (s *Service) Get(ctx context.Context, id auth.Identity, contactID uint64) (*Contact, error) {
	var c Contact
	err := s.DB.WithContext(ctx).
		Scopes(tenant.Scope(id)).
		Preload("Stage").
		First(&c, contactID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Service) Create(ctx context.Context, id auth.Identity, c *Contact) error {
	c.OwnerID = id.UserID
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return stage.LogTransition(tx, c.ID, nil, c.StageID, s.now())
	})
}

type UpdateInput struct {
	Name            *string
	LastName        *string
	Email           *string
	Phone           *string
	StageID         *uint64
	StageSet        bool // distinguishes "set to null" from "not sent"
	NextContactAt   *time.Time
	NextContactSet  bool
	NextContactNote *string
}

func (s *Service) Update(ctx context.Context, id auth.Identity, contactID uint64, in UpdateInput) (*Contact, error) {
	var out *Contact
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Contact
		if err := tx.Scopes(tenant.Scope(id)).First(&c, contactID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		oldStage := c.StageID

		if in.Name != nil {
			c.Name = *in.Name
		}
		if in.LastName != nil {
			c.LastName = *in.LastName
		}
		if in.Email != nil {
			c.Email = strings.ToLower(strings.TrimSpace(*in.Email))
		}
		if in.Phone != nil {
			c.Phone = *in.Phone
		}
		if in.StageSet {
			c.StageID = in.StageID
		}
		if in.NextContactSet {
			c.NextContactAt = in.NextContactAt
		}
		if in.NextContactNote != nil {
			c.NextContactNote = *in.NextContactNote
		}

		if err := tx.Save(&c).Error; err != nil {
			return err
		}
		if in.StageSet {
			if err := stage.LogTransition(tx, c.ID, oldStage, c.StageID, s.now()); err != nil {
				return err
			}
		}
		out = &c
		return nil
	})
	return out, err
}

// Delete removes the contact, detaches its events and drops its notices,
// mirroring the FK semantics of the schema (events SET NULL, notices CASCADE).
func (s *Service) Delete(ctx context.Context, id auth.Identity, contactID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Contact
		if err := tx.Scopes(tenant.Scope(id)).First(&c, contactID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Table("events").Where("contact_id = ?", c.ID).
			Update("contact_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Exec("delete from notices where contact_id = ?", c.ID).Error; err != nil {
			return err
		}
		if err := tx.Where("contact_id = ?", c.ID).Delete(&stage.History{}).Error; err != nil {
			return err
		}
		return tx.Delete(&c).Error
	})
}

func (s *Service) StageHistory(ctx context.Context, id auth.Identity, contactID uint64) ([]stage.History, error) {
	if _, err := s.Get(ctx, id, contactID); err != nil {
		return nil, err
	}
	var out []stage.History
	err := s.DB.WithContext(ctx).
		Preload("Stage").
		Where("contact_id = ?", contactID).
		Order("changed_at desc").
		Find(&out).Error
	return out, err
}

// RemindersParams tunes the follow-up panel.
type RemindersParams struct {
	RemindEveryDays int // stale edge; 0 means use the caller's preference
	SoonWithinDays  int // "proximo" horizon, default 3
	Limit           int // per bucket, default 50
}

type Bucket struct {
	Count int   `json:"count"`
	Items []any `json:"items"`
}

// Reminders groups the caller's contacts into follow-up buckets: never
// planned, overdue, due today, due soon, and gone quiet.
func (s *Service) Reminders(ctx context.Context, id auth.Identity, p RemindersParams) (map[string]any, error) {
	if p.RemindEveryDays <= 0 {
		var u auth.User
		if err := s.DB.WithContext(ctx).First(&u, id.UserID).Error; err == nil && u.ReminderEveryDays > 0 {
			p.RemindEveryDays = u.ReminderEveryDays
		} else {
			p.RemindEveryDays = 3
		}
	}
	if p.SoonWithinDays <= 0 {
		p.SoonWithinDays = 3
	}
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}

	now := s.now()
	today := dayStart(now)
	tomorrow := today.AddDate(0, 0, 1)
	soonEnd := today.AddDate(0, 0, p.SoonWithinDays+1)
	staleEdge := today.AddDate(0, 0, -p.RemindEveryDays)

	base := func() *gorm.DB {
		return s.DB.WithContext(ctx).Model(&Contact{}).Scopes(tenant.Scope(id))
	}

	bucket := func(q *gorm.DB) (Bucket, error) {
		var rows []Contact
		if err := q.Limit(p.Limit).Find(&rows).Error; err != nil {
			return Bucket{}, err
		}
		items := make([]any, 0, len(rows))
		for _, c := range rows {
			items = append(items, View(c, now))
		}
		return Bucket{Count: len(items), Items: items}, nil
	}

	pending, err := bucket(base().Where("next_contact_at IS NULL").Order("id desc"))
	if err != nil {
		return nil, err
	}
	overdue, err := bucket(base().Where("next_contact_at < ?", today).Order("next_contact_at asc"))
	if err != nil {
		return nil, err
	}
	dueToday, err := bucket(base().
		Where("next_contact_at >= ? AND next_contact_at < ?", today, tomorrow).
		Order("next_contact_at asc"))
	if err != nil {
		return nil, err
	}
	soon, err := bucket(base().
		Where("next_contact_at >= ? AND next_contact_at < ?", tomorrow, soonEnd).
		Order("next_contact_at asc"))
	if err != nil {
		return nil, err
	}
	quiet, err := bucket(base().
		Where("last_contact_at < ? OR last_contact_at IS NULL", staleEdge).
		Order("last_contact_at asc"))
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"params": map[string]any{
			"recordame_cada":  p.RemindEveryDays,
			"proximo_en_dias": p.SoonWithinDays,
			"limit":           p.Limit,
		},
		"pendientes":      pending,
		"vencidos":        overdue,
		"vence_hoy":       dueToday,
		"proximos":        soon,
		"sin_seguimiento": quiet,
	}, nil
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

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
