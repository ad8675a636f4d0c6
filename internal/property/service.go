package property

import (
	"context"
	"errors"
	"strings"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/contact"
	"inmocrm/internal/jobs"
	"inmocrm/internal/tenant"

	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("property not found")
	ErrInvalidStatus = errors.New("invalid property status")
	ErrInvalidKind   = errors.New("invalid property kind")
)

type Service struct {
	DB  *gorm.DB
	Loc *time.Location
}

type ListFilter struct {
	Query    string // code, title, location
	Status   string
	Kind     string
	Currency string
}

func (s *Service) List(ctx context.Context, id auth.Identity, f ListFilter) ([]Property, error) {
	q := s.DB.WithContext(ctx).Model(&Property{}).Scopes(tenant.Scope(id))

	if t := strings.TrimSpace(f.Query); t != "" {
		like := "%" + t + "%"
		q = q.Where("code ILIKE ? OR title ILIKE ? OR location ILIKE ?", like, like, like)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if f.Currency != "" {
		q = q.Where("currency = ?", f.Currency)
	}

	var out []Property
	err := q.Order("created_at desc").Find(&out).Error
	return out, err
}

func (s *Service) Get(ctx context.Context, id auth.Identity, propertyID uint64) (*Property, error) {
	var p Property
	err := s.DB.WithContext(ctx).Scopes(tenant.Scope(id)).First(&p, propertyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) Create(ctx context.Context, id auth.Identity, p *Property) error {
	if p.Status == "" {
		p.Status = StatusAvailable
	}
	if p.Kind == "" {
		p.Kind = KindHouse
	}
	if !ValidStatuses[p.Status] {
		return ErrInvalidStatus
	}
	if !ValidKinds[p.Kind] {
		return ErrInvalidKind
	}
	p.OwnerID = id.UserID
	if p.Status == StatusSold && p.SoldAt == nil {
		now := time.Now().In(s.Loc)
		p.SoldAt = &now
	}
	return s.DB.WithContext(ctx).Create(p).Error
}

// Update applies the given fields. A transition into "vendido" stamps SoldAt
// so monthly sales metrics have an exact timestamp to aggregate on.
func (s *Service) Update(ctx context.Context, id auth.Identity, propertyID uint64, fields map[string]any) (*Property, error) {
	var out *Property
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Property
		if err := tx.Scopes(tenant.Scope(id)).First(&p, propertyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if v, ok := fields["status"].(string); ok {
			if !ValidStatuses[v] {
				return ErrInvalidStatus
			}
			if v == StatusSold && p.Status != StatusSold {
				fields["sold_at"] = time.Now().In(s.Loc)
			}
		}
		if v, ok := fields["kind"].(string); ok && !ValidKinds[v] {
			return ErrInvalidKind
		}

		if err := tx.Model(&p).Updates(fields).Error; err != nil {
			return err
		}
		out = &p
		return nil
	})
	return out, err
}

// Delete removes the property and cascades to its events and notices. The
// contacts those events pointed at get their next-contact recomputed so the
// timeline never references a deleted event.
func (s *Service) Delete(ctx context.Context, id auth.Identity, propertyID uint64) error {
	now := time.Now().In(s.Loc)
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Property
		if err := tx.Scopes(tenant.Scope(id)).First(&p, propertyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		// events may belong to another agent than the listing does
		var linked []struct {
			ID        uint64
			OwnerID   uint64
			ContactID uint64
		}
		if err := tx.Table("events").
			Select("id, owner_id, contact_id").
			Where("property_id = ? AND contact_id IS NOT NULL", p.ID).
			Scan(&linked).Error; err != nil {
			return err
		}

		if err := tx.Exec("delete from notices where property_id = ?", p.ID).Error; err != nil {
			return err
		}
		if err := tx.Exec("delete from events where property_id = ?", p.ID).Error; err != nil {
			return err
		}

		contacts := make(map[uint64]bool, len(linked))
		for _, ev := range linked {
			if err := jobs.CancelReminders(tx, ev.OwnerID, ev.ID); err != nil {
				return err
			}
			contacts[ev.ContactID] = true
		}
		for contactID := range contacts {
			if err := contact.RecomputeNext(tx, contactID, now); err != nil {
				return err
			}
		}

		return tx.Delete(&p).Error
	})
}
