package notice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/tenant"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("notice not found")

type Service struct {
	DB  *gorm.DB
	Loc *time.Location
}

func (s *Service) now() time.Time { return time.Now().In(s.Loc) }

// EventRef carries the event fields the lifecycle rules need, so this
// package stays decoupled from the event package.
type EventRef struct {
	EventID      uint64
	OwnerID      uint64
	Type         string
	StartsAt     time.Time
	ContactID    *uint64
	ContactName  string
	PropertyID   *uint64
	PropertyName string
}

// SyncEventSave is called inside the event write transaction after a create
// or update:
//   - future event with a contact: upsert the pending notice keyed by event id
//   - past-or-present event: a pending notice flips to completed, never deleted
//   - future event without a contact: any stale notice for the event is dropped
func SyncEventSave(tx *gorm.DB, ref EventRef, now time.Time) error {
	if !ref.StartsAt.After(now) {
		return tx.Model(&Notice{}).
			Where("event_id = ? AND status = ?", ref.EventID, StatusPending).
			Update("status", StatusCompleted).Error
	}

	if ref.ContactID == nil {
		return tx.Where("event_id = ?", ref.EventID).Delete(&Notice{}).Error
	}

	title := fmt.Sprintf("Seguimiento: %s", ref.ContactName)
	desc := describeEvent(ref)

	var existing Notice
	err := tx.Where("event_id = ?", ref.EventID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		n := Notice{
			OwnerID:     ref.OwnerID,
			Title:       title,
			Description: desc,
			DueAt:       ref.StartsAt,
			Status:      StatusPending,
			EventID:     &ref.EventID,
			ContactID:   ref.ContactID,
			PropertyID:  ref.PropertyID,
		}
		return tx.Create(&n).Error
	case err != nil:
		return err
	}

	return tx.Model(&existing).Updates(map[string]any{
		"title":       title,
		"description": desc,
		"due_at":      ref.StartsAt,
		"status":      StatusPending,
		"contact_id":  ref.ContactID,
		"property_id": ref.PropertyID,
	}).Error
}

// DeleteForEvent drops the notice keyed by the event, if any.
func DeleteForEvent(tx *gorm.DB, eventID uint64) error {
	return tx.Where("event_id = ?", eventID).Delete(&Notice{}).Error
}

func describeEvent(ref EventRef) string {
	parts := []string{ref.Type}
	if ref.PropertyName != "" {
		parts = append(parts, "en "+ref.PropertyName)
	}
	return strings.Join(parts, " ")
}

type ListFilter struct {
	Status string // effective status filter
}

// List returns the caller's notices with the wall-clock overdue rule applied.
func (s *Service) List(ctx context.Context, id auth.Identity, f ListFilter) ([]Notice, error) {
	var rows []Notice
	err := s.DB.WithContext(ctx).
		Scopes(tenant.Scope(id)).
		Order("due_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := rows[:0]
	for _, n := range rows {
		n.Status = n.EffectiveStatus(now)
		if f.Status != "" && n.Status != f.Status {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id auth.Identity, noticeID uint64) (*Notice, error) {
	var n Notice
	err := s.DB.WithContext(ctx).Scopes(tenant.Scope(id)).First(&n, noticeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	n.Status = n.EffectiveStatus(s.now())
	return &n, nil
}

// Update lets a user close or reword a notice by hand.
func (s *Service) Update(ctx context.Context, id auth.Identity, noticeID uint64, fields map[string]any) (*Notice, error) {
	if v, ok := fields["status"].(string); ok {
		if v != StatusPending && v != StatusCompleted && v != StatusOverdue {
			return nil, fmt.Errorf("estado inválido: %q", v)
		}
	}
	var n Notice
	err := s.DB.WithContext(ctx).Scopes(tenant.Scope(id)).First(&n, noticeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&n).Updates(fields).Error; err != nil {
		return nil, err
	}
	n.Status = n.EffectiveStatus(s.now())
	return &n, nil
}

func (s *Service) Delete(ctx context.Context, id auth.Identity, noticeID uint64) error {
	res := s.DB.WithContext(ctx).Scopes(tenant.Scope(id)).Delete(&Notice{}, noticeID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkOverdue persists pendiente→atrasado for notices whose due time passed.
// Run periodically so listings can filter on the stored column; reads apply
// the same rule on the fly either way.
func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&Notice{}).
		Where("status = ? AND due_at < ?", StatusPending, s.now()).
		Update("status", StatusOverdue)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("notices: marked %d overdue\n", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
