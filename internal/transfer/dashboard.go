package transfer

import (
	"context"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/contact"
	"inmocrm/internal/event"
	"inmocrm/internal/notice"
	"inmocrm/internal/property"
	"inmocrm/internal/tenant"
)

type StageCount struct {
	StageID uint64 `json:"stage"`
	Phase   string `json:"phase"`
	Count   int64  `json:"count"`
}

// Dashboard is the landing-page summary: headline totals, the pipeline
// breakdown and the short lists the home screen renders.
type Dashboard struct {
	Contacts   int64 `json:"contacts"`
	Properties int64 `json:"properties"`
	Events     int64 `json:"events"`

	PipelineByStage []StageCount `json:"pipeline_by_stage"`

	UpcomingEvents []event.Event   `json:"upcoming_events"`
	OverdueNotices []notice.Notice `json:"overdue_notices"`
	LatestContacts []any           `json:"latest_contacts"`
}

const dashboardListLimit = 5

func (s *Service) Dashboard(ctx context.Context, id auth.Identity) (*Dashboard, error) {
	d := &Dashboard{}
	now := time.Now().In(s.Loc)

	err := s.DB.WithContext(ctx).Model(&contact.Contact{}).
		Scopes(tenant.Scope(id)).Count(&d.Contacts).Error
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Model(&property.Property{}).
		Scopes(tenant.Scope(id)).Count(&d.Properties).Error
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Model(&event.Event{}).
		Scopes(tenant.Scope(id)).Count(&d.Events).Error
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Model(&contact.Contact{}).
		Scopes(tenant.Scope(id)).
		Select("contacts.stage_id as stage_id, stages.phase as phase, count(*) as count").
		Joins("JOIN stages ON stages.id = contacts.stage_id").
		Group("contacts.stage_id, stages.phase").
		Order("count desc").
		Scan(&d.PipelineByStage).Error
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Model(&event.Event{}).
		Scopes(tenant.Scope(id)).
		Preload("Contact").
		Preload("Property").
		Where("starts_at >= ?", now).
		Order("starts_at asc").
		Limit(dashboardListLimit).
		Find(&d.UpcomingEvents).Error
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Model(&notice.Notice{}).
		Scopes(tenant.Scope(id)).
		Where("status = ? AND due_at < ?", notice.StatusPending, now).
		Order("due_at asc").
		Limit(dashboardListLimit).
		Find(&d.OverdueNotices).Error
	if err != nil {
		return nil, err
	}
	for i := range d.OverdueNotices {
		d.OverdueNotices[i].Status = d.OverdueNotices[i].EffectiveStatus(now)
	}

	var latest []contact.Contact
	err = s.DB.WithContext(ctx).Model(&contact.Contact{}).
		Scopes(tenant.Scope(id)).
		Preload("Stage").
		Order("created_at desc").
		Limit(dashboardListLimit).
		Find(&latest).Error
	if err != nil {
		return nil, err
	}
	d.LatestContacts = make([]any, 0, len(latest))
	for _, c := range latest {
		d.LatestContacts = append(d.LatestContacts, contact.View(c, now))
	}

	return d, nil
}
