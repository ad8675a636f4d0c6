package transfer

import (
	"context"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/contact"
	"inmocrm/internal/property"
	"inmocrm/internal/tenant"
)

// MonthMetrics is the per-month performance snapshot: leads captured, sales
// closed and the conversion between them.
type MonthMetrics struct {
	Year          int     `json:"year"`
	Month         int     `json:"month"`
	Leads         int64   `json:"leads"`
	Sales         int64   `json:"sales"`
	ConversionPct float64 `json:"conversion_pct"`
}

// Metrics counts leads created and properties sold in the given month. A sold
// property without a sale timestamp falls back to its creation date, so
// legacy rows imported before the timestamp existed still count somewhere.
func (s *Service) Metrics(ctx context.Context, id auth.Identity, year, month int) (*MonthMetrics, error) {
	start, end := monthRange(year, month, s.Loc)

	m := &MonthMetrics{Year: year, Month: month}

	err := s.DB.WithContext(ctx).Model(&contact.Contact{}).
		Scopes(tenant.Scope(id)).
		Where("created_at BETWEEN ? AND ?", start, end).
		Count(&m.Leads).Error
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Model(&property.Property{}).
		Scopes(tenant.Scope(id)).
		Where("status = ?", property.StatusSold).
		Where(
			s.DB.Where("sold_at BETWEEN ? AND ?", start, end).
				Or("sold_at IS NULL AND created_at BETWEEN ? AND ?", start, end),
		).
		Count(&m.Sales).Error
	if err != nil {
		return nil, err
	}

	if m.Leads > 0 {
		m.ConversionPct = float64(m.Sales) / float64(m.Leads) * 100
	}
	return m, nil
}

// MetricsRange returns one snapshot per month, inclusive on both ends.
func (s *Service) MetricsRange(ctx context.Context, id auth.Identity, fromYear, fromMonth, toYear, toMonth int) ([]MonthMetrics, error) {
	var out []MonthMetrics
	cur := time.Date(fromYear, time.Month(fromMonth), 1, 0, 0, 0, 0, s.Loc)
	last := time.Date(toYear, time.Month(toMonth), 1, 0, 0, 0, 0, s.Loc)
	for !cur.After(last) {
		m, err := s.Metrics(ctx, id, cur.Year(), int(cur.Month()))
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
		cur = cur.AddDate(0, 1, 0)
	}
	return out, nil
}
