package services

import (
	"strings"
	"time"

	"royalty-dashboard/internal/models"
)

// FilterParams is the dashboard's filter state. Zero values disable every
// predicate.
type FilterParams struct {
	// DateRange holds inclusive start and end dates. Any length other than two
	// selects the full range of the table.
	DateRange       []time.Time
	Distributors    []string
	Classifications []string
	Stores          []string
	Countries       []string
	Search          string
	MinRevenue      float64
	MinUnits        float64
}

type predicate func(r *models.Record) bool

// Apply returns the records of t matching every active predicate. The input
// table is never modified.
func Apply(t *models.Table, p FilterParams) *models.Table {
	preds := make([]predicate, 0, 8)

	if start, end, ok := p.bounds(t); ok {
		preds = append(preds, func(r *models.Record) bool {
			return !r.PeriodDate.Before(start) && !r.PeriodDate.After(end)
		})
	}

	preds = appendMembership(preds, p.Distributors, func(r *models.Record) string { return r.Distributor })
	preds = appendMembership(preds, p.Classifications, func(r *models.Record) string { return r.Classification })
	preds = appendMembership(preds, p.Stores, func(r *models.Record) string { return r.Store })
	preds = appendMembership(preds, p.Countries, func(r *models.Record) string { return r.Country })

	if needle := strings.ToLower(strings.TrimSpace(p.Search)); needle != "" {
		fields := searchFields(t)
		preds = append(preds, func(r *models.Record) bool {
			for _, field := range fields {
				if strings.Contains(strings.ToLower(field(r)), needle) {
					return true
				}
			}
			return false
		})
	}

	if p.MinRevenue > 0 {
		preds = append(preds, func(r *models.Record) bool { return r.NetRoyalty >= p.MinRevenue })
	}
	if p.MinUnits > 0 {
		preds = append(preds, func(r *models.Record) bool { return r.Units >= p.MinUnits })
	}

	out := &models.Table{Columns: t.Columns, Records: make([]models.Record, 0, len(t.Records))}
	for i := range t.Records {
		r := &t.Records[i]
		keep := true
		for _, pred := range preds {
			if !pred(r) {
				keep = false
				break
			}
		}
		if keep {
			out.Records = append(out.Records, *r)
		}
	}
	return out
}

// bounds resolves the date range against the table. ok is false when there is
// nothing to bound.
func (p FilterParams) bounds(t *models.Table) (start, end time.Time, ok bool) {
	if len(p.DateRange) == 2 {
		return dateOnly(p.DateRange[0]), dateOnly(p.DateRange[1]), true
	}
	return t.DateBounds()
}

func appendMembership(preds []predicate, values []string, field func(r *models.Record) string) []predicate {
	if len(values) == 0 {
		return preds
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return append(preds, func(r *models.Record) bool {
		_, ok := set[field(r)]
		return ok
	})
}

func searchFields(t *models.Table) []func(r *models.Record) string {
	fields := []func(r *models.Record) string{
		func(r *models.Record) string { return r.TrackTitle },
		func(r *models.Record) string { return r.ReleaseTitle },
		func(r *models.Record) string { return r.Artist },
	}
	if t.Has(models.ColISRC) {
		fields = append(fields, func(r *models.Record) string { return r.ISRC })
	}
	if t.Has(models.ColUPC) {
		fields = append(fields, func(r *models.Record) string { return r.UPC })
	}
	return fields
}
