package services

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"royalty-dashboard/internal/models"
)

const (
	maxStores    = 20
	maxCountries = 20
	maxTracks    = 30
	monthLayout  = "2006-01"
)

type groupSum struct {
	revenue decimal.Decimal
	units   decimal.Decimal
}

func (g *groupSum) add(r *models.Record) {
	g.revenue = g.revenue.Add(decimal.NewFromFloat(r.NetRoyalty))
	g.units = g.units.Add(decimal.NewFromFloat(r.Units))
}

// Aggregate computes the KPIs, the monthly series and every grouped table for t.
func Aggregate(t *models.Table) models.Breakdown {
	return models.Breakdown{
		Summary:          summarize(t),
		Timeline:         monthlyRevenue(t),
		ByDistributor:    groupTotals(t, func(r *models.Record) string { return r.Distributor }, 0),
		ByClassification: groupTotals(t, func(r *models.Record) string { return r.Classification }, 0),
		ByStore:          groupTotals(t, func(r *models.Record) string { return r.Store }, maxStores),
		ByCountry:        groupTotals(t, func(r *models.Record) string { return r.Country }, maxCountries),
		TopTracks:        topTracks(t, maxTracks),
	}
}

func summarize(t *models.Table) models.Summary {
	var total groupSum
	tracks := make(map[string]struct{})
	for i := range t.Records {
		r := &t.Records[i]
		total.add(r)
		tracks[r.TrackTitle] = struct{}{}
	}
	return models.Summary{
		TotalRevenue: total.revenue.InexactFloat64(),
		TotalUnits:   total.units.Truncate(0).IntPart(),
		UniqueTracks: len(tracks),
		RowCount:     len(t.Records),
	}
}

func monthlyRevenue(t *models.Table) []models.MonthlyRevenue {
	months := make(map[string]decimal.Decimal)
	for i := range t.Records {
		r := &t.Records[i]
		key := r.Period.Format(monthLayout)
		months[key] = months[key].Add(decimal.NewFromFloat(r.NetRoyalty))
	}

	result := make([]models.MonthlyRevenue, 0, len(months))
	for month, revenue := range months {
		result = append(result, models.MonthlyRevenue{Month: month, Revenue: revenue.InexactFloat64()})
	}
	slices.SortFunc(result, func(a, b models.MonthlyRevenue) int {
		return strings.Compare(a.Month, b.Month)
	})
	return result
}

// groupTotals sums revenue and units per key. Groups are ordered by key, then
// stably by revenue descending. limit <= 0 keeps every group.
func groupTotals(t *models.Table, key func(r *models.Record) string, limit int) []models.GroupTotal {
	groups := make(map[string]*groupSum)
	for i := range t.Records {
		r := &t.Records[i]
		k := key(r)
		g, ok := groups[k]
		if !ok {
			g = &groupSum{}
			groups[k] = g
		}
		g.add(r)
	}

	result := make([]models.GroupTotal, 0, len(groups))
	for k, g := range groups {
		result = append(result, models.GroupTotal{
			Key:     k,
			Revenue: g.revenue.InexactFloat64(),
			Units:   g.units.InexactFloat64(),
		})
	}
	slices.SortFunc(result, func(a, b models.GroupTotal) int {
		return strings.Compare(a.Key, b.Key)
	})
	slices.SortStableFunc(result, func(a, b models.GroupTotal) int {
		return compareRevenueDesc(a.Revenue, b.Revenue)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func topTracks(t *models.Table, limit int) []models.TrackTotal {
	type trackGroup struct {
		groupSum
		distributors map[string]struct{}
	}

	groups := make(map[string]*trackGroup)
	for i := range t.Records {
		r := &t.Records[i]
		g, ok := groups[r.TrackTitle]
		if !ok {
			g = &trackGroup{distributors: make(map[string]struct{})}
			groups[r.TrackTitle] = g
		}
		g.add(r)
		g.distributors[r.Distributor] = struct{}{}
	}

	result := make([]models.TrackTotal, 0, len(groups))
	for title, g := range groups {
		names := make([]string, 0, len(g.distributors))
		for d := range g.distributors {
			names = append(names, d)
		}
		slices.Sort(names)

		result = append(result, models.TrackTotal{
			TrackTitle:   title,
			Revenue:      g.revenue.InexactFloat64(),
			Units:        g.units.InexactFloat64(),
			Distributors: strings.Join(names, ", "),
		})
	}
	slices.SortFunc(result, func(a, b models.TrackTotal) int {
		return strings.Compare(a.TrackTitle, b.TrackTitle)
	})
	slices.SortStableFunc(result, func(a, b models.TrackTotal) int {
		return compareRevenueDesc(a.Revenue, b.Revenue)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func compareRevenueDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}
