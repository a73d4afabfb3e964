package templates

import (
	"context"
	"encoding/json"
	"html"
	"regexp"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royalty-dashboard/internal/models"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, c.Render(context.Background(), &sb))
	return sb.String()
}

func sampleDashboard() *models.Dashboard {
	return &models.Dashboard{
		Breakdown: models.Breakdown{
			Summary:  models.Summary{TotalRevenue: 1600, TotalUnits: 1710, UniqueTracks: 3, RowCount: 1234},
			Timeline: []models.MonthlyRevenue{{Month: "2024-01", Revenue: 1200.5}},
			ByDistributor: []models.GroupTotal{
				{Key: "ONErpm", Revenue: 1200.5, Units: 1500},
				{Key: "<Believe>", Revenue: 300, Units: 200},
			},
			TopTracks: []models.TrackTotal{{TrackTitle: "Song A", Revenue: 1200.5, Units: 1500, Distributors: "Believe, ONErpm"}},
		},
		KPIs: models.KPIDisplay{TotalRevenue: "1,600.00", TotalUnits: "1,710", UniqueTracks: "3"},
	}
}

func TestKPIs(t *testing.T) {
	out := render(t, KPIs(sampleDashboard()))

	assert.Contains(t, out, `id="kpis"`)
	assert.Contains(t, out, "1,600.00")
	assert.Contains(t, out, "1,710")
	assert.Contains(t, out, "1,234")
}

func TestTables(t *testing.T) {
	out := render(t, Tables(sampleDashboard()))

	assert.Contains(t, out, `id="tables"`)
	assert.Contains(t, out, "<td>ONErpm</td>")
	assert.Contains(t, out, "1,200.50")
	assert.Contains(t, out, "&lt;Believe&gt;")
	assert.NotContains(t, out, "<Believe>")
	assert.Contains(t, out, "Believe, ONErpm")
	assert.Contains(t, out, "2024-01")
	// stores, countries and classifications are empty in the sample
	assert.Equal(t, 3, strings.Count(out, "No rows match the current filters."))
}

func TestTables_Empty(t *testing.T) {
	out := render(t, Tables(&models.Dashboard{}))
	assert.Equal(t, 6, strings.Count(out, "No rows match the current filters."))
}

func TestExports(t *testing.T) {
	out := render(t, Exports(ExportLinks{
		CSV:  "/export/csv?distributor=ONErpm&q=song",
		XLSX: "/export/xlsx?distributor=ONErpm&q=song",
	}))

	assert.Contains(t, out, `id="exports"`)
	assert.Contains(t, out, `href="/export/csv?distributor=ONErpm&amp;q=song"`)
	assert.Contains(t, out, `href="/export/xlsx?distributor=ONErpm&amp;q=song"`)
}

func TestPage(t *testing.T) {
	opts := models.FilterOptions{
		MinDate:                "2024-01-05",
		MaxDate:                "2024-03-15",
		Distributors:           []string{"Believe", "ONErpm"},
		Classifications:        []string{"master"},
		Stores:                 []string{"Spotify"},
		Countries:              []string{"BR"},
		DefaultDistributors:    []string{"Believe", "ONErpm"},
		DefaultClassifications: []string{"master"},
		DefaultStores:          []string{},
		DefaultCountries:       []string{},
	}
	d := sampleDashboard()
	signals, err := InitialSignals(opts, d.Timeline)
	require.NoError(t, err)

	out := render(t, Page(PageData{
		Options:   opts,
		Dashboard: d,
		Exports:   ExportLinks{CSV: "/export/csv", XLSX: "/export/xlsx"},
		Signals:   signals,
	}))

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, `id="kpis"`)
	assert.Contains(t, out, `id="tables"`)
	assert.Contains(t, out, `id="exports"`)
	assert.Contains(t, out, `<option value="ONErpm" selected>`)
	assert.Contains(t, out, `<option value="Spotify">`)
	assert.Contains(t, out, "@get('/sse/refresh')")

	m := regexp.MustCompile(`data-signals="([^"]*)"`).FindStringSubmatch(out)
	require.Len(t, m, 2)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(html.UnescapeString(m[1])), &decoded))
	assert.Equal(t, "2024-01-05", decoded["from"])
	assert.Equal(t, "2024-03-15", decoded["to"])
	assert.Equal(t, []any{}, decoded["stores"])
	assert.Len(t, decoded["timeline"], 1)
}
