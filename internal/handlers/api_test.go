package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royalty-dashboard/internal/models"
	"royalty-dashboard/internal/services"
)

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	h := NewAPIHandlers(analytics, testLogger)

	require.NotNil(t, h)
	assert.Same(t, analytics, h.analytics)
	assert.Same(t, testLogger, h.logger)
}

func TestAPIHandlers_Summary(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger)

	rec := httptest.NewRecorder()
	h.HandleSummary(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, cacheControl, rec.Header().Get("Cache-Control"))

	var data struct {
		Summary models.Summary    `json:"summary"`
		KPIs    models.KPIDisplay `json:"kpis"`
	}
	env := decode(t, rec, &data)
	assert.True(t, env.Success)
	assert.InDelta(t, 1600.0, data.Summary.TotalRevenue, 1e-9)
	assert.Equal(t, int64(1710), data.Summary.TotalUnits)
	assert.Equal(t, 3, data.Summary.UniqueTracks)
	assert.Equal(t, "1,600.00", data.KPIs.TotalRevenue)
}

func TestAPIHandlers_Filtering(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"no filters", "", []string{"ONErpm", "Believe"}},
		{"distributor", "?distributor=Believe", []string{"Believe"}},
		{"repeated distributor", "?distributor=Believe&distributor=ONErpm", []string{"ONErpm", "Believe"}},
		{"country", "?country=BR", []string{"ONErpm"}},
		{"date range", "?from=2024-02-01&to=2024-02-28", []string{"Believe"}},
		{"single date is ignored", "?from=2024-02-01", []string{"ONErpm", "Believe"}},
		{"search isrc", "?q=brxyz24000b", []string{"Believe"}},
		{"min revenue", "?min_revenue=100", []string{"ONErpm", "Believe"}},
		{"min units", "?min_units=1000", []string{"ONErpm"}},
		{"nothing matches", "?store=Tidal", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleDistributors(rec, httptest.NewRequest(http.MethodGet, "/api/distributors"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var groups []models.GroupTotal
			decode(t, rec, &groups)
			keys := make([]string, 0, len(groups))
			for _, g := range groups {
				keys = append(keys, g.Key)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestAPIHandlers_InvalidParams(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger)

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"bad date", "?from=05/01/2024", "from"},
		{"negative revenue", "?min_revenue=-1", "minRevenue"},
		{"non-numeric units", "?min_units=lots", "min_units"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleSummary(rec, httptest.NewRequest(http.MethodGet, "/api/summary"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := decode(t, rec, nil)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
			assert.Contains(t, env.Error.Fields, tt.field)
		})
	}
}

func TestAPIHandlers_Breakdowns(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger)

	t.Run("timeline", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleTimeline(rec, httptest.NewRequest(http.MethodGet, "/api/timeline", nil))
		var months []models.MonthlyRevenue
		decode(t, rec, &months)
		require.Len(t, months, 3)
		assert.Equal(t, "2024-01", months[0].Month)
	})

	t.Run("classifications", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleClassifications(rec, httptest.NewRequest(http.MethodGet, "/api/classifications", nil))
		var groups []models.GroupTotal
		decode(t, rec, &groups)
		require.Len(t, groups, 1)
		assert.Equal(t, "master", groups[0].Key)
	})

	t.Run("stores", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleStores(rec, httptest.NewRequest(http.MethodGet, "/api/stores", nil))
		var groups []models.GroupTotal
		decode(t, rec, &groups)
		require.Len(t, groups, 2)
		assert.Equal(t, "Spotify", groups[0].Key)
	})

	t.Run("countries", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleCountries(rec, httptest.NewRequest(http.MethodGet, "/api/countries", nil))
		var groups []models.GroupTotal
		decode(t, rec, &groups)
		require.Len(t, groups, 2)
		assert.Equal(t, "BR", groups[0].Key)
	})

	t.Run("top tracks", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleTopTracks(rec, httptest.NewRequest(http.MethodGet, "/api/top-tracks", nil))
		var tracks []models.TrackTotal
		decode(t, rec, &tracks)
		require.Len(t, tracks, 3)
		assert.Equal(t, "Song A", tracks[0].TrackTitle)
		assert.Equal(t, "ONErpm", tracks[0].Distributors)
	})

	t.Run("dashboard", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleDashboard(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?country=PT", nil))
		var d models.Dashboard
		decode(t, rec, &d)
		assert.Equal(t, 1, d.Summary.RowCount)
		assert.Len(t, d.TopTracks, 1)
	})
}

func TestAPIHandlers_Filters(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger)

	rec := httptest.NewRecorder()
	h.HandleFilters(rec, httptest.NewRequest(http.MethodGet, "/api/filters", nil))

	var opts models.FilterOptions
	decode(t, rec, &opts)
	assert.Equal(t, "2024-01-05", opts.MinDate)
	assert.Equal(t, "2024-03-15", opts.MaxDate)
	assert.Equal(t, []string{"Believe", "ONErpm"}, opts.Distributors)
	assert.Equal(t, opts.Distributors, opts.DefaultDistributors)
	assert.Equal(t, []string{}, opts.DefaultStores)
}

func TestAPIHandlers_Health(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger)

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var data map[string]any
	decode(t, rec, &data)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, float64(3), data["records"])

	empty := NewAPIHandlers(services.NewAnalytics(nil, testLogger), testLogger)
	rec = httptest.NewRecorder()
	empty.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIHandlers_Stats(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger)

	rec := httptest.NewRecorder()
	h.HandleStats(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	var data map[string]any
	decode(t, rec, &data)
	assert.Equal(t, float64(3), data["record_count"])
	assert.Contains(t, data, "load")
}
