package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"royalty-dashboard/internal/models"
	"royalty-dashboard/internal/services"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func record(period time.Time, distributor, track, store, country string, revenue, units float64) models.Record {
	return models.Record{
		Period:         period,
		PeriodDate:     period,
		NetRoyalty:     revenue,
		Units:          units,
		Distributor:    distributor,
		Artist:         "Ana",
		TrackTitle:     track,
		ReleaseTitle:   "Release " + track,
		Store:          store,
		Country:        country,
		Currency:       "BRL",
		Classification: "master",
		ISRC:           "BRXYZ24000" + track[len(track)-1:],
	}
}

func createTestAnalytics() *services.Analytics {
	a := services.NewAnalytics(nil, testLogger)
	a.SetTable(&models.Table{
		Columns: []string{
			models.ColPeriod, models.ColNetRoyalty, models.ColUnits, models.ColDistributor,
			models.ColArtist, models.ColTrackTitle, models.ColReleaseTitle, models.ColStore,
			models.ColCountry, models.ColCurrency, models.ColClassification, models.ColISRC,
			models.ColPeriodDate,
		},
		Records: []models.Record{
			record(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "ONErpm", "Song A", "Spotify", "BR", 1200.5, 1500),
			record(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), "Believe", "Song B", "Deezer", "PT", 300, 200),
			record(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "ONErpm", "Song C", "Spotify", "BR", 99.5, 10),
		},
	})
	return a
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if data != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}
