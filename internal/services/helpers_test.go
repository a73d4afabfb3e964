package services

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"royalty-dashboard/internal/models"
)

var baseColumns = []string{
	models.ColPeriod, models.ColNetRoyalty, models.ColUnits,
	models.ColDistributor, models.ColArtist, models.ColTrackTitle, models.ColReleaseTitle,
	models.ColStore, models.ColCountry, models.ColCurrency, models.ColClassification,
	models.ColPeriodDate,
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fact(period time.Time, distributor, track string, revenue, units float64) models.Record {
	return models.Record{
		Period:         period,
		PeriodDate:     dateOnly(period),
		NetRoyalty:     revenue,
		Units:          units,
		Distributor:    distributor,
		Artist:         "Artist " + track,
		TrackTitle:     track,
		ReleaseTitle:   "Release " + track,
		Store:          "Spotify",
		Country:        "BR",
		Currency:       "BRL",
		Classification: "master",
	}
}

func newTable(records ...models.Record) *models.Table {
	return &models.Table{Columns: baseColumns, Records: records}
}

// sampleTable covers three distributors, four stores, two countries and three
// months with a few zero-valued rows.
func sampleTable() *models.Table {
	rows := []models.Record{
		fact(day(2024, 1, 5), "ONErpm", "Song A", 100.5, 1000),
		fact(day(2024, 1, 20), "Believe", "Song B", 40, 300),
		fact(day(2024, 2, 2), "ONErpm", "Song A", 0, 0),
		fact(day(2024, 2, 14), "DistroKid", "Song C", 12.25, 90),
		fact(day(2024, 3, 1), "Believe", "Song A", 55, 410),
		fact(day(2024, 3, 30), "ONErpm", "Song D", 7.75, 0),
	}
	rows[1].Store = "Deezer"
	rows[3].Store = "YouTube"
	rows[3].Country = "PT"
	rows[4].Store = "Apple Music"
	rows[4].Classification = "publishing"
	rows[5].Country = "PT"
	return newTable(rows...)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
