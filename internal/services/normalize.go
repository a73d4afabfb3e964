package services

import (
	"math"
	"strconv"
	"strings"
	"time"

	"royalty-dashboard/internal/models"
)

type categorical struct {
	column   string
	sentinel string
	set      func(r *models.Record, v string)
}

// categoricals lists the columns that must never be empty after load, with the
// label substituted for missing values.
var categoricals = []categorical{
	{models.ColDistributor, "(no distributor)", func(r *models.Record, v string) { r.Distributor = v }},
	{models.ColArtist, "(no artist)", func(r *models.Record, v string) { r.Artist = v }},
	{models.ColTrackTitle, "(no track)", func(r *models.Record, v string) { r.TrackTitle = v }},
	{models.ColReleaseTitle, "(no release)", func(r *models.Record, v string) { r.ReleaseTitle = v }},
	{models.ColStore, "(no store)", func(r *models.Record, v string) { r.Store = v }},
	{models.ColCountry, "(no country)", func(r *models.Record, v string) { r.Country = v }},
	{models.ColCurrency, "(no currency)", func(r *models.Record, v string) { r.Currency = v }},
	{models.ColClassification, "uncertain", func(r *models.Record, v string) { r.Classification = v }},
}

// Sentinel returns the placeholder label used for missing values of col.
func Sentinel(col string) string {
	for _, c := range categoricals {
		if c.column == col {
			return c.sentinel
		}
	}
	return ""
}

var nullTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"NaN":  {},
	"None": {},
	"null": {},
	"NULL": {},
	"<NA>": {},
}

func isNullText(s string) bool {
	_, ok := nullTokens[s]
	return ok
}

// cleanText trims v and reports whether it is a usable value.
func cleanText(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if isNullText(v) {
		return "", false
	}
	return v, true
}

// coerceNumber converts a raw cell into a finite float. ok is false when the
// cell was present but could not be used; a missing cell is not counted.
func coerceNumber(v any) (f float64, ok bool) {
	switch n := v.(type) {
	case nil:
		return 0, true
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case int:
		f = float64(n)
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(n)
		if isNullText(s) {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) {
		return 0, true
	}
	if math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var periodLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"2006/01/02",
	"01/02/2006",
	"2006-01",
}

func parsePeriod(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if isNullText(s) || s == "NaT" {
		return time.Time{}, false
	}
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
