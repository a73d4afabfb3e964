package models

import (
	"slices"
	"strconv"
	"time"
)

// Source column names.
const (
	ColPeriod         = "period"
	ColPeriodDate     = "period_date"
	ColNetRoyalty     = "net_royalty"
	ColUnits          = "units"
	ColDistributor    = "distributor"
	ColArtist         = "artist"
	ColTrackTitle     = "track_title"
	ColReleaseTitle   = "release_title"
	ColStore          = "store"
	ColCountry        = "country"
	ColCurrency       = "currency"
	ColClassification = "classification"
	ColISRC           = "isrc"
	ColUPC            = "upc"
)

type Record struct {
	Period         time.Time
	PeriodDate     time.Time
	NetRoyalty     float64
	Units          float64
	Distributor    string
	Artist         string
	TrackTitle     string
	ReleaseTitle   string
	Store          string
	Country        string
	Currency       string
	Classification string
	ISRC           string
	UPC            string
	Extra          map[string]string
}

// Value returns the textual form of column col as it appears in exports.
func (r *Record) Value(col string) string {
	switch col {
	case ColPeriod:
		return FormatPeriod(r.Period)
	case ColPeriodDate:
		return r.PeriodDate.Format(time.DateOnly)
	case ColNetRoyalty:
		return strconv.FormatFloat(r.NetRoyalty, 'f', -1, 64)
	case ColUnits:
		return strconv.FormatFloat(r.Units, 'f', -1, 64)
	case ColDistributor:
		return r.Distributor
	case ColArtist:
		return r.Artist
	case ColTrackTitle:
		return r.TrackTitle
	case ColReleaseTitle:
		return r.ReleaseTitle
	case ColStore:
		return r.Store
	case ColCountry:
		return r.Country
	case ColCurrency:
		return r.Currency
	case ColClassification:
		return r.Classification
	case ColISRC:
		return r.ISRC
	case ColUPC:
		return r.UPC
	}
	return r.Extra[col]
}

// FormatPeriod drops the clock part when the timestamp falls on midnight.
func FormatPeriod(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}

// Table is the normalized, immutable royalty dataset. Filtering produces new
// tables that share Columns with their parent.
type Table struct {
	Columns []string
	Records []Record
}

func (t *Table) Has(col string) bool {
	return slices.Contains(t.Columns, col)
}

func (t *Table) Len() int {
	return len(t.Records)
}

// DateBounds returns the smallest and largest PeriodDate. ok is false for an
// empty table.
func (t *Table) DateBounds() (minDate, maxDate time.Time, ok bool) {
	if len(t.Records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	minDate, maxDate = t.Records[0].PeriodDate, t.Records[0].PeriodDate
	for i := range t.Records {
		d := t.Records[i].PeriodDate
		if d.Before(minDate) {
			minDate = d
		}
		if d.After(maxDate) {
			maxDate = d
		}
	}
	return minDate, maxDate, true
}

type LoadStats struct {
	Source         string           `json:"source"`
	Format         string           `json:"format"`
	RowsRead       int64            `json:"rows_read"`
	RowsKept       int64            `json:"rows_kept"`
	RowsDropped    int64            `json:"rows_dropped"`
	Coerced        map[string]int64 `json:"coerced"`
	SentinelFilled map[string]int64 `json:"sentinel_filled"`
	Synthesized    []string         `json:"synthesized"`
	Duration       time.Duration    `json:"duration"`
	LoadedAt       time.Time        `json:"loaded_at"`
}
