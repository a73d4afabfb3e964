// Package templates holds the dashboard's HTML components. The page and each
// fragment patched over SSE are templ components backed by one template set.
package templates

import (
	"embed"
	"encoding/json"
	"html/template"
	"slices"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"royalty-dashboard/internal/models"
)

// Element ids targeted by SSE patches.
const (
	KPIsID    = "kpis"
	TablesID  = "tables"
	ExportsID = "exports"
)

//go:embed *.html
var files embed.FS

var funcs = template.FuncMap{
	"money": func(v float64) string { return humanize.FormatFloat("#,###.##", v) },
	"count": func(v float64) string { return humanize.Comma(int64(v)) },
	"comma": func(v int) string { return humanize.Comma(int64(v)) },
	"group": func(label string, rows []models.GroupTotal) groupTable {
		return groupTable{Label: label, Rows: rows}
	},
	"selected": func(value string, chosen []string) bool { return slices.Contains(chosen, value) },
}

var set = template.Must(template.New("dashboard").Funcs(funcs).ParseFS(files, "*.html"))

type groupTable struct {
	Label string
	Rows  []models.GroupTotal
}

// PageData is everything the full page needs on first paint.
type PageData struct {
	Options   models.FilterOptions
	Dashboard *models.Dashboard
	Exports   ExportLinks
	// Signals is the initial Datastar signal store, JSON encoded.
	Signals string
}

type ExportLinks struct {
	CSV  template.URL
	XLSX template.URL
}

// InitialSignals encodes the starting filter state together with the
// timeline series driving the chart.
func InitialSignals(opts models.FilterOptions, timeline []models.MonthlyRevenue) (string, error) {
	signals := map[string]any{
		"from":            opts.MinDate,
		"to":              opts.MaxDate,
		"distributors":    opts.DefaultDistributors,
		"classifications": opts.DefaultClassifications,
		"stores":          opts.DefaultStores,
		"countries":       opts.DefaultCountries,
		"search":          "",
		"minRevenue":      0,
		"minUnits":        0,
		"timeline":        timeline,
	}
	b, err := json.Marshal(signals)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func Page(data PageData) templ.Component {
	return templ.FromGoHTML(set.Lookup("page"), data)
}

func KPIs(d *models.Dashboard) templ.Component {
	return templ.FromGoHTML(set.Lookup("kpis"), d)
}

func Tables(d *models.Dashboard) templ.Component {
	return templ.FromGoHTML(set.Lookup("tables"), d)
}

func Exports(links ExportLinks) templ.Component {
	return templ.FromGoHTML(set.Lookup("exports"), links)
}
