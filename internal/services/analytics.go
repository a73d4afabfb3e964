package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"royalty-dashboard/internal/models"
)

const tracerName = "royalty-dashboard/services"

// Observer receives load statistics and per-render measurements.
type Observer interface {
	ObserveLoad(stats models.LoadStats)
	ObserveRender(total, filtered int, duration time.Duration)
}

// Analytics owns the loaded royalty table and runs the
// filter → aggregate → present pipeline against it.
type Analytics struct {
	mu       sync.RWMutex
	table    *models.Table
	options  models.FilterOptions
	stats    models.LoadStats
	loader   *Loader
	observer Observer
	logger   *slog.Logger
}

func NewAnalytics(loader *Loader, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	if loader == nil {
		loader = NewLoader(maxWorkers, logger)
	}
	empty := &models.Table{}
	return &Analytics{
		table:   empty,
		options: buildOptions(empty),
		loader:  loader,
		logger:  logger,
	}
}

func (a *Analytics) SetObserver(o Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observer = o
}

// LoadFromFile loads (or reuses the memoized) source table at path and makes it
// the active table.
func (a *Analytics) LoadFromFile(ctx context.Context, path string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "analytics.load")
	defer span.End()
	span.SetAttributes(attribute.String("source.path", path))

	table, err := a.loader.Load(ctx, path)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("load %s: %w", path, err)
	}

	stats, _ := a.loader.Stats(path)
	span.SetAttributes(
		attribute.Int64("source.rows_kept", stats.RowsKept),
		attribute.Int64("source.rows_dropped", stats.RowsDropped),
	)

	a.mu.Lock()
	a.stats = stats
	observer := a.observer
	a.mu.Unlock()

	a.SetTable(table)

	opts := a.Options()
	a.logger.Info("active table replaced",
		"source", path,
		"records", table.Len(),
		"min_date", opts.MinDate,
		"max_date", opts.MaxDate,
		"distributors", len(opts.Distributors),
	)

	if observer != nil {
		observer.ObserveLoad(stats)
	}
	return nil
}

// SetTable replaces the active table.
func (a *Analytics) SetTable(t *models.Table) {
	options := buildOptions(t)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.table = t
	a.options = options
}

func (a *Analytics) Table() *models.Table {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.table
}

func (a *Analytics) Options() models.FilterOptions {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.options
}

func (a *Analytics) Filter(p FilterParams) *models.Table {
	return Apply(a.Table(), p)
}

// Render runs the full pipeline for one set of filter parameters.
func (a *Analytics) Render(ctx context.Context, p FilterParams) *models.Dashboard {
	_, span := otel.Tracer(tracerName).Start(ctx, "analytics.render")
	defer span.End()

	start := time.Now()
	table := a.Table()
	filtered := Apply(table, p)
	breakdown := Aggregate(filtered)

	span.SetAttributes(
		attribute.Int("rows.total", table.Len()),
		attribute.Int("rows.filtered", filtered.Len()),
	)

	a.mu.RLock()
	observer := a.observer
	a.mu.RUnlock()
	if observer != nil {
		observer.ObserveRender(table.Len(), filtered.Len(), time.Since(start))
	}

	return &models.Dashboard{
		Breakdown:   breakdown,
		KPIs:        FormatKPIs(breakdown.Summary),
		GeneratedAt: time.Now().UTC(),
	}
}

// FormatKPIs renders the headline numbers with thousands separators.
func FormatKPIs(s models.Summary) models.KPIDisplay {
	return models.KPIDisplay{
		TotalRevenue: humanize.FormatFloat("#,###.##", s.TotalRevenue),
		TotalUnits:   humanize.Comma(s.TotalUnits),
		UniqueTracks: humanize.Comma(int64(s.UniqueTracks)),
	}
}

func (a *Analytics) LoadStats() models.LoadStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"record_count":    a.table.Len(),
		"columns":         a.table.Columns,
		"distributors":    len(a.options.Distributors),
		"classifications": len(a.options.Classifications),
		"stores":          len(a.options.Stores),
		"countries":       len(a.options.Countries),
		"min_date":        a.options.MinDate,
		"max_date":        a.options.MaxDate,
		"load":            a.stats,
	}
}

func buildOptions(t *models.Table) models.FilterOptions {
	var opts models.FilterOptions

	if minDate, maxDate, ok := t.DateBounds(); ok {
		opts.MinDate = minDate.Format(time.DateOnly)
		opts.MaxDate = maxDate.Format(time.DateOnly)
	}

	opts.Distributors = distinct(t, func(r *models.Record) string { return r.Distributor })
	opts.Classifications = distinct(t, func(r *models.Record) string { return r.Classification })
	opts.Stores = distinct(t, func(r *models.Record) string { return r.Store })
	opts.Countries = distinct(t, func(r *models.Record) string { return r.Country })

	// Distributor and classification start fully selected; store and country
	// start empty. An empty selection never filters.
	opts.DefaultDistributors = slices.Clone(opts.Distributors)
	opts.DefaultClassifications = slices.Clone(opts.Classifications)
	opts.DefaultStores = []string{}
	opts.DefaultCountries = []string{}

	return opts
}

func distinct(t *models.Table, field func(r *models.Record) string) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for i := range t.Records {
		v := field(&t.Records[i])
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	slices.Sort(values)
	return values
}
