package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"royalty-dashboard/internal/models"
)

const (
	batchSize     = 10000
	maxWorkers    = 8
	formatCSV     = "csv"
	formatParquet = "parquet"
)

var ErrSourceNotFound = errors.New("source file not found")

// rawTable is the source file before coercion. Cells hold string, numeric,
// time.Time or nil values depending on the reader.
type rawTable struct {
	columns []string
	rows    [][]any
}

type loadEntry struct {
	once  sync.Once
	table *models.Table
	stats models.LoadStats
	err   error
}

// Loader reads and normalizes source tables. Results are memoized per path
// until Clear is called; failed loads are not memoized.
type Loader struct {
	mu      sync.Mutex
	entries map[string]*loadEntry
	workers int
	logger  *slog.Logger
}

func NewLoader(workers int, logger *slog.Logger) *Loader {
	if workers <= 0 {
		workers = maxWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		entries: make(map[string]*loadEntry),
		workers: workers,
		logger:  logger,
	}
}

func (l *Loader) Load(ctx context.Context, path string) (*models.Table, error) {
	l.mu.Lock()
	e, ok := l.entries[path]
	if !ok {
		e = &loadEntry{}
		l.entries[path] = e
	}
	l.mu.Unlock()

	e.once.Do(func() {
		e.table, e.stats, e.err = l.load(ctx, path)
	})

	if e.err != nil {
		l.mu.Lock()
		if l.entries[path] == e {
			delete(l.entries, path)
		}
		l.mu.Unlock()
		return nil, e.err
	}
	return e.table, nil
}

// Stats returns the statistics of the memoized load of path.
func (l *Loader) Stats(path string) (models.LoadStats, bool) {
	l.mu.Lock()
	e, ok := l.entries[path]
	l.mu.Unlock()
	if !ok || e.table == nil {
		return models.LoadStats{}, false
	}
	return e.stats, true
}

func (l *Loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*loadEntry)
}

func (l *Loader) load(ctx context.Context, path string) (*models.Table, models.LoadStats, error) {
	start := time.Now()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.LoadStats{}, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, models.LoadStats{}, fmt.Errorf("stat source: %w", err)
	}

	format := formatCSV
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		format = formatParquet
	}

	l.logger.Info("reading source table", "path", path, "format", format)

	var (
		raw *rawTable
		err error
	)
	switch format {
	case formatParquet:
		raw, err = readParquet(path)
	default:
		raw, err = readCSVFile(path)
	}
	if err != nil {
		return nil, models.LoadStats{}, fmt.Errorf("read %s source: %w", format, err)
	}

	table, stats, err := normalize(ctx, raw, l.workers)
	if err != nil {
		return nil, models.LoadStats{}, fmt.Errorf("normalize: %w", err)
	}
	stats.Source = path
	stats.Format = format
	stats.Duration = time.Since(start)
	stats.LoadedAt = time.Now().UTC()

	l.logger.Info("source table loaded",
		"path", path,
		"rows_read", stats.RowsRead,
		"rows_kept", stats.RowsKept,
		"duration", stats.Duration,
	)
	if stats.RowsDropped > 0 {
		l.logger.Warn("dropped rows with unparseable period", "count", stats.RowsDropped)
	}
	for col, n := range stats.Coerced {
		if n > 0 {
			l.logger.Warn("coerced unparseable numeric values to zero", "column", col, "count", n)
		}
	}
	for col, n := range stats.SentinelFilled {
		if n > 0 {
			l.logger.Info("filled missing categorical values", "column", col, "sentinel", Sentinel(col), "count", n)
		}
	}
	if len(stats.Synthesized) > 0 {
		l.logger.Info("synthesized absent columns", "columns", stats.Synthesized)
	}

	return table, stats, nil
}

func readCSVFile(path string) (*rawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return readCSV(file)
}

func readCSV(r io.Reader) (*rawTable, error) {
	br := bufio.NewReaderSize(r, 1024*1024)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	raw := &rawTable{columns: make([]string, len(header))}
	for i, h := range header {
		raw.columns[i] = strings.TrimSpace(h)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row := make([]any, len(raw.columns))
		for i := range row {
			if i < len(record) {
				row[i] = record[i]
			}
		}
		raw.rows = append(raw.rows, row)
	}

	return raw, nil
}

type batchResult struct {
	records []models.Record
	dropped int64
	coerced map[string]int64
	filled  map[string]int64
}

// normalize coerces raw rows into records in batches. Record order follows the
// source order.
func normalize(ctx context.Context, raw *rawTable, workers int) (*models.Table, models.LoadStats, error) {
	n := newRowNormalizer(raw.columns)

	batches := (len(raw.rows) + batchSize - 1) / batchSize
	results := make([]batchResult, batches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for b := 0; b < batches; b++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			lo := b * batchSize
			hi := min(lo+batchSize, len(raw.rows))
			res := batchResult{
				records: make([]models.Record, 0, hi-lo),
				coerced: make(map[string]int64),
				filled:  make(map[string]int64),
			}
			for _, row := range raw.rows[lo:hi] {
				rec, ok := n.record(row, &res)
				if !ok {
					res.dropped++
					continue
				}
				res.records = append(res.records, rec)
			}
			results[b] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, models.LoadStats{}, err
	}

	stats := models.LoadStats{
		RowsRead:       int64(len(raw.rows)),
		Coerced:        map[string]int64{models.ColNetRoyalty: 0, models.ColUnits: 0},
		SentinelFilled: make(map[string]int64),
		Synthesized:    n.synthesized,
	}
	for _, c := range categoricals {
		stats.SentinelFilled[c.column] = 0
	}

	total := 0
	for _, res := range results {
		total += len(res.records)
	}
	records := make([]models.Record, 0, total)
	for _, res := range results {
		records = append(records, res.records...)
		stats.RowsDropped += res.dropped
		for k, v := range res.coerced {
			stats.Coerced[k] += v
		}
		for k, v := range res.filled {
			stats.SentinelFilled[k] += v
		}
	}
	stats.RowsKept = int64(len(records))

	return &models.Table{Columns: n.columns, Records: records}, stats, nil
}

// rowNormalizer maps raw column positions onto record fields.
type rowNormalizer struct {
	columns     []string
	synthesized []string
	period      int
	netRoyalty  int
	units       int
	isrc        int
	upc         int
	cats        []int
	extras      map[string]int
}

func newRowNormalizer(columns []string) *rowNormalizer {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	pos := func(col string) int {
		if i, ok := index[col]; ok {
			return i
		}
		return -1
	}

	n := &rowNormalizer{
		columns:    append([]string(nil), columns...),
		period:     pos(models.ColPeriod),
		netRoyalty: pos(models.ColNetRoyalty),
		units:      pos(models.ColUnits),
		isrc:       pos(models.ColISRC),
		upc:        pos(models.ColUPC),
		cats:       make([]int, len(categoricals)),
		extras:     make(map[string]int),
	}

	synthesize := func(col string) {
		n.columns = append(n.columns, col)
		n.synthesized = append(n.synthesized, col)
	}
	if n.period < 0 {
		synthesize(models.ColPeriod)
	}
	if n.netRoyalty < 0 {
		synthesize(models.ColNetRoyalty)
	}
	if n.units < 0 {
		synthesize(models.ColUnits)
	}
	for i, c := range categoricals {
		n.cats[i] = pos(c.column)
		if n.cats[i] < 0 {
			synthesize(c.column)
		}
	}
	if pos(models.ColPeriodDate) < 0 {
		n.columns = append(n.columns, models.ColPeriodDate)
	}

	known := map[string]bool{
		models.ColPeriod: true, models.ColPeriodDate: true,
		models.ColNetRoyalty: true, models.ColUnits: true,
		models.ColISRC: true, models.ColUPC: true,
	}
	for _, c := range categoricals {
		known[c.column] = true
	}
	for col, i := range index {
		if !known[col] {
			n.extras[col] = i
		}
	}

	return n
}

func (n *rowNormalizer) record(row []any, res *batchResult) (models.Record, bool) {
	var rec models.Record

	period, ok := periodValue(cell(row, n.period))
	if !ok {
		return rec, false
	}
	rec.Period = period
	rec.PeriodDate = dateOnly(period)

	var numOK bool
	if rec.NetRoyalty, numOK = coerceNumber(cell(row, n.netRoyalty)); !numOK {
		res.coerced[models.ColNetRoyalty]++
	}
	if rec.Units, numOK = coerceNumber(cell(row, n.units)); !numOK {
		res.coerced[models.ColUnits]++
	}

	for i, c := range categoricals {
		if n.cats[i] < 0 {
			c.set(&rec, c.sentinel)
			continue
		}
		v, ok := cleanText(textValue(row[n.cats[i]]))
		if !ok {
			v = c.sentinel
			res.filled[c.column]++
		}
		c.set(&rec, v)
	}

	if n.isrc >= 0 {
		rec.ISRC, _ = cleanText(textValue(row[n.isrc]))
	}
	if n.upc >= 0 {
		rec.UPC, _ = cleanText(textValue(row[n.upc]))
	}

	if len(n.extras) > 0 {
		rec.Extra = make(map[string]string, len(n.extras))
		for col, i := range n.extras {
			rec.Extra[col] = textValue(row[i])
		}
	}

	return rec, true
}

func cell(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func periodValue(v any) (time.Time, bool) {
	switch p := v.(type) {
	case time.Time:
		return p, !p.IsZero()
	case string:
		return parsePeriod(p)
	}
	return time.Time{}, false
}

func textValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case time.Time:
		return models.FormatPeriod(s)
	}
	return fmt.Sprint(v)
}
