package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/contactkeval/fintech-modeler/internal/logger"
)

// csvDateLayouts are tried in order when parsing the Date column.
var csvDateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "01/02/2006"}

// localCSVProvider implements Provider from local CSV files named
// <dir>/<TICKER>.csv, in the layout produced by Yahoo Finance downloads:
//
//	Date,Open,High,Low,Close,Adj Close,Volume
//
// Only daily bars are served; other timespans go to the secondary provider.
type localCSVProvider struct {
	dir       string
	secondary Provider
}

// NewLocalCSVProvider convenience constructor.
func NewLocalCSVProvider(dir string, secondary Provider) *localCSVProvider {
	return &localCSVProvider{dir: dir, secondary: secondary}
}

func (localCSVProv *localCSVProvider) Name() string { return "csv" }

func (localCSVProv *localCSVProvider) Secondary() Provider {
	return localCSVProv.secondary
}

func (localCSVProv *localCSVProvider) GetBars(
	ctx context.Context,
	underlying string,
	fromDate, toDate time.Time,
	multiplier int,
	timespan string,
) ([]Bar, error) {

	if multiplier != 1 || timespan != "day" {
		return fallbackBars(ctx, localCSVProv, fmt.Errorf("csv provider serves daily bars only, got %d %s", multiplier, timespan),
			underlying, fromDate, toDate, multiplier, timespan)
	}

	path := filepath.Join(localCSVProv.dir, strings.ToUpper(underlying)+".csv")
	all, err := readBarsCSV(path)
	if err != nil {
		return fallbackBars(ctx, localCSVProv, err, underlying, fromDate, toDate, multiplier, timespan)
	}

	out := make([]Bar, 0, len(all))
	for _, b := range all {
		if inRange(b.Date, fromDate, toDate) {
			out = append(out, b)
		}
	}
	logger.Debugf("csv %s: %d of %d rows in range", path, len(out), len(all))

	if len(out) == 0 {
		return fallbackBars(ctx, localCSVProv, fmt.Errorf("%w for %s in %s", ErrNoData, underlying, path),
			underlying, fromDate, toDate, multiplier, timespan)
	}

	sortBars(out)
	return out, nil
}

// readBarsCSV parses a price history file. Columns are located by header
// name so that extra columns (Dividends, Stock Splits, ...) are ignored.
// Rows with unparseable or "null" prices are skipped.
func readBarsCSV(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateCol, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("%s: missing Date column", path)
	}
	closeCol, ok := cols["close"]
	if !ok {
		return nil, fmt.Errorf("%s: missing Close column", path)
	}

	field := func(row []string, name string) float64 {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return 0
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return 0
		}
		return v
	}

	var out []Bar
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		if dateCol >= len(row) || closeCol >= len(row) {
			continue
		}

		date, err := parseCSVDate(row[dateCol])
		if err != nil {
			logger.Tracef("%s line %d: skipping row: %v", path, line, err)
			continue
		}
		closePx := field(row, "close")
		if closePx <= 0 {
			continue
		}

		out = append(out, Bar{
			Date:     date,
			Open:     field(row, "open"),
			High:     field(row, "high"),
			Low:      field(row, "low"),
			Close:    closePx,
			AdjClose: field(row, "adj close"),
			Volume:   field(row, "volume"),
		})
	}
	return out, nil
}

func parseCSVDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
