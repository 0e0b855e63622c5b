package data

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const aaplCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2025-01-03,243.36,244.18,241.89,243.36,242.90,40244100
2025-01-02,248.93,249.10,241.82,243.85,243.39,55740700
2025-01-06,244.31,247.33,243.20,245.00,244.54,45045600
2025-01-07,242.98,245.55,241.35,242.21,null,40856000
2025-01-08,241.92,243.71,240.05,242.70,242.24,37628900
bad-date,1,1,1,1,1,1
2025-02-03,229.99,231.83,225.70,228.01,227.58,73063300
`

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return dir
}

func TestLocalCSVProvider_GetBars(t *testing.T) {
	dir := writeCSV(t, "AAPL.csv", aaplCSV)
	prov := NewLocalCSVProvider(dir, nil)
	fromDate, toDate := testDateRange()

	bars, err := prov.GetBars(context.Background(), "aapl", fromDate, toDate, 1, "day")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 5 {
		t.Fatalf("expected 5 bars in range, got %d", len(bars))
	}

	first := bars[0]
	if !first.Date.Equal(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("bars not sorted, first date %v", first.Date)
	}
	if first.Price() != 243.39 {
		t.Fatalf("expected adjusted close 243.39, got %f", first.Price())
	}

	// null Adj Close falls back to Close
	if bars[3].AdjClose != 0 || bars[3].Price() != 242.21 {
		t.Fatalf("unexpected null-adj bar: %+v", bars[3])
	}
}

func TestLocalCSVProvider_MissingFile(t *testing.T) {
	prov := NewLocalCSVProvider(t.TempDir(), nil)
	fromDate, toDate := testDateRange()

	if _, err := prov.GetBars(context.Background(), "MSFT", fromDate, toDate, 1, "day"); err == nil {
		t.Fatal("expected error for missing file")
	}

	withSecondary := NewLocalCSVProvider(t.TempDir(), NewSyntheticProvider(9, nil))
	bars, err := withSecondary.GetBars(context.Background(), "MSFT", fromDate, toDate, 1, "day")
	if err != nil || len(bars) == 0 {
		t.Fatalf("expected synthetic fallback, got %d bars, err=%v", len(bars), err)
	}
}

func TestLocalCSVProvider_OutOfRange(t *testing.T) {
	dir := writeCSV(t, "AAPL.csv", aaplCSV)
	prov := NewLocalCSVProvider(dir, nil)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := prov.GetBars(context.Background(), "AAPL", from, to, 1, "day")
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestLocalCSVProvider_MissingColumns(t *testing.T) {
	dir := writeCSV(t, "AAPL.csv", "Day,Price\n2025-01-02,1\n")
	prov := NewLocalCSVProvider(dir, nil)
	fromDate, toDate := testDateRange()

	if _, err := prov.GetBars(context.Background(), "AAPL", fromDate, toDate, 1, "day"); err == nil {
		t.Fatal("expected error for missing Date column")
	}
}
