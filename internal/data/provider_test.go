package data

import (
	"context"
	"testing"
	"time"
)

func TestSyntheticProvider_Deterministic(t *testing.T) {
	start, end := testDateRange()
	ctx := context.Background()

	a, err := NewSyntheticProvider(42, nil).GetBars(ctx, "SPY", start, end, 1, "day")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := NewSyntheticProvider(42, nil).GetBars(ctx, "SPY", start, end, 1, "day")
	c, _ := NewSyntheticProvider(42, nil).GetBars(ctx, "QQQ", start, end, 1, "day")

	// 2025-01-01..2025-01-10 holds 8 weekdays
	if len(a) != 8 {
		t.Fatalf("expected 8 weekday bars, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed and ticker must give the same path, bar %d differs", i)
		}
		if wd := a[i].Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("weekend bar generated: %v", a[i].Date)
		}
		if a[i].Low > a[i].High || a[i].Close <= 0 {
			t.Fatalf("inconsistent bar: %+v", a[i])
		}
	}
	if a[0].Close == c[0].Close {
		t.Fatal("different tickers should get different paths")
	}
}

func TestDataProviderContract_GetBars(t *testing.T) {
	start, end := testDateRange()

	dir := t.TempDir()
	providers := []struct {
		name     string
		provider Provider
	}{
		{name: "synthetic", provider: NewSyntheticProvider(7, nil)},
		{name: "csv with synthetic secondary", provider: NewLocalCSVProvider(dir, NewSyntheticProvider(7, nil))},
	}

	for _, prov := range providers {
		t.Run(prov.name, func(t *testing.T) {
			bars, err := prov.provider.GetBars(context.Background(), "AAPL", start, end, 1, "day")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(bars) == 0 {
				t.Fatalf("expected non-empty bars")
			}
			for i, b := range bars {
				if b.Date.Before(start) || b.Date.After(end) {
					t.Fatalf("bar date out of range: %v", b.Date)
				}
				if i > 0 && !bars[i-1].Date.Before(b.Date) {
					t.Fatalf("bars not strictly ascending at %d", i)
				}
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider("massive", Options{}); err == nil {
		t.Fatal("expected error without API key")
	}
	if _, err := NewProvider("csv", Options{}); err == nil {
		t.Fatal("expected error without data dir")
	}
	if _, err := NewProvider("yahoo", Options{}); err == nil {
		t.Fatal("expected error for unknown provider")
	}

	p, err := NewProvider("polygon", Options{APIKey: "k", BaseURL: "http://localhost:1/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "polygon" || p.(*polygonDataProvider).BaseURL != "http://localhost:1" {
		t.Fatalf("unexpected provider: %#v", p)
	}

	sec := NewSyntheticProvider(1, nil)
	p, err = NewProvider("csv", Options{DataDir: t.TempDir(), Secondary: sec})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Secondary() != sec {
		t.Fatal("secondary not wired")
	}
}

func TestMatchBarDate(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC) }
	dates := []time.Time{d(9), d(2), d(6)}

	cases := []struct {
		target time.Time
		mode   DateMatchType
		want   time.Time
	}{
		{d(6), MatchExact, d(6)},
		{d(5), MatchExact, time.Time{}},
		{d(5), MatchLower, d(2)},
		{d(5), MatchHigher, d(6)},
		{d(5), MatchNearest, d(6)},
		{d(4), MatchNearest, d(2)}, // ties go to the lower date
		{d(20), "bogus", d(9)},
	}
	for _, c := range cases {
		if got := MatchBarDate(c.target, dates, c.mode); !got.Equal(c.want) {
			t.Fatalf("MatchBarDate(%s, %s) = %v, want %v", c.target.Format("01-02"), c.mode, got, c.want)
		}
	}
	if !dates[0].Equal(d(9)) {
		t.Fatal("MatchBarDate must not reorder the caller's slice")
	}
}

func TestClosest(t *testing.T) {
	strikes := []float64{180, 182.5, 185, 187.5, 190}
	cases := map[float64]float64{
		100:    180,
		188.01: 187.5,
		186.25: 187.5, // ties go to the higher strike
		500:    190,
	}
	for target, want := range cases {
		if got := Closest(strikes, target); got != want {
			t.Fatalf("Closest(%v) = %v, want %v", target, got, want)
		}
	}
}
