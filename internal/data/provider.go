package data

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/contactkeval/fintech-modeler/internal/logger"
)

// ErrNoData is returned when a provider has no bars for the request.
var ErrNoData = errors.New("no price data")

type DateMatchType string

const (
	MatchExact   DateMatchType = "exact"   // must match exactly
	MatchHigher  DateMatchType = "higher"  // next available date after target
	MatchLower   DateMatchType = "lower"   // last available date before target
	MatchNearest DateMatchType = "nearest" // closest available date (default)
)

// Provider supplies historical price data.
type Provider interface {
	// Name identifies the provider in logs and reports.
	Name() string
	// Secondary is the fallback consulted when this provider fails.
	Secondary() Provider
	// GetBars returns time-ordered aggregates for underlying in [fromDate, toDate],
	// e.g. multiplier=1 timespan="day" for daily bars.
	GetBars(ctx context.Context, underlying string, fromDate, toDate time.Time, multiplier int, timespan string) ([]Bar, error)
}

// Bar simplified OHLC
type Bar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"` // split/dividend adjusted close, 0 when unknown
	Volume   float64   `json:"volume"`
	Count    int64     `json:"count,omitempty"` // number of trades in the window
}

// Price returns the adjusted close when the provider supplies one, else the close.
func (b Bar) Price() float64 {
	if b.AdjClose > 0 {
		return b.AdjClose
	}
	return b.Close
}

// Options configures NewProvider.
type Options struct {
	APIKey    string
	BaseURL   string // raw HTTP provider only; empty means the public endpoint
	DataDir   string // csv provider only
	Seed      int64  // synthetic provider only
	Secondary Provider
}

// NewProvider builds a provider by name: "massive", "polygon", "csv" or "synthetic".
func NewProvider(name string, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "massive", "":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("massive provider requires an API key")
		}
		return NewMassiveDataProvider(opts.APIKey, opts.Secondary), nil
	case "polygon", "http":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("polygon provider requires an API key")
		}
		prov := NewPolygonDataProvider(opts.APIKey, opts.Secondary)
		if opts.BaseURL != "" {
			prov.BaseURL = strings.TrimRight(opts.BaseURL, "/")
		}
		return prov, nil
	case "csv", "local":
		if opts.DataDir == "" {
			return nil, fmt.Errorf("csv provider requires a data directory")
		}
		return NewLocalCSVProvider(opts.DataDir, opts.Secondary), nil
	case "synthetic":
		return NewSyntheticProvider(opts.Seed, opts.Secondary), nil
	}
	return nil, fmt.Errorf("unknown data provider %q", name)
}

// --------------------------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------------------------

// fallbackBars delegates to the secondary provider of prov, if any, after a
// primary failure. Without a secondary the original error is returned.
func fallbackBars(
	ctx context.Context,
	prov Provider,
	cause error,
	underlying string,
	fromDate, toDate time.Time,
	multiplier int,
	timespan string,
) ([]Bar, error) {
	sec := prov.Secondary()
	if sec == nil {
		return nil, cause
	}
	logger.Warnf("%s provider failed for %s (%v), delegating to %s", prov.Name(), underlying, cause, sec.Name())
	return sec.GetBars(ctx, underlying, fromDate, toDate, multiplier, timespan)
}

// sortBars orders bars by date, oldest first.
func sortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
}

// inRange reports whether d falls on a calendar day within [from, to].
func inRange(d, from, to time.Time) bool {
	day := d.Format("2006-01-02")
	return day >= from.Format("2006-01-02") && day <= to.Format("2006-01-02")
}

// MatchBarDate picks a date from dates according to mode. A zero time means no match.
func MatchBarDate(d time.Time, dates []time.Time, mode DateMatchType) time.Time {

	var (
		exact  time.Time
		lower  time.Time
		higher time.Time
	)

	// default to MatchNearest
	switch mode {
	case MatchExact, MatchHigher, MatchLower, MatchNearest:
	default:
		mode = MatchNearest
	}

	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	for _, dt := range sorted {
		if dt.Equal(d) {
			exact = dt
		}
		if dt.Before(d) {
			lower = dt // will keep last < d
		}
		if dt.After(d) && higher.IsZero() {
			higher = dt
		}
	}

	switch mode {

	case MatchExact:
		return exact

	case MatchLower:
		return lower

	case MatchHigher:
		return higher

	case MatchNearest:
		if !exact.IsZero() {
			return exact
		}
		switch {
		case !lower.IsZero() && !higher.IsZero():
			if d.Sub(lower) <= higher.Sub(d) {
				return lower
			}
			return higher
		case !lower.IsZero():
			return lower
		case !higher.IsZero():
			return higher
		}
	}

	return time.Time{}
}

// Closest finds the closest value to target in a sorted slice using binary search.
// It panics on an empty slice.
func Closest(numList []float64, target float64) float64 {
	n := len(numList)
	if n == 0 {
		panic("empty list")
	}

	i := sort.Search(n, func(i int) bool {
		return numList[i] >= target
	})

	if i == 0 {
		return numList[0]
	}
	if i == n {
		return numList[n-1]
	}

	before := numList[i-1]
	after := numList[i]

	if math.Abs(before-target) < math.Abs(after-target) {
		return before
	}
	return after
}
