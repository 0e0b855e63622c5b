package volatility

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/contactkeval/fintech-modeler/internal/data"
	"github.com/contactkeval/fintech-modeler/internal/logger"
)

// ErrInsufficientData is returned when the price history is shorter than
// the rolling window plus one.
var ErrInsufficientData = errors.New("not enough prices for the rolling window")

// Method selects the implementation of the rolling volatility.
type Method string

const (
	MethodGonum    Method = "gonum"    // sample std via gonum/stat
	MethodWindowed Method = "windowed" // population std via WindowCalculator
)

func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case MethodGonum, "":
		return MethodGonum, nil
	case MethodWindowed:
		return MethodWindowed, nil
	}
	return "", fmt.Errorf("unknown volatility method %q", s)
}

// Measurement is the outcome of one timed volatility computation.
type Measurement struct {
	Method   Method        `json:"method"`
	Mean     float64       `json:"mean"`
	Defined  int           `json:"defined"`
	Duration time.Duration `json:"duration_ns"`
}

type Option func(*Assesser)

// WithWindow sets the rolling window length in periods.
func WithWindow(n int) Option {
	return func(varAssesser *Assesser) { varAssesser.window = n }
}

func WithPeriodsPerYear(n float64) Option {
	return func(varAssesser *Assesser) { varAssesser.periodsPerYear = n }
}

// WithClock replaces time.Now as the reference for ReadStockPrice.
func WithClock(now func() time.Time) Option {
	return func(varAssesser *Assesser) { varAssesser.now = now }
}

// WithCloseOnly uses the raw close instead of the adjusted close.
func WithCloseOnly() Option {
	return func(varAssesser *Assesser) { varAssesser.closeOnly = true }
}

// Assesser reads the price history of one ticker and assesses its rolling
// volatility. It is not safe for concurrent use.
type Assesser struct {
	ticker         string
	provider       data.Provider
	window         int
	periodsPerYear float64
	closeOnly      bool
	now            func() time.Time

	bars          []data.Bar
	variabilities []Point
}

func NewAssesser(ticker string, provider data.Provider, opts ...Option) *Assesser {
	varAssesser := &Assesser{
		ticker:         strings.ToUpper(strings.TrimSpace(ticker)),
		provider:       provider,
		window:         DefaultWindow,
		periodsPerYear: DefaultPeriodsPerYear,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(varAssesser)
	}
	return varAssesser
}

func (varAssesser *Assesser) Ticker() string          { return varAssesser.ticker }
func (varAssesser *Assesser) Window() int             { return varAssesser.window }
func (varAssesser *Assesser) PeriodsPerYear() float64 { return varAssesser.periodsPerYear }

// ReadStockPrice reads daily prices from startMonth months ago up to
// endMonth months ago. ReadStockPrice(ctx, 6, 0) reads the last six months.
func (varAssesser *Assesser) ReadStockPrice(ctx context.Context, startMonth, endMonth int) error {
	if startMonth < 0 || endMonth < 0 || endMonth > startMonth {
		return fmt.Errorf("invalid month range: start %d, end %d", startMonth, endMonth)
	}
	now := varAssesser.now()
	return varAssesser.ReadStockPriceRange(ctx, monthsBefore(now, startMonth), monthsBefore(now, endMonth))
}

// monthsBefore steps t back n calendar months, clamping the day to the end
// of the target month so that Aug 31 minus six months is Feb 28, not Mar 3.
func monthsBefore(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()-time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

// ReadStockPriceRange reads daily prices in [from, to] and resets the
// variabilities to one zero entry per price.
func (varAssesser *Assesser) ReadStockPriceRange(ctx context.Context, from, to time.Time) error {
	if varAssesser.provider == nil {
		return fmt.Errorf("no data provider for %s", varAssesser.ticker)
	}

	logger.Infof("reading %s prices from %s to %s", varAssesser.ticker, from.Format("2006-01-02"), to.Format("2006-01-02"))
	bars, err := varAssesser.provider.GetBars(ctx, varAssesser.ticker, from, to, 1, "day")
	if err != nil {
		return fmt.Errorf("read %s prices: %w", varAssesser.ticker, err)
	}

	varAssesser.bars = bars
	varAssesser.variabilities = make([]Point, len(bars))
	for i, b := range bars {
		varAssesser.variabilities[i] = Point{Date: b.Date}
	}
	logger.Debugf("%s: %d bars read from %s", varAssesser.ticker, len(bars), varAssesser.provider.Name())
	return nil
}

// ComputeVariability computes the rolling volatility with the default method
// and returns the mean of its defined values.
func (varAssesser *Assesser) ComputeVariability() (float64, error) {
	m, err := varAssesser.ComputeWith(MethodGonum)
	if err != nil {
		return math.NaN(), err
	}
	return m.Mean, nil
}

// ComputeWith computes the rolling volatility with method, stores it, and
// reports its mean and how long the computation took.
func (varAssesser *Assesser) ComputeWith(method Method) (Measurement, error) {
	m := Measurement{Method: method, Mean: math.NaN()}
	if varAssesser.window < 2 {
		return m, fmt.Errorf("rolling window must be at least 2, got %d", varAssesser.window)
	}

	prices := varAssesser.prices()
	if len(prices) < varAssesser.window+1 {
		varAssesser.setValues(nanSlice(len(prices)))
		return m, fmt.Errorf("%w: %s has %d prices, window %d", ErrInsufficientData, varAssesser.ticker, len(prices), varAssesser.window)
	}

	var values []float64
	start := time.Now()
	switch method {
	case MethodGonum:
		values = RollingVolatility(prices, varAssesser.window, varAssesser.periodsPerYear)
	case MethodWindowed:
		values = windowedVolatility(prices, varAssesser.window, varAssesser.periodsPerYear)
	default:
		return m, fmt.Errorf("unknown volatility method %q", method)
	}
	m.Duration = time.Since(start)

	varAssesser.setValues(values)
	m.Mean, m.Defined = MeanDefined(values)
	if m.Defined == 0 {
		return m, fmt.Errorf("%w: %s has no valid window", ErrInsufficientData, varAssesser.ticker)
	}

	logger.Debugf("%s %s volatility: mean=%.6f over %d windows in %s", varAssesser.ticker, method, m.Mean, m.Defined, m.Duration)
	return m, nil
}

// StockPrices returns a copy of the bars read.
func (varAssesser *Assesser) StockPrices() []data.Bar {
	out := make([]data.Bar, len(varAssesser.bars))
	copy(out, varAssesser.bars)
	return out
}

// Variabilities returns a copy of the dated variabilities.
func (varAssesser *Assesser) Variabilities() []Point {
	out := make([]Point, len(varAssesser.variabilities))
	copy(out, varAssesser.variabilities)
	return out
}

// VariabilityDict maps each date (YYYY-MM-DD) to its variability, NaN
// entries included.
func (varAssesser *Assesser) VariabilityDict() map[string]float64 {
	out := make(map[string]float64, len(varAssesser.variabilities))
	for _, p := range varAssesser.variabilities {
		out[p.Date.Format("2006-01-02")] = p.Value
	}
	return out
}

// ImportVariability overwrites the variabilities with values computed
// elsewhere. Extra values are dropped. It reports false, writing nothing,
// when no prices were read or values is too short.
func (varAssesser *Assesser) ImportVariability(values []float64) bool {
	n := len(varAssesser.variabilities)
	if n == 0 || len(values) < n {
		return false
	}
	varAssesser.setValues(values[:n])
	return true
}

// Latest returns the most recent defined variability.
func (varAssesser *Assesser) Latest() (Point, bool) {
	for i := len(varAssesser.variabilities) - 1; i >= 0; i-- {
		if p := varAssesser.variabilities[i]; !math.IsNaN(p.Value) {
			return p, true
		}
	}
	return Point{}, false
}

// VariabilityAt returns the variability on the date chosen by mode among the
// dates read.
func (varAssesser *Assesser) VariabilityAt(d time.Time, mode data.DateMatchType) (Point, bool) {
	dates := make([]time.Time, len(varAssesser.variabilities))
	for i, p := range varAssesser.variabilities {
		dates[i] = p.Date
	}
	match := data.MatchBarDate(d, dates, mode)
	if match.IsZero() {
		return Point{}, false
	}
	for _, p := range varAssesser.variabilities {
		if p.Date.Equal(match) {
			return p, true
		}
	}
	return Point{}, false
}

// Spot is the last price read.
func (varAssesser *Assesser) Spot() (float64, error) {
	prices := varAssesser.prices()
	if len(prices) == 0 {
		return 0, fmt.Errorf("%w: no prices read for %s", ErrInsufficientData, varAssesser.ticker)
	}
	return prices[len(prices)-1], nil
}

func (varAssesser *Assesser) prices() []float64 {
	out := make([]float64, len(varAssesser.bars))
	for i, b := range varAssesser.bars {
		if varAssesser.closeOnly {
			out[i] = b.Close
		} else {
			out[i] = b.Price()
		}
	}
	return out
}

func (varAssesser *Assesser) setValues(values []float64) {
	for i := range varAssesser.variabilities {
		varAssesser.variabilities[i].Value = values[i]
	}
}
