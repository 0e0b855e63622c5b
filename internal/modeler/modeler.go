// Package modeler runs one modeling pass: read prices, assess volatility
// with each configured method, price an option chain and report.
package modeler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/contactkeval/fintech-modeler/internal/config"
	"github.com/contactkeval/fintech-modeler/internal/data"
	"github.com/contactkeval/fintech-modeler/internal/logger"
	"github.com/contactkeval/fintech-modeler/internal/pricing"
	"github.com/contactkeval/fintech-modeler/internal/publish"
	"github.com/contactkeval/fintech-modeler/internal/report"
	"github.com/contactkeval/fintech-modeler/internal/volatility"
)

// ErrVolatilityOutOfRange is returned when a method's mean volatility falls
// outside the configured bounds.
var ErrVolatilityOutOfRange = errors.New("volatility out of range")

// ErrInvalidPrice is returned when a pricing model yields no finite price.
var ErrInvalidPrice = errors.New("option price is not a finite number")

const daysPerYear = 365.0

// Result is the outcome of Run.
type Result struct {
	Summary       *report.Summary
	Variabilities []volatility.Point
}

type Modeler struct {
	cfg       *config.Config
	provider  data.Provider
	publisher publish.Publisher
	now       func() time.Time
}

// New builds a Modeler. A nil publisher disables publishing.
func New(cfg *config.Config, provider data.Provider, publisher publish.Publisher) *Modeler {
	if publisher == nil {
		publisher = publish.NoopPublisher{}
	}
	return &Modeler{cfg: cfg, provider: provider, publisher: publisher, now: time.Now}
}

// WithClock replaces time.Now as the reference date of the run.
func (m *Modeler) WithClock(now func() time.Time) *Modeler {
	m.now = now
	return m
}

// NewProvider builds the configured data provider, backed by the configured
// fallback provider when there is one.
func NewProvider(cfg *config.Config) (data.Provider, error) {
	opts := data.Options{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		DataDir: cfg.DataDir,
		Seed:    cfg.Seed,
	}

	if cfg.Fallback != "" && cfg.Fallback != cfg.Provider {
		sec, err := data.NewProvider(cfg.Fallback, opts)
		if err != nil {
			return nil, fmt.Errorf("fallback provider: %w", err)
		}
		opts.Secondary = sec
	}

	prov, err := data.NewProvider(cfg.Provider, opts)
	if err != nil {
		if opts.Secondary == nil {
			return nil, err
		}
		logger.Warnf("%v, using %s provider", err, opts.Secondary.Name())
		return opts.Secondary, nil
	}
	return prov, nil
}

// Run executes the whole flow once.
func (m *Modeler) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	runDate := m.now()
	cfg := m.cfg

	assesser := volatility.NewAssesser(cfg.Ticker, m.provider,
		volatility.WithWindow(cfg.Window),
		volatility.WithPeriodsPerYear(cfg.PeriodsPerYear),
		volatility.WithClock(m.now),
	)
	if err := assesser.ReadStockPrice(ctx, cfg.StartMonth, cfg.EndMonth); err != nil {
		return nil, err
	}

	measurements, err := m.assess(assesser)
	if err != nil {
		return nil, err
	}
	vol := measurements[0].Mean

	spot, err := assesser.Spot()
	if err != nil {
		return nil, err
	}

	quotes, err := m.priceChain(spot, vol)
	if err != nil {
		return nil, err
	}

	bars := assesser.StockPrices()
	summary := &report.Summary{
		Ticker:         assesser.Ticker(),
		Provider:       m.provider.Name(),
		From:           bars[0].Date.Format("2006-01-02"),
		To:             bars[len(bars)-1].Date.Format("2006-01-02"),
		Bars:           len(bars),
		Window:         assesser.Window(),
		PeriodsPerYear: assesser.PeriodsPerYear(),
		Spot:           report.Money(spot),
		Volatility:     report.Round(vol, 6),
		Options:        quotes,
		GeneratedAt:    runDate.UTC(),
	}
	if latest, ok := assesser.Latest(); ok {
		summary.Latest = report.Round(latest.Value, 6)
	}
	for _, meas := range measurements {
		summary.Methods = append(summary.Methods, report.NewMethodTiming(meas))
	}

	res := &Result{Summary: summary, Variabilities: assesser.Variabilities()}

	if cfg.ReportDir != "" {
		if err := writeReports(res, cfg.ReportDir); err != nil {
			return nil, err
		}
		logger.Infof("reports written to %s", cfg.ReportDir)
	}

	publish.LogErr(m.publisher.Publish(ctx, publish.Event{
		Type: "variability",
		Payload: map[string]any{
			"ticker":     summary.Ticker,
			"from":       summary.From,
			"to":         summary.To,
			"spot":       summary.Spot,
			"volatility": summary.Volatility,
			"latest":     summary.Latest,
			"methods":    summary.Methods,
		},
	}), "variability")
	publish.LogErr(m.publisher.Publish(ctx, publish.Event{Type: "options", Payload: quotes}), "options")

	logger.Infof("%s: volatility %.4f, spot %.2f, %d quotes in %v", summary.Ticker, vol, spot, len(quotes), time.Since(started))
	return res, nil
}

// assess computes the volatility with every configured method. The first
// method is the reference: its variabilities are the ones kept by the
// assesser once the others have run.
func (m *Modeler) assess(assesser *volatility.Assesser) ([]volatility.Measurement, error) {
	var (
		measurements []volatility.Measurement
		reference    []float64
	)

	for i, name := range m.cfg.Methods {
		method, err := volatility.ParseMethod(name)
		if err != nil {
			return nil, err
		}
		meas, err := assesser.ComputeWith(method)
		if err != nil {
			return nil, err
		}
		if err := m.checkRange(meas); err != nil {
			return nil, err
		}
		logger.Infof("calculation duration for %s method: %v (mean %.6f)", meas.Method, meas.Duration, meas.Mean)

		if i == 0 {
			for _, p := range assesser.Variabilities() {
				reference = append(reference, p.Value)
			}
		}
		measurements = append(measurements, meas)
	}

	if len(measurements) > 1 && !assesser.ImportVariability(reference) {
		return nil, fmt.Errorf("could not restore %s variabilities", measurements[0].Method)
	}
	return measurements, nil
}

func (m *Modeler) checkRange(meas volatility.Measurement) error {
	lo, hi := m.cfg.MinVolatility, m.cfg.MaxVolatility
	if hi <= 0 {
		hi = math.Inf(1)
	}
	if meas.Mean < lo || meas.Mean > hi {
		return fmt.Errorf("%w: %s mean %.6f not in [%g, %g]", ErrVolatilityOutOfRange, meas.Method, meas.Mean, lo, hi)
	}
	return nil
}

// priceChain prices a call and a put for every strike and expiration.
func (m *Modeler) priceChain(spot, vol float64) ([]report.OptionQuote, error) {
	pc := m.cfg.Pricing
	method, err := pricing.ParseMethod(pc.Method)
	if err != nil {
		return nil, err
	}

	strikes := Strikes(spot, pc)
	if len(strikes) == 0 {
		return nil, fmt.Errorf("no strikes around spot %.2f", spot)
	}
	atm := data.Closest(strikes, spot)

	var quotes []report.OptionQuote
	for _, days := range pc.ExpirationDays {
		T := float64(days) / daysPerYear
		for _, strike := range strikes {
			var call, put float64
			for _, optType := range []pricing.OptionType{pricing.Call, pricing.Put} {
				price, err := pricing.PriceEuropeanOption(pricing.Params{
					Type:         optType,
					Method:       method,
					ExpiryTime:   T,
					PeriodNumber: pc.Periods,
					Volatility:   vol,
					RiskFreeRate: pc.RiskFreeRate,
					Spot:         spot,
					Strike:       strike,
				})
				if err != nil {
					return nil, fmt.Errorf("price %s %.2f: %w", optType, strike, err)
				}
				if math.IsNaN(price) || math.IsInf(price, 0) {
					return nil, fmt.Errorf("price %s %.2f: %w", optType, strike, ErrInvalidPrice)
				}
				if optType == pricing.Call {
					call = price
				} else {
					put = price
				}

				g := pricing.BlackScholesGreeks(optType == pricing.Call, spot, strike, T, pc.RiskFreeRate, vol)
				quotes = append(quotes, report.OptionQuote{
					Type:       string(optType),
					Method:     string(method),
					Strike:     report.Money(strike),
					ExpiryDays: days,
					Volatility: report.Round(vol, 4),
					Price:      report.Money(price),
					Delta:      report.Round(g.Delta, 4),
					Gamma:      report.Round(g.Gamma, 4),
					Vega:       report.Round(g.Vega, 4),
					Theta:      report.Round(g.Theta, 4),
					Rho:        report.Round(g.Rho, 4),
					ATM:        strike == atm,
				})
			}

			if strike == atm {
				m.checkImplied(spot, strike, T, call, put, vol)
			}
		}
	}
	return quotes, nil
}

// checkImplied recovers the volatility from the at-the-money prices. A
// large gap usually means a coarse binomial lattice.
func (m *Modeler) checkImplied(spot, strike, T, call, put, vol float64) {
	iv, err := pricing.ImpliedVolATM(spot, strike, T, m.cfg.Pricing.RiskFreeRate, call, put)
	if err != nil {
		logger.Warnf("implied volatility at strike %.2f: %v", strike, err)
		return
	}
	if math.Abs(iv-vol) > 0.01 {
		logger.Warnf("implied volatility %.4f differs from model volatility %.4f at strike %.2f", iv, vol, strike)
		return
	}
	logger.Debugf("implied volatility %.4f at strike %.2f", iv, strike)
}

// Strikes returns the configured strikes, or a ladder of StrikeCount steps
// on each side of spot rounded to StrikeInterval. The result is sorted.
func Strikes(spot float64, pc config.PricingConfig) []float64 {
	if len(pc.Strikes) > 0 {
		out := append([]float64(nil), pc.Strikes...)
		sort.Float64s(out)
		return out
	}
	if pc.StrikeInterval <= 0 {
		return nil
	}

	center := math.Round(spot/pc.StrikeInterval) * pc.StrikeInterval
	var out []float64
	for i := -pc.StrikeCount; i <= pc.StrikeCount; i++ {
		if k := center + float64(i)*pc.StrikeInterval; k > 0 {
			out = append(out, k)
		}
	}
	return out
}

func writeReports(res *Result, dir string) error {
	if err := report.WriteJSON(res.Summary, dir); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := report.WriteVariabilityCSV(res.Variabilities, dir); err != nil {
		return fmt.Errorf("write variabilities: %w", err)
	}
	if err := report.WriteOptionChainCSV(res.Summary.Options, dir); err != nil {
		return fmt.Errorf("write option chain: %w", err)
	}
	return nil
}
