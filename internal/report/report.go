// Package report writes the outcome of a modeling run to disk.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/fintech-modeler/internal/volatility"
)

const (
	SummaryFile     = "variability.json"
	VariabilityFile = "variability.csv"
	OptionsFile     = "options.csv"
)

// Summary is the JSON document describing one run.
type Summary struct {
	Ticker         string          `json:"ticker"`
	Provider       string          `json:"provider"`
	From           string          `json:"from"`
	To             string          `json:"to"`
	Bars           int             `json:"bars"`
	Window         int             `json:"window"`
	PeriodsPerYear float64         `json:"periods_per_year"`
	Spot           decimal.Decimal `json:"spot"`
	Volatility     decimal.Decimal `json:"volatility"`
	Latest         decimal.Decimal `json:"latest_volatility"`
	Methods        []MethodTiming  `json:"methods"`
	Options        []OptionQuote   `json:"options"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// MethodTiming records one volatility implementation run.
type MethodTiming struct {
	Method         string          `json:"method"`
	Mean           decimal.Decimal `json:"mean"`
	Windows        int             `json:"windows"`
	DurationMicros int64           `json:"duration_us"`
}

// OptionQuote is one priced option of the chain.
type OptionQuote struct {
	Type       string          `json:"type"`
	Method     string          `json:"method"`
	Strike     decimal.Decimal `json:"strike"`
	ExpiryDays int             `json:"expiry_days"`
	Volatility decimal.Decimal `json:"volatility"`
	Price      decimal.Decimal `json:"price"`
	Delta      decimal.Decimal `json:"delta"`
	Gamma      decimal.Decimal `json:"gamma"`
	Vega       decimal.Decimal `json:"vega"`
	Theta      decimal.Decimal `json:"theta"`
	Rho        decimal.Decimal `json:"rho"`
	ATM        bool            `json:"atm"`
}

// Money rounds a price to cents. NaN and infinities become zero.
func Money(v float64) decimal.Decimal {
	return Round(v, 2)
}

// Round converts v to a decimal with places digits. NaN and infinities
// become zero.
func Round(v float64, places int32) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(places)
}

func NewMethodTiming(m volatility.Measurement) MethodTiming {
	return MethodTiming{
		Method:         string(m.Method),
		Mean:           Round(m.Mean, 6),
		Windows:        m.Defined,
		DurationMicros: m.Duration.Microseconds(),
	}
}

func WriteJSON(res *Summary, outdir string) error {
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, SummaryFile), b, 0644)
}

// WriteVariabilityCSV writes date,variability rows. Undefined values are
// written as empty fields.
func WriteVariabilityCSV(points []volatility.Point, outdir string) error {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		v := ""
		if !math.IsNaN(p.Value) {
			v = Round(p.Value, 6).StringFixed(6)
		}
		rows = append(rows, []string{p.Date.Format("2006-01-02"), v})
	}
	return writeCSV(filepath.Join(outdir, VariabilityFile), []string{"date", "variability"}, rows)
}

func WriteOptionChainCSV(quotes []OptionQuote, outdir string) error {
	headers := []string{"type", "method", "strike", "expiry_days", "volatility", "price", "delta", "gamma", "vega", "theta", "rho", "atm"}
	rows := make([][]string, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, []string{
			q.Type,
			q.Method,
			q.Strike.StringFixed(2),
			strconv.Itoa(q.ExpiryDays),
			q.Volatility.StringFixed(4),
			q.Price.StringFixed(2),
			q.Delta.StringFixed(4),
			q.Gamma.StringFixed(4),
			q.Vega.StringFixed(4),
			q.Theta.StringFixed(4),
			q.Rho.StringFixed(4),
			strconv.FormatBool(q.ATM),
		})
	}
	return writeCSV(filepath.Join(outdir, OptionsFile), headers, rows)
}

func writeCSV(path string, headers []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
