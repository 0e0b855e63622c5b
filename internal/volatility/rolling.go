// Package volatility computes annualized rolling volatility from price
// series and holds the result per ticker (see Assesser).
package volatility

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	DefaultWindow         = 20
	DefaultPeriodsPerYear = 255.0
)

// Point is one dated volatility value. Value is NaN while the rolling
// window is not yet full.
type Point struct {
	Date  time.Time
	Value float64
}

// PctChange returns the relative change between consecutive prices. The
// first element has no predecessor and is NaN, as is any change whose
// previous price is not positive.
func PctChange(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i := range prices {
		if i == 0 || prices[i-1] <= 0 || math.IsNaN(prices[i-1]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (prices[i] - prices[i-1]) / prices[i-1]
	}
	return out
}

// RollingStdDev returns the sample standard deviation of each trailing
// window of values. An entry stays NaN until its window holds window
// non-NaN values.
func RollingStdDev(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window < 2 {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		win := values[i-window+1 : i+1]
		if hasNaN(win) {
			continue
		}
		out[i] = stat.StdDev(win, nil)
	}
	return out
}

// Annualize scales per-period values by the square root of periodsPerYear.
func Annualize(values []float64, periodsPerYear float64) []float64 {
	k := math.Sqrt(periodsPerYear)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * k
	}
	return out
}

// RollingVolatility is the annualized rolling standard deviation of the
// relative changes of prices.
func RollingVolatility(prices []float64, window int, periodsPerYear float64) []float64 {
	return Annualize(RollingStdDev(PctChange(prices), window), periodsPerYear)
}

// MeanDefined averages the non-NaN values. It returns NaN and 0 when there
// are none.
func MeanDefined(values []float64) (float64, int) {
	defined := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return math.NaN(), 0
	}
	return stat.Mean(defined, nil), len(defined)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
