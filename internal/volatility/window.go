package volatility

import "math"

// WindowCalculator computes statistics over a movable window of a data
// series. Unlike RollingStdDev it reports the population standard deviation
// and treats the first relative change as 0.
type WindowCalculator struct {
	data   []float64
	window []float64
}

func (calc *WindowCalculator) AddData(v float64) {
	calc.data = append(calc.data, v)
}

func (calc *WindowCalculator) ClearData() {
	calc.data = calc.data[:0]
	calc.window = calc.window[:0]
}

// SetData replaces the series with a copy of values.
func (calc *WindowCalculator) SetData(values []float64) {
	calc.data = append(calc.data[:0], values...)
	calc.window = calc.window[:0]
}

// Data returns the current series.
func (calc *WindowCalculator) Data() []float64 {
	return calc.data
}

// ConvertToRelativeChanges rewrites the series in place as relative changes.
// The first element becomes 0. A change from a non-positive value is NaN.
func (calc *WindowCalculator) ConvertToRelativeChanges() {
	prev := 0.0
	for i, cur := range calc.data {
		switch {
		case i == 0:
			calc.data[i] = 0
		case prev <= 0:
			calc.data[i] = math.NaN()
		default:
			calc.data[i] = (cur - prev) / prev
		}
		prev = cur
	}
}

// SetRollingWindow selects data[start:start+length]. It reports false and
// leaves the window unchanged when the range does not fit the series.
func (calc *WindowCalculator) SetRollingWindow(start, length int) bool {
	if len(calc.data) == 0 || start < 0 || length <= 0 || start+length > len(calc.data) {
		return false
	}
	calc.window = append(calc.window[:0], calc.data[start:start+length]...)
	return true
}

// RollingMean is the mean of the window, 0 when no window is set.
func (calc *WindowCalculator) RollingMean() float64 {
	if len(calc.window) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range calc.window {
		sum += v
	}
	return sum / float64(len(calc.window))
}

// RollingStdDev is the population standard deviation of the window.
func (calc *WindowCalculator) RollingStdDev() float64 {
	if len(calc.window) == 0 {
		return 0
	}
	mean := calc.RollingMean()
	sumSq := 0.0
	for _, v := range calc.window {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(calc.window)))
}

// windowedVolatility computes the annualized rolling volatility with a
// WindowCalculator. Entries are aligned with RollingVolatility: the first
// window entries are NaN, so the artificial leading 0 change never enters
// a window.
func windowedVolatility(prices []float64, window int, periodsPerYear float64) []float64 {
	out := nanSlice(len(prices))
	if window < 1 {
		return out
	}

	var calc WindowCalculator
	calc.SetData(prices)
	calc.ConvertToRelativeChanges()

	k := math.Sqrt(periodsPerYear)
	for i := window; i < len(prices); i++ {
		if !calc.SetRollingWindow(i-window+1, window) {
			break
		}
		out[i] = calc.RollingStdDev() * k
	}
	return out
}
