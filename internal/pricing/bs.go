package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// normCDF is the cumulative standard normal distribution N(x).
func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// normPDF is the standard normal density n(x).
func normPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// d1d2 returns the two Black-Scholes terms for the given inputs.
func d1d2(S, K, T, r, sigma float64) (d1, d2 float64) {
	sqrtT := math.Sqrt(T)
	d1 = (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * sqrtT)
	d2 = d1 - sigma*sqrtT
	return d1, d2
}

// BSCall prices a European call with the Black-Scholes formula.
//
// Parameters:
//   - S: spot price of the underlying
//   - K: strike price
//   - T: time to expiry in years
//   - r: continuously compounded risk-free rate
//   - sigma: annualized volatility (decimal)
//
// Inputs are not validated: T <= 0 or sigma <= 0 yields NaN or Inf terms.
// Use BlackScholesPrice for the guarded variant.
func BSCall(S, K, T, r, sigma float64) float64 {
	d1, d2 := d1d2(S, K, T, r, sigma)
	return S*normCDF(d1) - K*math.Exp(-r*T)*normCDF(d2)
}

// BSPut prices a European put with the Black-Scholes formula.
// Same parameters and caveats as BSCall.
func BSPut(S, K, T, r, sigma float64) float64 {
	d1, d2 := d1d2(S, K, T, r, sigma)
	return K*math.Exp(-r*T)*normCDF(-d2) - S*normCDF(-d1)
}

// BlackScholesPrice calculates the price of a European option using the Black-Scholes model.
//
// If time to expiry or volatility is zero or negative, it returns the
// intrinsic value of the requested side.
func BlackScholesPrice(
	isCall bool,
	S float64, // spot
	K float64, // strike
	T float64, // time to expiry in years
	r float64, // risk-free rate
	sigma float64, // volatility
) float64 {

	if T <= 0 || sigma <= 0 {
		return intrinsic(isCall, S, K)
	}

	if isCall {
		return BSCall(S, K, T, r, sigma)
	}
	return BSPut(S, K, T, r, sigma)
}

// BlackScholesVega calculates the vega of a European option: the change in
// price for a change of 1.0 (100 points) in volatility. Calls and puts share it.
// Returns 0 if T or sigma is non-positive.
func BlackScholesVega(
	S float64,
	K float64,
	T float64,
	r float64,
	sigma float64,
) float64 {

	if T <= 0 || sigma <= 0 {
		return 0
	}

	d1, _ := d1d2(S, K, T, r, sigma)
	return S * normPDF(d1) * math.Sqrt(T)
}

// Greeks holds first and second order sensitivities of an option price.
// Theta is per year; divide by 365 for a per-day figure.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// BlackScholesGreeks returns the analytic Greeks for a European option.
// For expired or zero-volatility options only Delta is set (0 or ±1).
func BlackScholesGreeks(isCall bool, S, K, T, r, sigma float64) Greeks {
	if T <= 0 || sigma <= 0 {
		var g Greeks
		switch {
		case isCall && S > K:
			g.Delta = 1
		case !isCall && S < K:
			g.Delta = -1
		}
		return g
	}

	d1, d2 := d1d2(S, K, T, r, sigma)
	sqrtT := math.Sqrt(T)
	disc := math.Exp(-r * T)
	pdf := normPDF(d1)

	g := Greeks{
		Gamma: pdf / (S * sigma * sqrtT),
		Vega:  S * pdf * sqrtT,
	}
	if isCall {
		g.Delta = normCDF(d1)
		g.Theta = -S*pdf*sigma/(2*sqrtT) - r*K*disc*normCDF(d2)
		g.Rho = K * T * disc * normCDF(d2)
	} else {
		g.Delta = normCDF(d1) - 1
		g.Theta = -S*pdf*sigma/(2*sqrtT) + r*K*disc*normCDF(-d2)
		g.Rho = -K * T * disc * normCDF(-d2)
	}
	return g
}

func intrinsic(isCall bool, S, K float64) float64 {
	if isCall {
		return math.Max(0, S-K)
	}
	return math.Max(0, K-S)
}
