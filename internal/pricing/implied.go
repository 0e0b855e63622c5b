package pricing

import (
	"errors"
	"fmt"
	"math"
)

var ErrNotConverged = errors.New("implied vol did not converge")

const (
	ivInitialGuess = 0.10
	ivTolerance    = 1e-8
	ivMaxIter      = 100
	ivMinSigma     = 1e-4
	ivMaxSigma     = 5.0
)

// ImpliedVolatility solves for the Black-Scholes volatility that reproduces
// marketPrice, using Newton-Raphson on vega.
func ImpliedVolatility(
	optType OptionType,
	marketPrice, S, K, T, r float64,
) (float64, error) {

	if T <= 0 {
		return 0, fmt.Errorf("%w: invalid expiry %g", ErrInvalidParams, T)
	}
	if marketPrice <= 0 || S <= 0 || K <= 0 {
		return 0, fmt.Errorf("%w: market price, spot and strike must be positive", ErrInvalidParams)
	}
	isCall := optType == Call

	sigma := ivInitialGuess
	for i := 0; i < ivMaxIter; i++ {
		diff := BlackScholesPrice(isCall, S, K, T, r, sigma) - marketPrice
		if math.Abs(diff) < ivTolerance {
			return sigma, nil
		}

		vega := BlackScholesVega(S, K, T, r, sigma)
		if vega < 1e-10 {
			break
		}

		sigma -= diff / vega

		// Guardrails
		if sigma <= 0 {
			sigma = ivMinSigma
		}
		if sigma > ivMaxSigma {
			sigma = ivMaxSigma
		}
	}

	return 0, ErrNotConverged
}

// ImpliedVolATM calculates the at-the-money implied volatility as the mean
// of the volatilities implied by the call and by the put at the strike.
func ImpliedVolATM(
	S, K, T, r float64,
	callPrice, putPrice float64,
) (float64, error) {
	callIV, err := ImpliedVolatility(Call, callPrice, S, K, T, r)
	if err != nil {
		return 0, fmt.Errorf("call: %w", err)
	}
	putIV, err := ImpliedVolatility(Put, putPrice, S, K, T, r)
	if err != nil {
		return 0, fmt.Errorf("put: %w", err)
	}
	return (callIV + putIV) / 2, nil
}
