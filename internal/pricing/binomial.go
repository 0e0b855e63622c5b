package pricing

import (
	"fmt"
	"math"
)

// crrLattice holds the per-period parameters of a Cox-Ross-Rubinstein tree.
type crrLattice struct {
	discreteRate float64 // per-period rate, e^(r·dt) - 1
	up           float64 // up move multiplier
	down         float64 // down move multiplier, 1/up
	upProba      float64 // risk-neutral probability of an up move
}

func newCRRLattice(T, r, sigma float64, periods int) crrLattice {
	dt := T / float64(periods)
	l := crrLattice{
		discreteRate: math.Exp(r*dt) - 1,
		up:           math.Exp(sigma * math.Sqrt(dt)),
		down:         math.Exp(-sigma * math.Sqrt(dt)),
	}
	l.upProba = (1 + l.discreteRate - l.down) / (l.up - l.down)
	return l
}

// arbitrageFree reports whether the up probability lies in (0, 1). Outside
// that range the lattice admits arbitrage and has no risk-neutral measure.
func (l crrLattice) arbitrageFree() bool {
	return l.upProba > 0 && l.upProba < 1
}

// checkLattice rejects lattices without a valid risk-neutral probability,
// typically a low volatility with few periods over a long expiry.
func checkLattice(T, r, sigma float64, periods int) error {
	if T <= 0 || sigma <= 0 {
		return nil
	}
	l := newCRRLattice(T, r, sigma, periods)
	if !l.arbitrageFree() {
		return fmt.Errorf("%w: binomial up probability %.4f outside (0, 1) for %d periods, sigma %g, rate %g",
			ErrInvalidParams, l.upProba, periods, sigma, r)
	}
	return nil
}

// BinomialPrice prices a European option on a Cox-Ross-Rubinstein lattice
// with the given number of periods.
//
// The price is the risk-neutral expectation of the terminal payoff,
// discounted by (1+R)^n where R is the discrete per-period rate. Binomial
// weights are computed in log space so that large period counts stay finite.
//
// Returns NaN when periods < 1 or when the lattice has no valid risk-neutral
// probability (see Params.Validate). Expired or zero-volatility inputs return the
// intrinsic value.
func BinomialPrice(isCall bool, S, K, T, r, sigma float64, periods int) float64 {
	if periods < 1 {
		return math.NaN()
	}
	if T <= 0 || sigma <= 0 {
		return intrinsic(isCall, S, K)
	}

	l := newCRRLattice(T, r, sigma, periods)
	if !l.arbitrageFree() {
		return math.NaN()
	}
	n := float64(periods)
	logP := math.Log(l.upProba)
	logQ := math.Log(1 - l.upProba)

	price := 0.0
	for i := 0; i <= periods; i++ {
		k := float64(i)
		terminal := S * math.Pow(l.up, k) * math.Pow(l.down, n-k)
		payoff := intrinsic(isCall, terminal, K)
		if payoff == 0 {
			continue
		}
		weight := math.Exp(logBinomialCoef(periods, i) + k*logP + (n-k)*logQ)
		price += weight * payoff
	}

	return price / math.Pow(1+l.discreteRate, n)
}

// logBinomialCoef returns ln(C(n, k)).
func logBinomialCoef(n, k int) float64 {
	a, _ := math.Lgamma(float64(n + 1))
	b, _ := math.Lgamma(float64(k + 1))
	c, _ := math.Lgamma(float64(n - k + 1))
	return a - b - c
}
