package pricing

import (
	"errors"
	"math"
	"testing"
)

func TestBinomialPutReferenceValue(t *testing.T) {
	got := round2(BinomialPrice(false, 100, 105, 2, 0.02, 0.30, 8))
	if got != 17.35 {
		t.Fatalf("binomial put = %.2f, want 17.35", got)
	}
}

func TestBinomialConvergesToBlackScholes(t *testing.T) {
	S, K, T, r, sigma := 100.0, 105.0, 2.0, 0.02, 0.30

	for _, isCall := range []bool{true, false} {
		bs := BlackScholesPrice(isCall, S, K, T, r, sigma)
		coarse := math.Abs(BinomialPrice(isCall, S, K, T, r, sigma, 8) - bs)
		fine := math.Abs(BinomialPrice(isCall, S, K, T, r, sigma, 2000) - bs)

		if fine > 0.01 {
			t.Fatalf("isCall=%v: 2000-period price too far from BS: diff=%f", isCall, fine)
		}
		if fine >= coarse {
			t.Fatalf("isCall=%v: expected convergence, coarse diff=%f fine diff=%f", isCall, coarse, fine)
		}
	}
}

func TestBinomialEdgeCases(t *testing.T) {
	if !math.IsNaN(BinomialPrice(true, 100, 100, 1, 0.05, 0.2, 0)) {
		t.Fatal("expected NaN for zero periods")
	}
	if got := BinomialPrice(true, 120, 100, 0, 0.05, 0.2, 10); got != 20 {
		t.Fatalf("expected intrinsic 20 for expired call, got %f", got)
	}
}

func TestBinomialRejectsInvalidLattice(t *testing.T) {
	// e^(r·dt) above the up move: no risk-neutral probability
	if p := BinomialPrice(true, 100, 100, 1, 0.05, 0.02, 1); !math.IsNaN(p) {
		t.Fatalf("expected NaN for an arbitrage lattice, got %f", p)
	}
	if err := checkLattice(1, 0.05, 0.02, 1); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
	// enough periods restore a valid lattice
	if err := checkLattice(1, 0.05, 0.02, 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
