package volatility

import (
	"math"
	"testing"
)

func TestWindowCalculator_Stats(t *testing.T) {
	var calc WindowCalculator
	if calc.RollingMean() != 0 || calc.RollingStdDev() != 0 {
		t.Fatal("empty calculator should report zeros")
	}

	calc.SetData([]float64{1, 2, 4, 4, 4, 5, 5, 7, 9})
	if !calc.SetRollingWindow(1, 8) {
		t.Fatal("expected window to fit")
	}
	if calc.RollingMean() != 5 {
		t.Fatalf("expected mean 5, got %v", calc.RollingMean())
	}
	if calc.RollingStdDev() != 2 {
		t.Fatalf("expected population std 2, got %v", calc.RollingStdDev())
	}

	if calc.SetRollingWindow(5, 5) {
		t.Fatal("window past the end must be rejected")
	}
	if calc.SetRollingWindow(-1, 2) {
		t.Fatal("negative start must be rejected")
	}
	if calc.RollingMean() != 5 {
		t.Fatal("rejected window must leave the previous one in place")
	}

	calc.ClearData()
	if len(calc.Data()) != 0 || calc.RollingMean() != 0 {
		t.Fatal("ClearData should reset series and window")
	}
	calc.AddData(3)
	if len(calc.Data()) != 1 {
		t.Fatalf("expected 1 value, got %d", len(calc.Data()))
	}
}

func TestWindowCalculator_ConvertToRelativeChanges(t *testing.T) {
	var calc WindowCalculator
	input := []float64{100, 110, 99, 0, 5}
	calc.SetData(input)
	calc.ConvertToRelativeChanges()

	got := calc.Data()
	if got[0] != 0 {
		t.Fatalf("first change should be 0, got %v", got[0])
	}
	if !almostEqual(got[1], 0.1, 1e-12) || !almostEqual(got[2], -0.1, 1e-12) || !almostEqual(got[3], -1, 1e-12) {
		t.Fatalf("unexpected changes: %v", got)
	}
	if !math.IsNaN(got[4]) {
		t.Fatalf("change from zero should be NaN, got %v", got[4])
	}
	if input[1] != 110 {
		t.Fatal("SetData must copy its input")
	}
}

func TestWindowedVolatility_MatchesGonumUpToBias(t *testing.T) {
	const window = 3
	gonumVals := RollingVolatility(refPrices, window, DefaultPeriodsPerYear)
	windowed := windowedVolatility(refPrices, window, DefaultPeriodsPerYear)

	ratio := math.Sqrt(float64(window-1) / float64(window))
	for i := range gonumVals {
		if math.IsNaN(gonumVals[i]) != math.IsNaN(windowed[i]) {
			t.Fatalf("index %d: NaN positions differ (%v vs %v)", i, gonumVals[i], windowed[i])
		}
		if math.IsNaN(gonumVals[i]) {
			continue
		}
		if !almostEqual(windowed[i], gonumVals[i]*ratio, 1e-12) {
			t.Fatalf("index %d: windowed %v, expected %v", i, windowed[i], gonumVals[i]*ratio)
		}
	}

	if !almostEqual(windowed[3], 0.2684358084, 1e-9) {
		t.Fatalf("unexpected first windowed value %.10f", windowed[3])
	}
}
