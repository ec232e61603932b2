package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool { return math.Abs(a-b) < eps }

func TestEvaluateClearWinner(t *testing.T) {
	res := Evaluate(VariantSample{Rate: 0.20, Size: 1000}, VariantSample{Rate: 0.70, Size: 800}, DefaultParams())
	if res.Kind != Significant {
		t.Fatalf("expected significant, got %v", res.Kind)
	}
	if res.Winner != VariantB {
		t.Fatalf("expected winner B, got %v", res.Winner)
	}
	if res.Z <= Z95 {
		t.Fatalf("expected z above critical, got %f", res.Z)
	}
	if res.IntervalLow <= 0 || res.IntervalLow >= res.IntervalHigh {
		t.Fatalf("expected 0 < low < high, got low=%f high=%f", res.IntervalLow, res.IntervalHigh)
	}
}

func TestEvaluateTinyDifference(t *testing.T) {
	res := Evaluate(VariantSample{Rate: 0.20, Size: 1000}, VariantSample{Rate: 0.21, Size: 800}, DefaultParams())
	if res.Kind != NotSignificant {
		t.Fatalf("expected not significant, got %v (z=%f)", res.Kind, res.Z)
	}
}

func TestEvaluateInsufficientData(t *testing.T) {
	// rates are extreme but must not matter, the size check comes first
	res := Evaluate(VariantSample{Rate: 0.99, Size: 3}, VariantSample{Rate: 0.01, Size: 1000}, DefaultParams())
	if res.Kind != InsufficientData {
		t.Fatalf("expected insufficient data, got %v", res.Kind)
	}
	if res.Z != 0 {
		t.Fatalf("no statistic should be computed, got z=%f", res.Z)
	}
}

func TestEvaluateIdenticalRates(t *testing.T) {
	res := Evaluate(VariantSample{Rate: 0.5, Size: 100}, VariantSample{Rate: 0.5, Size: 100}, DefaultParams())
	if res.Kind != NotSignificant {
		t.Fatalf("expected not significant, got %v", res.Kind)
	}
	if res.Z != 0 {
		t.Fatalf("expected z=0 for identical rates, got %f", res.Z)
	}
}

func TestEvaluateZeroStandardError(t *testing.T) {
	for _, rate := range []float64{0, 1} {
		res := Evaluate(VariantSample{Rate: rate, Size: 100}, VariantSample{Rate: rate, Size: 100}, DefaultParams())
		if res.Kind != NotSignificant {
			t.Fatalf("rate %v: expected not significant, got %v", rate, res.Kind)
		}
		if math.IsNaN(res.Z) || math.IsInf(res.Z, 0) {
			t.Fatalf("rate %v: statistic leaked NaN/Inf: %f", rate, res.Z)
		}
	}
}

func TestEvaluateNoMinimumEmptySamples(t *testing.T) {
	// a zero minimum lets empty samples through to the arithmetic; the pooled
	// proportion is 0/0 there and must not leak NaN
	prm := Params{MinSampleSize: 0, ZCritical: Z95}
	res := Evaluate(VariantSample{Rate: 0, Size: 0}, VariantSample{Rate: 0, Size: 0}, prm)
	if res.Kind != NotSignificant {
		t.Fatalf("expected not significant, got %v", res.Kind)
	}
	for name, v := range map[string]float64{
		"z": res.Z, "p_value": res.PValue, "diff": res.Diff,
		"low": res.IntervalLow, "high": res.IntervalHigh,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%s leaked NaN/Inf: %f", name, v)
		}
	}
}

func TestEvaluateInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		a, b VariantSample
	}{
		{"rate above one", VariantSample{1.5, 100}, VariantSample{0.5, 100}},
		{"negative rate", VariantSample{0.5, 100}, VariantSample{-0.1, 100}},
		{"negative size", VariantSample{0.5, -1}, VariantSample{0.5, 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if res := Evaluate(tc.a, tc.b, DefaultParams()); res.Kind != InvalidInput {
				t.Errorf("expected invalid input, got %v", res.Kind)
			}
		})
	}
}

func TestEvaluateSymmetry(t *testing.T) {
	a := VariantSample{Rate: 0.20, Size: 1000}
	b := VariantSample{Rate: 0.70, Size: 800}
	ab := Evaluate(a, b, DefaultParams())
	ba := Evaluate(b, a, DefaultParams())
	if ab.Kind != ba.Kind {
		t.Fatalf("kind differs: %v vs %v", ab.Kind, ba.Kind)
	}
	// the same underlying variant must win regardless of argument order
	if ab.Winner != VariantB || ba.Winner != VariantA {
		t.Fatalf("winner mismatch: %v / %v", ab.Winner, ba.Winner)
	}
	if !almostEqual(ab.IntervalLow, ba.IntervalLow, 1e-12) || !almostEqual(ab.IntervalHigh, ba.IntervalHigh, 1e-12) {
		t.Fatalf("interval differs: [%f,%f] vs [%f,%f]", ab.IntervalLow, ab.IntervalHigh, ba.IntervalLow, ba.IntervalHigh)
	}
	if !almostEqual(ab.Z, ba.Z, 1e-12) {
		t.Fatalf("z differs: %f vs %f", ab.Z, ba.Z)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	a := VariantSample{Rate: 0.31, Size: 420}
	b := VariantSample{Rate: 0.27, Size: 390}
	r1 := Evaluate(a, b, DefaultParams())
	r2 := Evaluate(a, b, DefaultParams())
	if r1 != r2 {
		t.Fatalf("results differ: %+v vs %+v", r1, r2)
	}
}

func TestEvaluateMonotonicZ(t *testing.T) {
	prev := -1.0
	for _, rb := range []float64{0.35, 0.40, 0.45, 0.50} {
		res := Evaluate(VariantSample{Rate: 0.30, Size: 500}, VariantSample{Rate: rb, Size: 500}, DefaultParams())
		if res.Z <= prev {
			t.Fatalf("z not strictly increasing: rateB=%v z=%f prev=%f", rb, res.Z, prev)
		}
		prev = res.Z
	}
}

func TestEvaluateIntervalOrdering(t *testing.T) {
	// even an inconclusive result keeps low <= high
	res := Evaluate(VariantSample{Rate: 0.20, Size: 50}, VariantSample{Rate: 0.22, Size: 50}, DefaultParams())
	if res.IntervalLow > res.IntervalHigh {
		t.Fatalf("low > high: %f > %f", res.IntervalLow, res.IntervalHigh)
	}
}

func TestZForConfidence(t *testing.T) {
	if z := ZForConfidence(0.95); !almostEqual(z, 1.96, 0.005) {
		t.Fatalf("95%% quantile off: %f", z)
	}
	if z := ZForConfidence(0.99); !almostEqual(z, 2.576, 0.005) {
		t.Fatalf("99%% quantile off: %f", z)
	}
	if z := ZForConfidence(1.5); z != Z95 {
		t.Fatalf("out-of-range level should fall back to Z95, got %f", z)
	}
}

func TestPValue(t *testing.T) {
	if p := PValue(1.96); !almostEqual(p, 0.05, 0.001) {
		t.Fatalf("p-value at 1.96 off: %f", p)
	}
	if p := PValue(0); !almostEqual(p, 1.0, 1e-9) {
		t.Fatalf("p-value at 0 should be 1, got %f", p)
	}
}

func TestWilsonInterval(t *testing.T) {
	lo, hi := WilsonInterval(0, 0, Z95)
	if lo != 0 || hi != 0 {
		t.Fatalf("empty sample should give (0,0), got (%f,%f)", lo, hi)
	}
	lo, hi = WilsonInterval(200, 200, 2.575829)
	if lo < 0.967 {
		t.Fatalf("expected high lower bound, got %f", lo)
	}
	lo, hi = WilsonInterval(50, 200, Z95)
	p := 0.25
	if lo > p || hi < p || lo > hi {
		t.Fatalf("interval (%f,%f) should contain %f", lo, hi, p)
	}
}
