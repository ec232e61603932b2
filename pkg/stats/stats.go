package stats

import "math"

// Z95 is the critical value for a two-sided test at 95% confidence.
const Z95 = 1.96

// Variant identifies one arm of a test.
type Variant string

const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

type Kind string

const (
	Significant      Kind = "significant"
	NotSignificant   Kind = "not_significant"
	InsufficientData Kind = "insufficient_data"
	InvalidInput     Kind = "invalid_input"
)

// VariantSample is the observed conversion rate and exposure count for one arm.
type VariantSample struct {
	Rate float64
	Size int
}

type Params struct {
	MinSampleSize int
	ZCritical     float64
}

func DefaultParams() Params {
	return Params{MinSampleSize: 5, ZCritical: Z95}
}

// Result is the outcome of a two-proportion test. Z, PValue, Diff and the
// interval bounds are populated whenever the statistic was computed; Winner
// only when Kind is Significant.
type Result struct {
	Kind         Kind
	Winner       Variant
	Z            float64
	PValue       float64
	Diff         float64
	IntervalLow  float64
	IntervalHigh float64
}

// Evaluate runs a two-sample z-test of the null hypothesis that the true
// conversion rates behind a and b are equal. If the null is rejected at the
// configured critical value, the result names the variant with the higher
// observed rate and carries a confidence interval for the absolute difference
// of proportions.
//
// The interval lower bound is reported as diff-moe without clamping, so it can
// be negative; that matches the published computation and is kept for
// compatibility. A pooled rate of exactly 0 or 1 gives a zero standard error
// and is reported as NotSignificant rather than dividing by zero.
func Evaluate(a, b VariantSample, prm Params) Result {
	if a.Rate < 0 || a.Rate > 1 || b.Rate < 0 || b.Rate > 1 || a.Size < 0 || b.Size < 0 {
		return Result{Kind: InvalidInput}
	}
	if a.Size < prm.MinSampleSize || b.Size < prm.MinSampleSize {
		return Result{Kind: InsufficientData}
	}
	na, nb := float64(a.Size), float64(b.Size)
	if na+nb == 0 {
		// reachable with MinSampleSize <= 0; the pooled proportion is undefined
		return Result{Kind: NotSignificant, PValue: 1}
	}
	p := (a.Rate*na + b.Rate*nb) / (na + nb)
	se := math.Sqrt(p * (1 - p) * (1/na + 1/nb))
	diff := math.Abs(a.Rate - b.Rate)
	if se == 0 {
		return Result{Kind: NotSignificant, Diff: diff, PValue: 1}
	}
	z := diff / se
	moe := prm.ZCritical * se
	res := Result{
		Kind:         NotSignificant,
		Z:            z,
		PValue:       PValue(z),
		Diff:         diff,
		IntervalLow:  diff - moe,
		IntervalHigh: diff + moe,
	}
	if z > prm.ZCritical {
		res.Kind = Significant
		if a.Rate > b.Rate {
			res.Winner = VariantA
		} else {
			res.Winner = VariantB
		}
	}
	return res
}
