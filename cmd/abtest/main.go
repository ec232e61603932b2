package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/convkit/abtest/pkg/report"
	"github.com/convkit/abtest/pkg/stats"
)

// One-shot evaluator: feed it the two observed rates and sample sizes, get
// the verdict on stdout.
func main() {
	var (
		rateA      = flag.Float64("rate-a", 0, "conversion rate of version A, in [0,1]")
		sizeA      = flag.Int("size-a", 0, "samples exposed to version A")
		rateB      = flag.Float64("rate-b", 0, "conversion rate of version B, in [0,1]")
		sizeB      = flag.Int("size-b", 0, "samples exposed to version B")
		confidence = flag.Float64("confidence", 0.95, "confidence level")
		minSamples = flag.Int("min-samples", 5, "minimum sample size per variant")
	)
	flag.Parse()

	prm := stats.Params{
		MinSampleSize: *minSamples,
		ZCritical:     stats.ZForConfidence(*confidence),
	}
	res := stats.Evaluate(
		stats.VariantSample{Rate: *rateA, Size: *sizeA},
		stats.VariantSample{Rate: *rateB, Size: *sizeB},
		prm,
	)
	fmt.Println(report.Render(res, "A", "B"))
	if res.Kind == stats.InvalidInput {
		os.Exit(1)
	}
}
