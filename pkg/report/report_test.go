package report

import (
	"strings"
	"testing"

	"github.com/convkit/abtest/pkg/stats"
)

func TestRenderWinner(t *testing.T) {
	res := stats.Result{Kind: stats.Significant, Winner: stats.VariantB, IntervalLow: 0.454, IntervalHigh: 0.546}
	out := Render(res, "A", "B")
	if !strings.HasPrefix(out, "Version B is the winner!") {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(out, "between 45.40% and 54.60%") {
		t.Fatalf("interval not rendered: %q", out)
	}
}

func TestRenderWinnerCustomLabel(t *testing.T) {
	res := stats.Result{Kind: stats.Significant, Winner: stats.VariantA}
	if out := Render(res, "blue", "green"); !strings.Contains(out, "Version blue") {
		t.Fatalf("label not used: %q", out)
	}
}

func TestRenderOtherKinds(t *testing.T) {
	if out := Render(stats.Result{Kind: stats.NotSignificant}, "A", "B"); out != "No statistically significant difference was found." {
		t.Fatalf("not significant: %q", out)
	}
	if out := Render(stats.Result{Kind: stats.InsufficientData}, "A", "B"); out != "Insufficient sample size." {
		t.Fatalf("insufficient: %q", out)
	}
	if out := Render(stats.Result{Kind: stats.InvalidInput}, "A", "B"); !strings.HasPrefix(out, "Invalid input") {
		t.Fatalf("invalid: %q", out)
	}
}
