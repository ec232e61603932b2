package decision

import (
	"testing"
	"time"

	"github.com/convkit/abtest/pkg/stats"
)

func TestDecisionPaths(t *testing.T) {
	prm := stats.DefaultParams()

	in := DecisionInput{
		Counts: ExperimentCounts{ID: "x", ExposuresA: 1000, ConversionsA: 200, ExposuresB: 800, ConversionsB: 560},
		Params: prm, Now: time.Now(),
	}
	d := Evaluate(in)
	if d.Action != ActionConclude || d.Winner != stats.VariantB {
		t.Fatalf("expected conclude with winner B, got %v winner=%v", d.Action, d.Winner)
	}
	if d.Reason != "significant_winner" {
		t.Fatalf("unexpected reason %q", d.Reason)
	}

	in2 := DecisionInput{
		Counts: ExperimentCounts{ID: "x", ExposuresA: 3, ConversionsA: 1, ExposuresB: 1000, ConversionsB: 500},
		Params: prm, Now: time.Now(),
	}
	if d2 := Evaluate(in2); d2.Action != ActionWait || d2.Reason != "insufficient_data" {
		t.Fatalf("expected wait/insufficient_data, got %v/%q", d2.Action, d2.Reason)
	}

	in3 := DecisionInput{
		Counts: ExperimentCounts{ID: "x", ExposuresA: 100, ConversionsA: 50, ExposuresB: 100, ConversionsB: 50},
		Params: prm, Now: time.Now(),
	}
	if d3 := Evaluate(in3); d3.Action != ActionContinue {
		t.Fatalf("expected continue, got %v", d3.Action)
	}
}

func TestDecisionSampleBudget(t *testing.T) {
	in := DecisionInput{
		Counts:       ExperimentCounts{ID: "x", ExposuresA: 600, ConversionsA: 120, ExposuresB: 600, ConversionsB: 121},
		Params:       stats.DefaultParams(),
		MaxExposures: 1000,
		Now:          time.Now(),
	}
	d := Evaluate(in)
	if d.Action != ActionConclude || d.Winner != "" {
		t.Fatalf("expected conclude with no winner, got %v winner=%q", d.Action, d.Winner)
	}
	if d.Reason != "sample_budget_exhausted" {
		t.Fatalf("unexpected reason %q", d.Reason)
	}
}

func TestCountsRates(t *testing.T) {
	c := ExperimentCounts{ExposuresA: 200, ConversionsA: 50}
	if c.RateA() != 0.25 {
		t.Fatalf("rate A: %f", c.RateA())
	}
	if c.RateB() != 0 {
		t.Fatalf("rate B of empty arm should be 0, got %f", c.RateB())
	}
}
