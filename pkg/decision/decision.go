package decision

import (
	"time"

	"github.com/convkit/abtest/pkg/stats"
)

// ExperimentCounts are the accumulated raw counts for one experiment.
type ExperimentCounts struct {
	ID           string
	ExposuresA   int
	ConversionsA int
	ExposuresB   int
	ConversionsB int
}

func (c ExperimentCounts) RateA() float64 {
	if c.ExposuresA == 0 {
		return 0
	}
	return float64(c.ConversionsA) / float64(c.ExposuresA)
}

func (c ExperimentCounts) RateB() float64 {
	if c.ExposuresB == 0 {
		return 0
	}
	return float64(c.ConversionsB) / float64(c.ExposuresB)
}

type DecisionInput struct {
	Counts       ExperimentCounts
	Params       stats.Params
	MaxExposures int // 0 = no sample budget
	Now          time.Time
}

type Action string

const (
	ActionWait     Action = "wait"     // not enough data to run the test
	ActionContinue Action = "continue" // keep collecting, no winner yet
	ActionConclude Action = "conclude" // winner found, or sample budget spent
)

type Decision struct {
	Action Action
	Winner stats.Variant
	Result stats.Result
	Reason string
}

// Evaluate runs the proportion test over the accumulated counts and maps the
// outcome to what the manager should do with the experiment.
func Evaluate(in DecisionInput) Decision {
	c := in.Counts
	res := stats.Evaluate(
		stats.VariantSample{Rate: c.RateA(), Size: c.ExposuresA},
		stats.VariantSample{Rate: c.RateB(), Size: c.ExposuresB},
		in.Params,
	)
	switch res.Kind {
	case stats.InvalidInput:
		return Decision{Action: ActionWait, Result: res, Reason: "invalid_counts"}
	case stats.InsufficientData:
		return Decision{Action: ActionWait, Result: res, Reason: "insufficient_data"}
	case stats.Significant:
		return Decision{Action: ActionConclude, Winner: res.Winner, Result: res, Reason: "significant_winner"}
	}
	if in.MaxExposures > 0 && c.ExposuresA+c.ExposuresB >= in.MaxExposures {
		return Decision{Action: ActionConclude, Result: res, Reason: "sample_budget_exhausted"}
	}
	return Decision{Action: ActionContinue, Result: res, Reason: "no_significant_difference"}
}
