package schedule

import "time"

// Recheck tracks when an inconclusive experiment should be re-evaluated.
type Recheck struct {
	ExperimentID string
	EnteredAt    time.Time
	Next         []time.Time
}

func Build(start time.Time, offsets []time.Duration) []time.Time {
	out := make([]time.Time, 0, len(offsets))
	for _, d := range offsets {
		out = append(out, start.Add(d))
	}
	return out
}

// Due reports whether a recheck is pending at now and returns the schedule
// with the consumed entries dropped.
func (r Recheck) Due(now time.Time) (bool, Recheck) {
	i := 0
	for i < len(r.Next) && !r.Next[i].After(now) {
		i++
	}
	if i == 0 {
		return false, r
	}
	r.Next = r.Next[i:]
	return true, r
}
