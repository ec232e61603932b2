package stats

import "math"

// WilsonInterval returns the two-sided Wilson score interval for the
// proportion p = successes/n. Used for per-variant rate intervals in
// experiment summaries; an empty sample gives (0, 0).
func WilsonInterval(successes, n int, z float64) (lo, hi float64) {
	if n == 0 {
		return 0, 0
	}
	p := float64(successes) / float64(n)
	nn := float64(n)
	den := 1.0 + (z*z)/nn
	center := p + (z*z)/(2.0*nn)
	rad := z * math.Sqrt((p*(1.0-p)+(z*z)/(4.0*nn))/nn)
	return (center - rad) / den, (center + rad) / den
}
