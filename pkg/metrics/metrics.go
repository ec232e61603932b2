package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abtest_events_total", Help: "Ingested exposure/conversion events",
	}, []string{"kind"})
	Evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abtest_evaluations_total", Help: "Engine evaluations by outcome",
	}, []string{"outcome"})
	EvalLatency = prometheus.NewSummary(prometheus.SummaryOpts{
		Name: "abtest_evaluation_seconds", Help: "Evaluation latency",
	})
	Conclusions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "abtest_conclusions_total", Help: "Concluded experiments",
	})
	FeedFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abtest_feed_fetches_total", Help: "Feed source fetches",
	}, []string{"result"})
)

func MustRegister() {
	prometheus.MustRegister(EventsIngested, Evaluations, EvalLatency, Conclusions, FeedFetches)
}
