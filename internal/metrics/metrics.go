package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors the scoring and login paths feed.
type Metrics struct {
	Submissions *prometheus.CounterVec
	Logins      prometheus.Counter
	AnswerTime  prometheus.Histogram
}

// New registers the collectors on a fresh registry-independent set. Using
// promauto with a private registerer keeps repeated construction in tests
// from colliding on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quizhub",
				Name:      "submissions_total",
				Help:      "Total number of answer submissions",
			},
			[]string{"result"},
		),
		Logins: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "quizhub",
				Name:      "logins_total",
				Help:      "Total number of successful logins",
			},
		),
		AnswerTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "quizhub",
				Name:      "answer_time_seconds",
				Help:      "Reported time-to-answer in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// ObserveSubmission records one submission outcome.
func (m *Metrics) ObserveSubmission(correct bool, seconds float64) {
	if m == nil {
		return
	}
	result := "incorrect"
	if correct {
		result = "correct"
	}
	m.Submissions.WithLabelValues(result).Inc()
	m.AnswerTime.Observe(seconds)
}

// ObserveLogin records one successful login.
func (m *Metrics) ObserveLogin() {
	if m == nil {
		return
	}
	m.Logins.Inc()
}
