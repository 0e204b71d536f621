package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/olgkv/linkchecker/internal/domain"
)

const namespace = "linkchecker"

// Metrics groups the collectors updated during a run. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	checks        *prometheus.CounterVec
	chainLength   prometheus.Histogram
	checkDuration prometheus.Histogram
	archives      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Link checks by final verdict kind.",
		}, []string{"kind"}),
		chainLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_length",
			Help:      "Number of hops recorded per checked link.",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 11},
		}),
		checkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Time spent resolving one link including redirects.",
			Buckets:   prometheus.DefBuckets,
		}),
		archives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_submissions_total",
			Help:      "Archive submissions by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.checks, m.chainLength, m.checkDuration, m.archives)
	return m
}

func (m *Metrics) ObserveChain(chain []domain.LinkVerdict, elapsed time.Duration) {
	if m == nil || len(chain) == 0 {
		return
	}
	m.checks.WithLabelValues(chain[len(chain)-1].Kind.String()).Inc()
	m.chainLength.Observe(float64(len(chain)))
	m.checkDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveArchive(outcome domain.ArchiveOutcome) {
	if m == nil {
		return
	}
	label := "failed"
	if outcome.Archived {
		label = "archived"
	}
	m.archives.WithLabelValues(label).Inc()
}
