package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/olgkv/linkchecker/internal/domain"
)

func TestObserveChain(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveChain([]domain.LinkVerdict{
		{Kind: domain.KindRedirect},
		{Kind: domain.KindOK, OK: true},
	}, 20*time.Millisecond)
	m.ObserveChain([]domain.LinkVerdict{domain.TransportFailure("x")}, time.Millisecond)
	m.ObserveChain(nil, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues("transport_failure")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.checks))
}

func TestObserveArchive(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveArchive(domain.Archived("a"))
	m.ObserveArchive(domain.Archived("b"))
	m.ObserveArchive(domain.ArchiveFailed("c", "Too Many Requests"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.archives.WithLabelValues("archived")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.archives.WithLabelValues("failed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveChain([]domain.LinkVerdict{{Kind: domain.KindOK}}, time.Second)
		m.ObserveArchive(domain.Archived("a"))
	})
}
