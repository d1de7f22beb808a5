// Package metrics exposes Prometheus instrumentation for the group store,
// the snapshot writer and live subscriptions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/slicetally/internal/groupstore"
)

const namespace = "slicetally"

// Metrics holds every collector. It implements groupstore.Observer,
// persistence.Recorder and pubsub.Recorder.
type Metrics struct {
	reg prometheus.Registerer

	mutations        *prometheus.CounterVec
	snapshotWrites   *prometheus.CounterVec
	snapshotDuration prometheus.Histogram
	deliveries       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reg: reg,
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Accepted group mutations by operation.",
		}, []string{"op"}),
		snapshotWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_writes_total",
			Help:      "Snapshot writes by result.",
		}, []string{"result"}),
		snapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_write_duration_seconds",
			Help:      "Time spent writing one snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Projection deliveries to observers by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.mutations, m.snapshotWrites, m.snapshotDuration, m.deliveries)
	return m
}

// RegisterGauges exposes the live group and subscriber counts.
func (m *Metrics) RegisterGauges(groups, subscribers func() int) {
	m.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "groups",
			Help:      "Groups held in memory.",
		}, func() float64 { return float64(groups()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Live group subscriptions.",
		}, func() float64 { return float64(subscribers()) }),
	)
}

// GroupChanged counts the mutation.
func (m *Metrics) GroupChanged(c groupstore.Change) {
	m.mutations.WithLabelValues(string(c.Op)).Inc()
}

// ObserveSnapshot records one snapshot write.
func (m *Metrics) ObserveSnapshot(d time.Duration, err error) {
	m.snapshotDuration.Observe(d.Seconds())
	m.snapshotWrites.WithLabelValues(result(err)).Inc()
}

// ObserveDelivery records one delivery attempt.
func (m *Metrics) ObserveDelivery(err error) {
	m.deliveries.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
