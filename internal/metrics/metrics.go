// Package metrics exposes the daemon's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/okay-to-wake/internal/logic"
)

const namespace = "okay_to_wake"

// Ingest results.
const (
	ResultChanged   = "changed"
	ResultUnchanged = "unchanged"
	ResultInvalid   = "invalid"
	ResultPersist   = "persist_error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	transitions   *prometheus.CounterVec
	state         prometheus.Gauge
	ingests       *prometheus.CounterVec
	storageWrites prometheus.Counter
	checksum      prometheus.Gauge
	sourceErrors  *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Number of times each lighting state was entered",
		}, []string{"state"}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Current lighting state (0=doze, 1=wake, 2=day, 3=sleep, 4=unknown)",
		}),
		ingests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_ingests_total",
			Help:      "Schedule payloads received, by kind and result",
		}, []string{"kind", "result"}),
		storageWrites: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_writes_total",
			Help:      "Schedule records written to storage",
		}),
		checksum: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schedule_checksum",
			Help:      "Checksum of the active schedule",
		}),
		sourceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Failures fetching or reading schedule payloads, by source",
		}, []string{"source"}),
	}
}

// ObserveTransition records entering state s.
func (m *Metrics) ObserveTransition(s logic.State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(logic.StateLabel(s)).Inc()
	m.state.Set(float64(s))
}

// ObserveIngest records the result of one ingestion.
func (m *Metrics) ObserveIngest(kind, result string) {
	if m == nil {
		return
	}
	m.ingests.WithLabelValues(kind, result).Inc()
}

// ObserveWrite records one storage write.
func (m *Metrics) ObserveWrite() {
	if m == nil {
		return
	}
	m.storageWrites.Inc()
}

// SetChecksum records the active schedule's checksum.
func (m *Metrics) SetChecksum(sum uint32) {
	if m == nil {
		return
	}
	m.checksum.Set(float64(sum))
}

// ObserveSourceError records a failed fetch or read from a schedule source.
func (m *Metrics) ObserveSourceError(source string) {
	if m == nil {
		return
	}
	m.sourceErrors.WithLabelValues(source).Inc()
}
