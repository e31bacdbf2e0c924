// Package metrics exposes prometheus instrumentation for the tile
// provider.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the provider's prometheus collectors. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	TilesLoaded   *prometheus.CounterVec
	LoadErrors    *prometheus.CounterVec
	Evictions     prometheus.Counter
	QueueDepth    prometheus.Gauge
	InFlight      prometheus.Gauge
	ResidentTiles prometheus.Gauge
}

// New registers the provider collectors on reg. Passing
// prometheus.DefaultRegisterer gives the usual global registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TilesLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "panorama_tiles_loaded_total",
			Help: "Resource payloads stored into tiles, by slot.",
		}, []string{"slot"}),
		LoadErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "panorama_tile_load_errors_total",
			Help: "Resource loads that failed, by slot.",
		}, []string{"slot"}),
		Evictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "panorama_tile_evictions_total",
			Help: "Tiles destroyed by cache eviction.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "panorama_pending_loads",
			Help: "Resource loads waiting for a worker.",
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "panorama_inflight_loads",
			Help: "Resource loads currently executing.",
		}),
		ResidentTiles: factory.NewGauge(prometheus.GaugeOpts{
			Name: "panorama_resident_tiles",
			Help: "Tiles currently held in the cache.",
		}),
	}
}

// Nil-safe helpers so the provider never branches on m != nil inline.

func (m *Metrics) TileLoaded(slot string) {
	if m != nil {
		m.TilesLoaded.WithLabelValues(slot).Inc()
	}
}

func (m *Metrics) LoadError(slot string) {
	if m != nil {
		m.LoadErrors.WithLabelValues(slot).Inc()
	}
}

func (m *Metrics) Evicted() {
	if m != nil {
		m.Evictions.Inc()
	}
}

func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

func (m *Metrics) SetInFlight(n int) {
	if m != nil {
		m.InFlight.Set(float64(n))
	}
}

func (m *Metrics) SetResidentTiles(n int) {
	if m != nil {
		m.ResidentTiles.Set(float64(n))
	}
}
