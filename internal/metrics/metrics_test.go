package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"panorama-viewer/internal/metrics"
)

func TestCountersAndGauges(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.TileLoaded("color")
	m.TileLoaded("color")
	m.LoadError("depth")
	m.Evicted()
	m.SetQueueDepth(5)
	m.SetInFlight(2)
	m.SetResidentTiles(7)

	require.Equal(t, 2.0, testutil.ToFloat64(m.TilesLoaded.WithLabelValues("color")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.LoadErrors.WithLabelValues("depth")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Evictions))
	require.Equal(t, 5.0, testutil.ToFloat64(m.QueueDepth))
	require.Equal(t, 2.0, testutil.ToFloat64(m.InFlight))
	require.Equal(t, 7.0, testutil.ToFloat64(m.ResidentTiles))
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *metrics.Metrics

	// Must not panic.
	m.TileLoaded("color")
	m.LoadError("depth")
	m.Evicted()
	m.SetQueueDepth(1)
	m.SetInFlight(1)
	m.SetResidentTiles(1)
}
