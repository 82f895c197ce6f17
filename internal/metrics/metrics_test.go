package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FramesSubmitted.WithLabelValues("AVC").Add(3)
	m.BusyRetries.WithLabelValues("AVC").Inc()
	m.OpenWriters.Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.FramesSubmitted.WithLabelValues("AVC")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpenWriters))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "hvw_frames_submitted_total")
	assert.Contains(t, names, "hvw_device_busy_retries_total")
}

func TestNewTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
