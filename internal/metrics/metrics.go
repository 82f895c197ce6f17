package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Writer holds the Prometheus metrics of video writers. Several writers may
// share one Writer; label values distinguish codecs.
type Writer struct {
	// Frame metrics
	FramesSubmitted *prometheus.CounterVec
	FramesRejected  *prometheus.CounterVec

	// Output metrics
	UnitsWritten *prometheus.CounterVec
	BytesWritten *prometheus.CounterVec
	UnitSize     *prometheus.HistogramVec

	// Device metrics
	BusyRetries    *prometheus.CounterVec
	EncodeFailures *prometheus.CounterVec
	SyncDuration   *prometheus.HistogramVec

	// Lifecycle
	OpenWriters prometheus.Gauge
	OpenErrors  *prometheus.CounterVec
}

// New creates the metrics and registers them with reg. Passing nil uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Writer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Writer{
		FramesSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hvw_frames_submitted_total",
				Help: "Frames handed to the encoder",
			},
			[]string{"codec"},
		),
		FramesRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hvw_frames_rejected_total",
				Help: "Frames refused before reaching the encoder",
			},
			[]string{"codec", "reason"}, // reason: invalid_frame, no_surface
		),
		UnitsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hvw_access_units_written_total",
				Help: "Encoded access units appended to the output",
			},
			[]string{"codec"},
		),
		BytesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hvw_bitstream_bytes_total",
				Help: "Bytes appended to the output bitstream",
			},
			[]string{"codec"},
		),
		UnitSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hvw_access_unit_size_bytes",
				Help:    "Size of encoded access units",
				Buckets: prometheus.ExponentialBuckets(256, 2, 14), // 256B to ~2MB
			},
			[]string{"codec"},
		),
		BusyRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hvw_device_busy_retries_total",
				Help: "Encode submissions repeated because the device was busy",
			},
			[]string{"codec"},
		),
		EncodeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hvw_encode_failures_total",
				Help: "Failed encode calls",
			},
			[]string{"codec", "reason"}, // reason: status, sync, write, busy
		),
		SyncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hvw_sync_duration_seconds",
				Help:    "Time spent waiting for encode operations to complete",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"codec"},
		),
		OpenWriters: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hvw_open_writers",
			Help: "Writers currently open",
		}),
		OpenErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hvw_open_errors_total",
				Help: "Writers that failed to open",
			},
			[]string{"reason"},
		),
	}
}
