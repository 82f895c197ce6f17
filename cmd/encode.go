package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acentior/hw-video-writer/internal/capture"
	"github.com/acentior/hw-video-writer/internal/config"
	"github.com/acentior/hw-video-writer/internal/encoders"
	"github.com/acentior/hw-video-writer/internal/logger"
	"github.com/acentior/hw-video-writer/internal/metrics"
	"github.com/acentior/hw-video-writer/internal/pipeline"
	"github.com/acentior/hw-video-writer/internal/writer"
	"github.com/acentior/hw-video-writer/pkg/size"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Record frames from a source into an elementary stream",
	Args:  cobra.NoArgs,
	RunE:  runEncode,
}

func init() {
	flags := encodeCmd.Flags()
	flags.StringP("output", "o", "", "output file")
	flags.String("fourcc", "", "codec fourcc: X264, H264, AVC, H265, HEVC or MPG2")
	flags.Int("width", 0, "frame width")
	flags.Int("height", 0, "frame height")
	flags.Float64("fps", 0, "frames per second")
	flags.String("source", "", "frame source: pattern or camera")
	flags.Int("frames", 0, "stop after this many frames (0 records until interrupted)")
	flags.String("backend", "", "encoder backend")
	flags.Duration("sync-timeout", 0, "wait limit for one encode operation")
	flags.Duration("busy-interval", 0, "pause between submissions while the device is busy")
	flags.Uint64("busy-max-retries", 0, "give up on a busy device after this many retries (0 never gives up)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	mustBind(v, map[string]string{
		"output.path":              "output",
		"output.fourcc":            "fourcc",
		"video.width":              "width",
		"video.height":             "height",
		"video.fps":                "fps",
		"video.source":             "source",
		"video.frames":             "frames",
		"encoder.backend":          "backend",
		"encoder.sync_timeout":     "sync-timeout",
		"encoder.busy_interval":    "busy-interval",
		"encoder.busy_max_retries": "busy-max-retries",
		"metrics.addr":             "metrics-addr",
	}, flags)
}

func runEncode(cmd *cobra.Command, args []string) error {
	log := logger.ComponentLogger("encode")
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	fourcc, err := cfg.FourCC()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, reg, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warnw("metrics server shutdown", logger.FieldError, err)
			}
		}()
	}

	backend, err := encoders.NewService().NewBackend(cfg.Encoder.Backend)
	if err != nil {
		return err
	}

	frameSize := size.Size{Width: cfg.Video.Width, Height: cfg.Video.Height}
	source, err := newSource(cfg.Video.Source, frameSize, cfg.Video.Fps)
	if err != nil {
		return err
	}

	w, err := writer.New(cfg.Output.Path, fourcc, cfg.Video.Fps, frameSize, backend,
		writer.WithSyncTimeout(cfg.Encoder.SyncTimeout),
		writer.WithRetryPolicy(writer.RetryPolicy{
			Interval:   cfg.Encoder.BusyInterval,
			MaxRetries: cfg.Encoder.BusyMaxRetries,
		}),
		writer.WithLogger(logger.ComponentLogger("writer")),
		writer.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		source.Stop()
		return err
	}

	log.Infow("recording",
		logger.FieldPath, cfg.Output.Path,
		logger.FieldFourCC, fourcc.String(),
		"backend", backend.Name(),
		"source", cfg.Video.Source,
		logger.FieldSize, frameSize.String(),
		"fps", cfg.Video.Fps)

	stats, err := pipeline.NewRecorder(source, w).Run(ctx, cfg.Video.Frames)
	cmd.Printf("%s: %d frames, %d access units, %d bytes (%d drained, %d rejected, %d busy retries)\n",
		cfg.Output.Path, stats.FramesSubmitted, stats.UnitsWritten, stats.BytesWritten,
		stats.Drained, stats.FramesRejected, stats.BusyRetries)
	return err
}

func newSource(kind string, frameSize size.Size, fps float64) (capture.Source, error) {
	switch kind {
	case "camera":
		cc, err := capture.CreateCameraCapturer(frameSize.Width, frameSize.Height, fps)
		if err != nil {
			return nil, err
		}
		return cc, nil
	case "pattern":
		pc, err := capture.NewPatternCapturer(frameSize, fps)
		if err != nil {
			return nil, err
		}
		return pc, nil
	}
	return nil, errors.Newf("unknown source %q", kind)
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.SugaredLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Infow("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server", logger.FieldError, err)
		}
	}()
	return srv
}
