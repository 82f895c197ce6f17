// Package pipeline moves frames from a capture source into a video writer.
package pipeline

import (
	"context"

	"github.com/acentior/hw-video-writer/internal/capture"
	"github.com/acentior/hw-video-writer/internal/logger"
	"github.com/acentior/hw-video-writer/internal/writer"
	"github.com/acentior/hw-video-writer/pkg/frame"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const progressEvery = 100

// FrameWriter is the part of writer.Writer the recorder drives.
type FrameWriter interface {
	WriteContext(ctx context.Context, f *frame.Frame) (bool, error)
	Close() error
	Stats() writer.Stats
}

// Recorder owns a source and a writer for the length of one recording.
type Recorder struct {
	source capture.Source
	writer FrameWriter
	log    *zap.SugaredLogger
}

func NewRecorder(source capture.Source, w FrameWriter) *Recorder {
	return &Recorder{
		source: source,
		writer: w,
		log:    logger.ComponentLogger("recorder"),
	}
}

// Run records until the source runs dry, ctx ends or maxFrames frames were
// accepted (zero means no limit). Frames the writer rejects are skipped.
// Run always closes the writer, so the returned stats include the frames
// drained from the encoder.
func (r *Recorder) Run(ctx context.Context, maxFrames int) (stats writer.Stats, err error) {
	r.source.Start(ctx)
	defer r.source.Stop()
	defer func() {
		err = errors.CombineErrors(err, r.writer.Close())
		stats = r.writer.Stats()
		r.log.Infow("recording finished",
			"frames", stats.FramesSubmitted,
			"units", stats.UnitsWritten,
			logger.FieldBytes, stats.BytesWritten,
			"rejected", stats.FramesRejected)
	}()

	frames := r.source.Frames()
	accepted := 0
	for maxFrames <= 0 || accepted < maxFrames {
		select {
		case <-ctx.Done():
			r.log.Infow("recording interrupted", logger.FieldCount, accepted)
			return stats, nil
		case f, ok := <-frames:
			if !ok {
				r.log.Infow("source closed", logger.FieldCount, accepted)
				return stats, nil
			}
			if _, err := r.writer.WriteContext(ctx, f); err != nil {
				if errors.IsAny(err, writer.ErrInvalidFrame, writer.ErrNoFreeSurface) {
					r.log.Warnw("frame skipped", logger.FieldError, err)
					continue
				}
				if ctx.Err() != nil {
					return stats, nil
				}
				return stats, errors.Wrapf(err, "frame %d", accepted)
			}
			accepted++
			if accepted%progressEvery == 0 {
				r.log.Debugw("recording", logger.FieldCount, accepted)
			}
		}
	}
	return stats, nil
}
