package writer

import (
	"context"
	"time"

	"github.com/acentior/hw-video-writer/internal/colorconv"
	"github.com/acentior/hw-video-writer/internal/logger"
	"github.com/acentior/hw-video-writer/internal/mfx"
	"github.com/acentior/hw-video-writer/pkg/frame"
	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
)

var errDeviceBusy = errors.New("MFX_WRN_DEVICE_BUSY")

// Write encodes one frame. A nil or empty frame asks the encoder for the
// next buffered picture instead.
//
// It returns true when an access unit was appended to the output. (false,
// nil) means the encoder kept the frame and produced nothing yet. Rejected
// frames (ErrInvalidFrame, ErrNoFreeSurface) leave the writer usable; after
// any other error the encoder state is undefined.
func (w *Writer) Write(f *frame.Frame) (bool, error) {
	return w.WriteContext(context.Background(), f)
}

// WriteContext is Write with a context that can cut short the wait for a
// busy device. It does not interrupt a submitted operation.
func (w *Writer) WriteContext(ctx context.Context, f *frame.Frame) (bool, error) {
	if !w.good {
		return false, ErrClosed
	}
	return w.writeOne(ctx, f)
}

func (w *Writer) writeOne(ctx context.Context, f *frame.Frame) (bool, error) {
	var surface *mfx.FrameSurface

	if !f.Empty() {
		if !f.IsBGR() || f.Size() != w.size {
			w.log.Errorw("MFX: invalid frame passed to encoder", "frame", f.String())
			w.reject("invalid_frame")
			return false, errors.Wrapf(ErrInvalidFrame, "%s, want %dx%d", f, w.size.Width, w.size.Height)
		}
		surface = w.pool.FreeSurface()
		if surface == nil {
			w.log.Error("MFX: Failed to get free surface")
			w.reject("no_surface")
			return false, errors.Wrapf(ErrNoFreeSurface, "all %d surfaces in use", w.pool.Len())
		}
		data := surface.Data
		if err := colorconv.BGRToNV12(data.Y, data.UV, data.Pitch, f); err != nil {
			return false, errors.NewAssertionErrorWithWrappedErrf(err, "surface does not fit a validated frame")
		}
		w.stats.FramesSubmitted++
		if m := w.opts.metrics; m != nil {
			m.FramesSubmitted.WithLabelValues(w.codec.String()).Inc()
		}
	}

	sp, st, err := w.submit(ctx, surface)
	if err != nil {
		w.log.Errorw("MFX: device busy retries ended", logger.FieldError, err)
		w.fail("busy")
		return false, errors.Mark(err, ErrDeviceBusy)
	}

	switch st {
	case mfx.ErrNone:
		return w.sync(sp)
	case mfx.ErrMoreData:
		w.log.Debug("ERR_MORE_DATA")
		return false, nil
	default:
		w.log.Errorw("MFX: Bad status", logger.FieldStatus, st.String())
		w.fail("status")
		return false, errors.Wrapf(ErrBadStatus, "EncodeFrameAsync: %s", st)
	}
}

// submit hands surface to the encoder, repeating the identical call for as
// long as the device reports busy and the retry policy allows.
func (w *Writer) submit(ctx context.Context, surface *mfx.FrameSurface) (mfx.SyncPoint, mfx.Status, error) {
	var (
		sp mfx.SyncPoint
		st mfx.Status
	)
	attempt := func() error {
		sp, st = w.encoder.EncodeFrameAsync(surface, w.bs.Stream)
		if st == mfx.WrnDeviceBusy {
			return errDeviceBusy
		}
		return nil
	}
	waiting := func(error, time.Duration) {
		w.stats.BusyRetries++
		if m := w.opts.metrics; m != nil {
			m.BusyRetries.WithLabelValues(w.codec.String()).Inc()
		}
		w.log.Debug("Waiting for device")
	}

	if err := backoff.RetryNotify(attempt, w.opts.retry.backOff(ctx), waiting); err != nil {
		return 0, st, errors.Wrapf(err, "after %d busy answers", w.stats.BusyRetries)
	}
	return sp, st, nil
}

// sync waits for sp and moves its output into the file.
func (w *Writer) sync(sp mfx.SyncPoint) (bool, error) {
	start := time.Now()
	st := w.session.SyncOperation(sp, w.opts.syncTimeout)
	if m := w.opts.metrics; m != nil {
		m.SyncDuration.WithLabelValues(w.codec.String()).Observe(time.Since(start).Seconds())
	}
	if st != mfx.ErrNone {
		w.log.Errorw("MFX: Sync error", logger.FieldStatus, st.String(), "timeout", w.opts.syncTimeout)
		w.fail("sync")
		return false, errors.Wrapf(ErrSync, "SyncOperation: %s", st)
	}

	n := len(w.bs.Stream.Payload())
	if err := w.bs.Write(); err != nil {
		w.log.Errorw("MFX: Failed to write bitstream", logger.FieldError, err)
		w.fail("write")
		return false, errors.Mark(err, ErrBitstreamWrite)
	}

	w.stats.UnitsWritten++
	w.stats.BytesWritten += int64(n)
	if m := w.opts.metrics; m != nil {
		codec := w.codec.String()
		m.UnitsWritten.WithLabelValues(codec).Inc()
		m.BytesWritten.WithLabelValues(codec).Add(float64(n))
		m.UnitSize.WithLabelValues(codec).Observe(float64(n))
	}
	w.log.Debugw("Write bitstream", logger.FieldBytes, n)
	return true, nil
}

func (w *Writer) reject(reason string) {
	w.stats.FramesRejected++
	if m := w.opts.metrics; m != nil {
		m.FramesRejected.WithLabelValues(w.codec.String(), reason).Inc()
	}
}

func (w *Writer) fail(reason string) {
	if m := w.opts.metrics; m != nil {
		m.EncodeFailures.WithLabelValues(w.codec.String(), reason).Inc()
	}
}
