// Package writer feeds BGR frames to an encode session and stores the
// compressed output as a raw elementary stream.
//
// A Writer owns its device, session, optional codec plugin, encoder, surface
// pool and output file. They are created in that order by New and released
// in reverse order by Close, after the encoder has been drained. A Writer is
// meant for one goroutine at a time.
package writer

import (
	"context"
	"math"

	"github.com/acentior/hw-video-writer/internal/logger"
	"github.com/acentior/hw-video-writer/internal/mfx"
	"github.com/acentior/hw-video-writer/pkg/size"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stats counts what a Writer has done so far.
type Stats struct {
	FramesSubmitted int
	FramesRejected  int
	UnitsWritten    int
	BytesWritten    int64
	BusyRetries     int
	Drained         int
}

type Writer struct {
	id     string
	path   string
	fourcc mfx.FourCC
	codec  mfx.CodecID
	size   size.Size
	opts   options
	log    *zap.SugaredLogger

	device  mfx.Device
	session mfx.Session
	plugin  mfx.Plugin
	encoder mfx.Encoder
	pool    *mfx.SurfacePool
	bs      *mfx.BitstreamFile
	params  mfx.VideoParam

	good   bool
	closed bool
	stats  Stats
}

// New opens a writer for filename. It either returns a fully usable writer
// or an error marked with one of the open sentinels (ErrInvalidFrameSize,
// ErrUnsupportedCodec, ...), in which case nothing stays allocated. The
// frame size and codec are checked before backend is touched.
func New(filename string, fourcc mfx.FourCC, fps float64, frameSize size.Size, backend mfx.Backend, opts ...Option) (*Writer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	w := &Writer{
		id:     uuid.New().String(),
		path:   filename,
		fourcc: fourcc,
		size:   frameSize,
		opts:   o,
	}
	w.log = o.logger.With(logger.FieldSession, w.id, logger.FieldFourCC, fourcc.String())

	if err := w.open(fps, backend); err != nil {
		w.log.Errorw("MFX: open failed", logger.FieldError, err)
		if relErr := w.release(); relErr != nil {
			w.log.Warnw("MFX: release after failed open", logger.FieldError, relErr)
		}
		if o.metrics != nil {
			o.metrics.OpenErrors.WithLabelValues(openReason(err)).Inc()
		}
		return nil, err
	}

	w.good = true
	if o.metrics != nil {
		o.metrics.OpenWriters.Inc()
	}
	w.log.Infow("MFX: writer opened",
		logger.FieldPath, filename,
		logger.FieldCodec, w.codec.String(),
		logger.FieldSize, frameSize.String(),
		"fps", fps,
		"kbps", w.params.TargetKbps)
	return w, nil
}

func (w *Writer) open(fps float64, backend mfx.Backend) error {
	if w.size.Empty() || !w.size.IsEven() {
		return errors.Wrapf(ErrInvalidFrameSize, "MFX: invalid frame size %dx%d", w.size.Width, w.size.Height)
	}
	if aligned := w.size.Align(32); aligned.Width > math.MaxUint16 || aligned.Height > math.MaxUint16 {
		return errors.Wrapf(ErrInvalidFrameSize, "MFX: frame size %dx%d too large", w.size.Width, w.size.Height)
	}
	codec, ok := mfx.CodecIDFromFourCC(w.fourcc)
	if !ok {
		return errors.WithHintf(errors.Wrapf(ErrUnsupportedCodec, "MFX: %s", w.fourcc),
			"supported fourcc codes: %v", mfx.SupportedFourCCs())
	}
	w.codec = codec
	if !(fps > 0) || math.IsInf(fps, 0) {
		return errors.Wrapf(ErrInvalidFrameRate, "MFX: fps %v", fps)
	}
	if backend == nil {
		return errors.Mark(errors.New("MFX: no encoder backend"), ErrSessionInit)
	}

	// Device and session
	var err error
	if w.device, err = backend.OpenDevice(); err != nil {
		return errors.Mark(errors.Wrapf(err, "MFX: open %s device", backend.Name()), ErrSessionInit)
	}
	if w.session, err = w.device.InitSession(); err != nil {
		return errors.Mark(errors.Wrap(err, "MFX: can't initialize session"), ErrSessionInit)
	}

	// Codec plugin, when the codec needs one
	if w.plugin, err = backend.LoadEncoderPlugin(w.session, codec); err != nil {
		return errors.Mark(errors.Wrapf(err, "MFX: LoadPlugin failed for codec %s (%s)", codec, w.fourcc), ErrPluginLoad)
	}

	// Encoder
	if w.encoder, err = backend.NewEncoder(w.session); err != nil {
		return errors.Mark(errors.Wrap(err, "MFX: create encoder"), ErrEncoderInit)
	}
	params := encodeParams(codec, fps, w.size)
	out, st := w.encoder.Query(&params)
	if st.IsError() {
		w.log.Debugw("MFX Query", logger.FieldStatus, st.String(), "params", params.String())
		return errors.Mark(errors.Wrap(st.Err("Query"), "MFX: query failed"), ErrQuery)
	}
	if out != nil {
		params = *out
	}
	w.log.Debugw("MFX Query", logger.FieldStatus, st.String(), "params", params.String())

	if w.pool, err = mfx.NewSurfacePool(w.encoder, &params); err != nil {
		return errors.Mark(errors.Wrap(err, "MFX: failed to create surface pool"), ErrSurfacePool)
	}

	st = w.encoder.Init(&params)
	w.log.Debugw("MFX Init", logger.FieldStatus, st.String(), "params", params.String())
	if st.IsError() {
		return errors.Mark(errors.Wrap(st.Err("Init"), "MFX: failed to init encoder"), ErrEncoderInit)
	}

	// Output bitstream, sized from what the encoder says a frame may need
	par, st := w.encoder.GetVideoParam()
	if st.IsError() || par == nil {
		return errors.AssertionFailedf("MFX GetVideoParam after successful init: %s", st)
	}
	w.log.Debugw("MFX GetVideoParam", logger.FieldStatus, st.String(), "requested_kb", par.BufferSizeInKB)
	w.params = *par
	if w.bs, err = mfx.OpenBitstreamFile(w.path, int(par.BufferSizeInKB)*1024*2); err != nil {
		return errors.Mark(errors.Wrapf(err, "MFX: failed to open output file %s", w.path), ErrOutputOpen)
	}
	return nil
}

// encodeParams derives the requested encoder configuration. The bitrate is
// area*fps/500 kbps, VBR.
func encodeParams(codec mfx.CodecID, fps float64, s size.Size) mfx.VideoParam {
	aligned := s.Align(32)
	return mfx.VideoParam{
		CodecID:           codec,
		TargetUsage:       mfx.TargetUsageBalanced,
		TargetKbps:        uint32(float64(s.Area()) * fps / 500),
		RateControlMethod: mfx.RateControlVBR,
		FrameInfo: mfx.FrameInfo{
			FourCC:        mfx.FourCCNV12,
			ChromaFormat:  mfx.ChromaFormatYUV420,
			PicStruct:     mfx.PicStructProgressive,
			FrameRateExtN: uint32(math.Round(fps * 1000)),
			FrameRateExtD: 1000,
			Width:         uint16(aligned.Width),
			Height:        uint16(aligned.Height),
			CropW:         uint16(s.Width),
			CropH:         uint16(s.Height),
		},
		IOPattern: mfx.IOPatternInSystemMemory,
	}
}

// release tears down whatever open managed to build, newest first.
func (w *Writer) release() error {
	var errs error
	if w.bs != nil {
		errs = errors.CombineErrors(errs, w.bs.Close())
		w.bs = nil
	}
	if w.pool != nil {
		errs = errors.CombineErrors(errs, w.pool.Close())
		w.pool = nil
	}
	if w.encoder != nil {
		errs = errors.CombineErrors(errs, w.encoder.Close())
		w.encoder = nil
	}
	if w.plugin != nil {
		errs = errors.CombineErrors(errs, w.plugin.Unload())
		w.plugin = nil
	}
	if w.session != nil {
		errs = errors.CombineErrors(errs, w.session.Close())
		w.session = nil
	}
	if w.device != nil {
		errs = errors.CombineErrors(errs, w.device.Close())
		w.device = nil
	}
	return errs
}

// Close drains the frames the encoder still holds into the output and
// releases every resource. Calling Close again is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.good {
		w.log.Debug("====== Drain bitstream...")
		for {
			written, _ := w.writeOne(context.Background(), nil)
			if !written {
				break
			}
			w.stats.Drained++
		}
		w.log.Debugw("====== Drain Finished", logger.FieldCount, w.stats.Drained)
		w.good = false
		if w.opts.metrics != nil {
			w.opts.metrics.OpenWriters.Dec()
		}
	}

	err := w.release()
	w.log.Infow("MFX: writer closed",
		"units", w.stats.UnitsWritten,
		logger.FieldBytes, w.stats.BytesWritten,
		"busy_retries", w.stats.BusyRetries)
	return err
}

func (w *Writer) IsOpened() bool { return w.good }

// GetProperty is not supported.
func (w *Writer) GetProperty(int) (float64, error) {
	w.log.Error("MFX: getProperty() is not implemented")
	return 0, errors.Wrap(ErrNotImplemented, "MFX: getProperty()")
}

// SetProperty is not supported.
func (w *Writer) SetProperty(int, float64) error {
	w.log.Error("MFX: setProperty() is not implemented")
	return errors.Wrap(ErrNotImplemented, "MFX: setProperty()")
}

// Params returns the parameters the encoder was initialized with.
func (w *Writer) Params() mfx.VideoParam { return w.params }

func (w *Writer) Stats() Stats { return w.stats }

func (w *Writer) Size() size.Size { return w.size }

func (w *Writer) Path() string { return w.path }
