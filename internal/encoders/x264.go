//go:build cgo

package encoders

import (
	"bytes"
	"image"
	"math"

	"github.com/acentior/hw-video-writer/internal/mfx"
	"github.com/cockroachdb/errors"
	x264 "github.com/gen2brain/x264-go"
)

func init() {
	Register("x264", func() (mfx.Backend, error) { return &x264Backend{}, nil })
}

// x264Backend runs AVC encoding in software. It has no device to open and
// needs no plugin.
type x264Backend struct{}

func (x264Backend) Name() string { return "x264" }

func (x264Backend) OpenDevice() (mfx.Device, error) { return softwareDevice{}, nil }

func (x264Backend) LoadEncoderPlugin(mfx.Session, mfx.CodecID) (mfx.Plugin, error) {
	return nil, nil
}

func (x264Backend) NewEncoder(session mfx.Session) (mfx.Encoder, error) {
	ses, ok := session.(*opSession)
	if !ok {
		return nil, errors.Newf("x264 encoder needs a software session, got %T", session)
	}
	return &H264Encoder{session: ses, buffer: bytes.NewBuffer(make([]byte, 0))}, nil
}

type softwareDevice struct{}

func (softwareDevice) InitSession() (mfx.Session, error) { return newOpSession(), nil }
func (softwareDevice) Close() error                      { return nil }

// H264Encoder h264 encoder
type H264Encoder struct {
	session *opSession
	buffer  *bytes.Buffer
	encoder *x264.Encoder
	params  *mfx.VideoParam
	img     *image.YCbCr
	flushed bool
}

func (e *H264Encoder) Query(in *mfx.VideoParam) (*mfx.VideoParam, mfx.Status) {
	if in == nil {
		return nil, mfx.ErrNullPtr
	}
	if in.CodecID != mfx.CodecAVC {
		return nil, mfx.ErrUnsupported
	}
	fi := in.FrameInfo
	if fi.CropW == 0 || fi.CropH == 0 || fi.FrameRateExtD == 0 || fi.FourCC != mfx.FourCCNV12 {
		return nil, mfx.ErrInvalidVideoParam
	}
	out := *in
	// One raw 4:2:0 picture bounds a baseline access unit at sane settings.
	out.BufferSizeInKB = uint32((int(fi.CropW)*int(fi.CropH)*3/2 + 1023) / 1024)
	return &out, mfx.ErrNone
}

func (e *H264Encoder) QueryIOSurf(par *mfx.VideoParam) (mfx.FrameAllocRequest, mfx.Status) {
	return mfx.FrameAllocRequest{Info: par.FrameInfo, NumFrameMin: 1, NumFrameSuggested: 2}, mfx.ErrNone
}

func (e *H264Encoder) Init(par *mfx.VideoParam) mfx.Status {
	fi := par.FrameInfo
	opts := x264.Options{
		Width:     int(fi.CropW),
		Height:    int(fi.CropH),
		FrameRate: int(math.Max(1, math.Round(fi.FrameRate()))),
		Tune:      "zerolatency",
		Preset:    "veryfast",
		Profile:   "baseline",
		LogLevel:  x264.LogWarning,
	}
	encoder, err := x264.NewEncoder(e.buffer, &opts)
	if err != nil {
		return mfx.ErrInvalidVideoParam
	}
	p := *par
	e.params = &p
	e.encoder = encoder
	e.img = image.NewYCbCr(image.Rect(0, 0, opts.Width, opts.Height), image.YCbCrSubsampleRatio420)
	return mfx.ErrNone
}

func (e *H264Encoder) GetVideoParam() (*mfx.VideoParam, mfx.Status) {
	if e.params == nil {
		return nil, mfx.ErrNotInitialized
	}
	p := *e.params
	return &p, mfx.ErrNone
}

// EncodeFrameAsync encodes synchronously; the returned sync point only
// hands the payload over to the bitstream.
func (e *H264Encoder) EncodeFrameAsync(surface *mfx.FrameSurface, bs *mfx.Bitstream) (mfx.SyncPoint, mfx.Status) {
	if e.encoder == nil {
		return 0, mfx.ErrNotInitialized
	}
	if bs == nil {
		return 0, mfx.ErrNullPtr
	}

	if surface != nil {
		nv12ToYCbCr(surface, e.img)
		if err := e.encoder.Encode(e.img); err != nil {
			return 0, mfx.ErrUnknown
		}
	} else if e.buffer.Len() == 0 && !e.flushed {
		e.flushed = true
		if err := e.encoder.Flush(); err != nil {
			return 0, mfx.ErrUnknown
		}
	}

	if e.buffer.Len() == 0 {
		return 0, mfx.ErrMoreData
	}
	if int(bs.DataOffset)+int(bs.DataLength)+e.buffer.Len() > len(bs.Data) {
		return 0, mfx.ErrNotEnoughBuffer
	}
	payload := append([]byte(nil), e.buffer.Bytes()...)
	e.buffer.Reset()
	return e.session.submit(bs, payload, 0), mfx.ErrNone
}

// Close flushes and closes the inner x264 encoder
func (e *H264Encoder) Close() error {
	if e.encoder == nil {
		return nil
	}
	err := e.encoder.Close()
	e.encoder = nil
	return err
}

// nv12ToYCbCr copies the visible part of an NV12 surface into a planar
// 4:2:0 image of the same size.
func nv12ToYCbCr(s *mfx.FrameSurface, dst *image.YCbCr) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	pitch := s.Data.Pitch
	for y := 0; y < h; y++ {
		copy(dst.Y[y*dst.YStride:y*dst.YStride+w], s.Data.Y[y*pitch:y*pitch+w])
	}
	for y := 0; y < h/2; y++ {
		uv := s.Data.UV[y*pitch : y*pitch+w]
		cb := dst.Cb[y*dst.CStride : y*dst.CStride+w/2]
		cr := dst.Cr[y*dst.CStride : y*dst.CStride+w/2]
		for x := 0; x < w/2; x++ {
			cb[x] = uv[2*x]
			cr[x] = uv[2*x+1]
		}
	}
}
