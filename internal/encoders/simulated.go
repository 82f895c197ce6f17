package encoders

import (
	"sync"
	"time"

	"github.com/acentior/hw-video-writer/internal/mfx"
	"github.com/cockroachdb/errors"
)

// Lifecycle events recorded by Simulated.
const (
	EventDeviceOpen   = "device.open"
	EventDeviceClose  = "device.close"
	EventSessionInit  = "session.init"
	EventSessionClose = "session.close"
	EventPluginLoad   = "plugin.load"
	EventPluginUnload = "plugin.unload"
	EventEncoderNew   = "encoder.new"
	EventEncoderQuery = "encoder.query"
	EventEncoderInit  = "encoder.init"
	EventEncoderClose = "encoder.close"
)

// EncodeCall records one EncodeFrameAsync invocation.
type EncodeCall struct {
	Surface   *mfx.FrameSurface
	Bitstream *mfx.Bitstream
	Status    mfx.Status
}

// Simulated is a device that behaves like a hardware encoder without
// touching hardware. It emits well formed Annex-B access units (or MPEG-2
// pictures) whose payload is sampled from the submitted surface, and every
// quirk of the real device can be scripted through its fields. Fields must
// be set before the first OpenDevice.
type Simulated struct {
	// Latency is how many frames the encoder buffers before producing output.
	Latency int
	// BusyCount is how many WrnDeviceBusy answers precede each accepted
	// submission.
	BusyCount int
	// Forced statuses; zero means normal behavior.
	QueryStatus  mfx.Status
	InitStatus   mfx.Status
	EncodeStatus mfx.Status
	SyncStatus   mfx.Status
	// SyncDelay is how long every operation takes to complete.
	SyncDelay time.Duration

	FailDevice  bool
	FailSession bool
	FailPlugin  bool
	FailEncoder bool
	FailPool    bool

	NumFrameSuggested uint16
	BufferSizeInKB    uint32

	mu     sync.Mutex
	events []string
	calls  []EncodeCall
}

// NewSimulated returns a device with no latency and no busy cycles.
func NewSimulated() *Simulated {
	return &Simulated{}
}

func init() {
	Register("simulated", func() (mfx.Backend, error) { return NewSimulated(), nil })
}

func (s *Simulated) record(event string) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

// Events returns the lifecycle events seen so far, oldest first.
func (s *Simulated) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// Calls returns every EncodeFrameAsync invocation, oldest first.
func (s *Simulated) Calls() []EncodeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EncodeCall(nil), s.calls...)
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) OpenDevice() (mfx.Device, error) {
	if s.FailDevice {
		return nil, errors.New("simulated device unavailable")
	}
	s.record(EventDeviceOpen)
	return &simDevice{sim: s}, nil
}

func (s *Simulated) LoadEncoderPlugin(_ mfx.Session, codec mfx.CodecID) (mfx.Plugin, error) {
	if codec != mfx.CodecHEVC {
		return nil, nil
	}
	if s.FailPlugin {
		return nil, errors.Newf("simulated plugin for %s failed to load", codec)
	}
	s.record(EventPluginLoad)
	return &simPlugin{sim: s}, nil
}

func (s *Simulated) NewEncoder(session mfx.Session) (mfx.Encoder, error) {
	ses, ok := session.(*opSession)
	if !ok {
		return nil, errors.Newf("simulated encoder needs a simulated session, got %T", session)
	}
	if s.FailEncoder {
		return nil, errors.New("simulated encoder unavailable")
	}
	s.record(EventEncoderNew)
	return &simEncoder{sim: s, session: ses, busyLeft: s.BusyCount}, nil
}

type simDevice struct {
	sim *Simulated
}

func (d *simDevice) InitSession() (mfx.Session, error) {
	if d.sim.FailSession {
		return nil, errors.New("simulated session init failed")
	}
	d.sim.record(EventSessionInit)
	ses := newOpSession()
	ses.forced = d.sim.SyncStatus
	ses.onClose = func() { d.sim.record(EventSessionClose) }
	return ses, nil
}

func (d *simDevice) Close() error {
	d.sim.record(EventDeviceClose)
	return nil
}

type simPlugin struct {
	sim *Simulated
}

func (p *simPlugin) Unload() error {
	p.sim.record(EventPluginUnload)
	return nil
}

type buffered struct {
	surface *mfx.FrameSurface
	sample  []byte
}

type simEncoder struct {
	sim     *Simulated
	session *opSession

	params   *mfx.VideoParam
	queue    []buffered
	busyLeft int
	frames   int
}

func (e *simEncoder) Query(in *mfx.VideoParam) (*mfx.VideoParam, mfx.Status) {
	e.sim.record(EventEncoderQuery)
	if e.sim.QueryStatus != mfx.ErrNone {
		return nil, e.sim.QueryStatus
	}
	if in == nil {
		return nil, mfx.ErrNullPtr
	}
	switch in.CodecID {
	case mfx.CodecAVC, mfx.CodecHEVC, mfx.CodecMPEG2:
	default:
		return nil, mfx.ErrUnsupported
	}
	fi := in.FrameInfo
	if fi.CropW == 0 || fi.CropH == 0 || fi.CropW > fi.Width || fi.CropH > fi.Height || fi.FrameRateExtD == 0 {
		return nil, mfx.ErrInvalidVideoParam
	}

	out := *in
	if e.sim.BufferSizeInKB > 0 {
		out.BufferSizeInKB = e.sim.BufferSizeInKB
	} else {
		out.BufferSizeInKB = uint32((int(fi.CropW)*int(fi.CropH)*3/2 + 1023) / 1024)
	}
	return &out, mfx.ErrNone
}

func (e *simEncoder) QueryIOSurf(par *mfx.VideoParam) (mfx.FrameAllocRequest, mfx.Status) {
	if e.sim.FailPool {
		return mfx.FrameAllocRequest{}, mfx.ErrUnsupported
	}
	n := e.sim.NumFrameSuggested
	if n == 0 {
		n = uint16(e.sim.Latency + 2)
	}
	return mfx.FrameAllocRequest{Info: par.FrameInfo, NumFrameMin: 1, NumFrameSuggested: n}, mfx.ErrNone
}

func (e *simEncoder) Init(par *mfx.VideoParam) mfx.Status {
	e.sim.record(EventEncoderInit)
	if e.sim.InitStatus != mfx.ErrNone {
		return e.sim.InitStatus
	}
	p := *par
	e.params = &p
	return mfx.ErrNone
}

func (e *simEncoder) GetVideoParam() (*mfx.VideoParam, mfx.Status) {
	if e.params == nil {
		return nil, mfx.ErrNotInitialized
	}
	p := *e.params
	return &p, mfx.ErrNone
}

func (e *simEncoder) EncodeFrameAsync(surface *mfx.FrameSurface, bs *mfx.Bitstream) (mfx.SyncPoint, mfx.Status) {
	sp, st := e.encode(surface, bs)
	e.sim.mu.Lock()
	e.sim.calls = append(e.sim.calls, EncodeCall{Surface: surface, Bitstream: bs, Status: st})
	e.sim.mu.Unlock()
	return sp, st
}

func (e *simEncoder) encode(surface *mfx.FrameSurface, bs *mfx.Bitstream) (mfx.SyncPoint, mfx.Status) {
	if e.params == nil {
		return 0, mfx.ErrNotInitialized
	}
	if bs == nil {
		return 0, mfx.ErrNullPtr
	}
	if e.busyLeft > 0 {
		e.busyLeft--
		return 0, mfx.WrnDeviceBusy
	}
	e.busyLeft = e.sim.BusyCount
	if e.sim.EncodeStatus != mfx.ErrNone {
		return 0, e.sim.EncodeStatus
	}

	if surface != nil {
		surface.Lock()
		e.queue = append(e.queue, buffered{surface: surface, sample: samplePicture(surface)})
		if len(e.queue) <= e.sim.Latency {
			return 0, mfx.ErrMoreData
		}
	} else if len(e.queue) == 0 {
		return 0, mfx.ErrMoreData
	}

	head := e.queue[0]
	au := accessUnit(e.params.CodecID, e.frames, head.sample)
	if int(bs.DataOffset)+int(bs.DataLength)+len(au) > len(bs.Data) {
		return 0, mfx.ErrNotEnoughBuffer
	}
	e.queue = e.queue[1:]
	head.surface.Unlock()
	e.frames++
	return e.session.submit(bs, au, e.sim.SyncDelay), mfx.ErrNone
}

func (e *simEncoder) Close() error {
	for _, b := range e.queue {
		b.surface.Unlock()
	}
	e.queue = nil
	e.params = nil
	e.sim.record(EventEncoderClose)
	return nil
}

// samplePicture takes 16 luma samples spread over the visible picture. The
// high bit is forced on so payload bytes never form a start code.
func samplePicture(s *mfx.FrameSurface) []byte {
	const n = 16
	w, h := int(s.Info.CropW), int(s.Info.CropH)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		x := (i * w) / n
		y := (i * h) / n
		out[i] = s.Data.Y[y*s.Data.Pitch+x] | 0x80
	}
	return out
}

var startCode = []byte{0x00, 0x00, 0x00, 0x01}

func nal(header []byte, body []byte) []byte {
	out := make([]byte, 0, len(startCode)+len(header)+len(body)+1)
	out = append(out, startCode...)
	out = append(out, header...)
	out = append(out, body...)
	return append(out, 0x80)
}

// accessUnit builds one coded picture. Parameter sets precede the first
// picture, which is the only key frame.
func accessUnit(codec mfx.CodecID, index int, sample []byte) []byte {
	var au []byte
	key := index == 0
	switch codec {
	case mfx.CodecAVC:
		if key {
			au = append(au, nal([]byte{0x67}, []byte{0x42, 0xc0, 0x1f})...) // SPS
			au = append(au, nal([]byte{0x68}, []byte{0xce, 0x3c})...)       // PPS
			au = append(au, nal([]byte{0x65, 0x88}, sample)...)             // IDR slice, first_mb 0
		} else {
			au = append(au, nal([]byte{0x41, 0x9a}, sample)...) // non-IDR slice, first_mb 0
		}
	case mfx.CodecHEVC:
		if key {
			au = append(au, nal([]byte{0x40, 0x01}, []byte{0x8c})...) // VPS
			au = append(au, nal([]byte{0x42, 0x01}, []byte{0x81})...) // SPS
			au = append(au, nal([]byte{0x44, 0x01}, []byte{0xc1})...) // PPS
			au = append(au, nal([]byte{0x26, 0x01, 0xaf}, sample)...) // IDR_W_RADL, first slice
		} else {
			au = append(au, nal([]byte{0x02, 0x01, 0xd0}, sample)...) // TRAIL_R, first slice
		}
	case mfx.CodecMPEG2:
		if key {
			au = append(au, 0x00, 0x00, 0x01, 0xb3, 0x14, 0x00, 0xf0, 0x13) // sequence header
		}
		codingType := byte(0x10) // P
		if key {
			codingType = 0x08 // I
		}
		au = append(au, 0x00, 0x00, 0x01, 0x00, byte(index>>2), byte(index<<6)|codingType) // picture
		au = append(au, 0x00, 0x00, 0x01, 0x01)                                           // slice
		au = append(au, sample...)
	}
	return au
}
