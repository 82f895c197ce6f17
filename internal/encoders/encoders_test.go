package encoders

import (
	"bytes"
	"testing"
	"time"

	"github.com/acentior/hw-video-writer/internal/mfx"
	"github.com/stretchr/testify/suite"
)

type SimulatedSuit struct {
	suite.Suite
	sim     *Simulated
	device  mfx.Device
	session mfx.Session
	encoder mfx.Encoder
	pool    *mfx.SurfacePool
	bs      *mfx.Bitstream
}

func (s *SimulatedSuit) SetupTest() {
	s.sim = NewSimulated()
}

// run after each test
func (s *SimulatedSuit) TearDownTest() {
	if s.encoder != nil {
		s.NoError(s.encoder.Close())
	}
	if s.session != nil {
		s.NoError(s.session.Close())
	}
	if s.device != nil {
		s.NoError(s.device.Close())
	}
	s.encoder, s.session, s.device, s.pool = nil, nil, nil, nil
}

func TestSimulatedSuite(t *testing.T) {
	suite.Run(t, new(SimulatedSuit))
}

func params(codec mfx.CodecID) *mfx.VideoParam {
	return &mfx.VideoParam{
		CodecID: codec,
		FrameInfo: mfx.FrameInfo{
			FourCC:        mfx.FourCCNV12,
			FrameRateExtN: 30000,
			FrameRateExtD: 1000,
			Width:         64,
			Height:        64,
			CropW:         48,
			CropH:         32,
		},
	}
}

func (s *SimulatedSuit) open(codec mfx.CodecID) {
	var err error
	s.device, err = s.sim.OpenDevice()
	s.Require().NoError(err)
	s.session, err = s.device.InitSession()
	s.Require().NoError(err)
	s.encoder, err = s.sim.NewEncoder(s.session)
	s.Require().NoError(err)

	par, st := s.encoder.Query(params(codec))
	s.Require().Equal(mfx.ErrNone, st)
	s.pool, err = mfx.NewSurfacePool(s.encoder, par)
	s.Require().NoError(err)
	s.Require().Equal(mfx.ErrNone, s.encoder.Init(par))
	s.bs = mfx.NewBitstream(int(par.BufferSizeInKB) * 1024 * 2)
}

func (s *SimulatedSuit) encodeAndSync(surface *mfx.FrameSurface) mfx.Status {
	sp, st := s.encoder.EncodeFrameAsync(surface, s.bs)
	if st != mfx.ErrNone {
		return st
	}
	return s.session.SyncOperation(sp, time.Second)
}

func (s *SimulatedSuit) Test_QueryAdjustsBufferSize() {
	s.open(mfx.CodecAVC)
	par, st := s.encoder.GetVideoParam()
	s.Equal(mfx.ErrNone, st)
	s.Equal(uint32(3), par.BufferSizeInKB) // 48*32*1.5 = 2304 bytes
}

func (s *SimulatedSuit) Test_QueryRejects() {
	s.sim.QueryStatus = mfx.ErrUnsupported
	dev, _ := s.sim.OpenDevice()
	ses, _ := dev.InitSession()
	enc, err := s.sim.NewEncoder(ses)
	s.Require().NoError(err)
	_, st := enc.Query(params(mfx.CodecAVC))
	s.Equal(mfx.ErrUnsupported, st)

	s.sim.QueryStatus = mfx.ErrNone
	_, st = enc.Query(params(mfx.CodecID(42)))
	s.Equal(mfx.ErrUnsupported, st)

	bad := params(mfx.CodecAVC)
	bad.FrameInfo.CropW = 128
	_, st = enc.Query(bad)
	s.Equal(mfx.ErrInvalidVideoParam, st)
}

func (s *SimulatedSuit) Test_EncodeWithoutLatency() {
	s.open(mfx.CodecAVC)
	surface := s.pool.FreeSurface()
	s.Equal(mfx.ErrNone, s.encodeAndSync(surface))
	s.False(surface.Locked())
	s.True(bytes.HasPrefix(s.bs.Payload(), []byte{0, 0, 0, 1, 0x67}))

	s.Equal(mfx.ErrMoreData, s.encodeAndSync(nil))
}

func (s *SimulatedSuit) Test_LatencyBuffersAndDrains() {
	s.sim.Latency = 2
	s.open(mfx.CodecHEVC)

	first := s.pool.FreeSurface()
	s.Equal(mfx.ErrMoreData, s.encodeAndSync(first))
	s.True(first.Locked())
	second := s.pool.FreeSurface()
	s.NotSame(first, second)
	s.Equal(mfx.ErrMoreData, s.encodeAndSync(second))
	s.Equal(mfx.ErrNone, s.encodeAndSync(s.pool.FreeSurface()))
	s.False(first.Locked())

	s.Equal(mfx.ErrNone, s.encodeAndSync(nil))
	s.Equal(mfx.ErrNone, s.encodeAndSync(nil))
	s.Equal(mfx.ErrMoreData, s.encodeAndSync(nil))
	s.Equal(s.pool.Len(), s.pool.FreeCount())
}

func (s *SimulatedSuit) Test_BusyRepeatsBeforeAccept() {
	s.sim.BusyCount = 2
	s.open(mfx.CodecAVC)
	surface := s.pool.FreeSurface()

	_, st := s.encoder.EncodeFrameAsync(surface, s.bs)
	s.Equal(mfx.WrnDeviceBusy, st)
	_, st = s.encoder.EncodeFrameAsync(surface, s.bs)
	s.Equal(mfx.WrnDeviceBusy, st)
	_, st = s.encoder.EncodeFrameAsync(surface, s.bs)
	s.Equal(mfx.ErrNone, st)

	calls := s.sim.Calls()
	s.Len(calls, 3)
	for _, c := range calls {
		s.Same(surface, c.Surface)
		s.Same(s.bs, c.Bitstream)
	}
}

func (s *SimulatedSuit) Test_SyncTimeout() {
	s.sim.SyncDelay = 50 * time.Millisecond
	s.open(mfx.CodecAVC)
	sp, st := s.encoder.EncodeFrameAsync(s.pool.FreeSurface(), s.bs)
	s.Require().Equal(mfx.ErrNone, st)
	s.Equal(mfx.WrnInExecution, s.session.SyncOperation(sp, 5*time.Millisecond))
	s.Equal(mfx.ErrNullPtr, s.session.SyncOperation(sp, time.Second))
}

func (s *SimulatedSuit) Test_NotEnoughBuffer() {
	s.open(mfx.CodecMPEG2)
	s.bs = mfx.NewBitstream(8)
	surface := s.pool.FreeSurface()
	_, st := s.encoder.EncodeFrameAsync(surface, s.bs)
	s.Equal(mfx.ErrNotEnoughBuffer, st)
}

func (s *SimulatedSuit) Test_PluginOnlyForHEVC() {
	plugin, err := s.sim.LoadEncoderPlugin(nil, mfx.CodecAVC)
	s.NoError(err)
	s.Nil(plugin)

	plugin, err = s.sim.LoadEncoderPlugin(nil, mfx.CodecHEVC)
	s.NoError(err)
	s.Require().NotNil(plugin)
	s.NoError(plugin.Unload())
	s.Equal([]string{EventPluginLoad, EventPluginUnload}, s.sim.Events())

	s.sim.FailPlugin = true
	_, err = s.sim.LoadEncoderPlugin(nil, mfx.CodecHEVC)
	s.Error(err)
}

func (s *SimulatedSuit) Test_AccessUnitsPerCodec() {
	sample := bytes.Repeat([]byte{0x90}, 16)

	avc := accessUnit(mfx.CodecAVC, 1, sample)
	s.Equal([]byte{0, 0, 0, 1, 0x41, 0x9a}, avc[:6])

	hevc := accessUnit(mfx.CodecHEVC, 0, sample)
	s.Equal([]byte{0, 0, 0, 1, 0x40, 0x01}, hevc[:6])

	mpeg2 := accessUnit(mfx.CodecMPEG2, 3, sample)
	s.Equal([]byte{0, 0, 1, 0}, mpeg2[:4])
	s.Equal(1, bytes.Count(mpeg2, []byte{0, 0, 1, 0}))
}

func TestRegistry(t *testing.T) {
	svc := NewService()
	if !svc.Supports("simulated") {
		t.Fatalf("simulated backend not registered")
	}
	if svc.Supports("nvenc") {
		t.Fatalf("unexpected nvenc backend")
	}

	b, err := svc.NewBackend("simulated")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	if b.Name() != "simulated" {
		t.Errorf("Name() = %q", b.Name())
	}

	if _, err := svc.NewBackend("nvenc"); err == nil {
		t.Errorf("expected error for unknown backend")
	}
}
