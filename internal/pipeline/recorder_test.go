package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/acentior/hw-video-writer/internal/capture"
	"github.com/acentior/hw-video-writer/internal/encoders"
	"github.com/acentior/hw-video-writer/internal/mfx"
	"github.com/acentior/hw-video-writer/internal/writer"
	"github.com/acentior/hw-video-writer/pkg/frame"
	"github.com/acentior/hw-video-writer/pkg/size"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

var frameSize = size.Size{Width: 64, Height: 48}

// sliceSource sends a fixed list of frames and then closes.
type sliceSource struct {
	list   []*frame.Frame
	frames chan *frame.Frame
	stop   chan struct{}
}

func newSliceSource(list ...*frame.Frame) *sliceSource {
	return &sliceSource{list: list, frames: make(chan *frame.Frame), stop: make(chan struct{})}
}

func (s *sliceSource) Start(ctx context.Context) {
	go func() {
		defer close(s.frames)
		for _, f := range s.list {
			select {
			case s.frames <- f:
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *sliceSource) Frames() <-chan *frame.Frame { return s.frames }
func (s *sliceSource) Stop()                       { close(s.stop) }
func (s *sliceSource) Fps() float64                { return 30 }
func (s *sliceSource) Size() size.Size             { return frameSize }

type RecorderSuit struct {
	suite.Suite
	sim *encoders.Simulated
	w   *writer.Writer
}

func (s *RecorderSuit) SetupTest() {
	s.sim = encoders.NewSimulated()
	s.sim.Latency = 2
}

func (s *RecorderSuit) open() *writer.Writer {
	w, err := writer.New(filepath.Join(s.T().TempDir(), "out.h264"), mfx.CCH264, 30, frameSize, s.sim)
	s.Require().NoError(err)
	return w
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuit))
}

func (s *RecorderSuit) Test_FrameLimit() {
	src, err := capture.NewPatternCapturer(frameSize, 0)
	s.Require().NoError(err)
	w := s.open()

	stats, err := NewRecorder(src, w).Run(context.Background(), 12)
	s.NoError(err)
	s.Equal(12, stats.FramesSubmitted)
	s.Equal(12, stats.UnitsWritten)
	s.Equal(2, stats.Drained)
	s.False(w.IsOpened())
}

func (s *RecorderSuit) Test_SourceEnds() {
	src := newSliceSource(
		capture.Bars(frameSize, 0),
		capture.Bars(frameSize, 1),
		frame.NewBGR(32, 32), // wrong size, skipped
		capture.Bars(frameSize, 2),
	)

	stats, err := NewRecorder(src, s.open()).Run(context.Background(), 0)
	s.NoError(err)
	s.Equal(3, stats.FramesSubmitted)
	s.Equal(1, stats.FramesRejected)
	s.Equal(3, stats.UnitsWritten)
}

func (s *RecorderSuit) Test_Cancelled() {
	src, err := capture.NewPatternCapturer(frameSize, 0)
	s.Require().NoError(err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := NewRecorder(src, s.open()).Run(ctx, 0)
	s.NoError(err)
	s.Equal(stats.FramesSubmitted, stats.UnitsWritten)
}

func (s *RecorderSuit) Test_WriterFailureStops() {
	s.sim.EncodeStatus = mfx.ErrDeviceFailed
	src := newSliceSource(capture.Bars(frameSize, 0), capture.Bars(frameSize, 1))

	_, err := NewRecorder(src, s.open()).Run(context.Background(), 0)
	s.True(errors.Is(err, writer.ErrBadStatus), err)
}
