package capture

import (
	"context"
	"sync"

	"github.com/acentior/hw-video-writer/internal/logger"
	"github.com/acentior/hw-video-writer/pkg/frame"
	"github.com/acentior/hw-video-writer/pkg/size"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// barColors are the classic eight bars, BGR order.
var barColors = [8][3]uint8{
	{255, 255, 255}, // white
	{0, 255, 255},   // yellow
	{255, 255, 0},   // cyan
	{0, 255, 0},     // green
	{255, 0, 255},   // magenta
	{0, 0, 255},     // red
	{255, 0, 0},     // blue
	{0, 0, 0},       // black
}

// PatternCapturer generates color bars that scroll to the left by a few
// pixels per frame. Frames are paced at fps; a zero fps produces them as
// fast as the consumer reads.
type PatternCapturer struct {
	fps     float64
	size    size.Size
	frames  chan *frame.Frame
	limiter *rate.Limiter
	log     *zap.SugaredLogger

	start  sync.Once
	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewPatternCapturer(frameSize size.Size, fps float64) (*PatternCapturer, error) {
	if frameSize.Empty() {
		return nil, errors.Newf("pattern size %s is empty", frameSize)
	}
	if fps < 0 {
		return nil, errors.Newf("pattern fps %v is negative", fps)
	}
	limit := rate.Inf
	if fps > 0 {
		limit = rate.Limit(fps)
	}
	return &PatternCapturer{
		fps:     fps,
		size:    frameSize,
		frames:  make(chan *frame.Frame),
		limiter: rate.NewLimiter(limit, 1),
		log:     logger.ComponentLogger("capture.pattern"),
	}, nil
}

func (pc *PatternCapturer) Start(ctx context.Context) {
	pc.start.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		pc.mu.Lock()
		pc.cancel = cancel
		pc.mu.Unlock()
		go pc.run(ctx)
	})
}

func (pc *PatternCapturer) run(ctx context.Context) {
	defer close(pc.frames)
	for i := 0; ; i++ {
		if err := pc.limiter.Wait(ctx); err != nil {
			pc.log.Debugw("pattern stopped", logger.FieldCount, i)
			return
		}
		select {
		case pc.frames <- Bars(pc.size, i):
		case <-ctx.Done():
			pc.log.Debugw("pattern stopped", logger.FieldCount, i)
			return
		}
	}
}

func (pc *PatternCapturer) Frames() <-chan *frame.Frame {
	return pc.frames
}

func (pc *PatternCapturer) Stop() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.cancel != nil {
		pc.cancel()
	}
}

func (pc *PatternCapturer) Fps() float64 {
	return pc.fps
}

func (pc *PatternCapturer) Size() size.Size {
	return pc.size
}

// Bars draws frame number n of the scrolling color bars.
func Bars(s size.Size, n int) *frame.Frame {
	f := frame.NewBGR(s.Width, s.Height)
	barWidth := (s.Width + len(barColors) - 1) / len(barColors)
	shift := n * 4
	for y := 0; y < f.Rows; y++ {
		row := f.Row(y)
		for x := 0; x < f.Cols; x++ {
			c := barColors[((x+shift)/barWidth)%len(barColors)]
			row[3*x], row[3*x+1], row[3*x+2] = c[0], c[1], c[2]
		}
	}
	return f
}
