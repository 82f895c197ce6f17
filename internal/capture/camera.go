package capture

import (
	"context"
	"sync"

	"github.com/acentior/hw-video-writer/internal/logger"
	"github.com/acentior/hw-video-writer/pkg/frame"
	"github.com/acentior/hw-video-writer/pkg/size"
	"github.com/cockroachdb/errors"
	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/camera" // registers the camera adapter
	mdframe "github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	"go.uber.org/zap"
)

// CameraCapturer reads the first video track of the default camera and
// scales every picture to the requested size.
type CameraCapturer struct {
	fps         float64
	frames      chan *frame.Frame
	track       mediadevices.Track
	frameReader video.Reader
	size        size.Size
	log         *zap.SugaredLogger

	start sync.Once
	stop  sync.Once
	done  chan struct{}
}

func CreateCameraCapturer(width int, height int, fps float64) (*CameraCapturer, error) {
	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(mtc *mediadevices.MediaTrackConstraints) {
			mtc.FrameFormat = prop.FrameFormatOneOf{mdframe.FormatI420, mdframe.FormatYUY2}
			mtc.Width = prop.Int(width)
			mtc.Height = prop.Int(height)
			mtc.FrameRate = prop.Float(fps)
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "open camera")
	}

	videoTracks := stream.GetVideoTracks()
	if len(videoTracks) < 1 {
		return nil, errors.New("failed to get proper video track from camera")
	}
	vTrack, ok := videoTracks[0].(*mediadevices.VideoTrack)
	if !ok {
		return nil, errors.Newf("unexpected camera track %T", videoTracks[0])
	}

	return &CameraCapturer{
		fps:         fps,
		frames:      make(chan *frame.Frame),
		track:       vTrack,
		frameReader: vTrack.NewReader(true),
		size:        size.Size{Width: width, Height: height},
		log:         logger.ComponentLogger("capture.camera"),
		done:        make(chan struct{}),
	}, nil
}

// Start initiates the camera capture loop
func (cc *CameraCapturer) Start(ctx context.Context) {
	cc.start.Do(func() {
		go func() {
			select {
			case <-ctx.Done():
				cc.Stop()
			case <-cc.done:
			}
		}()
		go cc.run()
	})
}

func (cc *CameraCapturer) run() {
	defer close(cc.frames)
	for {
		img, release, err := cc.frameReader.Read()
		if err != nil {
			select {
			case <-cc.done:
			default:
				cc.log.Errorw("camera read failed", logger.FieldError, err)
			}
			return
		}
		f := frame.Resize(img, cc.size)
		release()

		select {
		case cc.frames <- f:
		case <-cc.done:
			return
		}
	}
}

func (cc *CameraCapturer) Frames() <-chan *frame.Frame {
	return cc.frames
}

// Stop ends the capture loop and releases the camera. Closing the track
// unblocks a pending read.
func (cc *CameraCapturer) Stop() {
	cc.stop.Do(func() {
		close(cc.done)
		if err := cc.track.Close(); err != nil {
			cc.log.Warnw("close camera track", logger.FieldError, err)
		}
	})
}

func (cc *CameraCapturer) Fps() float64 {
	return cc.fps
}

// Get size (width and height of the captured image)
func (cc *CameraCapturer) Size() size.Size {
	return cc.size
}
