// Package capture produces BGR frames for the recorder.
package capture

import (
	"context"

	"github.com/acentior/hw-video-writer/pkg/frame"
	"github.com/acentior/hw-video-writer/pkg/size"
)

// Source is a stream of frames of one size.
type Source interface {
	// Start begins capturing until ctx ends or Stop is called. The
	// channel returned by Frames is closed when capturing stops.
	Start(ctx context.Context)
	// Frames returns a channel that will receive the frame stream
	Frames() <-chan *frame.Frame
	// Stop sends a stop signal to the capture loop
	Stop()
	// Fps returns the frames per second the source aims for
	Fps() float64
	// Size of the produced frames
	Size() size.Size
}
