package writer

import "github.com/cockroachdb/errors"

// Open failures. New marks the error it returns with exactly one of these.
var (
	ErrInvalidFrameSize = errors.New("frame size must be even in both dimensions")
	ErrInvalidFrameRate = errors.New("frame rate must be positive")
	ErrUnsupportedCodec = errors.New("unsupported fourcc")
	ErrSessionInit      = errors.New("can't initialize session")
	ErrPluginLoad       = errors.New("encoder plugin failed to load")
	ErrQuery            = errors.New("encoder rejected parameters")
	ErrSurfacePool      = errors.New("failed to create surface pool")
	ErrEncoderInit      = errors.New("failed to init encoder")
	ErrOutputOpen       = errors.New("failed to open output file")
)

// Write failures.
var (
	ErrInvalidFrame   = errors.New("invalid frame passed to encoder")
	ErrNoFreeSurface  = errors.New("failed to get free surface")
	ErrDeviceBusy     = errors.New("device stayed busy")
	ErrBadStatus      = errors.New("bad encoder status")
	ErrSync           = errors.New("sync error")
	ErrBitstreamWrite = errors.New("failed to write bitstream")
	ErrClosed         = errors.New("writer is closed")
)

var ErrNotImplemented = errors.New("not implemented")

// openReason names the open failure for metrics labels.
func openReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidFrameSize):
		return "frame_size"
	case errors.Is(err, ErrInvalidFrameRate):
		return "frame_rate"
	case errors.Is(err, ErrUnsupportedCodec):
		return "codec"
	case errors.Is(err, ErrSessionInit):
		return "session"
	case errors.Is(err, ErrPluginLoad):
		return "plugin"
	case errors.Is(err, ErrQuery):
		return "query"
	case errors.Is(err, ErrSurfacePool):
		return "pool"
	case errors.Is(err, ErrEncoderInit):
		return "init"
	case errors.Is(err, ErrOutputOpen):
		return "output"
	}
	return "other"
}
