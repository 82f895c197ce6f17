package mfx

import "time"

// SyncPoint identifies one asynchronous encode operation.
type SyncPoint uint64

// Backend opens devices and builds encoders on top of them. One backend
// value may serve many writers.
type Backend interface {
	Name() string
	OpenDevice() (Device, error)
	// LoadEncoderPlugin returns a nil Plugin and a nil error when codec
	// needs no plugin.
	LoadEncoderPlugin(s Session, codec CodecID) (Plugin, error)
	NewEncoder(s Session) (Encoder, error)
}

// Device is an opened acceleration device.
type Device interface {
	InitSession() (Session, error)
	Close() error
}

// Session is the context encode operations run in.
type Session interface {
	// SyncOperation waits up to timeout for sp to complete. On ErrNone the
	// operation's output has been placed in the bitstream it was submitted
	// with. A timeout is reported as WrnInExecution.
	SyncOperation(sp SyncPoint, timeout time.Duration) Status
	Close() error
}

// Plugin is a codec extension loaded into a session.
type Plugin interface {
	Unload() error
}

// Encoder is an asynchronous encoder bound to a session.
type Encoder interface {
	// Query validates in against the hardware and returns the parameters
	// the hardware would use instead.
	Query(in *VideoParam) (*VideoParam, Status)
	QueryIOSurf(par *VideoParam) (FrameAllocRequest, Status)
	Init(par *VideoParam) Status
	GetVideoParam() (*VideoParam, Status)
	// EncodeFrameAsync submits surface for encoding, or drains buffered
	// frames when surface is nil. ErrMoreData means no output is ready,
	// WrnDeviceBusy means the call must be repeated unchanged.
	EncodeFrameAsync(surface *FrameSurface, bs *Bitstream) (SyncPoint, Status)
	Close() error
}
