package mfx

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// FrameData is the NV12 payload of a surface: a luma plane and an
// interleaved chroma plane that share one pitch.
type FrameData struct {
	Y     []byte
	UV    []byte
	Pitch int
}

// FrameSurface is a frame buffer visible to the encoder. An encoder that
// keeps a reference to a surface after EncodeFrameAsync returns must Lock it
// and Unlock it once it is done with the pixels.
type FrameSurface struct {
	Info FrameInfo
	Data FrameData

	locked atomic.Int32
}

func (s *FrameSurface) Lock()        { s.locked.Add(1) }
func (s *FrameSurface) Unlock()      { s.locked.Add(-1) }
func (s *FrameSurface) Locked() bool { return s.locked.Load() > 0 }

// SurfacePool owns the surfaces handed to one encoder.
type SurfacePool struct {
	surfaces []*FrameSurface
}

// NewSurfacePool asks the encoder how many surfaces it wants for params and
// allocates them in system memory.
func NewSurfacePool(enc Encoder, params *VideoParam) (*SurfacePool, error) {
	req, st := enc.QueryIOSurf(params)
	if st.IsError() {
		return nil, errors.Wrap(st.Err("QueryIOSurf"), "surface pool")
	}
	n := int(req.NumFrameSuggested)
	if n < int(req.NumFrameMin) {
		n = int(req.NumFrameMin)
	}
	if n <= 0 {
		return nil, errors.Newf("surface pool: encoder suggested %d surfaces", n)
	}

	info := params.FrameInfo
	width, height := int(info.Width), int(info.Height)
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return nil, errors.Newf("surface pool: bad surface size %dx%d", width, height)
	}

	pool := &SurfacePool{surfaces: make([]*FrameSurface, n)}
	for i := range pool.surfaces {
		pool.surfaces[i] = &FrameSurface{
			Info: info,
			Data: FrameData{
				Y:     make([]byte, width*height),
				UV:    make([]byte, width*height/2),
				Pitch: width,
			},
		}
	}
	return pool, nil
}

// FreeSurface returns the first surface nobody holds, or nil when every
// surface is locked.
func (p *SurfacePool) FreeSurface() *FrameSurface {
	for _, s := range p.surfaces {
		if !s.Locked() {
			return s
		}
	}
	return nil
}

func (p *SurfacePool) Len() int { return len(p.surfaces) }

// FreeCount returns how many surfaces are currently unlocked.
func (p *SurfacePool) FreeCount() int {
	n := 0
	for _, s := range p.surfaces {
		if !s.Locked() {
			n++
		}
	}
	return n
}

// Close drops the surfaces. The pool must not be used afterwards.
func (p *SurfacePool) Close() error {
	p.surfaces = nil
	return nil
}
