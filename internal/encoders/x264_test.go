//go:build cgo

package encoders

import (
	"bytes"
	"testing"
	"time"

	"github.com/acentior/hw-video-writer/internal/mfx"
	"github.com/stretchr/testify/require"
)

func TestX264EncodesAVC(t *testing.T) {
	backend, err := NewService().NewBackend("x264")
	require.NoError(t, err)

	dev, err := backend.OpenDevice()
	require.NoError(t, err)
	defer dev.Close()
	ses, err := dev.InitSession()
	require.NoError(t, err)
	defer ses.Close()
	enc, err := backend.NewEncoder(ses)
	require.NoError(t, err)
	defer enc.Close()

	_, st := enc.Query(params(mfx.CodecHEVC))
	require.Equal(t, mfx.ErrUnsupported, st)

	par, st := enc.Query(params(mfx.CodecAVC))
	require.Equal(t, mfx.ErrNone, st)
	pool, err := mfx.NewSurfacePool(enc, par)
	require.NoError(t, err)
	require.Equal(t, mfx.ErrNone, enc.Init(par))
	bs := mfx.NewBitstream(int(par.BufferSizeInKB) * 1024 * 2)

	units := 0
	for i := 0; i < 5; i++ {
		surface := pool.FreeSurface()
		require.NotNil(t, surface)
		for j := range surface.Data.Y {
			surface.Data.Y[j] = byte(16 + i*10)
		}
		for j := range surface.Data.UV {
			surface.Data.UV[j] = 128
		}
		sp, st := enc.EncodeFrameAsync(surface, bs)
		if st == mfx.ErrMoreData {
			continue
		}
		require.Equal(t, mfx.ErrNone, st)
		require.Equal(t, mfx.ErrNone, ses.SyncOperation(sp, time.Second))
		units++
	}
	for {
		sp, st := enc.EncodeFrameAsync(nil, bs)
		if st == mfx.ErrMoreData {
			break
		}
		require.Equal(t, mfx.ErrNone, st)
		require.Equal(t, mfx.ErrNone, ses.SyncOperation(sp, time.Second))
		units++
	}

	require.Positive(t, units)
	payload := bs.Payload()
	require.True(t, bytes.HasPrefix(payload, []byte{0, 0, 0, 1}) || bytes.HasPrefix(payload, []byte{0, 0, 1}))
}
