package mfx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type allocEncoder struct {
	Encoder
	req FrameAllocRequest
	st  Status
}

func (e *allocEncoder) QueryIOSurf(*VideoParam) (FrameAllocRequest, Status) {
	return e.req, e.st
}

func nv12Params(w, h int) *VideoParam {
	return &VideoParam{
		CodecID: CodecAVC,
		FrameInfo: FrameInfo{
			FourCC: FourCCNV12,
			Width:  uint16(AlignUp(w, 32)),
			Height: uint16(AlignUp(h, 32)),
			CropW:  uint16(w),
			CropH:  uint16(h),
		},
	}
}

func TestCodecIDFromFourCC(t *testing.T) {
	tests := []struct {
		code string
		want CodecID
		ok   bool
	}{
		{"X264", CodecAVC, true},
		{"H264", CodecAVC, true},
		{"AVC", CodecAVC, true},
		{"H265", CodecHEVC, true},
		{"HEVC", CodecHEVC, true},
		{"MPG2", CodecMPEG2, true},
		{"MJPG", 0, false},
		{"VP80", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			cc, err := ParseFourCC(tt.code)
			require.NoError(t, err)
			got, ok := CodecIDFromFourCC(cc)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFourCC(t *testing.T) {
	cc, err := ParseFourCC("H264")
	require.NoError(t, err)
	assert.Equal(t, CCH264, cc)
	assert.Equal(t, "H264", cc.String())

	_, err = ParseFourCC("")
	assert.Error(t, err)
	_, err = ParseFourCC("TOOLONG")
	assert.Error(t, err)
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 32, AlignUp(2, 32))
	assert.Equal(t, 640, AlignUp(640, 32))
	assert.Equal(t, 1088, AlignUp(1080, 32))
	assert.Equal(t, 0, AlignUp(0, 32))
}

func TestStatus(t *testing.T) {
	assert.True(t, ErrMoreData.IsError())
	assert.True(t, WrnDeviceBusy.IsWarning())
	assert.NoError(t, ErrNone.Err("op"))
	assert.NoError(t, WrnInExecution.Err("op"))

	err := ErrDeviceLost.Err("EncodeFrameAsync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MFX_ERR_DEVICE_LOST")
	assert.Equal(t, ErrDeviceLost, StatusOf(err))
	assert.Equal(t, "MFX_STATUS(-99)", Status(-99).String())
}

func TestSurfacePool(t *testing.T) {
	enc := &allocEncoder{req: FrameAllocRequest{NumFrameMin: 2, NumFrameSuggested: 3}}
	pool, err := NewSurfacePool(enc, nv12Params(100, 50))
	require.NoError(t, err)
	require.Equal(t, 3, pool.Len())

	s := pool.FreeSurface()
	require.NotNil(t, s)
	assert.Equal(t, 128, s.Data.Pitch)
	assert.Len(t, s.Data.Y, 128*64)
	assert.Len(t, s.Data.UV, 128*32)

	s.Lock()
	assert.Equal(t, 2, pool.FreeCount())
	assert.NotSame(t, s, pool.FreeSurface())

	for i := 0; i < 2; i++ {
		pool.FreeSurface().Lock()
	}
	assert.Nil(t, pool.FreeSurface())

	s.Unlock()
	assert.Same(t, s, pool.FreeSurface())
}

func TestSurfacePoolRejectsEmptyRequest(t *testing.T) {
	_, err := NewSurfacePool(&allocEncoder{}, nv12Params(64, 64))
	assert.Error(t, err)

	_, err = NewSurfacePool(&allocEncoder{st: ErrUnsupported}, nv12Params(64, 64))
	assert.Error(t, err)
}

func TestBitstreamAppend(t *testing.T) {
	bs := NewBitstream(8)
	assert.Equal(t, ErrNone, bs.Append([]byte{1, 2, 3}))
	assert.Equal(t, ErrNone, bs.Append([]byte{4, 5}))
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, bs.Payload())
	assert.Equal(t, ErrNotEnoughBuffer, bs.Append([]byte{6, 7, 8, 9}))
	assert.Equal(t, uint32(5), bs.DataLength)

	bs.Reset()
	assert.Empty(t, bs.Payload())
}

func TestBitstreamFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.h264")
	bf, err := OpenBitstreamFile(path, 16)
	require.NoError(t, err)

	require.Equal(t, ErrNone, bf.Stream.Append([]byte("abc")))
	require.NoError(t, bf.Write())
	require.NoError(t, bf.Write())
	require.Equal(t, ErrNone, bf.Stream.Append([]byte("def")))
	require.NoError(t, bf.Write())
	assert.Equal(t, int64(6), bf.Written())
	require.NoError(t, bf.Close())
	require.NoError(t, bf.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(data))
}

func TestOpenBitstreamFileFailures(t *testing.T) {
	_, err := OpenBitstreamFile(filepath.Join(t.TempDir(), "missing", "out.h264"), 16)
	assert.Error(t, err)

	_, err = OpenBitstreamFile(filepath.Join(t.TempDir(), "out.h264"), 0)
	assert.Error(t, err)
}
