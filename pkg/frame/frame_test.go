package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/acentior/hw-video-writer/pkg/size"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBGR(t *testing.T) {
	f := NewBGR(4, 2)
	assert.True(t, f.IsBGR())
	assert.Equal(t, size.Size{Width: 4, Height: 2}, f.Size())
	assert.Len(t, f.Pix, 24)
	assert.Equal(t, "dims/depth/cn=2/8/3, size=4x2", f.String())
}

func TestEmpty(t *testing.T) {
	var f *Frame
	assert.True(t, f.Empty())
	assert.True(t, (&Frame{}).Empty())
	assert.False(t, NewBGR(2, 2).Empty())
}

func TestIsBGR(t *testing.T) {
	f := NewBGR(4, 4)
	f.Channels = 4
	assert.False(t, f.IsBGR())

	f = NewBGR(4, 4)
	f.Depth = Depth16U
	assert.False(t, f.IsBGR())

	f = NewBGR(4, 4)
	f.Dims = 3
	assert.False(t, f.IsBGR())

	f = NewBGR(4, 4)
	f.Pix = f.Pix[:10]
	assert.False(t, f.IsBGR())
}

func TestFillAndImageRoundTrip(t *testing.T) {
	f := NewBGR(3, 2)
	f.Fill(10, 20, 30)
	assert.Equal(t, []byte{10, 20, 30, 10, 20, 30, 10, 20, 30}, f.Row(1))

	img := f.ToImage()
	assert.Equal(t, color.RGBA{R: 30, G: 20, B: 10, A: 0xff}, img.RGBAAt(2, 1))

	back := FromImage(img)
	assert.Equal(t, f.Pix, back.Pix)
}

func TestFromImageGeneric(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(1, 1, color.Gray{Y: 200})
	f := FromImage(img)
	require.True(t, f.IsBGR())
	assert.Equal(t, []byte{0, 0, 0, 200, 200, 200}, f.Row(1))
}

func TestFromImageSubImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(2, 2, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	sub := img.SubImage(image.Rect(2, 2, 4, 4))
	f := FromImage(sub)
	assert.Equal(t, size.Size{Width: 2, Height: 2}, f.Size())
	assert.Equal(t, []byte{3, 2, 1}, f.Row(0)[:3])
}

func TestResize(t *testing.T) {
	img := NewBGR(8, 8)
	img.Fill(0, 0, 255)
	out := Resize(img.ToImage(), size.Size{Width: 4, Height: 2})
	require.Equal(t, size.Size{Width: 4, Height: 2}, out.Size())
	px := out.Row(1)[:3]
	assert.LessOrEqual(t, px[0], uint8(2))
	assert.LessOrEqual(t, px[1], uint8(2))
	assert.GreaterOrEqual(t, px[2], uint8(253))

	same := Resize(img.ToImage(), size.Size{Width: 8, Height: 8})
	assert.Equal(t, img.Pix, same.Pix)
}
