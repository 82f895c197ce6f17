// Package frame holds interleaved BGR pictures as handed to video writers.
package frame

import (
	"fmt"
	"image"
	"image/color"

	"github.com/acentior/hw-video-writer/pkg/size"
	"github.com/nfnt/resize"
)

// Depth is the bit depth of one channel.
type Depth int

const (
	Depth8U  Depth = 8
	Depth16U Depth = 16
	Depth32F Depth = 32
)

// Frame is a 2-D matrix of interleaved channels, stored row by row with
// Stride bytes between rows. A nil or zero-sized frame is empty.
type Frame struct {
	Pix      []byte
	Stride   int
	Rows     int
	Cols     int
	Channels int
	Depth    Depth
	Dims     int
}

// NewBGR allocates a zeroed 8-bit, 3-channel frame.
func NewBGR(width, height int) *Frame {
	return &Frame{
		Pix:      make([]byte, width*height*3),
		Stride:   width * 3,
		Rows:     height,
		Cols:     width,
		Channels: 3,
		Depth:    Depth8U,
		Dims:     2,
	}
}

func (f *Frame) Empty() bool {
	return f == nil || len(f.Pix) == 0 || f.Rows == 0 || f.Cols == 0
}

func (f *Frame) Size() size.Size {
	if f == nil {
		return size.Size{}
	}
	return size.Size{Width: f.Cols, Height: f.Rows}
}

func (f *Frame) String() string {
	if f == nil {
		return "frame(nil)"
	}
	return fmt.Sprintf("dims/depth/cn=%d/%d/%d, size=%dx%d", f.Dims, f.Depth, f.Channels, f.Cols, f.Rows)
}

// IsBGR reports whether f is a well formed 2-D, 8-bit, 3-channel frame.
func (f *Frame) IsBGR() bool {
	if f.Empty() || f.Dims != 2 || f.Depth != Depth8U || f.Channels != 3 {
		return false
	}
	return f.Stride >= f.Cols*3 && len(f.Pix) >= (f.Rows-1)*f.Stride+f.Cols*3
}

// Row returns the pixels of row y.
func (f *Frame) Row(y int) []byte {
	off := y * f.Stride
	return f.Pix[off : off+f.Cols*f.Channels]
}

// Fill paints every pixel of a BGR frame with one color.
func (f *Frame) Fill(b, g, r uint8) {
	for y := 0; y < f.Rows; y++ {
		row := f.Row(y)
		for x := 0; x+2 < len(row); x += 3 {
			row[x], row[x+1], row[x+2] = b, g, r
		}
	}
}

// FromImage copies img into a new BGR frame. Alpha is dropped.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewBGR(b.Dx(), b.Dy())
	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < f.Rows; y++ {
			in := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			out := f.Row(y)
			for x := 0; x < f.Cols; x++ {
				out[3*x], out[3*x+1], out[3*x+2] = in[4*x+2], in[4*x+1], in[4*x]
			}
		}
	default:
		for y := 0; y < f.Rows; y++ {
			out := f.Row(y)
			for x := 0; x < f.Cols; x++ {
				c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
				out[3*x], out[3*x+1], out[3*x+2] = c.B, c.G, c.R
			}
		}
	}
	return f
}

// ToImage returns an RGBA copy of a BGR frame.
func (f *Frame) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Cols, f.Rows))
	for y := 0; y < f.Rows; y++ {
		in := f.Row(y)
		out := img.Pix[y*img.Stride:]
		for x := 0; x < f.Cols; x++ {
			out[4*x], out[4*x+1], out[4*x+2], out[4*x+3] = in[3*x+2], in[3*x+1], in[3*x], 0xff
		}
	}
	return img
}

// Resize scales img to target and converts it to BGR. Images already at the
// target size are only converted.
func Resize(img image.Image, target size.Size) *Frame {
	b := img.Bounds()
	if b.Dx() == target.Width && b.Dy() == target.Height {
		return FromImage(img)
	}
	return FromImage(resize.Resize(uint(target.Width), uint(target.Height), img, resize.Bilinear))
}
