// Package colorconv converts BGR frames into the NV12 layout hardware
// encoders consume.
package colorconv

import (
	"github.com/acentior/hw-video-writer/pkg/frame"
	"github.com/cockroachdb/errors"
)

// BT.601 limited range, 20 bit fixed point.
const (
	shift     = 20
	half      = 1 << (shift - 1)
	offset16  = 16 << shift
	offset128 = 128 << shift

	cRY = 269484
	cGY = 528482
	cBY = 102760

	cRU = -155188
	cGU = -305135
	cBU = 460324

	cRV = 460324
	cGV = -385875
	cBV = -74448
)

func clamp(v int) byte {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return byte(v)
}

// LumaBGR returns the limited range luma of one pixel.
func LumaBGR(b, g, r uint8) uint8 {
	return clamp((cRY*int(r) + cGY*int(g) + cBY*int(b) + offset16 + half) >> shift)
}

// ChromaBGR returns the U and V of one pixel.
func ChromaBGR(b, g, r uint8) (u, v uint8) {
	u = clamp((cRU*int(r) + cGU*int(g) + cBU*int(b) + offset128 + half) >> shift)
	v = clamp((cRV*int(r) + cGV*int(g) + cBV*int(b) + offset128 + half) >> shift)
	return u, v
}

// BGRToNV12 writes src into an NV12 destination whose rows are pitch bytes
// apart. dstY receives src.Rows rows of luma, dstUV src.Rows/2 rows of
// interleaved U,V where each pair is the mean of a 2x2 block. Bytes beyond
// src.Cols in each row are left untouched.
func BGRToNV12(dstY, dstUV []byte, pitch int, src *frame.Frame) error {
	if !src.IsBGR() {
		return errors.Newf("colorconv: source is not BGR: %s", src)
	}
	w, h := src.Cols, src.Rows
	if w%2 != 0 || h%2 != 0 {
		return errors.Newf("colorconv: odd frame size %dx%d", w, h)
	}
	if pitch < w {
		return errors.Newf("colorconv: pitch %d narrower than width %d", pitch, w)
	}
	if len(dstY) < (h-1)*pitch+w || len(dstUV) < (h/2-1)*pitch+w {
		return errors.Newf("colorconv: destination too small for %dx%d at pitch %d", w, h, pitch)
	}

	for y := 0; y < h; y += 2 {
		row0 := src.Row(y)
		row1 := src.Row(y + 1)
		y0 := dstY[y*pitch : y*pitch+w]
		y1 := dstY[(y+1)*pitch : (y+1)*pitch+w]
		uv := dstUV[(y/2)*pitch : (y/2)*pitch+w]

		for x := 0; x < w; x += 2 {
			i := 3 * x
			b00, g00, r00 := int(row0[i]), int(row0[i+1]), int(row0[i+2])
			b01, g01, r01 := int(row0[i+3]), int(row0[i+4]), int(row0[i+5])
			b10, g10, r10 := int(row1[i]), int(row1[i+1]), int(row1[i+2])
			b11, g11, r11 := int(row1[i+3]), int(row1[i+4]), int(row1[i+5])

			y0[x] = clamp((cRY*r00 + cGY*g00 + cBY*b00 + offset16 + half) >> shift)
			y0[x+1] = clamp((cRY*r01 + cGY*g01 + cBY*b01 + offset16 + half) >> shift)
			y1[x] = clamp((cRY*r10 + cGY*g10 + cBY*b10 + offset16 + half) >> shift)
			y1[x+1] = clamp((cRY*r11 + cGY*g11 + cBY*b11 + offset16 + half) >> shift)

			r := r00 + r01 + r10 + r11
			g := g00 + g01 + g10 + g11
			b := b00 + b01 + b10 + b11
			uv[x] = clamp((cRU*r + cGU*g + cBU*b + 4*offset128 + 4*half) >> (shift + 2))
			uv[x+1] = clamp((cRV*r + cGV*g + cBV*b + 4*offset128 + 4*half) >> (shift + 2))
		}
	}
	return nil
}
