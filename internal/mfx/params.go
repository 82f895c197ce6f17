package mfx

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// FourCC is a four character code packed little-endian, first char in the
// low byte.
type FourCC uint32

// MakeFourCC packs four characters into a FourCC.
func MakeFourCC(a, b, c, d byte) FourCC {
	return FourCC(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// ParseFourCC accepts up to four characters. Shorter codes are padded with
// spaces, so "AVC" and "AVC " are the same code.
func ParseFourCC(s string) (FourCC, error) {
	if len(s) == 0 || len(s) > 4 {
		return 0, errors.Newf("fourcc %q must be 1 to 4 characters", s)
	}
	padded := s + strings.Repeat(" ", 4-len(s))
	return MakeFourCC(padded[0], padded[1], padded[2], padded[3]), nil
}

func (f FourCC) String() string {
	b := []byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	for i, c := range b {
		if c < 0x20 || c > 0x7e {
			b[i] = '?'
		}
	}
	return string(b)
}

var (
	CCX264 = MakeFourCC('X', '2', '6', '4')
	CCH264 = MakeFourCC('H', '2', '6', '4')
	CCAVC  = MakeFourCC('A', 'V', 'C', ' ')
	CCH265 = MakeFourCC('H', '2', '6', '5')
	CCHEVC = MakeFourCC('H', 'E', 'V', 'C')
	CCMPG2 = MakeFourCC('M', 'P', 'G', '2')

	FourCCNV12 = MakeFourCC('N', 'V', '1', '2')
)

// CodecID identifies the compression standard of an encoder.
type CodecID uint32

var (
	CodecAVC   = CodecID(MakeFourCC('A', 'V', 'C', ' '))
	CodecHEVC  = CodecID(MakeFourCC('H', 'E', 'V', 'C'))
	CodecMPEG2 = CodecID(MakeFourCC('M', 'P', 'G', '2'))
)

func (c CodecID) String() string {
	switch c {
	case CodecAVC:
		return "AVC"
	case CodecHEVC:
		return "HEVC"
	case CodecMPEG2:
		return "MPEG2"
	}
	return fmt.Sprintf("codec(%s)", FourCC(c))
}

// CodecIDFromFourCC maps a writer fourcc onto the codec that encodes it.
func CodecIDFromFourCC(cc FourCC) (CodecID, bool) {
	switch cc {
	case CCX264, CCH264, CCAVC:
		return CodecAVC, true
	case CCH265, CCHEVC:
		return CodecHEVC, true
	case CCMPG2:
		return CodecMPEG2, true
	}
	return 0, false
}

// SupportedFourCCs lists every accepted code in a stable order.
func SupportedFourCCs() []FourCC {
	return []FourCC{CCX264, CCH264, CCAVC, CCH265, CCHEVC, CCMPG2}
}

type TargetUsage uint16

const (
	TargetUsageBestQuality TargetUsage = 1
	TargetUsageBalanced    TargetUsage = 4
	TargetUsageBestSpeed   TargetUsage = 7
)

type RateControlMethod uint16

const (
	RateControlCBR RateControlMethod = 1
	RateControlVBR RateControlMethod = 2
	RateControlCQP RateControlMethod = 3
)

type ChromaFormat uint16

const (
	ChromaFormatMonochrome ChromaFormat = 0
	ChromaFormatYUV420     ChromaFormat = 1
	ChromaFormatYUV422     ChromaFormat = 2
	ChromaFormatYUV444     ChromaFormat = 3
)

type PicStruct uint16

const (
	PicStructUnknown     PicStruct = 0x00
	PicStructProgressive PicStruct = 0x01
)

type IOPattern uint16

const (
	IOPatternInVideoMemory  IOPattern = 0x01
	IOPatternInSystemMemory IOPattern = 0x02
)

// FrameInfo describes the geometry and layout of the frames fed to an
// encoder. Width and Height are the allocated (aligned) size, the crop
// rectangle is the visible picture.
type FrameInfo struct {
	FourCC        FourCC
	ChromaFormat  ChromaFormat
	PicStruct     PicStruct
	FrameRateExtN uint32
	FrameRateExtD uint32
	Width         uint16
	Height        uint16
	CropX         uint16
	CropY         uint16
	CropW         uint16
	CropH         uint16
}

// FrameRate returns the frame rate as a float.
func (fi FrameInfo) FrameRate() float64 {
	if fi.FrameRateExtD == 0 {
		return 0
	}
	return float64(fi.FrameRateExtN) / float64(fi.FrameRateExtD)
}

// VideoParam is the full encoder configuration.
type VideoParam struct {
	CodecID           CodecID
	TargetUsage       TargetUsage
	TargetKbps        uint32
	RateControlMethod RateControlMethod
	BufferSizeInKB    uint32
	FrameInfo         FrameInfo
	IOPattern         IOPattern
}

func (p VideoParam) String() string {
	fi := p.FrameInfo
	return fmt.Sprintf(
		"codec=%s usage=%d kbps=%d rc=%d buffer=%dKB fourcc=%s chroma=%d fps=%d/%d size=%dx%d crop=%d,%d %dx%d io=%#x",
		p.CodecID, p.TargetUsage, p.TargetKbps, p.RateControlMethod, p.BufferSizeInKB,
		fi.FourCC, fi.ChromaFormat, fi.FrameRateExtN, fi.FrameRateExtD,
		fi.Width, fi.Height, fi.CropX, fi.CropY, fi.CropW, fi.CropH, p.IOPattern,
	)
}

// FrameAllocRequest is the encoder's answer to QueryIOSurf.
type FrameAllocRequest struct {
	Info              FrameInfo
	NumFrameMin       uint16
	NumFrameSuggested uint16
}

// AlignUp rounds v up to the next multiple of n. n must be a power of two.
func AlignUp(v, n int) int {
	return (v + n - 1) &^ (n - 1)
}
