// Package bitstream reads back elementary streams produced by the writer and
// summarizes their structure.
package bitstream

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/hevc"
	"github.com/acentior/hw-video-writer/internal/mfx"
	"github.com/cockroachdb/errors"
	"github.com/pion/webrtc/v3/pkg/media/h264reader"
)

var ErrEmptyStream = errors.New("no units found in stream")

// Report describes an elementary stream.
type Report struct {
	Codec mfx.CodecID
	// Units counts NAL units, or start codes for MPEG-2.
	Units int
	// AccessUnits counts coded pictures.
	AccessUnits int
	KeyFrames   int
	// FirstIsKey is true when the first coded picture can be decoded on
	// its own.
	FirstIsKey bool
	// UnitTypes counts units by type name.
	UnitTypes map[string]int
}

func (r Report) String() string {
	names := make([]string, 0, len(r.UnitTypes))
	for name := range r.UnitTypes {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "codec=%s units=%d access_units=%d key_frames=%d first_is_key=%v",
		r.Codec, r.Units, r.AccessUnits, r.KeyFrames, r.FirstIsKey)
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %-24s %d", name, r.UnitTypes[name])
	}
	return b.String()
}

func (r *Report) picture(key bool) {
	if r.AccessUnits == 0 {
		r.FirstIsKey = key
	}
	r.AccessUnits++
	if key {
		r.KeyFrames++
	}
}

// Inspect walks the stream in r and counts its units and pictures.
func Inspect(codec mfx.CodecID, r io.Reader) (Report, error) {
	rep := Report{Codec: codec, UnitTypes: make(map[string]int)}
	var err error
	switch codec {
	case mfx.CodecAVC:
		err = inspectAVC(r, &rep)
	case mfx.CodecHEVC:
		err = inspectHEVC(r, &rep)
	case mfx.CodecMPEG2:
		err = inspectMPEG2(r, &rep)
	default:
		return rep, errors.Newf("can't inspect %s streams", codec)
	}
	if err != nil {
		return rep, err
	}
	if rep.Units == 0 {
		return rep, ErrEmptyStream
	}
	return rep, nil
}

func inspectAVC(r io.Reader, rep *Report) error {
	reader, err := h264reader.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "h264 reader")
	}
	for {
		nal, err := reader.NextNAL()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "NAL unit %d", rep.Units)
		}
		rep.Units++
		rep.UnitTypes[avc.NaluType(nal.UnitType).String()]++

		switch nal.UnitType {
		case h264reader.NalUnitTypeCodedSliceIdr, h264reader.NalUnitTypeCodedSliceNonIdr:
			// first_mb_in_slice is ue(v); a leading 1 bit encodes zero
			if len(nal.Data) > 1 && nal.Data[1]&0x80 != 0 {
				rep.picture(nal.UnitType == h264reader.NalUnitTypeCodedSliceIdr)
			}
		}
	}
}

func inspectHEVC(r io.Reader, rep *Report) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "read hevc stream")
	}
	for _, nalu := range avc.ExtractNalusFromByteStream(data) {
		if len(nalu) < 2 {
			continue
		}
		rep.Units++
		typ := hevc.GetNaluType(nalu[0])
		rep.UnitTypes[typ.String()]++

		// VCL units; first_slice_segment_in_pic_flag follows the header
		if typ < 32 && len(nalu) > 2 && nalu[2]&0x80 != 0 {
			rep.picture(typ >= 16 && typ <= hevc.NALU_CRA) // IRAP
		}
	}
	return nil
}

// MPEG-2 start code values
const (
	mpeg2Picture        = 0x00
	mpeg2SliceFirst     = 0x01
	mpeg2SliceLast      = 0xaf
	mpeg2SequenceHeader = 0xb3
	mpeg2GOP            = 0xb8
	mpeg2SequenceEnd    = 0xb7
)

func inspectMPEG2(r io.Reader, rep *Report) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "read mpeg2 stream")
	}
	prefix := []byte{0x00, 0x00, 0x01}
	for i := 0; ; {
		n := bytes.Index(data[i:], prefix)
		if n < 0 || i+n+3 >= len(data) {
			return nil
		}
		pos := i + n + 3
		code := data[pos]
		rep.Units++

		switch {
		case code == mpeg2Picture:
			rep.UnitTypes["picture"]++
			// picture_coding_type follows the 10 bit temporal_reference
			key := pos+2 < len(data) && (data[pos+2]>>3)&0x07 == 1
			rep.picture(key)
		case code >= mpeg2SliceFirst && code <= mpeg2SliceLast:
			rep.UnitTypes["slice"]++
		case code == mpeg2SequenceHeader:
			rep.UnitTypes["sequence_header"]++
		case code == mpeg2GOP:
			rep.UnitTypes["group_of_pictures"]++
		case code == mpeg2SequenceEnd:
			rep.UnitTypes["sequence_end"]++
		default:
			rep.UnitTypes[fmt.Sprintf("0x%02x", code)]++
		}
		i = pos
	}
}
