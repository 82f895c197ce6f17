package mfx

import (
	"os"

	"github.com/cockroachdb/errors"
)

// Bitstream is the output buffer an encoder fills. The valid payload is
// Data[DataOffset : DataOffset+DataLength].
type Bitstream struct {
	Data       []byte
	DataOffset uint32
	DataLength uint32
}

// NewBitstream allocates a buffer of the given capacity.
func NewBitstream(capacity int) *Bitstream {
	return &Bitstream{Data: make([]byte, capacity)}
}

func (bs *Bitstream) MaxLength() uint32 { return uint32(len(bs.Data)) }

// Payload returns the valid region.
func (bs *Bitstream) Payload() []byte {
	return bs.Data[bs.DataOffset : bs.DataOffset+bs.DataLength]
}

// Append copies p after the valid region. It reports ErrNotEnoughBuffer
// without modifying the buffer when p does not fit.
func (bs *Bitstream) Append(p []byte) Status {
	end := int(bs.DataOffset) + int(bs.DataLength)
	if end+len(p) > len(bs.Data) {
		return ErrNotEnoughBuffer
	}
	copy(bs.Data[end:], p)
	bs.DataLength += uint32(len(p))
	return ErrNone
}

// Reset marks the buffer empty.
func (bs *Bitstream) Reset() {
	bs.DataOffset = 0
	bs.DataLength = 0
}

// BitstreamFile ties a Bitstream to an output file: whatever the encoder
// leaves in the buffer is appended to the file on Write.
type BitstreamFile struct {
	Stream *Bitstream

	file    *os.File
	written int64
}

// OpenBitstreamFile creates (or truncates) path and allocates a buffer of
// capacity bytes.
func OpenBitstreamFile(path string, capacity int) (*BitstreamFile, error) {
	if capacity <= 0 {
		return nil, errors.Newf("bitstream capacity must be positive, got %d", capacity)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open bitstream %s", path)
	}
	return &BitstreamFile{Stream: NewBitstream(capacity), file: f}, nil
}

// Write appends the valid payload to the file and empties the buffer.
func (b *BitstreamFile) Write() error {
	payload := b.Stream.Payload()
	if len(payload) > 0 {
		n, err := b.file.Write(payload)
		b.written += int64(n)
		if err != nil {
			return errors.Wrapf(err, "write %d bytes to %s", len(payload), b.file.Name())
		}
	}
	b.Stream.Reset()
	return nil
}

// Written returns the number of bytes stored in the file so far.
func (b *BitstreamFile) Written() int64 { return b.written }

func (b *BitstreamFile) Path() string { return b.file.Name() }

func (b *BitstreamFile) Close() error {
	if b.file == nil {
		return nil
	}
	syncErr := b.file.Sync()
	closeErr := b.file.Close()
	b.file = nil
	return errors.CombineErrors(closeErr, syncErr)
}
