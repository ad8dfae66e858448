package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// Limits applied to length prefixes read off the wire.
const (
	// DefaultMaxAllocation caps a single string (1MB).
	DefaultMaxAllocation = 1 << 20

	// MaxCollectionCount caps the element count of any list.
	MaxCollectionCount = 100_000
)

var (
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
)

// Decoder reads packet fields from a byte slice. A read either consumes
// the whole value or fails and consumes nothing.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder returns a decoder positioned at the start of buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

// EOF reports whether every byte has been consumed.
func (d *Decoder) EOF() bool {
	return d.Remaining() == 0
}

// take returns the next n bytes, aliasing buf.
func (d *Decoder) take(n int) ([]byte, bool) {
	if n < 0 || n > d.Remaining() {
		return nil, false
	}
	b := d.buf[d.off : d.off+n : d.off+n]
	d.off += n
	return b, true
}

func (d *Decoder) ReadByte() (byte, error) {
	b, ok := d.take(1)
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	return b[0], nil
}

// ReadBytes returns the next n bytes. The slice aliases the decoder's
// buffer; copy it to keep it.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	b, ok := d.take(n)
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return b, nil
}

// ReadUvarint reads a LEB128 unsigned varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.off:])
	if n < 0 {
		return 0, ErrVarintOverflow
	}
	if n == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	d.off += n
	return v, nil
}

// ReadSvarint reads a zigzag-encoded signed varint.
func (d *Decoder) ReadSvarint() (int64, error) {
	v, n := binary.Varint(d.buf[d.off:])
	if n < 0 {
		return 0, ErrVarintOverflow
	}
	if n == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	d.off += n
	return v, nil
}

// ReadString reads a varint length followed by that many bytes.
func (d *Decoder) ReadString() (string, error) {
	start := d.off
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > uint64(d.Remaining()) {
		d.off = start
		return "", io.ErrUnexpectedEOF
	}
	if length > DefaultMaxAllocation {
		d.off = start
		return "", ErrAllocationTooLarge
	}
	b, _ := d.take(int(length))
	return string(b), nil
}

func (d *Decoder) ReadUint16() (uint16, error) {
	b, ok := d.take(2)
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *Decoder) ReadUint32() (uint32, error) {
	b, ok := d.take(4)
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) ReadUint64() (uint64, error) {
	b, ok := d.take(8)
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.ReadUint32()
	return int32(v), err
}

func (d *Decoder) ReadFloat32() (float32, error) {
	v, err := d.ReadUint32()
	return math.Float32frombits(v), err
}

func (d *Decoder) ReadFloat64() (float64, error) {
	v, err := d.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadCollectionCount reads a list length. Every element takes at least one
// byte, so a count above Remaining is rejected before anything is
// allocated.
func (d *Decoder) ReadCollectionCount() (int, error) {
	count, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if count > MaxCollectionCount {
		return 0, ErrCollectionTooLarge
	}
	if count > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(count), nil
}
