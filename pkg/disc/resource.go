package disc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
)

// MaxResourceSize is the largest resource the format stores.
const MaxResourceSize = 131072

// Resource errors.
var (
	ErrResourceTooLarge = errors.New("resource exceeds maximum size")
	ErrOutOfBounds      = errors.New("read past end of resource")
)

// Resource is an in-memory resource with a little-endian read cursor.
//
// A read that would cross the end of the buffer returns zero, leaves the
// cursor at the end and records ErrOutOfBounds; check Err after a pass.
type Resource struct {
	data []byte
	off  int
	err  error
}

// NewResource wraps data. The Resource never modifies it, so several
// cursors may share one buffer.
func NewResource(data []byte) (*Resource, error) {
	if len(data) > MaxResourceSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrResourceTooLarge, len(data))
	}
	return &Resource{data: data}, nil
}

// Len returns the logical length in bytes.
func (r *Resource) Len() int { return len(r.data) }

// Offset returns the cursor position.
func (r *Resource) Offset() int { return r.off }

// Remaining returns the bytes left after the cursor.
func (r *Resource) Remaining() int { return len(r.data) - r.off }

// Bytes returns the underlying buffer.
func (r *Resource) Bytes() []byte { return r.data }

// Err returns the first out-of-bounds error, if any.
func (r *Resource) Err() error { return r.err }

// Seek moves the cursor to an absolute offset.
func (r *Resource) Seek(off int) error {
	if off < 0 || off > len(r.data) {
		err := fmt.Errorf("%w: seek to 0x%x (len 0x%x)", ErrOutOfBounds, off, len(r.data))
		r.fail(err)
		return err
	}
	r.off = off
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Resource) Skip(n int) {
	r.take(n)
}

func (r *Resource) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Resource) take(n int) []byte {
	if r.off+n > len(r.data) {
		r.fail(fmt.Errorf("%w: %d bytes at 0x%x (len 0x%x)", ErrOutOfBounds, n, r.off, len(r.data)))
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// readLE decodes a size-byte little-endian integer at the cursor.
func readLE[T constraints.Integer](r *Resource, size int) T {
	b := r.take(size)
	if b == nil {
		return 0
	}
	switch size {
	case 1:
		return T(b[0])
	case 2:
		return T(binary.LittleEndian.Uint16(b))
	case 4:
		return T(binary.LittleEndian.Uint32(b))
	default:
		return T(binary.LittleEndian.Uint64(b))
	}
}

// ReadU8 reads an unsigned byte.
func (r *Resource) ReadU8() uint8 { return readLE[uint8](r, 1) }

// ReadU16 reads a little-endian uint16.
func (r *Resource) ReadU16() uint16 { return readLE[uint16](r, 2) }

// ReadU32 reads a little-endian uint32.
func (r *Resource) ReadU32() uint32 { return readLE[uint32](r, 4) }

// ReadI8 reads a signed byte.
func (r *Resource) ReadI8() int8 { return readLE[int8](r, 1) }

// ReadI16 reads a little-endian int16.
func (r *Resource) ReadI16() int16 { return readLE[int16](r, 2) }

// ReadI32 reads a little-endian int32.
func (r *Resource) ReadI32() int32 { return readLE[int32](r, 4) }

// ReadBytes returns the next n bytes without copying.
func (r *Resource) ReadBytes(n int) []byte { return r.take(n) }
