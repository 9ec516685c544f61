// Package cursor provides the bounded, position-tracking byte source and sink
// the codec reads and writes through.
package cursor

import (
	"encoding/binary"
	"fmt"
)

// DefaultPutbackCapacity covers the longest element header (12 bytes).
const DefaultPutbackCapacity = 16

// Reader is a non-blocking byte source. Bytes are supplied with Feed; a read
// that cannot be satisfied returns *InsufficientDataError without consuming
// anything until Close marks the end of the stream.
type Reader struct {
	buf      []byte
	off      int
	base     int64
	capacity int
	closed   bool
	// borrowed marks buf as the caller's slice; Feed copies before mutating.
	borrowed bool
	order    binary.ByteOrder
}

// NewReader returns an empty reader decoding multi-byte fields in order.
func NewReader(order binary.ByteOrder, putbackCapacity int) *Reader {
	if putbackCapacity < 0 {
		putbackCapacity = 0
	}
	if order == nil {
		order = binary.LittleEndian
	}
	return &Reader{capacity: putbackCapacity, order: order}
}

// NewBytesReader returns a closed reader over b.
func NewBytesReader(b []byte, order binary.ByteOrder) *Reader {
	r := NewReader(order, DefaultPutbackCapacity)
	r.buf = b
	r.borrowed = true
	r.closed = true
	return r
}

// Feed appends p. Consumed bytes beyond the putback window are released.
func (r *Reader) Feed(p []byte) {
	if len(p) == 0 {
		return
	}
	if r.borrowed {
		r.buf = append([]byte(nil), r.buf...)
		r.borrowed = false
	}
	if keep := r.off - r.capacity; keep > 0 {
		n := copy(r.buf, r.buf[keep:])
		r.buf = r.buf[:n]
		r.off -= keep
		r.base += int64(keep)
	}
	r.buf = append(r.buf, p...)
}

// Close marks the end of the stream. Shortfalls after Close are ErrEndOfStream.
func (r *Reader) Close() {
	r.closed = true
}

func (r *Reader) Closed() bool {
	return r.closed
}

// SetByteOrder switches the order used by Uint16 and Uint32.
func (r *Reader) SetByteOrder(order binary.ByteOrder) {
	r.order = order
}

func (r *Reader) ByteOrder() binary.ByteOrder {
	return r.order
}

// Position is the absolute offset of the next unread byte since stream start.
func (r *Reader) Position() int64 {
	return r.base + int64(r.off)
}

// Buffered returns the number of unread bytes currently held.
func (r *Reader) Buffered() int {
	return len(r.buf) - r.off
}

// AtEnd reports whether the stream is closed and fully consumed.
func (r *Reader) AtEnd() bool {
	return r.closed && r.Buffered() == 0
}

// Read returns exactly n bytes. The slice aliases the internal buffer and is
// only valid until the next Feed.
func (r *Reader) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("cursor: negative read %d", n)
	}
	if avail := r.Buffered(); avail < n {
		return nil, r.shortfall(n - avail)
	}
	p := r.buf[r.off : r.off+n]
	r.off += n
	return p, nil
}

// ReadAvailable returns between 1 and max buffered bytes.
func (r *Reader) ReadAvailable(max int) ([]byte, error) {
	if max <= 0 {
		return nil, nil
	}
	avail := r.Buffered()
	if avail == 0 {
		return nil, r.shortfall(max)
	}
	if avail < max {
		max = avail
	}
	p := r.buf[r.off : r.off+max]
	r.off += max
	return p, nil
}

// Skip consumes n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.Read(n)
	return err
}

// Putback rewinds the read position by n bytes.
func (r *Reader) Putback(n int) error {
	if n < 0 || n > r.capacity || n > r.off {
		return fmt.Errorf("%w: %d bytes (capacity %d, retained %d)", ErrPutbackFailed, n, r.capacity, min(r.off, r.capacity))
	}
	r.off -= n
	return nil
}

func (r *Reader) Uint16() (uint16, error) {
	p, err := r.Read(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(p), nil
}

func (r *Reader) Uint32() (uint32, error) {
	p, err := r.Read(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(p), nil
}

func (r *Reader) shortfall(missing int) error {
	if r.closed {
		return fmt.Errorf("%w at offset %d: %d bytes missing", ErrEndOfStream, r.Position(), missing)
	}
	return &InsufficientDataError{Missing: missing}
}
