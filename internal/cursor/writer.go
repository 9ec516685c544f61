package cursor

import (
	"encoding/binary"
	"io"
)

// Writer is a byte sink with a byte order and position. The first write error
// is sticky: later calls are no-ops and Err reports it.
type Writer struct {
	w     io.Writer
	order binary.ByteOrder
	pos   int64
	tmp   [8]byte
	err   error
}

func NewWriter(w io.Writer, order binary.ByteOrder) *Writer {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Writer{w: w, order: order}
}

// Write appends p. It never suspends.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(p)
	w.pos += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	w.err = err
	return n, err
}

func (w *Writer) PutUint16(v uint16) {
	w.order.PutUint16(w.tmp[:2], v)
	_, _ = w.Write(w.tmp[:2])
}

func (w *Writer) PutUint32(v uint32) {
	w.order.PutUint32(w.tmp[:4], v)
	_, _ = w.Write(w.tmp[:4])
}

// SetByteOrder switches the order used by PutUint16 and PutUint32.
func (w *Writer) SetByteOrder(order binary.ByteOrder) {
	w.order = order
}

func (w *Writer) ByteOrder() binary.ByteOrder {
	return w.order
}

// Position is the number of bytes written so far.
func (w *Writer) Position() int64 {
	return w.pos
}

func (w *Writer) Err() error {
	return w.err
}
