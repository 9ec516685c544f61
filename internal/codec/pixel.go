package codec

import (
	"fmt"

	"github.com/danmuck/dcmstream/internal/cursor"
	"github.com/danmuck/dcmstream/internal/dataset"
)

// fragmentsSize is the wire size of an encapsulated item list: offset table
// item, fragment items and the closing delimiter.
func fragmentsSize(enc *dataset.Encapsulated) uint64 {
	return dataset.FragmentHeaderSize + 4*uint64(len(enc.OffsetTable)) +
		enc.TotalFragmentLength() + dataset.FragmentHeaderSize
}

// validateFragments checks an encapsulated payload before it is written.
func validateFragments(enc *dataset.Encapsulated) error {
	if uint64(len(enc.OffsetTable))*4 > uint64(dataset.MaxDeclared) {
		return ErrInvalidBasicOffsetTable
	}
	if err := enc.ValidateOffsetTable(); err != nil {
		return err
	}
	for i, f := range enc.Fragments {
		if len(f)%2 != 0 {
			return fmt.Errorf("%w: fragment %d has odd length %d", ErrInvalidFragment, i, len(f))
		}
		if uint64(len(f)) > uint64(dataset.MaxDeclared) {
			return fmt.Errorf("%w: fragment %d exceeds 32-bit length", ErrInvalidFragment, i)
		}
	}
	return nil
}

// writeFragments writes the item list following an undefined-length pixel
// header. Offsets are written in the syntax byte order.
func (c elementCodec) writeFragments(w *cursor.Writer, enc *dataset.Encapsulated) error {
	if err := c.writeHeader(w, dataset.ItemTag, dataset.VRInvalid, dataset.Declared(uint32(4*len(enc.OffsetTable)))); err != nil {
		return err
	}
	for _, off := range enc.OffsetTable {
		w.PutUint32(off)
	}
	for _, f := range enc.Fragments {
		if err := c.writeHeader(w, dataset.ItemTag, dataset.VRInvalid, dataset.Declared(uint32(len(f)))); err != nil {
			return err
		}
		if _, err := w.Write(f); err != nil {
			return err
		}
	}
	return c.writeHeader(w, dataset.SequenceDelimitationTag, dataset.VRInvalid, 0)
}

// wrapFrame turns a native pixel payload into a single-fragment payload with
// an empty offset table.
func wrapFrame(b []byte) *dataset.Encapsulated {
	enc := &dataset.Encapsulated{}
	if len(b) == 0 {
		return enc
	}
	frag := make([]byte, len(b), len(b)+1)
	copy(frag, b)
	if len(frag)%2 == 1 {
		frag = append(frag, 0)
	}
	enc.Fragments = [][]byte{frag}
	return enc
}

// OffsetTable returns the basic offset table for fragments holding one
// frame each.
func OffsetTable(fragments [][]byte) []uint32 {
	table := make([]uint32, len(fragments))
	var off uint32
	for i, f := range fragments {
		table[i] = off
		off += uint32(dataset.FragmentHeaderSize + len(f))
	}
	return table
}
