package dataset

import "errors"

var (
	ErrInvalidBasicOffsetTable = errors.New("dataset: invalid basic offset table")
	ErrCannotDetermineFrames   = errors.New("dataset: cannot determine frame boundaries")
)

// FragmentHeaderSize is the item header preceding each fragment on the wire.
const FragmentHeaderSize = 8

// Encapsulated is a compressed pixel payload: a basic offset table (one entry
// per frame, possibly empty) followed by fragments in stream order.
// Offsets are measured from the first byte of the first fragment's item
// header, so every fragment spans FragmentHeaderSize+len(fragment) bytes.
type Encapsulated struct {
	OffsetTable []uint32
	Fragments   [][]byte
}

func (*Encapsulated) Kind() ValueKind { return KindEncapsulated }

// NewEncapsulated returns an undefined-length OB pixel element with one
// fragment per frame. Odd-length frames are padded with a zero byte.
func NewEncapsulated(tag Tag, frames [][]byte, withOffsetTable bool) *Element {
	enc := &Encapsulated{Fragments: make([][]byte, 0, len(frames))}
	if withOffsetTable {
		enc.OffsetTable = make([]uint32, 0, len(frames))
	}
	var offset uint32
	for _, f := range frames {
		frag := make([]byte, len(f), len(f)+1)
		copy(frag, f)
		if len(frag)%2 == 1 {
			frag = append(frag, 0)
		}
		if withOffsetTable {
			enc.OffsetTable = append(enc.OffsetTable, offset)
		}
		offset += uint32(FragmentHeaderSize + len(frag))
		enc.Fragments = append(enc.Fragments, frag)
	}
	return &Element{Tag: tag, VR: OB, Length: Undefined, Value: enc}
}

// TotalFragmentLength is the byte length of all fragment items including headers.
func (e *Encapsulated) TotalFragmentLength() uint64 {
	var total uint64
	for _, f := range e.Fragments {
		total += uint64(FragmentHeaderSize + len(f))
	}
	return total
}

// ValidateOffsetTable checks that entries are non-decreasing and each one
// lies below the total fragment byte length.
func (e *Encapsulated) ValidateOffsetTable() error {
	total := e.TotalFragmentLength()
	for i, off := range e.OffsetTable {
		if i > 0 && off < e.OffsetTable[i-1] {
			return ErrInvalidBasicOffsetTable
		}
		if uint64(off) >= total {
			return ErrInvalidBasicOffsetTable
		}
	}
	return nil
}

// Frames groups fragments into frames. With an offset table every entry
// must fall on a fragment boundary. Without one, numberOfFrames <= 1 joins
// all fragments and numberOfFrames == len(Fragments) maps one fragment per frame.
func (e *Encapsulated) Frames(numberOfFrames int) ([][]byte, error) {
	if len(e.OffsetTable) == 0 {
		switch {
		case numberOfFrames <= 1:
			return [][]byte{join(e.Fragments)}, nil
		case numberOfFrames == len(e.Fragments):
			out := make([][]byte, len(e.Fragments))
			for i, f := range e.Fragments {
				out[i] = append([]byte(nil), f...)
			}
			return out, nil
		default:
			return nil, ErrCannotDetermineFrames
		}
	}
	if err := e.ValidateOffsetTable(); err != nil {
		return nil, err
	}
	starts := make(map[uint64]int, len(e.Fragments))
	var pos uint64
	for i, f := range e.Fragments {
		starts[pos] = i
		pos += uint64(FragmentHeaderSize + len(f))
	}
	out := make([][]byte, 0, len(e.OffsetTable))
	for i, off := range e.OffsetTable {
		first, ok := starts[uint64(off)]
		if !ok {
			return nil, ErrInvalidBasicOffsetTable
		}
		last := len(e.Fragments)
		if i+1 < len(e.OffsetTable) {
			next, ok := starts[uint64(e.OffsetTable[i+1])]
			if !ok {
				return nil, ErrInvalidBasicOffsetTable
			}
			last = next
		}
		out = append(out, join(e.Fragments[first:last]))
	}
	return out, nil
}

// Clone returns a deep copy of e.
func (e *Encapsulated) Clone() *Encapsulated {
	out := &Encapsulated{}
	if e.OffsetTable != nil {
		out.OffsetTable = append([]uint32(nil), e.OffsetTable...)
	}
	if e.Fragments != nil {
		out.Fragments = make([][]byte, len(e.Fragments))
		for i, f := range e.Fragments {
			out.Fragments[i] = append([]byte(nil), f...)
		}
	}
	return out
}

func join(frags [][]byte) []byte {
	n := 0
	for _, f := range frags {
		n += len(f)
	}
	out := make([]byte, 0, n)
	for _, f := range frags {
		out = append(out, f...)
	}
	return out
}
