package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/dcmstream/internal/cursor"
	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/danmuck/dcmstream/internal/syntax"
)

func TestReadHeaderIsAtomic(t *testing.T) {
	full := (&wire{}).long(tagDocument, "OB", 16, nil).bytes()
	c := newElementCodec(syntax.ExplicitVRLittleEndian, nil)

	r := cursor.NewReader(binary.LittleEndian, cursor.DefaultPutbackCapacity)
	r.Feed(full[:10])
	if _, err := c.readHeader(r); !errors.Is(err, cursor.ErrInsufficientData) {
		t.Fatalf("expected insufficient data, got %v", err)
	}
	if r.Position() != 0 || r.Buffered() != 10 {
		t.Fatalf("partial header consumed input: position %d buffered %d", r.Position(), r.Buffered())
	}

	r.Feed(full[10:])
	h, err := c.readHeader(r)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.Tag != tagDocument || h.VR != dataset.OB || h.Size != 12 || h.Length != dataset.Declared(16) {
		t.Fatalf("unexpected header %+v", h)
	}
}

func TestHeaderForms(t *testing.T) {
	cases := []struct {
		name string
		ts   syntax.Syntax
		tag  dataset.Tag
		vr   dataset.VR
		want []byte
	}{
		{"explicit short", syntax.ExplicitVRLittleEndian, tagRows, dataset.US,
			[]byte{0x28, 0x00, 0x10, 0x00, 'U', 'S', 0x02, 0x00}},
		{"explicit long", syntax.ExplicitVRLittleEndian, tagDocument, dataset.OB,
			[]byte{0x42, 0x00, 0x11, 0x00, 'O', 'B', 0, 0, 0x02, 0, 0, 0}},
		{"implicit", syntax.ImplicitVRLittleEndian, tagRows, dataset.US,
			[]byte{0x28, 0x00, 0x10, 0x00, 0x02, 0, 0, 0}},
		{"big endian short", syntax.ExplicitVRBigEndian, tagRows, dataset.US,
			[]byte{0x00, 0x28, 0x00, 0x10, 'U', 'S', 0x00, 0x02}},
		{"big endian implicit", syntax.ImplicitVRBigEndian, tagRows, dataset.US,
			[]byte{0x00, 0x28, 0x00, 0x10, 0, 0, 0, 0x02}},
	}
	for _, tc := range cases {
		c := newElementCodec(tc.ts, nil)
		var buf bytes.Buffer
		if err := c.writeHeader(cursor.NewWriter(&buf, tc.ts.ByteOrder), tc.tag, tc.vr, dataset.Declared(2)); err != nil {
			t.Fatalf("%s: write: %v", tc.name, err)
		}
		if !bytes.Equal(buf.Bytes(), tc.want) {
			t.Fatalf("%s:\n got %x\nwant %x", tc.name, buf.Bytes(), tc.want)
		}
		if n := c.headerSize(tc.tag, tc.vr); n != len(tc.want) {
			t.Fatalf("%s: headerSize %d want %d", tc.name, n, len(tc.want))
		}
		h, err := c.readHeader(cursor.NewBytesReader(tc.want, tc.ts.ByteOrder))
		if err != nil {
			t.Fatalf("%s: read: %v", tc.name, err)
		}
		if h.Tag != tc.tag || h.VR != tc.vr || h.Length != dataset.Declared(2) || h.Size != len(tc.want) {
			t.Fatalf("%s: unexpected header %+v", tc.name, h)
		}
	}
}

func TestWriteHeaderRejectsUndefinedShortForm(t *testing.T) {
	c := newElementCodec(syntax.ExplicitVRLittleEndian, nil)
	var buf bytes.Buffer
	err := c.writeHeader(cursor.NewWriter(&buf, binary.LittleEndian), tagPatientID, dataset.LO, dataset.Undefined)
	if !errors.Is(err, ErrElemLengthExceeds16BitField) {
		t.Fatalf("expected short-form rejection, got %v", err)
	}
}

func TestSwapInPlace(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	swapInPlace(b, 4)
	if want := []byte{4, 3, 2, 1, 8, 7, 6, 5, 9}; !bytes.Equal(b, want) {
		t.Fatalf("got %v want %v", b, want)
	}
	swapInPlace(b, 1)
	if b[0] != 4 {
		t.Fatalf("width 1 must be a no-op")
	}
}

func TestWriteSwappedAcrossChunks(t *testing.T) {
	src := make([]byte, 3*swapChunk+24)
	for i := range src {
		src[i] = byte(i)
	}
	orig := append([]byte(nil), src...)
	for _, width := range []int{2, 4, 8} {
		var buf bytes.Buffer
		if err := writeSwapped(&buf, src, width); err != nil {
			t.Fatalf("width %d: %v", width, err)
		}
		want := append([]byte(nil), src...)
		swapInPlace(want, width)
		if !bytes.Equal(buf.Bytes(), want) {
			t.Fatalf("width %d: swapped output mismatch", width)
		}
		if !bytes.Equal(src, orig) {
			t.Fatalf("width %d: source modified", width)
		}
	}
}
