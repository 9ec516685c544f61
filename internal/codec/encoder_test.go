package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/danmuck/dcmstream/internal/syntax"
	"github.com/google/go-cmp/cmp"
)

func TestEncodeShortFieldOverflow(t *testing.T) {
	long := dataset.NewRecord(dataset.NewBytes(tagPatientID, dataset.LO, bytes.Repeat([]byte{'A'}, 65535)))
	_, err := Encode(long, syntax.ExplicitVRLittleEndian)
	if !errors.Is(err, ErrElemLengthExceeds16BitField) || ClassOf(err) != ClassStructural {
		t.Fatalf("expected 16-bit overflow, got %v", err)
	}
	if _, err := Encode(long, syntax.ImplicitVRLittleEndian); err != nil {
		t.Fatalf("implicit encoding carries a 4-byte length: %v", err)
	}

	fits := dataset.NewRecord(dataset.NewBytes(tagPatientID, dataset.LO, bytes.Repeat([]byte{'A'}, 65534)))
	if _, err := Encode(fits, syntax.ExplicitVRLittleEndian); err != nil {
		t.Fatalf("65534 bytes must fit a short field: %v", err)
	}
}

func TestLengthFieldBounds(t *testing.T) {
	ceiling := uint64(dataset.MaxDeclared)
	cases := []struct {
		name     string
		explicit bool
		vr       dataset.VR
		n        uint64
		want     error
	}{
		{"short limit", true, dataset.LO, uint64(dataset.MaxShortLength), nil},
		{"short over", true, dataset.LO, uint64(dataset.MaxShortLength) + 1, ErrElemLengthExceeds16BitField},
		{"implicit short vr", false, dataset.LO, 70000, nil},
		{"long limit", true, dataset.OB, ceiling, nil},
		{"long over", true, dataset.OB, ceiling + 1, ErrElemLengthExceeds32BitField},
		{"implicit over", false, dataset.OB, ceiling + 1, ErrElemLengthExceeds32BitField},
	}
	for _, tc := range cases {
		if err := checkValueLength(tc.explicit, tc.vr, tc.n); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}
	if err := checkContent(ceiling); err != nil {
		t.Fatalf("content at limit: %v", err)
	}
	if err := checkContent(ceiling + 1); !errors.Is(err, ErrSeqOrItemContentOverflow) {
		t.Fatalf("expected content overflow, got %v", err)
	}
}

func TestEncodeValueKindMismatch(t *testing.T) {
	cases := []struct {
		name string
		el   *dataset.Element
		want error
	}{
		{"items on primitive", &dataset.Element{Tag: tagRows, VR: dataset.US, Value: dataset.Items{dataset.NewItem()}}, ErrValueKind},
		{"bytes on sequence", &dataset.Element{Tag: tagRefImageSeq, VR: dataset.SQ, Value: dataset.Bytes{1, 2}}, ErrValueKind},
		{"fragments on text", &dataset.Element{Tag: tagPatientID, VR: dataset.LO, Value: &dataset.Encapsulated{}}, ErrValueKind},
		{"item marker", &dataset.Element{Tag: dataset.ItemTag, VR: dataset.OB, Value: dataset.Bytes{}}, ErrInvalidTag},
		{"invalid vr", &dataset.Element{Tag: tagRows, Value: dataset.Bytes{1, 0}}, ErrUnknownVR},
	}
	for _, tc := range cases {
		_, err := Encode(dataset.NewRecord(tc.el), syntax.JPEGBaseline)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}
}

func TestEncodeRecomputesStaleLengths(t *testing.T) {
	stale := &dataset.Element{Tag: tagPatientName, VR: dataset.PN, Length: dataset.Declared(99), Value: dataset.Bytes("AB")}
	seq := dataset.NewSequence(tagRefImageSeq, dataset.NewItem(dataset.NewString(tagRefClass, dataset.UI, "1.2")))
	seq.Length = dataset.Declared(1234)
	rec := dataset.NewRecord(seq, stale)

	data, err := Encode(rec, syntax.ExplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// SQ header 12, item header 8, UI element 8+4, PN element 8+2.
	if got := binary.LittleEndian.Uint32(data[8:12]); got != 20 {
		t.Fatalf("sequence length %d want 20", got)
	}
	if got := binary.LittleEndian.Uint32(data[16:20]); got != 12 {
		t.Fatalf("item length %d want 12", got)
	}
	if got := binary.LittleEndian.Uint16(data[38:40]); got != 2 {
		t.Fatalf("element length %d want 2", got)
	}
	if len(data) != 42 {
		t.Fatalf("unexpected stream length %d", len(data))
	}
}

func TestEncodeEmptyContainers(t *testing.T) {
	declared := dataset.NewRecord(dataset.NewSequence(tagRefImageSeq))
	data, err := Encode(declared, syntax.ExplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := (&wire{}).long(tagRefImageSeq, "SQ", 0, nil).bytes()
	if !bytes.Equal(data, want) {
		t.Fatalf("empty declared sequence:\n got %x\nwant %x", data, want)
	}

	undefined := dataset.NewRecord(dataset.NewUndefinedSequence(tagRefImageSeq, nil))
	data, err = Encode(undefined, syntax.ExplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want = (&wire{}).
		long(tagRefImageSeq, "SQ", uint32(dataset.Undefined), nil).
		marker(dataset.ItemTag, 0).
		marker(dataset.SequenceDelimitationTag, 0).
		bytes()
	if !bytes.Equal(data, want) {
		t.Fatalf("undefined sequence with nil item:\n got %x\nwant %x", data, want)
	}
}

func TestEncodeNestedDoubledTag(t *testing.T) {
	it := &dataset.Item{}
	it.Append(dataset.NewString(tagRefClass, dataset.UI, "1.2"))
	it.Append(dataset.NewString(tagRefClass, dataset.UI, "1.3"))
	rec := dataset.NewRecord(dataset.NewUndefinedSequence(tagRefImageSeq, it))

	_, err := Encode(rec, syntax.ExplicitVRLittleEndian)
	var ce *Error
	if !errors.As(err, &ce) || !errors.Is(err, ErrDoubledTag) {
		t.Fatalf("expected doubled tag, got %v", err)
	}
	if ce.Depth != 1 || ce.Tag != tagRefClass {
		t.Fatalf("unexpected error detail %+v", ce)
	}
}

func TestEncodeLengthStyles(t *testing.T) {
	rec := sampleRecord()
	for _, style := range []LengthStyle{StyleDeclared, StyleUndefined} {
		data, err := Encode(rec, syntax.ExplicitVRLittleEndian, WithLengthStyle(style))
		if err != nil {
			t.Fatalf("%s: encode: %v", style, err)
		}
		got, err := Decode(data, syntax.ExplicitVRLittleEndian)
		if err != nil {
			t.Fatalf("%s: decode: %v", style, err)
		}
		seq, _ := got.Get(tagRefImageSeq)
		items, _ := seq.Items()
		undefined := style == StyleUndefined
		if seq.Length.IsUndefined() != undefined || items[0].Length.IsUndefined() != undefined {
			t.Fatalf("%s: sequence %s item %s", style, seq.Length, items[0].Length)
		}
		if diff := cmp.Diff(rec, got, shapeOpts); diff != "" {
			t.Fatalf("%s: tree mismatch:\n%s", style, diff)
		}
	}
}

func TestEncodeDoesNotModifyInput(t *testing.T) {
	rec := sampleRecord()
	before := rec.Clone()
	if _, err := Encode(rec, syntax.ExplicitVRBigEndian, WithLengthStyle(StyleDeclared)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if diff := cmp.Diff(before, rec, cmp.AllowUnexported(dataset.Dataset{})); diff != "" {
		t.Fatalf("input record changed:\n%s", diff)
	}
}

func TestParseLengthStyle(t *testing.T) {
	cases := map[string]LengthStyle{
		"":          StylePreserve,
		"preserve":  StylePreserve,
		"declared":  StyleDeclared,
		"explicit":  StyleDeclared,
		"undefined": StyleUndefined,
	}
	for in, want := range cases {
		got, ok := ParseLengthStyle(in)
		if !ok || got != want {
			t.Fatalf("%q: got %s %v", in, got, ok)
		}
	}
	if _, ok := ParseLengthStyle("sometimes"); ok {
		t.Fatalf("expected unknown style to be rejected")
	}
}
