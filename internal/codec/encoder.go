package codec

import (
	"bytes"
	"io"

	"github.com/danmuck/dcmstream/internal/cursor"
	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/danmuck/dcmstream/internal/syntax"
	"github.com/rs/zerolog"
)

// Encode serializes rec with ts. Elements are written in ascending tag order
// and every length is recomputed; rec itself is not modified.
func Encode(rec *dataset.Record, ts syntax.Syntax, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := EncodeTo(&buf, rec, ts, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTo writes rec to w and returns the number of bytes written.
func EncodeTo(w io.Writer, rec *dataset.Record, ts syntax.Syntax, opts ...Option) (int64, error) {
	return EncodeDataset(w, &rec.Dataset, ts, opts...)
}

// EncodeDataset writes a bare element list, such as an item body or a file
// meta group, to w.
func EncodeDataset(w io.Writer, ds *dataset.Dataset, ts syntax.Syntax, opts ...Option) (int64, error) {
	o := buildOptions(opts)
	enc := &encoder{
		codec: newElementCodec(ts, o.resolver),
		w:     cursor.NewWriter(w, ts.ByteOrder),
		style: o.style,
		log:   o.logger,
	}
	err := enc.writeDataset(ds, 0)
	if err != nil {
		enc.log.Debug().Err(err).Int64("offset", enc.w.Position()).Msg("encode failed")
	}
	return enc.w.Position(), err
}

// form is an element classified for writing.
type form struct {
	kind  dataset.ValueKind
	bytes []byte
	items dataset.Items
	enc   *dataset.Encapsulated
}

type encoder struct {
	codec elementCodec
	w     *cursor.Writer
	style LengthStyle
	log   zerolog.Logger
}

func (e *encoder) undefined(l dataset.Length) bool {
	switch e.style {
	case StyleDeclared:
		return false
	case StyleUndefined:
		return true
	default:
		return l.IsUndefined()
	}
}

func (e *encoder) fail(err error, tag dataset.Tag, depth int) error {
	return newError(err, tag, e.w.Position(), depth)
}

// elements returns ds in ascending order. A repeated tag is fatal.
func (e *encoder) elements(ds *dataset.Dataset, depth int) ([]*dataset.Element, error) {
	sorted := ds.Sorted()
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Tag == sorted[i-1].Tag {
			return nil, e.fail(ErrDoubledTag, sorted[i].Tag, depth)
		}
	}
	return sorted, nil
}

func (e *encoder) classify(el *dataset.Element, depth int) (form, error) {
	if el.Tag.IsItemMarker() {
		return form{}, e.fail(ErrInvalidTag, el.Tag, depth)
	}
	if !el.VR.Valid() {
		return form{}, e.fail(ErrUnknownVR, el.Tag, depth)
	}
	switch v := el.Value.(type) {
	case *dataset.Encapsulated:
		if !el.VR.AllowsEncapsulation() {
			return form{}, e.fail(ErrValueKind, el.Tag, depth)
		}
		if !e.codec.ts.Encapsulated {
			return form{}, e.fail(ErrEncapsulationNotAllowed, el.Tag, depth)
		}
		if err := validateFragments(v); err != nil {
			return form{}, e.fail(err, el.Tag, depth)
		}
		return form{kind: dataset.KindEncapsulated, enc: v}, nil
	case dataset.Items:
		if !el.VR.IsContainer() {
			return form{}, e.fail(ErrValueKind, el.Tag, depth)
		}
		return form{kind: dataset.KindItems, items: v}, nil
	case dataset.Bytes, nil:
		b, _ := v.(dataset.Bytes)
		if el.VR.IsContainer() {
			if len(b) != 0 {
				return form{}, e.fail(ErrValueKind, el.Tag, depth)
			}
			return form{kind: dataset.KindItems}, nil
		}
		if el.Tag == dataset.PixelDataTag && depth == 0 && e.codec.ts.Encapsulated && el.VR.AllowsEncapsulation() {
			return form{kind: dataset.KindEncapsulated, enc: wrapFrame(b)}, nil
		}
		if err := e.checkPrimitive(el.VR, uint64(len(b))); err != nil {
			return form{}, e.fail(err, el.Tag, depth)
		}
		return form{kind: dataset.KindBytes, bytes: b}, nil
	}
	return form{}, e.fail(ErrValueKind, el.Tag, depth)
}

// checkPrimitive validates a value length against the header field width.
func (e *encoder) checkPrimitive(vr dataset.VR, n uint64) error {
	return checkValueLength(e.codec.ts.Explicit, vr, n)
}

func checkValueLength(explicit bool, vr dataset.VR, n uint64) error {
	if explicit && vr.Shape() == dataset.ShortHeader && n > uint64(dataset.MaxShortLength) {
		return ErrElemLengthExceeds16BitField
	}
	if n > uint64(dataset.MaxDeclared) {
		return ErrElemLengthExceeds32BitField
	}
	return nil
}

// checkContent validates a computed container or item content length.
func checkContent(n uint64) error {
	if n > uint64(dataset.MaxDeclared) {
		return ErrSeqOrItemContentOverflow
	}
	return nil
}

func (e *encoder) writeDataset(ds *dataset.Dataset, depth int) error {
	elems, err := e.elements(ds, depth)
	if err != nil {
		return err
	}
	for _, el := range elems {
		if err := e.writeElement(el, depth); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeElement(el *dataset.Element, depth int) error {
	f, err := e.classify(el, depth)
	if err != nil {
		return err
	}
	switch f.kind {
	case dataset.KindEncapsulated:
		if err := e.codec.writeHeader(e.w, el.Tag, el.VR, dataset.Undefined); err != nil {
			return e.fail(err, el.Tag, depth)
		}
		return e.codec.writeFragments(e.w, f.enc)
	case dataset.KindItems:
		return e.writeSequence(el, f.items, depth)
	}

	if err := e.codec.writeHeader(e.w, el.Tag, el.VR, dataset.Declared(uint32(len(f.bytes)))); err != nil {
		return e.fail(err, el.Tag, depth)
	}
	if e.codec.ts.BigEndian() {
		return writeSwapped(e.w, f.bytes, el.VR.SwapWidth())
	}
	_, err = e.w.Write(f.bytes)
	return err
}

func (e *encoder) writeSequence(el *dataset.Element, items dataset.Items, depth int) error {
	if e.undefined(el.Length) {
		if err := e.codec.writeHeader(e.w, el.Tag, el.VR, dataset.Undefined); err != nil {
			return e.fail(err, el.Tag, depth)
		}
		for _, it := range items {
			if err := e.writeItem(it, depth+1); err != nil {
				return err
			}
		}
		return e.codec.writeHeader(e.w, dataset.SequenceDelimitationTag, dataset.VRInvalid, 0)
	}

	content, err := e.itemsSize(items, depth+1)
	if err != nil {
		return err
	}
	if err := checkContent(content); err != nil {
		return e.fail(err, el.Tag, depth)
	}
	if err := e.codec.writeHeader(e.w, el.Tag, el.VR, dataset.Declared(uint32(content))); err != nil {
		return e.fail(err, el.Tag, depth)
	}
	for _, it := range items {
		if err := e.writeItem(it, depth+1); err != nil {
			return err
		}
	}
	return e.w.Err()
}

func (e *encoder) writeItem(it *dataset.Item, depth int) error {
	if it == nil {
		it = &dataset.Item{}
	}
	if e.undefined(it.Length) {
		if err := e.codec.writeHeader(e.w, dataset.ItemTag, dataset.VRInvalid, dataset.Undefined); err != nil {
			return err
		}
		if err := e.writeDataset(&it.Dataset, depth); err != nil {
			return err
		}
		return e.codec.writeHeader(e.w, dataset.ItemDelimitationTag, dataset.VRInvalid, 0)
	}

	content, err := e.datasetSize(&it.Dataset, depth)
	if err != nil {
		return err
	}
	if err := checkContent(content); err != nil {
		return e.fail(err, dataset.ItemTag, depth)
	}
	if err := e.codec.writeHeader(e.w, dataset.ItemTag, dataset.VRInvalid, dataset.Declared(uint32(content))); err != nil {
		return err
	}
	return e.writeDataset(&it.Dataset, depth)
}

// Sizing mirrors the write path so declared lengths match the bytes written.

func (e *encoder) datasetSize(ds *dataset.Dataset, depth int) (uint64, error) {
	elems, err := e.elements(ds, depth)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, el := range elems {
		n, err := e.elementSize(el, depth)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (e *encoder) elementSize(el *dataset.Element, depth int) (uint64, error) {
	f, err := e.classify(el, depth)
	if err != nil {
		return 0, err
	}
	header := uint64(e.codec.headerSize(el.Tag, el.VR))
	switch f.kind {
	case dataset.KindEncapsulated:
		return header + fragmentsSize(f.enc), nil
	case dataset.KindItems:
		content, err := e.itemsSize(f.items, depth+1)
		if err != nil {
			return 0, err
		}
		if e.undefined(el.Length) {
			return header + content + 8, nil
		}
		if err := checkContent(content); err != nil {
			return 0, e.fail(err, el.Tag, depth)
		}
		return header + content, nil
	}
	return header + uint64(len(f.bytes)), nil
}

func (e *encoder) itemsSize(items dataset.Items, depth int) (uint64, error) {
	var total uint64
	for _, it := range items {
		if it == nil {
			it = &dataset.Item{}
		}
		content, err := e.datasetSize(&it.Dataset, depth)
		if err != nil {
			return 0, err
		}
		if e.undefined(it.Length) {
			total += 8 + content + 8
			continue
		}
		if err := checkContent(content); err != nil {
			return 0, e.fail(err, dataset.ItemTag, depth)
		}
		total += 8 + content
	}
	return total, nil
}
