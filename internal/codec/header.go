package codec

import (
	"errors"
	"fmt"

	"github.com/danmuck/dcmstream/internal/cursor"
	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/danmuck/dcmstream/internal/dict"
	"github.com/danmuck/dcmstream/internal/syntax"
)

// Header is one decoded element or marker header.
type Header struct {
	Tag    dataset.Tag
	VR     dataset.VR
	Length dataset.Length
	// Size is the number of header bytes on the wire.
	Size int
	// RawVR holds the VR code as read in explicit mode.
	RawVR [2]byte
	// UnknownVR is set when an explicit VR code was not recognized.
	UnknownVR bool
}

// elementCodec reads and writes element headers for one syntax.
type elementCodec struct {
	ts       syntax.Syntax
	resolver dict.Resolver
}

func newElementCodec(ts syntax.Syntax, resolver dict.Resolver) elementCodec {
	if resolver == nil {
		resolver = dict.Builtin()
	}
	return elementCodec{ts: ts, resolver: resolver}
}

// headerSize returns the wire size of a header for tag and vr.
func (c elementCodec) headerSize(tag dataset.Tag, vr dataset.VR) int {
	if tag.IsItemMarker() || !c.ts.Explicit || vr.Shape() == dataset.ShortHeader {
		return 8
	}
	return 12
}

// readHeader decodes one header atomically: on insufficient data every
// consumed byte is put back so the next call starts at the same offset.
func (c elementCodec) readHeader(r *cursor.Reader) (Header, error) {
	start := r.Position()
	h, err := c.parseHeader(r)
	if err != nil && errors.Is(err, cursor.ErrInsufficientData) {
		if perr := r.Putback(int(r.Position() - start)); perr != nil {
			return Header{}, perr
		}
	}
	return h, err
}

func (c elementCodec) parseHeader(r *cursor.Reader) (Header, error) {
	group, err := r.Uint16()
	if err != nil {
		return Header{}, err
	}
	element, err := r.Uint16()
	if err != nil {
		return Header{}, err
	}
	h := Header{Tag: dataset.NewTag(group, element), Size: 8}

	if h.Tag.IsItemMarker() || !c.ts.Explicit {
		n, err := r.Uint32()
		if err != nil {
			return Header{}, err
		}
		h.Length = dataset.Length(n)
		if !h.Tag.IsItemMarker() {
			h.VR = c.implicitVR(h.Tag, h.Length)
		}
		return h, nil
	}

	code, err := r.Read(2)
	if err != nil {
		return Header{}, err
	}
	copy(h.RawVR[:], code)
	vr, ok := dataset.ParseVR(h.RawVR)
	if !ok {
		h.UnknownVR = true
		vr = c.fallbackVR(h.Tag)
	}
	h.VR = vr

	if ok && vr.Shape() == dataset.ShortHeader {
		n, err := r.Uint16()
		if err != nil {
			return Header{}, err
		}
		h.Length = dataset.Length(n)
		if uint32(n) > dataset.MaxShortLength {
			return h, ErrElemLengthExceeds16BitField
		}
		return h, nil
	}

	if err := r.Skip(2); err != nil {
		return Header{}, err
	}
	n, err := r.Uint32()
	if err != nil {
		return Header{}, err
	}
	h.Length = dataset.Length(n)
	h.Size = 12
	return h, nil
}

// implicitVR applies the dictionary; an unknown tag with undefined length
// is parsed as a sequence, any other unknown tag as UN.
func (c elementCodec) implicitVR(tag dataset.Tag, length dataset.Length) dataset.VR {
	if entry, ok := c.resolver.Resolve(tag); ok {
		return entry.VR
	}
	if length.IsUndefined() {
		return dataset.SQ
	}
	return dataset.UN
}

// fallbackVR replaces an unrecognized explicit VR code. The header is still
// read in the long form.
func (c elementCodec) fallbackVR(tag dataset.Tag) dataset.VR {
	if entry, ok := c.resolver.Resolve(tag); ok && entry.VR.Shape() == dataset.LongHeader {
		return entry.VR
	}
	return dataset.UN
}

// checkUndefined rejects undefined lengths outside sequences and
// encapsulated pixel data.
func (c elementCodec) checkUndefined(h Header) error {
	if !h.Length.IsUndefined() || h.Tag.IsItemMarker() {
		return nil
	}
	switch {
	case h.VR.IsContainer():
		return nil
	case h.VR.AllowsEncapsulation():
		if c.ts.Encapsulated && h.Tag == dataset.PixelDataTag {
			return nil
		}
		return ErrUndefinedLengthOBOW
	default:
		return ErrIllegalUndefinedLength
	}
}

// writeHeader encodes a header. Lengths are checked against the field width.
func (c elementCodec) writeHeader(w *cursor.Writer, tag dataset.Tag, vr dataset.VR, length dataset.Length) error {
	w.PutUint16(tag.Group)
	w.PutUint16(tag.Element)
	if tag.IsItemMarker() || !c.ts.Explicit {
		w.PutUint32(uint32(length))
		return w.Err()
	}
	code := vr.Code()
	_, _ = w.Write(code[:])
	if vr.Shape() == dataset.ShortHeader {
		if length.IsUndefined() || uint32(length) > dataset.MaxShortLength {
			return fmt.Errorf("%w: %s %s length %s", ErrElemLengthExceeds16BitField, tag, vr, length)
		}
		w.PutUint16(uint16(length))
		return w.Err()
	}
	w.PutUint16(0)
	w.PutUint32(uint32(length))
	return w.Err()
}
