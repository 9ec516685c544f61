// Package part10 reads and writes the file framing around an encoded record:
// a 128-byte preamble, the "DICM" prefix and a file meta group that is
// always explicit little-endian and names the syntax of the rest.
package part10

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/dcmstream/internal/codec"
	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/danmuck/dcmstream/internal/syntax"
)

const (
	PreambleSize = 128
	prefix       = "DICM"
	metaGroup    = 0x0002
)

// ImplementationClassUID and ImplementationVersion identify files written here.
const (
	ImplementationClassUID = "2.25.302934957840802432615012425367425781417"
	ImplementationVersion  = "DCMSTREAM_1"
)

var (
	ErrNotPart10             = errors.New("part10: missing preamble or DICM prefix")
	ErrMissingTransferSyntax = errors.New("part10: file meta has no transfer syntax")
)

var (
	TagGroupLength           = dataset.NewTag(metaGroup, 0x0000)
	TagMetaVersion           = dataset.NewTag(metaGroup, 0x0001)
	TagMediaSOPClass         = dataset.NewTag(metaGroup, 0x0002)
	TagMediaSOPInstance      = dataset.NewTag(metaGroup, 0x0003)
	TagTransferSyntax        = dataset.NewTag(metaGroup, 0x0010)
	TagImplementationClass   = dataset.NewTag(metaGroup, 0x0012)
	TagImplementationVersion = dataset.NewTag(metaGroup, 0x0013)

	tagSOPClass    = dataset.NewTag(0x0008, 0x0016)
	tagSOPInstance = dataset.NewTag(0x0008, 0x0018)
)

// File is a decoded file: its meta group, the syntax it names and the record.
type File struct {
	Preamble [PreambleSize]byte
	Meta     *dataset.Dataset
	Syntax   syntax.Syntax
	Record   *dataset.Record
}

// NewFile wraps rec with a meta group for ts. SOP class and instance are
// copied from rec when present.
func NewFile(rec *dataset.Record, ts syntax.Syntax) *File {
	meta := &dataset.Dataset{}
	meta.Put(dataset.NewBytes(TagMetaVersion, dataset.OB, []byte{0x00, 0x01}))
	if el, ok := rec.Get(tagSOPClass); ok {
		if s, err := el.Text(); err == nil {
			meta.Put(dataset.NewString(TagMediaSOPClass, dataset.UI, s))
		}
	}
	if el, ok := rec.Get(tagSOPInstance); ok {
		if s, err := el.Text(); err == nil {
			meta.Put(dataset.NewString(TagMediaSOPInstance, dataset.UI, s))
		}
	}
	meta.Put(dataset.NewString(TagImplementationClass, dataset.UI, ImplementationClassUID))
	meta.Put(dataset.NewString(TagImplementationVersion, dataset.SH, ImplementationVersion))
	return &File{Meta: meta, Syntax: ts, Record: rec}
}

// IsPart10 reports whether b starts with a preamble and the DICM prefix.
func IsPart10(b []byte) bool {
	return len(b) >= PreambleSize+len(prefix) && string(b[PreambleSize:PreambleSize+len(prefix)]) == prefix
}

// Read decodes a whole file from r. opts apply to the dataset after the
// meta group.
func Read(r io.Reader, opts ...codec.Option) (*File, error) {
	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	return Parse(data, opts...)
}

// Load reads path as a Part 10 file, or as a bare dataset encoded with raw
// when the file has no preamble.
func Load(path string, raw syntax.Syntax, opts ...codec.Option) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if IsPart10(data) {
		return Parse(data, opts...)
	}
	rec, err := codec.Decode(data, raw, opts...)
	if err != nil {
		return nil, err
	}
	return NewFile(rec, raw), nil
}

// Parse decodes a file held in memory.
func Parse(data []byte, opts ...codec.Option) (*File, error) {
	if !IsPart10(data) {
		return nil, ErrNotPart10
	}
	f := &File{}
	copy(f.Preamble[:], data[:PreambleSize])
	body := data[PreambleSize+len(prefix):]

	metaOpts := []codec.Option{codec.WithStopAtGroupEnd(metaGroup)}
	if n, ok := groupLength(body); ok {
		metaOpts = append(metaOpts, codec.WithLength(n))
	}
	d := codec.NewDecoder(syntax.ExplicitVRLittleEndian, metaOpts...)
	if _, err := d.Write(body); err != nil {
		return nil, err
	}
	d.Finish()
	meta, err := d.Decode()
	if err != nil {
		return nil, fmt.Errorf("part10: file meta: %w", err)
	}
	f.Meta = &meta.Dataset

	ts, err := transferSyntax(f.Meta)
	if err != nil {
		return nil, err
	}
	f.Syntax = ts

	rec, err := codec.Decode(d.Rest(), ts, opts...)
	if err != nil {
		return nil, err
	}
	f.Record = rec
	return f, nil
}

// groupLength returns the meta byte count implied by a leading (0002,0000)
// element, including that element's own 12 bytes.
func groupLength(body []byte) (int64, bool) {
	if len(body) < 12 {
		return 0, false
	}
	group := binary.LittleEndian.Uint16(body[0:2])
	element := binary.LittleEndian.Uint16(body[2:4])
	if group != metaGroup || element != 0x0000 || string(body[4:6]) != "UL" {
		return 0, false
	}
	if binary.LittleEndian.Uint16(body[6:8]) != 4 {
		return 0, false
	}
	return 12 + int64(binary.LittleEndian.Uint32(body[8:12])), true
}

func transferSyntax(meta *dataset.Dataset) (syntax.Syntax, error) {
	el, ok := meta.Get(TagTransferSyntax)
	if !ok {
		return syntax.Syntax{}, ErrMissingTransferSyntax
	}
	uid, err := el.Text()
	if err != nil || uid == "" {
		return syntax.Syntax{}, ErrMissingTransferSyntax
	}
	return syntax.Lookup(uid)
}

// Write encodes f. The group length and transfer syntax elements of the
// meta group are recomputed; f is not modified.
func Write(w io.Writer, f *File, opts ...codec.Option) (int64, error) {
	meta := &dataset.Dataset{}
	if f.Meta != nil {
		for _, el := range f.Meta.Elements() {
			if el.Tag.Group == metaGroup && el.Tag != TagGroupLength {
				meta.Put(el)
			}
		}
	}
	meta.Put(dataset.NewString(TagTransferSyntax, dataset.UI, f.Syntax.UID))

	var body bytes.Buffer
	if _, err := codec.EncodeDataset(&body, meta, syntax.ExplicitVRLittleEndian); err != nil {
		return 0, fmt.Errorf("part10: file meta: %w", err)
	}
	length := &dataset.Dataset{}
	length.Put(dataset.NewNumeric(TagGroupLength, dataset.UL, dataset.Uint32, dataset.Uint(dataset.Uint32, uint64(body.Len()))))

	var head bytes.Buffer
	head.Write(f.Preamble[:])
	head.WriteString(prefix)
	if _, err := codec.EncodeDataset(&head, length, syntax.ExplicitVRLittleEndian); err != nil {
		return 0, err
	}
	head.Write(body.Bytes())

	n, err := w.Write(head.Bytes())
	written := int64(n)
	if err != nil {
		return written, err
	}
	m, err := codec.EncodeTo(w, f.Record, f.Syntax, opts...)
	return written + m, err
}
