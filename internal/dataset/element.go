package dataset

import (
	"errors"
	"fmt"
)

var (
	ErrNotPrimitive = errors.New("dataset: element value is not a byte payload")
	ErrNotContainer = errors.New("dataset: element value is not an item list")
)

// ValueKind discriminates the Value variants.
type ValueKind uint8

const (
	KindBytes ValueKind = iota + 1
	KindItems
	KindEncapsulated
)

func (k ValueKind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindItems:
		return "items"
	case KindEncapsulated:
		return "encapsulated"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is one of Bytes, Items or *Encapsulated.
type Value interface {
	Kind() ValueKind
}

// Bytes is a primitive element payload.
type Bytes []byte

// Items is the item list of a container element.
type Items []*Item

func (Bytes) Kind() ValueKind { return KindBytes }
func (Items) Kind() ValueKind { return KindItems }

// Element is one tagged value. Length holds the wire length after decode;
// encoders recompute every count and only honor the Undefined style of
// container elements.
type Element struct {
	Tag    Tag
	VR     VR
	Length Length
	Value  Value
}

// Item is one member of a container element.
type Item struct {
	Length Length
	Dataset
}

// NewItem returns a declared-length item holding elems.
func NewItem(elems ...*Element) *Item {
	it := &Item{}
	for _, e := range elems {
		it.Put(e)
	}
	return it
}

// NewUndefinedItem returns an item that is encoded with its delimiter marker.
func NewUndefinedItem(elems ...*Element) *Item {
	it := NewItem(elems...)
	it.Length = Undefined
	return it
}

// NewBytes returns a primitive element holding a copy of b.
func NewBytes(tag Tag, vr VR, b []byte) *Element {
	buf := make([]byte, len(b))
	copy(buf, b)
	return &Element{Tag: tag, VR: vr, Length: Declared(uint32(len(buf))), Value: Bytes(buf)}
}

// NewString returns a text element padded to even length with the VR padding byte.
func NewString(tag Tag, vr VR, s string) *Element {
	buf := []byte(s)
	if len(buf)%2 == 1 {
		buf = append(buf, vr.Padding())
	}
	return &Element{Tag: tag, VR: vr, Length: Declared(uint32(len(buf))), Value: Bytes(buf)}
}

// NewSequence returns a container element with declared length.
func NewSequence(tag Tag, items ...*Item) *Element {
	return &Element{Tag: tag, VR: SQ, Value: Items(items)}
}

// NewUndefinedSequence returns a container element encoded with its delimiter marker.
func NewUndefinedSequence(tag Tag, items ...*Item) *Element {
	return &Element{Tag: tag, VR: SQ, Length: Undefined, Value: Items(items)}
}

// Bytes returns the primitive payload.
func (e *Element) Bytes() ([]byte, error) {
	b, ok := e.Value.(Bytes)
	if !ok {
		return nil, ErrNotPrimitive
	}
	return b, nil
}

// Items returns the item list of a container element.
func (e *Element) Items() (Items, error) {
	items, ok := e.Value.(Items)
	if !ok {
		return nil, ErrNotContainer
	}
	return items, nil
}

// Text returns a text payload with trailing padding removed.
func (e *Element) Text() (string, error) {
	b, err := e.Bytes()
	if err != nil {
		return "", err
	}
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	return string(b[:end]), nil
}

// Encapsulated returns the fragment payload of an encapsulated pixel element.
func (e *Element) Encapsulated() (*Encapsulated, bool) {
	enc, ok := e.Value.(*Encapsulated)
	return enc, ok
}

// Clone returns a deep copy of e.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	out := &Element{Tag: e.Tag, VR: e.VR, Length: e.Length}
	switch v := e.Value.(type) {
	case Bytes:
		buf := make(Bytes, len(v))
		copy(buf, v)
		out.Value = buf
	case Items:
		items := make(Items, len(v))
		for i, it := range v {
			items[i] = it.Clone()
		}
		out.Value = items
	case *Encapsulated:
		out.Value = v.Clone()
	}
	return out
}

// Clone returns a deep copy of it.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	out := &Item{Length: it.Length}
	out.elems = make([]*Element, len(it.elems))
	for i, e := range it.elems {
		out.elems[i] = e.Clone()
	}
	return out
}
