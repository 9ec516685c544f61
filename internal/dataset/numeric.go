package dataset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// NumericKind selects how a payload is viewed as an array of numbers.
type NumericKind uint8

const (
	Uint16 NumericKind = iota + 1
	Int16
	Uint32
	Int32
	Uint64
	Int64
	Float32
	Float64
)

var ErrNumericIndex = errors.New("dataset: numeric index out of range")

// Size is the byte width of one value of kind k.
func (k NumericKind) Size() int {
	switch k {
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64, Int64, Float64:
		return 8
	default:
		return 0
	}
}

func (k NumericKind) String() string {
	switch k {
	case Uint16:
		return "uint16"
	case Int16:
		return "int16"
	case Uint32:
		return "uint32"
	case Int32:
		return "int32"
	case Uint64:
		return "uint64"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("numeric(%d)", uint8(k))
	}
}

// Number is one value read through a NumericKind view.
type Number struct {
	Kind NumericKind
	bits uint64
}

// Uint makes a Number of kind k from an unsigned value.
func Uint(k NumericKind, v uint64) Number {
	return Number{Kind: k, bits: v}
}

// Int makes a Number of kind k from a signed value.
func Int(k NumericKind, v int64) Number {
	return Number{Kind: k, bits: uint64(v)}
}

// Float makes a Number of kind k from a floating-point value.
func Float(k NumericKind, v float64) Number {
	switch k {
	case Float32:
		return Number{Kind: k, bits: uint64(math.Float32bits(float32(v)))}
	case Float64:
		return Number{Kind: k, bits: math.Float64bits(v)}
	case Int16, Int32, Int64:
		return Int(k, int64(v))
	default:
		return Uint(k, uint64(v))
	}
}

func (n Number) Uint() uint64 {
	switch n.Kind {
	case Int16, Int32, Int64, Float32, Float64:
		return uint64(n.Int())
	}
	return n.bits
}

func (n Number) Int() int64 {
	switch n.Kind {
	case Int16:
		return int64(int16(n.bits))
	case Int32:
		return int64(int32(n.bits))
	case Int64:
		return int64(n.bits)
	case Float32, Float64:
		return int64(n.Float())
	}
	return int64(n.bits)
}

func (n Number) Float() float64 {
	switch n.Kind {
	case Float32:
		return float64(math.Float32frombits(uint32(n.bits)))
	case Float64:
		return math.Float64frombits(n.bits)
	case Int16, Int32, Int64:
		return float64(n.Int())
	}
	return float64(n.bits)
}

// NumericCount returns how many values of kind the payload holds.
func (e *Element) NumericCount(kind NumericKind) int {
	b, ok := e.Value.(Bytes)
	if !ok || kind.Size() == 0 {
		return 0
	}
	return len(b) / kind.Size()
}

// Numeric returns value i of the payload viewed as kind. Payloads are held
// in little-endian order regardless of the encoding they were decoded from.
func (e *Element) Numeric(kind NumericKind, i int) (Number, error) {
	b, err := e.Bytes()
	if err != nil {
		return Number{}, err
	}
	size := kind.Size()
	if size == 0 {
		return Number{}, fmt.Errorf("dataset: unknown numeric kind %d", uint8(kind))
	}
	if i < 0 || (i+1)*size > len(b) {
		return Number{}, ErrNumericIndex
	}
	p := b[i*size : (i+1)*size]
	var bits uint64
	switch size {
	case 2:
		bits = uint64(binary.LittleEndian.Uint16(p))
	case 4:
		bits = uint64(binary.LittleEndian.Uint32(p))
	case 8:
		bits = binary.LittleEndian.Uint64(p)
	}
	return Number{Kind: kind, bits: bits}, nil
}

// NewNumeric returns a primitive element holding values encoded as kind.
// Each value is converted to kind first, so mixed inputs are accepted.
func NewNumeric(tag Tag, vr VR, kind NumericKind, values ...Number) *Element {
	size := kind.Size()
	buf := make([]byte, size*len(values))
	for i, v := range values {
		if v.Kind != kind {
			v = convert(v, kind)
		}
		p := buf[i*size : (i+1)*size]
		switch size {
		case 2:
			binary.LittleEndian.PutUint16(p, uint16(v.bits))
		case 4:
			binary.LittleEndian.PutUint32(p, uint32(v.bits))
		case 8:
			binary.LittleEndian.PutUint64(p, v.bits)
		}
	}
	return &Element{Tag: tag, VR: vr, Length: Declared(uint32(len(buf))), Value: Bytes(buf)}
}

func convert(v Number, kind NumericKind) Number {
	switch kind {
	case Float32, Float64:
		return Float(kind, v.Float())
	}
	switch v.Kind {
	case Float32, Float64:
		return Float(kind, v.Float())
	case Int16, Int32, Int64:
		return Int(kind, v.Int())
	}
	return Uint(kind, v.Uint())
}
