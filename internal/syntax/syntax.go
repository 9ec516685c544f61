// Package syntax holds the transfer-encoding descriptors the codec is driven by.
package syntax

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTransferSyntax = errors.New("syntax: unknown transfer syntax")

// Syntax selects byte order, VR presence and pixel encapsulation.
type Syntax struct {
	UID          string
	Name         string
	ByteOrder    binary.ByteOrder
	Explicit     bool
	Encapsulated bool
	// Code is the compact identifier carried in delivery frames.
	Code uint32
}

func (s Syntax) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.UID)
}

// BigEndian reports whether multi-byte fields are big-endian.
func (s Syntax) BigEndian() bool {
	return s.ByteOrder == binary.BigEndian
}

var (
	ImplicitVRLittleEndian = Syntax{
		UID: "1.2.840.10008.1.2", Name: "Implicit VR Little Endian",
		ByteOrder: binary.LittleEndian, Code: 1,
	}
	ExplicitVRLittleEndian = Syntax{
		UID: "1.2.840.10008.1.2.1", Name: "Explicit VR Little Endian",
		ByteOrder: binary.LittleEndian, Explicit: true, Code: 2,
	}
	ExplicitVRBigEndian = Syntax{
		UID: "1.2.840.10008.1.2.2", Name: "Explicit VR Big Endian",
		ByteOrder: binary.BigEndian, Explicit: true, Code: 3,
	}
	// ImplicitVRBigEndian is not a standard transfer syntax; it exists for
	// private exchange and for exercising every header form.
	ImplicitVRBigEndian = Syntax{
		UID: "1.2.276.0.7230010.3.1.4.1", Name: "Implicit VR Big Endian (private)",
		ByteOrder: binary.BigEndian, Code: 4,
	}
	JPEGBaseline       = encapsulated("1.2.840.10008.1.2.4.50", "JPEG Baseline (Process 1)", 10)
	JPEGExtended       = encapsulated("1.2.840.10008.1.2.4.51", "JPEG Extended (Process 2 & 4)", 11)
	JPEGLossless       = encapsulated("1.2.840.10008.1.2.4.70", "JPEG Lossless, Non-Hierarchical, First-Order Prediction", 12)
	JPEGLSLossless     = encapsulated("1.2.840.10008.1.2.4.80", "JPEG-LS Lossless", 13)
	JPEGLSNearLossless = encapsulated("1.2.840.10008.1.2.4.81", "JPEG-LS Near-Lossless", 14)
	JPEG2000Lossless   = encapsulated("1.2.840.10008.1.2.4.90", "JPEG 2000 (Lossless Only)", 15)
	JPEG2000           = encapsulated("1.2.840.10008.1.2.4.91", "JPEG 2000", 16)
	RLELossless        = encapsulated("1.2.840.10008.1.2.5", "RLE Lossless", 17)
)

func encapsulated(uid, name string, code uint32) Syntax {
	return Syntax{
		UID: uid, Name: name, ByteOrder: binary.LittleEndian,
		Explicit: true, Encapsulated: true, Code: code,
	}
}

var known = []Syntax{
	ImplicitVRLittleEndian,
	ExplicitVRLittleEndian,
	ExplicitVRBigEndian,
	ImplicitVRBigEndian,
	JPEGBaseline,
	JPEGExtended,
	JPEGLossless,
	JPEGLSLossless,
	JPEGLSNearLossless,
	JPEG2000Lossless,
	JPEG2000,
	RLELossless,
}

// Lookup resolves a transfer syntax UID. Trailing NUL or space padding is ignored.
func Lookup(uid string) (Syntax, error) {
	uid = strings.TrimRight(uid, "\x00 ")
	for _, s := range known {
		if s.UID == uid {
			return s, nil
		}
	}
	return Syntax{}, fmt.Errorf("%w: %q", ErrUnknownTransferSyntax, uid)
}

// ByCode resolves the compact frame identifier.
func ByCode(code uint32) (Syntax, error) {
	for _, s := range known {
		if s.Code == code {
			return s, nil
		}
	}
	return Syntax{}, fmt.Errorf("%w: code %d", ErrUnknownTransferSyntax, code)
}

// Uncompressed lists the syntaxes a record can be transcoded between without a pixel codec.
func Uncompressed() []Syntax {
	return []Syntax{ImplicitVRLittleEndian, ExplicitVRLittleEndian, ExplicitVRBigEndian, ImplicitVRBigEndian}
}

// Known returns every registered syntax.
func Known() []Syntax {
	out := make([]Syntax, len(known))
	copy(out, known)
	return out
}
