package dataset

import "strconv"

// Length is either a declared byte count or the Undefined sentinel.
type Length uint32

const (
	// Undefined marks a container or item terminated by a delimiter marker.
	Undefined Length = 0xFFFFFFFF
	// MaxDeclared is the largest byte count a 4-byte length field can carry.
	MaxDeclared uint32 = 0xFFFFFFFE
	// MaxShortLength is the largest value length a short (2-byte) header accepts.
	MaxShortLength uint32 = 0xFFFE
)

// Declared returns a declared length of n bytes.
// n must not exceed MaxDeclared; the sentinel is only reachable through Undefined.
func Declared(n uint32) Length {
	return Length(n)
}

func (l Length) IsUndefined() bool {
	return l == Undefined
}

// Count returns the declared byte count. ok is false for Undefined.
func (l Length) Count() (n uint32, ok bool) {
	if l.IsUndefined() {
		return 0, false
	}
	return uint32(l), true
}

func (l Length) String() string {
	if l.IsUndefined() {
		return "undefined"
	}
	return strconv.FormatUint(uint64(l), 10)
}
