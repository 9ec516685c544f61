package dataset

// VR is a value representation code.
type VR uint8

const (
	VRInvalid VR = iota
	AE
	AS
	AT
	CS
	DA
	DS
	DT
	FL
	FD
	IS
	LO
	LT
	OB
	OD
	OF
	OL
	OV
	OW
	PN
	SH
	SL
	SQ
	SS
	ST
	SV
	TM
	UC
	UI
	UL
	UN
	UR
	US
	UT
	UV
)

// HeaderShape selects the explicit-mode length field layout of a VR.
type HeaderShape uint8

const (
	// ShortHeader is tag(4) | VR(2) | length(2).
	ShortHeader HeaderShape = iota
	// LongHeader is tag(4) | VR(2) | reserved(2) | length(4).
	LongHeader
)

type vrInfo struct {
	code  [2]byte
	shape HeaderShape
	text  bool
	pad   byte
	swap  int
}

var vrTable = [...]vrInfo{
	VRInvalid: {code: [2]byte{'?', '?'}, shape: LongHeader},
	AE:        {code: [2]byte{'A', 'E'}, shape: ShortHeader, text: true, pad: ' '},
	AS:        {code: [2]byte{'A', 'S'}, shape: ShortHeader, text: true, pad: ' '},
	AT:        {code: [2]byte{'A', 'T'}, shape: ShortHeader, swap: 2},
	CS:        {code: [2]byte{'C', 'S'}, shape: ShortHeader, text: true, pad: ' '},
	DA:        {code: [2]byte{'D', 'A'}, shape: ShortHeader, text: true, pad: ' '},
	DS:        {code: [2]byte{'D', 'S'}, shape: ShortHeader, text: true, pad: ' '},
	DT:        {code: [2]byte{'D', 'T'}, shape: ShortHeader, text: true, pad: ' '},
	FL:        {code: [2]byte{'F', 'L'}, shape: ShortHeader, swap: 4},
	FD:        {code: [2]byte{'F', 'D'}, shape: ShortHeader, swap: 8},
	IS:        {code: [2]byte{'I', 'S'}, shape: ShortHeader, text: true, pad: ' '},
	LO:        {code: [2]byte{'L', 'O'}, shape: ShortHeader, text: true, pad: ' '},
	LT:        {code: [2]byte{'L', 'T'}, shape: ShortHeader, text: true, pad: ' '},
	OB:        {code: [2]byte{'O', 'B'}, shape: LongHeader},
	OD:        {code: [2]byte{'O', 'D'}, shape: LongHeader, swap: 8},
	OF:        {code: [2]byte{'O', 'F'}, shape: LongHeader, swap: 4},
	OL:        {code: [2]byte{'O', 'L'}, shape: LongHeader, swap: 4},
	OV:        {code: [2]byte{'O', 'V'}, shape: LongHeader, swap: 8},
	OW:        {code: [2]byte{'O', 'W'}, shape: LongHeader, swap: 2},
	PN:        {code: [2]byte{'P', 'N'}, shape: ShortHeader, text: true, pad: ' '},
	SH:        {code: [2]byte{'S', 'H'}, shape: ShortHeader, text: true, pad: ' '},
	SL:        {code: [2]byte{'S', 'L'}, shape: ShortHeader, swap: 4},
	SQ:        {code: [2]byte{'S', 'Q'}, shape: LongHeader},
	SS:        {code: [2]byte{'S', 'S'}, shape: ShortHeader, swap: 2},
	ST:        {code: [2]byte{'S', 'T'}, shape: ShortHeader, text: true, pad: ' '},
	SV:        {code: [2]byte{'S', 'V'}, shape: LongHeader, swap: 8},
	TM:        {code: [2]byte{'T', 'M'}, shape: ShortHeader, text: true, pad: ' '},
	UC:        {code: [2]byte{'U', 'C'}, shape: LongHeader, text: true, pad: ' '},
	UI:        {code: [2]byte{'U', 'I'}, shape: ShortHeader, text: true, pad: 0},
	UL:        {code: [2]byte{'U', 'L'}, shape: ShortHeader, swap: 4},
	UN:        {code: [2]byte{'U', 'N'}, shape: LongHeader},
	UR:        {code: [2]byte{'U', 'R'}, shape: LongHeader, text: true, pad: ' '},
	US:        {code: [2]byte{'U', 'S'}, shape: ShortHeader, swap: 2},
	UT:        {code: [2]byte{'U', 'T'}, shape: LongHeader, text: true, pad: ' '},
	UV:        {code: [2]byte{'U', 'V'}, shape: LongHeader, swap: 8},
}

var vrByCode = func() map[[2]byte]VR {
	m := make(map[[2]byte]VR, len(vrTable))
	for i := 1; i < len(vrTable); i++ {
		m[vrTable[i].code] = VR(i)
	}
	return m
}()

// ParseVR maps a two-byte wire code to a VR.
func ParseVR(code [2]byte) (VR, bool) {
	vr, ok := vrByCode[code]
	return vr, ok
}

// ParseVRString is ParseVR for a two-letter string.
func ParseVRString(s string) (VR, bool) {
	if len(s) != 2 {
		return VRInvalid, false
	}
	return ParseVR([2]byte{s[0], s[1]})
}

func (vr VR) info() vrInfo {
	if int(vr) >= len(vrTable) {
		return vrTable[VRInvalid]
	}
	return vrTable[vr]
}

// Valid reports whether vr is a member of the closed VR set.
func (vr VR) Valid() bool {
	return vr != VRInvalid && int(vr) < len(vrTable)
}

// Code returns the two-byte wire code.
func (vr VR) Code() [2]byte {
	return vr.info().code
}

func (vr VR) String() string {
	c := vr.info().code
	return string(c[:])
}

// Shape returns the explicit-mode header shape.
func (vr VR) Shape() HeaderShape {
	return vr.info().shape
}

// IsText reports whether the VR carries character data.
func (vr VR) IsText() bool {
	return vr.info().text
}

// Padding is the byte used to pad text values to even length.
func (vr VR) Padding() byte {
	return vr.info().pad
}

// SwapWidth is the byte width of one numeric unit, or 0 if the payload is never byte swapped.
func (vr VR) SwapWidth() int {
	return vr.info().swap
}

// IsContainer reports whether values of this VR are item lists.
func (vr VR) IsContainer() bool {
	return vr == SQ
}

// AllowsEncapsulation reports whether the VR may carry an undefined-length fragment sequence.
func (vr VR) AllowsEncapsulation() bool {
	return vr == OB || vr == OW
}
