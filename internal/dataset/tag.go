package dataset

import "fmt"

// Tag identifies an element by (group, element).
type Tag struct {
	Group   uint16
	Element uint16
}

// Reserved tags.
var (
	ItemTag                 = Tag{0xFFFE, 0xE000}
	ItemDelimitationTag     = Tag{0xFFFE, 0xE00D}
	SequenceDelimitationTag = Tag{0xFFFE, 0xE0DD}
	PixelDataTag            = Tag{0x7FE0, 0x0010}
)

// NewTag returns Tag{group, element}.
func NewTag(group, element uint16) Tag {
	return Tag{Group: group, Element: element}
}

// Compare orders tags by group, then element.
func (t Tag) Compare(o Tag) int {
	switch {
	case t.Group < o.Group:
		return -1
	case t.Group > o.Group:
		return 1
	case t.Element < o.Element:
		return -1
	case t.Element > o.Element:
		return 1
	}
	return 0
}

func (t Tag) Less(o Tag) bool {
	return t.Compare(o) < 0
}

// IsDelimiter reports whether t is one of the two delimitation markers.
func (t Tag) IsDelimiter() bool {
	return t == ItemDelimitationTag || t == SequenceDelimitationTag
}

// IsItemMarker reports whether t belongs to the reserved FFFE group.
func (t Tag) IsItemMarker() bool {
	return t.Group == 0xFFFE
}

func (t Tag) IsPrivate() bool {
	return t.Group%2 == 1
}

func (t Tag) IsGroupLength() bool {
	return t.Element == 0x0000
}

// IsPrivateCreator reports whether t reserves a private block, (gggg,0010-00FF) in an odd group.
func (t Tag) IsPrivateCreator() bool {
	return t.IsPrivate() && t.Element >= 0x0010 && t.Element <= 0x00FF
}

func (t Tag) String() string {
	return fmt.Sprintf("(%04x,%04x)", t.Group, t.Element)
}

// ParseTag parses "gggg,eeee" or "(gggg,eeee)" in hex.
func ParseTag(s string) (Tag, error) {
	var g, e uint16
	if len(s) > 0 && s[0] == '(' {
		if _, err := fmt.Sscanf(s, "(%4x,%4x)", &g, &e); err != nil {
			return Tag{}, fmt.Errorf("dataset: invalid tag %q: %w", s, err)
		}
		return Tag{g, e}, nil
	}
	if _, err := fmt.Sscanf(s, "%4x,%4x", &g, &e); err != nil {
		return Tag{}, fmt.Errorf("dataset: invalid tag %q: %w", s, err)
	}
	return Tag{g, e}, nil
}
