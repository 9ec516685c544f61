// Package dict resolves tags to value representations for implicit-VR decoding.
//
// A Dictionary is immutable once built and may be shared by any number of
// concurrent decoders.
package dict

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/dcmstream/internal/dataset"
)

// VM is a value multiplicity constraint. Max == 0 means unbounded.
type VM struct {
	Min int
	Max int
	// Step is the multiplicity stride of unbounded ranges such as "2-2n".
	Step int
}

func (vm VM) String() string {
	switch {
	case vm.Max == 0 && vm.Step > 1:
		return fmt.Sprintf("%d-%dn", vm.Min, vm.Step)
	case vm.Max == 0:
		return fmt.Sprintf("%d-n", vm.Min)
	case vm.Min == vm.Max:
		return strconv.Itoa(vm.Min)
	default:
		return fmt.Sprintf("%d-%d", vm.Min, vm.Max)
	}
}

// Allows reports whether n values satisfy the constraint.
func (vm VM) Allows(n int) bool {
	if n < vm.Min {
		return false
	}
	if vm.Max != 0 && n > vm.Max {
		return false
	}
	if vm.Max == 0 && vm.Step > 1 && n%vm.Step != 0 {
		return false
	}
	return true
}

// ParseVM parses "1", "1-3", "1-n" and "2-2n".
func ParseVM(s string) (VM, error) {
	s = strings.TrimSpace(s)
	lo, hi, ranged := strings.Cut(s, "-")
	first, err := strconv.Atoi(lo)
	if err != nil {
		return VM{}, fmt.Errorf("dict: invalid vm %q", s)
	}
	if !ranged {
		return VM{Min: first, Max: first}, nil
	}
	if strings.HasSuffix(hi, "n") {
		step := 1
		if prefix := strings.TrimSuffix(hi, "n"); prefix != "" {
			if step, err = strconv.Atoi(prefix); err != nil {
				return VM{}, fmt.Errorf("dict: invalid vm %q", s)
			}
		}
		return VM{Min: first, Step: step}, nil
	}
	last, err := strconv.Atoi(hi)
	if err != nil || last < first {
		return VM{}, fmt.Errorf("dict: invalid vm %q", s)
	}
	return VM{Min: first, Max: last}, nil
}

// Entry describes one tag.
type Entry struct {
	Tag     dataset.Tag
	VR      dataset.VR
	VM      VM
	Keyword string
	Name    string
}

// Resolver is the lookup contract the codec consults in implicit mode.
type Resolver interface {
	Resolve(tag dataset.Tag) (Entry, bool)
}

// Dictionary is a read-only tag table.
type Dictionary struct {
	byTag     map[dataset.Tag]Entry
	byKeyword map[string]dataset.Tag
}

// New builds a dictionary. Later entries override earlier ones with the same tag.
func New(entries ...Entry) *Dictionary {
	d := &Dictionary{
		byTag:     make(map[dataset.Tag]Entry, len(entries)),
		byKeyword: make(map[string]dataset.Tag, len(entries)),
	}
	for _, e := range entries {
		d.byTag[e.Tag] = e
		if e.Keyword != "" {
			d.byKeyword[e.Keyword] = e.Tag
		}
	}
	return d
}

// Extend returns a new dictionary holding d's entries overridden by extra.
func (d *Dictionary) Extend(extra ...Entry) *Dictionary {
	all := make([]Entry, 0, len(d.byTag)+len(extra))
	for _, e := range d.byTag {
		all = append(all, e)
	}
	all = append(all, extra...)
	return New(all...)
}

// Resolve returns the entry for tag. Group length and private creator tags
// resolve by rule when not listed explicitly.
func (d *Dictionary) Resolve(tag dataset.Tag) (Entry, bool) {
	if d != nil {
		if e, ok := d.byTag[tag]; ok {
			return e, true
		}
	}
	switch {
	case tag.IsItemMarker():
		return Entry{}, false
	case tag.IsGroupLength():
		return Entry{Tag: tag, VR: dataset.UL, VM: VM{Min: 1, Max: 1}, Keyword: "GroupLength", Name: "Group Length"}, true
	case tag.IsPrivateCreator():
		return Entry{Tag: tag, VR: dataset.LO, VM: VM{Min: 1, Max: 1}, Keyword: "PrivateCreator", Name: "Private Creator"}, true
	}
	return Entry{}, false
}

// Lookup resolves a keyword to its tag.
func (d *Dictionary) Lookup(keyword string) (dataset.Tag, bool) {
	if d == nil {
		return dataset.Tag{}, false
	}
	t, ok := d.byKeyword[keyword]
	return t, ok
}

// Len is the number of explicit entries.
func (d *Dictionary) Len() int {
	return len(d.byTag)
}
