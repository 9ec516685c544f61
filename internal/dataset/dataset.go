package dataset

import (
	"fmt"
	"sort"
)

// Dataset is an ordered element list at one nesting level.
// Put keeps tags strictly ascending; Append is reserved for decoders that
// must keep the wire order of non-conformant input.
type Dataset struct {
	elems []*Element
}

// Len returns the number of elements.
func (d *Dataset) Len() int {
	return len(d.elems)
}

// Elements returns the elements in stored order. The slice must not be modified.
func (d *Dataset) Elements() []*Element {
	return d.elems
}

// Get returns the first element carrying tag.
func (d *Dataset) Get(tag Tag) (*Element, bool) {
	if i, ok := d.search(tag); ok {
		return d.elems[i], true
	}
	for _, e := range d.elems {
		if e.Tag == tag {
			return e, true
		}
	}
	return nil, false
}

// Put inserts e at its ascending position, replacing an element with the same tag.
func (d *Dataset) Put(e *Element) {
	if e == nil {
		return
	}
	i, found := d.search(e.Tag)
	if found {
		d.elems[i] = e
		return
	}
	d.elems = append(d.elems, nil)
	copy(d.elems[i+1:], d.elems[i:])
	d.elems[i] = e
}

// Append adds e after the last element without reordering.
func (d *Dataset) Append(e *Element) {
	d.elems = append(d.elems, e)
}

// Remove deletes every element carrying tag and reports whether any existed.
func (d *Dataset) Remove(tag Tag) bool {
	out := d.elems[:0]
	removed := false
	for _, e := range d.elems {
		if e.Tag == tag {
			removed = true
			continue
		}
		out = append(out, e)
	}
	for i := len(out); i < len(d.elems); i++ {
		d.elems[i] = nil
	}
	d.elems = out
	return removed
}

// Sorted returns the elements in ascending tag order without modifying d.
func (d *Dataset) Sorted() []*Element {
	out := make([]*Element, len(d.elems))
	copy(out, d.elems)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tag.Less(out[j].Tag) })
	return out
}

// IsAscending reports whether stored tags are strictly ascending.
func (d *Dataset) IsAscending() bool {
	for i := 1; i < len(d.elems); i++ {
		if !d.elems[i-1].Tag.Less(d.elems[i].Tag) {
			return false
		}
	}
	return true
}

// search is a binary search that is only exact while the list is ascending;
// Get falls back to a scan for decoded non-conformant input.
func (d *Dataset) search(tag Tag) (int, bool) {
	i := sort.Search(len(d.elems), func(i int) bool { return !d.elems[i].Tag.Less(tag) })
	return i, i < len(d.elems) && d.elems[i].Tag == tag
}

// Record is a top-level dataset plus the warnings raised while decoding it.
type Record struct {
	Dataset
	Warnings []error
}

// NewRecord returns a record holding elems in ascending order.
func NewRecord(elems ...*Element) *Record {
	r := &Record{}
	for _, e := range elems {
		r.Put(e)
	}
	return r
}

// HasWarnings reports whether decoding flagged non-conformant input.
func (r *Record) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Clone returns a deep copy of the element tree without warnings.
func (r *Record) Clone() *Record {
	out := &Record{}
	out.elems = make([]*Element, len(r.elems))
	for i, e := range r.elems {
		out.elems[i] = e.Clone()
	}
	return out
}

// Walk calls fn for every element in depth-first order with its nesting depth.
// Walking stops at the first error fn returns.
func (d *Dataset) Walk(fn func(depth int, e *Element) error) error {
	return walk(d, 0, fn)
}

func walk(d *Dataset, depth int, fn func(int, *Element) error) error {
	for _, e := range d.elems {
		if err := fn(depth, e); err != nil {
			return err
		}
		items, ok := e.Value.(Items)
		if !ok {
			continue
		}
		for i, it := range items {
			if it == nil {
				return fmt.Errorf("dataset: %s item %d is nil", e.Tag, i)
			}
			if err := walk(&it.Dataset, depth+1, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
