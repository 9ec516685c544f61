// Package dump renders an element tree as an indented listing, one line per
// element, item and delimiter.
package dump

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/danmuck/dcmstream/internal/dict"
)

// Options controls value previews.
type Options struct {
	Resolver dict.Resolver
	// MaxValue caps the preview width in bytes; longer payloads print as <n bytes>.
	MaxValue int
	// MaxNumbers caps how many numeric values a preview lists.
	MaxNumbers int
}

func DefaultOptions() Options {
	return Options{Resolver: dict.Builtin(), MaxValue: 64, MaxNumbers: 8}
}

// Dump writes rec to w, followed by any decode warnings.
func Dump(w io.Writer, rec *dataset.Record, opts Options) error {
	bw := bufio.NewWriter(w)
	p := printer{w: bw, opts: normalize(opts)}
	p.dataset(&rec.Dataset, 0)
	for _, warn := range rec.Warnings {
		fmt.Fprintf(bw, "# warning: %v\n", warn)
	}
	return bw.Flush()
}

// Dataset writes a bare element list such as a file meta group.
func Dataset(w io.Writer, ds *dataset.Dataset, opts Options) error {
	bw := bufio.NewWriter(w)
	p := printer{w: bw, opts: normalize(opts)}
	p.dataset(ds, 0)
	return bw.Flush()
}

func normalize(o Options) Options {
	if o.Resolver == nil {
		o.Resolver = dict.Builtin()
	}
	if o.MaxValue <= 0 {
		o.MaxValue = 64
	}
	if o.MaxNumbers <= 0 {
		o.MaxNumbers = 8
	}
	return o
}

type printer struct {
	w    *bufio.Writer
	opts Options
}

func (p printer) line(depth int, tag dataset.Tag, vr string, length dataset.Length, value, keyword string) {
	fmt.Fprintf(p.w, "%s%s %s #%s %s", strings.Repeat("  ", depth), tag, vr, lengthLabel(length), value)
	if keyword != "" {
		fmt.Fprintf(p.w, " %s", keyword)
	}
	p.w.WriteByte('\n')
}

func lengthLabel(l dataset.Length) string {
	if l.IsUndefined() {
		return "u/l"
	}
	return strconv.FormatUint(uint64(l), 10)
}

func (p printer) keyword(tag dataset.Tag) string {
	if e, ok := p.opts.Resolver.Resolve(tag); ok {
		return e.Keyword
	}
	return ""
}

func (p printer) dataset(ds *dataset.Dataset, depth int) {
	for _, el := range ds.Elements() {
		p.element(el, depth)
	}
}

func (p printer) element(el *dataset.Element, depth int) {
	switch v := el.Value.(type) {
	case dataset.Items:
		p.line(depth, el.Tag, el.VR.String(), el.Length, fmt.Sprintf("(Sequence with %d items)", len(v)), p.keyword(el.Tag))
		for _, it := range v {
			if it == nil {
				it = &dataset.Item{}
			}
			p.line(depth+1, dataset.ItemTag, "na", it.Length, fmt.Sprintf("(Item with %d elements)", it.Len()), "")
			p.dataset(&it.Dataset, depth+2)
			if it.Length.IsUndefined() {
				p.line(depth+1, dataset.ItemDelimitationTag, "na", 0, "", "ItemDelimitationItem")
			}
		}
		if el.Length.IsUndefined() {
			p.line(depth, dataset.SequenceDelimitationTag, "na", 0, "", "SequenceDelimitationItem")
		}
	case *dataset.Encapsulated:
		p.line(depth, el.Tag, el.VR.String(), el.Length,
			fmt.Sprintf("(%d fragments, %d offsets)", len(v.Fragments), len(v.OffsetTable)), p.keyword(el.Tag))
		table := make([]string, 0, min(len(v.OffsetTable), p.opts.MaxNumbers))
		for i, off := range v.OffsetTable {
			if i == p.opts.MaxNumbers {
				table = append(table, "...")
				break
			}
			table = append(table, strconv.FormatUint(uint64(off), 10))
		}
		p.line(depth+1, dataset.ItemTag, "pi", dataset.Declared(uint32(4*len(v.OffsetTable))), "["+strings.Join(table, `\`)+"]", "BasicOffsetTable")
		for i, f := range v.Fragments {
			p.line(depth+1, dataset.ItemTag, "pi", dataset.Declared(uint32(len(f))), fmt.Sprintf("<fragment %d>", i), "")
		}
		p.line(depth, dataset.SequenceDelimitationTag, "na", 0, "", "SequenceDelimitationItem")
	default:
		p.line(depth, el.Tag, el.VR.String(), el.Length, p.preview(el), p.keyword(el.Tag))
	}
}

func (p printer) preview(el *dataset.Element) string {
	b, err := el.Bytes()
	if err != nil {
		return "(no value)"
	}
	if len(b) == 0 {
		return "(no value)"
	}
	if el.VR.IsText() {
		if len(b) > p.opts.MaxValue {
			return fmt.Sprintf("<%d bytes>", len(b))
		}
		s, _ := el.Text()
		return "[" + s + "]"
	}
	if kind, ok := numericKind(el.VR); ok {
		return p.numbers(el, kind)
	}
	if len(b) > p.opts.MaxValue {
		return fmt.Sprintf("<%d bytes>", len(b))
	}
	return fmt.Sprintf("%x", b)
}

func numericKind(vr dataset.VR) (dataset.NumericKind, bool) {
	switch vr {
	case dataset.US, dataset.AT:
		return dataset.Uint16, true
	case dataset.SS:
		return dataset.Int16, true
	case dataset.UL:
		return dataset.Uint32, true
	case dataset.SL:
		return dataset.Int32, true
	case dataset.UV:
		return dataset.Uint64, true
	case dataset.SV:
		return dataset.Int64, true
	case dataset.FL, dataset.OF:
		return dataset.Float32, true
	case dataset.FD, dataset.OD:
		return dataset.Float64, true
	}
	return 0, false
}

func (p printer) numbers(el *dataset.Element, kind dataset.NumericKind) string {
	count := el.NumericCount(kind)
	if el.VR == dataset.AT {
		parts := make([]string, 0, count/2)
		for i := 0; i+1 < count && len(parts) < p.opts.MaxNumbers; i += 2 {
			g, _ := el.Numeric(kind, i)
			e, _ := el.Numeric(kind, i+1)
			parts = append(parts, dataset.NewTag(uint16(g.Uint()), uint16(e.Uint())).String())
		}
		return `[` + strings.Join(parts, `\`) + `]`
	}
	n := min(count, p.opts.MaxNumbers)
	parts := make([]string, 0, n+1)
	for i := 0; i < n; i++ {
		v, err := el.Numeric(kind, i)
		if err != nil {
			break
		}
		switch kind {
		case dataset.Float32:
			parts = append(parts, strconv.FormatFloat(v.Float(), 'g', -1, 32))
		case dataset.Float64:
			parts = append(parts, strconv.FormatFloat(v.Float(), 'g', -1, 64))
		case dataset.Int16, dataset.Int32, dataset.Int64:
			parts = append(parts, strconv.FormatInt(v.Int(), 10))
		default:
			parts = append(parts, strconv.FormatUint(v.Uint(), 10))
		}
	}
	if count > n {
		parts = append(parts, fmt.Sprintf("... %d values", count))
	}
	return `[` + strings.Join(parts, `\`) + `]`
}
