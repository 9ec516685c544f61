package codec

import (
	"errors"

	"github.com/danmuck/dcmstream/internal/cursor"
	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/danmuck/dcmstream/internal/syntax"
	"github.com/rs/zerolog"
)

// initialValueCap bounds the first allocation for a value whose bytes have
// not arrived yet.
const initialValueCap = 64 << 10

// parser is the resumable decode state machine. Every step either makes
// progress or returns; a returned *SuspendError leaves the state untouched
// and the same step is retried once more bytes are fed.
type parser struct {
	codec  elementCodec
	r      *cursor.Reader
	opts   options
	log    zerolog.Logger
	record *dataset.Record
	stack  []*scope
	phase  Phase
	value  pendingValue
	// nesting counts open sequence and fragment scopes.
	nesting int
}

func newParser(ts syntax.Syntax, r *cursor.Reader, o options) *parser {
	p := &parser{
		codec:  newElementCodec(ts, o.resolver),
		r:      r,
		opts:   o,
		log:    o.logger,
		record: &dataset.Record{},
		phase:  PhaseHeader,
	}
	root := &scope{kind: scopeRecord, end: -1, start: r.Position(), ds: &p.record.Dataset}
	if o.budget >= 0 {
		root.end = r.Position() + o.budget
	}
	p.stack = []*scope{root}
	return p
}

func (p *parser) top() *scope {
	return p.stack[len(p.stack)-1]
}

func (p *parser) depth() int {
	return max(len(p.stack)-1, 0)
}

// limit returns the end offset of the nearest bounded scope, or -1.
func (p *parser) limit() int64 {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].bounded() {
			return p.stack[i].end
		}
	}
	return -1
}

func (p *parser) state() State {
	s := State{
		Phase:    p.phase,
		Depth:    p.depth(),
		Position: p.r.Position(),
		Buffered: p.r.Buffered(),
		Warnings: len(p.record.Warnings),
	}
	if p.phase == PhaseValue {
		s.ValueRemaining = p.value.remaining()
	}
	return s
}

// run steps until the record is complete, a suspend, or a failure.
func (p *parser) run() error {
	for p.phase != PhaseComplete {
		var err error
		if p.phase == PhaseValue {
			err = p.readValue()
		} else {
			err = p.step()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) step() error {
	top := p.top()
	pos := p.r.Position()

	if top.bounded() && pos >= top.end {
		p.pop()
		return nil
	}
	if top.undefined {
		if lim := p.limit(); lim >= 0 && pos >= lim {
			return p.closeMissing(top, pos)
		}
	}
	if p.r.AtEnd() {
		return p.endOfInput(top, pos)
	}

	h, err := p.codec.readHeader(p.r)
	if err != nil {
		return p.headerError(err, h, pos)
	}
	if lim := p.limit(); lim >= 0 && p.r.Position() > lim {
		return p.fatal(ErrElemLengthLargerThanItem, h.Tag, pos)
	}

	switch top.kind {
	case scopeSequence:
		return p.sequenceHeader(top, h, pos)
	case scopeFragments:
		return p.fragmentHeader(top, h, pos)
	default:
		return p.datasetHeader(top, h, pos)
	}
}

func (p *parser) datasetHeader(top *scope, h Header, pos int64) error {
	switch h.Tag {
	case dataset.ItemDelimitationTag:
		if top.kind != scopeItem || !top.undefined {
			return p.warn(ErrStrayDelimiter, h.Tag, pos)
		}
		if h.Length != 0 {
			if err := p.warn(ErrDelimiterLength, h.Tag, pos); err != nil {
				return err
			}
		}
		p.pop()
		return nil
	case dataset.SequenceDelimitationTag:
		if top.kind != scopeItem {
			return p.warn(ErrStrayDelimiter, h.Tag, pos)
		}
		// Only an undefined item in an undefined sequence can be closed
		// early; a declared scope would end short of its boundary.
		if !top.undefined || !p.stack[len(p.stack)-2].undefined {
			return p.fatal(ErrPrematureSequDelimitationItem, h.Tag, pos)
		}
		if err := p.warn(ErrPrematureSequDelimitationItem, h.Tag, pos); err != nil {
			return err
		}
		p.pop()
		p.pop()
		return nil
	}
	if h.Tag.IsItemMarker() {
		return p.fatal(ErrInvalidTag, h.Tag, pos)
	}

	if top.kind == scopeRecord && p.opts.stopGroup >= 0 && h.Tag.Group != uint16(p.opts.stopGroup) {
		if err := p.r.Putback(h.Size); err != nil {
			return p.fatal(err, h.Tag, pos)
		}
		p.pop()
		return nil
	}

	if h.UnknownVR {
		if err := p.warn(ErrUnknownVR, h.Tag, pos); err != nil {
			return err
		}
	}
	if err := p.codec.checkUndefined(h); err != nil {
		return p.fatal(err, h.Tag, pos)
	}
	if err := p.checkOrder(top, h.Tag, pos); err != nil {
		return err
	}

	elem := &dataset.Element{Tag: h.Tag, VR: h.VR, Length: h.Length}
	encapsulatedSyntax := p.codec.ts.Encapsulated && h.Tag == dataset.PixelDataTag

	switch {
	case encapsulatedSyntax && h.Length.IsUndefined():
		enc := &dataset.Encapsulated{}
		elem.Value = enc
		top.ds.Append(elem)
		return p.push(&scope{kind: scopeFragments, undefined: true, end: -1, start: pos, tag: h.Tag, elem: elem, enc: enc})
	case encapsulatedSyntax && top.kind == scopeRecord:
		return p.fatal(ErrPixelDataExplLengthIllegal, h.Tag, pos)
	case h.VR.IsContainer():
		elem.Value = dataset.Items{}
		s := &scope{kind: scopeSequence, undefined: h.Length.IsUndefined(), end: -1, start: pos, tag: h.Tag, elem: elem}
		if !s.undefined {
			end, err := p.fit(h, pos)
			if err != nil {
				return err
			}
			s.end = end
		}
		top.ds.Append(elem)
		return p.push(s)
	}

	if err := p.checkValueLimit(h, pos); err != nil {
		return err
	}
	if _, err := p.fit(h, pos); err != nil {
		return err
	}
	top.ds.Append(elem)
	if h.Length == 0 {
		elem.Value = dataset.Bytes{}
		return nil
	}
	p.beginValue(h, pos, elem, targetElement)
	return nil
}

func (p *parser) sequenceHeader(top *scope, h Header, pos int64) error {
	switch h.Tag {
	case dataset.ItemTag:
		it := &dataset.Item{Length: h.Length}
		s := &scope{kind: scopeItem, undefined: h.Length.IsUndefined(), end: -1, start: pos, tag: top.tag, ds: &it.Dataset}
		if !s.undefined {
			end, err := p.fit(h, pos)
			if err != nil {
				return err
			}
			s.end = end
		}
		items, _ := top.elem.Value.(dataset.Items)
		top.elem.Value = append(items, it)
		return p.push(s)
	case dataset.SequenceDelimitationTag:
		if !top.undefined {
			return p.warn(ErrStrayDelimiter, h.Tag, pos)
		}
		if h.Length != 0 {
			if err := p.warn(ErrDelimiterLength, h.Tag, pos); err != nil {
				return err
			}
		}
		p.pop()
		return nil
	case dataset.ItemDelimitationTag:
		return p.warn(ErrStrayDelimiter, h.Tag, pos)
	}
	return p.fatal(ErrInvalidTag, h.Tag, pos)
}

func (p *parser) fragmentHeader(top *scope, h Header, pos int64) error {
	switch h.Tag {
	case dataset.ItemTag:
		if h.Length.IsUndefined() {
			return p.fatal(ErrInvalidFragment, h.Tag, pos)
		}
		if _, err := p.fit(h, pos); err != nil {
			return err
		}
		if err := p.checkValueLimit(h, pos); err != nil {
			return err
		}
		target := targetFragment
		if !top.seenBOT {
			top.seenBOT = true
			target = targetOffsetTable
			if uint32(h.Length)%4 != 0 {
				return p.fatal(ErrInvalidBasicOffsetTable, h.Tag, pos)
			}
		}
		if h.Length == 0 {
			if target == targetFragment {
				top.enc.Fragments = append(top.enc.Fragments, []byte{})
			}
			return nil
		}
		p.beginValue(h, pos, nil, target)
		return nil
	case dataset.SequenceDelimitationTag:
		if h.Length != 0 {
			if err := p.warn(ErrDelimiterLength, h.Tag, pos); err != nil {
				return err
			}
		}
		if err := top.enc.ValidateOffsetTable(); err != nil {
			return p.fatal(ErrInvalidBasicOffsetTable, top.tag, top.start)
		}
		p.pop()
		return nil
	}
	return p.fatal(ErrInvalidFragment, h.Tag, pos)
}

// checkOrder flags a tag that does not ascend within its dataset.
func (p *parser) checkOrder(top *scope, tag dataset.Tag, pos int64) error {
	if top.hasLast {
		switch c := tag.Compare(top.last); {
		case c == 0:
			if err := p.warn(ErrDoubledTag, tag, pos); err != nil {
				return err
			}
		case c < 0:
			sentinel := ErrTagOrder
			if _, dup := top.ds.Get(tag); dup {
				sentinel = ErrDoubledTag
			}
			if err := p.warn(sentinel, tag, pos); err != nil {
				return err
			}
		}
	}
	if !top.hasLast || top.last.Less(tag) {
		top.last = tag
		top.hasLast = true
	}
	return nil
}

// fit checks that a declared payload starting after h ends within the
// nearest bounded scope and returns its end offset.
func (p *parser) fit(h Header, pos int64) (int64, error) {
	end := p.r.Position() + int64(uint32(h.Length))
	if lim := p.limit(); lim >= 0 && end > lim {
		return 0, p.fatal(ErrElemLengthLargerThanItem, h.Tag, pos)
	}
	return end, nil
}

func (p *parser) checkValueLimit(h Header, pos int64) error {
	if ceiling := p.opts.limits.MaxValueLength; ceiling > 0 && uint32(h.Length) > ceiling {
		return p.fatal(ErrValueTooLarge, h.Tag, pos)
	}
	return nil
}

func (p *parser) push(s *scope) error {
	if s.kind == scopeSequence || s.kind == scopeFragments {
		if ceiling := p.opts.limits.MaxDepth; ceiling > 0 && p.nesting >= ceiling {
			return p.fatal(ErrNestingTooDeep, s.tag, s.start)
		}
		p.nesting++
	}
	p.stack = append(p.stack, s)
	p.phase = s.phase()
	return nil
}

func (p *parser) pop() {
	s := p.top()
	if s.kind == scopeSequence || s.kind == scopeFragments {
		p.nesting--
	}
	p.stack = p.stack[:len(p.stack)-1]
	if len(p.stack) == 0 {
		p.phase = PhaseComplete
		return
	}
	p.phase = p.top().phase()
}

// closeMissing closes an undefined scope whose bounded ancestor or the
// stream ended before its delimiter arrived.
// A missing item or sequence delimiter is a warning; WithStrict makes it fatal.
func (p *parser) closeMissing(top *scope, pos int64) error {
	switch top.kind {
	case scopeFragments:
		return p.fatal(ErrFragmentDelimiterMissing, top.tag, pos)
	case scopeItem:
		if err := p.warn(ErrItemDelimitationItemMissing, top.tag, pos); err != nil {
			return err
		}
	case scopeSequence:
		if err := p.warn(ErrSequDelimitationItemMissing, top.tag, pos); err != nil {
			return err
		}
	}
	p.pop()
	return nil
}

func (p *parser) endOfInput(top *scope, pos int64) error {
	switch {
	case top.kind == scopeRecord && !top.bounded():
		p.pop()
		return nil
	case top.undefined:
		return p.closeMissing(top, pos)
	default:
		return p.fatal(ErrEndOfStream, top.tag, pos)
	}
}

func (p *parser) beginValue(h Header, pos int64, elem *dataset.Element, target valueTarget) {
	want := int(uint32(h.Length))
	p.value = pendingValue{
		header: h,
		offset: pos,
		elem:   elem,
		buf:    make([]byte, 0, min(want, max(p.r.Buffered(), initialValueCap))),
		want:   want,
		target: target,
	}
	p.phase = PhaseValue
}

// readValue copies as much of the pending payload as is buffered.
func (p *parser) readValue() error {
	v := &p.value
	for v.remaining() > 0 {
		chunk, err := p.r.ReadAvailable(v.remaining())
		if err != nil {
			if errors.Is(err, cursor.ErrInsufficientData) {
				return &SuspendError{Missing: v.remaining(), Offset: p.r.Position(), Phase: PhaseValue}
			}
			return p.fatal(err, v.header.Tag, v.offset)
		}
		v.buf = append(v.buf, chunk...)
	}
	return p.completeValue()
}

func (p *parser) completeValue() error {
	v := p.value
	p.value = pendingValue{}
	top := p.top()
	p.phase = top.phase()

	switch v.target {
	case targetOffsetTable:
		order := p.codec.ts.ByteOrder
		table := make([]uint32, len(v.buf)/4)
		for i := range table {
			table[i] = order.Uint32(v.buf[4*i:])
		}
		top.enc.OffsetTable = table
	case targetFragment:
		top.enc.Fragments = append(top.enc.Fragments, v.buf)
	default:
		if p.codec.ts.BigEndian() {
			swapInPlace(v.buf, v.header.VR.SwapWidth())
		}
		v.elem.Value = dataset.Bytes(v.buf)
	}
	return nil
}

func (p *parser) headerError(err error, h Header, pos int64) error {
	if missing, ok := cursor.Missing(err); ok {
		return &SuspendError{Missing: missing, Offset: pos, Phase: p.phase}
	}
	return p.fatal(err, h.Tag, pos)
}

func (p *parser) fatal(err error, tag dataset.Tag, offset int64) error {
	return newError(err, tag, offset, p.depth())
}

// warn records a semantic finding, or fails when strict.
func (p *parser) warn(err error, tag dataset.Tag, offset int64) error {
	w := newError(err, tag, offset, p.depth())
	if p.opts.strict {
		return w
	}
	p.record.Warnings = append(p.record.Warnings, w)
	p.log.Warn().
		Str("tag", tag.String()).
		Int64("offset", offset).
		Int("depth", w.Depth).
		Err(err).
		Msg("decode warning")
	return nil
}
