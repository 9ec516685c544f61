package codec

import (
	"fmt"

	"github.com/danmuck/dcmstream/internal/dataset"
)

// Phase is the parser's position within the element grammar.
type Phase uint8

const (
	// PhaseHeader expects the next element header of a dataset scope.
	PhaseHeader Phase = iota
	// PhaseAwaitingDelimiter is a dataset scope inside an undefined-length
	// item; an item delimiter closes it.
	PhaseAwaitingDelimiter
	// PhaseNestedDescent expects an item or delimiter inside a sequence or
	// fragment list.
	PhaseNestedDescent
	// PhaseValue is copying a value payload.
	PhaseValue
	// PhaseComplete means the record is fully decoded.
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseHeader:
		return "header"
	case PhaseAwaitingDelimiter:
		return "awaiting-delimiter"
	case PhaseNestedDescent:
		return "nested-descent"
	case PhaseValue:
		return "value"
	case PhaseComplete:
		return "complete"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// State is a snapshot of a decoder's progress.
type State struct {
	Phase    Phase
	Depth    int
	Position int64
	// ValueRemaining is the number of payload bytes still to copy in PhaseValue.
	ValueRemaining int
	Buffered       int
	Warnings       int
}

type scopeKind uint8

const (
	scopeRecord scopeKind = iota
	scopeItem
	scopeSequence
	scopeFragments
)

func (k scopeKind) String() string {
	switch k {
	case scopeRecord:
		return "record"
	case scopeItem:
		return "item"
	case scopeSequence:
		return "sequence"
	default:
		return "fragments"
	}
}

// scope is one open nesting level. Offsets are absolute stream positions.
type scope struct {
	kind      scopeKind
	undefined bool
	// end is the offset one past the scope content; negative when unbounded.
	end int64
	// start is the offset of the owning header.
	start int64
	tag   dataset.Tag

	ds      *dataset.Dataset
	elem    *dataset.Element
	enc     *dataset.Encapsulated
	last    dataset.Tag
	hasLast bool
	seenBOT bool
}

func (s *scope) bounded() bool {
	return s.end >= 0
}

func (s *scope) phase() Phase {
	switch s.kind {
	case scopeSequence, scopeFragments:
		return PhaseNestedDescent
	case scopeItem:
		if s.undefined {
			return PhaseAwaitingDelimiter
		}
	}
	return PhaseHeader
}

// pendingValue tracks a payload being copied across suspensions.
type pendingValue struct {
	header Header
	offset int64
	elem   *dataset.Element
	buf    []byte
	want   int
	target valueTarget
}

type valueTarget uint8

const (
	targetElement valueTarget = iota
	targetOffsetTable
	targetFragment
)

func (v *pendingValue) remaining() int {
	return v.want - len(v.buf)
}
