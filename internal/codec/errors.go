package codec

import (
	"errors"
	"fmt"

	"github.com/danmuck/dcmstream/internal/cursor"
	"github.com/danmuck/dcmstream/internal/dataset"
)

// Class groups failures by how they propagate.
type Class uint8

const (
	// ClassStructural errors abort the call; the stream must not be reused.
	ClassStructural Class = iota + 1
	// ClassStream covers true stream failures (end of stream, putback).
	ClassStream
	// ClassSemantic errors are warnings on decode unless strict, fatal on encode.
	ClassSemantic
	// ClassEncapsulation covers the compressed pixel payload rules.
	ClassEncapsulation
)

func (c Class) String() string {
	switch c {
	case ClassStructural:
		return "structural"
	case ClassStream:
		return "stream"
	case ClassSemantic:
		return "semantic"
	case ClassEncapsulation:
		return "encapsulation"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Structural.
var (
	ErrInvalidTag                  = errors.New("codec: invalid tag")
	ErrIllegalUndefinedLength      = errors.New("codec: undefined length not allowed for this value representation")
	ErrUndefinedLengthOBOW         = errors.New("codec: illegal element with OB or OW value representation and undefined length")
	ErrElemLengthExceeds16BitField = errors.New("codec: length of element value exceeds maximum of 16-bit length field")
	ErrElemLengthExceeds32BitField = errors.New("codec: length of element value exceeds maximum of 32-bit length field")
	ErrSeqOrItemContentOverflow    = errors.New("codec: item or sequence content exceeds maximum of 32-bit length field")
	ErrElemLengthLargerThanItem    = errors.New("codec: length of element larger than explicit length of surrounding scope")
	ErrValueKind                   = errors.New("codec: value kind does not match value representation")
	ErrValueTooLarge               = errors.New("codec: value length exceeds configured limit")
	ErrNestingTooDeep              = errors.New("codec: sequence nesting exceeds configured limit")
)

// Stream.
var (
	ErrEndOfStream   = cursor.ErrEndOfStream
	ErrPutbackFailed = cursor.ErrPutbackFailed
	ErrDecoderFailed = errors.New("codec: decoder failed earlier and cannot be reused")
	ErrFinished      = errors.New("codec: write after finish")
)

// Semantic.
var (
	ErrDoubledTag                    = errors.New("codec: doubled tag")
	ErrTagOrder                      = errors.New("codec: tags not in ascending order")
	ErrSequDelimitationItemMissing   = errors.New("codec: sequence delimitation item missing")
	ErrItemDelimitationItemMissing   = errors.New("codec: item delimitation item missing")
	ErrPrematureSequDelimitationItem = errors.New("codec: sequence delimitation item occurred before item was completely read")
	ErrUnknownVR                     = errors.New("codec: unknown value representation")
	ErrStrayDelimiter                = errors.New("codec: delimiter outside an undefined-length scope")
	ErrDelimiterLength               = errors.New("codec: delimiter with non-zero length")
)

// Encapsulation.
var (
	ErrInvalidBasicOffsetTable    = dataset.ErrInvalidBasicOffsetTable
	ErrPixelDataExplLengthIllegal = errors.New("codec: pixel data in top level dataset in compressed transfer syntax uses explicit length")
	ErrFragmentDelimiterMissing   = errors.New("codec: sequence delimitation item missing after pixel fragments")
	ErrInvalidFragment            = errors.New("codec: invalid pixel fragment")
	ErrEncapsulationNotAllowed    = errors.New("codec: encapsulated pixel data requires a compressed transfer syntax")
)

var classes = map[error]Class{
	ErrInvalidTag:                    ClassStructural,
	ErrIllegalUndefinedLength:        ClassStructural,
	ErrUndefinedLengthOBOW:           ClassStructural,
	ErrElemLengthExceeds16BitField:   ClassStructural,
	ErrElemLengthExceeds32BitField:   ClassStructural,
	ErrSeqOrItemContentOverflow:      ClassStructural,
	ErrElemLengthLargerThanItem:      ClassStructural,
	ErrValueKind:                     ClassStructural,
	ErrValueTooLarge:                 ClassStructural,
	ErrNestingTooDeep:                ClassStructural,
	ErrEndOfStream:                   ClassStream,
	ErrPutbackFailed:                 ClassStream,
	ErrDecoderFailed:                 ClassStream,
	ErrFinished:                      ClassStream,
	ErrDoubledTag:                    ClassSemantic,
	ErrTagOrder:                      ClassSemantic,
	ErrSequDelimitationItemMissing:   ClassSemantic,
	ErrItemDelimitationItemMissing:   ClassSemantic,
	ErrPrematureSequDelimitationItem: ClassSemantic,
	ErrUnknownVR:                     ClassSemantic,
	ErrStrayDelimiter:                ClassSemantic,
	ErrDelimiterLength:               ClassSemantic,
	ErrInvalidBasicOffsetTable:       ClassEncapsulation,
	ErrPixelDataExplLengthIllegal:    ClassEncapsulation,
	ErrFragmentDelimiterMissing:      ClassEncapsulation,
	ErrInvalidFragment:               ClassEncapsulation,
	ErrEncapsulationNotAllowed:       ClassEncapsulation,
}

// Error is a codec failure or decode warning with its stream position.
type Error struct {
	Class  Class
	Err    error
	Tag    dataset.Tag
	Offset int64
	Depth  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v (%s, tag=%s offset=%d depth=%d)", e.Err, e.Class, e.Tag, e.Offset, e.Depth)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(err error, tag dataset.Tag, offset int64, depth int) *Error {
	return &Error{Class: classify(err), Err: err, Tag: tag, Offset: offset, Depth: depth}
}

func classify(err error) Class {
	for sentinel, class := range classes {
		if errors.Is(err, sentinel) {
			return class
		}
	}
	return ClassStructural
}

// ClassOf returns the class of a codec error, or 0 if err is not one.
func ClassOf(err error) Class {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Class
	}
	return 0
}

// ErrSuspend is matched by every *SuspendError. It is not a failure: feed
// more bytes and call Decode again.
var ErrSuspend = errors.New("codec: suspended, more data required")

// SuspendError reports where decoding stopped and how many bytes the pending read lacks.
type SuspendError struct {
	Missing int
	Offset  int64
	Phase   Phase
}

func (e *SuspendError) Error() string {
	return fmt.Sprintf("codec: suspended in %s at offset %d, need %d more bytes", e.Phase, e.Offset, e.Missing)
}

func (e *SuspendError) Is(target error) bool {
	return target == ErrSuspend
}

// IsSuspend reports whether err is the non-error suspend signal.
func IsSuspend(err error) bool {
	return errors.Is(err, ErrSuspend)
}
