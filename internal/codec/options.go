package codec

import (
	"github.com/danmuck/dcmstream/internal/cursor"
	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/danmuck/dcmstream/internal/dict"
	"github.com/rs/zerolog"
)

// Limits bounds what a decoder will allocate for a single value.
type Limits struct {
	// MaxValueLength caps a declared value length. Zero disables the check.
	MaxValueLength uint32
	// MaxDepth caps sequence nesting. Zero disables the check.
	MaxDepth int
}

// DefaultLimits accepts every length the wire format can declare.
func DefaultLimits() Limits {
	return Limits{MaxValueLength: dataset.MaxDeclared, MaxDepth: 64}
}

// LengthStyle selects how the encoder writes sequence and item lengths.
type LengthStyle uint8

const (
	// StylePreserve keeps the declared or undefined style of each container.
	StylePreserve LengthStyle = iota
	// StyleDeclared writes every sequence and item with a computed length.
	StyleDeclared
	// StyleUndefined writes every sequence and item with delimiter markers.
	StyleUndefined
)

func (s LengthStyle) String() string {
	switch s {
	case StyleDeclared:
		return "declared"
	case StyleUndefined:
		return "undefined"
	default:
		return "preserve"
	}
}

// ParseLengthStyle parses "preserve", "declared" or "undefined".
func ParseLengthStyle(s string) (LengthStyle, bool) {
	switch s {
	case "", "preserve":
		return StylePreserve, true
	case "declared", "explicit":
		return StyleDeclared, true
	case "undefined":
		return StyleUndefined, true
	}
	return StylePreserve, false
}

type options struct {
	resolver  dict.Resolver
	budget    int64
	strict    bool
	limits    Limits
	putback   int
	logger    zerolog.Logger
	stopGroup int32
	style     LengthStyle
}

func defaultOptions() options {
	return options{
		budget:    -1,
		limits:    DefaultLimits(),
		putback:   cursor.DefaultPutbackCapacity,
		logger:    zerolog.Nop(),
		stopGroup: -1,
	}
}

// Option configures a Decoder or an encode call.
type Option func(*options)

// WithResolver sets the dictionary consulted in implicit mode.
func WithResolver(r dict.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithLength bounds the top-level record to n bytes.
func WithLength(n int64) Option {
	return func(o *options) { o.budget = n }
}

// WithStrict promotes semantic decode warnings to fatal errors.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

func WithLimits(l Limits) Option {
	return func(o *options) { o.limits = l }
}

// WithPutbackCapacity sets how many consumed bytes the reader retains.
func WithPutbackCapacity(n int) Option {
	return func(o *options) { o.putback = n }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStopAtGroupEnd completes the record at the first top-level element
// outside group. That element's header is put back unread.
func WithStopAtGroupEnd(group uint16) Option {
	return func(o *options) { o.stopGroup = int32(group) }
}

// WithLengthStyle selects the encoder's container length style.
func WithLengthStyle(s LengthStyle) Option {
	return func(o *options) { o.style = s }
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
