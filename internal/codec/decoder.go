package codec

import (
	"fmt"

	"github.com/danmuck/dcmstream/internal/cursor"
	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/danmuck/dcmstream/internal/syntax"
)

// Decoder incrementally decodes one record. Bytes arrive through Write in
// chunks of any size; Decode returns an error matching ErrSuspend until
// enough bytes are buffered, and Finish marks the end of input.
//
// A Decoder is not safe for concurrent use. After a fatal error every call
// returns an error wrapping ErrDecoderFailed.
type Decoder struct {
	ts     syntax.Syntax
	r      *cursor.Reader
	p      *parser
	err    error
	record *dataset.Record
}

// NewDecoder returns a decoder for records encoded with ts.
func NewDecoder(ts syntax.Syntax, opts ...Option) *Decoder {
	o := buildOptions(opts)
	r := cursor.NewReader(ts.ByteOrder, o.putback)
	return &Decoder{ts: ts, r: r, p: newParser(ts, r, o)}
}

// Write buffers p. The bytes are copied.
func (d *Decoder) Write(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.failed()
	}
	if d.r.Closed() {
		return 0, ErrFinished
	}
	d.r.Feed(p)
	return len(p), nil
}

// Finish marks the end of input. Shortfalls after Finish are ErrEndOfStream.
func (d *Decoder) Finish() {
	d.r.Close()
}

// Decode advances as far as the buffered bytes allow. It returns the record
// once complete and on every later call.
func (d *Decoder) Decode() (*dataset.Record, error) {
	if d.err != nil {
		return nil, d.failed()
	}
	if d.record != nil {
		return d.record, nil
	}
	if err := d.p.run(); err != nil {
		if IsSuspend(err) {
			d.p.log.Trace().Int64("offset", d.r.Position()).Str("phase", d.p.phase.String()).Msg("decode suspended")
			return nil, err
		}
		d.err = err
		d.p.log.Debug().Err(err).Msg("decode failed")
		return nil, err
	}
	d.record = d.p.record
	return d.record, nil
}

// State reports the parser position.
func (d *Decoder) State() State {
	return d.p.state()
}

// Rest returns a copy of the buffered bytes after a completed record.
func (d *Decoder) Rest() []byte {
	n := d.r.Buffered()
	if n == 0 {
		return nil
	}
	p, err := d.r.Read(n)
	if err != nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, p)
	return out
}

// Syntax returns the syntax the decoder was built for.
func (d *Decoder) Syntax() syntax.Syntax {
	return d.ts
}

func (d *Decoder) failed() error {
	return fmt.Errorf("%w: %w", ErrDecoderFailed, d.err)
}

// Decode decodes a complete record from data.
func Decode(data []byte, ts syntax.Syntax, opts ...Option) (*dataset.Record, error) {
	d := NewDecoder(ts, opts...)
	if _, err := d.Write(data); err != nil {
		return nil, err
	}
	d.Finish()
	return d.Decode()
}
