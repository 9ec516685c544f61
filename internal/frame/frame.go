// Package frame carries encoded dataset streams over a byte transport in
// chunks. Each frame has a fixed 32-byte big-endian header naming the
// stream, its transfer syntax code and whether it is the last chunk.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	FixedHeaderLen uint16 = 32
	Magic          uint32 = 0x44434D31
	Version        uint16 = 1

	// FlagLast marks the final chunk of a stream.
	FlagLast uint32 = 0x01
	// FlagAbort discards a stream without decoding the rest.
	FlagAbort uint32 = 0x02
	// FlagResponse marks the receiver's reply for a finished stream.
	FlagResponse uint32 = 0x04
	// FlagError marks a reply whose payload is an error message.
	FlagError uint32 = 0x08
)

var (
	ErrShortHeader        = errors.New("frame: short fixed header")
	ErrBadMagic           = errors.New("frame: bad magic")
	ErrUnsupportedVersion = errors.New("frame: unsupported version")
	ErrHeaderLenTooSmall  = errors.New("frame: header_len smaller than fixed header")
	ErrExtensionTooLarge  = errors.New("frame: header extension too large")
	ErrPayloadTooLarge    = errors.New("frame: payload too large")
)

// Header is the fixed wire header.
type Header struct {
	Magic     uint32
	Version   uint16
	HeaderLen uint16
	StreamID  uint64
	// SyntaxCode is the transfer syntax code of the stream.
	SyntaxCode uint32
	Flags      uint32
	PayloadLen uint64
}

// Last reports whether FlagLast is set.
func (h Header) Last() bool {
	return h.Flags&FlagLast != 0
}

// Frame is one chunk of a stream.
type Frame struct {
	Header  Header
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxExtensionBytes uint64
	MaxPayloadBytes   uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxExtensionBytes: 4 * 1024,
		MaxPayloadBytes:   8 * 1024 * 1024,
	}
}

// ReadFrame reads one frame. Header bytes beyond the fixed header are
// skipped so later versions can extend it.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [FixedHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if h.Magic != Magic {
		return Frame{}, fmt.Errorf("%w: %#08x", ErrBadMagic, h.Magic)
	}
	if h.Version != Version {
		return Frame{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.HeaderLen < FixedHeaderLen {
		return Frame{}, ErrHeaderLenTooSmall
	}
	extLen := uint64(h.HeaderLen - FixedHeaderLen)
	if extLen > limits.MaxExtensionBytes {
		return Frame{}, ErrExtensionTooLarge
	}
	if h.PayloadLen > limits.MaxPayloadBytes {
		return Frame{}, ErrPayloadTooLarge
	}

	if extLen > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extLen)); err != nil {
			return Frame{}, err
		}
	}
	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Header: h, Payload: payload}, nil
}

// WriteFrame writes f, filling in magic, version and lengths.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	payloadLen := uint64(len(f.Payload))
	if payloadLen > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}

	h := f.Header
	h.Magic = Magic
	h.Version = Version
	h.HeaderLen = FixedHeaderLen
	h.PayloadLen = payloadLen

	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if payloadLen > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, FixedHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], h.HeaderLen)
	binary.BigEndian.PutUint64(buf[8:16], h.StreamID)
	binary.BigEndian.PutUint32(buf[16:20], h.SyntaxCode)
	binary.BigEndian.PutUint32(buf[20:24], h.Flags)
	binary.BigEndian.PutUint64(buf[24:32], h.PayloadLen)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != int(FixedHeaderLen) {
		return Header{}, fmt.Errorf("frame: invalid fixed header length: %d", len(b))
	}
	return Header{
		Magic:      binary.BigEndian.Uint32(b[0:4]),
		Version:    binary.BigEndian.Uint16(b[4:6]),
		HeaderLen:  binary.BigEndian.Uint16(b[6:8]),
		StreamID:   binary.BigEndian.Uint64(b[8:16]),
		SyntaxCode: binary.BigEndian.Uint32(b[16:20]),
		Flags:      binary.BigEndian.Uint32(b[20:24]),
		PayloadLen: binary.BigEndian.Uint64(b[24:32]),
	}, nil
}

// Split cuts data into frames of at most chunk payload bytes. The last frame
// carries FlagLast; empty data yields a single empty last frame.
func Split(streamID uint64, syntaxCode uint32, data []byte, chunk int) []Frame {
	if chunk <= 0 {
		chunk = len(data)
	}
	var out []Frame
	for {
		n := min(chunk, len(data))
		f := Frame{
			Header:  Header{StreamID: streamID, SyntaxCode: syntaxCode},
			Payload: data[:n],
		}
		data = data[n:]
		if len(data) == 0 {
			f.Header.Flags |= FlagLast
			return append(out, f)
		}
		out = append(out, f)
	}
}
