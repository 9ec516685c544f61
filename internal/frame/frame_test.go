package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestReadWriteFrameRoundTrip(t *testing.T) {
	in := Frame{
		Header:  Header{StreamID: 42, SyntaxCode: 2, Flags: FlagLast},
		Payload: []byte("element bytes"),
	}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if buf.Len() != int(FixedHeaderLen)+len(in.Payload) {
		t.Fatalf("unexpected frame size %d", buf.Len())
	}
	out, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Header.Magic != Magic || out.Header.StreamID != 42 || out.Header.SyntaxCode != 2 || !out.Header.Last() {
		t.Fatalf("header mismatch: got=%+v", out.Header)
	}
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("payload mismatch")
	}
	if _, err := ReadFrame(&buf, DefaultLimits()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected clean EOF between frames, got %v", err)
	}
}

func TestReadFrameMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{1, 2, 3}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestReadFrameRejectsHeaders(t *testing.T) {
	cases := []struct {
		name string
		h    Header
		want error
	}{
		{"magic", Header{Magic: 1, Version: Version, HeaderLen: FixedHeaderLen}, ErrBadMagic},
		{"version", Header{Magic: Magic, Version: 9, HeaderLen: FixedHeaderLen}, ErrUnsupportedVersion},
		{"header len", Header{Magic: Magic, Version: Version, HeaderLen: 8}, ErrHeaderLenTooSmall},
		{"extension", Header{Magic: Magic, Version: Version, HeaderLen: 0xFFFF}, ErrExtensionTooLarge},
		{"payload", Header{Magic: Magic, Version: Version, HeaderLen: FixedHeaderLen, PayloadLen: 1 << 40}, ErrPayloadTooLarge},
	}
	for _, tc := range cases {
		_, err := ReadFrame(bytes.NewReader(EncodeHeader(tc.h)), DefaultLimits())
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestReadFrameSkipsExtension(t *testing.T) {
	h := Header{Magic: Magic, Version: Version, HeaderLen: FixedHeaderLen + 4, StreamID: 7, PayloadLen: 2}
	raw := append(EncodeHeader(h), 0xEE, 0xEE, 0xEE, 0xEE, 'o', 'k')
	f, err := ReadFrame(bytes.NewReader(raw), DefaultLimits())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(f.Payload) != "ok" {
		t.Fatalf("extension not skipped: %q", f.Payload)
	}
}

func TestSplit(t *testing.T) {
	data := []byte("0123456789")
	frames := Split(5, 3, data, 4)
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	var joined []byte
	for i, f := range frames {
		if f.Header.Last() != (i == len(frames)-1) {
			t.Fatalf("frame %d: last flag %v", i, f.Header.Last())
		}
		if f.Header.StreamID != 5 || f.Header.SyntaxCode != 3 {
			t.Fatalf("frame %d: header %+v", i, f.Header)
		}
		joined = append(joined, f.Payload...)
	}
	if !bytes.Equal(joined, data) {
		t.Fatalf("split lost bytes: %q", joined)
	}

	empty := Split(1, 1, nil, 4)
	if len(empty) != 1 || !empty[0].Header.Last() || len(empty[0].Payload) != 0 {
		t.Fatalf("empty stream must yield one last frame: %+v", empty)
	}
}
