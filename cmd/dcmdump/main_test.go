package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/dcmstream/internal/codec"
	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/danmuck/dcmstream/internal/part10"
	"github.com/danmuck/dcmstream/internal/syntax"
	"github.com/danmuck/dcmstream/internal/testutil/testlog"
)

func TestDumpFile(t *testing.T) {
	log := testlog.Start(t)
	rec := dataset.NewRecord(
		dataset.NewString(dataset.NewTag(0x0010, 0x0010), dataset.PN, "Doe^Jane"),
		dataset.NewString(dataset.NewTag(0x0029, 0x1010), dataset.LO, "note"),
	)
	dir := t.TempDir()

	f, err := os.Create(filepath.Join(dir, "a.dcm"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := part10.Write(f, part10.NewFile(rec, syntax.ExplicitVRLittleEndian)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = f.Close()

	var out strings.Builder
	if err := dumpFile(&out, f.Name(), options{raw: "explicit-le", meta: true, maxValue: 64}, log); err != nil {
		t.Fatalf("dump: %v", err)
	}
	for _, want := range []string{"# transfer syntax: Explicit VR Little Endian", "# file meta", "(0002,0010) UI", "(0010,0010) PN #8 [Doe^Jane] PatientName"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("missing %q in:\n%s", want, out.String())
		}
	}

	// A bare implicit stream needs the dictionary extension for the private tag.
	raw, err := codec.Encode(rec, syntax.ImplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	bare := filepath.Join(dir, "b.raw")
	if err := os.WriteFile(bare, raw, 0o600); err != nil {
		t.Fatalf("write bare: %v", err)
	}
	dictPath := filepath.Join(dir, "private.toml")
	if err := os.WriteFile(dictPath, []byte("[[entry]]\ntag = \"0029,1010\"\nvr = \"LO\"\nkeyword = \"VendorNote\"\n"), 0o600); err != nil {
		t.Fatalf("write dict: %v", err)
	}
	out.Reset()
	if err := dumpFile(&out, bare, options{raw: "implicit-le", maxValue: 64, dictPath: dictPath}, log); err != nil {
		t.Fatalf("dump bare: %v", err)
	}
	if !strings.Contains(out.String(), "(0029,1010) LO #4 [note] VendorNote") {
		t.Fatalf("dictionary not applied:\n%s", out.String())
	}
	if strings.Contains(out.String(), "# file meta") {
		t.Fatalf("meta printed with -meta=false")
	}

	if err := dumpFile(&out, bare, options{raw: "bogus"}, log); err == nil {
		t.Fatalf("expected unknown syntax error")
	}
}
