package dict

import (
	"strings"
	"sync"
	"testing"

	"github.com/danmuck/dcmstream/internal/dataset"
)

func TestResolveBuiltinAndRules(t *testing.T) {
	d := Builtin()

	entry, ok := d.Resolve(dataset.NewTag(0x0010, 0x0010))
	if !ok || entry.VR != dataset.PN || entry.Keyword != "PatientName" {
		t.Fatalf("unexpected patient name entry: %+v ok=%v", entry, ok)
	}

	gl, ok := d.Resolve(dataset.NewTag(0x0009, 0x0000))
	if !ok || gl.VR != dataset.UL {
		t.Fatalf("expected group length rule, got %+v ok=%v", gl, ok)
	}

	pc, ok := d.Resolve(dataset.NewTag(0x0029, 0x0010))
	if !ok || pc.VR != dataset.LO {
		t.Fatalf("expected private creator rule, got %+v ok=%v", pc, ok)
	}

	if _, ok := d.Resolve(dataset.NewTag(0x0029, 0x1010)); ok {
		t.Fatalf("expected private data element to be unknown")
	}
	if _, ok := d.Resolve(dataset.ItemTag); ok {
		t.Fatalf("item marker must never resolve")
	}
}

func TestBuiltinIsSharedAcrossGoroutines(t *testing.T) {
	var wg sync.WaitGroup
	got := make([]*Dictionary, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Builtin()
			got[i].Resolve(dataset.PixelDataTag)
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(got); i++ {
		if got[i] != got[0] {
			t.Fatalf("builtin dictionary constructed more than once")
		}
	}
}

func TestParseVM(t *testing.T) {
	cases := map[string]VM{
		"1":    {Min: 1, Max: 1},
		"1-3":  {Min: 1, Max: 3},
		"1-n":  {Min: 1, Step: 1},
		"2-2n": {Min: 2, Step: 2},
	}
	for in, want := range cases {
		got, err := ParseVM(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %+v want %+v", in, got, want)
		}
		if got.String() != in {
			t.Fatalf("format %q: got %q", in, got.String())
		}
	}
	if _, err := ParseVM("3-1"); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if !(VM{Min: 2, Step: 2}).Allows(4) || (VM{Min: 2, Step: 2}).Allows(3) {
		t.Fatalf("unexpected 2-2n multiplicity check")
	}
}

func TestLoadOverridesBase(t *testing.T) {
	src := `
[[entry]]
tag = "0029,1010"
vr = "lo"
vm = "1-n"
keyword = "VendorNote"

[[entry]]
tag = "(0010,0010)"
vr = "LO"
`
	d, err := Load(strings.NewReader(src), Builtin())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	entry, ok := d.Resolve(dataset.NewTag(0x0029, 0x1010))
	if !ok || entry.VR != dataset.LO || entry.VM.Max != 0 {
		t.Fatalf("unexpected private entry: %+v", entry)
	}
	if tag, ok := d.Lookup("VendorNote"); !ok || tag != dataset.NewTag(0x0029, 0x1010) {
		t.Fatalf("keyword lookup failed: %v %v", tag, ok)
	}
	if entry, _ := d.Resolve(dataset.NewTag(0x0010, 0x0010)); entry.VR != dataset.LO {
		t.Fatalf("override not applied: %+v", entry)
	}
	if entry, _ := Builtin().Resolve(dataset.NewTag(0x0010, 0x0010)); entry.VR != dataset.PN {
		t.Fatalf("base dictionary was modified: %+v", entry)
	}
}

func TestLoadRejectsUnknownVR(t *testing.T) {
	_, err := Load(strings.NewReader("[[entry]]\ntag = \"0029,1010\"\nvr = \"XX\"\n"), nil)
	if err == nil || !strings.Contains(err.Error(), "unknown vr") {
		t.Fatalf("expected unknown vr error, got %v", err)
	}
}

func TestNilDictionaryResolvesNothing(t *testing.T) {
	var d *Dictionary
	if _, ok := d.Lookup("PatientName"); ok {
		t.Fatalf("nil dictionary must not resolve keywords")
	}
	if _, ok := d.Resolve(dataset.NewTag(0x0010, 0x0010)); ok {
		t.Fatalf("nil dictionary must not resolve tags")
	}
}
