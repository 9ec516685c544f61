package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/dcmstream/internal/codec"
	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/danmuck/dcmstream/internal/syntax"
	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestTemplatesLoad(t *testing.T) {
	dir := t.TempDir()
	recvPath := filepath.Join(dir, "dcmrecv.toml")
	if err := WriteTemplate(recvPath, "receiver", false); err != nil {
		t.Fatalf("write receiver template: %v", err)
	}
	recv, err := LoadReceiver(recvPath)
	if err != nil {
		t.Fatalf("load receiver template: %v", err)
	}
	want := DefaultReceiver()
	want.Server.Codec.MaxValueLength = 0
	if diff := cmp.Diff(want, recv); diff != "" {
		t.Fatalf("receiver template differs from defaults (-want +got):\n%s", diff)
	}

	sendPath := filepath.Join(dir, "dcmsend.toml")
	if err := WriteTemplate(sendPath, "sender", false); err != nil {
		t.Fatalf("write sender template: %v", err)
	}
	send, err := LoadSender(sendPath)
	if err != nil {
		t.Fatalf("load sender template: %v", err)
	}
	def := DefaultSender()
	if send.Addr != def.Addr || send.Syntax.UID != def.Syntax.UID || send.LengthStyle != def.LengthStyle {
		t.Fatalf("sender template differs: %+v", send)
	}
	if diff := cmp.Diff(def.Send, send.Send); diff != "" {
		t.Fatalf("sender template send config (-want +got):\n%s", diff)
	}

	if err := WriteTemplate(sendPath, "sender", false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(sendPath, "sender", true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := Template("ghost"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestLoadReceiverOverlaysDefinedKeys(t *testing.T) {
	path := writeFile(t, "recv.toml", `
node = " recv-b "
addr = "0.0.0.0:4242"
cors_origins = [" https://a.example ", ""]
idle_timeout = "2s"
strict = true
max_depth = 4
`)
	cfg, err := LoadReceiver(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Node != "recv-b" || cfg.Server.Addr != "0.0.0.0:4242" {
		t.Fatalf("identity not applied: %+v", cfg.Server)
	}
	if cfg.Server.IdleTimeout != 2*time.Second || !cfg.Server.Strict || cfg.Server.Codec.MaxDepth != 4 {
		t.Fatalf("limits not applied: %+v", cfg.Server)
	}
	if diff := cmp.Diff([]string{"https://a.example"}, cfg.CorsOrigins); diff != "" {
		t.Fatalf("cors origins (-want +got):\n%s", diff)
	}
	def := DefaultReceiver()
	if cfg.Server.MaxConnections != def.Server.MaxConnections || cfg.AdminAddr != def.AdminAddr {
		t.Fatalf("undefined keys must keep defaults: %+v", cfg)
	}
}

func TestLoadReceiverErrors(t *testing.T) {
	cases := map[string]string{
		"duration":    `idle_timeout = "soon"`,
		"unknown key": `nodes = "x"`,
		"validation":  `max_connections = 0`,
		"admin clash": "addr = \"127.0.0.1:1\"\nadmin_addr = \"127.0.0.1:1\"",
		"syntax":      `node = [`,
	}
	for name, body := range cases {
		if _, err := LoadReceiver(writeFile(t, "bad.toml", body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadReceiver(filepath.Join(t.TempDir(), "missing.toml")); err == nil || !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("expected load failure, got %v", err)
	}
}

func TestLoadSender(t *testing.T) {
	path := writeFile(t, "send.toml", `
addr = "10.0.0.5:11112"
syntax = "explicit-be"
length_style = "undefined"
chunk_size = 1024
backoff_initial = "10ms"
backoff_jitter = false
`)
	cfg, err := LoadSender(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "10.0.0.5:11112" || cfg.Syntax.UID != syntax.ExplicitVRBigEndian.UID || cfg.LengthStyle != codec.StyleUndefined {
		t.Fatalf("unexpected sender config %+v", cfg)
	}
	if cfg.Send.ChunkSize != 1024 || cfg.Send.Backoff.InitialDelay != 10*time.Millisecond || cfg.Send.Backoff.Jitter {
		t.Fatalf("send options not applied: %+v", cfg.Send)
	}

	for name, body := range map[string]string{
		"style":      `length_style = "sometimes"`,
		"syntax":     `syntax = "1.2.3.4"`,
		"chunk":      `chunk_size = 0`,
		"multiplier": `backoff_multiplier = 0.5`,
	} {
		if _, err := LoadSender(writeFile(t, "bad.toml", body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParseSyntax(t *testing.T) {
	cases := map[string]string{
		"implicit-le":            syntax.ImplicitVRLittleEndian.UID,
		" Explicit-LE ":          syntax.ExplicitVRLittleEndian.UID,
		"implicit-be":            syntax.ImplicitVRBigEndian.UID,
		"1.2.840.10008.1.2.4.50": syntax.JPEGBaseline.UID,
	}
	for in, want := range cases {
		got, err := ParseSyntax(in)
		if err != nil || got.UID != want {
			t.Fatalf("ParseSyntax(%q) = %v, %v", in, got.UID, err)
		}
	}
}

func TestReceiverResolver(t *testing.T) {
	cfg := DefaultReceiver()
	if _, err := cfg.Resolver(); err != nil {
		t.Fatalf("builtin resolver: %v", err)
	}
	cfg.Dictionary = writeFile(t, "private.toml", "[[entry]]\ntag = \"0029,1010\"\nvr = \"LO\"\nkeyword = \"VendorNote\"\n")
	r, err := cfg.Resolver()
	if err != nil {
		t.Fatalf("extended resolver: %v", err)
	}
	if e, ok := r.Resolve(dataset.NewTag(0x0029, 0x1010)); !ok || e.Keyword != "VendorNote" {
		t.Fatalf("extension not loaded: %+v", e)
	}
	cfg.Dictionary = filepath.Join(t.TempDir(), "missing.toml")
	if _, err := cfg.Resolver(); err == nil {
		t.Fatalf("expected missing dictionary error")
	}
}
