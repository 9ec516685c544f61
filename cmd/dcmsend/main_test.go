package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/danmuck/dcmstream/internal/config"
	"github.com/danmuck/dcmstream/internal/receiver"
	"github.com/danmuck/dcmstream/internal/syntax"
	"github.com/danmuck/dcmstream/internal/testutil/testlog"
)

func TestSendAllDeliversFiles(t *testing.T) {
	log := testlog.Start(t)

	var mu sync.Mutex
	got := map[string]int{}
	rcfg := receiver.DefaultConfig()
	rcfg.Node = "recv-dcmsend-test"
	srv, err := receiver.NewServer(rcfg, receiver.HandlerFunc(func(_ context.Context, s receiver.Stream) error {
		mu.Lock()
		defer mu.Unlock()
		got[s.Syntax.UID]++
		return nil
	}), log)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	defer func() {
		cancel()
		<-done
	}()

	dir := t.TempDir()
	var paths []string
	for i, name := range []string{"a.raw", "b.raw", "c.raw"} {
		rec := []byte{0x10, 0x00, 0x10, 0x00, 'P', 'N', 0x04, 0x00, 'D', 'o', 'e', byte('0' + i)}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, rec, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		paths = append(paths, path)
	}

	cfg := config.DefaultSender()
	cfg.Addr = ln.Addr().String()
	cfg.Syntax = syntax.ExplicitVRBigEndian
	cfg.Send.ChunkSize = 5
	if err := sendAll(context.Background(), cfg, options{from: "explicit-le", parallel: 2}, paths, log); err != nil {
		t.Fatalf("send all: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if got[syntax.ExplicitVRBigEndian.UID] != 3 {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestSendAllReportsMissingFile(t *testing.T) {
	log := testlog.Start(t)
	cfg := config.DefaultSender()
	err := sendAll(context.Background(), cfg, options{from: "explicit-le", parallel: 1}, []string{filepath.Join(t.TempDir(), "missing")}, log)
	if err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestOutgoingSyntax(t *testing.T) {
	if got := outgoingSyntax(syntax.JPEGBaseline, syntax.ExplicitVRLittleEndian); got.UID != syntax.JPEGBaseline.UID {
		t.Fatalf("compressed source must keep its syntax, got %s", got)
	}
	if got := outgoingSyntax(syntax.ImplicitVRLittleEndian, syntax.ExplicitVRBigEndian); got.UID != syntax.ExplicitVRBigEndian.UID {
		t.Fatalf("uncompressed source must take the configured syntax, got %s", got)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(options{addr: "10.1.1.1:104", syntax: "implicit-le"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "10.1.1.1:104" || cfg.Syntax.UID != syntax.ImplicitVRLittleEndian.UID {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if _, err := loadConfig(options{syntax: "bogus"}); err == nil {
		t.Fatalf("expected bad syntax error")
	}
}
