package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danmuck/dcmstream/internal/part10"
	"github.com/danmuck/dcmstream/internal/receiver"
	"github.com/rs/zerolog"
)

// store writes each received record as a Part 10 file under dir. With an
// empty dir records are only logged.
type store struct {
	dir string
	log zerolog.Logger
}

func (s store) HandleStream(_ context.Context, st receiver.Stream) error {
	ev := s.log.Info().
		Uint64("stream", st.ID).
		Str("remote", st.Remote).
		Str("syntax", st.Syntax.Name).
		Int("elements", st.Record.Len()).
		Int("warnings", len(st.Record.Warnings))
	if s.dir == "" {
		ev.Msg("record received")
		return nil
	}

	name := fmt.Sprintf("%d-%d.dcm", time.Now().UnixNano(), st.ID)
	tmp, err := os.CreateTemp(s.dir, ".recv-*")
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if _, err := part10.Write(tmp, part10.NewFile(st.Record, st.Syntax)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("store: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("store: %w", err)
	}
	ev.Str("path", path).Msg("record stored")
	return nil
}
