package receiver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/dcmstream/internal/codec"
	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/danmuck/dcmstream/internal/frame"
	"github.com/danmuck/dcmstream/internal/syntax"
	"github.com/rs/zerolog"
)

var ErrNoResponse = errors.New("receiver: connection closed without response")

// RemoteError is a failure reported by the receiver for a delivered stream.
// Send does not retry it.
type RemoteError struct {
	StreamID uint64
	Message  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("receiver: stream %d rejected: %s", e.StreamID, e.Message)
}

// SendConfig controls a Sender.
type SendConfig struct {
	ChunkSize       int
	DialTimeout     time.Duration
	ResponseTimeout time.Duration
	// MaxAttempts bounds delivery attempts; zero or less retries until ctx is done.
	MaxAttempts int
	Backoff     BackoffConfig
	Frame       frame.Limits
}

func DefaultSendConfig() SendConfig {
	return SendConfig{
		ChunkSize:       64 * 1024,
		DialTimeout:     5 * time.Second,
		ResponseTimeout: 30 * time.Second,
		MaxAttempts:     5,
		Backoff:         DefaultBackoff(),
		Frame:           frame.DefaultLimits(),
	}
}

type Sender struct {
	cfg    SendConfig
	log    zerolog.Logger
	nextID atomic.Uint64

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewSender(cfg SendConfig, logger zerolog.Logger) *Sender {
	if cfg.Frame.MaxPayloadBytes == 0 {
		cfg.Frame = frame.DefaultLimits()
	}
	if cfg.ChunkSize <= 0 || uint64(cfg.ChunkSize) > cfg.Frame.MaxPayloadBytes {
		cfg.ChunkSize = int(min(uint64(64*1024), cfg.Frame.MaxPayloadBytes))
	}
	return &Sender{
		cfg: cfg,
		log: logger,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SendRecord encodes rec with ts and sends it.
func (s *Sender) SendRecord(ctx context.Context, addr string, rec *dataset.Record, ts syntax.Syntax, opts ...codec.Option) error {
	data, err := codec.Encode(rec, ts, opts...)
	if err != nil {
		return err
	}
	return s.Send(ctx, addr, ts, data)
}

// Send delivers an encoded stream to addr and waits for the receiver's
// response. Transport failures are retried with backoff.
func (s *Sender) Send(ctx context.Context, addr string, ts syntax.Syntax, data []byte) error {
	id := s.nextID.Add(1)
	frames := frame.Split(id, ts.Code, data, s.cfg.ChunkSize)
	log := s.log.With().Str("addr", addr).Uint64("stream", id).Logger()

	attempt := 0
	for {
		attempt++
		err := s.sendOnce(ctx, addr, id, frames)
		if err == nil {
			log.Debug().Int("frames", len(frames)).Int("bytes", len(data)).Int("attempt", attempt).Msg("stream delivered")
			return nil
		}
		var remote *RemoteError
		if errors.As(err, &remote) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.cfg.MaxAttempts > 0 && attempt >= s.cfg.MaxAttempts {
			return fmt.Errorf("receiver: send failed after %d attempts: %w", attempt, err)
		}
		delay := s.backoff(attempt)
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("send failed")
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Sender) backoff(attempt int) time.Duration {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return NextBackoffDelay(s.cfg.Backoff, attempt, s.rng)
}

func (s *Sender) sendOnce(ctx context.Context, addr string, id uint64, frames []frame.Frame) error {
	d := net.Dialer{Timeout: s.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if s.cfg.ResponseTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.ResponseTimeout))
	}
	w := bufio.NewWriter(conn)
	for _, f := range frames {
		if err := frame.WriteFrame(w, f, s.cfg.Frame); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	r := bufio.NewReader(conn)
	for {
		fr, err := frame.ReadFrame(r, s.cfg.Frame)
		if err != nil {
			if errors.Is(err, net.ErrClosed) && ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %w", ErrNoResponse, err)
		}
		h := fr.Header
		if h.Flags&frame.FlagResponse == 0 || h.StreamID != id {
			continue
		}
		if h.Flags&frame.FlagError != 0 {
			return &RemoteError{StreamID: id, Message: string(fr.Payload)}
		}
		return nil
	}
}
