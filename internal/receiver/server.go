// Package receiver accepts dataset streams delivered as frames over TCP,
// decodes each one incrementally as chunks arrive and hands the finished
// record to a Handler. Send is the matching client.
package receiver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/dcmstream/internal/codec"
	"github.com/danmuck/dcmstream/internal/dataset"
	"github.com/danmuck/dcmstream/internal/dict"
	"github.com/danmuck/dcmstream/internal/frame"
	"github.com/danmuck/dcmstream/internal/observability"
	"github.com/danmuck/dcmstream/internal/syntax"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

var (
	ErrServerClosed     = errors.New("receiver: server closed")
	ErrNotServing       = errors.New("receiver: not serving")
	ErrTooManyStreams   = errors.New("receiver: too many concurrent streams on connection")
	ErrSyntaxChanged    = errors.New("receiver: transfer syntax changed mid-stream")
	ErrStreamIncomplete = errors.New("receiver: connection closed before last frame")
)

// Config controls a Server.
type Config struct {
	Node              string
	Addr              string
	MaxConnections    int64
	MaxStreamsPerConn int
	IdleTimeout       time.Duration
	WriteTimeout      time.Duration
	Strict            bool
	Frame             frame.Limits
	Codec             codec.Limits
	// Resolver overrides the builtin dictionary for implicit streams.
	Resolver dict.Resolver
}

func DefaultConfig() Config {
	return Config{
		Node:              "dcmrecv",
		Addr:              "127.0.0.1:11112",
		MaxConnections:    64,
		MaxStreamsPerConn: 8,
		IdleTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Second,
		Frame:             frame.DefaultLimits(),
		Codec:             codec.DefaultLimits(),
	}
}

func (c Config) Validate() error {
	switch {
	case c.Node == "":
		return errors.New("receiver: node is required")
	case c.Addr == "":
		return errors.New("receiver: addr is required")
	case c.MaxConnections <= 0:
		return fmt.Errorf("receiver: max_connections must be positive, got %d", c.MaxConnections)
	case c.MaxStreamsPerConn <= 0:
		return fmt.Errorf("receiver: max_streams_per_conn must be positive, got %d", c.MaxStreamsPerConn)
	case c.IdleTimeout < 0 || c.WriteTimeout < 0:
		return errors.New("receiver: timeouts must not be negative")
	case c.Frame.MaxPayloadBytes == 0:
		return errors.New("receiver: frame payload limit is required")
	}
	return nil
}

// Stream is a completed stream.
type Stream struct {
	ID     uint64
	Remote string
	Syntax syntax.Syntax
	Bytes  int64
	Chunks int
	Record *dataset.Record
}

// Handler consumes decoded records. A returned error is reported to the sender.
type Handler interface {
	HandleStream(ctx context.Context, s Stream) error
}

type HandlerFunc func(ctx context.Context, s Stream) error

func (f HandlerFunc) HandleStream(ctx context.Context, s Stream) error {
	return f(ctx, s)
}

// Stats is a point-in-time view of server counters.
type Stats struct {
	Node        string `json:"node"`
	ActiveConns int64  `json:"active_conns"`
	Accepted    uint64 `json:"accepted"`
	Rejected    uint64 `json:"rejected"`
	Completed   uint64 `json:"completed"`
	Failed      uint64 `json:"failed"`
	Aborted     uint64 `json:"aborted"`
}

type Server struct {
	cfg     Config
	handler Handler
	log     zerolog.Logger
	sem     *semaphore.Weighted

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
	stop    context.CancelFunc
	wg      sync.WaitGroup

	serving atomic.Bool
	closed  atomic.Bool
	addr    atomic.Value

	active    atomic.Int64
	accepted  atomic.Uint64
	rejected  atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	aborted   atomic.Uint64
}

func NewServer(cfg Config, h Handler, logger zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, errors.New("receiver: handler is required")
	}
	return &Server{
		cfg:     cfg,
		handler: h,
		log:     logger.With().Str("node", cfg.Node).Logger(),
		sem:     semaphore.NewWeighted(cfg.MaxConnections),
		conns:   make(map[net.Conn]struct{}),
	}, nil
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or Close is called.
// It returns after every connection handler has exited.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.closed.Load() {
		_ = ln.Close()
		return ErrServerClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	s.connsMu.Lock()
	s.stop = cancel
	s.connsMu.Unlock()
	defer s.wg.Wait()
	defer cancel()
	defer ln.Close()
	go func() {
		<-ctx.Done()
		s.serving.Store(false)
		s.closeAllConns()
		_ = ln.Close()
	}()

	s.addr.Store(ln.Addr())
	s.serving.Store(true)
	s.log.Info().Str("addr", ln.Addr().String()).Msg("receiver listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.serving.Store(false)
			if ctx.Err() != nil || s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if !s.sem.TryAcquire(1) {
			s.rejected.Add(1)
			s.log.Warn().Str("remote", conn.RemoteAddr().String()).Int64("max", s.cfg.MaxConnections).Msg("connection limit reached")
			_ = conn.Close()
			continue
		}
		s.accepted.Add(1)
		s.trackConn(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.sem.Release(1)
			s.handleConn(ctx, conn)
		}()
	}
}

// Addr returns the bound listener address once Serve has started.
func (s *Server) Addr() net.Addr {
	a, _ := s.addr.Load().(net.Addr)
	return a
}

// Ready reports whether the server is accepting connections.
func (s *Server) Ready() error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.serving.Load() {
		return ErrNotServing
	}
	return nil
}

func (s *Server) Stats() Stats {
	return Stats{
		Node:        s.cfg.Node,
		ActiveConns: s.active.Load(),
		Accepted:    s.accepted.Load(),
		Rejected:    s.rejected.Load(),
		Completed:   s.completed.Load(),
		Failed:      s.failed.Load(),
		Aborted:     s.aborted.Load(),
	}
}

// Close drops every connection. A running Serve returns once its handlers exit.
func (s *Server) Close() error {
	s.closed.Store(true)
	s.serving.Store(false)
	s.connsMu.Lock()
	stop := s.stop
	s.connsMu.Unlock()
	if stop != nil {
		stop()
	}
	s.closeAllConns()
	return nil
}

// inflight is the per-stream decode state on one connection.
type inflight struct {
	dec     *codec.Decoder
	ts      syntax.Syntax
	started time.Time
	bytes   int64
	chunks  int
	// err is the first failure; later chunks are drained until the last frame.
	err error
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer s.untrackConn(conn)
	remote := conn.RemoteAddr().String()
	log := s.log.With().Str("remote", remote).Logger()
	log.Debug().Int64("active_conns", s.active.Add(1)).Msg("connection opened")

	streams := make(map[uint64]*inflight)
	defer func() {
		for id, st := range streams {
			s.aborted.Add(1)
			observability.RecordStream(s.cfg.Node, observability.OutcomeAborted, 0, time.Since(st.started))
			log.Warn().Uint64("stream", id).Err(ErrStreamIncomplete).Msg("stream dropped")
		}
		log.Debug().Int64("active_conns", s.active.Add(-1)).Msg("connection closed")
	}()

	reader := bufio.NewReader(conn)
	for {
		if s.cfg.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}
		fr, err := frame.ReadFrame(reader, s.cfg.Frame)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil && !s.closed.Load() {
				log.Warn().Err(err).Msg("read frame")
			}
			return
		}
		if err := s.handleFrame(ctx, conn, remote, streams, fr); err != nil {
			log.Warn().Err(err).Msg("write response")
			return
		}
	}
}

// handleFrame applies one frame to its stream. The returned error is a
// transport failure that ends the connection.
func (s *Server) handleFrame(ctx context.Context, conn net.Conn, remote string, streams map[uint64]*inflight, fr frame.Frame) error {
	h := fr.Header
	log := s.log.With().Str("remote", remote).Uint64("stream", h.StreamID).Logger()

	st, ok := streams[h.StreamID]
	if h.Flags&frame.FlagAbort != 0 {
		if ok {
			delete(streams, h.StreamID)
			s.aborted.Add(1)
			observability.RecordStream(s.cfg.Node, observability.OutcomeAborted, 0, time.Since(st.started))
			log.Info().Int("chunks", st.chunks).Msg("stream aborted by sender")
		}
		return nil
	}

	if !ok {
		if len(streams) >= s.cfg.MaxStreamsPerConn {
			// Frames of a rejected stream are dropped; its last frame gets the error.
			if !h.Last() {
				return nil
			}
			log.Warn().Int("open", len(streams)).Msg("stream rejected")
			return s.reply(conn, h.StreamID, h.SyntaxCode, ErrTooManyStreams)
		}
		st = s.openStream(h, log)
		streams[h.StreamID] = st
	}

	st.chunks++
	st.bytes += int64(len(fr.Payload))
	if st.err == nil && h.SyntaxCode != st.ts.Code {
		st.err = fmt.Errorf("%w: %d -> %d", ErrSyntaxChanged, st.ts.Code, h.SyntaxCode)
	}
	if st.err == nil {
		st.err = s.feed(st, fr.Payload)
	}
	if !h.Last() {
		return nil
	}

	delete(streams, h.StreamID)
	return s.reply(conn, h.StreamID, h.SyntaxCode, s.complete(ctx, remote, h.StreamID, st, log))
}

func (s *Server) openStream(h frame.Header, log zerolog.Logger) *inflight {
	observability.StreamOpened(s.cfg.Node)
	st := &inflight{started: time.Now()}
	ts, err := syntax.ByCode(h.SyntaxCode)
	if err != nil {
		st.err = err
		return st
	}
	st.ts = ts
	opts := []codec.Option{
		codec.WithStrict(s.cfg.Strict),
		codec.WithLimits(s.cfg.Codec),
		codec.WithLogger(log),
	}
	if s.cfg.Resolver != nil {
		opts = append(opts, codec.WithResolver(s.cfg.Resolver))
	}
	st.dec = codec.NewDecoder(ts, opts...)
	log.Debug().Str("syntax", ts.Name).Msg("stream opened")
	return st
}

// feed writes a chunk and advances the decoder. Suspension is the normal
// outcome before the last chunk.
func (s *Server) feed(st *inflight, p []byte) error {
	if _, err := st.dec.Write(p); err != nil {
		return err
	}
	_, err := st.dec.Decode()
	suspended := codec.IsSuspend(err)
	observability.RecordChunk(s.cfg.Node, len(p), suspended)
	if suspended {
		return nil
	}
	return err
}

func (s *Server) complete(ctx context.Context, remote string, id uint64, st *inflight, log zerolog.Logger) error {
	var rec *dataset.Record
	err := st.err
	if err == nil {
		st.dec.Finish()
		rec, err = st.dec.Decode()
	}
	if err == nil {
		err = s.handler.HandleStream(ctx, Stream{
			ID:     id,
			Remote: remote,
			Syntax: st.ts,
			Bytes:  st.bytes,
			Chunks: st.chunks,
			Record: rec,
		})
	}

	warnCount := 0
	if rec != nil {
		warnCount = len(rec.Warnings)
	}
	elapsed := time.Since(st.started)
	if err != nil {
		s.failed.Add(1)
		observability.RecordStream(s.cfg.Node, observability.OutcomeFailed, warnCount, elapsed)
		log.Warn().Err(err).Int64("bytes", st.bytes).Int("chunks", st.chunks).Msg("stream failed")
		return err
	}
	s.completed.Add(1)
	observability.RecordStream(s.cfg.Node, observability.OutcomeCompleted, warnCount, elapsed)
	log.Info().
		Int64("bytes", st.bytes).
		Int("chunks", st.chunks).
		Int("elements", rec.Len()).
		Int("warnings", warnCount).
		Dur("elapsed", elapsed).
		Msg("stream completed")
	return nil
}

// reply sends the response frame for a finished stream. A nil result is an
// empty response; otherwise the payload carries the error text.
func (s *Server) reply(conn net.Conn, id uint64, code uint32, result error) error {
	f := frame.Frame{Header: frame.Header{StreamID: id, SyntaxCode: code, Flags: frame.FlagResponse | frame.FlagLast}}
	if result != nil {
		f.Header.Flags |= frame.FlagError
		f.Payload = []byte(result.Error())
	}
	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	return frame.WriteFrame(conn, f, s.cfg.Frame)
}

func (s *Server) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
		delete(s.conns, conn)
	}
}
