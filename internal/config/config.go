// Package config loads receiver and sender settings from TOML. Keys present
// in the file override the defaults; absent keys keep them.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/dcmstream/internal/codec"
	"github.com/danmuck/dcmstream/internal/dict"
	"github.com/danmuck/dcmstream/internal/receiver"
	"github.com/danmuck/dcmstream/internal/syntax"
)

// Receiver is the resolved dcmrecv configuration.
type Receiver struct {
	Server      receiver.Config
	AdminAddr   string
	CorsOrigins []string
	// StatusToken, when set, is required as a bearer token on /status.
	StatusToken string
	// Dictionary is an optional TOML dictionary extension file.
	Dictionary string
}

// Sender is the resolved dcmsend configuration.
type Sender struct {
	Addr        string
	Syntax      syntax.Syntax
	LengthStyle codec.LengthStyle
	Send        receiver.SendConfig
}

type receiverFile struct {
	Node              string   `toml:"node"`
	Addr              string   `toml:"addr"`
	AdminAddr         string   `toml:"admin_addr"`
	CorsOrigins       []string `toml:"cors_origins"`
	StatusToken       string   `toml:"status_token"`
	MaxConnections    int64    `toml:"max_connections"`
	MaxStreamsPerConn int      `toml:"max_streams_per_conn"`
	IdleTimeout       string   `toml:"idle_timeout"`
	WriteTimeout      string   `toml:"write_timeout"`
	Strict            bool     `toml:"strict"`
	MaxFramePayload   uint64   `toml:"max_frame_payload"`
	MaxValueLength    uint32   `toml:"max_value_length"`
	MaxDepth          int      `toml:"max_depth"`
	Dictionary        string   `toml:"dictionary"`
}

type senderFile struct {
	Addr            string  `toml:"addr"`
	Syntax          string  `toml:"syntax"`
	LengthStyle     string  `toml:"length_style"`
	ChunkSize       int     `toml:"chunk_size"`
	DialTimeout     string  `toml:"dial_timeout"`
	ResponseTimeout string  `toml:"response_timeout"`
	MaxAttempts     int     `toml:"max_attempts"`
	BackoffInitial  string  `toml:"backoff_initial"`
	BackoffFactor   float64 `toml:"backoff_multiplier"`
	BackoffMax      string  `toml:"backoff_max"`
	BackoffJitter   bool    `toml:"backoff_jitter"`
}

func DefaultReceiver() Receiver {
	return Receiver{
		Server:      receiver.DefaultConfig(),
		AdminAddr:   "127.0.0.1:9110",
		CorsOrigins: []string{"http://localhost:3000"},
	}
}

func DefaultSender() Sender {
	return Sender{
		Addr:        receiver.DefaultConfig().Addr,
		Syntax:      syntax.ExplicitVRLittleEndian,
		LengthStyle: codec.StylePreserve,
		Send:        receiver.DefaultSendConfig(),
	}
}

func LoadReceiver(path string) (Receiver, error) {
	cfg := DefaultReceiver()

	var raw receiverFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Receiver{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("node") {
		cfg.Server.Node = strings.TrimSpace(raw.Node)
	}
	if meta.IsDefined("addr") {
		cfg.Server.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}
	if meta.IsDefined("status_token") {
		cfg.StatusToken = strings.TrimSpace(raw.StatusToken)
	}
	if meta.IsDefined("max_connections") {
		cfg.Server.MaxConnections = raw.MaxConnections
	}
	if meta.IsDefined("max_streams_per_conn") {
		cfg.Server.MaxStreamsPerConn = raw.MaxStreamsPerConn
	}
	if meta.IsDefined("idle_timeout") {
		if cfg.Server.IdleTimeout, err = parseDuration("idle_timeout", raw.IdleTimeout); err != nil {
			return Receiver{}, err
		}
	}
	if meta.IsDefined("write_timeout") {
		if cfg.Server.WriteTimeout, err = parseDuration("write_timeout", raw.WriteTimeout); err != nil {
			return Receiver{}, err
		}
	}
	if meta.IsDefined("strict") {
		cfg.Server.Strict = raw.Strict
	}
	if meta.IsDefined("max_frame_payload") {
		cfg.Server.Frame.MaxPayloadBytes = raw.MaxFramePayload
	}
	if meta.IsDefined("max_value_length") {
		cfg.Server.Codec.MaxValueLength = raw.MaxValueLength
	}
	if meta.IsDefined("max_depth") {
		cfg.Server.Codec.MaxDepth = raw.MaxDepth
	}
	if meta.IsDefined("dictionary") {
		cfg.Dictionary = strings.TrimSpace(raw.Dictionary)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Receiver{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if err := ValidateReceiver(cfg); err != nil {
		return Receiver{}, err
	}
	return cfg, nil
}

func LoadSender(path string) (Sender, error) {
	cfg := DefaultSender()

	var raw senderFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Sender{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("syntax") {
		if cfg.Syntax, err = ParseSyntax(raw.Syntax); err != nil {
			return Sender{}, err
		}
	}
	if meta.IsDefined("length_style") {
		style, ok := codec.ParseLengthStyle(raw.LengthStyle)
		if !ok {
			return Sender{}, fmt.Errorf("parse length_style: unknown style %q", raw.LengthStyle)
		}
		cfg.LengthStyle = style
	}
	if meta.IsDefined("chunk_size") {
		cfg.Send.ChunkSize = raw.ChunkSize
	}
	if meta.IsDefined("dial_timeout") {
		if cfg.Send.DialTimeout, err = parseDuration("dial_timeout", raw.DialTimeout); err != nil {
			return Sender{}, err
		}
	}
	if meta.IsDefined("response_timeout") {
		if cfg.Send.ResponseTimeout, err = parseDuration("response_timeout", raw.ResponseTimeout); err != nil {
			return Sender{}, err
		}
	}
	if meta.IsDefined("max_attempts") {
		cfg.Send.MaxAttempts = raw.MaxAttempts
	}
	if meta.IsDefined("backoff_initial") {
		if cfg.Send.Backoff.InitialDelay, err = parseDuration("backoff_initial", raw.BackoffInitial); err != nil {
			return Sender{}, err
		}
	}
	if meta.IsDefined("backoff_multiplier") {
		cfg.Send.Backoff.Multiplier = raw.BackoffFactor
	}
	if meta.IsDefined("backoff_max") {
		if cfg.Send.Backoff.MaxDelay, err = parseDuration("backoff_max", raw.BackoffMax); err != nil {
			return Sender{}, err
		}
	}
	if meta.IsDefined("backoff_jitter") {
		cfg.Send.Backoff.Jitter = raw.BackoffJitter
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Sender{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if err := ValidateSender(cfg); err != nil {
		return Sender{}, err
	}
	return cfg, nil
}

// Resolver returns the builtin dictionary extended by the configured file.
func (c Receiver) Resolver() (dict.Resolver, error) {
	if c.Dictionary == "" {
		return dict.Builtin(), nil
	}
	d, err := dict.LoadFile(c.Dictionary, dict.Builtin())
	if err != nil {
		return nil, err
	}
	return d, nil
}

func ValidateReceiver(cfg Receiver) error {
	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("receiver config invalid: %w", err)
	}
	if strings.TrimSpace(cfg.AdminAddr) == cfg.Server.Addr {
		return fmt.Errorf("receiver config admin_addr must differ from addr")
	}
	return nil
}

func ValidateSender(cfg Sender) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("sender config missing addr")
	}
	if cfg.Send.ChunkSize <= 0 {
		return fmt.Errorf("sender config chunk_size must be positive")
	}
	if cfg.Send.Backoff.Multiplier < 1.0 {
		return fmt.Errorf("sender config backoff_multiplier must be at least 1")
	}
	return nil
}

// ParseSyntax accepts a transfer syntax UID or a short name: implicit-le,
// explicit-le, explicit-be, implicit-be.
func ParseSyntax(s string) (syntax.Syntax, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "implicit-le", "implicit":
		return syntax.ImplicitVRLittleEndian, nil
	case "explicit-le", "explicit":
		return syntax.ExplicitVRLittleEndian, nil
	case "explicit-be":
		return syntax.ExplicitVRBigEndian, nil
	case "implicit-be":
		return syntax.ImplicitVRBigEndian, nil
	}
	return syntax.Lookup(s)
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
