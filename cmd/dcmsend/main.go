package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/dcmstream/internal/codec"
	"github.com/danmuck/dcmstream/internal/config"
	"github.com/danmuck/dcmstream/internal/observability"
	"github.com/danmuck/dcmstream/internal/part10"
	"github.com/danmuck/dcmstream/internal/receiver"
	"github.com/danmuck/dcmstream/internal/syntax"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type options struct {
	configPath string
	addr       string
	syntax     string
	from       string
	parallel   int
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "sender config file (TOML)")
	flag.StringVar(&opts.addr, "addr", "", "receiver address, overrides config")
	flag.StringVar(&opts.syntax, "syntax", "", "transfer syntax to send uncompressed records in, overrides config")
	flag.StringVar(&opts.from, "from", "explicit-le", "transfer syntax of inputs without a preamble")
	flag.IntVar(&opts.parallel, "parallel", 4, "files sent concurrently")
	flag.Parse()

	logger := observability.InitLogger("dcmsend")
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: dcmsend [flags] file...")
		os.Exit(2)
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load sender config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := sendAll(ctx, cfg, opts, flag.Args(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "dcmsend: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(opts options) (config.Sender, error) {
	cfg := config.DefaultSender()
	if strings.TrimSpace(opts.configPath) != "" {
		loaded, err := config.LoadSender(opts.configPath)
		if err != nil {
			return config.Sender{}, err
		}
		cfg = loaded
	}
	if v := strings.TrimSpace(opts.addr); v != "" {
		cfg.Addr = v
	}
	if strings.TrimSpace(opts.syntax) != "" {
		ts, err := config.ParseSyntax(opts.syntax)
		if err != nil {
			return config.Sender{}, err
		}
		cfg.Syntax = ts
	}
	if err := config.ValidateSender(cfg); err != nil {
		return config.Sender{}, err
	}
	return cfg, nil
}

// sendAll sends every file, at most opts.parallel at a time. The first
// failure cancels the files not yet sent.
func sendAll(ctx context.Context, cfg config.Sender, opts options, paths []string, logger zerolog.Logger) error {
	from, err := config.ParseSyntax(opts.from)
	if err != nil {
		return err
	}
	sender := receiver.NewSender(cfg.Send, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.parallel, 1))
	for _, path := range paths {
		path := path
		g.Go(func() error {
			f, err := part10.Load(path, from)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			ts := outgoingSyntax(f.Syntax, cfg.Syntax)
			if err := sender.SendRecord(ctx, cfg.Addr, f.Record, ts, codec.WithLengthStyle(cfg.LengthStyle)); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			logger.Info().Str("path", path).Str("syntax", ts.Name).Str("addr", cfg.Addr).Msg("sent")
			return nil
		})
	}
	return g.Wait()
}

// outgoingSyntax keeps compressed records in their own syntax since the
// fragments cannot be re-encoded.
func outgoingSyntax(source, want syntax.Syntax) syntax.Syntax {
	if source.Encapsulated {
		return source
	}
	return want
}
