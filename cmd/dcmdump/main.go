package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/dcmstream/internal/codec"
	"github.com/danmuck/dcmstream/internal/config"
	"github.com/danmuck/dcmstream/internal/dict"
	"github.com/danmuck/dcmstream/internal/dump"
	"github.com/danmuck/dcmstream/internal/observability"
	"github.com/danmuck/dcmstream/internal/part10"
	"github.com/rs/zerolog"
)

type options struct {
	raw      string
	strict   bool
	meta     bool
	maxValue int
	dictPath string
}

func main() {
	var opts options
	flag.StringVar(&opts.raw, "syntax", "explicit-le", "transfer syntax for files without a preamble (name or UID)")
	flag.BoolVar(&opts.strict, "strict", false, "treat conformance warnings as errors")
	flag.BoolVar(&opts.meta, "meta", true, "print the file meta group")
	flag.IntVar(&opts.maxValue, "max-value", 64, "longest value preview in bytes")
	flag.StringVar(&opts.dictPath, "dict", "", "TOML dictionary extension")
	flag.Parse()

	log := observability.InitLogger("dcmdump")
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: dcmdump [flags] file...")
		os.Exit(2)
	}

	failed := false
	for _, path := range flag.Args() {
		if err := dumpFile(os.Stdout, path, opts, log); err != nil {
			log.Error().Err(err).Str("path", path).Msg("dump failed")
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func dumpFile(w io.Writer, path string, opts options, log zerolog.Logger) error {
	ts, err := config.ParseSyntax(opts.raw)
	if err != nil {
		return err
	}
	resolver := dict.Builtin()
	if opts.dictPath != "" {
		if resolver, err = dict.LoadFile(opts.dictPath, resolver); err != nil {
			return err
		}
	}

	f, err := part10.Load(path, ts,
		codec.WithStrict(opts.strict),
		codec.WithResolver(resolver),
		codec.WithLogger(log.With().Str("path", path).Logger()),
	)
	if err != nil {
		return err
	}

	dopts := dump.DefaultOptions()
	dopts.Resolver = resolver
	dopts.MaxValue = opts.maxValue
	fmt.Fprintf(w, "# %s\n# transfer syntax: %s\n", path, f.Syntax)
	if opts.meta {
		fmt.Fprintln(w, "# file meta")
		if err := dump.Dataset(w, f.Meta, dopts); err != nil {
			return err
		}
		fmt.Fprintln(w, "# dataset")
	}
	return dump.Dump(w, f.Record, dopts)
}
