package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/dcmstream/internal/codec"
	"github.com/danmuck/dcmstream/internal/config"
	"github.com/danmuck/dcmstream/internal/observability"
	"github.com/danmuck/dcmstream/internal/part10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	in, out string
	from    string
	to      string
	style   string
	bare    bool
	strict  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.in, "in", "", "input file")
	flag.StringVar(&opts.out, "out", "", "output file")
	flag.StringVar(&opts.from, "from", "explicit-le", "transfer syntax of an input without a preamble")
	flag.StringVar(&opts.to, "to", "explicit-le", "output transfer syntax (name or UID)")
	flag.StringVar(&opts.style, "length-style", "preserve", "sequence lengths: preserve|declared|undefined")
	flag.BoolVar(&opts.bare, "bare", false, "write the dataset without preamble and file meta")
	flag.BoolVar(&opts.strict, "strict", false, "reject inputs with conformance warnings")
	flag.Parse()

	logger := observability.InitLogger("dcmconv")
	if opts.in == "" || opts.out == "" {
		fmt.Fprintln(os.Stderr, "usage: dcmconv -in file -out file [-to syntax]")
		os.Exit(2)
	}
	n, err := convert(opts, logger)
	if err != nil {
		log.Fatal().Err(err).Str("in", opts.in).Msg("convert failed")
	}
	log.Info().Str("in", opts.in).Str("out", opts.out).Str("syntax", opts.to).Int64("bytes", n).Msg("converted")
}

func convert(opts options, logger zerolog.Logger) (int64, error) {
	from, err := config.ParseSyntax(opts.from)
	if err != nil {
		return 0, err
	}
	to, err := config.ParseSyntax(opts.to)
	if err != nil {
		return 0, err
	}
	style, ok := codec.ParseLengthStyle(opts.style)
	if !ok {
		return 0, fmt.Errorf("unknown length style %q", opts.style)
	}

	f, err := part10.Load(opts.in, from, codec.WithStrict(opts.strict), codec.WithLogger(logger))
	if err != nil {
		return 0, err
	}
	for _, w := range f.Record.Warnings {
		logger.Warn().Err(w).Str("in", opts.in).Msg("input not conformant")
	}
	if f.Syntax.Encapsulated && f.Syntax.UID != to.UID {
		return 0, fmt.Errorf("cannot transcode compressed %s to %s", f.Syntax.Name, to.Name)
	}

	out, err := os.Create(opts.out)
	if err != nil {
		return 0, err
	}
	w := bufio.NewWriter(out)
	var n int64
	if opts.bare {
		n, err = codec.EncodeTo(w, f.Record, to, codec.WithLengthStyle(style))
	} else {
		f.Syntax = to
		n, err = part10.Write(w, f, codec.WithLengthStyle(style))
	}
	if err == nil {
		err = w.Flush()
	}
	if err = errors.Join(err, out.Close()); err != nil {
		_ = os.Remove(opts.out)
		return 0, err
	}
	return n, nil
}
