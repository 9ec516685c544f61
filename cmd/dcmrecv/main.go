package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/dcmstream/internal/auth"
	"github.com/danmuck/dcmstream/internal/config"
	"github.com/danmuck/dcmstream/internal/observability"
	"github.com/danmuck/dcmstream/internal/receiver"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "receiver config file (TOML)")
	node := flag.String("node", "", "node name, overrides config")
	addr := flag.String("addr", "", "stream listen address, overrides config")
	admin := flag.String("admin", "", "admin HTTP address, overrides config; \"off\" disables it")
	outDir := flag.String("out", "", "directory for received files; empty only logs them")
	flag.Parse()

	logger := observability.InitLogger("dcmrecv")
	cfg, err := loadConfig(*configPath, flagOverrides{node: *node, addr: *addr, admin: *admin})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load receiver config")
	}
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			logger.Fatal().Err(err).Str("out", *outDir).Msg("failed to create output directory")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, store{dir: *outDir, log: logger}, logger); err != nil {
		fmt.Fprintf(os.Stderr, "dcmrecv: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Receiver, h receiver.Handler, logger zerolog.Logger) error {
	resolver, err := cfg.Resolver()
	if err != nil {
		return err
	}
	cfg.Server.Resolver = resolver
	observability.RegisterMetrics()

	srv, err := receiver.NewServer(cfg.Server, h, logger)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx, ln)
	}()

	if cfg.AdminAddr == "" {
		return <-serveErr
	}
	adminCfg := observability.AdminConfig{
		Node:        cfg.Server.Node,
		CorsOrigins: cfg.CorsOrigins,
		Ready:       srv.Ready,
		Status:      func() any { return srv.Stats() },
	}
	if cfg.StatusToken != "" {
		adminCfg.StatusAuth = auth.StaticToken{Token: cfg.StatusToken}
	}
	adminSrv := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           observability.NewAdminRouter(adminCfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	adminErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.AdminAddr).Msg("admin listening")
		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			adminErr <- err
		}
		close(adminErr)
	}()

	select {
	case err := <-serveErr:
		shutdown(adminSrv, logger)
		return err
	case err, ok := <-adminErr:
		if ok && err != nil {
			_ = srv.Close()
			<-serveErr
			return fmt.Errorf("admin: %w", err)
		}
		return <-serveErr
	}
}

func shutdown(s *http.Server, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("admin shutdown")
	}
}
