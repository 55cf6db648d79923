package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/jamesninnes/chess-on-chain/internal/event"
	"github.com/jamesninnes/chess-on-chain/internal/httpx"
	"github.com/jamesninnes/chess-on-chain/internal/registry"
	"github.com/jamesninnes/chess-on-chain/internal/render"
	"github.com/jamesninnes/chess-on-chain/internal/store"
)

const defaultAddr = ":8723"

var (
	addr    = flag.String("addr", "", "listen address (default "+defaultAddr+", or CHESSD_ADDR)")
	dataDir = flag.String("data", "", "data directory (default per-user state dir, or CHESSD_DATA)")
	debug   = flag.Bool("debug", false, "enable debug logging (or CHESSD_DEBUG=1)")
)

const shutdownGrace = 10 * time.Second

func main() {
	flag.Parse()

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = os.Getenv("CHESSD_ADDR")
	}
	if listenAddr == "" {
		listenAddr = defaultAddr
	}

	dir := *dataDir
	if dir == "" {
		dir = os.Getenv("CHESSD_DATA")
	}
	if dir == "" {
		var err error
		dir, err = store.DefaultDataDir()
		if err != nil {
			log.Fatal("could not resolve data directory: ", err)
		}
	}

	logger, err := buildLogger(*debug || os.Getenv("CHESSD_DEBUG") == "1")
	if err != nil {
		log.Fatal("could not build logger: ", err)
	}
	defer func() { _ = logger.Sync() }()

	st, err := store.Open(dir, logger)
	if err != nil {
		logger.Fatal("open store", zap.String("dir", dir), zap.Error(err))
	}

	bus := event.NewBus(logger)
	reg, err := registry.New(st, bus, logger)
	if err != nil {
		_ = st.Close()
		logger.Fatal("build registry", zap.Error(err))
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		_ = st.Close()
		logger.Fatal("build renderer", zap.Error(err))
	}

	srv := httpx.NewServer(reg, renderer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(listenAddr) }()

	var errs *multierror.Error
	serverDone := false
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		serverDone = true
		errs = multierror.Append(errs, err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Close(shutdownCtx); err != nil {
		errs = multierror.Append(errs, err)
	}
	if !serverDone {
		errs = multierror.Append(errs, <-errCh)
	}
	if err := st.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}

	if err := errs.ErrorOrNil(); err != nil {
		logger.Fatal("shutdown finished with errors", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
