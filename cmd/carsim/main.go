package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"carsim/internal/app"
	"carsim/internal/asset"
	"carsim/internal/binder"
	"carsim/internal/engineconfig"
	"carsim/internal/env"
	"carsim/internal/logger"
	"carsim/internal/physics"
	"carsim/internal/stream"
)

func main() {
	configPath := flag.String("config", engineconfig.ConfigPath, "path to the YAML config file")
	assetURL := flag.String("asset", "", "asset URL or path (overrides asset.url)")
	headless := flag.Bool("headless", false, "run the simulation without a window")
	frames := flag.Int("frames", 0, "headless ticks to run; 0 runs until interrupted")
	flag.Parse()

	if err := env.Load(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := engineconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *assetURL != "" {
		cfg.Asset.URL = *assetURL
	}

	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Path: cfg.Log.File, Console: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *configPath, log, *headless, *frames); err != nil {
		log.Error("carsim stopped", zap.Error(err))
		_ = log.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg engineconfig.Config, configPath string, log *logger.Logger, headless bool, frames int) error {
	loader := asset.NewGLTFLoader(cfg.Asset.CacheDir, log.Logger)
	loader.MaxBytes = cfg.Asset.MaxBytes

	var hub *stream.Hub
	opts := app.Options{Config: cfg, Loader: loader, Log: log.Logger}
	if cfg.Stream.Enabled {
		hub = stream.NewHub(log.Logger)
		opts.Stream = hub
	}

	sim, err := app.Bootstrap(ctx, opts)
	if err != nil {
		reportBootstrap(log.Logger, err)
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if hub != nil {
		g.Go(func() error {
			return stream.Serve(gctx, cfg.Stream.Addr, hub)
		})
	}

	var runErr error
	if headless {
		runErr = sim.RunHeadless(gctx, frames)
		if errors.Is(runErr, context.Canceled) {
			runErr = nil
		}
	} else {
		v := newViewer(cfg, configPath, sim, loader.Path(), log)
		runErr = v.run(gctx)
	}
	cancel()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// reportBootstrap logs a startup failure by kind.
func reportBootstrap(log *zap.Logger, err error) {
	var le *asset.LoadError
	var re *physics.RegistrationError
	switch {
	case errors.As(err, &le):
		log.Error("asset could not be loaded", zap.String("url", le.URL), zap.Error(le.Err))
	case errors.As(err, &re):
		log.Error("physics registration failed", zap.String("body", re.Body), zap.Error(re.Err))
	case errors.Is(err, binder.ErrAlreadyBound):
		log.Error("wheel groups already bound", zap.Error(err))
	default:
		log.Error("bootstrap failed", zap.Error(err))
	}
}
