package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/runnerr0/notifylog/internal/capture"
	"github.com/runnerr0/notifylog/internal/config"
	"github.com/runnerr0/notifylog/internal/logging"
	"github.com/runnerr0/notifylog/internal/retention"
	"github.com/runnerr0/notifylog/internal/source"
)

// Execute implements the go-flags Commander interface for ListenCommand.
func (c *ListenCommand) Execute(args []string) error {
	cfg, err := resolveConfig(c.globals)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if c.LogLevel != "" {
		level = c.LogLevel
	}
	if c.globals != nil && c.globals.Verbose {
		level = "debug"
	}

	log, closeLog, err := logging.New(logging.Options{
		Level:   level,
		Console: cfg.Logging.Console,
		File:    cfg.Logging.File,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	pm, err := openPrefs(cfg, log)
	if err != nil {
		return err
	}
	go func() {
		if err := pm.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("preferences watcher stopped")
		}
	}()

	resolver := capture.NewStaticResolver(
		cfg.Apps.Labels,
		append(config.DefaultSystemPackages(), cfg.Apps.SystemPackages...),
	)

	svc := capture.New(store, pm, resolver, capture.Config{
		SelfPackage:   cfg.Capture.SelfPackage,
		DedupeEnabled: cfg.Capture.DedupeEnabled,
		DedupeWindow:  time.Duration(cfg.Capture.DedupeWindowMS) * time.Millisecond,
		QueueSize:     cfg.Capture.QueueSize,
	}, log)
	svc.Start(ctx)

	sweeper, err := retention.New(store, pm, cfg.Retention.Schedule, log)
	if err != nil {
		svc.Stop()
		return err
	}
	sweeper.Start(ctx)

	var in io.Reader = os.Stdin
	if c.Source != "" {
		f, err := os.Open(c.Source)
		if err != nil {
			sweeper.Stop()
			svc.Stop()
			return fmt.Errorf("open event source: %w", err)
		}
		defer f.Close()
		in = f
	}

	log.Info().Str("source", sourceName(c.Source)).Msg("notifylog listening")
	daemon.SdNotify(false, daemon.SdNotifyReady)

	reader := source.NewReader(in, svc, log)
	readErr := make(chan error, 1)
	go func() { readErr <- reader.Run(ctx) }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-readErr:
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("event source failed")
		} else {
			log.Info().Msg("event source closed")
		}
	}

	daemon.SdNotify(false, daemon.SdNotifyStopping)
	sweeper.Stop()
	svc.Stop()

	if dropped := svc.Dropped(); dropped > 0 {
		log.Warn().Uint64("dropped", dropped).Msg("events dropped under load")
	}
	log.Info().Msg("notifylog stopped")
	return nil
}

func sourceName(path string) string {
	if path == "" {
		return "stdin"
	}
	return path
}
