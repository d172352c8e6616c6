// Package main provides the terminal player entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/app/session"
	"github.com/osa030/tracklist/internal/infra/config"
	"github.com/osa030/tracklist/internal/infra/logger"
	"github.com/osa030/tracklist/internal/infra/mpris"
	"github.com/osa030/tracklist/internal/infra/mpv"
	"github.com/osa030/tracklist/internal/ui/tui"
)

var (
	app        = kingpin.New("tracklist-tui", "tracklist terminal player")
	configPath = app.Flag("config", "Path to config file").Default("config/tracklist.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file").Default("tracklist-tui.log").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// The terminal belongs to the UI, so logs always go to a file.
	loggerConfig := logger.Config{
		Output: *logfile,
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(); err != nil {
		zlog.Error().Msgf("tui error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closer.Close()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	// The terminal player always plays through mpv.
	cfg.Surface.Type = config.SurfaceMPV

	cat, err := session.BuildCatalog(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to build catalog")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := mpv.DecodeSettings(cfg.Surface.Settings)
	if err != nil {
		return errors.Wrap(err, "invalid mpv settings")
	}
	player, err := mpv.Start(ctx, settings)
	if err != nil {
		return errors.Wrap(err, "failed to start mpv")
	}
	defer player.Close()

	board := tui.NewBoard()
	sessionMgr := session.NewManager(cfg, cat, player, board)
	defer sessionMgr.Close()

	if err := sessionMgr.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start session")
	}

	if cfg.MPRIS.Enabled {
		conn, err := mpris.New(cfg.MPRIS.Name, sessionMgr.Controller())
		if err != nil {
			zlog.Warn().Err(err).Msg("MPRIS unavailable")
		} else {
			defer conn.Close()
			id := sessionMgr.GetNotificationManager().Subscribe(conn)
			defer sessionMgr.GetNotificationManager().Unsubscribe(id)
		}
	}

	// Quit when mpv goes away.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-sessionMgr.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	model := tui.New(board, sessionMgr.Controller(), cat, cfg.TUI.Color)
	return tui.Run(ctx, model)
}
