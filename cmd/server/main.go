// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/tracklist/internal/api/connect"
	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/app/session"
	"github.com/osa030/tracklist/internal/domain/catalog"
	"github.com/osa030/tracklist/internal/domain/track"
	"github.com/osa030/tracklist/internal/infra/artwork"
	"github.com/osa030/tracklist/internal/infra/config"
	"github.com/osa030/tracklist/internal/infra/logger"
	"github.com/osa030/tracklist/internal/infra/mpris"
	"github.com/osa030/tracklist/internal/infra/mpv"
	"github.com/osa030/tracklist/internal/ui/web"
)

var (
	app        = kingpin.New("tracklist-server", "tracklist audio player server")
	configPath = app.Flag("config", "Path to config file").Default("config/tracklist.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-tracks command
	listTracksCmd = app.Command("list-tracks", "List the catalog and exit")
)

func init() {
	// serve command (default) - no need to store the command
	app.Command("serve", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: logger.OutputStdout,
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	cat, err := session.BuildCatalog(cfg)
	if err != nil {
		zlog.Fatal().Msgf("Failed to build catalog: %v", err)
	}

	if command == listTracksCmd.FullCommand() {
		for i, t := range cat.Tracks() {
			fmt.Printf("%3d  %-16s %s\n", i, t.ID, t.DisplayName())
		}
		return
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg, cat); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, cat *catalog.Catalog) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := web.NewHub()
	defer hub.Close()

	// Select the playback surface. The browser pages always render the
	// player; with mpv they are views only.
	var surface playback.FeedbackSurface = hub
	if cfg.Surface.Type == config.SurfaceMPV {
		settings, err := mpv.DecodeSettings(cfg.Surface.Settings)
		if err != nil {
			return errors.Wrap(err, "invalid mpv settings")
		}
		player, err := mpv.Start(ctx, settings)
		if err != nil {
			return errors.Wrap(err, "failed to start mpv")
		}
		defer player.Close()
		surface = player

		// Pages never get a source, so nothing should arrive here.
		go func() {
			for range hub.Feedback() {
			}
		}()
	}

	// Create session manager
	sessionMgr := session.NewManager(cfg, cat, surface, hub)
	hub.SetCommander(sessionMgr.Controller())

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

	// Create HTTP mux
	mux := http.NewServeMux()

	webServer, err := web.NewServer(web.Options{
		Hub:     hub,
		Catalog: cat,
		AudioPath: func(t track.Track) string {
			return session.AudioPath(cfg, t)
		},
		Artwork: artwork.NewLoader(cfg.Artwork.Width,
			func(t track.Track) string { return session.ImagePath(cfg, t) },
			func(t track.Track) string { return session.AudioPath(cfg, t) },
		),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create web server")
	}
	webServer.Register(mux)

	// Register the control API
	var opts []connect.HandlerOption
	if interceptor := apiconnect.NewAuthInterceptor(cfg); interceptor != nil {
		opts = append(opts, connect.WithInterceptors(interceptor))
	} else {
		zlog.Warn().Msg("api.token not set, control API is unauthenticated")
	}
	playerPath, playerHandler := apiconnect.NewPlayerServiceHandler(apiconnect.NewPlayerService(sessionMgr), opts...)
	mux.Handle(playerPath, playerHandler)

	// Determine server address
	serverAddr := cfg.Server.Addr
	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    serverAddr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s surface=%s", serverAddr, cfg.Surface.Type)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal, session end, or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case <-sessionMgr.Done():
		zlog.Info().Msg("Session ended, shutting down...")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Close session manager first to terminate active streams
	sessionMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return runErr
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
