package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v3"

	"github.com/eralumin/playlistarr/config"
	"github.com/eralumin/playlistarr/lidarr"
	"github.com/eralumin/playlistarr/logging"
	"github.com/eralumin/playlistarr/musicbrainz"
	"github.com/eralumin/playlistarr/navidrome"
	"github.com/eralumin/playlistarr/reconcile"
	"github.com/eralumin/playlistarr/spotify"
)

// Version information - set during build
var version = "dev"

// Exit codes
const (
	exitCodeConfigError = 2
	exitCodeClientError = 3
)

// Application represents the main application state
type Application struct {
	config     *config.Config
	logger     *log.Logger
	spotify    *spotify.Client
	reconciler *reconcile.Reconciler
}

// NewApplication wires the clients and the reconciler from the configuration
func NewApplication(cfg *config.Config, logger *log.Logger, spotifyOpts ...spotify.Option) *Application {
	spotifyClient := spotify.NewClient(cfg.Spotify,
		append([]spotify.Option{spotify.WithLogger(logger)}, spotifyOpts...)...)
	lidarrClient := lidarr.NewClient(cfg.Lidarr, lidarr.WithLogger(logger))
	navidromeClient := navidrome.NewClient(cfg.Navidrome, navidrome.WithLogger(logger))
	musicBrainzClient := musicbrainz.NewClient(cfg.MusicBrainz.Contact, musicbrainz.WithLogger(logger))

	reconciler := reconcile.New(spotifyClient, lidarrClient, navidromeClient, musicBrainzClient, reconcile.Options{
		QualityProfileName:  cfg.Lidarr.QualityProfileName,
		MetadataProfileName: cfg.Lidarr.MetadataProfileName,
		RootFolder:          cfg.Lidarr.RootFolder,
		Discovery: reconcile.DiscoveryOptions{
			IncludedCategories:    cfg.Playlists.IncludedCategories,
			ExcludedCategories:    cfg.Playlists.ExcludedCategories,
			ArtistPlaylistLimit:   cfg.Playlists.ArtistPlaylistLimit,
			CategoryPlaylistLimit: cfg.Playlists.CategoryPlaylistLimit,
			RandomCategoryLimit:   cfg.Playlists.RandomCategoryLimit,
		},
	}, logger)

	return &Application{
		config:     cfg,
		logger:     logger,
		spotify:    spotifyClient,
		reconciler: reconciler,
	}
}

// Start authenticates with Spotify. Nothing can be discovered without it.
func (app *Application) Start(ctx context.Context) error {
	if err := app.spotify.Authenticate(ctx); err != nil {
		return fmt.Errorf("failed to authenticate with Spotify: %w", err)
	}
	return nil
}

// RunOnce runs a single reconciliation
func (app *Application) RunOnce(ctx context.Context) error {
	if _, err := app.reconciler.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			app.logger.Info("shutting down")
			return nil
		}
		return err
	}
	return nil
}

// Serve runs a reconciliation now and then on every tick of the configured schedule until ctx
// is cancelled. A tick that fires while the previous run is still going is skipped.
func (app *Application) Serve(ctx context.Context) error {
	schedule, err := cron.ParseStandard(app.config.Schedule)
	if err != nil {
		return fmt.Errorf("invalid SCHEDULE '%s': %w", app.config.Schedule, err)
	}

	if err := app.RunOnce(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}

	cronLogger := logging.CronLogger{L: logging.Component(app.logger, "scheduler")}
	scheduler := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	scheduler.Schedule(schedule, cron.FuncJob(func() {
		// a later run failing is not fatal, the next tick tries again
		if err := app.RunOnce(ctx); err != nil {
			app.logger.Error("scheduled run failed", "err", err)
		}
	}))

	scheduler.Start()
	app.logger.Info("waiting for next run", "schedule", app.config.Schedule, "next", schedule.Next(time.Now()).Format(time.RFC3339))

	<-ctx.Done()
	app.logger.Info("stopping scheduler")
	<-scheduler.Stop().Done()
	return nil
}

// loadConfig loads the configuration with the CLI flag overrides and builds the logger
func loadConfig(cmd *cli.Command, overrides map[string]string) (*config.Config, *log.Logger, error) {
	if overrides == nil {
		overrides = make(map[string]string)
	}
	if cmd.Bool("debug") {
		overrides["LOG_LEVEL"] = "debug"
	}

	cfg, err := config.LoadWithOverrides(cmd.String("env-file"), overrides)
	if err != nil {
		return nil, nil, cli.Exit(fmt.Sprintf("Failed to load config: %v", err), exitCodeConfigError)
	}

	logger, err := logging.New(cmd.Root().ErrWriter, cfg.LogLevel)
	if err != nil {
		return nil, nil, cli.Exit(fmt.Sprintf("Failed to load config: %v", err), exitCodeConfigError)
	}
	return cfg, logger, nil
}

// startApplication loads everything a command needs and authenticates
func startApplication(ctx context.Context, cmd *cli.Command, overrides map[string]string) (*Application, error) {
	cfg, logger, err := loadConfig(cmd, overrides)
	if err != nil {
		return nil, err
	}

	app := NewApplication(cfg, logger)
	if err := app.Start(ctx); err != nil {
		logger.Error("failed to start", "err", err)
		return nil, cli.Exit(err.Error(), exitCodeClientError)
	}
	return app, nil
}

func runCommand(ctx context.Context, cmd *cli.Command) error {
	app, err := startApplication(ctx, cmd, map[string]string{"RUN_ONCE": "true"})
	if err != nil {
		return err
	}
	return app.RunOnce(ctx)
}

func serveCommand(ctx context.Context, cmd *cli.Command) error {
	app, err := startApplication(ctx, cmd, nil)
	if err != nil {
		return err
	}
	if app.config.RunOnce {
		return app.RunOnce(ctx)
	}
	return app.Serve(ctx)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "playlistarr",
		Usage:   "Mirror Spotify playlists into Navidrome and grow the Lidarr library to match",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging (overrides LOG_LEVEL)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Read configuration from this file instead of .env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run one reconciliation and exit",
				Action: runCommand,
			},
			{
				Name:   "serve",
				Usage:  "Run a reconciliation now and then on SCHEDULE (once if RUN_ONCE is set)",
				Action: serveCommand,
			},
		},
		DefaultCommand: "serve",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal("Application failed", "err", err)
	}
}
