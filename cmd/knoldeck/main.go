package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/conorfennell/knoldeck/internal/clock"
	"github.com/conorfennell/knoldeck/internal/collection"
	"github.com/conorfennell/knoldeck/internal/config"
	"github.com/conorfennell/knoldeck/internal/logger"
	"github.com/conorfennell/knoldeck/internal/review"
	"github.com/conorfennell/knoldeck/internal/sm2"
	"github.com/conorfennell/knoldeck/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "knoldeck",
		Short:         "Spaced-repetition flashcards kept as markdown",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML config file")
	flags.String("collection", "", "collection directory")
	flags.String("db", "", "review log database path")
	flags.String("log-level", "", "log level: debug|info|warn|error")
	flags.String("log-format", "", "log format: text|json")

	root.AddCommand(
		newDecksCmd(&configPath),
		newDeckCmd(&configPath),
		newNotesCmd(&configPath),
		newNoteCmd(&configPath),
		newDueCmd(&configPath),
		newReviewCmd(&configPath),
		newPreviewCmd(&configPath),
		newHistoryCmd(&configPath),
		newSyncCmd(&configPath),
		newServeCmd(&configPath),
	)
	return root
}

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	db      *storage.DB
	coll    *collection.Collection
	reviews *review.Service
}

func loadConfig(cmd *cobra.Command, configPath string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.Options{
		File:    configPath,
		EnvFile: ".env",
		Flags:   cmd.Flags(),
	})
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return config.Config{}, nil, err
	}
	slog.SetDefault(log)
	return cfg, log, nil
}

func loadApp(cmd *cobra.Command, configPath string) (*app, error) {
	cfg, log, err := loadConfig(cmd, configPath)
	if err != nil {
		return nil, err
	}

	scheduler, err := sm2.NewScheduler(cfg.Scheduler.Params())
	if err != nil {
		return nil, err
	}
	coll, err := collection.New(cfg.Collection)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	log.Debug("database opened", "path", cfg.DB)

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		coll:    coll,
		reviews: review.NewService(scheduler, db, coll, clock.System{}, log),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
