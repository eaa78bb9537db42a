package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/knoldeck/internal/storage"
	"github.com/conorfennell/knoldeck/internal/sync"
	"github.com/conorfennell/knoldeck/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newSyncCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull the collection from its git remote and drop history of deleted cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			// The collection may not exist until the first clone, so the
			// database is opened directly rather than through loadApp.
			db, err := storage.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := sync.Run(cmd.Context(), db, sync.Options{Dir: cfg.Collection, Remote: cfg.Sync.Remote}, log)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%d cards, %d orphaned histories removed\n", report.Cards, len(report.Orphaned))
			for _, key := range report.Changed {
				_, _ = fmt.Fprintf(out, "changed since last review: %s\n", key)
			}
			return nil
		},
	}
	cmd.Flags().String("remote", "", "git URL to pull the collection from")
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: withApp(configPath, func(cmd *cobra.Command, _ []string, a *app) error {
			syncFn := func(ctx context.Context) (sync.Report, error) {
				return sync.Run(ctx, a.db, sync.Options{Dir: a.cfg.Collection, Remote: a.cfg.Sync.Remote}, a.log)
			}
			httpServer := &http.Server{
				Addr:              a.cfg.HTTP.Addr,
				Handler:           web.NewServer(a.reviews, a.coll, syncFn, a.log),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gCtx := errgroup.WithContext(cmd.Context())

			g.Go(func() error {
				a.log.Info("starting HTTP server", "address", httpServer.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("HTTP server error: %w", err)
				}
				return nil
			})

			g.Go(func() error {
				quit := make(chan os.Signal, 1)
				signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
				defer signal.Stop(quit)

				select {
				case sig := <-quit:
					a.log.Info("received shutdown signal", "signal", sig.String())
				case <-gCtx.Done():
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					a.log.Error("HTTP server shutdown error", "error", err)
				}
				return nil
			})

			if err := g.Wait(); err != nil {
				return err
			}
			a.log.Info("server stopped")
			return nil
		}),
	}
	cmd.Flags().String("addr", "", "listen address, e.g. 127.0.0.1:8080")
	return cmd
}
