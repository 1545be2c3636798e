package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"identiscope/internal/config"

	"github.com/spf13/cobra"
)

var withWorker bool

var rootCmd = &cobra.Command{
	Use:   "identiscope",
	Short: "Fingerprint identity resolution and tracking-risk backend",
	Long: `identiscope hashes browser fingerprints into hardware, software and full
locks, reports how trackable a visitor is, and processes GDPR deletion
requests against the stored visits.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			if withWorker {
				if err := a.startJobs(ctx); err != nil {
					return err
				}
			}
			return a.serve(ctx)
		})
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the deletion processor and stats refresh on their schedules",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := a.startJobs(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		store, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Info("schema migrated", "driver", cfg.DBDriver)
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&withWorker, "with-worker", false, "also run the scheduled jobs in this process")
	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd)
}

// withApp builds the application, runs fn until SIGINT/SIGTERM and then
// releases every resource.
func withApp(parent context.Context, fn func(ctx context.Context, a *app) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return errors.Join(runErr, a.close())
}
