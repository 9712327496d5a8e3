package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"NewsIngestor/internal/app"
	"NewsIngestor/internal/config"
	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/logging"
	"NewsIngestor/internal/usecase"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "newsingestor",
		Short:         "News article ingestion service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (YAML); defaults to $NEWS_INGESTOR_CONFIG")

	cmd.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
		submitCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "newsingestor %s\n", version)
			},
		},
	)
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run workers, the feed scheduler and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if err := application.Run(ctx); err != nil {
				logger.Error("application stopped", "error", err)
				return err
			}
			logger.Info("application stopped")
			return nil
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the article and job tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := app.Migrate(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func submitCmd(configPath *string) *cobra.Command {
	var title, source string

	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue a single URL for ingestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

			sub, closeFn, err := app.NewSubmitter(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := sub.Submit(cmd.Context(), usecase.SubmitRequest{URL: args[0], Title: title, Source: domain.SourceMeta{Name: source}})
			if err != nil {
				return err
			}
			state := "queued"
			if !res.Created {
				state = "already pending"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", res.JobID, state)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title hint used when the page has none")
	cmd.Flags().StringVar(&source, "source", "", "source name recorded on the article (default manual)")
	return cmd
}
