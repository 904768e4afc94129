package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	app "github.com/DanDan1134/wordle-battle/internal"
	"github.com/DanDan1134/wordle-battle/internal/config"
)

// main - is the entry point of the application. It loads .env, then dispatches to the serve or worker command.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "wordle-battle",
		Short:        "Head-to-head Wordle matches",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yml, environment only when empty")

	var withWorker bool

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket gateway",
		RunE: func(_ *cobra.Command, _ []string) error {
			conf := config.MustLoad(configPath)

			if err := app.RunServe(initLogger(conf), conf, withWorker); err != nil {
				return fmt.Errorf("app run failed: %w", err)
			}

			return nil
		},
	}

	serve.Flags().BoolVar(&withWorker, "with-worker", false, "also run the matchmaker and referee in this process")

	worker := &cobra.Command{
		Use:   "worker",
		Short: "Run the matchmaker and match referee",
		RunE: func(_ *cobra.Command, _ []string) error {
			conf := config.MustLoad(configPath)

			if err := app.RunWorker(initLogger(conf), conf); err != nil {
				return fmt.Errorf("app run failed: %w", err)
			}

			return nil
		},
	}

	root.AddCommand(serve, worker)

	return root
}

// initialize logger.
func initLogger(conf *config.Config) *slog.Logger {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
