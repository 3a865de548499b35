package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/spektr-org/myriad"
	"github.com/spektr-org/myriad/config"
	"github.com/spektr-org/myriad/engine"
	"github.com/spektr-org/myriad/store"
	"github.com/spektr-org/myriad/store/influx"
	"github.com/spektr-org/myriad/store/memory"
)

// ============================================================================
// MYRIAD EXPLORER CLI — Browse a dimensional event store
// ============================================================================

var (
	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:           "explorer",
		Short:         "Myriad explorer: filter events by dimension and edit their values",
		Version:       myriad.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			logger = cfg.Log.NewLogger(cmd.ErrOrStderr())
			slog.SetDefault(logger)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "myriad.yaml", "Path to YAML config (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level: debug, info, warn, error")

	rootCmd.AddCommand(dimensionsCmd, queryCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatalf("%v", err)
	}
}

// openSession connects the configured backend and loads its dimensions.
// The returned func releases the backend.
func openSession(ctx context.Context) (*engine.Session, func(), error) {
	var (
		client  store.Client
		release = func() {}
	)

	switch cfg.Store.Backend {
	case "influx":
		s, err := influx.Open(ctx, cfg.InfluxStore(), influx.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		client, release = s, s.Close
	default:
		s, err := memory.Open(cfg.Store.Fixture, memory.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		client = s
	}

	session := engine.NewSession(client, cfg.EngineOptions(logger)...)
	if err := session.Reset(ctx); err != nil {
		release()
		return nil, nil, err
	}
	return session, release, nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
