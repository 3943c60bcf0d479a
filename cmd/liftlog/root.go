// ABOUTME: Root Cobra command for liftlog CLI.
// ABOUTME: Loads config, sets up logging, and opens the store and soreness service per invocation.
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/liftlog/internal/config"
	"github.com/harperreed/liftlog/internal/logging"
	"github.com/harperreed/liftlog/internal/metrics"
	"github.com/harperreed/liftlog/internal/soreness"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	store      storage.Store
	svc        *soreness.Service
	metricsReg *prometheus.Registry

	dataDirFlag  string
	backendFlag  string
	userFlag     string
	strategyFlag string
	verboseFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "liftlog",
	Short: "Muscle soreness and recovery tracker",
	Long: `Liftlog tracks how sore each muscle is from recent training.

HOW IT WORKS:

  Every logged set adds soreness to the muscles its exercise trains,
  scaled by how hard the exercise works each muscle. Soreness is shown
  relative to the worst you have ever been (your baseline), so 1.0
  means "as sore as you have ever been" and 0 means fully recovered.

QUICK START:

  $ liftlog log bench_press 5x80 5x80 8x60   # Log three sets
  $ liftlog soreness                         # Per-muscle soreness
  $ liftlog groups                           # Per-muscle-group soreness
  $ liftlog history Chest --days 14          # How Chest soreness moved

SCORING:

  volume      load x reps x intensity, halving every --half-life (default)
  intensity   one point of intensity per set

MCP INTEGRATION:

  Run 'liftlog mcp' to start the Model Context Protocol server for use with
  Claude Desktop or other MCP-compatible AI assistants:

  {
    "mcpServers": {
      "liftlog": { "command": "liftlog", "args": ["mcp"] }
    }
  }

DATA STORAGE:

  Data lives in ~/.local/share/liftlog (SQLite by default, or Badger with
  --backend badger). Settings are read from ~/.config/liftlog/config.json.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		// Skip store init for commands that don't need it
		if cmd.Name() == "help" || cmd.Name() == "install-skill" || (cmd.HasParent() && cmd.Parent().Name() == "config") {
			return nil
		}
		return openService(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeService()
	},
}

// Execute runs the root command and releases the store even when a command fails.
func Execute() error {
	err := rootCmd.Execute()
	if cerr := closeService(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func loadConfig() error {
	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dataDirFlag != "" {
		loaded.DataDir = dataDirFlag
	}
	if backendFlag != "" {
		loaded.Backend = backendFlag
	}
	if userFlag != "" {
		loaded.UserID = userFlag
	}
	if strategyFlag != "" {
		loaded.Strategy = strategyFlag
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	level := loaded.GetLogLevel()
	if verboseFlag {
		level = "debug"
	}
	logging.Setup(logging.Params{
		LogLevel:      level,
		LogFileName:   config.ExpandPath(loaded.LogFile),
		LogToStderr:   loaded.LogFile != "" && verboseFlag,
		LogFormatJSON: loaded.LogJSON,
	})

	cfg = loaded
	return nil
}

func openService(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	scorer, err := soreness.ScorerByName(cfg.GetStrategy(), cfg.GetHalfLife())
	if err != nil {
		return err
	}

	s, err := cfg.OpenStorage()
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	metricsReg = prometheus.NewRegistry()
	service, err := soreness.NewService(ctx, s, soreness.Options{
		Scorer:  scorer,
		Window:  cfg.GetWindow(),
		Metrics: metrics.NewManager("liftlog", "cli", metricsReg),
		Logger:  logrus.WithField("component", "soreness"),
	})
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	store = s
	svc = service
	return nil
}

// closeService flushes the metrics snapshot, if configured, and closes the store.
func closeService() error {
	if store == nil {
		return nil
	}
	var errs []error
	if cfg != nil && cfg.MetricsFile != "" && metricsReg != nil {
		if err := prometheus.WriteToTextfile(config.ExpandPath(cfg.MetricsFile), metricsReg); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := store.Close(); err != nil {
		errs = append(errs, err)
	}
	store = nil
	svc = nil
	metricsReg = nil
	return errors.Join(errs...)
}

func currentUser() string {
	return cfg.GetUserID()
}

// statsError is the user-facing form of a failed soreness update.
func statsError(err error) error {
	logrus.WithError(err).Error("soreness update failed")
	return fmt.Errorf("couldn't update your stats: %w", err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default ~/.local/share/liftlog)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "storage backend: sqlite or badger")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "user id (default from config, or \"local\")")
	rootCmd.PersistentFlags().StringVar(&strategyFlag, "strategy", "", "scoring strategy: volume or intensity")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "debug logging")
}
