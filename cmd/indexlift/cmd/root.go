// Package cmd implements the indexlift command line interface.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nabeel-codes/indexlift/internal/alias"
	"github.com/nabeel-codes/indexlift/internal/cluster"
	"github.com/nabeel-codes/indexlift/internal/config"
	"github.com/nabeel-codes/indexlift/internal/indices"
	"github.com/nabeel-codes/indexlift/internal/logging"
	"github.com/nabeel-codes/indexlift/internal/ui"
	"github.com/nabeel-codes/indexlift/pkg/version"
)

var (
	cfgPath string
	debug   bool

	cfg        *config.Config
	logger     *slog.Logger
	logCleanup func()
	session    *cluster.Session
	printer    *ui.Printer
)

var rootCmd = &cobra.Command{
	Use:   "indexlift",
	Short: "Zero-downtime index lifecycle management",
	Long: `indexlift manages aliased search indexes: provisioning, deletion,
optimization, and full rebuilds from a persistence source with an
atomic alias swap so readers never see a half-built index.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with signal-aware cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"config file path (default ~/.indexlift/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug logging to stderr")

	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentPostRunE = teardown
}

// setup loads configuration and wires logging and the cluster session
// before any subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	path := cfgPath
	if path == "" {
		path = config.DefaultPath()
	}

	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.FilePath,
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		MaxFiles:      cfg.Logging.MaxFiles,
		WriteToStderr: debug,
	}
	if debug {
		logCfg.Level = "debug"
	}
	if logCfg.FilePath == "" {
		logCfg.FilePath = logging.DefaultLogPath()
	}

	logger, logCleanup, err = logging.Setup(logCfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	session = cluster.NewSession(cfg.Cluster.DataDir, cfg.Cluster.InMemory, logger)
	printer = ui.NewPrinter(os.Stdout)
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if session != nil {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close cluster session",
				slog.String("error", err.Error()))
		}
	}
	if logCleanup != nil {
		logCleanup()
	}
	return nil
}

// newManager opens the shared client and builds the lifecycle manager
// stack most subcommands need.
func newManager(ctx context.Context) (*indices.Manager, *alias.Resolver, cluster.Client, error) {
	client, err := session.Client(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	resolver, err := alias.NewResolver(client, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	return indices.NewManager(client, resolver, logger), resolver, client, nil
}
