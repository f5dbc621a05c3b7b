package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/app"
	"github.com/kailas-cloud/contractdex/internal/config"
	logpkg "github.com/kailas-cloud/contractdex/internal/logger"
	"github.com/kailas-cloud/contractdex/internal/metrics"
	"github.com/kailas-cloud/contractdex/internal/tracing"
	"github.com/kailas-cloud/contractdex/internal/version"
)

// Global flags
var (
	flagEnv    string
	flagConfig string
	flagLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "contractdex",
	Short: "Discover, enrich and search smart-contract deployments",
	Long: `contractdex classifies verified smart-contract deployments with an LLM,
embeds the results and serves vector, text and source search over them.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.Date),
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "Config environment (local, dev, prod); defaults to $ENV")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a config file; overrides --env")
	rootCmd.PersistentFlags().StringVar(&flagLevel, "log-level", "", "Log level override (debug, info, warn, error)")
}

// Execute runs the root command until it returns or a signal arrives.
func Execute(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// session bundles what every command needs.
type session struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	app    *app.App
	ctx    context.Context
	close  func()
}

// bootstrap loads config, sets up logging, tracing and metrics, and wires the app.
func bootstrap(cmd *cobra.Command) (*session, error) {
	env := flagEnv
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if flagLevel != "" {
		level = flagLevel
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	ctx := logpkg.ContextWithLogger(cmd.Context(), logger)

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Exporter:    cfg.Tracing.Exporter,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version.Version,
		Writer:      os.Stderr,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("setup tracing: %w", err)
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterLLMMetrics()
	metrics.RegisterPipelineMetrics()

	a, err := app.New(ctx, cfg, logger, app.Overrides{})
	if err != nil {
		_ = shutdownTracing(context.Background())
		_ = logger.Sync()
		return nil, err
	}

	return &session{
		env:    env,
		cfg:    cfg,
		logger: logger,
		app:    a,
		ctx:    ctx,
		close: func() {
			a.Close()
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Warn("Tracing shutdown failed", zap.Error(err))
			}
			_ = logger.Sync()
		},
	}, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
