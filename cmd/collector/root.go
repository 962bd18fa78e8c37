package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pricecollector/config"
	"pricecollector/internal/apperror"
	"pricecollector/internal/collector"
	"pricecollector/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	verbose  bool
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "collector",
	Short: "Append the latest prices of a symbol list to a snapshot table",
	Long: `collector captures the latest price of every symbol in a list and appends
them as one row to a ';'-separated snapshot table.

Commands:
    run         one ingestion cycle, exit code reports the outcome
    schedule    repeat the cycle on a cron spec until interrupted
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollector(cmd, func(ctx context.Context, c *collector.Collector, _ *config.Config) error {
			out := c.RunOnce(ctx)
			exitCode = out.ExitCode()
			return nil
		})
	},
}

var (
	cronSpec   string
	runAtStart bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run ingestion cycles on a cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollector(cmd, func(ctx context.Context, c *collector.Collector, cfg *config.Config) error {
			spec := cfg.Schedule.Cron
			if cmd.Flags().Changed("cron") {
				spec = cronSpec
			}
			return c.Schedule(ctx, spec, runAtStart)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	scheduleCmd.Flags().StringVar(&cronSpec, "cron", config.DefaultCron, "cron spec, overrides schedule.cron")
	scheduleCmd.Flags().BoolVar(&runAtStart, "now", true, "run once immediately at startup")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
}

// Execute runs the CLI and returns the process exit code.
func Execute() (int, error) {
	if err := rootCmd.Execute(); err != nil {
		return apperror.CodeOf(err).ExitCode(), err
	}
	return exitCode, nil
}

// withCollector loads config, builds the logger and collector, and runs fn
// with a context cancelled on SIGINT/SIGTERM.
func withCollector(cmd *cobra.Command, fn func(context.Context, *collector.Collector, *config.Config) error) error {
	// viper config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return logConfigError(cfg, err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	// zap logger
	log, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer closeLog()

	c, err := collector.New(cfg, log)
	if err != nil {
		err = apperror.Wrap(apperror.Configuration, "collector.new", err)
		log.Error("failed to build collector", zap.Error(err))
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn("failed to close collector", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, c, cfg)
}

// logConfigError writes a config failure to the log sink, falling back to the
// default sink when the config could not be decoded at all.
func logConfigError(cfg *config.Config, err error) error {
	opts := config.DefaultLogConfig()
	if cfg != nil {
		opts = cfg.Log
	}
	log, closeLog, lerr := logger.New(opts)
	if lerr != nil {
		return err
	}
	defer closeLog()

	log.Error("configuration rejected",
		zap.String("kind", string(apperror.CodeOf(err))),
		zap.Error(err))
	return err
}
