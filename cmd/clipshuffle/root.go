package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agleyzer/clipshuffle/internal/config"
	"github.com/agleyzer/clipshuffle/internal/logging"
	"github.com/agleyzer/clipshuffle/internal/processor"
	"github.com/agleyzer/clipshuffle/internal/shuffle"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// runFlags override config values for the shuffle run.
type runFlags struct {
	input         string
	output        string
	seconds       int
	seed          uint64
	playlist      string
	defaultFPS    int
	attemptFactor float64
}

func newRootCommand() *cobra.Command {
	var global globalFlags
	var run runFlags

	rootCmd := &cobra.Command{
		Use:   "clipshuffle",
		Short: "Cut timeline clips into segments and shuffle them across sources",
		Long: `clipshuffle reads an FCP7 XML (xmeml) timeline exported from Premiere Pro,
cuts every clip into fixed-length segments, shuffles the segments so that
adjacent ones come from different source media where possible, and writes a
new timeline that can be imported back into the editor.`,
		Example: `  clipshuffle
  clipshuffle -i edit.xml -o edit_shuffled.xml -s 4
  clipshuffle --seed 42 --playlist preview.m3u8`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, global, &run)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			return runShuffle(cmd, cfg, logger)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&global.configPath, "config", "c", "", "Configuration file path (default ./"+config.FileName+" when present)")
	pf.StringVar(&global.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&global.logFormat, "log-format", "", "Log format: console, text or json")

	f := rootCmd.Flags()
	f.StringVarP(&run.input, "input", "i", config.DefaultInput, "Input FCP7 XML timeline")
	f.StringVarP(&run.output, "output", "o", config.DefaultOutput, "Output timeline path")
	f.IntVarP(&run.seconds, "seconds", "s", config.DefaultSegmentSeconds, "Segment length in seconds")
	f.Uint64Var(&run.seed, "seed", 0, "Random seed for a reproducible order (0 = random)")
	f.StringVar(&run.playlist, "playlist", "", "Also write an HLS preview playlist to this path")
	f.IntVar(&run.defaultFPS, "default-fps", config.DefaultFPS, "Frame rate used when the sequence has none")
	f.Float64Var(&run.attemptFactor, "attempt-factor", config.DefaultAttemptFactor, "Shuffle attempts allowed per segment")

	rootCmd.AddCommand(newInspectCommand(&global))
	rootCmd.AddCommand(newConfigCommand(&global))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// loadConfig reads the config file and applies the flags the user set.
// run may be nil for subcommands without run flags.
func loadConfig(cmd *cobra.Command, global globalFlags, run *runFlags) (*config.Config, error) {
	cfg, _, _, err := config.Load(global.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = global.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = global.logFormat
	}
	if run != nil {
		if flags.Changed("input") {
			cfg.Input = run.input
		}
		if flags.Changed("output") {
			cfg.Output = run.output
		}
		if flags.Changed("seconds") {
			cfg.SegmentSeconds = run.seconds
		}
		if flags.Changed("seed") {
			cfg.Seed = run.seed
		}
		if flags.Changed("playlist") {
			cfg.PreviewPlaylist = run.playlist
		}
		if flags.Changed("default-fps") {
			cfg.DefaultFPS = run.defaultFPS
		}
		if flags.Changed("attempt-factor") {
			cfg.AttemptFactor = run.attemptFactor
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return logging.WithRunID(logger, uuid.NewString()), nil
}

func runShuffle(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("clipshuffle starting",
		"version", version,
		"input", cfg.Input,
		"output", cfg.Output,
		"segment_seconds", cfg.SegmentSeconds,
		"seed", cfg.Seed,
	)
	if cfg.ConfigPath != "" {
		logger.Debug("using config file", "path", cfg.ConfigPath)
	}

	report, err := processor.Run(ctx, processor.Options{
		InputPath:      cfg.Input,
		OutputPath:     cfg.Output,
		PlaylistPath:   cfg.PreviewPlaylist,
		SegmentSeconds: cfg.SegmentSeconds,
		DefaultFPS:     cfg.DefaultFPS,
		AttemptFactor:  cfg.AttemptFactor,
		Rand:           shuffle.NewRand(cfg.Seed),
	}, logger)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("interrupted, nothing written")
			return context.Canceled
		}
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w\nExport your Premiere timeline as Final Cut Pro XML and save it as %s, or pass --input", err, cfg.Input)
		}
		return err
	}

	printReport(cmd.OutOrStdout(), report)
	return nil
}
