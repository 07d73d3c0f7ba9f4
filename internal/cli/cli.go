package cli

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/memsched/internal/app"
	"github.com/vk/memsched/internal/scheduler"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(msg string) error {
	return &ExitError{Code: 2, Message: msg}
}

type flagValues struct {
	program     string
	strategy    string
	pointerSize int64
	workers     int
	output      string
	logFormat   string
	logLevel    string
	metricsOut  string
	settings    string
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var cfg *app.Config
	cmd := newRootCommand(func(c *app.Config) { cfg = c })
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	if err := cmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, false, exitErr
		}
		return nil, false, usageError(err.Error())
	}
	if cfg == nil {
		// Help was requested or no program path was given.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}

func newRootCommand(done func(*app.Config)) *cobra.Command {
	var v flagValues
	cmd := &cobra.Command{
		Use:   "memsched [flags] [PROGRAM_PATH]",
		Short: "memsched - a memory-minimizing instruction scheduler.",
		Long: `memsched - a memory-minimizing instruction scheduler.

Orders the instructions of every computation in a data-flow program so that
the peak memory held by live buffers stays small, and reports the minimum
memory each produced order needs.

PROGRAM_PATH is a single .hcl/.yaml/.yml program file or a directory that
is searched recursively for them.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := v.program
			if path == "" && len(args) > 0 {
				path = args[0]
			}
			slog.Debug("Program path determined.", "path", path)
			if path == "" {
				slog.Debug("No program path provided, printing usage and exiting.")
				return cmd.Help()
			}
			cfg, err := buildConfig(cmd, path, &v)
			if err != nil {
				return err
			}
			done(cfg)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&v.program, "program", "p", "", "Path to the program file or directory.")
	flags.StringVar(&v.strategy, "strategy", scheduler.DefaultStrategy, "Scheduling strategy. Options: "+strings.Join(scheduler.Names(), ", ")+".")
	flags.Int64Var(&v.pointerSize, "pointer-size", 8, "Size in bytes of one tuple element pointer.")
	flags.IntVar(&v.workers, "workers", 1, "Number of computations of one call level scheduled concurrently.")
	flags.StringVarP(&v.output, "output", "o", app.OutputText, "Report format. Options: 'text' or 'yaml'.")
	flags.StringVar(&v.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&v.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.StringVar(&v.metricsOut, "metrics-out", "", "Write Prometheus metrics to this textfile.")
	flags.StringVarP(&v.settings, "config", "c", "", "Settings file (.yaml, .yml, .json or .toml). Flags override its values.")
	return cmd
}

// buildConfig layers explicit flags over the settings file over flag defaults.
func buildConfig(cmd *cobra.Command, path string, v *flagValues) (*app.Config, error) {
	flags := cmd.Flags()
	cfg := app.Config{Path: path}
	if flags.Changed("strategy") {
		cfg.Strategy = v.strategy
	}
	if flags.Changed("pointer-size") {
		cfg.PointerSize = v.pointerSize
	}
	if flags.Changed("workers") {
		cfg.Workers = v.workers
	}
	if flags.Changed("output") {
		cfg.Output = v.output
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = v.logFormat
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = v.logLevel
	}
	if flags.Changed("metrics-out") {
		cfg.MetricsOut = v.metricsOut
	}

	if v.settings != "" {
		s, err := app.LoadSettings(v.settings)
		if err != nil {
			return nil, usageError(err.Error())
		}
		s.Merge(&cfg)
		slog.Debug("Settings file merged.", "path", v.settings)
	}
	app.Settings{
		Strategy:    v.strategy,
		PointerSize: v.pointerSize,
		Workers:     v.workers,
		Output:      v.output,
		LogFormat:   v.logFormat,
		LogLevel:    v.logLevel,
	}.Merge(&cfg)

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, usageError("invalid log-format: must be 'text' or 'json'")
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err.Error())
	}
	return config, nil
}
