package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"hullbridge/core"
	"hullbridge/logging"
)

// app carries state shared by the subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// root flags
	envFile  string
	logLevel string
	logFile  string
	dev      bool

	cfg    *core.Config
	logger *logging.Logger
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "hullbridge",
		Short: "Approximate convex decomposition of triangle meshes",
		Long: `hullbridge splits a triangle mesh into a set of convex hulls using a
V-HACD compatible engine. Three backends are available:

  reference  pure Go engine, always available
  wasm       V-HACD compiled to WebAssembly, run under wazero
  native     V-HACD linked through cgo (build with -tags vhacd)

Configuration is read from the environment (HULLBRIDGE_*) and an optional
.env file; flags override both.`,
		Version:       core.GetVersionInfo(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "environment file to load")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "rotated JSON log file (overrides "+core.EnvLogFile+")")
	root.PersistentFlags().BoolVar(&a.dev, "dev", false, "development logging")

	root.AddCommand(newDecomposeCommand(a))
	root.AddCommand(newHistoryCommand(a))
	root.AddCommand(newCheckCommand(a))
	root.AddCommand(newVersionCommand(a))
	return root
}

// usageArgs marks positional-argument errors as usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// readConfig loads the env file and environment, then applies the root
// flags and override. The result is not validated.
func (a *app) readConfig(cmd *cobra.Command, override func(*core.Config)) (*core.Config, error) {
	if err := core.LoadEnvFile(a.envFile); err != nil {
		return nil, err
	}
	cfg := core.ReadConfig()

	flags := cmd.Flags()
	if flags.Changed("dev") {
		cfg.DevMode = a.dev
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = a.logFile
	}
	if override != nil {
		override(cfg)
	}
	cfg.Backend = strings.ToLower(cfg.Backend)
	return cfg, nil
}

// setup reads and validates the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command, override func(*core.Config)) error {
	cfg, err := a.readConfig(cmd, override)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Development: cfg.DevMode,
		FilePath:    cfg.LogFile,
		Level:       cfg.LogLevel,
		Console:     a.stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	logger.Zap().Debug("Configuration loaded",
		logConfigFields(cfg)...,
	)
	return nil
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.stdout, "hullbridge %s\n", core.GetVersionInfo())
			fmt.Fprintf(a.stdout, "platform   %s\n", core.GetPlatform())
			fmt.Fprintf(a.stdout, "native     %s\n", nativeStatus())
			return nil
		},
	}
}
