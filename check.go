package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hullbridge/core"
	"hullbridge/core/validation"
	"hullbridge/cvhacd"
	"hullbridge/db"
)

// minFreeSpace is what the check command wants next to the log and database.
const minFreeSpace = 64 * core.BytesPerMB

func newCheckCommand(a *app) *cobra.Command {
	var (
		backendName string
		wasmModule  string
		dbPath      string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and the selected backend",
		Long: `Run the startup checks: configuration, output locations, free disk space,
backend availability, a cube smoke test and the history database.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.readConfig(cmd, func(cfg *core.Config) {
				if backendName != "" {
					cfg.Backend = backendName
				}
				if wasmModule != "" {
					cfg.WasmModule = wasmModule
				}
				if dbPath != "" {
					cfg.DatabasePath = dbPath
				}
			})
			if err != nil {
				return err
			}

			suite := validation.NewValidationSuite("hullbridge environment check").
				WithOutput(a.stdout).
				Add(configChecks(cfg)...)

			result := suite.Validate(cmd.Context())
			if !result.Success {
				return &exitError{code: core.ExitCodeError, err: result.GetFirstError(), silent: true}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backendName, "backend", "", "backend to check")
	cmd.Flags().StringVar(&wasmModule, "wasm-module", "", "wasm module for the wasm backend")
	cmd.Flags().StringVar(&dbPath, "db", "", "run history database to check")
	return cmd
}

func configChecks(cfg *core.Config) []validation.Check {
	var b *backend

	return []validation.Check{
		{
			Name: "Configuration",
			Run: func(ctx context.Context) validation.CheckResult {
				if err := cfg.Validate(); err != nil {
					return validation.Failed("invalid configuration", err)
				}
				return validation.Passed("backend %s, buffer budget %s", cfg.Backend, core.FormatBytes(cfg.MaxBufferBytes))
			},
		},
		{
			Name: "Log file",
			Run: func(ctx context.Context) validation.CheckResult {
				if cfg.LogFile == "" {
					return validation.Passed("file logging disabled")
				}
				if err := validation.CheckWritableDir(cfg.LogFile); err != nil {
					return validation.Failed("log directory not writable", err)
				}
				return validation.Passed("%s", cfg.LogFile)
			},
		},
		{
			Name: "Disk space",
			Run: func(ctx context.Context) validation.CheckResult {
				path := "."
				if cfg.DatabasePath != "" {
					path = filepath.Dir(cfg.DatabasePath)
				}
				info, err := validation.GetDiskSpace(path)
				if err != nil {
					return validation.Warning("could not determine free space: %v", err)
				}
				if info.Free < minFreeSpace {
					return validation.Warning("only %s free at %s", core.FormatBytes(info.Free), info.Path)
				}
				return validation.Passed("%s free", core.FormatBytes(info.Free))
			},
		},
		{
			Name:           "Backend",
			RequiresPassed: true,
			Run: func(ctx context.Context) validation.CheckResult {
				if cfg.Backend == core.BackendWasm {
					if err := validation.CheckFileExists(cfg.WasmModule); err != nil {
						return validation.Failed("wasm module missing", err)
					}
				}
				if cfg.Backend == core.BackendNative && !cvhacd.Available() {
					return validation.Failed("native backend not built", cvhacd.ErrUnavailable)
				}
				var err error
				b, err = openBackend(ctx, cfg, zap.NewNop())
				if err != nil {
					return validation.Failed("backend unavailable", err)
				}
				return validation.Passed("%s", b.name)
			},
		},
		{
			Name:           "Cube smoke test",
			RequiresPassed: true,
			Run: func(ctx context.Context) validation.CheckResult {
				if b == nil {
					return validation.Failed("no backend", errors.New("backend was not opened"))
				}
				if b.close != nil {
					defer b.close(context.Background())
				}
				n, err := smokeTest(ctx, b, zap.NewNop())
				if err != nil {
					return validation.Failed("cube decomposition failed", err)
				}
				return validation.Passed("8 vertices, 12 triangles -> %d hull", n)
			},
		},
		{
			Name: "History database",
			Run: func(ctx context.Context) validation.CheckResult {
				if cfg.DatabasePath == "" {
					return validation.Passed("disabled")
				}
				database, err := db.Open(cfg.DatabasePath)
				if err != nil {
					return validation.Failed("cannot open database", err)
				}
				defer database.Close()
				if err := database.Ping(ctx); err != nil {
					return validation.Failed("database not responding", err)
				}
				return validation.Passed("%s", cfg.DatabasePath)
			},
		},
		{
			Name: "Metrics textfile",
			Run: func(ctx context.Context) validation.CheckResult {
				if cfg.MetricsTextfile == "" {
					return validation.Passed("disabled")
				}
				if err := validation.CheckWritableDir(cfg.MetricsTextfile); err != nil {
					return validation.Failed(fmt.Sprintf("cannot write %s", cfg.MetricsTextfile), err)
				}
				return validation.Passed("%s", cfg.MetricsTextfile)
			},
		},
	}
}
