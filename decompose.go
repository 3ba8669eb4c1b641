package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hullbridge/core"
	"hullbridge/db"
	"hullbridge/logging"
	"hullbridge/meshio"
	"hullbridge/metrics"
	"hullbridge/native"
	"hullbridge/shutdown"
	"hullbridge/vhacd"
)

const (
	formatOBJ  = "obj"
	formatYAML = "yaml"
)

type decomposeOptions struct {
	paramsPath  string
	backend     string
	wasmModule  string
	outPath     string
	format      string
	dbPath      string
	useCache    bool
	timeout     time.Duration
	metricsFile string
	quiet       bool
}

func newDecomposeCommand(a *app) *cobra.Command {
	opts := &decomposeOptions{}

	cmd := &cobra.Command{
		Use:   "decompose MESH.obj",
		Short: "Decompose a mesh into convex hulls",
		Long: `Read a Wavefront OBJ mesh, run the selected engine and write the hulls as
OBJ (one object per hull) or YAML.

Ctrl+C cancels the running decomposition; a second Ctrl+C exits at once.
Exit codes: 0 completed, 1 error or failed run, 2 usage, 3 cancelled
(including --timeout), 130/143 interrupted by SIGINT/SIGTERM.`,
		Example: `  # Reference backend, hulls to stdout
  hullbridge decompose bunny.obj

  # Tuned parameters, YAML output, cached in the history database
  hullbridge decompose bunny.obj --params fine.yaml --format yaml \
      --out bunny-hulls.yaml --db runs.db --cache

  # WebAssembly build of V-HACD with a time limit
  hullbridge decompose bunny.obj --backend wasm --wasm-module vhacd.wasm --timeout 2m`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.decompose(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.paramsPath, "params", "", "YAML parameter file (defaults for missing keys)")
	f.StringVar(&opts.backend, "backend", "", "engine backend: reference, wasm or native")
	f.StringVar(&opts.wasmModule, "wasm-module", "", "wasm module for the wasm backend")
	f.StringVarP(&opts.outPath, "out", "o", "", "output file (default stdout)")
	f.StringVar(&opts.format, "format", formatOBJ, "output format: obj or yaml")
	f.StringVar(&opts.dbPath, "db", "", "run history database (overrides "+core.EnvDBPath+")")
	f.BoolVar(&opts.useCache, "cache", false, "reuse hulls from an identical completed run in the database")
	f.DurationVar(&opts.timeout, "timeout", 0, "cancel the decomposition after this long")
	f.StringVar(&opts.metricsFile, "metrics-textfile", "", "write Prometheus metrics here on exit")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress progress and summary output")

	return cmd
}

func (a *app) decompose(cmd *cobra.Command, meshPath string, opts *decomposeOptions) error {
	opts.format = strings.ToLower(opts.format)
	if opts.format != formatOBJ && opts.format != formatYAML {
		return usageError(fmt.Errorf("unknown format %q (want %s or %s)", opts.format, formatOBJ, formatYAML))
	}
	if opts.timeout < 0 {
		return usageError(fmt.Errorf("--timeout must not be negative"))
	}

	err := a.setup(cmd, func(cfg *core.Config) {
		if opts.backend != "" {
			cfg.Backend = opts.backend
		}
		if opts.wasmModule != "" {
			cfg.WasmModule = opts.wasmModule
		}
		if opts.dbPath != "" {
			cfg.DatabasePath = opts.dbPath
		}
		if opts.metricsFile != "" {
			cfg.MetricsTextfile = opts.metricsFile
		}
	})
	if err != nil {
		return err
	}
	cfg := a.cfg
	logger := a.logger.Zap()
	ctx := cmd.Context()

	if opts.useCache && cfg.DatabasePath == "" {
		return usageError(core.ErrMissingConfig(core.EnvDBPath))
	}

	params, err := meshio.LoadParameters(opts.paramsPath)
	if err != nil {
		return usageError(err)
	}
	mesh, err := meshio.ReadOBJFile(meshPath)
	if err != nil {
		return err
	}
	logger.Info("Mesh loaded",
		append([]zap.Field{zap.String("path", meshPath)}, logging.MeshFields(mesh)...)...)
	logger.Debug("Parameters", logging.ParamsFields(params)...)

	manager := shutdown.NewManager(logger, shutdown.WithTimeout(cfg.ShutdownTimeout))
	manager.Start()
	manager.Register("logger", shutdown.PriorityLogger, shutdown.SyncLogger(logger))
	defer func() {
		if err := manager.Shutdown(); err != nil {
			fmt.Fprintf(a.stderr, "Warning: cleanup: %v\n", err)
		}
	}()

	var exporter *metrics.Exporter
	if cfg.MetricsTextfile != "" {
		exporter = metrics.NewExporter(metrics.DefaultNamespace)
		manager.Register("metrics", shutdown.PriorityMetrics,
			shutdown.WriteMetrics(logger, exporter, cfg.MetricsTextfile))
	}
	recorder := metrics.NewRecorder(nil, exporter)

	var repo *db.Repository
	if cfg.DatabasePath != "" {
		database, err := db.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		manager.Register("database", shutdown.PriorityDatabase, shutdown.CloseDatabase(logger, database))
		repo = db.NewRepository(database)
	}

	meshHash := db.MeshDigest(mesh)
	paramsHash, err := db.ParamsDigest(params)
	if err != nil {
		return err
	}

	if opts.useCache {
		run, hulls, err := lookupCache(ctx, repo, meshHash, paramsHash, cfg.Backend)
		switch {
		case err == nil:
			logger.Info("Serving hulls from history", zap.String("run_id", run.ID), zap.Int("hulls", len(hulls)))
			recorder.Record(metrics.DecompositionRecord{
				ID:        run.ID,
				Mesh:      meshPath,
				Backend:   cfg.Backend,
				Outcome:   metrics.OutcomeCompleted,
				Points:    mesh.CountPoints,
				Triangles: mesh.CountTriangles,
				Hulls:     uint32(len(hulls)),
				StartTime: time.Now(),
				Duration:  run.Duration,
				Cached:    true,
			})
			if err := a.writeHulls(manager, opts, meshPath, vhacd.OutcomeCompleted, hulls); err != nil {
				return err
			}
			a.printSummary(opts, recorder, opts.outPath)
			return nil
		case errors.Is(err, db.ErrNotFound):
			logger.Debug("No cached run", zap.String("mesh_hash", meshHash))
		default:
			logger.Warn("Cache lookup failed", zap.Error(err))
		}
	}

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if b.close != nil {
		manager.Register("backend", shutdown.PriorityEngine+1, b.close)
	}

	progress := core.NewProgressTracker(10)
	engineLog := a.logger.Named("engine")
	params.Callback = func(p native.Progress) {
		if progress.Update(p.Overall, p.StageName) && !opts.quiet {
			info := progress.Progress()
			fmt.Fprintf(a.stderr, "  %5.1f%%  %-24s  %s elapsed\n",
				info.Percent, info.Stage, info.Elapsed.Round(time.Millisecond))
		}
	}
	params.Logger = func(msg string) {
		engineLog.Debug(msg)
	}

	var report vhacd.ComputeReport
	engine, err := vhacd.New(
		vhacd.WithFactory(b.factory),
		vhacd.WithLogger(a.logger.Named("vhacd")),
		vhacd.WithMaxBufferBytes(cfg.MaxBufferBytes),
		vhacd.WithObserver(func(r vhacd.ComputeReport) {
			report = r
			logger.Info("Decomposition finished", logging.OutcomeFields(r)...)
		}),
	)
	if err != nil {
		return err
	}
	manager.Register("engine", shutdown.PriorityEngine, shutdown.ReleaseEngine(logger, engine))

	runCtx := ctx
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	outcome := vhacd.OutcomeNone
	computeErr := manager.Run(runCtx, "decompose "+filepath.Base(meshPath),
		func() { _ = engine.Cancel() },
		func(ctx context.Context) error {
			var err error
			outcome, err = engine.ComputeMesh(ctx, mesh, params)
			return err
		})
	if outcome == vhacd.OutcomeNone {
		// Rejected before reaching the engine: bad mesh, budget, or a
		// signal that arrived first.
		if computeErr == nil || errors.Is(computeErr, context.Canceled) || errors.Is(computeErr, context.DeadlineExceeded) {
			return &exitError{code: manager.ExitCode(core.ExitCodeCancelled), err: errors.New("decomposition cancelled before it started")}
		}
		return computeErr
	}

	hulls, err := engine.ConvexHulls()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	recorder.Record(metrics.FromReport(runID, meshPath, cfg.Backend, report))
	if repo != nil {
		a.recordRun(repo, db.RunRecord{
			ID:            runID,
			MeshName:      meshPath,
			MeshHash:      meshHash,
			ParamsHash:    paramsHash,
			Backend:       cfg.Backend,
			Outcome:       outcome.String(),
			ErrorMessage:  errorMessage(computeErr),
			PointCount:    mesh.CountPoints,
			TriangleCount: mesh.CountTriangles,
			Duration:      report.Duration,
		}, outcome, hulls)
	}

	switch outcome {
	case vhacd.OutcomeCompleted:
		if err := a.writeHulls(manager, opts, meshPath, outcome, hulls); err != nil {
			return err
		}
		a.printSummary(opts, recorder, opts.outPath)
		return nil

	case vhacd.OutcomeCancelled:
		a.printSummary(opts, recorder, "")
		return &exitError{
			code: manager.ExitCode(core.ExitCodeCancelled),
			err:  fmt.Errorf("decomposition cancelled after %s with %d partial hulls", report.Duration.Round(time.Millisecond), len(hulls)),
		}

	default:
		a.printSummary(opts, recorder, "")
		if computeErr == nil {
			computeErr = errors.New("engine reported failure")
		}
		return fmt.Errorf("decomposition failed: %w", computeErr)
	}
}

func lookupCache(ctx context.Context, repo *db.Repository, meshHash, paramsHash, backend string) (db.RunRecord, []*vhacd.ConvexHull, error) {
	run, err := repo.FindCompletedRun(ctx, meshHash, paramsHash, backend)
	if err != nil {
		return db.RunRecord{}, nil, err
	}
	hulls, err := repo.LoadHulls(ctx, run.ID)
	if err != nil {
		return db.RunRecord{}, nil, err
	}
	if len(hulls) != run.HullCount {
		return db.RunRecord{}, nil, fmt.Errorf("run %s has %d of %d hulls stored", run.ID, len(hulls), run.HullCount)
	}
	return run, hulls, nil
}

// recordRun stores the run. Only completed runs keep their hulls, since
// only those are served from the cache. Failures are logged, not returned.
func (a *app) recordRun(repo *db.Repository, rec db.RunRecord, outcome vhacd.Outcome, hulls []*vhacd.ConvexHull) {
	if outcome != vhacd.OutcomeCompleted {
		hulls = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := repo.InsertRun(ctx, rec, hulls); err != nil {
		a.logger.Zap().Warn("Failed to record run", zap.String("run_id", rec.ID), zap.Error(err))
		return
	}
	a.logger.Zap().Debug("Run recorded", zap.String("run_id", rec.ID))
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// writeHulls writes to stdout, or to opts.outPath through a partial file
// renamed into place once complete.
func (a *app) writeHulls(manager *shutdown.Manager, opts *decomposeOptions, source string, outcome vhacd.Outcome, hulls []*vhacd.ConvexHull) error {
	encode := func(w io.Writer) error {
		if opts.format == formatYAML {
			return meshio.WriteYAML(w, meshio.HullSet{Source: source, Outcome: outcome.String(), Hulls: hulls})
		}
		return meshio.WriteOBJ(w, hulls)
	}

	if opts.outPath == "" || opts.outPath == "-" {
		return encode(a.stdout)
	}

	manager.Register("partial-output", shutdown.PriorityOutput, shutdown.RemovePartialOutput(a.logger.Zap(), opts.outPath))
	return writeFileAtomic(opts.outPath, encode)
}

func writeFileAtomic(path string, encode func(io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+shutdown.PartialSuffix)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmp := f.Name()

	w := bufio.NewWriter(f)
	if err := encode(w); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// printSummary reports the run last recorded by collector.
func (a *app) printSummary(opts *decomposeOptions, collector metrics.Collector, output string) {
	recent := collector.Recent(1)
	if opts.quiet || len(recent) == 0 {
		return
	}
	rec := recent[0]

	status := outcomeColor(rec.Outcome).Add(color.Bold)
	status.Fprintf(a.stderr, "%s", strings.ToUpper(rec.Outcome))
	fmt.Fprintf(a.stderr, "  %s  %d points, %d triangles -> %d hulls in %s [%s]",
		filepath.Base(rec.Mesh), rec.Points, rec.Triangles, rec.Hulls, rec.Duration.Round(time.Millisecond), rec.Backend)
	if rec.Cached {
		color.New(color.FgCyan).Fprint(a.stderr, " (cached)")
	}
	fmt.Fprintln(a.stderr)
	if output != "" {
		fmt.Fprintf(a.stderr, "  wrote %s\n", output)
	}
}
