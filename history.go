package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hullbridge/core"
	"hullbridge/db"
	"hullbridge/metrics"
)

func newHistoryCommand(a *app) *cobra.Command {
	var (
		dbPath string
		limit  int
		prune  time.Duration
		stats  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded decompositions",
		Long: `List the most recent runs stored in the history database, newest first.
With --prune, runs older than the given age are deleted first. With --stats,
the listed runs are also summarized per backend.`,
		Example: `  hullbridge history --db runs.db --limit 10
  hullbridge history --db runs.db --prune 720h
  hullbridge history --db runs.db --limit 500 --stats`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return usageError(fmt.Errorf("--limit must be at least 1"))
			}
			if prune < 0 {
				return usageError(fmt.Errorf("--prune must not be negative"))
			}
			err := a.setup(cmd, func(cfg *core.Config) {
				if dbPath != "" {
					cfg.DatabasePath = dbPath
				}
			})
			if err != nil {
				return err
			}
			if a.cfg.DatabasePath == "" {
				return usageError(core.ErrMissingConfig(core.EnvDBPath))
			}

			database, err := db.Open(a.cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer database.Close()

			if cmd.Flags().Changed("prune") {
				result, err := database.Cleanup(cmd.Context(), prune)
				if err != nil {
					return err
				}
				a.logger.Zap().Info("Pruned run history",
					zap.Int64("runs_deleted", result.RunsDeleted),
					zap.Int64("hulls_deleted", result.HullsDeleted),
					zap.Duration("duration", result.Duration),
				)
				fmt.Fprintf(a.stderr, "pruned %d runs (%d hulls)\n", result.RunsDeleted, result.HullsDeleted)
			}

			runs, err := db.NewRepository(database).ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			a.printRuns(runs)
			if stats && len(runs) > 0 {
				store := metrics.NewStore(metrics.StoreConfig{HistoryCapacity: len(runs)})
				for _, r := range runs {
					store.Record(runRecord(r))
				}
				a.printStats(store.Summary())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "run history database (overrides "+core.EnvDBPath+")")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete runs older than this age before listing")
	cmd.Flags().BoolVar(&stats, "stats", false, "summarize the listed runs per backend")
	return cmd
}

func (a *app) printRuns(runs []db.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(a.stdout, "no runs recorded")
		return
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tMESH\tBACKEND\tOUTCOME\tTRIANGLES\tHULLS\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.MeshName,
			r.Backend,
			outcomeColor(r.Outcome).Sprint(r.Outcome),
			r.TriangleCount,
			r.HullCount,
			r.Duration.Round(time.Millisecond),
		)
	}
	tw.Flush()
}

// runRecord converts a stored run for aggregation.
func runRecord(r db.RunRecord) metrics.DecompositionRecord {
	return metrics.DecompositionRecord{
		ID:        r.ID,
		Mesh:      r.MeshName,
		Backend:   r.Backend,
		Outcome:   r.Outcome,
		Points:    r.PointCount,
		Triangles: r.TriangleCount,
		Hulls:     uint32(r.HullCount),
		StartTime: r.CreatedAt,
		Duration:  r.Duration,
		ErrorMsg:  r.ErrorMessage,
	}
}

func (a *app) printStats(sum metrics.Summary) {
	backends := make([]string, 0, len(sum.ByBackend))
	for name := range sum.ByBackend {
		backends = append(backends, name)
	}
	sort.Strings(backends)

	fmt.Fprintln(a.stdout)
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BACKEND\tRUNS\tSUCCESS\tAVG DURATION\tAVG HULLS")
	for _, name := range backends {
		st := sum.ByBackend[name]
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%s\t%.1f\n",
			name, st.Runs, st.SuccessRate, st.AvgDuration.Round(time.Millisecond), st.AvgHulls)
	}
	tw.Flush()
	fmt.Fprintf(a.stdout, "%d runs: %d completed, %d cancelled, %d failed\n",
		sum.TotalRuns, sum.Completed, sum.Cancelled, sum.Failed)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func outcomeColor(outcome string) *color.Color {
	switch outcome {
	case metrics.OutcomeCompleted:
		return color.New(color.FgGreen)
	case metrics.OutcomeCancelled:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
