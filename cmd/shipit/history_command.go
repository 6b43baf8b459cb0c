package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"shipit/internal/journal"
	"shipit/internal/pipeline"
	"shipit/internal/watchdog"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var clear bool
	var stats bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently finished workflow runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if clear {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d runs from %s\n", removed, store.Path())
				return nil
			}

			if stats {
				rows, err := store.StatsByWorkflow(cmd.Context())
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderStatsTable(rows))
				return nil
			}

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunsTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&clear, "clear", false, "Delete every recorded run")
	cmd.Flags().BoolVar(&stats, "stats", false, "Show run and failure counts per workflow")
	return cmd
}

func renderRunsTable(runs []journal.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		result := "ok"
		if !run.Success {
			result = "failed"
			if run.FailedStage != "" {
				result = "failed at " + pipeline.Label(run.FailedStage)
			}
		}
		if run.Simulate {
			result += " (simulated)"
		}
		rows = append(rows, []string{
			shortID(run.RunID),
			run.StartedAt.Local().Format(time.DateTime),
			pipeline.Label(run.Workflow),
			result,
			watchdog.FormatElapsed(run.Duration()),
			run.Diagnostic,
			run.ProjectDir,
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Workflow", "Result", "Elapsed", "Diagnostic", "Project"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func renderStatsTable(stats []journal.Stats) string {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			pipeline.Label(s.Workflow),
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Failed),
		})
	}
	return renderTable(
		[]string{"Workflow", "Runs", "Failed"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	)
}

// shortID trims a run ID to the prefix accepted by `shipit logs --run`.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
