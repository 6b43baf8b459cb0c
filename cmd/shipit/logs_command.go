package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"shipit/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the structured shipit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := logs.TailOptions{Offset: -1, Limit: lines}
			opts.Match = strings.TrimSpace(runID)
			out := cmd.OutOrStdout()
			if follow {
				return logs.Follow(cmd.Context(), cfg.LogPath(), opts, func(batch []string) {
					printLines(out, batch)
				})
			}
			result, err := logs.Tail(cfg.LogPath(), opts)
			if err != nil {
				return err
			}
			printLines(out, result.Lines)
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "l", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines mentioning this run ID (a prefix is enough)")
	return cmd
}

func printLines(out io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
