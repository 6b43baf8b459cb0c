package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shipit/internal/deps"
	"shipit/internal/notifications"
	"shipit/internal/preflight"
	"shipit/internal/project"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, folders and the project setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			dir, err := ctx.projectDir()
			if err != nil {
				return err
			}
			proj, err := project.Load(dir)
			switch {
			case errors.Is(err, project.ErrNotProject):
				fmt.Fprintf(out, "No %s in %s; project checks skipped\n", project.SettingsFile, dir)
				proj = nil
			case err != nil:
				return err
			}

			projectBuild := ""
			if proj != nil {
				projectBuild = proj.Settings.Build.Executable
			}
			tools := deps.CheckTools(cfg, projectBuild)
			fmt.Fprintln(out, renderToolsTable(tools))

			checks := preflight.RunAll(cmd.Context(), cfg, proj)
			fmt.Fprintln(out, renderChecksTable(checks))

			if notify {
				if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
					return fmt.Errorf("test notification: %w", err)
				}
				fmt.Fprintln(out, "Test notification sent")
			}

			problems := len(deps.Missing(tools)) + len(preflight.Failed(checks))
			if problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "Also send a test notification")
	return cmd
}

func renderToolsTable(statuses []deps.Status) string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		state := "ok"
		if !s.Available {
			state = "missing"
		}
		rows = append(rows, []string{s.Name, s.Command, state, yesNo(s.Optional), s.Detail})
	}
	return renderTable([]string{"Tool", "Command", "Status", "Optional", "Detail"}, rows, nil)
}

func renderChecksTable(results []preflight.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		state := "ok"
		if !r.Passed {
			state = "failed"
		}
		rows = append(rows, []string{r.Name, state, r.Detail})
	}
	return renderTable([]string{"Check", "Status", "Detail"}, rows, nil)
}
