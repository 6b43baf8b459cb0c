package main

import (
	"github.com/spf13/cobra"

	"shipit/internal/workflow"
)

func newWorkflowCommands(ctx *commandContext) []*cobra.Command {
	defs := workflow.Catalog()
	cmds := make([]*cobra.Command, 0, len(defs))
	for _, def := range defs {
		cmds = append(cmds, newWorkflowCommand(ctx, def))
	}
	return cmds
}

func newWorkflowCommand(ctx *commandContext, def workflow.Definition) *cobra.Command {
	return &cobra.Command{
		Use:     def.Name,
		Aliases: def.Aliases(),
		Short:   def.Description,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := ctx.projectDir()
			if err != nil {
				return err
			}
			sess, err := ctx.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			if _, err := sess.ctrl.SetProject(cmd.Context(), dir); err != nil {
				return err
			}
			_, err = sess.ctrl.Run(cmd.Context(), def.Name)
			return err
		},
	}
}
