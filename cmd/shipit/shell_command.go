package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shipit/internal/outputsink"
	"shipit/internal/workflow"
)

func newShellCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run an interactive session that starts workflows without waiting",
		Long: "Reads one command per line: a workflow name, 'project <dir>', 'reload', 'help' or 'quit'.\n" +
			"Workflows run in the background; a request while one is running is rejected as busy.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			sh := &shell{ctrl: sess.ctrl, sink: sess.console}
			if dir, err := ctx.projectDir(); err == nil {
				// A working directory without settings is fine; the operator can
				// pick a project later.
				_, _ = sh.ctrl.SetProject(cmd.Context(), dir)
			}
			err = sh.serve(cmd.Context(), cmd.InOrStdin())
			sh.wait()
			return err
		},
	}
}

type shell struct {
	ctrl    *workflow.Controller
	sink    outputsink.Sink
	running sync.WaitGroup
}

// serve dispatches commands until quit, end of input, or ctx is cancelled.
func (s *shell) serve(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if quit := s.dispatch(ctx, line); quit {
				return nil
			}
		}
	}
}

func (s *shell) dispatch(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name := strings.ToLower(fields[0])
	switch name {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		s.help()
	case "project":
		if len(fields) < 2 {
			outputsink.Error(s.sink, "project", "usage: project <dir>")
			return false
		}
		dir := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		_, _ = s.ctrl.SetProject(ctx, dir)
	case "reload":
		_, _ = s.ctrl.Reload(ctx)
	default:
		s.start(ctx, name)
	}
	return false
}

func (s *shell) start(ctx context.Context, name string) {
	if _, ok := workflow.Lookup(name); !ok {
		outputsink.Error(s.sink, "shell", fmt.Sprintf("unknown command %q, type help", name))
		return
	}
	done, err := s.ctrl.Start(ctx, name)
	if err != nil {
		// The controller already printed the rejection.
		return
	}
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		<-done
	}()
}

func (s *shell) wait() {
	s.running.Wait()
}

func (s *shell) help() {
	for _, def := range workflow.Catalog() {
		name := def.Name
		if aliases := def.Aliases(); len(aliases) > 0 {
			name = fmt.Sprintf("%s (%s)", name, strings.Join(aliases, ", "))
		}
		outputsink.Info(s.sink, "help", fmt.Sprintf("%-22s %s", name, def.Description))
	}
	outputsink.Info(s.sink, "help", fmt.Sprintf("%-22s %s", "project <dir>", "Select the project folder"))
	outputsink.Info(s.sink, "help", fmt.Sprintf("%-22s %s", "reload", "Re-read project settings"))
	outputsink.Info(s.sink, "help", fmt.Sprintf("%-22s %s", "quit", "Wait for the running workflow and exit"))
}
