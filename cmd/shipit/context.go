package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shipit/internal/config"
	"shipit/internal/journal"
	"shipit/internal/logging"
	"shipit/internal/outputsink"
	"shipit/internal/workflow"
)

type commandContext struct {
	configFlag   *string
	projectFlag  *string
	simulateFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, projectFlag *string, simulateFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		projectFlag:  projectFlag,
		simulateFlag: simulateFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) simulate() bool {
	return c.simulateFlag != nil && *c.simulateFlag
}

func (c *commandContext) projectDir() (string, error) {
	if c.projectFlag != nil {
		if dir := strings.TrimSpace(*c.projectFlag); dir != "" {
			return config.ExpandPath(dir)
		}
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	return dir, nil
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return logger, nil
}

// session bundles everything a command needs to run workflows.
type session struct {
	ctrl    *workflow.Controller
	journal *journal.Store
	console *outputsink.Console
}

func (c *commandContext) openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger()
	if err != nil {
		return nil, err
	}
	store, err := journal.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open run journal: %w", err)
	}
	console := outputsink.NewConsole(cmd.OutOrStdout(), outputsink.ConsoleOptions{
		ColorMode: cfg.Output.Color,
		Logger:    logger,
	})
	ctrl, err := workflow.NewController(cfg,
		workflow.WithSink(console),
		workflow.WithLogger(logger),
		workflow.WithJournal(store),
		workflow.WithSimulate(c.simulate()),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &session{ctrl: ctrl, journal: store, console: console}, nil
}

func (s *session) Close() {
	s.ctrl.Close()
	s.console.FinishStatus()
	_ = s.journal.Close()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
