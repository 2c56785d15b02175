package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"copydesk/internal/config"
	"copydesk/internal/logging"
	"copydesk/internal/queue"
	"copydesk/internal/workspace"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
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

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openQueue() (*queue.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return queue.Open(cfg)
}

// workspaceStore resolves a workspace argument into a store. The argument is
// either a path to a workspace directory or an episode id under the
// configured workspaces directory.
func (c *commandContext) workspaceStore(arg string) (*workspace.Store, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("workspace is required")
	}

	expanded, err := config.ExpandPath(arg)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(expanded); err == nil && info.IsDir() {
		return workspace.NewStore(expanded), nil
	}

	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	nested := cfg.WorkspaceDir(arg)
	if info, err := os.Stat(nested); err == nil && info.IsDir() {
		return workspace.NewStore(nested), nil
	}
	return nil, fmt.Errorf("workspace %q not found (looked at %s and %s)", arg, expanded, nested)
}
