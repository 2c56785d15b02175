package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLoop(); err != nil {
		return err
	}
	if err := c.validateAgents(); err != nil {
		return err
	}
	if err := c.validateChunker(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLoop() error {
	if c.Loop.MaxIterations < 1 {
		return errors.New("loop.max_iterations must be at least 1")
	}
	if c.Loop.Workers < 1 {
		return errors.New("loop.workers must be at least 1")
	}
	if c.Loop.HeartbeatTimeout <= c.Loop.HeartbeatInterval {
		return errors.New("loop.heartbeat_timeout must exceed loop.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateAgents() error {
	for _, entry := range []struct {
		name  string
		agent Agent
	}{
		{"agents.creator", c.Agents.Creator},
		{"agents.reviewer", c.Agents.Reviewer},
	} {
		switch entry.agent.Mode {
		case "command":
			if entry.agent.Command == "" {
				return fmt.Errorf("%s.command must be set when mode is \"command\"", entry.name)
			}
		case "openai":
			if c.LLM.APIKey == "" {
				defaultPath, err := DefaultConfigPath()
				if err != nil {
					defaultPath = "~/.config/copydesk/config.toml"
				}
				return fmt.Errorf("llm.api_key is required for %s mode \"openai\". Set OPENAI_API_KEY or edit %s (create with 'copydesk config init')", entry.name, defaultPath)
			}
		default:
			return fmt.Errorf("%s.mode must be \"command\" or \"openai\", got %q", entry.name, entry.agent.Mode)
		}
	}
	return nil
}

func (c *Config) validateChunker() error {
	if c.Chunker.OverlapTokens >= c.Chunker.MaxTokens {
		return errors.New("chunker.overlap_tokens must be smaller than chunker.max_tokens")
	}
	if c.Chunker.MinTokens < 0 {
		return errors.New("chunker.min_tokens must not be negative")
	}
	if c.Chunker.MinTokens > c.Chunker.MaxTokens {
		return errors.New("chunker.min_tokens must not exceed chunker.max_tokens")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
