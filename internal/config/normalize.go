package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLoop()
	c.normalizeAgents()
	c.normalizeLLM()
	c.normalizeChunker()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkspacesDir) == "" {
		c.Paths.WorkspacesDir = defaultWorkspacesDir
	}
	if c.Paths.WorkspacesDir, err = expandPath(c.Paths.WorkspacesDir); err != nil {
		return fmt.Errorf("paths.workspaces_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLoop() {
	if c.Loop.MaxIterations <= 0 {
		c.Loop.MaxIterations = defaultMaxIterations
	}
	if c.Loop.Workers <= 0 {
		c.Loop.Workers = defaultWorkers
	}
	if c.Loop.QueuePollInterval <= 0 {
		c.Loop.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Loop.HeartbeatInterval <= 0 {
		c.Loop.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Loop.HeartbeatTimeout <= 0 {
		c.Loop.HeartbeatTimeout = defaultHeartbeatTimeout
	}
}

func (c *Config) normalizeAgents() {
	for _, agent := range []*Agent{&c.Agents.Creator, &c.Agents.Reviewer} {
		agent.Mode = strings.ToLower(strings.TrimSpace(agent.Mode))
		if agent.Mode == "" {
			agent.Mode = defaultAgentMode
		}
		agent.Command = strings.TrimSpace(agent.Command)
		if agent.TimeoutSeconds <= 0 {
			agent.TimeoutSeconds = defaultAgentTimeoutSeconds
		}
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("COPYDESK_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeChunker() {
	if c.Chunker.MaxTokens <= 0 {
		c.Chunker.MaxTokens = defaultChunkMaxTokens
	}
	if c.Chunker.OverlapTokens < 0 {
		c.Chunker.OverlapTokens = defaultChunkOverlapTokens
	}
	if c.Chunker.BoundaryLookbackTokens <= 0 {
		c.Chunker.BoundaryLookbackTokens = defaultChunkBoundaryLookback
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}
