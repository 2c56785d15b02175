package config

const (
	defaultWorkspacesDir         = "~/.local/share/copydesk/workspaces"
	defaultStateDir              = "~/.local/share/copydesk/state"
	defaultLogDir                = "~/.local/share/copydesk/logs"
	defaultLogRetentionDays      = 60
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultMaxIterations         = 5
	defaultWorkers               = 2
	defaultQueuePollInterval     = 5
	defaultHeartbeatInterval     = 15
	defaultHeartbeatTimeout      = 120
	defaultAgentMode             = "command"
	defaultAgentTimeoutSeconds   = 300
	defaultLLMBaseURL            = "https://api.openai.com/v1"
	defaultLLMModel              = "gpt-4o-mini"
	defaultLLMTimeoutSeconds     = 120
	defaultChunkMaxTokens        = 1200
	defaultChunkOverlapTokens    = 200
	defaultChunkBoundaryLookback = 200
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspacesDir: defaultWorkspacesDir,
			StateDir:      defaultStateDir,
			LogDir:        defaultLogDir,
		},
		Loop: Loop{
			MaxIterations:     defaultMaxIterations,
			Workers:           defaultWorkers,
			QueuePollInterval: defaultQueuePollInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
			HeartbeatTimeout:  defaultHeartbeatTimeout,
		},
		Agents: Agents{
			Creator: Agent{
				Mode:           defaultAgentMode,
				TimeoutSeconds: defaultAgentTimeoutSeconds,
			},
			Reviewer: Agent{
				Mode:           defaultAgentMode,
				TimeoutSeconds: defaultAgentTimeoutSeconds,
			},
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Chunker: Chunker{
			MaxTokens:              defaultChunkMaxTokens,
			OverlapTokens:          defaultChunkOverlapTokens,
			BoundaryLookbackTokens: defaultChunkBoundaryLookback,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
