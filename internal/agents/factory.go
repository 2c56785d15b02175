package agents

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"copydesk/internal/config"
	"copydesk/internal/loop"
	"copydesk/internal/services"
)

// New builds the creator/reviewer pair for one workspace from configuration.
// Per-episode overrides in the workspace's episode.yaml take precedence over
// the global config for command-mode agents.
func New(cfg *config.Config, workspaceDir string) (loop.Creator, loop.Reviewer, error) {
	creatorCfg := cfg.Agents.Creator
	reviewerCfg := cfg.Agents.Reviewer

	overrides, err := loadEpisodeOverrides(workspaceDir)
	if err != nil {
		return nil, nil, err
	}
	applyOverride(&creatorCfg, overrides["creator"])
	applyOverride(&reviewerCfg, overrides["reviewer"])

	creator, err := newCreator(creatorCfg, cfg.GetLLM(), workspaceDir)
	if err != nil {
		return nil, nil, err
	}
	reviewer, err := newReviewer(reviewerCfg, cfg.GetLLM(), workspaceDir)
	if err != nil {
		return nil, nil, err
	}
	return creator, reviewer, nil
}

func newCreator(agent config.Agent, llm config.LLM, workspaceDir string) (loop.Creator, error) {
	switch agent.Mode {
	case "command":
		return NewCommandCreator(agent, workspaceDir)
	case "openai":
		return NewLLMCreator(llm)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "agent", "factory",
			fmt.Sprintf("unknown creator mode %q", agent.Mode), nil)
	}
}

func newReviewer(agent config.Agent, llm config.LLM, workspaceDir string) (loop.Reviewer, error) {
	switch agent.Mode {
	case "command":
		return NewCommandReviewer(agent, workspaceDir)
	case "openai":
		return NewLLMReviewer(llm)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "agent", "factory",
			fmt.Sprintf("unknown reviewer mode %q", agent.Mode), nil)
	}
}

type agentOverride struct {
	Mode           string   `yaml:"mode"`
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// loadEpisodeOverrides reads the agents section from a workspace's
// episode.yaml. A missing file or missing section yields no overrides.
func loadEpisodeOverrides(workspaceDir string) (map[string]agentOverride, error) {
	if strings.TrimSpace(workspaceDir) == "" {
		return nil, nil
	}
	path := filepath.Join(workspaceDir, "episode.yaml")
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "agent", "overrides", "read episode.yaml", err)
	}

	var doc struct {
		Agents map[string]agentOverride `yaml:"agents"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "agent", "overrides", "parse episode.yaml", err)
	}
	return doc.Agents, nil
}

func applyOverride(agent *config.Agent, override agentOverride) {
	if mode := strings.ToLower(strings.TrimSpace(override.Mode)); mode != "" {
		agent.Mode = mode
	}
	if command := strings.TrimSpace(override.Command); command != "" {
		agent.Command = command
	}
	if len(override.Args) > 0 {
		agent.Args = append([]string{}, override.Args...)
	}
	if override.TimeoutSeconds > 0 {
		agent.TimeoutSeconds = override.TimeoutSeconds
	}
}
