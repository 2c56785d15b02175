package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"copydesk/internal/config"
	"copydesk/internal/domain"
	"copydesk/internal/loop"
	"copydesk/internal/services"
)

// Command describes one external agent executable.
type Command struct {
	Name    string
	Args    []string
	Timeout time.Duration
	Dir     string
}

func commandFromConfig(agent config.Agent, dir string) Command {
	return Command{
		Name:    agent.Command,
		Args:    append([]string{}, agent.Args...),
		Timeout: time.Duration(agent.TimeoutSeconds) * time.Second,
		Dir:     dir,
	}
}

// CheckInstalled reports an error when the configured executable cannot be
// found on PATH, with a hint for common agent CLIs.
func (c Command) CheckInstalled() error {
	if strings.TrimSpace(c.Name) == "" {
		return services.Wrap(services.ErrConfiguration, "agent", "check", "no command configured", nil)
	}
	if _, err := exec.LookPath(c.Name); err != nil {
		hint := installHint(c.Name)
		if hint != "" {
			return services.Wrap(services.ErrConfiguration, "agent", "check",
				fmt.Sprintf("%q not found on PATH (%s)", c.Name, hint), err)
		}
		return services.Wrap(services.ErrConfiguration, "agent", "check",
			fmt.Sprintf("%q not found on PATH", c.Name), err)
	}
	return nil
}

func installHint(command string) string {
	switch command {
	case "codex":
		return "install: https://github.com/openai/codex#install"
	case "claude":
		return "install: https://github.com/anthropics/claude-code#install"
	default:
		return ""
	}
}

func (c Command) run(ctx context.Context, label string, request any) (map[string]any, error) {
	input, err := json.Marshal(request)
	if err != nil {
		return nil, services.Wrap(services.ErrContract, label, "encode request", "", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, services.Wrap(services.ErrExternalTool, label, "run "+c.Name, detail, err)
	}
	if strings.TrimSpace(stdout.String()) == "" {
		return nil, services.Wrap(services.ErrExternalTool, label, "run "+c.Name, "empty output", nil)
	}
	return ExtractJSONPayload(stdout.String(), label)
}

// CommandCreator drives an external creator executable. The creator receives
// the full loop input as a JSON object on stdin and must print a JSON object
// with "done" and a candidate.
type CommandCreator struct {
	cmd Command
}

// NewCommandCreator builds a creator from config, verifying the executable
// exists.
func NewCommandCreator(agent config.Agent, workspaceDir string) (*CommandCreator, error) {
	cmd := commandFromConfig(agent, workspaceDir)
	if err := cmd.CheckInstalled(); err != nil {
		return nil, err
	}
	return &CommandCreator{cmd: cmd}, nil
}

type creatorRequest struct {
	Role              string                  `json:"role"`
	AssetID           string                  `json:"asset_id"`
	Iteration         int                     `json:"iteration"`
	PreviousCandidate *domain.Candidate       `json:"previous_candidate,omitempty"`
	PreviousReview    *domain.ReviewIteration `json:"previous_review,omitempty"`
}

// Create implements loop.Creator.
func (c *CommandCreator) Create(ctx context.Context, input loop.CreatorInput) (loop.CreatorOutput, error) {
	payload, err := c.cmd.run(ctx, "creator", creatorRequest{
		Role:              "creator",
		AssetID:           input.AssetID,
		Iteration:         input.Iteration,
		PreviousCandidate: input.PreviousCandidate,
		PreviousReview:    input.PreviousReview,
	})
	if err != nil {
		return loop.CreatorOutput{}, err
	}
	return decodeCreatorReply(input, payload, time.Now().UTC())
}

// CommandReviewer drives an external reviewer executable.
type CommandReviewer struct {
	cmd  Command
	name string
}

// NewCommandReviewer builds a reviewer from config, verifying the executable
// exists. The executable's base name doubles as the reviewer identity on
// review records.
func NewCommandReviewer(agent config.Agent, workspaceDir string) (*CommandReviewer, error) {
	cmd := commandFromConfig(agent, workspaceDir)
	if err := cmd.CheckInstalled(); err != nil {
		return nil, err
	}
	return &CommandReviewer{cmd: cmd, name: agent.Command}, nil
}

type reviewerRequest struct {
	Role      string           `json:"role"`
	AssetID   string           `json:"asset_id"`
	Iteration int              `json:"iteration"`
	Candidate domain.Candidate `json:"candidate"`
}

// Review implements loop.Reviewer.
func (c *CommandReviewer) Review(ctx context.Context, input loop.ReviewerInput) (domain.ReviewIteration, error) {
	payload, err := c.cmd.run(ctx, "reviewer", reviewerRequest{
		Role:      "reviewer",
		AssetID:   input.AssetID,
		Iteration: input.Iteration,
		Candidate: input.Candidate,
	})
	if err != nil {
		return domain.ReviewIteration{}, err
	}
	return decodeReviewerReply(input, payload, c.name, time.Now().UTC())
}
