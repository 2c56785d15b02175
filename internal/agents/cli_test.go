package agents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"copydesk/internal/config"
	"copydesk/internal/domain"
	"copydesk/internal/loop"
	"copydesk/internal/services"
)

// stubAgent writes an executable that prints the given stdout and exits with
// the given code, and prepends its directory to PATH.
func stubAgent(t *testing.T, name, stdout string, exitCode int) {
	t.Helper()

	binDir := t.TempDir()
	script := "#!/bin/sh\ncat > /dev/null\ncat <<'EOF'\n" + stdout + "\nEOF\n"
	if exitCode != 0 {
		script = "#!/bin/sh\necho boom >&2\nexit 1\n"
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestCommandCreatorRunsExecutable(t *testing.T) {
	stubAgent(t, "draft-agent", `{"done": true, "content": "fresh draft"}`, 0)

	creator, err := NewCommandCreator(config.Agent{
		Mode:           "command",
		Command:        "draft-agent",
		TimeoutSeconds: 30,
	}, t.TempDir())
	if err != nil {
		t.Fatalf("NewCommandCreator: %v", err)
	}

	output, err := creator.Create(context.Background(), loop.CreatorInput{AssetID: "slug", Iteration: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !output.Done || output.Candidate.Content != "fresh draft" {
		t.Fatalf("unexpected output: %#v", output)
	}
	if output.Candidate.AssetID != "slug" {
		t.Fatalf("asset id = %q", output.Candidate.AssetID)
	}
}

func TestCommandCreatorMissingExecutable(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := NewCommandCreator(config.Agent{Mode: "command", Command: "no-such-agent"}, "")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}

func TestCommandCreatorFailureCarriesStderr(t *testing.T) {
	stubAgent(t, "draft-agent", "", 1)

	creator, err := NewCommandCreator(config.Agent{Mode: "command", Command: "draft-agent"}, "")
	if err != nil {
		t.Fatalf("NewCommandCreator: %v", err)
	}
	_, err = creator.Create(context.Background(), loop.CreatorInput{AssetID: "slug", Iteration: 1})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want external tool error", err)
	}
}

func TestCommandReviewerRunsExecutable(t *testing.T) {
	stubAgent(t, "review-agent", `{"verdict": "ok", "summary": "ship it"}`, 0)

	reviewer, err := NewCommandReviewer(config.Agent{
		Mode:           "command",
		Command:        "review-agent",
		TimeoutSeconds: 30,
	}, t.TempDir())
	if err != nil {
		t.Fatalf("NewCommandReviewer: %v", err)
	}

	candidate := domain.NewCandidate("slug", "my-episode")
	review, err := reviewer.Review(context.Background(), loop.ReviewerInput{
		AssetID:   "slug",
		Iteration: 1,
		Candidate: candidate,
	})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if review.Verdict != domain.VerdictOK || review.Summary != "ship it" {
		t.Fatalf("unexpected review: %#v", review)
	}
	if review.Reviewer != "review-agent" {
		t.Fatalf("reviewer = %q", review.Reviewer)
	}
}
