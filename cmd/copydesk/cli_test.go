package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"copydesk/internal/domain"
	"copydesk/internal/workspace"
)

func writeCLIConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
workspaces_dir = %q
state_dir = %q
log_dir = %q

[agents.creator]
mode = "command"
command = "draft-agent"

[agents.reviewer]
mode = "command"
command = "review-agent"
`,
		filepath.Join(base, "workspaces"),
		filepath.Join(base, "state"),
		filepath.Join(base, "logs"),
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite must fail")
	}
}

func TestPickCommandListsAndSelects(t *testing.T) {
	cfgPath := writeCLIConfig(t)
	root := filepath.Join(t.TempDir(), "ep01")
	store := workspace.NewStore(root)
	candidate := domain.Candidate{
		ID:        uuid.NewSHA1(uuid.Nil, []byte("cli:description")),
		AssetID:   "description",
		Format:    domain.FormatMarkdown,
		Content:   "An episode about Go tooling.",
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if _, err := store.WriteCandidate(candidate); err != nil {
		t.Fatalf("WriteCandidate: %v", err)
	}

	out, err := runCLI(t, "--config", cfgPath, "pick", root, "description")
	if err != nil {
		t.Fatalf("pick list: %v", err)
	}
	requireContains(t, out, candidate.ID.String())

	out, err = runCLI(t, "--config", cfgPath, "pick", root, "description", candidate.ID.String())
	if err != nil {
		t.Fatalf("pick select: %v", err)
	}
	requireContains(t, out, "Selected candidate")

	text, ok, err := store.ReadSelectedText("description", domain.FormatMarkdown)
	if err != nil || !ok {
		t.Fatalf("ReadSelectedText: ok=%v err=%v", ok, err)
	}
	if text != "An episode about Go tooling.\n" {
		t.Fatalf("unexpected selected text %q", text)
	}
}

func TestStatusCommandShowsAssets(t *testing.T) {
	cfgPath := writeCLIConfig(t)
	root := filepath.Join(t.TempDir(), "ep02")
	store := workspace.NewStore(root)
	candidate := domain.Candidate{
		ID:        uuid.NewSHA1(uuid.Nil, []byte("cli:slug")),
		AssetID:   "slug",
		Format:    domain.FormatMarkdown,
		Content:   "go-tooling-deep-dive",
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	ws := domain.NewEpisodeWorkspace("ep02")
	ws.UpsertAsset(domain.Asset{
		AssetID:    "slug",
		Kind:       domain.KindSlug,
		Candidates: []domain.Candidate{candidate},
	})
	if err := store.WriteState(&ws); err != nil {
		t.Fatalf("WriteState: %v", err)
	}

	out, err := runCLI(t, "--config", cfgPath, "status", root)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Episode ep02")
	requireContains(t, out, "slug")
	requireContains(t, out, "in_progress")
}

func TestChunkCommandWritesChunks(t *testing.T) {
	cfgPath := writeCLIConfig(t)
	base := t.TempDir()
	root := filepath.Join(base, "ep03")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir workspace: %v", err)
	}
	transcript := filepath.Join(base, "transcript.txt")
	if err := os.WriteFile(transcript, []byte("a b c d e\n\nf g h i j\n"), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	out, err := runCLI(t, "--config", cfgPath, "chunk", root, transcript)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	requireContains(t, out, "chunk(s)")

	store := workspace.NewStore(root)
	if _, err := os.Stat(store.Abs(store.Layout().ChunkTextPath(1))); err != nil {
		t.Fatalf("chunk file missing: %v", err)
	}
}

func TestRenderCommandWritesHTML(t *testing.T) {
	cfgPath := writeCLIConfig(t)
	root := filepath.Join(t.TempDir(), "ep04")
	store := workspace.NewStore(root)
	if _, err := store.WriteSelectedText("description", domain.FormatMarkdown, "# Heading\n\nBody."); err != nil {
		t.Fatalf("WriteSelectedText: %v", err)
	}

	out, err := runCLI(t, "--config", cfgPath, "render", root, "description")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	requireContains(t, out, "Rendered")

	raw, err := os.ReadFile(store.Abs(store.Layout().SelectedTextPath("description", domain.FormatHTML)))
	if err != nil {
		t.Fatalf("read rendered HTML: %v", err)
	}
	requireContains(t, string(raw), "<h1>Heading</h1>")
}

func TestQueueListEmpty(t *testing.T) {
	cfgPath := writeCLIConfig(t)
	out, err := runCLI(t, "--config", cfgPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestVersionCommandSkipsConfig(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "copydesk ")
}
