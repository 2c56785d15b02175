package testsupport

import (
	"path/filepath"
	"testing"

	"copydesk/internal/config"
	"copydesk/internal/queue"
	"copydesk/internal/workspace"
)

// MustOpenQueue opens a queue.Store for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewWorkspace creates a workspace store rooted in a fresh temp directory
// named after the episode.
func NewWorkspace(t testing.TB, episodeID string) *workspace.Store {
	t.Helper()
	return workspace.NewStore(filepath.Join(t.TempDir(), episodeID))
}
