package chunker

import (
	"fmt"
	"os"

	"copydesk/internal/services"
	"copydesk/internal/workspace"
)

// WriteChunks splits a transcript file and persists each chunk's text and
// metadata under the workspace's transcript/chunks directory. It returns the
// chunks in order.
func WriteChunks(store *workspace.Store, transcriptPath string, cfg Config) ([]Chunk, error) {
	raw, err := os.ReadFile(transcriptPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "chunker", "write",
				fmt.Sprintf("transcript %s", transcriptPath), err)
		}
		return nil, fmt.Errorf("read transcript %s: %w", transcriptPath, err)
	}

	chunks, err := Split(string(raw), cfg)
	if err != nil {
		return nil, err
	}
	for _, chunk := range chunks {
		if _, err := store.WriteChunk(chunk.ID, chunk.Text); err != nil {
			return nil, err
		}
	}
	return chunks, nil
}
