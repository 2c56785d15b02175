package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"copydesk/internal/domain"
	"copydesk/internal/loop"
	"copydesk/internal/textutil"
)

// Store persists episode workspace artifacts under a single root directory.
type Store struct {
	root   string
	layout Layout
}

// NewStore binds a store to a workspace root. The root is created lazily by
// the first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the workspace root directory.
func (s *Store) Root() string { return s.root }

// Layout exposes the pure path computation for this workspace.
func (s *Store) Layout() Layout { return s.layout }

// Abs joins a workspace-relative path key onto the root.
func (s *Store) Abs(rel string) string { return filepath.Join(s.root, rel) }

// WithLock runs fn while holding the workspace's cross-process file lock.
// Aggregate read-modify-write cycles go through here when multiple asset
// loops run concurrently.
func (s *Store) WithLock(fn func() error) error {
	lockPath := s.Abs(s.layout.LockFile())
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire workspace lock: %w", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()
	return fn()
}

// ReadEpisodeYAML parses episode.yaml into a mapping. A missing file yields
// an empty mapping.
func (s *Store) ReadEpisodeYAML() (map[string]any, error) {
	raw, err := os.ReadFile(s.Abs(s.layout.EpisodeYAML()))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read episode.yaml: %w", err)
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid YAML at %s: %w", s.layout.EpisodeYAML(), err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// WriteEpisodeYAML serializes a mapping to episode.yaml.
func (s *Store) WriteEpisodeYAML(data map[string]any) error {
	dumped, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal episode.yaml: %w", err)
	}
	return writeFileAtomic(s.Abs(s.layout.EpisodeYAML()), dumped)
}

// EpisodeID resolves the episode identity: episode.yaml's episode_id when
// present, the workspace directory name otherwise.
func (s *Store) EpisodeID() string {
	data, err := s.ReadEpisodeYAML()
	if err == nil {
		if id, ok := data["episode_id"].(string); ok && strings.TrimSpace(id) != "" {
			return id
		}
	}
	return filepath.Base(s.root)
}

// ReadState loads and validates the aggregate workspace state document.
func (s *Store) ReadState() (*domain.EpisodeWorkspace, error) {
	raw, err := os.ReadFile(s.Abs(s.layout.StateJSON()))
	if err != nil {
		return nil, fmt.Errorf("read state.json: %w", err)
	}
	ws, err := domain.DecodeWorkspace(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid state.json: %w", err)
	}
	return ws, nil
}

// LoadOrInitState returns the persisted workspace state or a fresh document
// named after the episode when none exists yet.
func (s *Store) LoadOrInitState() (*domain.EpisodeWorkspace, error) {
	if _, err := os.Stat(s.Abs(s.layout.StateJSON())); err == nil {
		return s.ReadState()
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat state.json: %w", err)
	}
	ws := domain.NewEpisodeWorkspace(s.EpisodeID())
	return &ws, nil
}

// WriteState persists the aggregate workspace state document.
func (s *Store) WriteState(ws *domain.EpisodeWorkspace) error {
	if err := ws.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid workspace: %w", err)
	}
	return writeFileAtomic(s.Abs(s.layout.StateJSON()), mustIndentJSON(ws))
}

// WriteCandidate persists one immutable candidate document.
func (s *Store) WriteCandidate(candidate domain.Candidate) (string, error) {
	if err := candidate.Validate(); err != nil {
		return "", fmt.Errorf("invalid candidate: %w", err)
	}
	rel := s.layout.CandidatePath(candidate.AssetID, candidate.ID)
	if err := writeFileAtomic(s.Abs(rel), mustIndentJSON(candidate)); err != nil {
		return "", err
	}
	return rel, nil
}

// ReadCandidate loads one candidate document.
func (s *Store) ReadCandidate(assetID string, candidateID uuid.UUID) (*domain.Candidate, error) {
	raw, err := os.ReadFile(s.Abs(s.layout.CandidatePath(assetID, candidateID)))
	if err != nil {
		return nil, fmt.Errorf("read candidate: %w", err)
	}
	var candidate domain.Candidate
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return nil, fmt.Errorf("decode candidate: %w", err)
	}
	if err := candidate.Validate(); err != nil {
		return nil, fmt.Errorf("invalid candidate on disk: %w", err)
	}
	return &candidate, nil
}

// ListCandidates loads every persisted candidate for an asset, sorted by
// (created_at, id). Missing directories yield an empty list.
func (s *Store) ListCandidates(assetID string) ([]domain.Candidate, error) {
	if err := domain.ValidateAssetID(assetID); err != nil {
		return nil, err
	}
	dir := s.Abs(s.layout.AssetCandidatesDir(assetID))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	var candidates []domain.Candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "candidate_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read candidate %s: %w", name, err)
		}
		var candidate domain.Candidate
		if err := json.Unmarshal(raw, &candidate); err != nil {
			return nil, fmt.Errorf("decode candidate %s: %w", name, err)
		}
		if candidate.AssetID != assetID {
			return nil, fmt.Errorf("candidate %s claims asset %q, stored under %q", name, candidate.AssetID, assetID)
		}
		candidates = append(candidates, candidate)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].SortKey() < candidates[j].SortKey()
	})
	return candidates, nil
}

// WriteReview persists one review document for an asset.
func (s *Store) WriteReview(assetID string, review domain.ReviewIteration) (string, error) {
	if err := review.Validate(); err != nil {
		return "", fmt.Errorf("invalid review: %w", err)
	}
	reviewer := ""
	if review.Reviewer != "" {
		segment, err := textutil.SafeSegment(review.Reviewer)
		if err != nil {
			return "", fmt.Errorf("reviewer name: %w", err)
		}
		reviewer = segment
	}
	rel := s.layout.ReviewPath(assetID, review.Iteration, reviewer)
	if err := writeFileAtomic(s.Abs(rel), mustIndentJSON(review)); err != nil {
		return "", err
	}
	return rel, nil
}

// WriteSelectedText persists an asset's final text, normalized to end with
// a newline. Locked-selection policy treats this file as the source of truth.
func (s *Store) WriteSelectedText(assetID string, format domain.TextFormat, content string) (string, error) {
	rel := s.layout.SelectedTextPath(assetID, format)
	if err := writeFileAtomic(s.Abs(rel), []byte(textutil.EnsureTrailingNewline(content))); err != nil {
		return "", err
	}
	return rel, nil
}

// ReadSelectedText loads an asset's selected text. The boolean reports
// whether a selection exists at all.
func (s *Store) ReadSelectedText(assetID string, format domain.TextFormat) (string, bool, error) {
	raw, err := os.ReadFile(s.Abs(s.layout.SelectedTextPath(assetID, format)))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read selected text: %w", err)
	}
	return string(raw), true, nil
}

// CommitProtocol persists one engine write-intent.
func (s *Store) CommitProtocol(write loop.ProtocolWrite) error {
	data, err := write.Encode()
	if err != nil {
		return err
	}
	return writeFileAtomic(s.Abs(write.Path), data)
}

// LoadProtocolState loads the persisted loop state for an asset, or nil when
// the loop has never run.
func (s *Store) LoadProtocolState(assetID string) (*loop.ProtocolState, error) {
	raw, err := os.ReadFile(s.Abs(s.layout.ProtocolStatePath(assetID)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read protocol state: %w", err)
	}
	return loop.DecodeState(raw)
}

// ListProtocolAssets returns the asset ids with persisted loop state.
func (s *Store) ListProtocolAssets() ([]string, error) {
	entries, err := os.ReadDir(s.Abs(s.layout.ProtocolDir()))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list protocol assets: %w", err)
	}
	var assets []string
	for _, entry := range entries {
		if entry.IsDir() {
			assets = append(assets, entry.Name())
		}
	}
	sort.Strings(assets)
	return assets, nil
}

// WriteProvenance persists a free-form provenance document.
func (s *Store) WriteProvenance(ref domain.ProvenanceRef, data map[string]any) (string, error) {
	kind, err := textutil.SafeSegment(ref.Kind)
	if err != nil {
		return "", fmt.Errorf("provenance kind: %w", err)
	}
	name, err := textutil.SafeSegment(ref.Ref)
	if err != nil {
		return "", fmt.Errorf("provenance ref: %w", err)
	}
	enriched := make(map[string]any, len(data)+1)
	for k, v := range data {
		enriched[k] = v
	}
	if ref.CreatedAt != nil {
		if _, exists := enriched["created_at"]; !exists {
			enriched["created_at"] = ref.CreatedAt.UTC()
		}
	}
	rel := s.layout.ProvenancePath(kind, name)
	if err := writeFileAtomic(s.Abs(rel), mustIndentJSON(enriched)); err != nil {
		return "", err
	}
	return rel, nil
}

// WriteChunk persists one transcript chunk's text and metadata document.
func (s *Store) WriteChunk(chunkID int, text string) (string, error) {
	textRel := s.layout.ChunkTextPath(chunkID)
	if err := writeFileAtomic(s.Abs(textRel), []byte(text)); err != nil {
		return "", err
	}
	meta := map[string]any{"chunk_id": chunkID, "text_relpath": filepath.ToSlash(textRel)}
	if err := writeFileAtomic(s.Abs(s.layout.ChunkMetaPath(chunkID)), mustIndentJSON(meta)); err != nil {
		return "", err
	}
	return textRel, nil
}

func mustIndentJSON(v any) []byte {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		// All values serialized here are plain structs and maps; failure
		// indicates a programming error.
		panic(fmt.Sprintf("marshal workspace document: %v", err))
	}
	return append(data, '\n')
}
