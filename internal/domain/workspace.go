package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const workspaceSchemaVersion = 1

// Asset groups everything the workspace knows about one piece of copy:
// its drafts, its review history, and the human or loop selection.
type Asset struct {
	AssetID             string            `json:"asset_id"`
	Kind                AssetKind         `json:"kind,omitempty"`
	Candidates          []Candidate       `json:"candidates"`
	Reviews             []ReviewIteration `json:"reviews"`
	SelectedCandidateID *uuid.UUID        `json:"selected_candidate_id,omitempty"`
}

// Validate checks the asset's relational invariants.
func (a Asset) Validate() error {
	if err := ValidateAssetID(a.AssetID); err != nil {
		return err
	}
	if a.Kind != "" && string(a.Kind) != a.AssetID {
		return fmt.Errorf("asset kind %q must match asset id %q when provided", a.Kind, a.AssetID)
	}

	seen := make(map[uuid.UUID]struct{}, len(a.Candidates))
	for _, candidate := range a.Candidates {
		if candidate.AssetID != a.AssetID {
			return fmt.Errorf("candidate %s asset id %q does not match asset %q", candidate.ID, candidate.AssetID, a.AssetID)
		}
		if _, dup := seen[candidate.ID]; dup {
			return fmt.Errorf("duplicate candidate id %s in asset %q", candidate.ID, a.AssetID)
		}
		seen[candidate.ID] = struct{}{}
	}

	last := 0
	for _, review := range a.Reviews {
		if review.Iteration <= last {
			return fmt.Errorf("review iterations must increase strictly in asset %q", a.AssetID)
		}
		last = review.Iteration
	}

	if a.SelectedCandidateID != nil {
		if _, ok := seen[*a.SelectedCandidateID]; !ok {
			return fmt.Errorf("selected candidate %s not present in asset %q", *a.SelectedCandidateID, a.AssetID)
		}
	}
	return nil
}

// Chapter is one summarized transcript segment carried in the workspace.
type Chapter struct {
	Title    string   `json:"title"`
	StartSec float64  `json:"start_sec"`
	EndSec   *float64 `json:"end_sec,omitempty"`
	Summary  string   `json:"summary,omitempty"`
}

// Track references one audio file belonging to the episode.
type Track struct {
	TrackID    string          `json:"track_id"`
	Path       string          `json:"path"`
	Label      string          `json:"label,omitempty"`
	Role       string          `json:"role,omitempty"`
	Provenance []ProvenanceRef `json:"provenance,omitempty"`
}

// EpisodeWorkspace is the aggregate per-episode state document. It is owned
// by the orchestrator layer and upserted by asset id after every run.
type EpisodeWorkspace struct {
	SchemaVersion int             `json:"schema_version"`
	EpisodeID     string          `json:"episode_id"`
	RootDir       string          `json:"root_dir"`
	Assets        []Asset         `json:"assets"`
	Chapters      []Chapter       `json:"chapters,omitempty"`
	Tracks        []Track         `json:"tracks,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Provenance    []ProvenanceRef `json:"provenance,omitempty"`
}

// NewEpisodeWorkspace builds an empty workspace document for an episode.
func NewEpisodeWorkspace(episodeID string) EpisodeWorkspace {
	return EpisodeWorkspace{
		SchemaVersion: workspaceSchemaVersion,
		EpisodeID:     episodeID,
		RootDir:       ".",
		Assets:        []Asset{},
		CreatedAt:     time.Now().UTC(),
	}
}

// Validate checks workspace-wide invariants plus each contained asset.
func (w EpisodeWorkspace) Validate() error {
	if w.SchemaVersion != workspaceSchemaVersion {
		return fmt.Errorf("unsupported schema_version %d; expected %d", w.SchemaVersion, workspaceSchemaVersion)
	}
	if w.EpisodeID == "" {
		return errors.New("episode id must not be empty")
	}
	if w.RootDir == "" {
		return errors.New("root dir must not be empty")
	}

	assetIDs := make(map[string]struct{}, len(w.Assets))
	for _, asset := range w.Assets {
		if _, dup := assetIDs[asset.AssetID]; dup {
			return fmt.Errorf("duplicate asset id %q in workspace", asset.AssetID)
		}
		assetIDs[asset.AssetID] = struct{}{}
		if err := asset.Validate(); err != nil {
			return err
		}
	}

	trackIDs := make(map[string]struct{}, len(w.Tracks))
	for _, track := range w.Tracks {
		if _, dup := trackIDs[track.TrackID]; dup {
			return fmt.Errorf("duplicate track id %q in workspace", track.TrackID)
		}
		trackIDs[track.TrackID] = struct{}{}
	}

	lastStart := -1.0
	for _, chapter := range w.Chapters {
		if chapter.StartSec <= lastStart {
			return errors.New("chapters must have strictly increasing start_sec")
		}
		if chapter.EndSec != nil && *chapter.EndSec <= chapter.StartSec {
			return errors.New("chapter end_sec must be greater than start_sec")
		}
		lastStart = chapter.StartSec
	}
	return nil
}

// FindAsset returns the asset with the given id, or nil.
func (w *EpisodeWorkspace) FindAsset(assetID string) *Asset {
	for i := range w.Assets {
		if w.Assets[i].AssetID == assetID {
			return &w.Assets[i]
		}
	}
	return nil
}

// UpsertAsset replaces the entry with the same asset id or appends a new one.
// Re-running an orchestrator commit is therefore safe.
func (w *EpisodeWorkspace) UpsertAsset(updated Asset) {
	for i := range w.Assets {
		if w.Assets[i].AssetID == updated.AssetID {
			w.Assets[i] = updated
			return
		}
	}
	w.Assets = append(w.Assets, updated)
}

// DecodeWorkspace parses and validates a serialized workspace document.
func DecodeWorkspace(raw []byte) (*EpisodeWorkspace, error) {
	var ws EpisodeWorkspace
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("decode workspace: %w", err)
	}
	if err := ws.Validate(); err != nil {
		return nil, fmt.Errorf("validate workspace: %w", err)
	}
	return &ws, nil
}
