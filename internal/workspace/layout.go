package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"copydesk/internal/domain"
)

// Layout computes workspace-relative paths for every artifact kind. It does
// no I/O. Asset ids are expected to satisfy domain.ValidateAssetID, which
// also makes them safe path segments.
type Layout struct{}

// EpisodeYAML is the human-edited episode metadata document.
func (Layout) EpisodeYAML() string { return "episode.yaml" }

// StateJSON is the aggregate workspace state document.
func (Layout) StateJSON() string { return "state.json" }

// CopyDir holds all generated-copy artifacts.
func (Layout) CopyDir() string { return "copy" }

// CandidatesDir holds per-asset candidate documents.
func (l Layout) CandidatesDir() string { return filepath.Join(l.CopyDir(), "candidates") }

// AssetCandidatesDir holds one asset's candidate documents.
func (l Layout) AssetCandidatesDir(assetID string) string {
	return filepath.Join(l.CandidatesDir(), assetID)
}

// CandidatePath locates one candidate document.
func (l Layout) CandidatePath(assetID string, candidateID uuid.UUID) string {
	return filepath.Join(l.AssetCandidatesDir(assetID), fmt.Sprintf("candidate_%s.json", candidateID))
}

// ReviewsDir holds per-asset review documents.
func (l Layout) ReviewsDir() string { return filepath.Join(l.CopyDir(), "reviews") }

// ReviewPath locates one review document. A non-empty reviewer name becomes
// a suffix so multiple reviewers can coexist per iteration.
func (l Layout) ReviewPath(assetID string, iteration int, reviewer string) string {
	name := fmt.Sprintf("iteration_%02d", iteration)
	if reviewer != "" {
		name += "." + reviewer
	}
	return filepath.Join(l.ReviewsDir(), assetID, name+".json")
}

// SelectedDir holds final selected text, one file per asset and format.
func (l Layout) SelectedDir() string { return filepath.Join(l.CopyDir(), "selected") }

// SelectedTextPath locates the selected text for an asset in a format.
func (l Layout) SelectedTextPath(assetID string, format domain.TextFormat) string {
	return filepath.Join(l.SelectedDir(), assetID+"."+format.Extension())
}

// ProtocolDir holds the loop engine's per-asset protocol documents.
func (l Layout) ProtocolDir() string { return filepath.Join(l.CopyDir(), "protocol") }

// ProtocolStatePath locates the serialized loop state for an asset.
func (l Layout) ProtocolStatePath(assetID string) string {
	return filepath.Join(l.ProtocolDir(), assetID, "state.json")
}

// ProtocolIterationPath locates one iteration's protocol document.
func (l Layout) ProtocolIterationPath(assetID string, iteration int) string {
	return filepath.Join(l.ProtocolDir(), assetID, fmt.Sprintf("iteration_%02d.json", iteration))
}

// ProvenanceDir holds free-form provenance documents keyed by (kind, ref).
func (l Layout) ProvenanceDir() string { return filepath.Join(l.CopyDir(), "provenance") }

// ProvenancePath locates one provenance document.
func (l Layout) ProvenancePath(kind, ref string) string {
	return filepath.Join(l.ProvenanceDir(), kind, ref+".json")
}

// TranscriptChunksDir holds chunked transcript text and metadata.
func (Layout) TranscriptChunksDir() string { return filepath.Join("transcript", "chunks") }

// ChunkTextPath locates one transcript chunk's text.
func (l Layout) ChunkTextPath(chunkID int) string {
	return filepath.Join(l.TranscriptChunksDir(), fmt.Sprintf("chunk_%04d.txt", chunkID))
}

// ChunkMetaPath locates one transcript chunk's metadata document.
func (l Layout) ChunkMetaPath(chunkID int) string {
	return filepath.Join(l.TranscriptChunksDir(), fmt.Sprintf("chunk_%04d.json", chunkID))
}

// LockFile is the flock target serializing aggregate-state updates.
func (Layout) LockFile() string { return ".copydesk.lock" }
