package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func workspaceCandidate(assetID string) Candidate {
	return Candidate{
		ID:        uuid.New(),
		AssetID:   assetID,
		Format:    FormatMarkdown,
		Content:   "draft",
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestAssetValidateRelations(t *testing.T) {
	candidate := workspaceCandidate("description")
	asset := Asset{
		AssetID:    "description",
		Kind:       KindDescription,
		Candidates: []Candidate{candidate},
		Reviews: []ReviewIteration{
			{Iteration: 1, Verdict: VerdictChangesRequested, CreatedAt: candidate.CreatedAt},
			{Iteration: 2, Verdict: VerdictOK, CreatedAt: candidate.CreatedAt},
		},
	}
	if err := asset.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	mismatchedKind := asset
	mismatchedKind.Kind = KindSlug
	if err := mismatchedKind.Validate(); err == nil {
		t.Fatal("kind must match asset id when set")
	}

	foreign := asset
	foreign.Candidates = []Candidate{workspaceCandidate("slug")}
	if err := foreign.Validate(); err == nil {
		t.Fatal("foreign candidate asset id must fail")
	}

	duplicated := asset
	duplicated.Candidates = []Candidate{candidate, candidate}
	if err := duplicated.Validate(); err == nil {
		t.Fatal("duplicate candidate ids must fail")
	}

	stalled := asset
	stalled.Reviews = []ReviewIteration{
		{Iteration: 2, Verdict: VerdictOK, CreatedAt: candidate.CreatedAt},
		{Iteration: 2, Verdict: VerdictOK, CreatedAt: candidate.CreatedAt},
	}
	if err := stalled.Validate(); err == nil {
		t.Fatal("review iterations must increase strictly")
	}

	dangling := asset
	unknown := uuid.New()
	dangling.SelectedCandidateID = &unknown
	if err := dangling.Validate(); err == nil {
		t.Fatal("selection must reference a stored candidate")
	}
}

func TestWorkspaceValidate(t *testing.T) {
	ws := NewEpisodeWorkspace("ep01")
	if err := ws.Validate(); err != nil {
		t.Fatalf("fresh workspace must validate: %v", err)
	}

	ws.UpsertAsset(Asset{AssetID: "description", Kind: KindDescription})
	if err := ws.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	noEpisode := ws
	noEpisode.EpisodeID = ""
	if err := noEpisode.Validate(); err == nil {
		t.Fatal("empty episode id must fail")
	}

	badVersion := ws
	badVersion.SchemaVersion = 99
	if err := badVersion.Validate(); err == nil {
		t.Fatal("unknown schema version must fail")
	}
}

func TestWorkspaceChapterInvariants(t *testing.T) {
	ws := NewEpisodeWorkspace("ep01")
	end := 30.0
	ws.Chapters = []Chapter{
		{Title: "Intro", StartSec: 0, EndSec: &end},
		{Title: "Main", StartSec: 30},
	}
	if err := ws.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	ws.Chapters[1].StartSec = 0
	if err := ws.Validate(); err == nil {
		t.Fatal("chapter starts must increase strictly")
	}
}

func TestUpsertAssetReplacesById(t *testing.T) {
	ws := NewEpisodeWorkspace("ep01")
	ws.UpsertAsset(Asset{AssetID: "description", Kind: KindDescription})
	ws.UpsertAsset(Asset{AssetID: "slug", Kind: KindSlug})

	candidate := workspaceCandidate("description")
	ws.UpsertAsset(Asset{
		AssetID:    "description",
		Kind:       KindDescription,
		Candidates: []Candidate{candidate},
	})

	if len(ws.Assets) != 2 {
		t.Fatalf("upsert must replace, not append; got %d assets", len(ws.Assets))
	}
	asset := ws.FindAsset("description")
	if asset == nil || len(asset.Candidates) != 1 {
		t.Fatalf("replacement asset missing its candidate: %+v", asset)
	}
	if ws.Assets[0].AssetID != "description" {
		t.Fatal("upsert must keep the original position")
	}
}

func TestDecodeWorkspaceRejectsInvalid(t *testing.T) {
	if _, err := DecodeWorkspace([]byte(`{"schema_version":1,"episode_id":"","root_dir":"."}`)); err == nil {
		t.Fatal("decode must validate the document")
	}
	if _, err := DecodeWorkspace([]byte(`not json`)); err == nil {
		t.Fatal("malformed JSON must fail")
	}
}
