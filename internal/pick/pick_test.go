package pick

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"copydesk/internal/domain"
	"copydesk/internal/services"
	"copydesk/internal/testsupport"
	"copydesk/internal/workspace"
)

func storedCandidate(t *testing.T, store *workspace.Store, assetID, content string, createdAt time.Time) domain.Candidate {
	t.Helper()
	candidate := domain.Candidate{
		ID:        uuid.NewSHA1(uuid.Nil, []byte("pick:"+assetID+":"+content)),
		AssetID:   assetID,
		Format:    domain.FormatMarkdown,
		Content:   content,
		CreatedAt: createdAt,
	}
	if _, err := store.WriteCandidate(candidate); err != nil {
		t.Fatalf("WriteCandidate: %v", err)
	}
	return candidate
}

func TestSelectWritesTextAndUpserts(t *testing.T) {
	store := testsupport.NewWorkspace(t, "ep_pick")
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	first := storedCandidate(t, store, "title_seo", "The First Title", at)
	storedCandidate(t, store, "title_seo", "The Second Title", at.Add(time.Hour))

	chosen, err := Select(store, "title_seo", first.ID)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if chosen.ID != first.ID {
		t.Fatalf("expected %s, got %s", first.ID, chosen.ID)
	}

	text, ok, err := store.ReadSelectedText("title_seo", domain.FormatMarkdown)
	if err != nil || !ok {
		t.Fatalf("ReadSelectedText: ok=%v err=%v", ok, err)
	}
	if text != "The First Title\n" {
		t.Fatalf("unexpected selected text %q", text)
	}

	ws, err := store.ReadState()
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	asset := ws.FindAsset("title_seo")
	if asset == nil {
		t.Fatal("asset missing from aggregate state")
	}
	if asset.SelectedCandidateID == nil || *asset.SelectedCandidateID != first.ID {
		t.Fatalf("selection pointer %v, want %s", asset.SelectedCandidateID, first.ID)
	}
	if len(asset.Candidates) != 2 {
		t.Fatalf("both candidates must be recorded, got %d", len(asset.Candidates))
	}
}

func TestSelectOverridesEarlierSelection(t *testing.T) {
	store := testsupport.NewWorkspace(t, "ep_repick")
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	first := storedCandidate(t, store, "slug", "first-slug", at)
	second := storedCandidate(t, store, "slug", "second-slug", at.Add(time.Hour))

	if _, err := Select(store, "slug", first.ID); err != nil {
		t.Fatalf("first Select: %v", err)
	}
	if _, err := Select(store, "slug", second.ID); err != nil {
		t.Fatalf("second Select: %v", err)
	}

	ws, err := store.ReadState()
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	asset := ws.FindAsset("slug")
	if asset.SelectedCandidateID == nil || *asset.SelectedCandidateID != second.ID {
		t.Fatalf("selection must follow the latest pick, got %v", asset.SelectedCandidateID)
	}

	text, _, err := store.ReadSelectedText("slug", domain.FormatMarkdown)
	if err != nil {
		t.Fatalf("ReadSelectedText: %v", err)
	}
	if text != "second-slug\n" {
		t.Fatalf("selected text must follow the latest pick, got %q", text)
	}
}

func TestSelectPreservesReviewHistory(t *testing.T) {
	store := testsupport.NewWorkspace(t, "ep_reviews")
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	candidate := storedCandidate(t, store, "description", "A description.", at)

	ws := domain.NewEpisodeWorkspace("ep_reviews")
	ws.UpsertAsset(domain.Asset{
		AssetID:    "description",
		Kind:       domain.KindDescription,
		Candidates: []domain.Candidate{candidate},
		Reviews: []domain.ReviewIteration{{
			Iteration: 1,
			Verdict:   domain.VerdictChangesRequested,
			Reviewer:  "earlier_loop",
			CreatedAt: at,
		}},
	})
	if err := store.WriteState(&ws); err != nil {
		t.Fatalf("WriteState: %v", err)
	}

	if _, err := Select(store, "description", candidate.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}

	updated, err := store.ReadState()
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	asset := updated.FindAsset("description")
	if len(asset.Reviews) != 1 || asset.Reviews[0].Reviewer != "earlier_loop" {
		t.Fatalf("review history must survive picking, got %+v", asset.Reviews)
	}
}

func TestSelectUnknownCandidate(t *testing.T) {
	store := testsupport.NewWorkspace(t, "ep_missing")
	storedCandidate(t, store, "description", "A description.", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	_, err := Select(store, "description", uuid.New())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCandidatesEmptyAsset(t *testing.T) {
	store := testsupport.NewWorkspace(t, "ep_empty")
	if _, err := Candidates(store, "description"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
