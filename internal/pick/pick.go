// Package pick records a human's choice among an asset's stored candidates.
// Selecting a candidate writes its content as the asset's selected text and
// points the aggregate state at it, which locks enumerated kinds against
// later loop divergence.
package pick

import (
	"fmt"

	"github.com/google/uuid"

	"copydesk/internal/domain"
	"copydesk/internal/services"
	"copydesk/internal/workspace"
)

// Candidates loads an asset's stored candidates sorted oldest first.
func Candidates(store *workspace.Store, assetID string) ([]domain.Candidate, error) {
	if err := domain.ValidateAssetID(assetID); err != nil {
		return nil, services.Wrap(services.ErrValidation, "pick", "candidates", "", err)
	}
	candidates, err := store.ListCandidates(assetID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "pick", "candidates",
			fmt.Sprintf("no candidates for asset %q", assetID), nil)
	}
	return candidates, nil
}

// Select marks one stored candidate as the asset's selection. It writes the
// selected text and upserts the aggregate state under the workspace lock.
func Select(store *workspace.Store, assetID string, candidateID uuid.UUID) (*domain.Candidate, error) {
	candidates, err := Candidates(store, assetID)
	if err != nil {
		return nil, err
	}

	var chosen *domain.Candidate
	for i := range candidates {
		if candidates[i].ID == candidateID {
			chosen = &candidates[i]
			break
		}
	}
	if chosen == nil {
		return nil, services.Wrap(services.ErrNotFound, "pick", "select",
			fmt.Sprintf("candidate %s not found for asset %q", candidateID, assetID), nil)
	}

	if _, err := store.WriteSelectedText(assetID, chosen.Format, chosen.Content); err != nil {
		return nil, err
	}

	err = store.WithLock(func() error {
		ws, err := store.LoadOrInitState()
		if err != nil {
			return err
		}

		kind, _ := domain.KindForAssetID(assetID)
		asset := domain.Asset{AssetID: assetID, Kind: kind}
		seen := make(map[uuid.UUID]struct{}, len(candidates))
		for _, candidate := range candidates {
			asset.Candidates = append(asset.Candidates, candidate)
			seen[candidate.ID] = struct{}{}
		}
		if prior := ws.FindAsset(assetID); prior != nil {
			asset.Reviews = prior.Reviews
			for _, candidate := range prior.Candidates {
				if _, dup := seen[candidate.ID]; !dup {
					asset.Candidates = append(asset.Candidates, candidate)
					seen[candidate.ID] = struct{}{}
				}
			}
		}
		id := chosen.ID
		asset.SelectedCandidateID = &id

		ws.UpsertAsset(asset)
		return store.WriteState(ws)
	})
	if err != nil {
		return nil, err
	}
	return chosen, nil
}
