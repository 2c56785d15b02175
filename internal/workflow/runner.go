package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"copydesk/internal/domain"
	"copydesk/internal/logging"
	"copydesk/internal/loop"
	"copydesk/internal/services"
	"copydesk/internal/workspace"
)

// Runner drives one asset's review loop inside one workspace. It wires the
// pure engine to storage: seed resolution before the run, write-intent
// commits during it, selection and the aggregate state upsert after it.
type Runner struct {
	store         *workspace.Store
	logger        *slog.Logger
	maxIterations int
}

// NewRunner builds a runner for one workspace.
func NewRunner(store *workspace.Store, logger *slog.Logger, maxIterations int) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		store:         store,
		logger:        logger.With(logging.String(logging.FieldComponent, "workflow")),
		maxIterations: maxIterations,
	}
}

// RunResult summarizes a finished loop run.
type RunResult struct {
	AssetID             string
	Outcome             loop.Outcome
	Reason              string
	Iterations          int
	SelectedCandidateID *uuid.UUID
}

// Run advances the asset's loop to a terminal decision and persists every
// artifact the run produced. Rerunning a finished asset is a no-op that
// still leaves the aggregate state consistent.
func (r *Runner) Run(ctx context.Context, assetID string, creator loop.Creator, reviewer loop.Reviewer) (*RunResult, error) {
	return r.RunSeeded(ctx, assetID, creator, reviewer, nil)
}

// RunSeeded is Run with an explicit seed candidate. The seed replaces
// stored-candidate resolution and reaches the creator's first fresh call the
// same way; a nil seed behaves exactly like Run.
func (r *Runner) RunSeeded(ctx context.Context, assetID string, creator loop.Creator, reviewer loop.Reviewer, seed *domain.Candidate) (*RunResult, error) {
	if err := domain.ValidateAssetID(assetID); err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "run", "", err)
	}
	if seed != nil && seed.AssetID != assetID {
		return nil, services.Wrap(services.ErrValidation, "workflow", "run",
			fmt.Sprintf("seed candidate belongs to asset %q, not %q", seed.AssetID, assetID), nil)
	}
	kind, _ := domain.KindForAssetID(assetID)
	logger := r.logger.With(
		logging.String(logging.FieldEpisode, r.store.EpisodeID()),
		logging.String(logging.FieldAsset, assetID),
	)

	existing, err := r.store.LoadProtocolState(assetID)
	if err != nil {
		return nil, err
	}

	switch {
	case seed != nil:
		logger.Debug("seeding loop from supplied candidate",
			logging.String("candidate_id", seed.ID.String()))
		creator = NewSeededCreator(seed, creator)
	case existing == nil || len(existing.Iterations) == 0:
		candidates, err := r.store.ListCandidates(assetID)
		if err != nil {
			return nil, err
		}
		if seed := ResolveSeed(candidates); seed != nil {
			logger.Debug("seeding loop from stored candidate",
				logging.String("candidate_id", seed.ID.String()))
			creator = NewSeededCreator(seed, creator)
		}
	}

	if KindHasLockedSelection(kind) {
		lockedText, locked, err := r.lockedSelection(assetID)
		if err != nil {
			return nil, err
		}
		if locked {
			logger.Debug("enforcing locked selection")
			reviewer = LockSelected(reviewer, lockedText)
		}
	}

	state, writes, err := loop.Advance(ctx, loop.AdvanceRequest{
		Paths:         r.store.Layout(),
		AssetID:       assetID,
		MaxIterations: r.maxIterations,
		Existing:      existing,
		Creator:       creator,
		Reviewer:      reviewer,
	})
	if err != nil {
		return nil, err
	}
	for _, write := range writes {
		if err := r.store.CommitProtocol(write); err != nil {
			return nil, err
		}
	}

	resumedFrom := 0
	if existing != nil {
		resumedFrom = existing.LastIteration()
	}
	for _, record := range state.Iterations {
		if record.Iteration <= resumedFrom {
			continue
		}
		if _, err := r.store.WriteCandidate(record.Candidate); err != nil {
			return nil, err
		}
		if _, err := r.store.WriteReview(assetID, record.Review); err != nil {
			return nil, err
		}
		logger.Info("iteration recorded",
			logging.Int(logging.FieldIteration, record.Iteration),
			logging.String(logging.FieldVerdict, string(record.Review.Verdict)),
			logging.Bool("creator_done", record.CreatorDone))
	}

	result := &RunResult{
		AssetID:    assetID,
		Outcome:    loop.OutcomeInProgress,
		Iterations: state.LastIteration(),
	}
	if state.Decision != nil {
		result.Outcome = state.Decision.Outcome
		result.Reason = state.Decision.Reason
	}

	var selected *uuid.UUID
	if result.Outcome == loop.OutcomeConverged && len(state.Iterations) > 0 {
		final := state.Iterations[len(state.Iterations)-1].Candidate
		if _, err := r.store.WriteSelectedText(assetID, final.Format, final.Content); err != nil {
			return nil, err
		}
		id := final.ID
		selected = &id
	}
	result.SelectedCandidateID = selected

	if err := r.upsertAggregate(assetID, kind, state, selected); err != nil {
		return nil, err
	}

	logger.Info("loop finished",
		logging.String(logging.FieldOutcome, string(result.Outcome)),
		logging.Int(logging.FieldIteration, result.Iterations),
		logging.String("reason", result.Reason))
	return result, nil
}

// lockedSelection looks for a previously selected text regardless of which
// format the selected candidate was written in.
func (r *Runner) lockedSelection(assetID string) (string, bool, error) {
	for _, format := range []domain.TextFormat{domain.FormatMarkdown, domain.FormatPlain, domain.FormatHTML} {
		text, ok, err := r.store.ReadSelectedText(assetID, format)
		if err != nil {
			return "", false, err
		}
		if ok {
			return text, true, nil
		}
	}
	return "", false, nil
}

// upsertAggregate replaces the asset's entry in the per-episode state
// document under the workspace lock. Candidates from earlier runs are kept;
// the loop's review history is authoritative; an existing human selection
// survives unless this run converged.
func (r *Runner) upsertAggregate(assetID string, kind domain.AssetKind, state *loop.ProtocolState, selected *uuid.UUID) error {
	return r.store.WithLock(func() error {
		ws, err := r.store.LoadOrInitState()
		if err != nil {
			return err
		}

		asset := domain.Asset{AssetID: assetID, Kind: kind}
		seen := make(map[uuid.UUID]struct{})
		if prior := ws.FindAsset(assetID); prior != nil {
			asset.SelectedCandidateID = prior.SelectedCandidateID
			for _, candidate := range prior.Candidates {
				asset.Candidates = append(asset.Candidates, candidate)
				seen[candidate.ID] = struct{}{}
			}
		}
		for _, record := range state.Iterations {
			if _, dup := seen[record.Candidate.ID]; !dup {
				asset.Candidates = append(asset.Candidates, record.Candidate)
				seen[record.Candidate.ID] = struct{}{}
			}
			asset.Reviews = append(asset.Reviews, record.Review)
		}
		if selected != nil {
			asset.SelectedCandidateID = selected
		}
		if asset.SelectedCandidateID != nil {
			if _, ok := seen[*asset.SelectedCandidateID]; !ok {
				return services.Wrap(services.ErrContract, "workflow", "upsert",
					fmt.Sprintf("selected candidate %s missing from asset %q", asset.SelectedCandidateID, assetID), nil)
			}
		}

		ws.UpsertAsset(asset)
		return r.store.WriteState(ws)
	})
}
