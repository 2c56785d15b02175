package loop

import (
	"encoding/json"
	"fmt"
	"sort"

	"copydesk/internal/domain"
)

const protocolVersion = 1

// Outcome is the terminal-or-in-progress verdict of a whole loop.
type Outcome string

const (
	OutcomeConverged  Outcome = "converged"
	OutcomeNeedsHuman Outcome = "needs_human"
	OutcomeInProgress Outcome = "in_progress"
)

// Reason codes attached to terminal decisions.
const (
	ReasonConverged      = "reviewer_ok_and_creator_done"
	ReasonIterationLimit = "iteration_limit"
)

// Decision records the loop verdict for one asset. Once a field name enters
// LockedFields its value can never be overwritten by a later decision for the
// same asset; that monotonic merge is what freezes finished loops.
type Decision struct {
	Outcome        Outcome  `json:"outcome"`
	FinalIteration int      `json:"final_iteration"`
	Reason         string   `json:"reason"`
	LockedFields   []string `json:"locked_fields"`
}

// IsTerminal reports whether the decision ends the loop.
func (d Decision) IsTerminal() bool {
	return d.Outcome == OutcomeConverged || d.Outcome == OutcomeNeedsHuman
}

// Locked reports whether a field name is frozen against overwrite.
func (d Decision) Locked(field string) bool {
	for _, name := range d.LockedFields {
		if name == field {
			return true
		}
	}
	return false
}

func terminalDecision(outcome Outcome, iteration int, reason string) *Decision {
	return &Decision{
		Outcome:        outcome,
		FinalIteration: iteration,
		Reason:         reason,
		LockedFields:   []string{"final_iteration", "outcome", "reason"},
	}
}

// MergeDecisions combines an existing decision with a newly proposed one
// using field-by-field lock precedence: locked fields keep their existing
// value, unlocked fields take the new one, and the locked sets union.
func MergeDecisions(existing, proposed *Decision) *Decision {
	if proposed == nil {
		return existing
	}
	if existing == nil {
		return proposed
	}

	merged := Decision{
		Outcome:        proposed.Outcome,
		FinalIteration: proposed.FinalIteration,
		Reason:         proposed.Reason,
	}
	if existing.Locked("outcome") {
		merged.Outcome = existing.Outcome
	}
	if existing.Locked("final_iteration") {
		merged.FinalIteration = existing.FinalIteration
	}
	if existing.Locked("reason") {
		merged.Reason = existing.Reason
	}

	set := make(map[string]struct{}, len(existing.LockedFields)+len(proposed.LockedFields))
	for _, name := range existing.LockedFields {
		set[name] = struct{}{}
	}
	for _, name := range proposed.LockedFields {
		set[name] = struct{}{}
	}
	merged.LockedFields = make([]string, 0, len(set))
	for name := range set {
		merged.LockedFields = append(merged.LockedFields, name)
	}
	sort.Strings(merged.LockedFields)
	return &merged
}

// IterationRecord is one full Creator -> Reviewer cycle.
type IterationRecord struct {
	Iteration   int
	CreatorDone bool
	Candidate   domain.Candidate
	Review      domain.ReviewIteration
}

// ProtocolState is the full persisted state of one asset's loop and the unit
// of resumability: iteration numbers increase strictly from 1 with no gaps.
type ProtocolState struct {
	AssetID       string
	MaxIterations int
	Iterations    []IterationRecord
	Decision      *Decision
}

// LastIteration returns the highest recorded iteration number, or 0.
func (s *ProtocolState) LastIteration() int {
	if len(s.Iterations) == 0 {
		return 0
	}
	return s.Iterations[len(s.Iterations)-1].Iteration
}

// Frozen reports whether the loop reached a terminal decision whose outcome
// is locked; Advance on a frozen state is a no-op.
func (s *ProtocolState) Frozen() bool {
	return s.Decision != nil && s.Decision.IsTerminal() && s.Decision.Locked("outcome")
}

type creatorPayload struct {
	Done      bool             `json:"done"`
	Candidate domain.Candidate `json:"candidate"`
}

type iterationPayload struct {
	Version   int                    `json:"version"`
	Iteration int                    `json:"iteration"`
	Creator   creatorPayload         `json:"creator"`
	Reviewer  domain.ReviewIteration `json:"reviewer"`
}

type statePayload struct {
	Version       int                `json:"version"`
	AssetID       string             `json:"asset_id"`
	MaxIterations int                `json:"max_iterations"`
	Decision      *Decision          `json:"decision"`
	Iterations    []iterationPayload `json:"iterations"`
}

func (r IterationRecord) payload() iterationPayload {
	return iterationPayload{
		Version:   protocolVersion,
		Iteration: r.Iteration,
		Creator:   creatorPayload{Done: r.CreatorDone, Candidate: r.Candidate},
		Reviewer:  r.Review,
	}
}

func (s *ProtocolState) payload() statePayload {
	iterations := make([]iterationPayload, 0, len(s.Iterations))
	for _, record := range s.Iterations {
		iterations = append(iterations, record.payload())
	}
	return statePayload{
		Version:       protocolVersion,
		AssetID:       s.AssetID,
		MaxIterations: s.MaxIterations,
		Decision:      s.Decision,
		Iterations:    iterations,
	}
}

// DecodeState parses a serialized protocol state document.
func DecodeState(raw []byte) (*ProtocolState, error) {
	var payload statePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode protocol state: %w", err)
	}
	if payload.Version != protocolVersion {
		return nil, fmt.Errorf("unsupported protocol version %d", payload.Version)
	}
	state := &ProtocolState{
		AssetID:       payload.AssetID,
		MaxIterations: payload.MaxIterations,
		Decision:      payload.Decision,
	}
	for _, it := range payload.Iterations {
		state.Iterations = append(state.Iterations, IterationRecord{
			Iteration:   it.Iteration,
			CreatorDone: it.Creator.Done,
			Candidate:   it.Creator.Candidate,
			Review:      it.Reviewer,
		})
	}
	return state, nil
}

// ProtocolWrite pairs a workspace-relative path key with the payload to
// persist there. The engine emits these; the orchestrator writes them.
type ProtocolWrite struct {
	Path    string
	Payload any
}

// Encode renders the payload as stable indented JSON with a trailing newline.
func (w ProtocolWrite) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(w.Payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode protocol write %s: %w", w.Path, err)
	}
	return append(data, '\n'), nil
}

// Paths computes the workspace-relative path keys the engine attaches to its
// writes. The workspace layout satisfies this without any I/O.
type Paths interface {
	ProtocolIterationPath(assetID string, iteration int) string
	ProtocolStatePath(assetID string) string
}
