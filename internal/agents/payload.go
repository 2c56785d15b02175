package agents

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"copydesk/internal/domain"
	"copydesk/internal/loop"
	"copydesk/internal/services"
)

// ExtractJSONPayload pulls a JSON object out of raw agent output. Agents
// frequently wrap their reply in prose or markdown code fences; everything
// before the first '{' and after the matching '}' is discarded.
func ExtractJSONPayload(raw, label string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, services.Wrap(services.ErrContract, label, "decode", "empty output", nil)
	}

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, services.Wrap(services.ErrContract, label, "decode", "no JSON object in output", nil)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, services.Wrap(services.ErrContract, label, "decode", "invalid JSON object", err)
	}
	return payload, nil
}

// deterministicUUID derives a stable version-5 UUID for replies that omit
// their own identifiers.
func deterministicUUID(prefix string, parts ...string) uuid.UUID {
	name := strings.Join(append([]string{prefix}, parts...), ":")
	return uuid.NewSHA1(uuid.Nil, []byte(name))
}

// decodeCreatorReply converts a raw creator payload into an engine output.
// The payload carries either a nested "candidate" object or flat candidate
// keys next to "done". Missing candidate_id, asset_id, and created_at are
// defaulted so minimal replies stay valid.
func decodeCreatorReply(input loop.CreatorInput, payload map[string]any, createdAt time.Time) (loop.CreatorOutput, error) {
	doneRaw, ok := payload["done"]
	if !ok {
		return loop.CreatorOutput{}, services.Wrap(services.ErrContract, "creator", "decode", "reply must include done", nil)
	}
	done, ok := doneRaw.(bool)
	if !ok {
		return loop.CreatorOutput{}, services.Wrap(services.ErrContract, "creator", "decode", "done must be a boolean", nil)
	}

	var candidateData map[string]any
	if nested, ok := payload["candidate"]; ok {
		candidateData, ok = nested.(map[string]any)
		if !ok {
			return loop.CreatorOutput{}, services.Wrap(services.ErrContract, "creator", "decode", "candidate must be an object", nil)
		}
	} else {
		candidateData = make(map[string]any, len(payload))
		for key, value := range payload {
			if key != "done" {
				candidateData[key] = value
			}
		}
	}

	if _, ok := candidateData["content"]; !ok {
		return loop.CreatorOutput{}, services.Wrap(services.ErrContract, "creator", "decode", "candidate must include content", nil)
	}
	if _, ok := candidateData["asset_id"]; !ok {
		candidateData["asset_id"] = input.AssetID
	}
	if _, ok := candidateData["candidate_id"]; !ok {
		candidateData["candidate_id"] = deterministicUUID("candidate", input.AssetID, fmt.Sprint(input.Iteration)).String()
	}
	if _, ok := candidateData["created_at"]; !ok {
		candidateData["created_at"] = createdAt.UTC().Format(time.RFC3339Nano)
	}
	if _, ok := candidateData["format"]; !ok {
		candidateData["format"] = string(domain.FormatMarkdown)
	}

	var candidate domain.Candidate
	if err := remarshal(candidateData, &candidate); err != nil {
		return loop.CreatorOutput{}, services.Wrap(services.ErrContract, "creator", "decode", "malformed candidate", err)
	}
	return loop.CreatorOutput{Candidate: candidate, Done: done}, nil
}

// decodeReviewerReply converts a raw reviewer payload into a review. The
// payload carries either a nested "review" object or flat review keys.
// Missing iteration, reviewer, created_at, and issue ids are defaulted.
func decodeReviewerReply(input loop.ReviewerInput, payload map[string]any, reviewer string, createdAt time.Time) (domain.ReviewIteration, error) {
	reviewData := payload
	if nested, ok := payload["review"]; ok {
		reviewData, ok = nested.(map[string]any)
		if !ok {
			return domain.ReviewIteration{}, services.Wrap(services.ErrContract, "reviewer", "decode", "review must be an object", nil)
		}
	}

	if _, ok := reviewData["verdict"]; !ok {
		return domain.ReviewIteration{}, services.Wrap(services.ErrContract, "reviewer", "decode", "reply must include verdict", nil)
	}
	if _, ok := reviewData["iteration"]; !ok {
		reviewData["iteration"] = input.Iteration
	}
	if _, ok := reviewData["reviewer"]; !ok {
		reviewData["reviewer"] = reviewer
	}
	if _, ok := reviewData["created_at"]; !ok {
		reviewData["created_at"] = createdAt.UTC().Format(time.RFC3339Nano)
	}

	if issuesRaw, ok := reviewData["issues"].([]any); ok {
		for idx, entry := range issuesRaw {
			issue, ok := entry.(map[string]any)
			if !ok {
				return domain.ReviewIteration{}, services.Wrap(services.ErrContract, "reviewer", "decode", "issues must be objects", nil)
			}
			if _, ok := issue["issue_id"]; !ok {
				issue["issue_id"] = deterministicUUID("review_issue", input.AssetID, fmt.Sprint(input.Iteration), fmt.Sprint(idx)).String()
			}
		}
	}

	var review domain.ReviewIteration
	if err := remarshal(reviewData, &review); err != nil {
		return domain.ReviewIteration{}, services.Wrap(services.ErrContract, "reviewer", "decode", "malformed review", err)
	}
	if review.Reviewer == "" {
		review.Reviewer = reviewer
	}
	return review, nil
}

func remarshal(data map[string]any, target any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
