package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"copydesk/internal/domain"
	"copydesk/internal/loop"
	"copydesk/internal/services"
)

// scriptedCreatedAt is the fixed timestamp defaulted into scripted replies so
// repeated runs produce byte-identical artifacts.
var scriptedCreatedAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// ScriptedCreator replays a fixed sequence of creator replies. Each reply is
// a JSON object (or raw JSON string) in the same shape a command agent would
// print. Calls beyond the scripted sequence fail.
type ScriptedCreator struct {
	Calls []loop.CreatorInput

	replies []map[string]any
	pos     int
}

// NewScriptedCreator parses the provided replies up front so malformed
// scripts fail at construction rather than mid-loop.
func NewScriptedCreator(replies ...any) (*ScriptedCreator, error) {
	parsed, err := parseReplies("scripted creator", replies)
	if err != nil {
		return nil, err
	}
	return &ScriptedCreator{replies: parsed}, nil
}

// Create implements loop.Creator.
func (s *ScriptedCreator) Create(_ context.Context, input loop.CreatorInput) (loop.CreatorOutput, error) {
	s.Calls = append(s.Calls, input)
	reply, err := s.next()
	if err != nil {
		return loop.CreatorOutput{}, err
	}
	return decodeCreatorReply(input, reply, scriptedCreatedAt)
}

func (s *ScriptedCreator) next() (map[string]any, error) {
	if s.pos >= len(s.replies) {
		return nil, services.Wrap(services.ErrContract, "scripted creator", "next",
			fmt.Sprintf("exhausted after %d replies", len(s.replies)), nil)
	}
	reply := cloneReply(s.replies[s.pos])
	s.pos++
	return reply, nil
}

// ScriptedReviewer replays a fixed sequence of reviewer replies.
type ScriptedReviewer struct {
	Calls []loop.ReviewerInput

	reviewer string
	replies  []map[string]any
	pos      int
}

// NewScriptedReviewer parses the provided replies up front. The reviewer
// name is defaulted into replies that omit one.
func NewScriptedReviewer(reviewer string, replies ...any) (*ScriptedReviewer, error) {
	parsed, err := parseReplies("scripted reviewer", replies)
	if err != nil {
		return nil, err
	}
	if reviewer == "" {
		reviewer = "scripted_reviewer"
	}
	return &ScriptedReviewer{reviewer: reviewer, replies: parsed}, nil
}

// Review implements loop.Reviewer.
func (s *ScriptedReviewer) Review(_ context.Context, input loop.ReviewerInput) (domain.ReviewIteration, error) {
	s.Calls = append(s.Calls, input)
	if s.pos >= len(s.replies) {
		return domain.ReviewIteration{}, services.Wrap(services.ErrContract, "scripted reviewer", "next",
			fmt.Sprintf("exhausted after %d replies", len(s.replies)), nil)
	}
	reply := cloneReply(s.replies[s.pos])
	s.pos++
	return decodeReviewerReply(input, reply, s.reviewer, scriptedCreatedAt)
}

func parseReplies(label string, replies []any) ([]map[string]any, error) {
	parsed := make([]map[string]any, 0, len(replies))
	for idx, entry := range replies {
		switch value := entry.(type) {
		case map[string]any:
			parsed = append(parsed, value)
		case string:
			var decoded map[string]any
			if err := json.Unmarshal([]byte(value), &decoded); err != nil {
				return nil, services.Wrap(services.ErrConfiguration, label, "parse",
					fmt.Sprintf("reply %d is not a JSON object", idx), err)
			}
			parsed = append(parsed, decoded)
		default:
			return nil, services.Wrap(services.ErrConfiguration, label, "parse",
				fmt.Sprintf("reply %d must be a map or JSON string", idx), nil)
		}
	}
	return parsed, nil
}

func cloneReply(reply map[string]any) map[string]any {
	clone := make(map[string]any, len(reply))
	for key, value := range reply {
		clone[key] = value
	}
	return clone
}
