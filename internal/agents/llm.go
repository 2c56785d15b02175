package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"copydesk/internal/config"
	"copydesk/internal/domain"
	"copydesk/internal/loop"
	"copydesk/internal/services"
)

const creatorSystemPrompt = `You draft marketing copy for a podcast episode.
You receive a JSON task describing one content asset, optionally with a
previous draft and the review it received. Reply with a single JSON object:
{"done": bool, "candidate": {"content": "..."}}. Set done to true only when
you believe no further revision is needed.`

const reviewerSystemPrompt = `You review drafted marketing copy for a podcast
episode. You receive a JSON task with the candidate under review. Reply with
a single JSON object: {"verdict": "ok"|"changes_requested"|"needs_human",
"summary": "...", "issues": [{"severity": "error"|"warning", "message": "...",
"code": "...", "field": "..."}]}. Use verdict "ok" only when the candidate
needs no changes; an "ok" verdict must not carry error-severity issues.`

// llmClient is the minimal completion surface used by the LLM agents,
// narrowed for testability.
type llmClient interface {
	complete(ctx context.Context, system, user string) (string, error)
}

type openAIClient struct {
	model   string
	timeout time.Duration
	opts    []option.RequestOption
}

func newOpenAIClient(cfg config.LLM) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "llm", "client", "llm.api_key is required", nil)
	}
	if cfg.Model == "" {
		return nil, services.Wrap(services.ErrConfiguration, "llm", "client", "llm.model is required", nil)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openAIClient{
		model:   cfg.Model,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		opts:    opts,
	}, nil
}

func (c *openAIClient) complete(ctx context.Context, system, user string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	client := openai.NewClient(c.opts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "llm", "chat completion", "", err)
	}
	if len(resp.Choices) == 0 {
		return "", services.Wrap(services.ErrTransient, "llm", "chat completion", "empty choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// LLMCreator drafts candidates through a chat-completion endpoint.
type LLMCreator struct {
	client llmClient
}

// NewLLMCreator builds a creator over the configured LLM connection.
func NewLLMCreator(cfg config.LLM) (*LLMCreator, error) {
	client, err := newOpenAIClient(cfg)
	if err != nil {
		return nil, err
	}
	return &LLMCreator{client: client}, nil
}

// Create implements loop.Creator.
func (c *LLMCreator) Create(ctx context.Context, input loop.CreatorInput) (loop.CreatorOutput, error) {
	task, err := json.Marshal(creatorRequest{
		Role:              "creator",
		AssetID:           input.AssetID,
		Iteration:         input.Iteration,
		PreviousCandidate: input.PreviousCandidate,
		PreviousReview:    input.PreviousReview,
	})
	if err != nil {
		return loop.CreatorOutput{}, services.Wrap(services.ErrContract, "llm creator", "encode task", "", err)
	}

	raw, err := c.client.complete(ctx, creatorSystemPrompt, string(task))
	if err != nil {
		return loop.CreatorOutput{}, fmt.Errorf("llm creator: %w", err)
	}
	payload, err := ExtractJSONPayload(raw, "llm creator")
	if err != nil {
		return loop.CreatorOutput{}, err
	}
	return decodeCreatorReply(input, payload, time.Now().UTC())
}

// LLMReviewer reviews candidates through a chat-completion endpoint.
type LLMReviewer struct {
	client llmClient
	model  string
}

// NewLLMReviewer builds a reviewer over the configured LLM connection. The
// model name doubles as the reviewer identity on review records.
func NewLLMReviewer(cfg config.LLM) (*LLMReviewer, error) {
	client, err := newOpenAIClient(cfg)
	if err != nil {
		return nil, err
	}
	return &LLMReviewer{client: client, model: cfg.Model}, nil
}

// Review implements loop.Reviewer.
func (c *LLMReviewer) Review(ctx context.Context, input loop.ReviewerInput) (domain.ReviewIteration, error) {
	task, err := json.Marshal(reviewerRequest{
		Role:      "reviewer",
		AssetID:   input.AssetID,
		Iteration: input.Iteration,
		Candidate: input.Candidate,
	})
	if err != nil {
		return domain.ReviewIteration{}, services.Wrap(services.ErrContract, "llm reviewer", "encode task", "", err)
	}

	raw, err := c.client.complete(ctx, reviewerSystemPrompt, string(task))
	if err != nil {
		return domain.ReviewIteration{}, fmt.Errorf("llm reviewer: %w", err)
	}
	payload, err := ExtractJSONPayload(raw, "llm reviewer")
	if err != nil {
		return domain.ReviewIteration{}, err
	}
	return decodeReviewerReply(input, payload, c.model, time.Now().UTC())
}
