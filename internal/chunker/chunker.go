// Package chunker splits transcript text into bounded, overlapping chunks
// for downstream drafting agents. Chunk ends snap to the best boundary in a
// lookback window, preferring paragraph breaks over sentence ends over line
// breaks, so no chunk cuts mid-thought when a natural break is close.
package chunker

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"copydesk/internal/config"
	"copydesk/internal/services"
)

// Config bounds chunk sizes in whitespace-delimited tokens.
type Config struct {
	MaxTokens              int
	OverlapTokens          int
	BoundaryLookbackTokens int
	// MinTokens is the smallest allowed non-final chunk. Zero derives
	// 60% of MaxTokens.
	MinTokens int
}

// FromConfig maps the application chunker section onto a Config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		MaxTokens:              cfg.Chunker.MaxTokens,
		OverlapTokens:          cfg.Chunker.OverlapTokens,
		BoundaryLookbackTokens: cfg.Chunker.BoundaryLookbackTokens,
		MinTokens:              cfg.Chunker.MinTokens,
	}
}

// Validate checks the size relations between the token limits.
func (c Config) Validate() error {
	fail := func(message string) error {
		return services.Wrap(services.ErrValidation, "chunker", "config", message, nil)
	}
	if c.MaxTokens < 1 {
		return fail("max_tokens must be >= 1")
	}
	if c.OverlapTokens < 0 {
		return fail("overlap_tokens must be >= 0")
	}
	if c.OverlapTokens >= c.MaxTokens {
		return fail("overlap_tokens must be < max_tokens")
	}
	if c.BoundaryLookbackTokens < 0 {
		return fail("boundary_lookback_tokens must be >= 0")
	}
	if c.MinTokens < 0 {
		return fail("min_tokens must be >= 0")
	}
	if c.MinTokens > c.MaxTokens {
		return fail("min_tokens must be <= max_tokens")
	}
	return nil
}

func (c Config) effectiveMinTokens() int {
	if c.MinTokens > 0 {
		return c.MinTokens
	}
	min := c.MaxTokens * 6 / 10
	if min < 1 {
		min = 1
	}
	return min
}

// Chunk is one bounded slice of the transcript. Token offsets are half-open
// indexes into the whitespace-delimited token sequence of the full text.
type Chunk struct {
	ID         int
	StartToken int
	EndToken   int
	Text       string
}

var (
	tokenRe       = regexp.MustCompile(`\S+`)
	sentenceEndRe = regexp.MustCompile(`[.!?]["')\]]*$`)
)

type tokenSpan struct {
	start int
	end   int
}

func tokenize(text string) []tokenSpan {
	matches := tokenRe.FindAllStringIndex(text, -1)
	spans := make([]tokenSpan, len(matches))
	for i, m := range matches {
		spans[i] = tokenSpan{start: m[0], end: m[1]}
	}
	return spans
}

// buildBoundaries classifies each inter-token gap. A boundary at index i
// means a chunk may end just before token i.
func buildBoundaries(text string, tokens []tokenSpan) (paragraph, sentence, line []int) {
	for idx := 1; idx < len(tokens); idx++ {
		prev := tokens[idx-1]
		sep := text[prev.end:tokens[idx].start]
		if strings.Contains(sep, "\n\n") {
			paragraph = append(paragraph, idx)
			continue
		}
		if strings.Contains(sep, "\n") {
			line = append(line, idx)
		}
		if sentenceEndRe.MatchString(text[prev.start:prev.end]) && strings.TrimSpace(sep) == "" {
			sentence = append(sentence, idx)
		}
	}
	return paragraph, sentence, line
}

// lastInRange finds the largest boundary in [lo, hi], if any.
func lastInRange(sorted []int, lo, hi int) (int, bool) {
	pos := sort.SearchInts(sorted, hi+1) - 1
	if pos < 0 || sorted[pos] < lo {
		return 0, false
	}
	return sorted[pos], true
}

// Split partitions the transcript into chunks. Whitespace-only input yields
// no chunks. Every chunk's text ends with a newline so chunk files diff
// cleanly.
func Split(text string, cfg Config) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	paragraph, sentence, line := buildBoundaries(text, tokens)
	total := len(tokens)

	var chunks []Chunk
	start := 0
	chunkID := 1

	for start < total {
		desiredEnd := start + cfg.MaxTokens
		if desiredEnd > total {
			desiredEnd = total
		}

		end := desiredEnd
		if desiredEnd < total {
			minChunk := cfg.effectiveMinTokens()
			if minChunk < cfg.OverlapTokens+1 {
				minChunk = cfg.OverlapTokens + 1
			}
			minEnd := start + minChunk
			if minEnd > total {
				minEnd = total
			}

			searchLo := desiredEnd - cfg.BoundaryLookbackTokens
			if searchLo < minEnd {
				searchLo = minEnd
			}

			if v, ok := lastInRange(paragraph, searchLo, desiredEnd); ok {
				end = v
			} else if v, ok := lastInRange(sentence, searchLo, desiredEnd); ok {
				end = v
			} else if v, ok := lastInRange(line, searchLo, desiredEnd); ok {
				end = v
			}
		}

		if end <= start {
			end = desiredEnd
		}
		if end <= start {
			return nil, services.Wrap(services.ErrContract, "chunker", "split",
				fmt.Sprintf("no progress at token %d of %d", start, total), nil)
		}

		startChar := tokens[start].start
		endChar := len(text)
		if end < total {
			endChar = tokens[end].start
		}
		chunkText := text[startChar:endChar]
		if !strings.HasSuffix(chunkText, "\n") {
			chunkText += "\n"
		}

		chunks = append(chunks, Chunk{
			ID:         chunkID,
			StartToken: start,
			EndToken:   end,
			Text:       chunkText,
		})

		if end >= total {
			break
		}
		next := end - cfg.OverlapTokens
		if next <= start {
			next = end
		}
		start = next
		chunkID++
	}

	return chunks, nil
}
