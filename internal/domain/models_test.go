package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestValidateAssetID(t *testing.T) {
	valid := []string{"description", "title_seo", "summary_short", "a", "x9_y"}
	for _, id := range valid {
		if err := ValidateAssetID(id); err != nil {
			t.Fatalf("ValidateAssetID(%q): %v", id, err)
		}
	}

	invalid := []string{"", "Description", "9lives", "_leading", "bad-dash", "has space", "../escape", "a/b"}
	for _, id := range invalid {
		if err := ValidateAssetID(id); err == nil {
			t.Fatalf("ValidateAssetID(%q) must fail", id)
		}
	}
}

func TestKindForAssetID(t *testing.T) {
	kind, ok := KindForAssetID("slug")
	if !ok || kind != KindSlug {
		t.Fatalf("expected slug kind, got %q ok=%v", kind, ok)
	}
	if _, ok := KindForAssetID("custom_thing"); ok {
		t.Fatal("custom asset ids have no enumerated kind")
	}
}

func TestParseTextFormat(t *testing.T) {
	format, ok := ParseTextFormat(" Markdown ")
	if !ok || format != FormatMarkdown {
		t.Fatalf("expected markdown, got %q ok=%v", format, ok)
	}
	if _, ok := ParseTextFormat("rtf"); ok {
		t.Fatal("unknown formats must not parse")
	}
}

func TestTextFormatExtension(t *testing.T) {
	cases := map[TextFormat]string{
		FormatMarkdown: "md",
		FormatPlain:    "txt",
		FormatHTML:     "html",
	}
	for format, want := range cases {
		if got := format.Extension(); got != want {
			t.Fatalf("%s extension: got %q, want %q", format, got, want)
		}
	}
}

func TestCandidateValidate(t *testing.T) {
	candidate := NewCandidate("description", "A draft.")
	if err := candidate.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	missingID := candidate
	missingID.ID = uuid.Nil
	if err := missingID.Validate(); err == nil {
		t.Fatal("nil candidate id must fail")
	}

	badFormat := candidate
	badFormat.Format = "rtf"
	if err := badFormat.Validate(); err == nil {
		t.Fatal("unknown format must fail")
	}

	zeroTime := candidate
	zeroTime.CreatedAt = time.Time{}
	if err := zeroTime.Validate(); err == nil {
		t.Fatal("zero created_at must fail")
	}
}

func TestCandidateSortKeyOrdersByTimeThenID(t *testing.T) {
	early := Candidate{ID: uuid.New(), CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	late := Candidate{ID: uuid.New(), CreatedAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)}
	if !(early.SortKey() < late.SortKey()) {
		t.Fatal("earlier candidate must sort first")
	}

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	a := Candidate{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), CreatedAt: at}
	b := Candidate{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), CreatedAt: at}
	if !(a.SortKey() < b.SortKey()) {
		t.Fatal("timestamp ties must break by id")
	}
	if !strings.Contains(a.SortKey(), "|") {
		t.Fatalf("sort key must join time and id, got %q", a.SortKey())
	}
}

func TestCandidateSortKeySubSecondPrecision(t *testing.T) {
	// Trailing-zero trimming in the timestamp would make .5 sort after .51.
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name           string
		olderNs, newNs int
	}{
		{"trimmed fraction vs longer fraction", 500_000_000, 510_000_000},
		{"whole second vs fraction", 0, 1_000_000},
		{"nanosecond step", 123_456_000, 123_457_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			older := Candidate{ID: uuid.New(), CreatedAt: base.Add(time.Duration(tc.olderNs))}
			newer := Candidate{ID: uuid.New(), CreatedAt: base.Add(time.Duration(tc.newNs))}
			if !(older.SortKey() < newer.SortKey()) {
				t.Fatalf("key order disagrees with time order: %q !< %q", older.SortKey(), newer.SortKey())
			}
		})
	}
}

func TestReviewIterationValidate(t *testing.T) {
	review := ReviewIteration{
		Iteration: 1,
		Verdict:   VerdictOK,
		Reviewer:  "style_desk",
		CreatedAt: time.Now().UTC(),
	}
	if err := review.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	review.Iteration = 0
	if err := review.Validate(); err == nil {
		t.Fatal("iteration 0 must fail")
	}

	review.Iteration = 1
	review.Verdict = "maybe"
	if err := review.Validate(); err == nil {
		t.Fatal("unknown verdict must fail")
	}
}

func TestReviewIterationOKRejectsErrorIssues(t *testing.T) {
	review := ReviewIteration{
		Iteration: 1,
		Verdict:   VerdictOK,
		Issues: []ReviewIssue{{
			ID:       uuid.New(),
			Severity: SeverityError,
			Message:  "broken",
		}},
		CreatedAt: time.Now().UTC(),
	}
	if err := review.Validate(); err == nil {
		t.Fatal("ok verdict with error issues must fail")
	}

	review.Verdict = VerdictChangesRequested
	if err := review.Validate(); err != nil {
		t.Fatalf("changes_requested with error issues is fine: %v", err)
	}

	review.Issues[0].Severity = SeverityWarning
	review.Verdict = VerdictOK
	if err := review.Validate(); err != nil {
		t.Fatalf("ok verdict with warnings is fine: %v", err)
	}
}

func TestWithIterationRewritesReviewAndIssues(t *testing.T) {
	review := ReviewIteration{
		Iteration: 7,
		Verdict:   VerdictChangesRequested,
		Issues:    []ReviewIssue{{ID: uuid.New(), Severity: SeverityWarning, Message: "wordy"}},
		CreatedAt: time.Now().UTC(),
	}
	moved := review.WithIteration(3)
	if moved.Iteration != 3 {
		t.Fatalf("expected iteration 3, got %d", moved.Iteration)
	}
	if review.Iteration != 7 {
		t.Fatal("WithIteration must not mutate the receiver")
	}
	if len(moved.Issues) != 1 || moved.Issues[0].Message != "wordy" {
		t.Fatalf("issues must carry over, got %+v", moved.Issues)
	}
}
