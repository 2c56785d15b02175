package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TextFormat identifies the markup of a candidate's content.
type TextFormat string

const (
	FormatMarkdown TextFormat = "markdown"
	FormatPlain    TextFormat = "plain"
	FormatHTML     TextFormat = "html"
)

// ParseTextFormat converts a string into a known TextFormat.
func ParseTextFormat(value string) (TextFormat, bool) {
	normalized := TextFormat(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case FormatMarkdown, FormatPlain, FormatHTML:
		return normalized, true
	}
	return "", false
}

// Extension returns the on-disk file extension for selected text in this format.
func (f TextFormat) Extension() string {
	switch f {
	case FormatHTML:
		return "html"
	case FormatPlain:
		return "txt"
	default:
		return "md"
	}
}

// AssetKind enumerates the known marketing copy assets for an episode.
type AssetKind string

const (
	KindDescription        AssetKind = "description"
	KindShownotes          AssetKind = "shownotes"
	KindSummaryShort       AssetKind = "summary_short"
	KindTitleDetail        AssetKind = "title_detail"
	KindTitleSEO           AssetKind = "title_seo"
	KindSubtitleAuphonic   AssetKind = "subtitle_auphonic"
	KindSlug               AssetKind = "slug"
	KindCMSTags            AssetKind = "cms_tags"
	KindAudioTags          AssetKind = "audio_tags"
	KindItunesKeywords     AssetKind = "itunes_keywords"
	KindMastodon           AssetKind = "mastodon"
	KindLinkedIn           AssetKind = "linkedin"
	KindYouTubeDescription AssetKind = "youtube_description"
)

var allKinds = []AssetKind{
	KindDescription,
	KindShownotes,
	KindSummaryShort,
	KindTitleDetail,
	KindTitleSEO,
	KindSubtitleAuphonic,
	KindSlug,
	KindCMSTags,
	KindAudioTags,
	KindItunesKeywords,
	KindMastodon,
	KindLinkedIn,
	KindYouTubeDescription,
}

// AllKinds returns the ordered list of known asset kinds.
func AllKinds() []AssetKind {
	cp := make([]AssetKind, len(allKinds))
	copy(cp, allKinds)
	return cp
}

// KindForAssetID maps an asset id onto its known kind, when one exists.
// Custom asset ids outside the enum are legal and simply have no kind.
func KindForAssetID(assetID string) (AssetKind, bool) {
	for _, kind := range allKinds {
		if string(kind) == assetID {
			return kind, true
		}
	}
	return "", false
}

// Verdict is a reviewer's judgment of one candidate.
type Verdict string

const (
	VerdictOK               Verdict = "ok"
	VerdictChangesRequested Verdict = "changes_requested"
	VerdictNeedsHuman       Verdict = "needs_human"
)

// ParseVerdict converts a string into a known Verdict.
func ParseVerdict(value string) (Verdict, bool) {
	normalized := Verdict(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case VerdictOK, VerdictChangesRequested, VerdictNeedsHuman:
		return normalized, true
	}
	return "", false
}

// Severity classifies how serious a review issue is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

var assetIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateAssetID checks the asset id naming contract shared by all artifacts.
func ValidateAssetID(assetID string) error {
	if assetID == "" {
		return errors.New("asset id must not be empty")
	}
	if !assetIDPattern.MatchString(assetID) {
		return fmt.Errorf("asset id %q must match %s", assetID, assetIDPattern.String())
	}
	return nil
}

// ProvenanceRef records what produced an artifact as an opaque (kind, ref) pair.
type ProvenanceRef struct {
	Kind      string         `json:"kind"`
	Ref       string         `json:"ref"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Candidate is one generated draft for one asset. Immutable once created.
type Candidate struct {
	ID         uuid.UUID       `json:"candidate_id"`
	AssetID    string          `json:"asset_id"`
	Format     TextFormat      `json:"format"`
	Content    string          `json:"content"`
	CreatedAt  time.Time       `json:"created_at"`
	Provenance []ProvenanceRef `json:"provenance,omitempty"`
}

// NewCandidate builds a markdown candidate with a fresh id and UTC timestamp.
func NewCandidate(assetID, content string) Candidate {
	return Candidate{
		ID:        uuid.New(),
		AssetID:   assetID,
		Format:    FormatMarkdown,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks a candidate's structural invariants.
func (c Candidate) Validate() error {
	if c.ID == uuid.Nil {
		return errors.New("candidate id must be set")
	}
	if err := ValidateAssetID(c.AssetID); err != nil {
		return err
	}
	if _, ok := ParseTextFormat(string(c.Format)); !ok {
		return fmt.Errorf("unknown text format %q", c.Format)
	}
	if c.CreatedAt.IsZero() {
		return errors.New("candidate created_at must be set")
	}
	return nil
}

// sortKeyTimeLayout is fixed width so lexicographic order on keys matches
// temporal order down to the nanosecond. RFC3339Nano trims trailing zeros
// and breaks that alignment.
const sortKeyTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SortKey orders candidates by (created_at, id), the tie-break used for
// seed resolution when timestamps collide.
func (c Candidate) SortKey() string {
	return c.CreatedAt.UTC().Format(sortKeyTimeLayout) + "|" + c.ID.String()
}

// ReviewIssue is one flaw found by a reviewer.
type ReviewIssue struct {
	ID       uuid.UUID `json:"issue_id"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Code     string    `json:"code,omitempty"`
	Field    string    `json:"field,omitempty"`
}

// ReviewIteration is one reviewer verdict for one loop iteration.
type ReviewIteration struct {
	Iteration  int             `json:"iteration"`
	Verdict    Verdict         `json:"verdict"`
	Issues     []ReviewIssue   `json:"issues"`
	Reviewer   string          `json:"reviewer,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	Summary    string          `json:"summary,omitempty"`
	Provenance []ProvenanceRef `json:"provenance,omitempty"`
}

// Validate checks the review contract: iterations start at 1, verdicts are
// known, and an ok verdict never carries an error-severity issue.
func (r ReviewIteration) Validate() error {
	if r.Iteration < 1 {
		return fmt.Errorf("review iteration must be >= 1, got %d", r.Iteration)
	}
	if _, ok := ParseVerdict(string(r.Verdict)); !ok {
		return fmt.Errorf("unknown verdict %q", r.Verdict)
	}
	if r.Verdict == VerdictOK && r.HasErrorIssues() {
		return errors.New("verdict=ok cannot include severity=error issues")
	}
	return nil
}

// HasErrorIssues reports whether any issue carries error severity.
func (r ReviewIteration) HasErrorIssues() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// WithIteration returns a copy of the review pinned to the given iteration.
func (r ReviewIteration) WithIteration(iteration int) ReviewIteration {
	r.Iteration = iteration
	r.Issues = append([]ReviewIssue(nil), r.Issues...)
	r.Provenance = append([]ProvenanceRef(nil), r.Provenance...)
	return r
}
