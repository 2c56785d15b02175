package textutil_test

import (
	"testing"

	"copydesk/internal/textutil"
)

func TestSafeSegment(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "description", "description", false},
		{"mixed", "Title SEO!", "Title_SEO", false},
		{"trimmed", "..weird..", "weird", false},
		{"separator", "a/b", "", true},
		{"backslash", `a\b`, "", true},
		{"empty", "...", "", true},
	}
	for _, tc := range cases {
		got, err := textutil.SafeSegment(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error, got %q", tc.name, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: SafeSegment failed: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Episode 42: The Big One", "episode-42-the-big-one"},
		{"  spaced   out  ", "spaced-out"},
		{"Café résumé", "cafe-resume"},
		{"already-a-slug", "already-a-slug"},
	}
	for _, tc := range cases {
		if got := textutil.Slugify(tc.input); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestEnsureTrailingNewline(t *testing.T) {
	if got := textutil.EnsureTrailingNewline("abc"); got != "abc\n" {
		t.Fatalf("got %q", got)
	}
	if got := textutil.EnsureTrailingNewline("abc\n"); got != "abc\n" {
		t.Fatalf("got %q", got)
	}
}
