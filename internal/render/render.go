// Package render converts selected markdown copy into HTML suitable for
// pasting into rich-text CMS fields.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"

	"copydesk/internal/domain"
	"copydesk/internal/services"
	"copydesk/internal/textutil"
	"copydesk/internal/workspace"
)

// Markdown renders markdown text to HTML with a trailing newline.
func Markdown(text string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return textutil.EnsureTrailingNewline(buf.String()), nil
}

// Selected renders an asset's selected markdown to an HTML file beside it
// and returns the workspace-relative path of that file.
func Selected(store *workspace.Store, assetID string) (string, error) {
	if err := domain.ValidateAssetID(assetID); err != nil {
		return "", services.Wrap(services.ErrValidation, "render", "selected", "", err)
	}

	text, ok, err := store.ReadSelectedText(assetID, domain.FormatMarkdown)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "render", "selected",
			fmt.Sprintf("no selected markdown for asset %q", assetID), nil)
	}

	html, err := Markdown(text)
	if err != nil {
		return "", err
	}
	return store.WriteSelectedText(assetID, domain.FormatHTML, html)
}
