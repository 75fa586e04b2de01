// Package prompt builds the instructions sent to the vision model and
// renders operator prompts for preview.
package prompt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// JSONSuffix is appended to every prompt so the model answers with bare JSON.
const JSONSuffix = "IMPORTANT: Return the response as valid JSON only. No markdown, no code blocks, just raw JSON."

const (
	// DefaultSandbox is used by the test flow when nothing else supplies a prompt.
	DefaultSandbox = "Extract all data as JSON."
	// DefaultProcess is used by the production flow when nothing else supplies a prompt.
	DefaultProcess = "Extract key fields as JSON."
)

// Choose returns the first candidate that is not blank, or fallback.
// A nil candidate is skipped.
func Choose(fallback string, candidates ...*string) string {
	for _, c := range candidates {
		if c != nil && strings.TrimSpace(*c) != "" {
			return *c
		}
	}
	return fallback
}

// Finalize appends JSONSuffix to p. A prompt that already ends with the
// suffix is returned trimmed but otherwise unchanged.
func Finalize(p string) string {
	p = strings.TrimSpace(p)
	if strings.HasSuffix(p, JSONSuffix) {
		return p
	}
	if p == "" {
		return JSONSuffix
	}
	return p + "\n\n" + JSONSuffix
}

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// Preview renders p as GitHub-flavoured markdown. Raw HTML in the prompt
// is not passed through.
func Preview(p string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(p), &buf); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}
