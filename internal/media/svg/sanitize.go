// Package svg strips active content from SVG cover images before they are
// stored. Raster formats go through untouched; only SVG can carry script.
package svg

import (
	"bytes"
	"errors"
	"regexp"
)

var (
	scriptTagPattern = regexp.MustCompile(`(?is)<\s*script[\s>].*?<\s*/\s*script\s*>`)
	eventAttrPattern = regexp.MustCompile(`(?is)\son[a-z]+\s*=\s*("[^"]*"|'[^']*')`)
	jsHrefPattern    = regexp.MustCompile(`(?is)(xlink:href|href)\s*=\s*("javascript:[^"]*"|'javascript:[^']*')`)
)

// Sanitize removes script tags, inline event handlers and javascript: hrefs.
func Sanitize(input []byte) ([]byte, error) {
	if !bytes.Contains(bytes.ToLower(input), []byte("<svg")) {
		return nil, errors.New("not an svg document")
	}

	clean := scriptTagPattern.ReplaceAll(input, nil)
	clean = eventAttrPattern.ReplaceAll(clean, nil)
	clean = jsHrefPattern.ReplaceAll(clean, nil)

	return clean, nil
}
