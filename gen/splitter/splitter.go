// Package splitter partitions a single model response into discrete content
// variations. The backend is instructed to separate variations with
// VariationMarker, but responses frequently arrive with ad-hoc formatting
// instead, so Split falls through a prioritized sequence of heuristics in
// decreasing order of confidence.
package splitter

import (
	"regexp"
	"strings"
)

// VariationMarker is the separator the prompt builder instructs the model to
// emit between variations. Producer (gen/dispatch) and consumer (this package)
// share this constant; it must never be duplicated as a literal elsewhere.
const VariationMarker = "---VARIATION---"

// Minimum trimmed segment lengths per heuristic. Short fragments are noise
// (stray headings, empty lines between separators), not variations.
const (
	markerMinLen    = 20
	headingMinLen   = 30
	separatorMinLen = 50
	paragraphMinLen = 30
)

// headingPattern matches numbered variation headings such as
// "**Variation 1:**", "## Option 2" or a bare "3. " at the start of a line.
var headingPattern = regexp.MustCompile(
	`(?i)(?:^|\n)(?:\*{0,2}(?:variation|option|version)\s*\d+\*{0,2}\s*[:\-]|#{1,3}\s*(?:variation|option|version)\s*\d+|\d+\.\s)`,
)

// paragraphPattern matches runs of two or more newlines.
var paragraphPattern = regexp.MustCompile(`\n\n+`)

// Split partitions content into at most count variations. It never returns an
// empty slice: when no heuristic qualifies, the whole trimmed input is the
// single variation. Split is a pure function and never fails.
//
// Heuristics, first qualifying rule wins:
//  1. VariationMarker segments (trusted unconditionally, any yield >= 1)
//  2. numbered headings, accepted only when they yield >= count segments
//  3. "---" then "***" separators, each requiring >= count segments
//  4. paragraph breaks (only when count > 1), requiring >= count segments
//  5. the full trimmed input as a single variation
func Split(content string, count int) []string {
	if count < 1 {
		count = 1
	}

	if strings.Contains(content, VariationMarker) {
		if parts := qualify(strings.Split(content, VariationMarker), markerMinLen); len(parts) >= 1 {
			return clip(parts, count)
		}
	}

	if parts := qualify(headingPattern.Split(content, -1), headingMinLen); len(parts) >= count {
		return clip(parts, count)
	}

	for _, sep := range []string{"---", "***"} {
		if parts := qualify(strings.Split(content, sep), separatorMinLen); len(parts) >= count {
			return clip(parts, count)
		}
	}

	if count > 1 {
		if parts := qualify(paragraphPattern.Split(content, -1), paragraphMinLen); len(parts) >= count {
			return clip(parts, count)
		}
	}

	return []string{strings.TrimSpace(content)}
}

// qualify trims each segment and keeps those longer than minLen.
func qualify(segments []string, minLen int) []string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s); len(t) > minLen {
			out = append(out, t)
		}
	}
	return out
}

// clip truncates to the first count segments; it never pads.
func clip(parts []string, count int) []string {
	if len(parts) > count {
		return parts[:count]
	}
	return parts
}
