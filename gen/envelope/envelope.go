// Package envelope normalizes raw execution responses into a canonical
// GenerationResult. The upstream function proxies several backend revisions
// and its response shape is not known in advance: the body may be a JSON
// object carrying outputs under different field names, a JSON string, or
// plain text. Normalize tries an explicit, ordered sequence of decode
// attempts rather than one generic shape, because the priority order encodes
// real response variability this client does not control.
package envelope

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rowanvale/copysmith/errors"
	"github.com/rowanvale/copysmith/gen"
	"github.com/rowanvale/copysmith/gen/splitter"
)

// Error strings are part of the backend contract; callers match on them.
const (
	errParseFailed      = "Failed to parse response"
	errUnexpectedFormat = "Unexpected response format"
)

// Plain-text bodies shorter than this (trimmed) are rejected as noise.
const minPlainTextLen = 20

// Normalize decodes rawBody into a GenerationResult, splitting bundled
// variations via the splitter when the response packs several into one
// string. It never panics and never returns a Go error; a parse failure is a
// Result with Success=false.
//
// Decode attempts, in order:
//  1. not JSON: treat as plain text
//  2. {"error": ...}: failure carrying that error
//  3. {"outputs": ...}: string, single-element array, or array as-is
//  4. {"result"|"output"|"content"|"text": ...}: first non-empty wins
//
// Empty strings, zero numbers, and false are treated as absent in steps 3
// and 4; the backend's older revisions emit them for fields they no longer
// populate.
//  5. a bare JSON string: treat as plain text
//  6. anything else: shape failure
func Normalize(rawBody string, requestedCount int) *gen.GenerationResult {
	var parsed interface{}
	if err := json.Unmarshal([]byte(rawBody), &parsed); err != nil {
		return plainText(rawBody, requestedCount)
	}

	obj, ok := parsed.(map[string]interface{})
	if !ok {
		if s, ok := parsed.(string); ok {
			return plainText(s, requestedCount)
		}
		return gen.Failure(errors.ShapeError, errUnexpectedFormat)
	}

	if msg := stringify(obj["error"]); msg != "" {
		return gen.Failure(errors.ShapeError, msg)
	}

	if raw, ok := obj["outputs"]; ok && !falsy(raw) {
		return outputsResult(raw, obj, requestedCount)
	}

	for _, field := range []string{"result", "output", "content", "text"} {
		if falsy(obj[field]) {
			continue
		}
		if content := stringify(obj[field]); content != "" {
			return &gen.GenerationResult{
				Outputs:    splitter.Split(content, requestedCount),
				Success:    true,
				TokensUsed: tokensUsed(obj),
				Model:      stringify(obj["model"]),
			}
		}
	}

	return gen.Failure(errors.ShapeError, errUnexpectedFormat)
}

// outputsResult handles the {"outputs": ...} envelope. A string or a
// single-element string array is split into variations; a longer array is
// used as-is.
func outputsResult(raw interface{}, obj map[string]interface{}, requestedCount int) *gen.GenerationResult {
	var outputs []string

	switch v := raw.(type) {
	case string:
		outputs = splitter.Split(v, requestedCount)
	case []interface{}:
		if len(v) == 1 {
			if s, ok := v[0].(string); ok {
				outputs = splitter.Split(s, requestedCount)
				break
			}
		}
		for _, item := range v {
			outputs = append(outputs, stringify(item))
		}
	default:
		outputs = []string{stringify(v)}
	}

	return &gen.GenerationResult{
		Outputs:    outputs,
		Success:    true,
		TokensUsed: tokensUsed(obj),
		Model:      stringify(obj["model"]),
	}
}

// plainText accepts a non-JSON body as generated content when it is long
// enough to plausibly be one.
func plainText(body string, requestedCount int) *gen.GenerationResult {
	if len(strings.TrimSpace(body)) > minPlainTextLen {
		return &gen.GenerationResult{
			Outputs: splitter.Split(body, requestedCount),
			Success: true,
		}
	}
	return gen.Failure(errors.ShapeError, errParseFailed)
}

// tokensUsed reads token metadata, accepting both camelCase and snake_case.
// A present-but-zero count does not shadow the other spelling.
func tokensUsed(obj map[string]interface{}) int {
	for _, key := range []string{"tokensUsed", "tokens_used"} {
		if n, ok := obj[key].(float64); ok && n != 0 {
			return int(n)
		}
	}
	return 0
}

// falsy reports whether a decoded value counts as absent: nil, the empty
// string, zero, or false. Arrays and objects are always present.
func falsy(v interface{}) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	case float64:
		return s == 0
	case bool:
		return !s
	default:
		return false
	}
}

// stringify renders a decoded JSON value as content text. Strings pass
// through; numbers and booleans are formatted; composites are re-encoded.
func stringify(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64, bool:
		return fmt.Sprint(s)
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
