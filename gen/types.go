// Package gen defines the shared types of the content generation pipeline.
// A GenerationRequest is built fresh for every user action, dispatched through
// the channels in gen/dispatch, and discarded once the GenerationResult is
// returned; nothing in this package is cached or persisted.
package gen

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rowanvale/copysmith/errors"
)

// Default modifiers applied when a request leaves tone or language empty.
const (
	DefaultTone        = "professional"
	DefaultLanguage    = "English"
	DefaultOutputCount = 3
)

// GenerationRequest describes one content generation action. Inputs is an
// insertion-ordered map because iteration order is embedded verbatim in the
// prompt text and must be reproducible across identical requests.
type GenerationRequest struct {
	ToolSlug    string                                 `json:"toolSlug"`
	ToolName    string                                 `json:"toolName"`
	Inputs      *orderedmap.OrderedMap[string, string] `json:"inputs"`
	Tone        string                                 `json:"tone,omitempty"`
	Language    string                                 `json:"language,omitempty"`
	OutputCount int                                    `json:"outputCount,omitempty"`
	UserID      string                                 `json:"userId,omitempty"`
}

// EffectiveTone returns the tone to embed in the prompt.
func (r *GenerationRequest) EffectiveTone() string {
	if r.Tone == "" {
		return DefaultTone
	}
	return r.Tone
}

// EffectiveLanguage returns the language to embed in the prompt.
func (r *GenerationRequest) EffectiveLanguage() string {
	if r.Language == "" {
		return DefaultLanguage
	}
	return r.Language
}

// EffectiveOutputCount clamps the requested variation count to at least one.
func (r *GenerationRequest) EffectiveOutputCount() int {
	if r.OutputCount < 1 {
		return 1
	}
	return r.OutputCount
}

// GenerationResult is the uniform outcome of a generation attempt.
//
// Invariants: Success implies len(Outputs) >= 1 with every element non-empty
// after trimming; !Success implies Outputs is empty and Error is set. Error
// strings are part of the backend contract and must not be reworded.
// ErrorKind additionally classifies failures (transport vs. shape vs. total
// unavailability) so callers do not have to inspect Error text.
type GenerationResult struct {
	Outputs    []string         `json:"outputs"`
	Success    bool             `json:"success"`
	Error      string           `json:"error,omitempty"`
	ErrorKind  errors.ErrorType `json:"errorKind,omitempty"`
	TokensUsed int              `json:"tokensUsed,omitempty"`
	Model      string           `json:"model,omitempty"`
}

// Failure builds a failed result with the given kind and user-facing message.
func Failure(kind errors.ErrorType, message string) *GenerationResult {
	return &GenerationResult{
		Outputs:   []string{},
		Success:   false,
		Error:     message,
		ErrorKind: kind,
	}
}

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single conversational exchange held in caller-owned history.
// RetryMessage carries the original user text on error turns so the caller
// can resubmit it.
type Turn struct {
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	IsError      bool      `json:"isError,omitempty"`
	RetryMessage string    `json:"retryMessage,omitempty"`
}
