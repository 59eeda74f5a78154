// Package validation defines the wire schemas the gateway accepts and the
// checks applied before a request reaches the generation pipeline.
package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkoukk/tiktoken-go"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Tokenizer defines the interface for token counting
type Tokenizer interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
	CountTokens(text string) int
}

// tiktokenWrapper wraps tiktoken to implement our Tokenizer interface
type tiktokenWrapper struct {
	*tiktoken.Tiktoken
}

func (t *tiktokenWrapper) CountTokens(text string) int {
	tokens := t.Encode(text, nil, nil)
	return len(tokens)
}

// GenerateRequest is the wire schema of POST /v1/generate. Inputs preserve
// their document order; the pipeline depends on it for stable prompts.
type GenerateRequest struct {
	ToolSlug    string                                 `json:"toolSlug" validate:"required"`
	ToolName    string                                 `json:"toolName" validate:"required"`
	Inputs      *orderedmap.OrderedMap[string, string] `json:"inputs" validate:"required"`
	Tone        string                                 `json:"tone,omitempty"`
	Language    string                                 `json:"language,omitempty"`
	OutputCount int                                    `json:"outputCount,omitempty" validate:"omitempty,gte=1"`
	UserID      string                                 `json:"userId,omitempty"`
}

// ChatRequest is the wire schema of POST /v1/chat. The conversation state
// lives on the client; each call carries the history it wants considered.
type ChatRequest struct {
	Message string     `json:"message" validate:"required"`
	History []ChatTurn `json:"history,omitempty" validate:"omitempty,dive"`
	Retry   bool       `json:"retry,omitempty"`

	// ConsecutiveFailures carries the client's rolling failure count so the
	// stateless gateway picks the right error copy.
	ConsecutiveFailures int `json:"consecutiveFailures,omitempty" validate:"omitempty,gte=0"`
}

// ChatTurn mirrors one prior conversation turn.
type ChatTurn struct {
	Role         string `json:"role" validate:"required,oneof=user assistant"`
	Content      string `json:"content" validate:"required"`
	IsError      bool   `json:"isError,omitempty"`
	RetryMessage string `json:"retryMessage,omitempty"`
}

// Validator applies schema validation and token budgeting to incoming
// requests.
type Validator struct {
	validate *validator.Validate
	counter  Tokenizer

	maxOutputCount int
	maxInputTokens int
}

// NewValidator builds a request validator. Token counting is skipped when no
// encoding is available for the model.
func NewValidator(maxOutputCount, maxInputTokens int) *Validator {
	v := &Validator{
		validate:       validator.New(),
		maxOutputCount: maxOutputCount,
		maxInputTokens: maxInputTokens,
	}
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		v.counter = &tiktokenWrapper{enc}
	}
	return v
}

// SetTokenizer replaces the token counter. Tests inject a deterministic
// tokenizer here; passing nil disables token budgeting.
func (v *Validator) SetTokenizer(tok Tokenizer) {
	v.counter = tok
}

// ValidateGenerate checks a generation request against the schema and the
// configured limits.
func (v *Validator) ValidateGenerate(req *GenerateRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return fmt.Errorf("invalid generate request: %w", err)
	}
	if req.Inputs == nil || req.Inputs.Len() == 0 {
		return fmt.Errorf("invalid generate request: inputs must not be empty")
	}
	if v.maxOutputCount > 0 && req.OutputCount > v.maxOutputCount {
		return fmt.Errorf("outputCount %d exceeds maximum %d", req.OutputCount, v.maxOutputCount)
	}
	if v.counter != nil && v.maxInputTokens > 0 {
		total := 0
		for pair := req.Inputs.Oldest(); pair != nil; pair = pair.Next() {
			total += v.counter.CountTokens(pair.Value)
		}
		if total > v.maxInputTokens {
			return fmt.Errorf("inputs total %d tokens, exceeding the %d token limit", total, v.maxInputTokens)
		}
	}
	return nil
}

// ValidateChat checks a chat request against the schema and the token limit.
func (v *Validator) ValidateChat(req *ChatRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return fmt.Errorf("invalid chat request: %w", err)
	}
	if v.counter != nil && v.maxInputTokens > 0 {
		if n := v.counter.CountTokens(req.Message); n > v.maxInputTokens {
			return fmt.Errorf("message is %d tokens, exceeding the %d token limit", n, v.maxInputTokens)
		}
	}
	return nil
}
