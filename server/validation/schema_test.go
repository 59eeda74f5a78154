package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func validGenerateRequest() *GenerateRequest {
	inputs := orderedmap.New[string, string]()
	inputs.Set("product", "noise-cancelling headphones")
	return &GenerateRequest{
		ToolSlug:    "google-ads",
		ToolName:    "Google Ads Generator",
		Inputs:      inputs,
		OutputCount: 3,
	}
}

func TestValidateGenerateAccepts(t *testing.T) {
	v := NewValidator(10, 4096)
	assert.NoError(t, v.ValidateGenerate(validGenerateRequest()))
}

func TestValidateGenerateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GenerateRequest)
	}{
		{"missing tool slug", func(r *GenerateRequest) { r.ToolSlug = "" }},
		{"missing tool name", func(r *GenerateRequest) { r.ToolName = "" }},
		{"nil inputs", func(r *GenerateRequest) { r.Inputs = nil }},
		{"empty inputs", func(r *GenerateRequest) { r.Inputs = orderedmap.New[string, string]() }},
		{"negative output count", func(r *GenerateRequest) { r.OutputCount = -1 }},
		{"output count over max", func(r *GenerateRequest) { r.OutputCount = 11 }},
	}

	v := NewValidator(10, 4096)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validGenerateRequest()
			tt.mutate(req)
			assert.Error(t, v.ValidateGenerate(req))
		})
	}
}

// wordTokenizer is a deterministic stand-in for the tiktoken encoder.
type wordTokenizer struct{}

func (wordTokenizer) Encode(text string, _, _ []string) []int {
	return make([]int, len(strings.Fields(text)))
}

func (wordTokenizer) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func TestValidateGenerateTokenBudget(t *testing.T) {
	v := NewValidator(10, 5)
	v.SetTokenizer(wordTokenizer{})

	req := validGenerateRequest()
	req.Inputs.Set("description", "a very long product description that cannot possibly fit the budget")
	assert.Error(t, v.ValidateGenerate(req))

	v.SetTokenizer(nil)
	assert.NoError(t, v.ValidateGenerate(req), "budgeting disabled without a tokenizer")
}

func TestValidateChatTokenBudget(t *testing.T) {
	v := NewValidator(10, 3)
	v.SetTokenizer(wordTokenizer{})

	assert.Error(t, v.ValidateChat(&ChatRequest{Message: "one two three four five"}))
	assert.NoError(t, v.ValidateChat(&ChatRequest{Message: "one two"}))
}

func TestGenerateRequestPreservesInputOrder(t *testing.T) {
	var req GenerateRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"toolSlug": "google-ads",
		"toolName": "Google Ads Generator",
		"inputs": {"zebra": "1", "apple": "2", "mango": "3"}
	}`), &req))

	var keys []string
	for pair := req.Inputs.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"zebra", "apple", "mango"}, keys)
}

func TestValidateChatAccepts(t *testing.T) {
	v := NewValidator(10, 4096)
	assert.NoError(t, v.ValidateChat(&ChatRequest{
		Message: "help me with ad copy",
		History: []ChatTurn{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello!"},
		},
	}))
}

func TestValidateChatRejects(t *testing.T) {
	v := NewValidator(10, 4096)

	assert.Error(t, v.ValidateChat(&ChatRequest{Message: ""}), "empty message")
	assert.Error(t, v.ValidateChat(&ChatRequest{
		Message: "hi",
		History: []ChatTurn{{Role: "system", Content: "x"}},
	}), "unknown role")
	assert.Error(t, v.ValidateChat(&ChatRequest{
		Message:             "hi",
		ConsecutiveFailures: -1,
	}), "negative failure count")
}
