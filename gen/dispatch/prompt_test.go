package dispatch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rowanvale/copysmith/gen"
	"github.com/rowanvale/copysmith/gen/splitter"
)

func makeRequest(count int) *gen.GenerationRequest {
	inputs := orderedmap.New[string, string]()
	inputs.Set("product", "running shoes")
	inputs.Set("audience", "marathoners")
	return &gen.GenerationRequest{
		ToolSlug:    "google-ads",
		ToolName:    "Google Ads Generator",
		Inputs:      inputs,
		OutputCount: count,
	}
}

func TestBuildPromptLayout(t *testing.T) {
	prompt := BuildPrompt(makeRequest(1))

	assert.True(t, strings.HasPrefix(prompt, "Google Ads Generator\n\n"))
	assert.Contains(t, prompt, "product: running shoes")
	assert.Contains(t, prompt, "audience: marathoners")
	assert.Contains(t, prompt, "Tone: professional")
	assert.Contains(t, prompt, "Language: English")
}

func TestBuildPromptPreservesInputOrder(t *testing.T) {
	prompt := BuildPrompt(makeRequest(1))
	assert.Less(t, strings.Index(prompt, "product:"), strings.Index(prompt, "audience:"))
}

func TestBuildPromptSeparatorInstruction(t *testing.T) {
	single := BuildPrompt(makeRequest(1))
	assert.NotContains(t, single, splitter.VariationMarker)

	multi := BuildPrompt(makeRequest(3))
	assert.Contains(t, multi, "Generate exactly 3 distinct variations")
	assert.Contains(t, multi, splitter.VariationMarker)
}

func TestBuildPromptSkipsReservedKeys(t *testing.T) {
	req := makeRequest(1)
	req.Inputs.Set("tone", "casual")
	req.Inputs.Set("outputCount", "5")

	prompt := BuildPrompt(req)
	assert.NotContains(t, prompt, "tone: casual")
	assert.NotContains(t, prompt, "outputCount: 5")
}

func TestBuildPromptModifierOverrides(t *testing.T) {
	req := makeRequest(1)
	req.Tone = "playful"
	req.Language = "Spanish"

	prompt := BuildPrompt(req)
	assert.Contains(t, prompt, "Tone: playful")
	assert.Contains(t, prompt, "Language: Spanish")
}

func TestBuildPromptDeterministic(t *testing.T) {
	assert.Equal(t, BuildPrompt(makeRequest(2)), BuildPrompt(makeRequest(2)))
}
