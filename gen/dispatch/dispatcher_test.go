package dispatch_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"

	"github.com/rowanvale/copysmith/errors"
	"github.com/rowanvale/copysmith/gen"
	"github.com/rowanvale/copysmith/gen/dispatch"
	"github.com/rowanvale/copysmith/server/mocks"
)

func newRequest(count int) *gen.GenerationRequest {
	inputs := orderedmap.New[string, string]()
	inputs.Set("product", "standing desk")
	return &gen.GenerationRequest{
		ToolSlug:    "facebook-ads",
		ToolName:    "Facebook Ads Generator",
		Inputs:      inputs,
		OutputCount: count,
		UserID:      "user-1",
	}
}

func TestGeneratePrimarySuccess(t *testing.T) {
	primary := mocks.NewMockExecutionChannel(func(ctx context.Context, payload []byte) (*dispatch.Execution, error) {
		return &dispatch.Execution{
			StatusCode: 200,
			Status:     "completed",
			Body:       `{"outputs": ["First generated ad variation", "Second generated ad variation"], "tokensUsed": 20, "model": "claude"}`,
		}, nil
	})
	secondary := mocks.NewMockTextChannel(nil)

	d := dispatch.NewDispatcher(primary, secondary, zap.NewNop(), nil)
	result := d.Generate(context.Background(), newRequest(2))

	require.True(t, result.Success)
	assert.Len(t, result.Outputs, 2)
	assert.Equal(t, "claude", result.Model)
	assert.Equal(t, 1, primary.Calls)
	assert.Equal(t, 0, secondary.Calls, "secondary must not run when primary succeeds")
}

func TestGenerateFallsBackToSecondary(t *testing.T) {
	primary := mocks.NewMockExecutionChannel(func(ctx context.Context, payload []byte) (*dispatch.Execution, error) {
		return nil, fmt.Errorf("connection refused")
	})
	secondary := mocks.NewMockTextChannel(func(ctx context.Context, req dispatch.TextRequest) (*dispatch.TextResult, error) {
		return &dispatch.TextResult{
			Text:  "First rest variation with enough text.---VARIATION---Second rest variation with enough text.",
			Model: "claude",
		}, nil
	})

	d := dispatch.NewDispatcher(primary, secondary, zap.NewNop(), nil)
	result := d.Generate(context.Background(), newRequest(2))

	require.True(t, result.Success)
	assert.Len(t, result.Outputs, 2)
	assert.Equal(t, "claude", result.Model)
	assert.Equal(t, 1, primary.Calls)
	assert.Equal(t, 1, secondary.Calls)
}

func TestGenerateSecondaryAfterBadPrimaryBody(t *testing.T) {
	// Primary reaches the platform but returns an unusable envelope.
	primary := mocks.NewMockExecutionChannel(func(ctx context.Context, payload []byte) (*dispatch.Execution, error) {
		return &dispatch.Execution{StatusCode: 200, Body: `{}`}, nil
	})
	secondary := mocks.NewMockTextChannel(func(ctx context.Context, req dispatch.TextRequest) (*dispatch.TextResult, error) {
		return &dispatch.TextResult{Text: "A single usable variation from the secondary path.", Model: "claude"}, nil
	})

	d := dispatch.NewDispatcher(primary, secondary, zap.NewNop(), nil)
	result := d.Generate(context.Background(), newRequest(1))

	require.True(t, result.Success)
	assert.Equal(t, 1, primary.Calls)
	assert.Equal(t, 1, secondary.Calls)
}

func TestGenerateSecondaryAfterEmptyOutputsField(t *testing.T) {
	// An empty outputs string is an unusable envelope, not a success.
	primary := mocks.NewMockExecutionChannel(func(ctx context.Context, payload []byte) (*dispatch.Execution, error) {
		return &dispatch.Execution{StatusCode: 200, Body: `{"outputs": ""}`}, nil
	})
	secondary := mocks.NewMockTextChannel(func(ctx context.Context, req dispatch.TextRequest) (*dispatch.TextResult, error) {
		return &dispatch.TextResult{Text: "A single usable variation from the secondary path.", Model: "claude"}, nil
	})

	d := dispatch.NewDispatcher(primary, secondary, zap.NewNop(), nil)
	result := d.Generate(context.Background(), newRequest(1))

	require.True(t, result.Success)
	require.Len(t, result.Outputs, 1)
	assert.NotEmpty(t, result.Outputs[0])
	assert.Equal(t, 1, primary.Calls)
	assert.Equal(t, 1, secondary.Calls)
}

func TestGenerateTotalFailure(t *testing.T) {
	primary := mocks.NewMockExecutionChannel(func(ctx context.Context, payload []byte) (*dispatch.Execution, error) {
		return nil, fmt.Errorf("connection refused")
	})
	secondary := mocks.NewMockTextChannel(func(ctx context.Context, req dispatch.TextRequest) (*dispatch.TextResult, error) {
		return nil, fmt.Errorf("unauthorized")
	})

	d := dispatch.NewDispatcher(primary, secondary, zap.NewNop(), nil)
	result := d.Generate(context.Background(), newRequest(3))

	require.False(t, result.Success)
	assert.Empty(t, result.Outputs)
	assert.Equal(t, dispatch.ErrUnavailable, result.Error)
	assert.Equal(t, errors.UnavailableError, result.ErrorKind)

	// Each channel is tried exactly once, never retried.
	assert.Equal(t, 1, primary.Calls)
	assert.Equal(t, 1, secondary.Calls)
}

func TestGenerateExecutionPayloadShape(t *testing.T) {
	primary := mocks.NewMockExecutionChannel(func(ctx context.Context, payload []byte) (*dispatch.Execution, error) {
		return &dispatch.Execution{StatusCode: 200, Body: `{"outputs": ["one usable variation body"]}`}, nil
	})
	d := dispatch.NewDispatcher(primary, mocks.NewMockTextChannel(nil), zap.NewNop(), nil)
	d.Generate(context.Background(), newRequest(2))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(primary.LastPayload, &payload))

	assert.Equal(t, "facebook-ads", payload["tool_slug"])
	assert.Equal(t, "Facebook Ads Generator", payload["tool_name"])
	assert.Equal(t, float64(2), payload["output_count"])
	assert.Equal(t, "user-1", payload["user_id"])
	assert.Contains(t, payload["input"], "Tone: professional")

	inputs, ok := payload["inputs"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "standing desk", inputs["product"])
	assert.Equal(t, "professional", inputs["tone"])
	assert.Equal(t, "English", inputs["language"])

	options, ok := payload["options"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "professional", options["tone"])
	assert.Equal(t, "English", options["language"])
}

func TestGenerateSecondaryReceivesPrompt(t *testing.T) {
	primary := mocks.NewMockExecutionChannel(func(ctx context.Context, payload []byte) (*dispatch.Execution, error) {
		return nil, fmt.Errorf("down")
	})
	secondary := mocks.NewMockTextChannel(func(ctx context.Context, req dispatch.TextRequest) (*dispatch.TextResult, error) {
		return &dispatch.TextResult{Text: "A usable variation body from the fallback channel."}, nil
	})

	d := dispatch.NewDispatcher(primary, secondary, zap.NewNop(), nil)
	d.Generate(context.Background(), newRequest(1))

	assert.Equal(t, "facebook-ads", secondary.LastRequest.Tool)
	assert.Equal(t, "professional", secondary.LastRequest.Tone)
	assert.Equal(t, "English", secondary.LastRequest.Language)
	assert.Contains(t, secondary.LastRequest.Input, "standing desk")
}
