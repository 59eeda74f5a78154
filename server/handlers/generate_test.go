package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rowanvale/copysmith/gen"
	"github.com/rowanvale/copysmith/gen/dispatch"
	"github.com/rowanvale/copysmith/server/handlers"
	"github.com/rowanvale/copysmith/server/mocks"
	"github.com/rowanvale/copysmith/server/validation"
)

func newValidator() *validation.Validator {
	v := validation.NewValidator(10, 0)
	v.SetTokenizer(nil)
	return v
}

func newGenerateHandler(primary *mocks.MockExecutionChannel, secondary *mocks.MockTextChannel) *handlers.GenerateHandler {
	d := dispatch.NewDispatcher(primary, secondary, zap.NewNop(), nil)
	return handlers.NewGenerateHandler(d, newValidator(), 3, zap.NewNop())
}

const generateBody = `{
	"toolSlug": "google-ads",
	"toolName": "Google Ads Generator",
	"inputs": {"product": "standing desk"}
}`

func TestGenerateEndpointSuccess(t *testing.T) {
	primary := mocks.NewMockExecutionChannel(func(ctx context.Context, payload []byte) (*dispatch.Execution, error) {
		return &dispatch.Execution{
			StatusCode: 200,
			Body:       `{"outputs": ["Variation one body text", "Variation two body text"], "model": "claude"}`,
		}, nil
	})
	handler := newGenerateHandler(primary, mocks.NewMockTextChannel(nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader(generateBody)))

	require.Equal(t, http.StatusOK, rec.Code)

	var result gen.GenerationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Len(t, result.Outputs, 2)
	assert.Equal(t, "claude", result.Model)
}

func TestGenerateEndpointAppliesDefaultOutputCount(t *testing.T) {
	primary := mocks.NewMockExecutionChannel(func(ctx context.Context, payload []byte) (*dispatch.Execution, error) {
		return &dispatch.Execution{StatusCode: 200, Body: `{"outputs": ["one usable variation body"]}`}, nil
	})
	handler := newGenerateHandler(primary, mocks.NewMockTextChannel(nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader(generateBody)))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(primary.LastPayload, &payload))
	assert.Equal(t, float64(3), payload["output_count"])
}

func TestGenerateEndpointTotalFailureIsStillOK(t *testing.T) {
	primary := mocks.NewMockExecutionChannel(func(ctx context.Context, payload []byte) (*dispatch.Execution, error) {
		return nil, fmt.Errorf("down")
	})
	secondary := mocks.NewMockTextChannel(func(ctx context.Context, req dispatch.TextRequest) (*dispatch.TextResult, error) {
		return nil, fmt.Errorf("down too")
	})
	handler := newGenerateHandler(primary, secondary)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader(generateBody)))

	// Failure is in-band: the envelope reports it, the transport does not.
	require.Equal(t, http.StatusOK, rec.Code)

	var result gen.GenerationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, dispatch.ErrUnavailable, result.Error)
}

func TestGenerateEndpointRejectsMalformedBody(t *testing.T) {
	handler := newGenerateHandler(mocks.NewMockExecutionChannel(nil), mocks.NewMockTextChannel(nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateEndpointRejectsMissingFields(t *testing.T) {
	handler := newGenerateHandler(mocks.NewMockExecutionChannel(nil), mocks.NewMockTextChannel(nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/generate",
		strings.NewReader(`{"toolSlug": "google-ads"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
