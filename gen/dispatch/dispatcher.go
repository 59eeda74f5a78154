// Package dispatch orchestrates one logical "generate content" operation:
// build the prompt from structured inputs, attempt the primary
// function-execution channel, on failure attempt the independent REST
// channel, and return a uniform result either way. Channels are tried exactly
// once per invocation; retries are a caller-level policy. The dispatcher
// never substitutes fallback text itself — reporting failure explicitly is
// its contract, so each call site can decide whether canned guidance is
// appropriate.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"

	"github.com/rowanvale/copysmith/errors"
	"github.com/rowanvale/copysmith/gen"
	"github.com/rowanvale/copysmith/gen/envelope"
	"github.com/rowanvale/copysmith/gen/splitter"
)

// ErrUnavailable is the user-facing message for total channel failure. It is
// part of the client contract; do not reword.
const ErrUnavailable = "Unable to generate content. Please check your connection and try again."

// Execution is the raw outcome of a function-execution call: the upstream
// status code and the unparsed response body. Status carries the execution
// platform's own state string ("completed", "failed") when present.
type Execution struct {
	StatusCode int
	Body       string
	Status     string
}

// ExecutionChannel invokes the remote function-execution endpoint with a
// JSON-serialized payload and waits synchronously for the result.
type ExecutionChannel interface {
	Name() string
	Execute(ctx context.Context, payload []byte) (*Execution, error)
}

// TextRequest is the reduced request shape the secondary REST channel
// accepts: the resolved prompt plus modifiers.
type TextRequest struct {
	Tool     string
	Input    string
	Tone     string
	Language string
}

// TextResult is a successful secondary-channel response: one text blob (to be
// split into variations) and the reporting model name.
type TextResult struct {
	Text  string
	Model string
}

// TextChannel is the secondary generation path, independent of the execution
// platform.
type TextChannel interface {
	Name() string
	Generate(ctx context.Context, req TextRequest) (*TextResult, error)
}

// executionPayload is the wire format of the primary channel.
type executionPayload struct {
	ToolSlug    string                                 `json:"tool_slug"`
	ToolName    string                                 `json:"tool_name"`
	Input       string                                 `json:"input"`
	Inputs      *orderedmap.OrderedMap[string, string] `json:"inputs"`
	OutputCount int                                    `json:"output_count"`
	UserID      string                                 `json:"user_id,omitempty"`
	Options     payloadOptions                         `json:"options"`
}

type payloadOptions struct {
	Tone     string `json:"tone"`
	Language string `json:"language"`
}

// Dispatcher runs generation requests through the primary and secondary
// channels. It holds no per-request state; concurrent Generate calls are
// independent.
type Dispatcher struct {
	primary   ExecutionChannel
	secondary TextChannel
	logger    *zap.Logger

	// Metrics
	generationsTotal *prometheus.CounterVec
	channelLatency   *prometheus.HistogramVec
}

// NewDispatcher creates a dispatcher over the two channels. The registry may
// be nil to skip metric registration (tests).
func NewDispatcher(primary ExecutionChannel, secondary TextChannel, logger *zap.Logger, registry *prometheus.Registry) *Dispatcher {
	d := &Dispatcher{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}

	d.generationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "copysmith_generations_total",
		Help: "Generation attempts by channel and outcome",
	}, []string{"channel", "outcome"})

	d.channelLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "copysmith_channel_latency_seconds",
		Help: "Latency of generation channel calls",
	}, []string{"channel"})

	if registry != nil {
		registry.MustRegister(d.generationsTotal)
		registry.MustRegister(d.channelLatency)
	}

	return d
}

// Generate runs one generation operation to completion. It performs at most
// two blocking network calls, one per channel, and never panics or returns a
// Go error: every outcome is a tagged GenerationResult.
func (d *Dispatcher) Generate(ctx context.Context, req *gen.GenerationRequest) *gen.GenerationResult {
	count := req.EffectiveOutputCount()
	prompt := BuildPrompt(req)

	if result := d.tryPrimary(ctx, req, prompt, count); result != nil {
		return result
	}
	if result := d.trySecondary(ctx, req, prompt, count); result != nil {
		return result
	}

	d.logger.Warn("all generation channels failed",
		zap.String("tool", req.ToolSlug),
		zap.Int("output_count", count),
	)
	return gen.Failure(errors.UnavailableError, ErrUnavailable)
}

// tryPrimary runs the function-execution channel. Any transport error is
// absorbed and logged; a nil return means "primary failed, fall through".
func (d *Dispatcher) tryPrimary(ctx context.Context, req *gen.GenerationRequest, prompt string, count int) *gen.GenerationResult {
	payload, err := json.Marshal(executionPayload{
		ToolSlug:    req.ToolSlug,
		ToolName:    req.ToolName,
		Input:       prompt,
		Inputs:      inputsWithModifiers(req),
		OutputCount: count,
		UserID:      req.UserID,
		Options: payloadOptions{
			Tone:     req.EffectiveTone(),
			Language: req.EffectiveLanguage(),
		},
	})
	if err != nil {
		d.logger.Error("failed to encode execution payload", zap.Error(err))
		return nil
	}

	start := time.Now()
	exec, err := d.primary.Execute(ctx, payload)
	d.channelLatency.WithLabelValues(d.primary.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		d.generationsTotal.WithLabelValues(d.primary.Name(), "transport_error").Inc()
		d.logger.Debug("primary channel failed",
			zap.String("channel", d.primary.Name()),
			zap.Error(err),
		)
		return nil
	}

	if exec.StatusCode < 200 || exec.StatusCode >= 300 {
		d.generationsTotal.WithLabelValues(d.primary.Name(), "transport_error").Inc()
		d.logger.Debug("primary channel returned non-success status",
			zap.String("channel", d.primary.Name()),
			zap.Int("status", exec.StatusCode),
		)
		return nil
	}

	result := envelope.Normalize(exec.Body, count)
	if !result.Success || len(result.Outputs) == 0 {
		d.generationsTotal.WithLabelValues(d.primary.Name(), "shape_error").Inc()
		d.logger.Debug("primary channel produced no usable outputs",
			zap.String("channel", d.primary.Name()),
			zap.String("error", result.Error),
		)
		return nil
	}

	d.generationsTotal.WithLabelValues(d.primary.Name(), "success").Inc()
	return result
}

// trySecondary runs the REST channel. A nil return means both endpoints
// failed and the dispatcher should report unavailability.
func (d *Dispatcher) trySecondary(ctx context.Context, req *gen.GenerationRequest, prompt string, count int) *gen.GenerationResult {
	start := time.Now()
	text, err := d.secondary.Generate(ctx, TextRequest{
		Tool:     req.ToolSlug,
		Input:    prompt,
		Tone:     req.EffectiveTone(),
		Language: req.EffectiveLanguage(),
	})
	d.channelLatency.WithLabelValues(d.secondary.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		d.generationsTotal.WithLabelValues(d.secondary.Name(), "transport_error").Inc()
		d.logger.Debug("secondary channel failed",
			zap.String("channel", d.secondary.Name()),
			zap.Error(err),
		)
		return nil
	}
	if text == nil || text.Text == "" {
		d.generationsTotal.WithLabelValues(d.secondary.Name(), "shape_error").Inc()
		return nil
	}

	d.generationsTotal.WithLabelValues(d.secondary.Name(), "success").Inc()
	return &gen.GenerationResult{
		Outputs: splitter.Split(text.Text, count),
		Success: true,
		Model:   text.Model,
	}
}

// inputsWithModifiers copies the request inputs and appends the resolved tone
// and language, preserving insertion order, to match the payload the backend
// expects.
func inputsWithModifiers(req *gen.GenerationRequest) *orderedmap.OrderedMap[string, string] {
	out := orderedmap.New[string, string]()
	if req.Inputs != nil {
		for pair := req.Inputs.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, pair.Value)
		}
	}
	out.Set("tone", req.EffectiveTone())
	out.Set("language", req.EffectiveLanguage())
	return out
}
