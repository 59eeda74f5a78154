// Package handlers implements the gateway's HTTP endpoints over the
// generation pipeline.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/rowanvale/copysmith/errors"
	"github.com/rowanvale/copysmith/gen"
	"github.com/rowanvale/copysmith/gen/dispatch"
	"github.com/rowanvale/copysmith/server/middleware"
	"github.com/rowanvale/copysmith/server/validation"
)

// GenerateHandler serves POST /v1/generate: one content generation action
// through the channel pipeline. The response is always a GenerationResult
// envelope with an in-band success flag; total channel failure is a valid
// 200 response, not a gateway error.
type GenerateHandler struct {
	dispatcher *dispatch.Dispatcher
	validator  *validation.Validator

	defaultOutputCount int
	logger             *zap.Logger
}

// NewGenerateHandler creates the generate endpoint handler.
func NewGenerateHandler(dispatcher *dispatch.Dispatcher, validator *validation.Validator, defaultOutputCount int, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{
		dispatcher:         dispatcher,
		validator:          validator,
		defaultOutputCount: defaultOutputCount,
		logger:             logger,
	}
}

func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.NewValidationError(requestID, "Invalid request body", nil))
		return
	}
	if err := h.validator.ValidateGenerate(&req); err != nil {
		errors.WriteError(w, errors.NewValidationError(requestID, err.Error(), nil))
		return
	}

	genReq := &gen.GenerationRequest{
		ToolSlug:    req.ToolSlug,
		ToolName:    req.ToolName,
		Inputs:      req.Inputs,
		Tone:        req.Tone,
		Language:    req.Language,
		OutputCount: req.OutputCount,
		UserID:      req.UserID,
	}
	if genReq.OutputCount == 0 {
		genReq.OutputCount = h.defaultOutputCount
	}

	result := h.dispatcher.Generate(r.Context(), genReq)

	h.logger.Info("generation completed",
		zap.String("request_id", requestID),
		zap.String("tool", req.ToolSlug),
		zap.Bool("success", result.Success),
		zap.Int("outputs", len(result.Outputs)),
	)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed to encode generation result",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
}
