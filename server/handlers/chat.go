package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/rowanvale/copysmith/errors"
	"github.com/rowanvale/copysmith/gen"
	"github.com/rowanvale/copysmith/gen/chat"
	"github.com/rowanvale/copysmith/gen/dispatch"
	"github.com/rowanvale/copysmith/server/middleware"
	"github.com/rowanvale/copysmith/server/validation"
)

// ChatHandler serves POST /v1/chat. The gateway is stateless: each request
// carries the conversation history and the rolling failure count, and a fresh
// session is built per call.
type ChatHandler struct {
	channel      dispatch.ExecutionChannel
	validator    *validation.Validator
	session      chat.SessionValidator
	systemPrompt string
	logger       *zap.Logger
}

// NewChatHandler creates the chat endpoint handler. The session validator may
// be nil.
func NewChatHandler(channel dispatch.ExecutionChannel, validator *validation.Validator, session chat.SessionValidator, systemPrompt string, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		channel:      channel,
		validator:    validator,
		session:      session,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// chatReply is the wire response of the chat endpoint.
type chatReply struct {
	Turn                gen.Turn `json:"turn"`
	Notice              string   `json:"notice,omitempty"`
	ConsecutiveFailures int      `json:"consecutiveFailures"`
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.NewValidationError(requestID, "Invalid request body", nil))
		return
	}
	if err := h.validator.ValidateChat(&req); err != nil {
		errors.WriteError(w, errors.NewValidationError(requestID, err.Error(), nil))
		return
	}

	opts := []chat.Option{
		chat.WithHistory(historyTurns(req.History)),
		chat.WithFailureCount(req.ConsecutiveFailures),
	}
	if h.session != nil {
		opts = append(opts, chat.WithValidator(h.session))
	}
	session := chat.NewSession(h.channel, h.systemPrompt, h.logger, opts...)

	var reply chat.Reply
	if req.Retry {
		reply = session.Retry(r.Context(), req.Message)
	} else {
		reply = session.Send(r.Context(), req.Message)
	}

	h.logger.Info("chat turn completed",
		zap.String("request_id", requestID),
		zap.Bool("fallback", reply.Turn.IsError),
		zap.Int("history_turns", len(req.History)),
	)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(chatReply{
		Turn:                reply.Turn,
		Notice:              reply.Notice,
		ConsecutiveFailures: session.ConsecutiveFailures(),
	}); err != nil {
		h.logger.Error("failed to encode chat reply",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
}

// historyTurns converts the wire history into pipeline turns.
func historyTurns(history []validation.ChatTurn) []gen.Turn {
	turns := make([]gen.Turn, 0, len(history))
	for _, t := range history {
		turns = append(turns, gen.Turn{
			Role:         t.Role,
			Content:      t.Content,
			IsError:      t.IsError,
			RetryMessage: t.RetryMessage,
		})
	}
	return turns
}
