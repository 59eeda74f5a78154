// Package chat specializes generation for multi-turn conversation. A Session
// owns its history and a rolling consecutive-failure counter; each user turn
// is one chat execution with an adaptive context window: the last 10
// non-error turns on the first attempt, reduced to 4 on the single automatic
// retry. When both attempts fail, the session surfaces deterministic fallback
// guidance as an assistant turn flagged as an error, with the original user
// text attached so the caller can offer a manual retry.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/rowanvale/copysmith/gen"
	"github.com/rowanvale/copysmith/gen/dispatch"
	"github.com/rowanvale/copysmith/gen/fallback"
)

// Context window sizes and the retry bound. The reduction is a payload-size
// and latency mitigation, not a correctness requirement; the bound is an
// explicit loop, never recursion.
const (
	fullWindow    = 10
	reducedWindow = 4
	maxAttempts   = 2
)

// User-facing notices selected by the consecutive-failure counter. The
// counter never gates retries; it only picks copy.
const (
	noticeRetry      = `Sorry, I encountered an error. Tap "Retry" to try again.`
	noticeConnection = "Connection issue detected. Please check your internet and try again."
	urgentAfter      = 3
)

// defaultReply is used when a successful execution carries no usable text.
const defaultReply = "I could not generate a response."

// SessionValidator optionally pre-validates the ambient session before the
// first attempt. The result is logged and ignored: validation is advisory,
// never a gate.
type SessionValidator interface {
	Check(ctx context.Context) error
}

// Reply is the outcome of one user turn: the assistant turn appended to
// history and, on failure, the user-facing notice chosen from the failure
// counter.
type Reply struct {
	Turn   gen.Turn `json:"turn"`
	Notice string   `json:"notice,omitempty"`
}

// Session is a conversational generation handler. Methods are safe for
// concurrent use; each Send runs its attempts sequentially.
type Session struct {
	mu                  sync.Mutex
	history             []gen.Turn
	consecutiveFailures int

	channel      dispatch.ExecutionChannel
	validator    SessionValidator
	systemPrompt string
	encoder      *tiktoken.Tiktoken
	logger       *zap.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithValidator sets an advisory session validator probed before the first
// attempt of each turn.
func WithValidator(v SessionValidator) Option {
	return func(s *Session) { s.validator = v }
}

// WithHistory seeds the session with caller-owned history, e.g. when the
// conversation state lives on the client between requests.
func WithHistory(turns []gen.Turn) Option {
	return func(s *Session) { s.history = append(s.history, turns...) }
}

// WithFailureCount seeds the rolling consecutive-failure counter, letting a
// stateless caller carry it across requests.
func WithFailureCount(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.consecutiveFailures = n
		}
	}
}

// NewSession creates a chat session over the given execution channel.
func NewSession(channel dispatch.ExecutionChannel, systemPrompt string, logger *zap.Logger, opts ...Option) *Session {
	s := &Session{
		channel:      channel,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
	// Token accounting is best effort; the session works without it.
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		s.encoder = enc
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// chatPayload is the wire format of the chat execution function.
type chatPayload struct {
	SystemPrompt        string        `json:"system_prompt"`
	UserMessage         string        `json:"user_message"`
	ConversationHistory []chatMessage `json:"conversation_history"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse covers the envelopes the chat function is known to return.
type chatResponse struct {
	Error    string `json:"error"`
	Response string `json:"response"`
	Content  string `json:"content"`
}

// Send handles one user turn: the turn is appended to history immediately
// (optimistic), then the chat execution is attempted at most twice, the
// second time with a reduced context window. On total failure the fallback
// generator supplies the assistant turn, flagged IsError with RetryMessage
// set to the original text.
func (s *Session) Send(ctx context.Context, text string) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior := make([]gen.Turn, len(s.history))
	copy(prior, s.history)

	s.history = append(s.history, gen.Turn{
		Role:      gen.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})

	content, err := s.callChat(ctx, text, prior)
	if err != nil {
		return s.failTurn(text)
	}

	s.consecutiveFailures = 0
	turn := gen.Turn{
		Role:      gen.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
	s.history = append(s.history, turn)
	return Reply{Turn: turn}
}

// Retry removes the error turn that carries retryText and resubmits it.
func (s *Session) Retry(ctx context.Context, retryText string) Reply {
	s.mu.Lock()
	kept := s.history[:0]
	for _, turn := range s.history {
		if turn.IsError && turn.RetryMessage == retryText {
			continue
		}
		kept = append(kept, turn)
	}
	s.history = kept
	s.mu.Unlock()

	return s.Send(ctx, retryText)
}

// History returns a copy of the session history.
func (s *Session) History() []gen.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gen.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Clear discards the conversation.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.consecutiveFailures = 0
}

// ConsecutiveFailures exposes the rolling failure count.
func (s *Session) ConsecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveFailures
}

// callChat runs the bounded attempt loop. Attempt 0 uses the full context
// window; attempt 1 the reduced one.
func (s *Session) callChat(ctx context.Context, userMessage string, history []gen.Turn) (string, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		window := fullWindow
		if attempt > 0 {
			window = reducedWindow
		}

		if attempt == 0 && s.validator != nil {
			if err := s.validator.Check(ctx); err != nil {
				s.logger.Debug("session validation failed, attempting chat anyway", zap.Error(err))
			}
		}

		msgs := s.window(history, window)
		s.logContextSize(msgs, userMessage, attempt)

		content, err := s.executeOnce(ctx, userMessage, msgs)
		if err == nil {
			return content, nil
		}
		lastErr = err
		s.logger.Debug("chat attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("window", window),
			zap.Error(err),
		)
	}

	return "", lastErr
}

// executeOnce performs a single chat execution and decodes its envelope.
func (s *Session) executeOnce(ctx context.Context, userMessage string, history []chatMessage) (string, error) {
	payload, err := json.Marshal(chatPayload{
		SystemPrompt:        s.systemPrompt,
		UserMessage:         userMessage,
		ConversationHistory: history,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat payload: %w", err)
	}

	exec, err := s.channel.Execute(ctx, payload)
	if err != nil {
		return "", err
	}
	if exec.Status == "failed" || exec.StatusCode >= 400 {
		return "", fmt.Errorf("chat execution failed with status %d", exec.StatusCode)
	}
	if len(exec.Body) == 0 {
		return "", fmt.Errorf("empty response from chat execution")
	}

	var resp chatResponse
	if err := json.Unmarshal([]byte(exec.Body), &resp); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("chat execution error: %s", resp.Error)
	}

	if resp.Response != "" {
		return resp.Response, nil
	}
	if resp.Content != "" {
		return resp.Content, nil
	}
	return defaultReply, nil
}

// window selects the last limit non-error turns for the conversation
// context.
func (s *Session) window(history []gen.Turn, limit int) []chatMessage {
	kept := make([]chatMessage, 0, limit)
	for _, turn := range history {
		if turn.IsError {
			continue
		}
		kept = append(kept, chatMessage{Role: turn.Role, Content: turn.Content})
	}
	if len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return kept
}

// failTurn records a failed user turn: bump the counter, pick the notice,
// and append the fallback guidance as an error-flagged assistant turn.
// Callers must hold s.mu.
func (s *Session) failTurn(text string) Reply {
	s.consecutiveFailures++

	notice := noticeRetry
	if s.consecutiveFailures >= urgentAfter {
		notice = noticeConnection
	}

	turn := gen.Turn{
		Role:         gen.RoleAssistant,
		Content:      fallback.Generate(text),
		Timestamp:    time.Now(),
		IsError:      true,
		RetryMessage: text,
	}
	s.history = append(s.history, turn)

	s.logger.Info("chat turn fell back to canned guidance",
		zap.String("bucket", fallback.Bucket(text)),
		zap.Int("consecutive_failures", s.consecutiveFailures),
	)

	return Reply{Turn: turn, Notice: notice}
}

// logContextSize records the token footprint of the outgoing context when an
// encoder is available.
func (s *Session) logContextSize(history []chatMessage, userMessage string, attempt int) {
	if s.encoder == nil {
		return
	}
	total := len(s.encoder.Encode(userMessage, nil, nil))
	for _, msg := range history {
		total += len(s.encoder.Encode(msg.Content, nil, nil))
	}
	s.logger.Debug("chat context assembled",
		zap.Int("attempt", attempt),
		zap.Int("turns", len(history)),
		zap.Int("context_tokens", total),
	)
}
