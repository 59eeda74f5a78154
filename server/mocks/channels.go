// Package mocks provides configurable fakes for the generation channels so
// handlers and pipeline tests run without a live backend.
package mocks

import (
	"context"

	"github.com/rowanvale/copysmith/gen/dispatch"
)

// MockExecutionChannel implements dispatch.ExecutionChannel for testing.
// Behavior is driven by ExecuteFunc; Calls counts how many times the channel
// was invoked, which the dispatcher tests assert on.
//
// Example usage:
//
//	ch := mocks.NewMockExecutionChannel(func(ctx context.Context, payload []byte) (*dispatch.Execution, error) {
//	    return &dispatch.Execution{StatusCode: 200, Body: `{"outputs": ["a"]}`}, nil
//	})
type MockExecutionChannel struct {
	ExecuteFunc func(context.Context, []byte) (*dispatch.Execution, error)
	ChannelName string
	Calls       int
	LastPayload []byte
}

// NewMockExecutionChannel creates a mock with the given execute function.
// If executeFunc is nil, Execute returns an empty successful execution.
func NewMockExecutionChannel(executeFunc func(context.Context, []byte) (*dispatch.Execution, error)) *MockExecutionChannel {
	return &MockExecutionChannel{
		ExecuteFunc: executeFunc,
		ChannelName: "mock-function",
	}
}

func (m *MockExecutionChannel) Name() string {
	return m.ChannelName
}

func (m *MockExecutionChannel) Execute(ctx context.Context, payload []byte) (*dispatch.Execution, error) {
	m.Calls++
	m.LastPayload = payload
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, payload)
	}
	return &dispatch.Execution{StatusCode: 200, Body: "{}"}, nil
}

// MockTextChannel implements dispatch.TextChannel for testing the secondary
// path.
type MockTextChannel struct {
	GenerateFunc func(context.Context, dispatch.TextRequest) (*dispatch.TextResult, error)
	ChannelName  string
	Calls        int
	LastRequest  dispatch.TextRequest
}

// NewMockTextChannel creates a mock with the given generate function.
func NewMockTextChannel(generateFunc func(context.Context, dispatch.TextRequest) (*dispatch.TextResult, error)) *MockTextChannel {
	return &MockTextChannel{
		GenerateFunc: generateFunc,
		ChannelName:  "mock-rest",
	}
}

func (m *MockTextChannel) Name() string {
	return m.ChannelName
}

func (m *MockTextChannel) Generate(ctx context.Context, req dispatch.TextRequest) (*dispatch.TextResult, error) {
	m.Calls++
	m.LastRequest = req
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &dispatch.TextResult{Text: "", Model: "mock"}, nil
}

// MockTokenSource implements channel.TokenSource.
type MockTokenSource struct {
	TokenFunc func(context.Context) (string, error)
	Calls     int
}

func (m *MockTokenSource) Token(ctx context.Context) (string, error) {
	m.Calls++
	if m.TokenFunc != nil {
		return m.TokenFunc(ctx)
	}
	return "mock-token", nil
}

// MockSessionChecker implements probe.SessionChecker and chat.SessionValidator.
type MockSessionChecker struct {
	CheckFunc func(context.Context) error
	Calls     int
}

func (m *MockSessionChecker) Check(ctx context.Context) error {
	m.Calls++
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx)
	}
	return nil
}
