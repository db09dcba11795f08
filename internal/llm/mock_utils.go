package llm

import (
	"context"
	"sync"
)

// MockLLMClient answers from Handler, a queue of responses or a fixed
// response, and records the prompts it received.
type MockLLMClient struct {
	mu            sync.Mutex
	Response      string
	ResponseQueue []string
	Err           error
	Delay         func(ctx context.Context) error
	Handler       func(Prompt) (string, error)
	Prompts       []Prompt
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt Prompt) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	if m.Delay != nil {
		if err := m.Delay(ctx); err != nil {
			return "", err
		}
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Handler != nil {
		return m.Handler(prompt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

// Calls returns a copy of the received prompts.
func (m *MockLLMClient) Calls() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Prompt(nil), m.Prompts...)
}
