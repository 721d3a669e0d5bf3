package dialogue

import (
	"context"
	"fmt"
	"sync"
)

// MockEngine is a scripted engine for tests. Responses are returned in order;
// running out of script is an error, as is any configured failure.
type MockEngine struct {
	mu        sync.Mutex
	responses []string
	next      int

	// Err, when set, is returned by every Generate call.
	Err error

	// Prompts records every prompt received, in order.
	Prompts []string
}

// NewMockEngine builds a mock returning the given responses in order.
func NewMockEngine(responses ...string) *MockEngine {
	return &MockEngine{responses: responses}
}

func (m *MockEngine) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if m.next >= len(m.responses) {
		return "", fmt.Errorf("mock engine exhausted after %d responses", len(m.responses))
	}
	resp := m.responses[m.next]
	m.next++
	return resp, nil
}

var _ Engine = (*MockEngine)(nil)
