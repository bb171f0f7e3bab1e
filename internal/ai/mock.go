package ai

import "context"

// MockClient is a test double for completion clients.
type MockClient struct {
	Response   string
	Err        error
	LastPrompt string // captures the last prompt for inspection
	Calls      int
}

// NewMockClient creates a MockClient that returns the given response.
func NewMockClient(response string) *MockClient {
	return &MockClient{Response: response}
}

func (m *MockClient) Complete(_ context.Context, prompt string) (string, error) {
	m.LastPrompt = prompt
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
