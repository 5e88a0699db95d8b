package llm

import (
	"context"
	"sync"

	"github.com/mindmesh-ai/mindmesh/internal/domain"
)

// GenerateCall records one invocation for test assertions.
type GenerateCall struct {
	System string
	User   string
	Config domain.ModelConfig
}

// MockClient is a configurable model client for testing. Set Response or Err
// to control behavior; Responses (if non-empty) is consumed in order before
// falling back to Response.
type MockClient struct {
	mu        sync.Mutex
	Response  string
	Responses []string
	Err       error
	Calls     []GenerateCall
}

func NewMockClient() *MockClient {
	return &MockClient{Response: "mock response"}
}

func (c *MockClient) Generate(ctx context.Context, system, user string, cfg domain.ModelConfig) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, GenerateCall{System: system, User: user, Config: cfg})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.Responses) > 0 {
		resp := c.Responses[0]
		c.Responses = c.Responses[1:]
		return resp, nil
	}
	return c.Response, nil
}
