// Package ai provides the text-completion collaborator used for revision
// prose. The engine treats it as best-effort: any failure falls back to
// deterministic template text.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Client is the narrow completion interface the arena consumes.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Chain tries each registered client in order and returns the first
// non-empty completion.
type Chain struct {
	clients []namedClient
	mu      sync.RWMutex
}

type namedClient struct {
	name   string
	client Client
}

// NewChain creates an empty fallback chain.
func NewChain() *Chain {
	return &Chain{}
}

// Register appends a client to the fallback order.
func (c *Chain) Register(name string, client Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients = append(c.clients, namedClient{name: name, client: client})
}

// HasClient returns true if at least one client is registered.
func (c *Chain) HasClient() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients) > 0
}

// Complete routes the prompt to the first client that succeeds.
func (c *Chain) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, nc := range c.clients {
		text, err := nc.client.Complete(ctx, prompt)
		if err != nil {
			slog.Warn("completion client failed, trying next",
				"client", nc.name,
				"error", err,
			)
			continue
		}
		if text == "" {
			slog.Warn("completion client returned empty text, trying next", "client", nc.name)
			continue
		}
		return text, nil
	}

	return "", fmt.Errorf("all completion clients failed")
}
