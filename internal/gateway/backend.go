// Package gateway routes model calls to configured backends, each wrapped
// with rate limiting, retry on rate-limit rejections, a per-provider
// circuit breaker, and per-call timeouts.
package gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/minds-lab/minds-cli/internal/resilience"
	"github.com/minds-lab/minds-cli/pkg/anthropic"
	"github.com/minds-lab/minds-cli/pkg/openaichat"
)

// Completion is the backend-neutral result of one model call.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Backend is the capability interface a model provider implements.
type Backend interface {
	// Name returns the provider identifier used in config, rate limits,
	// and pricing.
	Name() string
	// Complete sends one prompt and returns the completion.
	Complete(ctx context.Context, prompt string, temperature float64) (*Completion, error)
}

// Registry maps provider names to backends, resolved once at configuration
// time.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds a backend to the registry.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Name()] = b
}

// Get returns a backend by name, or nil if not found.
func (r *Registry) Get(name string) Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.backends[name]
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	return names
}

// AnthropicBackend adapts the Anthropic client to the Backend interface.
type AnthropicBackend struct {
	name      string
	model     string
	maxTokens int64
	client    anthropic.Client
}

// NewAnthropicBackend wraps an Anthropic client as a named backend.
func NewAnthropicBackend(name, model string, client anthropic.Client) *AnthropicBackend {
	return &AnthropicBackend{name: name, model: model, maxTokens: 4096, client: client}
}

func (b *AnthropicBackend) Name() string { return b.name }

func (b *AnthropicBackend) Complete(ctx context.Context, prompt string, temperature float64) (*Completion, error) {
	resp, err := b.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       b.model,
		MaxTokens:   b.maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temperature,
	})
	if err != nil {
		var rle *anthropic.RateLimitedError
		if errors.As(err, &rle) {
			return nil, resilience.NewRateLimitError(b.name, err)
		}
		return nil, eris.Wrapf(err, "gateway: %s complete", b.name)
	}
	return &Completion{
		Text:             resp.Text,
		Model:            resp.Model,
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// OpenAIBackend adapts an OpenAI-compatible chat client to the Backend
// interface.
type OpenAIBackend struct {
	name   string
	model  string
	client openaichat.Client
}

// NewOpenAIBackend wraps an OpenAI-compatible client as a named backend.
func NewOpenAIBackend(name, model string, client openaichat.Client) *OpenAIBackend {
	return &OpenAIBackend{name: name, model: model, client: client}
}

func (b *OpenAIBackend) Name() string { return b.name }

func (b *OpenAIBackend) Complete(ctx context.Context, prompt string, temperature float64) (*Completion, error) {
	resp, err := b.client.ChatCompletion(ctx, openaichat.ChatCompletionRequest{
		Model:       b.model,
		Messages:    []openaichat.Message{{Role: "user", Content: prompt}},
		Temperature: &temperature,
	})
	if err != nil {
		var rle *openaichat.RateLimitedError
		if errors.As(err, &rle) {
			return nil, resilience.NewRateLimitError(b.name, err)
		}
		return nil, eris.Wrapf(err, "gateway: %s complete", b.name)
	}
	if len(resp.Choices) == 0 {
		return nil, eris.Errorf("gateway: %s returned no choices", b.name)
	}
	return &Completion{
		Text:             resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
