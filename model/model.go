package model

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"brain/config"
)

// Client is the uniform call interface over every text-generation
// backend. Implementations never let an upstream failure escape as
// anything other than a *CallError.
type Client interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// UnsupportedModelError is a user error: the requested backend key is
// not in the registry.
type UnsupportedModelError struct {
	Key       string
	Available []string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported model %q, available models: %s", e.Key, strings.Join(e.Available, ", "))
}

// CallError wraps an upstream model failure with the provider name.
type CallError struct {
	Provider string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("model call failed (%s): %v", e.Provider, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Registry maps backend keys to clients. Construction is lazy so the
// process never connects to a backend nobody asked for.
type Registry struct {
	mu        sync.Mutex
	factories map[string]func() Client
	clients   map[string]Client
}

// DefaultModel is used when a request does not name a backend.
const DefaultModel = "openai"

func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		factories: map[string]func() Client{
			"openai": func() Client { return NewAzureOpenAI(cfg) },
			"ollama": func() Client { return NewOllama(cfg.OllamaURL, cfg.OllamaModel) },
			"gemma":  func() Client { return NewOllama(cfg.OllamaURL, cfg.OllamaGemmaModel) },
			"llama":  func() Client { return NewOllama(cfg.OllamaURL, cfg.OllamaLlamaModel) },
		},
		clients: make(map[string]Client),
	}
}

// Get returns the client for key, constructing it on first use.
func (r *Registry) Get(key string) (Client, error) {
	if key == "" {
		key = DefaultModel
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[key]; ok {
		return c, nil
	}
	factory, ok := r.factories[key]
	if !ok {
		return nil, &UnsupportedModelError{Key: key, Available: r.keysLocked()}
	}
	c := factory()
	r.clients[key] = c
	return c, nil
}

// Keys lists the registered backend keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keysLocked()
}

func (r *Registry) keysLocked() []string {
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
