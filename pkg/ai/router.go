package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/formlift/formlift/pkg/domain"
)

// Provider identifies an AI backend
type Provider string

// Known providers
const (
	ProviderOpenAI     Provider = "openai"
	ProviderOpenRouter Provider = "openrouter"
)

// DefaultProvider serves model strings without a provider prefix and any
// unrecognized provider token
const DefaultProvider = ProviderOpenAI

// Model is a parsed model selection. An empty ID is a hard configuration
// error for callers; it is never silently replaced with a default model.
type Model struct {
	Provider Provider
	ID       string
}

// String renders the model back to its compact configuration form
func (m Model) String() string {
	if m.ID == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", m.Provider, m.ID)
}

// ParseModel parses a compact "provider:modelId" configuration string.
// A missing provider prefix selects the default provider, and so does an
// unrecognized provider token: future tokens degrade gracefully instead of
// breaking generation.
func ParseModel(s string) Model {
	s = strings.TrimSpace(s)
	if s == "" {
		return Model{Provider: DefaultProvider}
	}

	i := strings.Index(s, ":")
	if i < 0 {
		return Model{Provider: DefaultProvider, ID: s}
	}

	token := strings.ToLower(strings.TrimSpace(s[:i]))
	id := strings.TrimSpace(s[i+1:])

	switch Provider(token) {
	case ProviderOpenAI:
		return Model{Provider: ProviderOpenAI, ID: id}
	case ProviderOpenRouter:
		return Model{Provider: ProviderOpenRouter, ID: id}
	default:
		return Model{Provider: DefaultProvider, ID: id}
	}
}

// TextBackend completes prompts against a concrete provider
type TextBackend interface {
	Complete(ctx context.Context, modelID, prompt string, systemPrompt ...string) (string, error)
}

// Router resolves parsed model selections to backend clients
type Router struct {
	backends map[Provider]TextBackend
}

// NewRouter creates a router over the configured text backends
func NewRouter(openaiBackend, openrouterBackend TextBackend) *Router {
	return &Router{
		backends: map[Provider]TextBackend{
			ProviderOpenAI:     openaiBackend,
			ProviderOpenRouter: openrouterBackend,
		},
	}
}

// ResolveText parses the model string and returns the matching
// text-completion backend. An empty model ID is a configuration error,
// not a network error.
func (r *Router) ResolveText(modelString string) (TextBackend, Model, error) {
	m := ParseModel(modelString)
	if m.ID == "" {
		return nil, m, domain.NewConfigurationError("text model is not configured")
	}

	backend := r.backends[m.Provider]
	if backend == nil {
		return nil, m, domain.NewConfigurationError(fmt.Sprintf("no backend configured for provider %s", m.Provider))
	}

	return backend, m, nil
}
