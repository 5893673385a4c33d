package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formlift/formlift/pkg/domain"
)

func TestParseModel(t *testing.T) {
	cases := []struct {
		in       string
		provider Provider
		id       string
	}{
		{"openai:gpt-4o", ProviderOpenAI, "gpt-4o"},
		{"openrouter:google/gemini-2.0-flash", ProviderOpenRouter, "google/gemini-2.0-flash"},
		{"gpt-4o-mini", ProviderOpenAI, "gpt-4o-mini"},
		{"OpenAI:gpt-4o", ProviderOpenAI, "gpt-4o"},
		{"OPENROUTER:meta/llama-3", ProviderOpenRouter, "meta/llama-3"},
		{" openai : gpt-4o ", ProviderOpenAI, "gpt-4o"},
		{"someprovider:some-model", ProviderOpenAI, "some-model"},
		{"", ProviderOpenAI, ""},
		{"openai:", ProviderOpenAI, ""},
		// Only the first colon splits; the rest belongs to the model id
		{"openrouter:org:model:v2", ProviderOpenRouter, "org:model:v2"},
	}

	for _, tc := range cases {
		m := ParseModel(tc.in)
		assert.Equal(t, tc.provider, m.Provider, tc.in)
		assert.Equal(t, tc.id, m.ID, tc.in)
	}
}

func TestModelString(t *testing.T) {
	assert.Equal(t, "openai:gpt-4o", Model{Provider: ProviderOpenAI, ID: "gpt-4o"}.String())
	assert.Equal(t, "", Model{Provider: ProviderOpenAI}.String())
}

type routerStubBackend struct{ name string }

func (b *routerStubBackend) Complete(ctx context.Context, modelID, prompt string, systemPrompt ...string) (string, error) {
	return b.name, nil
}

func TestResolveText(t *testing.T) {
	openaiBackend := &routerStubBackend{name: "openai"}
	openrouterBackend := &routerStubBackend{name: "openrouter"}
	r := NewRouter(openaiBackend, openrouterBackend)

	backend, m, err := r.ResolveText("openrouter:google/gemini-2.0-flash")
	require.NoError(t, err)
	assert.Same(t, openrouterBackend, backend.(*routerStubBackend))
	assert.Equal(t, "google/gemini-2.0-flash", m.ID)

	backend, _, err = r.ResolveText("gpt-4o")
	require.NoError(t, err)
	assert.Same(t, openaiBackend, backend.(*routerStubBackend))
}

func TestResolveTextEmptyModelIsConfigurationError(t *testing.T) {
	r := NewRouter(&routerStubBackend{}, &routerStubBackend{})

	for _, in := range []string{"", "   ", "openai:"} {
		_, _, err := r.ResolveText(in)
		require.Error(t, err, in)
		assert.True(t, domain.IsConfiguration(err), in)
	}
}

func TestResolveTextMissingBackend(t *testing.T) {
	r := NewRouter(&routerStubBackend{}, nil)

	_, _, err := r.ResolveText("openrouter:google/gemini-2.0-flash")
	require.Error(t, err)
	assert.True(t, domain.IsConfiguration(err))
}
