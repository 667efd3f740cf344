package llm

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// DefaultOllamaModel is the model used when none is configured.
const DefaultOllamaModel = "llama3.1:8b"

// ModelGenerator generates text through a langchaingo model.
type ModelGenerator struct {
	model    llms.Model
	provider string
}

var _ Generator = (*ModelGenerator)(nil)

// NewModelGenerator wraps any langchaingo model. provider names it in errors.
func NewModelGenerator(model llms.Model, provider string) *ModelGenerator {
	if provider == "" {
		provider = "langchaingo"
	}
	return &ModelGenerator{model: model, provider: provider}
}

// NewOllama creates a generator backed by a local Ollama server.
// An empty serverURL uses the client default (OLLAMA_HOST or localhost).
func NewOllama(model, serverURL string) (*ModelGenerator, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}

	m, err := ollama.New(opts...)
	if err != nil {
		return nil, &GenerationError{Provider: ProviderOllama, Err: err}
	}
	return NewModelGenerator(m, ProviderOllama), nil
}

// Provider returns the provider name used in errors.
func (g *ModelGenerator) Provider() string {
	return g.provider
}

// Generate sends the prompt as a single human message.
func (g *ModelGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, callOpts...)
	if err != nil {
		return "", &GenerationError{Provider: g.provider, Err: err}
	}
	return text, nil
}
