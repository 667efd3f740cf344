// Package llm is the text-generation boundary used by workflow nodes.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned when a provider answers without any completion.
var ErrEmptyResponse = errors.New("empty response")

// Options tune a single generation call.
type Options struct {
	Temperature float64
	// MaxTokens limits the completion length; zero leaves it to the provider.
	MaxTokens int
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, opts Options) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// GenerationError reports a failed call to a text-generation provider.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Providers understood by New.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider  string
	Model     string
	ServerURL string
	APIKey    string
}

// New creates the generator for s.Provider. An empty provider means ollama.
func New(s Settings) (Generator, error) {
	switch strings.ToLower(s.Provider) {
	case "", ProviderOllama:
		return NewOllama(s.Model, s.ServerURL)
	case ProviderOpenAI:
		return NewOpenAI(s.APIKey, s.ServerURL, s.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", s.Provider)
	}
}
