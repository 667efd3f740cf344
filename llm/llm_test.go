package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type mockModel struct {
	response string
	err      error
	prompts  []string
	options  llms.CallOptions
}

func (m *mockModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, opt := range options {
		opt(&m.options)
	}
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, text.Text)
			}
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.response}},
	}, nil
}

func (m *mockModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestModelGenerator(t *testing.T) {
	model := &mockModel{response: "- point one"}
	gen := NewModelGenerator(model, "mock")

	out, err := gen.Generate(context.Background(), "Research the topic: go", Options{Temperature: 0.2, MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "- point one", out)
	assert.Equal(t, []string{"Research the topic: go"}, model.prompts)
	assert.InDelta(t, 0.2, model.options.Temperature, 1e-9)
	assert.Equal(t, 64, model.options.MaxTokens)
	assert.Equal(t, "mock", gen.Provider())
}

func TestModelGenerator_NoMaxTokens(t *testing.T) {
	model := &mockModel{response: "ok"}
	_, err := NewModelGenerator(model, "").Generate(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Zero(t, model.options.MaxTokens)
}

func TestModelGenerator_Error(t *testing.T) {
	cause := errors.New("connection refused")
	gen := NewModelGenerator(&mockModel{err: cause}, "ollama")

	_, err := gen.Generate(context.Background(), "p", Options{})
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "ollama", genErr.Provider)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "ollama generation failed: connection refused", err.Error())
}

func TestNewOllama(t *testing.T) {
	gen, err := NewOllama("", "http://127.0.0.1:11434")
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, gen.Provider())
}

func newChatServer(t *testing.T, handler func(req openai.ChatCompletionRequest) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGenerator(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := newChatServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		got = req
		return http.StatusOK, openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "An article."},
				FinishReason: openai.FinishReasonStop,
			}},
		}
	})

	gen := NewOpenAI("test-key", srv.URL+"/v1", "")
	out, err := gen.Generate(context.Background(), "Write an article", Options{Temperature: 0.5, MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "An article.", out)

	assert.Equal(t, DefaultOpenAIModel, got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[0].Role)
	assert.Equal(t, "Write an article", got.Messages[0].Content)
	assert.InDelta(t, 0.5, got.Temperature, 1e-6)
	assert.Equal(t, 100, got.MaxTokens)
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	srv := newChatServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		return http.StatusOK, openai.ChatCompletionResponse{ID: "chatcmpl-2", Object: "chat.completion"}
	})

	_, err := NewOpenAI("test-key", srv.URL+"/v1", "gpt-test").Generate(context.Background(), "p", Options{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIGenerator_APIError(t *testing.T) {
	srv := newChatServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		return http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"message": "model overloaded", "type": "server_error"},
		}
	})

	_, err := NewOpenAI("test-key", srv.URL+"/v1", "gpt-test").Generate(context.Background(), "p", Options{})
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, ProviderOpenAI, genErr.Provider)

	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.HTTPStatusCode)
	assert.Contains(t, apiErr.Message, "model overloaded")
}

func TestNew(t *testing.T) {
	gen, err := New(Settings{})
	require.NoError(t, err)
	assert.IsType(t, &ModelGenerator{}, gen)

	gen, err = New(Settings{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIGenerator{}, gen)

	_, err = New(Settings{Provider: "bard"})
	assert.Error(t, err)
}

func TestGeneratorFunc(t *testing.T) {
	gen := GeneratorFunc(func(_ context.Context, prompt string, _ Options) (string, error) {
		return "echo: " + prompt, nil
	})
	out, err := gen.Generate(context.Background(), "hi", Options{})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
}
