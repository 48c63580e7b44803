// Package llm adapts local language-model servers to the refinement engine
// contract, backed by github.com/mozilla-ai/any-llm-go.
//
// The selected .gguf file names the model; the server at BaseURL (llama.cpp,
// llamafile, ollama or any OpenAI-compatible endpoint) is expected to serve it.
package llm

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"
)

// Config selects the backend and sampling for an Engine.
type Config struct {
	Provider    string // llamacpp, llamafile, ollama, openai
	ModelPath   string // resolved model file; its stem is the model name
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
}

// Engine completes refinement prompts against one model.
type Engine struct {
	backend     anyllmlib.Provider
	model       string
	temperature float64
	maxTokens   int
}

// ModelName returns the name a server knows a model file by: its base name
// without the extension.
func ModelName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// New creates an Engine for cfg.
func New(cfg Config) (*Engine, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("llm: model path must not be empty")
	}

	var opts []anyllmlib.Option
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
	}

	backend, err := createBackend(cfg.Provider, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: create %q backend: %w", cfg.Provider, err)
	}

	return &Engine{
		backend:     backend,
		model:       ModelName(cfg.ModelPath),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func createBackend(provider string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(provider) {
	case "llamacpp", "":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "openai":
		return anyllmoai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: llamacpp, llamafile, ollama, openai", provider)
	}
}

// Model returns the model name sent with each request.
func (e *Engine) Model() string { return e.model }

// Complete sends prompt as a single user message and returns the first
// choice's text.
func (e *Engine) Complete(ctx context.Context, prompt string) (string, error) {
	params := anyllmlib.CompletionParams{
		Model: e.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleUser, Content: prompt},
		},
	}
	if e.temperature != 0 {
		t := e.temperature
		params.Temperature = &t
	}
	if e.maxTokens > 0 {
		mt := e.maxTokens
		params.MaxTokens = &mt
	}

	resp, err := e.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}
