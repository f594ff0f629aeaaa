package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"docchat/internal/config"
)

var ErrMissingCredential = errors.New("missing API key")

// InferenceFailure wraps any error returned while talking to the model.
type InferenceFailure struct {
	Provider string
	Model    string
	Cause    error
}

func (e *InferenceFailure) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Provider, e.Model, e.Cause)
}

func (e *InferenceFailure) Unwrap() error {
	return e.Cause
}

// Options are the generation parameters of a single request.
type Options struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Generator sends one prompt and returns the generated text verbatim.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	HasCredential() bool
}

// Client calls a langchaingo backend chosen by the configured provider.
// The backend is created on first use so a missing key never blocks startup.
type Client struct {
	cfg config.LLMConfig
}

func NewClient(cfg config.LLMConfig) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) Provider() string {
	return c.cfg.Provider
}

// HasCredential reports whether a request can be attempted. Ollama needs no key.
func (c *Client) HasCredential() bool {
	if c.cfg.Provider == config.ProviderOllama {
		return true
	}
	return strings.TrimSpace(c.apiKey()) != ""
}

func (c *Client) apiKey() string {
	return strings.TrimPrefix(c.cfg.APIKey, "Bearer ")
}

func (c *Client) model(ctx context.Context, modelName string) (llms.Model, error) {
	switch c.cfg.Provider {
	case config.ProviderGoogleAI, "":
		opts := []googleai.Option{
			googleai.WithAPIKey(c.apiKey()),
			googleai.WithDefaultModel(modelName),
		}
		return googleai.New(ctx, opts...)
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(c.apiKey()),
			openai.WithModel(modelName),
		}
		if c.cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(c.cfg.BaseURL))
		}
		return openai.New(opts...)
	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(modelName)}
		if c.cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(c.cfg.BaseURL))
		}
		return ollama.New(opts...)
	}
	return nil, fmt.Errorf("unsupported LLM provider: %s", c.cfg.Provider)
}

// Generate makes exactly one request. No retry, no cache.
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if !c.HasCredential() {
		return "", ErrMissingCredential
	}
	modelName := opts.Model
	if modelName == "" {
		modelName = c.cfg.Model
	}
	fail := func(err error) error {
		return &InferenceFailure{Provider: c.cfg.Provider, Model: modelName, Cause: err}
	}

	llm, err := c.model(ctx, modelName)
	if err != nil {
		return "", fail(err)
	}

	log.Debug().
		Str("provider", c.cfg.Provider).
		Str("model", modelName).
		Float64("temperature", opts.Temperature).
		Float64("top_p", opts.TopP).
		Int("max_tokens", opts.MaxTokens).
		Int("prompt_chars", len(prompt)).
		Msg("Generating content")

	text, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt,
		llms.WithModel(modelName),
		llms.WithTemperature(opts.Temperature),
		llms.WithTopP(opts.TopP),
		llms.WithMaxTokens(opts.MaxTokens),
	)
	if err != nil {
		return "", fail(err)
	}
	return text, nil
}

var describePatterns = []struct {
	pattern string
	message string
}{
	{"rate limit", "rate limit exceeded"},
	{"quota", "quota exceeded"},
	{"resource_exhausted", "quota exceeded"},
	{"context deadline", "request timed out"},
	{"timeout", "request timed out"},
	{"context canceled", "request cancelled"},
	{"api key not valid", "authentication failed with provider"},
	{"invalid api", "authentication failed with provider"},
	{"unauthorized", "authentication failed with provider"},
	{"401", "authentication failed with provider"},
	{"forbidden", "access denied by provider"},
	{"permission_denied", "access denied by provider"},
	{"not found", "model or resource not found"},
	{"connection refused", "could not reach the provider"},
	{"no such host", "could not reach the provider"},
}

// Describe turns an inference error into a short hint for the user. The original
// error text is still what gets shown and logged.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMissingCredential) {
		return "set an API key (GEMINI_API_KEY, OPENAI_API_KEY or DOCCHAT_API_KEY)"
	}
	lower := strings.ToLower(err.Error())
	for _, p := range describePatterns {
		if strings.Contains(lower, p.pattern) {
			return p.message
		}
	}
	return "provider request failed"
}
