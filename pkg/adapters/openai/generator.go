// Package openai implements the text-generation port against the OpenAI
// API, with a deterministic fallback so a turn always gets a response.
package openai

import (
	"context"
	"log/slog"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/meridianhealth/intake/internal/logging"
	"github.com/meridianhealth/intake/pkg/domain"
)

// DefaultTimeout caps how long a single generation call may take before the
// turn falls back to a canned response.
const DefaultTimeout = 30 * time.Second

const systemPrompt = "You are a warm, professional medical intake assistant. " +
	"Ask one question at a time, acknowledge what the patient shared, and never " +
	"diagnose. Keep replies under three sentences."

// Generator implements ports.Generator against the OpenAI chat completions
// API. Per the port contract it never returns an error: any failure yields
// the deterministic fallback with the diagnostic recorded on the result.
type Generator struct {
	client   *sdk.Client
	model    string
	timeout  time.Duration
	fallback *Fallback
	logger   *slog.Logger
}

// Option configures the Generator.
type Option func(*Generator)

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(g *Generator) { g.model = model }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Generator) { g.timeout = timeout }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// New creates a generator authenticated with the given API key.
func New(apiKey string, opts ...Option) *Generator {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewFromClient(&client, opts...)
}

// NewFromClient creates a generator from an existing client. Tests use this
// with a client pointed at a local HTTP server.
func NewFromClient(client *sdk.Client, opts ...Option) *Generator {
	g := &Generator{
		client:   client,
		model:    sdk.ChatModelGPT4oMini,
		timeout:  DefaultTimeout,
		fallback: NewFallback(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces the response text for an assembled prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) *domain.GenerationResult {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	completion, err := g.client.Chat.Completions.New(callCtx, sdk.ChatCompletionNewParams{
		Model: g.model,
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(systemPrompt),
			sdk.UserMessage(prompt),
		},
	})
	if err != nil {
		g.logger.Warn("generation failed, using fallback", "err", err)
		result := g.fallback.Generate(ctx, prompt)
		result.Err = err.Error()
		return result
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		g.logger.Warn("generation returned empty content, using fallback")
		result := g.fallback.Generate(ctx, prompt)
		result.Err = "empty completion"
		return result
	}

	return &domain.GenerationResult{
		Content: completion.Choices[0].Message.Content,
		Source:  domain.SourceGenerated,
	}
}
