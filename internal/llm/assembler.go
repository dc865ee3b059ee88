package llm

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/kamomai/notebot/internal/logger"
	"github.com/kamomai/notebot/internal/metrics"
)

// Assembler turns a prompt into the ordered note fragments to publish.
type Assembler struct {
	provider  Provider
	maxLength int
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

type AssemblerOption func(*Assembler)

func WithMaxLength(maxLength int) AssemblerOption {
	return func(a *Assembler) {
		a.maxLength = maxLength
	}
}

func WithLogger(l *logger.Logger) AssemblerOption {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) AssemblerOption {
	return func(a *Assembler) {
		a.metrics = m
	}
}

func NewAssembler(provider Provider, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		provider:  provider,
		maxLength: MaxLength,
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble runs one generation with the tool chosen by SelectTool. A url
// attempt that fails grounding is retried exactly once with search grounding;
// every other error is returned as is.
func (a *Assembler) Assemble(ctx context.Context, prompt string) ([]string, error) {
	tool := SelectTool(prompt)
	fragments, err := a.generate(ctx, prompt, tool)
	if err == nil || tool != ToolURLContext || !errors.Is(err, ErrURLAccess) {
		return fragments, err
	}

	a.logger.Warn("URL access failed, switching to search tool", "error", err)
	a.metrics.IncGroundingFallback()
	return a.generate(ctx, prompt, ToolSearch)
}

func (a *Assembler) generate(ctx context.Context, prompt string, tool Tool) ([]string, error) {
	resp, err := a.provider.Generate(ctx, prompt, tool)
	if err != nil {
		a.metrics.IncGeneration(tool.String(), "error")
		return nil, err
	}
	if tool == ToolURLContext && !GroundingSucceeded(resp) {
		a.metrics.IncGeneration(tool.String(), "ungrounded")
		return nil, &URLAccessError{Prompt: prompt}
	}

	text := responseText(resp)
	if text == "" {
		a.metrics.IncGeneration(tool.String(), "empty")
		return nil, ErrEmptyResponse
	}
	a.metrics.IncGeneration(tool.String(), "ok")

	references := ExtractReferences(resp)
	a.logger.Debug("generated response", "tool", tool.String(), "text_len", len([]rune(text)), "references", len(references))
	return Split(text, FormatReferences(references), a.maxLength)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Text()
}
