package llm

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// Tool is the grounding strategy attached to a single generation call.
type Tool int

const (
	// ToolSearch grounds the answer on Google Search results.
	ToolSearch Tool = iota + 1
	// ToolURLContext grounds the answer on the pages linked from the prompt.
	ToolURLContext
)

func (t Tool) String() string {
	switch t {
	case ToolSearch:
		return "search"
	case ToolURLContext:
		return "url"
	default:
		return "unknown"
	}
}

func (t Tool) genaiTools() ([]*genai.Tool, error) {
	switch t {
	case ToolSearch:
		return []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}, nil
	case ToolURLContext:
		return []*genai.Tool{{URLContext: &genai.URLContext{}}}, nil
	default:
		return nil, ErrUnsupportedTool{Tool: t}
	}
}

// SelectTool picks URL grounding for prompts that carry an https link and
// search grounding for everything else.
func SelectTool(prompt string) Tool {
	if strings.Contains(prompt, "https://") {
		return ToolURLContext
	}
	return ToolSearch
}

type Provider interface {
	Generate(ctx context.Context, prompt string, tool Tool) (*genai.GenerateContentResponse, error)
}
