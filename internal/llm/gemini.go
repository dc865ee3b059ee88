package llm

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

//go:embed system_prompt.txt
var systemPrompt string

const defaultGeminiModel = "gemini-2.5-flash"

type GeminiConfig struct {
	ProjectID string
	Region    string
	Model     string
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider calls Gemini on Vertex AI with a single grounding tool.
type GeminiProvider struct {
	models contentGenerator
	model  string
	now    func() time.Time
}

func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, errors.New("PROJECT_ID and REGION must be set for Vertex AI")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:     cfg.ProjectID,
		Location:    cfg.Region,
		Backend:     genai.BackendVertexAI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGeminiProvider(client.Models, cfg.Model, time.Now), nil
}

func newGeminiProvider(models contentGenerator, model string, now func() time.Time) *GeminiProvider {
	return &GeminiProvider{
		models: models,
		model:  defaultIfEmpty(model, defaultGeminiModel),
		now:    now,
	}
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, tool Tool) (*genai.GenerateContentResponse, error) {
	tools, err := tool.genaiTools()
	if err != nil {
		return nil, err
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction:  genai.NewContentFromText(p.systemInstruction(), genai.RoleUser),
		Tools:              tools,
		ResponseModalities: []string{"TEXT"},
	}
	return p.models.GenerateContent(ctx, p.model, genai.Text(prompt), config)
}

func (p *GeminiProvider) systemInstruction() string {
	today := p.now()
	return systemPrompt + fmt.Sprintf("\n今日は%d年%d月%d日です。", today.Year(), int(today.Month()), today.Day())
}

func defaultIfEmpty(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
