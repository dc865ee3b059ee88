package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
	"google.golang.org/genai"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Generate(ctx context.Context, prompt string, tool Tool) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, prompt, tool)
	if value := args.Get(0); value != nil {
		return value.(*genai.GenerateContentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func webChunk(title string, uri string) *genai.GroundingChunk {
	return &genai.GroundingChunk{Web: &genai.GroundingChunkWeb{Title: title, URI: uri}}
}

// groundedResponse builds a single-candidate response whose metadata holds
// the given chunks. Passing no chunks yields present-but-empty metadata.
func groundedResponse(text string, chunks ...*genai.GroundingChunk) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:           genai.NewContentFromText(text, genai.RoleModel),
			GroundingMetadata: &genai.GroundingMetadata{GroundingChunks: chunks},
		}},
	}
}

func plainResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(text, genai.RoleModel),
		}},
	}
}
