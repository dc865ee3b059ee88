package llm

import (
	"fmt"

	"google.golang.org/genai"
)

type Reference struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// GroundingSucceeded reports whether a url-grounded response actually
// grounded its answer. A response without candidates fails, and so does one
// where any candidate carries grounding metadata with no chunks in it.
// Candidates without metadata are not evidence either way.
func GroundingSucceeded(resp *genai.GenerateContentResponse) bool {
	if resp == nil || len(resp.Candidates) == 0 {
		return false
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.GroundingMetadata == nil {
			continue
		}
		if len(candidate.GroundingMetadata.GroundingChunks) == 0 {
			return false
		}
	}
	return true
}

// ExtractReferences collects web citations in response order. Chunks missing
// a title or a URI are skipped; duplicates are kept.
func ExtractReferences(resp *genai.GenerateContentResponse) []Reference {
	references := []Reference{}
	if resp == nil {
		return references
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil {
				continue
			}
			if chunk.Web.Title == "" || chunk.Web.URI == "" {
				continue
			}
			references = append(references, Reference{Title: chunk.Web.Title, URI: chunk.Web.URI})
		}
	}
	return references
}

func FormatReference(ref Reference) string {
	return fmt.Sprintf("- [%s](%s)", ref.Title, ref.URI)
}

func FormatReferences(refs []Reference) []string {
	formatted := make([]string, 0, len(refs))
	for _, ref := range refs {
		formatted = append(formatted, FormatReference(ref))
	}
	return formatted
}
