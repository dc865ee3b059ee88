package llm

import (
	"strings"
	"unicode/utf8"
)

const (
	// PlatformLimit is the Misskey note length ceiling in characters.
	PlatformLimit = 3000
	SafetyMargin  = 50
	MaxLength     = PlatformLimit - SafetyMargin

	ReferencesHeader = "\n**References**:"
)

// Split cuts text into maxLength-character fragments and appends the
// references as trailing blocks that start with ReferencesHeader. A reference
// line is never split across two blocks unless the line alone is longer than
// maxLength, in which case it is hard-wrapped first. When everything fits in a
// single fragment the pieces are joined with newlines and returned as one.
func Split(text string, references []string, maxLength int) ([]string, error) {
	headerLen := utf8.RuneCountInString(ReferencesHeader)
	if maxLength < headerLen {
		return nil, ErrInvalidMaxLength
	}

	fragments := splitIntoChunks(text, maxLength)

	block := ReferencesHeader
	blockLen := headerLen
	for _, ref := range wrapLines(references, maxLength) {
		refLen := utf8.RuneCountInString(ref)
		if blockLen+refLen+1 > maxLength {
			fragments = append(fragments, block)
			block, blockLen = ref, refLen
			continue
		}
		block += "\n" + ref
		blockLen += refLen + 1
	}
	fragments = append(fragments, block)

	joined := strings.Join(fragments, "\n")
	if utf8.RuneCountInString(joined) <= maxLength {
		return []string{joined}, nil
	}
	return fragments, nil
}

func splitIntoChunks(text string, chunkSize int) []string {
	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

func wrapLines(lines []string, maxLength int) []string {
	wrapped := make([]string, 0, len(lines))
	for _, line := range lines {
		if utf8.RuneCountInString(line) <= maxLength {
			wrapped = append(wrapped, line)
			continue
		}
		wrapped = append(wrapped, splitIntoChunks(line, maxLength)...)
	}
	return wrapped
}
