package llm

import (
	"errors"
	"fmt"
)

var (
	ErrURLAccess        = errors.New("failed to access the URL or no relevant information found")
	ErrEmptyResponse    = errors.New("response text is empty")
	ErrInvalidMaxLength = errors.New("max length is shorter than the references header")
)

type ErrUnsupportedTool struct {
	Tool Tool
}

func (e ErrUnsupportedTool) Error() string {
	return fmt.Sprintf("unsupported grounding tool: %d", int(e.Tool))
}

// URLAccessError reports a url-grounded generation that came back without
// citations. It matches ErrURLAccess.
type URLAccessError struct {
	Prompt string
}

func (e *URLAccessError) Error() string {
	return fmt.Sprintf("%s. prompt: %s", ErrURLAccess.Error(), e.Prompt)
}

func (e *URLAccessError) Unwrap() error {
	return ErrURLAccess
}
