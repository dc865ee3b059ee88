package publish

import (
	"context"
	"fmt"
)

// PostFunc publishes one post and returns its id. An empty replyID means the
// post has no parent.
type PostFunc func(ctx context.Context, body string, replyID string) (string, error)

// PublishError reports the fragment whose post aborted a chain.
type PublishError struct {
	Index    int
	Fragment string
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to post fragment %d: %v. text: %s", e.Index, e.Err, e.Fragment)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// PublishChain posts fragments in order, each as a reply to the one before.
// It stops at the first failure and returns the ids posted so far. Posts that
// already succeeded are left in place. ctx is handed to post untouched; only
// a failed post ends the chain.
func PublishChain(ctx context.Context, fragments []string, post PostFunc) ([]string, error) {
	ids := make([]string, 0, len(fragments))
	replyID := ""
	for i, fragment := range fragments {
		id, err := post(ctx, fragment, replyID)
		if err != nil {
			return ids, &PublishError{Index: i, Fragment: fragment, Err: err}
		}
		ids = append(ids, id)
		replyID = id
	}
	return ids, nil
}
